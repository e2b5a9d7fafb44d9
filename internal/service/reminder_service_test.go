package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-tracker/internal/clock"
	"github.com/segyhp/loan-tracker/internal/domain"
	"github.com/segyhp/loan-tracker/internal/mocks"
	customError "github.com/segyhp/loan-tracker/pkg/errors"
)

func TestSelectCandidates_ExactThresholds(t *testing.T) {
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	loanDue := func(days int) *domain.Loan {
		return &domain.Loan{
			ID:             uuid.New(),
			UserID:         testUser,
			LoanAmount:     decimal.NewFromInt(100),
			PaidAmount:     decimal.Zero,
			PaymentDueDate: today.AddDate(0, 0, days),
			Status:         domain.LoanStatusActive,
		}
	}

	tests := []struct {
		days      int
		threshold int
		selected  bool
	}{
		{days: 11}, {days: 10, threshold: 10, selected: true}, {days: 9},
		{days: 6}, {days: 5, threshold: 5, selected: true}, {days: 4},
		{days: 3, threshold: 3, selected: true}, {days: 2},
		{days: 1, threshold: 1, selected: true}, {days: 0}, {days: -1},
	}

	for _, tt := range tests {
		candidates := SelectCandidates([]*domain.Loan{loanDue(tt.days)}, today, domain.ReminderThresholds)
		if !tt.selected {
			assert.Empty(t, candidates, "due in %d days", tt.days)
			continue
		}
		require.Len(t, candidates, 1, "due in %d days", tt.days)
		assert.Equal(t, tt.threshold, candidates[0].Threshold)
	}
}

func TestSelectCandidates_SkipsIneligibleLoans(t *testing.T) {
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	due := today.AddDate(0, 0, 5)

	loans := []*domain.Loan{
		{ID: uuid.New(), LoanAmount: decimal.NewFromInt(100), PaidAmount: decimal.NewFromInt(100), PaymentDueDate: due, Status: domain.LoanStatusCompleted},
		{ID: uuid.New(), LoanAmount: decimal.NewFromInt(100), PaidAmount: decimal.Zero, PaymentDueDate: due, Status: domain.LoanStatusOverdue},
		{ID: uuid.New(), LoanAmount: decimal.NewFromInt(100), PaidAmount: decimal.NewFromInt(100), PaymentDueDate: due, Status: domain.LoanStatusActive},
	}

	assert.Empty(t, SelectCandidates(loans, today, domain.ReminderThresholds))
}

func TestReminderMessage(t *testing.T) {
	urgent := ReminderMessage(1, decimal.RequireFromString("250.5"))
	assert.Contains(t, urgent, "Urgent")
	assert.Contains(t, urgent, "due tomorrow")
	assert.Contains(t, urgent, "250.50")

	regular := ReminderMessage(5, decimal.NewFromInt(1200))
	assert.Contains(t, regular, "5 days remaining")
	assert.Contains(t, regular, "1200.00")
	assert.NotContains(t, regular, "Urgent")
}

func TestSendAll_TenDayReminderSentOnce(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, 10000, 10)

	sent, err := f.service.RunGlobalReminderSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Equal(t, 1, f.notifier.Count())
	assert.Equal(t, mocks.SentNotification{
		UserID:  testUser,
		Kind:    domain.NotificationKindLoanReminder,
		Message: ReminderMessage(10, loan.RemainingAmount()),
	}, f.notifier.Sent[0])

	sent, err = f.service.RunGlobalReminderSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, f.notifier.Count())
}

func TestSendAll_EachThresholdOnce(t *testing.T) {
	f := newFixture(t)
	f.createLoan(t, 500, 10)

	total := 0
	for day := 0; day < 12; day++ {
		sent, err := f.service.RunGlobalReminderSweep(context.Background())
		require.NoError(t, err)
		total += sent
		sent, err = f.service.RunGlobalReminderSweep(context.Background())
		require.NoError(t, err)
		total += sent
		f.clock.AdvanceDays(1)
	}

	assert.Equal(t, 4, total)
	require.Equal(t, 4, f.notifier.Count())
	assert.Contains(t, f.notifier.Sent[3].Message, "due tomorrow")
}

func TestSendAll_DedupIsPerLoan(t *testing.T) {
	f := newFixture(t)
	f.createLoan(t, 500, 5)
	f.createLoan(t, 700, 5)

	sent, err := f.service.RunGlobalReminderSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestSendAll_AcrossUsers(t *testing.T) {
	f := newFixture(t)
	f.createLoan(t, 500, 3)
	_, err := f.service.CreateLoan(context.Background(), "user-2", domain.LoanInput{
		LoanAmount:     decimal.NewFromInt(40),
		PaymentDueDate: f.daysFromToday(3),
	})
	require.NoError(t, err)

	sent, err := f.service.RunGlobalReminderSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	users := []string{f.notifier.Sent[0].UserID, f.notifier.Sent[1].UserID}
	assert.ElementsMatch(t, []string{testUser, "user-2"}, users)
}

func TestSendAll_EditedDueDateStartsFresh(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, 500, 5)

	sent, err := f.service.RunGlobalReminderSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	// Moving the due date and moving the clock so the loan hits 5 days again.
	_, err = f.service.UpdateLoan(context.Background(), testUser, loan.ID, domain.LoanInput{
		LoanAmount:     decimal.NewFromInt(500),
		PaymentDueDate: f.daysFromToday(7),
	})
	require.NoError(t, err)
	f.clock.AdvanceDays(2)

	sent, err = f.service.RunGlobalReminderSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestSendForUser_OnlyThatUser(t *testing.T) {
	f := newFixture(t)
	f.createLoan(t, 500, 1)
	_, err := f.service.CreateLoan(context.Background(), "user-2", domain.LoanInput{
		LoanAmount:     decimal.NewFromInt(40),
		PaymentDueDate: f.daysFromToday(1),
	})
	require.NoError(t, err)

	_, err = f.service.ListLoans(context.Background(), testUser)
	require.NoError(t, err)

	require.Equal(t, 1, f.notifier.Count())
	assert.Equal(t, testUser, f.notifier.Sent[0].UserID)
}

func TestSendAll_NotifierFailureIsSwallowedAndRetried(t *testing.T) {
	f := newFixture(t)
	f.createLoan(t, 500, 10)
	f.notifier.SetErr(errors.New("smtp down"))

	sent, err := f.service.RunGlobalReminderSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 0, f.ledger.Len(), "failed delivery must release its claim")

	f.notifier.SetErr(nil)
	sent, err = f.service.RunGlobalReminderSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestSendAll_ListPathSurvivesNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.createLoan(t, 500, 10)
	f.notifier.SetErr(errors.New("smtp down"))

	resp, err := f.service.ListLoans(context.Background(), testUser)

	require.NoError(t, err)
	assert.Len(t, resp.Loans, 1)
}

func TestSendAll_LedgerFailureSkipsNotify(t *testing.T) {
	repo := &mocks.MockLoanRepository{}
	notifier := &mocks.MockNotifier{}
	ledger := &mocks.MockReminderLedger{}
	clk := clock.NewFixed(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	selector := NewReminderSelector(repo, notifier, ledger, clk, zerolog.Nop(), DefaultReminderConfig())

	loans := []*domain.Loan{
		{ID: uuid.New(), UserID: "a", LoanAmount: decimal.NewFromInt(10), PaidAmount: decimal.Zero, PaymentDueDate: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), Status: domain.LoanStatusActive},
		{ID: uuid.New(), UserID: "b", LoanAmount: decimal.NewFromInt(20), PaidAmount: decimal.Zero, PaymentDueDate: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), Status: domain.LoanStatusActive},
	}
	repo.On("FindReminderCandidates", mock.Anything, "", mock.Anything).Return(loans, nil)
	ledger.On("Claim", mock.Anything, mock.MatchedBy(func(k domain.ReminderKey) bool { return k.UserID == "a" }), clk.Now(), DefaultReminderWindow).
		Return(false, errors.New("redis: connection refused"))
	ledger.On("Claim", mock.Anything, mock.MatchedBy(func(k domain.ReminderKey) bool { return k.UserID == "b" }), clk.Now(), DefaultReminderWindow).
		Return(true, nil)
	notifier.On("Notify", mock.Anything, "b", domain.NotificationKindLoanReminder, mock.AnythingOfType("string")).Return(nil)

	sent, err := selector.SendAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
	ledger.AssertExpectations(t)
}

func TestSendAll_QueriesThresholdDueDates(t *testing.T) {
	repo := &mocks.MockLoanRepository{}
	clk := clock.NewFixed(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	selector := NewReminderSelector(repo, &mocks.MockNotifier{}, &mocks.MockReminderLedger{}, clk, zerolog.Nop(), ReminderConfig{})

	expected := []time.Time{
		time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
	}
	repo.On("FindReminderCandidates", mock.Anything, "", expected).Return([]*domain.Loan{}, nil)

	sent, err := selector.SendAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	repo.AssertExpectations(t)
}

func TestSendAll_QueryFailure(t *testing.T) {
	repo := &mocks.MockLoanRepository{}
	clk := clock.NewFixed(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	selector := NewReminderSelector(repo, &mocks.MockNotifier{}, &mocks.MockReminderLedger{}, clk, zerolog.Nop(), DefaultReminderConfig())

	repo.On("FindReminderCandidates", mock.Anything, "", mock.Anything).Return(nil, errors.New("too many connections"))

	_, err := selector.SendAll(context.Background())

	assertBusinessCode(t, err, customError.ErrCodeDatabaseError)
}

func TestSendAll_StopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	f.createLoan(t, 500, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent, err := f.service.RunGlobalReminderSweep(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 0, f.notifier.Count())
}
