package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-tracker/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, loanID uuid.UUID, userID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) Delete(ctx context.Context, loanID uuid.UUID, userID string) error {
	args := m.Called(ctx, loanID, userID)
	return args.Error(0)
}

func (m *MockLoanRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Loan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ApplyPayment(ctx context.Context, loanID uuid.UUID, userID string, amount decimal.Decimal, at time.Time) (*domain.Loan, decimal.Decimal, error) {
	args := m.Called(ctx, loanID, userID, amount, at)
	if args.Get(0) == nil {
		return nil, decimal.Zero, args.Error(2)
	}
	return args.Get(0).(*domain.Loan), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockLoanRepository) MarkOverdue(ctx context.Context, today time.Time, at time.Time) (int64, error) {
	args := m.Called(ctx, today, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoanRepository) FindReminderCandidates(ctx context.Context, userID string, dueDates []time.Time) ([]*domain.Loan, error) {
	args := m.Called(ctx, userID, dueDates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Summary(ctx context.Context, userID string) (*domain.LoanSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanSummary), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID, userID string) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID, kind, message string) error {
	args := m.Called(ctx, userID, kind, message)
	return args.Error(0)
}

type MockReminderLedger struct {
	mock.Mock
}

func (m *MockReminderLedger) Claim(ctx context.Context, key domain.ReminderKey, at time.Time, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, at, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockReminderLedger) Release(ctx context.Context, key domain.ReminderKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
