package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-tracker/internal/domain"
	customError "github.com/segyhp/loan-tracker/pkg/errors"
)

var loanColumnNames = []string{"id", "user_id", "loan_amount", "paid_amount", "payment_due_date", "status", "notes", "created_at", "updated_at"}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func loanRow(id uuid.UUID, userID, amount, paid, status string, due, created, updated time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(loanColumnNames).
		AddRow(id.String(), userID, amount, paid, due, status, nil, created, updated)
}

func TestLoanRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanRepository(db)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	loan := &domain.Loan{
		ID:             uuid.New(),
		UserID:         "user-1",
		LoanAmount:     decimal.NewFromInt(10000),
		PaidAmount:     decimal.Zero,
		PaymentDueDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Status:         domain.LoanStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	mock.ExpectExec(`INSERT INTO loans`).
		WithArgs(loan.ID, "user-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "2024-07-01", "active", nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), loan))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanRepository(db)
	id := uuid.New()
	due := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM loans\s+WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, "user-1").
		WillReturnRows(loanRow(id, "user-1", "10000.00", "4000.00", "active", due, now, now))

	loan, err := repo.GetByID(context.Background(), id, "user-1")
	require.NoError(t, err)
	assert.Equal(t, id, loan.ID)
	assert.True(t, loan.RemainingAmount().Equal(decimal.NewFromInt(6000)))
	assert.Equal(t, due, loan.PaymentDueDate)
	assert.Nil(t, loan.Notes)

	mock.ExpectQuery(`SELECT .+ FROM loans`).
		WithArgs(id, "intruder").
		WillReturnRows(sqlmock.NewRows(loanColumnNames))

	_, err = repo.GetByID(context.Background(), id, "intruder")
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanRepository(db)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM loans WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM loans`).
		WithArgs(id, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), id, "user-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), id, "user-1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Update_GuardRejects(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanRepository(db)
	loan := &domain.Loan{ID: uuid.New(), UserID: "user-1", LoanAmount: decimal.NewFromInt(10), PaymentDueDate: time.Now(), UpdatedAt: time.Now()}

	mock.ExpectQuery(`UPDATE loans\s+SET loan_amount = \$3`).
		WillReturnRows(sqlmock.NewRows(loanColumnNames))

	err := repo.Update(context.Background(), loan)

	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_ApplyPayment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanRepository(db)
	id := uuid.New()
	at := time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)
	due := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT paid_amount, status\s+FROM loans\s+WHERE id = \$1 AND user_id = \$2\s+FOR UPDATE`).
		WithArgs(id, "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"paid_amount", "status"}).AddRow("4000.00", "active"))
	mock.ExpectQuery(`UPDATE loans\s+SET paid_amount = LEAST\(paid_amount \+ \$3, loan_amount\)`).
		WithArgs(id, "user-1", sqlmock.AnyArg(), at).
		WillReturnRows(loanRow(id, "user-1", "10000.00", "10000.00", "completed", due, at.Add(-24*time.Hour), at))
	mock.ExpectExec(`INSERT INTO loan_payments`).
		WithArgs(sqlmock.AnyArg(), id, "user-1", sqlmock.AnyArg(), at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	loan, applied, err := repo.ApplyPayment(context.Background(), id, "user-1", decimal.NewFromInt(7000), at)

	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCompleted, loan.Status)
	assert.True(t, applied.Equal(decimal.NewFromInt(6000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_ApplyPayment_Completed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT paid_amount, status`).
		WithArgs(id, "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"paid_amount", "status"}).AddRow("500.00", "completed"))
	mock.ExpectRollback()

	_, _, err := repo.ApplyPayment(context.Background(), id, "user-1", decimal.NewFromInt(1), time.Now())

	assert.ErrorIs(t, err, customError.ErrLoanAlreadyCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_ApplyPayment_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT paid_amount, status`).
		WithArgs(id, "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"paid_amount", "status"}))
	mock.ExpectRollback()

	_, _, err := repo.ApplyPayment(context.Background(), id, "user-1", decimal.NewFromInt(1), time.Now())

	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_ApplyPayment_InsertFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanRepository(db)
	id := uuid.New()
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT paid_amount, status`).
		WillReturnRows(sqlmock.NewRows([]string{"paid_amount", "status"}).AddRow("0", "active"))
	mock.ExpectQuery(`UPDATE loans`).
		WillReturnRows(loanRow(id, "user-1", "100", "10", "active", at, at, at))
	mock.ExpectExec(`INSERT INTO loan_payments`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, _, err := repo.ApplyPayment(context.Background(), id, "user-1", decimal.NewFromInt(10), at)

	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_MarkOverdue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanRepository(db)
	today := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	at := today.Add(5 * time.Minute)

	mock.ExpectExec(`UPDATE loans\s+SET status = 'overdue', updated_at = \$2\s+WHERE status = 'active' AND payment_due_date < \$1::date`).
		WithArgs("2024-06-10", at).
		WillReturnResult(sqlmock.NewResult(0, 3))

	updated, err := repo.MarkOverdue(context.Background(), today, at)

	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_FindReminderCandidates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanRepository(db)
	id := uuid.New()
	due := time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`payment_due_date = ANY\(\$1::date\[\]\)\s+AND \(\$2::text = '' OR user_id = \$2\)`).
		WithArgs("{\"2024-06-11\",\"2024-06-06\"}", "").
		WillReturnRows(loanRow(id, "user-9", "50", "0", "active", due, due, due))

	loans, err := repo.FindReminderCandidates(context.Background(), "", []time.Time{due, due.AddDate(0, 0, -5)})

	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "user-9", loans[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Summary(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLoanRepository(db)

	mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE status = 'active'\)`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"total_loans", "active_loans", "completed_loans", "overdue_loans", "total_loan_amount", "total_paid_amount",
		}).AddRow(3, 1, 1, 1, "3500.50", "1200.25"))

	summary, err := repo.Summary(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalLoans)
	assert.Equal(t, 1, summary.OverdueLoans)
	assert.Equal(t, "2300.25", summary.TotalRemainingAmount.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
