package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-tracker/internal/domain"
)

func reminderKey() domain.ReminderKey {
	return domain.ReminderKey{
		UserID:    "user-1",
		LoanID:    uuid.New(),
		Threshold: 5,
		DueDate:   time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC),
	}
}

func TestReminderRepository_Claim(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewReminderRepository(db)
	key := reminderKey()
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO loan_reminders .+ ON CONFLICT \(loan_id, threshold, due_date\)`).
		WithArgs("user-1", key.LoanID, 5, "2024-06-06", at, at.Add(-24*time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"sent_at"}).AddRow(at))

	claimed, err := ledger.Claim(context.Background(), key, at, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Conflict inside the window: the WHERE clause suppresses the update so nothing is returned.
	mock.ExpectQuery(`INSERT INTO loan_reminders`).
		WillReturnRows(sqlmock.NewRows([]string{"sent_at"}))

	claimed, err = ledger.Claim(context.Background(), key, at.Add(time.Hour), 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)

	mock.ExpectQuery(`INSERT INTO loan_reminders`).
		WillReturnError(errors.New("connection reset"))

	_, err = ledger.Claim(context.Background(), key, at, 24*time.Hour)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderRepository_Release(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewReminderRepository(db)
	key := reminderKey()

	mock.ExpectExec(`DELETE FROM loan_reminders`).
		WithArgs(key.LoanID, 5, "2024-06-06").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, ledger.Release(context.Background(), key))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	n := &domain.Notification{ID: uuid.New(), UserID: "user-1", Kind: domain.NotificationKindLoanReminder, Message: "hi", CreatedAt: time.Now()}

	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(n.ID, "user-1", domain.NotificationKindLoanReminder, "hi", false, n.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), n))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByLoanID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	loanID := uuid.New()
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM loan_payments\s+WHERE loan_id = \$1 AND user_id = \$2\s+ORDER BY applied_at DESC`).
		WithArgs(loanID, "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "loan_id", "user_id", "amount", "applied_at"}).
			AddRow(uuid.New().String(), loanID.String(), "user-1", "250.00", at))

	payments, err := repo.GetByLoanID(context.Background(), loanID, "user-1")

	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "250.00", payments[0].Amount.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_UsesEmbeddedFS(t *testing.T) {
	db, _ := newMockDB(t)

	original := gooseUpContext
	t.Cleanup(func() { gooseUpContext = original })

	var gotDir string
	gooseUpContext = func(ctx context.Context, sqlDB *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, RunMigrations(context.Background(), db))
	assert.Equal(t, ".", gotDir)

	gooseUpContext = func(ctx context.Context, sqlDB *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("migration 00002 failed")
	}
	assert.ErrorContains(t, RunMigrations(context.Background(), db), "00002")
}
