package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/segyhp/loan-tracker/internal/domain"

	"github.com/jmoiron/sqlx"
)

// reminderRepository is the Postgres-backed reminder ledger.
type reminderRepository struct {
	db *sqlx.DB
}

func NewReminderRepository(db *sqlx.DB) domain.ReminderLedger {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) Claim(ctx context.Context, key domain.ReminderKey, at time.Time, window time.Duration) (bool, error) {
	// An existing row is only taken over once it has aged out of the window.
	query := `
		INSERT INTO loan_reminders (user_id, loan_id, threshold, due_date, sent_at)
		VALUES ($1, $2, $3, $4::date, $5)
		ON CONFLICT (loan_id, threshold, due_date)
		DO UPDATE SET sent_at = EXCLUDED.sent_at, user_id = EXCLUDED.user_id
		WHERE loan_reminders.sent_at <= $6
		RETURNING sent_at
	`

	var sentAt time.Time
	err := r.db.GetContext(ctx, &sentAt, query,
		key.UserID,
		key.LoanID,
		key.Threshold,
		key.DueDate.Format(domain.DateLayout),
		at,
		at.Add(-window),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *reminderRepository) Release(ctx context.Context, key domain.ReminderKey) error {
	query := `
		DELETE FROM loan_reminders
		WHERE loan_id = $1 AND threshold = $2 AND due_date = $3::date
	`

	_, err := r.db.ExecContext(ctx, query, key.LoanID, key.Threshold, key.DueDate.Format(domain.DateLayout))
	return err
}
