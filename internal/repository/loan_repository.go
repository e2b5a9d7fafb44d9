package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-tracker/internal/domain"
	customError "github.com/segyhp/loan-tracker/pkg/errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const loanColumns = `id, user_id, loan_amount, paid_amount, payment_due_date, status, notes, created_at, updated_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, user_id, loan_amount, paid_amount, payment_due_date, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.UserID,
		loan.LoanAmount,
		loan.PaidAmount,
		loan.PaymentDueDate.Format(domain.DateLayout),
		loan.Status,
		loan.Notes,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByID(ctx context.Context, loanID uuid.UUID, userID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + `
		FROM loans
		WHERE id = $1 AND user_id = $2
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, loanID, userID); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	// A completed loan keeps paid_amount == loan_amount, so its amount cannot move.
	query := `
		UPDATE loans
		SET loan_amount = $3, payment_due_date = $4::date, notes = $5, updated_at = $6
		WHERE id = $1 AND user_id = $2
		  AND ((status <> 'completed' AND paid_amount < $3) OR (status = 'completed' AND paid_amount = $3))
		RETURNING ` + loanColumns

	return r.db.GetContext(ctx, loan, query,
		loan.ID,
		loan.UserID,
		loan.LoanAmount,
		loan.PaymentDueDate.Format(domain.DateLayout),
		loan.Notes,
		loan.UpdatedAt,
	)
}

func (r *loanRepository) Delete(ctx context.Context, loanID uuid.UUID, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE id = $1 AND user_id = $2`, loanID, userID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *loanRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + `
		FROM loans
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`

	loans := []*domain.Loan{}
	if err := r.db.SelectContext(ctx, &loans, query, userID); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ApplyPayment(ctx context.Context, loanID uuid.UUID, userID string, amount decimal.Decimal, at time.Time) (*domain.Loan, decimal.Decimal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, decimal.Zero, err
	}
	defer tx.Rollback()

	// The row lock serialises concurrent payments on the same loan; the clamp itself
	// is evaluated by the database against the locked row.
	var current struct {
		PaidAmount decimal.Decimal `db:"paid_amount"`
		Status     string          `db:"status"`
	}
	err = tx.GetContext(ctx, &current, `
		SELECT paid_amount, status
		FROM loans
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, loanID, userID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if current.Status == domain.LoanStatusCompleted {
		return nil, decimal.Zero, customError.ErrLoanAlreadyCompleted
	}

	var loan domain.Loan
	err = tx.GetContext(ctx, &loan, `
		UPDATE loans
		SET paid_amount = LEAST(paid_amount + $3, loan_amount),
		    status = CASE WHEN paid_amount + $3 >= loan_amount THEN 'completed' ELSE status END,
		    updated_at = $4
		WHERE id = $1 AND user_id = $2 AND status <> 'completed'
		RETURNING `+loanColumns, loanID, userID, amount, at)
	if err != nil {
		return nil, decimal.Zero, err
	}

	applied := loan.PaidAmount.Sub(current.PaidAmount)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO loan_payments (id, loan_id, user_id, amount, applied_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), loanID, userID, applied, at)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return nil, decimal.Zero, err
	}

	return &loan, applied, nil
}

func (r *loanRepository) MarkOverdue(ctx context.Context, today time.Time, at time.Time) (int64, error) {
	query := `
		UPDATE loans
		SET status = 'overdue', updated_at = $2
		WHERE status = 'active' AND payment_due_date < $1::date
	`

	result, err := r.db.ExecContext(ctx, query, today.Format(domain.DateLayout), at)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *loanRepository) FindReminderCandidates(ctx context.Context, userID string, dueDates []time.Time) ([]*domain.Loan, error) {
	dates := make([]string, 0, len(dueDates))
	for _, d := range dueDates {
		dates = append(dates, d.Format(domain.DateLayout))
	}

	query := `SELECT ` + loanColumns + `
		FROM loans
		WHERE status = 'active'
		  AND paid_amount < loan_amount
		  AND payment_due_date = ANY($1::date[])
		  AND ($2::text = '' OR user_id = $2)
		ORDER BY user_id, payment_due_date, id
	`

	loans := []*domain.Loan{}
	if err := r.db.SelectContext(ctx, &loans, query, pq.Array(dates), userID); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) Summary(ctx context.Context, userID string) (*domain.LoanSummary, error) {
	query := `
		SELECT
			COUNT(*) AS total_loans,
			COUNT(*) FILTER (WHERE status = 'active') AS active_loans,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed_loans,
			COUNT(*) FILTER (WHERE status = 'overdue') AS overdue_loans,
			COALESCE(SUM(loan_amount), 0) AS total_loan_amount,
			COALESCE(SUM(paid_amount), 0) AS total_paid_amount
		FROM loans
		WHERE user_id = $1
	`

	var summary domain.LoanSummary
	if err := r.db.GetContext(ctx, &summary, query, userID); err != nil {
		return nil, err
	}
	summary.TotalRemainingAmount = summary.TotalLoanAmount.Sub(summary.TotalPaidAmount)

	return &summary, nil
}

// IsNotFound reports whether err means the scoped row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
