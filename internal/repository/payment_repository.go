package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/segyhp/loan-tracker/internal/domain"

	"github.com/jmoiron/sqlx"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Payment rows are written by loanRepository.ApplyPayment inside the same transaction
// as the paid_amount update, so this repository only reads.
func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID, userID string) ([]*domain.Payment, error) {
	query := `
		SELECT id, loan_id, user_id, amount, applied_at
		FROM loan_payments
		WHERE loan_id = $1 AND user_id = $2
		ORDER BY applied_at DESC, id
	`

	payments := []*domain.Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, loanID, userID); err != nil {
		return nil, err
	}

	return payments, nil
}
