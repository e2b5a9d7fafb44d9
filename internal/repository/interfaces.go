package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// LoanRepository defines the interface for loan data operations.
// Every per-loan operation is scoped by owner; a loan owned by someone else behaves
// exactly like a missing one (sql.ErrNoRows).
type LoanRepository interface {
	// Create inserts a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by id for its owner
	GetByID(ctx context.Context, loanID uuid.UUID, userID string) (*domain.Loan, error)

	// Update rewrites amount, due date and notes, leaving paid amount and status alone.
	// The row is only touched while the new amount keeps paid_amount <= loan_amount.
	Update(ctx context.Context, loan *domain.Loan) error

	// Delete removes a loan
	Delete(ctx context.Context, loanID uuid.UUID, userID string) error

	// ListByUser returns the owner's loans newest first
	ListByUser(ctx context.Context, userID string) ([]*domain.Loan, error)

	// ApplyPayment atomically adds amount to paid_amount clamped to loan_amount, completes
	// the loan when fully paid and records the payment event. It returns the updated loan
	// and the amount actually applied.
	ApplyPayment(ctx context.Context, loanID uuid.UUID, userID string, amount decimal.Decimal, at time.Time) (*domain.Loan, decimal.Decimal, error)

	// MarkOverdue flips every active loan due before today to overdue
	MarkOverdue(ctx context.Context, today time.Time, at time.Time) (int64, error)

	// FindReminderCandidates returns active, unpaid loans due on one of dueDates.
	// An empty userID scans all users.
	FindReminderCandidates(ctx context.Context, userID string, dueDates []time.Time) ([]*domain.Loan, error)

	// Summary aggregates the owner's loans in a single query
	Summary(ctx context.Context, userID string) (*domain.LoanSummary, error)
}

// PaymentRepository defines the interface for payment event reads
type PaymentRepository interface {
	// GetByLoanID retrieves all payments for a loan, newest first
	GetByLoanID(ctx context.Context, loanID uuid.UUID, userID string) ([]*domain.Payment, error)
}

// NotificationRepository persists notifications for the notification collaborator
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
}
