package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentMessageProcessed = "payment processed successfully"
	PaymentMessageCompleted = "payment processed successfully, loan completed"
)

// Payment is one append-only repayment event. Amount is what was actually applied
// after clamping to the remaining balance.
type Payment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	LoanID    uuid.UUID       `json:"loan_id" db:"loan_id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	AppliedAt time.Time       `json:"applied_at" db:"applied_at"`
}

type MakePaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// PaymentResult is returned by the payment applier.
type PaymentResult struct {
	Loan          *Loan           `json:"loan"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
	Completed     bool            `json:"completed"`
	Message       string          `json:"message"`
}

func NewPaymentResult(loan *Loan, applied decimal.Decimal) *PaymentResult {
	result := &PaymentResult{
		Loan:          loan,
		AppliedAmount: applied,
		Completed:     loan.IsCompleted(),
		Message:       PaymentMessageProcessed,
	}
	if result.Completed {
		result.Message = PaymentMessageCompleted
	}
	return result
}
