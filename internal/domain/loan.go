package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
	LoanStatusOverdue   = "overdue"
)

// DateLayout is the wire and storage format of payment due dates.
const DateLayout = "2006-01-02"

// MaxLoanAmount is the largest amount the NUMERIC(14, 2) loan columns hold.
var MaxLoanAmount = decimal.RequireFromString("999999999999.99")

// Loan represents a loan entity
type Loan struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	UserID         string          `json:"user_id" db:"user_id"`
	LoanAmount     decimal.Decimal `json:"loan_amount" db:"loan_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	PaymentDueDate time.Time       `json:"payment_due_date" db:"payment_due_date"`
	Status         string          `json:"status" db:"status"`
	Notes          *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// RemainingAmount is derived, never stored.
func (l *Loan) RemainingAmount() decimal.Decimal {
	return l.LoanAmount.Sub(l.PaidAmount)
}

func (l *Loan) IsCompleted() bool {
	return l.Status == LoanStatusCompleted
}

// MarshalJSON adds remaining_amount and renders the due date as a calendar date.
func (l Loan) MarshalJSON() ([]byte, error) {
	type alias Loan
	return json.Marshal(struct {
		alias
		PaymentDueDate  string          `json:"payment_due_date"`
		RemainingAmount decimal.Decimal `json:"remaining_amount"`
	}{
		alias:           alias(l),
		PaymentDueDate:  l.PaymentDueDate.Format(DateLayout),
		RemainingAmount: l.RemainingAmount(),
	})
}

// LoanInput carries the editable fields of a loan into the service layer.
type LoanInput struct {
	LoanAmount     decimal.Decimal
	PaymentDueDate time.Time
	Notes          *string
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	LoanAmount     decimal.Decimal `json:"loan_amount" validate:"required,gt=0,lte=999999999999.99"`
	PaymentDueDate string          `json:"payment_due_date" validate:"required,datetime=2006-01-02"`
	Notes          *string         `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateLoanRequest has the same shape and rules as CreateLoanRequest.
type UpdateLoanRequest CreateLoanRequest

// ToInput parses the due date as a calendar date in loc.
func (r *CreateLoanRequest) ToInput(loc *time.Location) (LoanInput, error) {
	if loc == nil {
		loc = time.UTC
	}
	due, err := time.ParseInLocation(DateLayout, strings.TrimSpace(r.PaymentDueDate), loc)
	if err != nil {
		return LoanInput{}, err
	}
	var notes *string
	if r.Notes != nil {
		trimmed := strings.TrimSpace(*r.Notes)
		if trimmed != "" {
			notes = &trimmed
		}
	}
	return LoanInput{
		LoanAmount:     r.LoanAmount,
		PaymentDueDate: due,
		Notes:          notes,
	}, nil
}

func (r *UpdateLoanRequest) ToInput(loc *time.Location) (LoanInput, error) {
	return (*CreateLoanRequest)(r).ToInput(loc)
}

type ListLoansResponse struct {
	Loans   []*Loan      `json:"loans"`
	Summary *LoanSummary `json:"summary"`
}
