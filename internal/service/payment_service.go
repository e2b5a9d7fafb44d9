package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/segyhp/loan-tracker/internal/domain"
	customError "github.com/segyhp/loan-tracker/pkg/errors"

	"github.com/shopspring/decimal"
)

// MakePayment applies a repayment to one of the user's loans. Overpayment is clamped to the
// remaining balance; the loan completes when it is fully paid.
func (s *LoanService) MakePayment(ctx context.Context, userID string, loanID uuid.UUID, amount decimal.Decimal) (*domain.PaymentResult, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, customError.WrapValidation("payment amount must be greater than zero")
	}

	loan, applied, err := s.LoanRepo.ApplyPayment(ctx, loanID, userID, amount, s.clock.Now())
	if err != nil {
		if errors.Is(err, customError.ErrLoanAlreadyCompleted) {
			s.logger.Warn().Str("loan_id", loanID.String()).Msg("Payment rejected, loan already completed")
		}
		return nil, s.mapLoanError(loanID, err)
	}

	result := domain.NewPaymentResult(loan, applied)

	s.logger.Info().
		Str("loan_id", loanID.String()).
		Str("user_id", userID).
		Str("requested", amount.String()).
		Str("applied", applied.String()).
		Str("status", loan.Status).
		Msg("Payment processed")

	return result, nil
}

// ListPayments returns the payment events recorded against one of the user's loans
func (s *LoanService) ListPayments(ctx context.Context, userID string, loanID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.LoanRepo.GetByID(ctx, loanID, userID); err != nil {
		return nil, s.mapLoanError(loanID, err)
	}

	payments, err := s.PaymentRepo.GetByLoanID(ctx, loanID, userID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return payments, nil
}
