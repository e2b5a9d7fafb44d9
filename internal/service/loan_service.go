package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/segyhp/loan-tracker/internal/clock"
	"github.com/segyhp/loan-tracker/internal/domain"
	"github.com/segyhp/loan-tracker/internal/repository"
	customError "github.com/segyhp/loan-tracker/pkg/errors"
	"github.com/segyhp/loan-tracker/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MaxNotesLength bounds the free-text notes on a loan.
const MaxNotesLength = 2000

// LoanService is the entry point for every loan operation the request layer and the
// scheduler invoke. It owns the store-level validation and composes the sweeper,
// reminder selector and aggregator.
type LoanService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	sweeper     *StatusSweeper
	reminders   *ReminderSelector
	aggregator  *Aggregator
	clock       clock.Clock
	logger      zerolog.Logger
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	reminders *ReminderSelector,
	clk clock.Clock,
	logger zerolog.Logger,
) *LoanService {
	return &LoanService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		sweeper:     NewStatusSweeper(loanRepo, clk, logger),
		reminders:   reminders,
		aggregator:  NewAggregator(loanRepo, clk),
		clock:       clk,
		logger:      logger.With().Str("component", "loan_service").Logger(),
	}
}

// Location is the timezone calendar dates are evaluated in.
func (s *LoanService) Location() *time.Location {
	return s.clock.Location()
}

// CreateLoan validates and stores a new active loan
func (s *LoanService) CreateLoan(ctx context.Context, userID string, input domain.LoanInput) (*domain.Loan, error) {
	input, err := s.validateInput(userID, input)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	loan := &domain.Loan{
		ID:             uuid.New(),
		UserID:         userID,
		LoanAmount:     input.LoanAmount,
		PaidAmount:     decimal.Zero,
		PaymentDueDate: input.PaymentDueDate,
		Status:         domain.LoanStatusActive,
		Notes:          input.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.LoanRepo.Create(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.Info().
		Str("loan_id", loan.ID.String()).
		Str("user_id", userID).
		Str("amount", loan.LoanAmount.String()).
		Msg("Loan created")

	return loan, nil
}

// GetLoan returns one of the user's loans
func (s *LoanService) GetLoan(ctx context.Context, userID string, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByID(ctx, loanID, userID)
	if err != nil {
		return nil, s.mapLoanError(loanID, err)
	}
	return loan, nil
}

// UpdateLoan edits amount, due date and notes. Paid amount and status are left as they are.
func (s *LoanService) UpdateLoan(ctx context.Context, userID string, loanID uuid.UUID, input domain.LoanInput) (*domain.Loan, error) {
	input, err := s.validateInput(userID, input)
	if err != nil {
		return nil, err
	}

	existing, err := s.LoanRepo.GetByID(ctx, loanID, userID)
	if err != nil {
		return nil, s.mapLoanError(loanID, err)
	}

	if err := validateAmountAgainstPaid(existing, input.LoanAmount); err != nil {
		return nil, err
	}

	loan := *existing
	loan.LoanAmount = input.LoanAmount
	loan.PaymentDueDate = input.PaymentDueDate
	loan.Notes = input.Notes
	loan.UpdatedAt = s.clock.Now()

	if err := s.LoanRepo.Update(ctx, &loan); err != nil {
		if !repository.IsNotFound(err) {
			return nil, customError.WrapDatabaseError(err)
		}
		// A payment or delete landed between the read and the guarded update.
		current, getErr := s.LoanRepo.GetByID(ctx, loanID, userID)
		if getErr != nil {
			return nil, s.mapLoanError(loanID, getErr)
		}
		if err := validateAmountAgainstPaid(current, input.LoanAmount); err != nil {
			return nil, err
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return &loan, nil
}

// DeleteLoan removes one of the user's loans
func (s *LoanService) DeleteLoan(ctx context.Context, userID string, loanID uuid.UUID) error {
	if err := s.LoanRepo.Delete(ctx, loanID, userID); err != nil {
		return s.mapLoanError(loanID, err)
	}

	s.logger.Info().Str("loan_id", loanID.String()).Str("user_id", userID).Msg("Loan deleted")
	return nil
}

// ListLoans brings statuses up to date, fires any reminders due for the user, then returns
// the user's loans with their summary.
func (s *LoanService) ListLoans(ctx context.Context, userID string) (*domain.ListLoansResponse, error) {
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Overdue sweep failed during list")
	}

	s.reminders.SendForUser(ctx, userID)

	summary, err := s.aggregator.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}

	loans, err := s.LoanRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.ListLoansResponse{Loans: loans, Summary: summary}, nil
}

// GetStatistics returns the summary and the trailing monthly series
func (s *LoanService) GetStatistics(ctx context.Context, userID string) (*domain.StatisticsResponse, error) {
	return s.aggregator.Statistics(ctx, userID)
}

// SweepOverdue runs the global overdue sweep
func (s *LoanService) SweepOverdue(ctx context.Context) (int64, error) {
	return s.sweeper.Sweep(ctx)
}

// RunGlobalReminderSweep sends every reminder due now across all users
func (s *LoanService) RunGlobalReminderSweep(ctx context.Context) (int, error) {
	return s.reminders.SendAll(ctx)
}

func (s *LoanService) validateInput(userID string, input domain.LoanInput) (domain.LoanInput, error) {
	if strings.TrimSpace(userID) == "" {
		return input, customError.WrapValidation("user id is required")
	}

	input.LoanAmount = input.LoanAmount.Round(2)
	if !input.LoanAmount.IsPositive() {
		return input, customError.WrapValidation("loan amount must be greater than zero")
	}
	if input.LoanAmount.GreaterThan(domain.MaxLoanAmount) {
		return input, customError.WrapValidation("loan amount must not exceed " + domain.MaxLoanAmount.StringFixed(2))
	}

	loc := s.clock.Location()
	input.PaymentDueDate = utils.DateOnly(input.PaymentDueDate, loc)
	if !utils.IsStrictlyFuture(input.PaymentDueDate, clock.Today(s.clock)) {
		return input, customError.WrapValidation("payment due date must be after today")
	}

	if input.Notes != nil && utf8.RuneCountInString(*input.Notes) > MaxNotesLength {
		return input, customError.WrapValidation("notes must be 2000 characters or less")
	}

	return input, nil
}

// validateAmountAgainstPaid keeps 0 <= paid <= loan across edits: an open loan must stay
// above what was paid, a completed loan's amount is fixed at what was paid.
func validateAmountAgainstPaid(existing *domain.Loan, amount decimal.Decimal) error {
	if existing.IsCompleted() {
		if !amount.Equal(existing.PaidAmount) {
			return customError.WrapValidation("the amount of a completed loan cannot be changed")
		}
		return nil
	}
	if amount.LessThanOrEqual(existing.PaidAmount) {
		return customError.WrapValidation("loan amount must be greater than the amount already paid")
	}
	return nil
}

func (s *LoanService) mapLoanError(loanID uuid.UUID, err error) error {
	switch {
	case repository.IsNotFound(err):
		return customError.WrapLoanNotFound(loanID.String())
	case errors.Is(err, customError.ErrLoanAlreadyCompleted):
		return customError.WrapLoanAlreadyCompleted(loanID.String())
	default:
		return customError.WrapDatabaseError(err)
	}
}
