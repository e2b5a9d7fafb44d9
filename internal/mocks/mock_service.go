package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-tracker/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockLoanService struct {
	mock.Mock
	Loc *time.Location
}

// NewMockLoanService creates a new mock loan service evaluating dates in UTC
func NewMockLoanService() *MockLoanService {
	return &MockLoanService{Loc: time.UTC}
}

func (m *MockLoanService) Location() *time.Location {
	return m.Loc
}

func (m *MockLoanService) CreateLoan(ctx context.Context, userID string, input domain.LoanInput) (*domain.Loan, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, userID string, loanID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, userID, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) UpdateLoan(ctx context.Context, userID string, loanID uuid.UUID, input domain.LoanInput) (*domain.Loan, error) {
	args := m.Called(ctx, userID, loanID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) DeleteLoan(ctx context.Context, userID string, loanID uuid.UUID) error {
	args := m.Called(ctx, userID, loanID)
	return args.Error(0)
}

func (m *MockLoanService) ListLoans(ctx context.Context, userID string) (*domain.ListLoansResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ListLoansResponse), args.Error(1)
}

func (m *MockLoanService) MakePayment(ctx context.Context, userID string, loanID uuid.UUID, amount decimal.Decimal) (*domain.PaymentResult, error) {
	args := m.Called(ctx, userID, loanID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentResult), args.Error(1)
}

func (m *MockLoanService) ListPayments(ctx context.Context, userID string, loanID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, userID, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockLoanService) GetStatistics(ctx context.Context, userID string) (*domain.StatisticsResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatisticsResponse), args.Error(1)
}

func (m *MockLoanService) SweepOverdue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoanService) RunGlobalReminderSweep(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
