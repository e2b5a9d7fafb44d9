package service

import (
	"context"
	"time"

	"github.com/segyhp/loan-tracker/internal/clock"
	"github.com/segyhp/loan-tracker/internal/domain"
	"github.com/segyhp/loan-tracker/internal/repository"
	customError "github.com/segyhp/loan-tracker/pkg/errors"
	"github.com/segyhp/loan-tracker/pkg/utils"

	"github.com/shopspring/decimal"
)

const (
	// StatisticsMonths is the length of the monthly series, current month included.
	StatisticsMonths = 4

	// MonthLabelLayout renders a bucket as e.g. "Jan 2024".
	MonthLabelLayout = "Jan 2006"

	// A loan counts as repaid in the month it was last touched when that touch came
	// more than this long after creation.
	repaymentTouchThreshold = time.Minute
)

// Aggregator computes per-user totals and the trailing monthly series.
type Aggregator struct {
	loanRepo repository.LoanRepository
	clock    clock.Clock
}

func NewAggregator(loanRepo repository.LoanRepository, clk clock.Clock) *Aggregator {
	return &Aggregator{loanRepo: loanRepo, clock: clk}
}

func (a *Aggregator) Summary(ctx context.Context, userID string) (*domain.LoanSummary, error) {
	summary, err := a.loanRepo.Summary(ctx, userID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return summary, nil
}

func (a *Aggregator) MonthlySeries(ctx context.Context, userID string) ([]*domain.MonthlyStatistic, error) {
	loans, err := a.loanRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return BuildMonthlySeries(loans, a.clock.Now(), StatisticsMonths), nil
}

func (a *Aggregator) Statistics(ctx context.Context, userID string) (*domain.StatisticsResponse, error) {
	summary, err := a.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}

	monthly, err := a.MonthlySeries(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.StatisticsResponse{Summary: summary, Monthly: monthly}, nil
}

// BuildMonthlySeries buckets loans into the months trailing now, oldest first.
// loanTaken sums loan amounts by creation month. moneyRepaid sums paid amounts by the month
// the loan was last updated, counting only loans that are completed or were touched after
// creation. Edits therefore move repayment into the edit month.
func BuildMonthlySeries(loans []*domain.Loan, now time.Time, months int) []*domain.MonthlyStatistic {
	buckets := utils.TrailingMonths(now, months)
	series := make([]*domain.MonthlyStatistic, len(buckets))
	for i, month := range buckets {
		series[i] = &domain.MonthlyStatistic{
			MonthLabel:  month.Format(MonthLabelLayout),
			LoanTaken:   decimal.Zero,
			MoneyRepaid: decimal.Zero,
		}
	}

	for _, loan := range loans {
		for i, month := range buckets {
			if utils.SameMonth(loan.CreatedAt, month) {
				series[i].LoanTaken = series[i].LoanTaken.Add(loan.LoanAmount)
			}
			if countsAsRepaid(loan) && utils.SameMonth(loan.UpdatedAt, month) {
				series[i].MoneyRepaid = series[i].MoneyRepaid.Add(loan.PaidAmount)
			}
		}
	}

	return series
}

func countsAsRepaid(loan *domain.Loan) bool {
	return loan.IsCompleted() || loan.UpdatedAt.Sub(loan.CreatedAt) > repaymentTouchThreshold
}
