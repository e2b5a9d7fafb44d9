package domain

import "github.com/shopspring/decimal"

// LoanSummary aggregates a user's loans. TotalRemainingAmount is SUM(loan) - SUM(paid),
// computed from the sums rather than per row.
type LoanSummary struct {
	TotalLoans           int             `json:"total_loans" db:"total_loans"`
	ActiveLoans          int             `json:"active_loans" db:"active_loans"`
	CompletedLoans       int             `json:"completed_loans" db:"completed_loans"`
	OverdueLoans         int             `json:"overdue_loans" db:"overdue_loans"`
	TotalLoanAmount      decimal.Decimal `json:"total_loan_amount" db:"total_loan_amount"`
	TotalPaidAmount      decimal.Decimal `json:"total_paid_amount" db:"total_paid_amount"`
	TotalRemainingAmount decimal.Decimal `json:"total_remaining_amount" db:"-"`
}

// MonthlyStatistic is one point of the borrowed-vs-repaid chart.
type MonthlyStatistic struct {
	MonthLabel  string          `json:"month_label"`
	LoanTaken   decimal.Decimal `json:"loan_taken"`
	MoneyRepaid decimal.Decimal `json:"money_repaid"`
}

type StatisticsResponse struct {
	Summary *LoanSummary        `json:"summary"`
	Monthly []*MonthlyStatistic `json:"monthly"`
}
