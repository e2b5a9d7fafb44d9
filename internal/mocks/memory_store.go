package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-tracker/internal/domain"
	customError "github.com/segyhp/loan-tracker/pkg/errors"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory LoanRepository and PaymentRepository with the same
// observable semantics as the Postgres implementation. Loans are copied on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.Mutex
	loans    map[uuid.UUID]*domain.Loan
	payments []*domain.Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{loans: make(map[uuid.UUID]*domain.Loan)}
}

func (s *MemoryStore) Create(ctx context.Context, loan *domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *loan
	s.loans[loan.ID] = &stored
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, loanID uuid.UUID, userID string) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.owned(loanID, userID)
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *loan
	return &out, nil
}

func (s *MemoryStore) Update(ctx context.Context, loan *domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.owned(loan.ID, loan.UserID)
	if !ok {
		return sql.ErrNoRows
	}
	completed := stored.Status == domain.LoanStatusCompleted
	if (completed && !stored.PaidAmount.Equal(loan.LoanAmount)) || (!completed && !stored.PaidAmount.LessThan(loan.LoanAmount)) {
		return sql.ErrNoRows
	}

	stored.LoanAmount = loan.LoanAmount
	stored.PaymentDueDate = loan.PaymentDueDate
	stored.Notes = loan.Notes
	stored.UpdatedAt = loan.UpdatedAt
	*loan = *stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, loanID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owned(loanID, userID); !ok {
		return sql.ErrNoRows
	}
	delete(s.loans, loanID)
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loans := []*domain.Loan{}
	for _, loan := range s.loans {
		if loan.UserID == userID {
			out := *loan
			loans = append(loans, &out)
		}
	}
	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].CreatedAt.Equal(loans[j].CreatedAt) {
			return loans[i].CreatedAt.After(loans[j].CreatedAt)
		}
		return loans[i].ID.String() < loans[j].ID.String()
	})
	return loans, nil
}

func (s *MemoryStore) ApplyPayment(ctx context.Context, loanID uuid.UUID, userID string, amount decimal.Decimal, at time.Time) (*domain.Loan, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.owned(loanID, userID)
	if !ok {
		return nil, decimal.Zero, sql.ErrNoRows
	}
	if loan.Status == domain.LoanStatusCompleted {
		return nil, decimal.Zero, customError.ErrLoanAlreadyCompleted
	}

	before := loan.PaidAmount
	total := loan.PaidAmount.Add(amount)
	if total.GreaterThanOrEqual(loan.LoanAmount) {
		loan.PaidAmount = loan.LoanAmount
		loan.Status = domain.LoanStatusCompleted
	} else {
		loan.PaidAmount = total
	}
	loan.UpdatedAt = at

	applied := loan.PaidAmount.Sub(before)
	s.payments = append(s.payments, &domain.Payment{
		ID:        uuid.New(),
		LoanID:    loanID,
		UserID:    userID,
		Amount:    applied,
		AppliedAt: at,
	})

	out := *loan
	return &out, applied, nil
}

func (s *MemoryStore) MarkOverdue(ctx context.Context, today time.Time, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := dateKey(today)
	var updated int64
	for _, loan := range s.loans {
		if loan.Status == domain.LoanStatusActive && dateKey(loan.PaymentDueDate) < cutoff {
			loan.Status = domain.LoanStatusOverdue
			loan.UpdatedAt = at
			updated++
		}
	}
	return updated, nil
}

func (s *MemoryStore) FindReminderCandidates(ctx context.Context, userID string, dueDates []time.Time) ([]*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(dueDates))
	for _, d := range dueDates {
		wanted[dateKey(d)] = true
	}

	loans := []*domain.Loan{}
	for _, loan := range s.loans {
		if loan.Status != domain.LoanStatusActive || !loan.PaidAmount.LessThan(loan.LoanAmount) {
			continue
		}
		if userID != "" && loan.UserID != userID {
			continue
		}
		if wanted[dateKey(loan.PaymentDueDate)] {
			out := *loan
			loans = append(loans, &out)
		}
	}
	sort.Slice(loans, func(i, j int) bool {
		if loans[i].UserID != loans[j].UserID {
			return loans[i].UserID < loans[j].UserID
		}
		return loans[i].ID.String() < loans[j].ID.String()
	})
	return loans, nil
}

func (s *MemoryStore) Summary(ctx context.Context, userID string) (*domain.LoanSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &domain.LoanSummary{
		TotalLoanAmount: decimal.Zero,
		TotalPaidAmount: decimal.Zero,
	}
	for _, loan := range s.loans {
		if loan.UserID != userID {
			continue
		}
		summary.TotalLoans++
		switch loan.Status {
		case domain.LoanStatusActive:
			summary.ActiveLoans++
		case domain.LoanStatusCompleted:
			summary.CompletedLoans++
		case domain.LoanStatusOverdue:
			summary.OverdueLoans++
		}
		summary.TotalLoanAmount = summary.TotalLoanAmount.Add(loan.LoanAmount)
		summary.TotalPaidAmount = summary.TotalPaidAmount.Add(loan.PaidAmount)
	}
	summary.TotalRemainingAmount = summary.TotalLoanAmount.Sub(summary.TotalPaidAmount)
	return summary, nil
}

// GetByLoanID returns the recorded payments for a loan, newest first.
func (s *MemoryStore) GetByLoanID(ctx context.Context, loanID uuid.UUID, userID string) ([]*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments := []*domain.Payment{}
	for i := len(s.payments) - 1; i >= 0; i-- {
		p := s.payments[i]
		if p.LoanID == loanID && p.UserID == userID {
			out := *p
			payments = append(payments, &out)
		}
	}
	return payments, nil
}

// Put overwrites a stored loan, bypassing validation. Tests use it to seed timestamps and
// states that the service would not produce on its own.
func (s *MemoryStore) Put(loan *domain.Loan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *loan
	s.loans[loan.ID] = &stored
}

func (s *MemoryStore) owned(loanID uuid.UUID, userID string) (*domain.Loan, bool) {
	loan, ok := s.loans[loanID]
	if !ok || loan.UserID != userID {
		return nil, false
	}
	return loan, true
}

func dateKey(t time.Time) string {
	return t.Format(domain.DateLayout)
}

// MemoryLedger is an in-memory ReminderLedger honouring the claim window.
type MemoryLedger struct {
	mu     sync.Mutex
	claims map[string]time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{claims: make(map[string]time.Time)}
}

func (l *MemoryLedger) Claim(ctx context.Context, key domain.ReminderKey, at time.Time, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sentAt, ok := l.claims[key.String()]; ok && at.Sub(sentAt) < window {
		return false, nil
	}
	l.claims[key.String()] = at
	return true, nil
}

func (l *MemoryLedger) Release(ctx context.Context, key domain.ReminderKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.claims, key.String())
	return nil
}

// Len reports how many claims are currently held.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.claims)
}

// SentNotification is one call captured by RecordingNotifier.
type SentNotification struct {
	UserID  string
	Kind    string
	Message string
}

// RecordingNotifier captures every Notify call. When Err is set every call fails with it
// and nothing is recorded.
type RecordingNotifier struct {
	mu   sync.Mutex
	Sent []SentNotification
	Err  error
}

func (n *RecordingNotifier) Notify(ctx context.Context, userID, kind, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.Err != nil {
		return n.Err
	}
	n.Sent = append(n.Sent, SentNotification{UserID: userID, Kind: kind, Message: message})
	return nil
}

func (n *RecordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Sent)
}

func (n *RecordingNotifier) SetErr(err error) {
	n.mu.Lock()
	n.Err = err
	n.mu.Unlock()
}
