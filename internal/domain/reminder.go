package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationKindLoanReminder is the kind passed to the notifier for due-date reminders.
const NotificationKindLoanReminder = "loan_reminder"

// ReminderThresholds are the exact day counts before the due date that trigger a reminder.
var ReminderThresholds = []int{10, 5, 3, 1}

// ReminderCandidate pairs an eligible loan with the threshold it hit today.
type ReminderCandidate struct {
	Loan      *Loan
	Threshold int
}

// ReminderKey identifies one reminder in the dedup ledger. The due date is part of the key
// so an edited due date starts a fresh set of reminders.
type ReminderKey struct {
	UserID    string
	LoanID    uuid.UUID
	Threshold int
	DueDate   time.Time
}

func (k ReminderKey) String() string {
	return fmt.Sprintf("loan_reminder:%s:%s:%d:%s", k.UserID, k.LoanID, k.Threshold, k.DueDate.Format(DateLayout))
}

// ReminderLedger records which reminders were sent so scans do not repeat them.
type ReminderLedger interface {
	// Claim atomically records the reminder unless one was recorded within window.
	// It reports false when the reminder was already sent.
	Claim(ctx context.Context, key ReminderKey, at time.Time, window time.Duration) (bool, error)

	// Release forgets a claim, used when delivery failed after claiming.
	Release(ctx context.Context, key ReminderKey) error
}

// Notifier is the notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, userID, kind, message string) error
}

// Notification is a row of the notification collaborator's table.
type Notification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Kind      string    `json:"kind" db:"kind"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ReminderRunResponse struct {
	Sent int `json:"sent"`
}

type SweepResponse struct {
	Updated int64 `json:"updated"`
}
