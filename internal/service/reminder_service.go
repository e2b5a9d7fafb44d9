package service

import (
	"context"
	"fmt"
	"time"

	"github.com/segyhp/loan-tracker/internal/clock"
	"github.com/segyhp/loan-tracker/internal/domain"
	"github.com/segyhp/loan-tracker/internal/repository"
	customError "github.com/segyhp/loan-tracker/pkg/errors"
	"github.com/segyhp/loan-tracker/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultReminderWindow is how long a sent reminder suppresses a repeat of the same key.
const DefaultReminderWindow = 24 * time.Hour

type ReminderConfig struct {
	Thresholds []int
	Window     time.Duration
}

func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Thresholds: domain.ReminderThresholds,
		Window:     DefaultReminderWindow,
	}
}

// ReminderSelector finds active loans sitting exactly on a reminder threshold and notifies
// their owners once per (loan, threshold, due date).
type ReminderSelector struct {
	loanRepo repository.LoanRepository
	notifier domain.Notifier
	ledger   domain.ReminderLedger
	clock    clock.Clock
	config   ReminderConfig
	logger   zerolog.Logger
}

func NewReminderSelector(
	loanRepo repository.LoanRepository,
	notifier domain.Notifier,
	ledger domain.ReminderLedger,
	clk clock.Clock,
	logger zerolog.Logger,
	cfg ReminderConfig,
) *ReminderSelector {
	if len(cfg.Thresholds) == 0 {
		cfg.Thresholds = domain.ReminderThresholds
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultReminderWindow
	}
	return &ReminderSelector{
		loanRepo: loanRepo,
		notifier: notifier,
		ledger:   ledger,
		clock:    clk,
		config:   cfg,
		logger:   logger.With().Str("component", "reminder_selector").Logger(),
	}
}

// SelectCandidates keeps the loans that are active, still owe money and are exactly one of
// the thresholds away from their due date.
func SelectCandidates(loans []*domain.Loan, today time.Time, thresholds []int) []domain.ReminderCandidate {
	var candidates []domain.ReminderCandidate
	for _, loan := range loans {
		if loan.Status != domain.LoanStatusActive || !loan.RemainingAmount().IsPositive() {
			continue
		}
		days := utils.DaysUntil(today, loan.PaymentDueDate)
		for _, threshold := range thresholds {
			if days == threshold {
				candidates = append(candidates, domain.ReminderCandidate{Loan: loan, Threshold: threshold})
				break
			}
		}
	}
	return candidates
}

// ReminderMessage builds the notification text for a threshold
func ReminderMessage(threshold int, remaining decimal.Decimal) string {
	if threshold == 1 {
		return fmt.Sprintf("Urgent: your loan payment of %s is due tomorrow.", utils.FormatAmount(remaining))
	}
	return fmt.Sprintf("Reminder: %d days remaining until your loan payment of %s is due.", threshold, utils.FormatAmount(remaining))
}

// SendForUser sends the reminders due today for one user and returns how many were sent.
// Failures are logged and never surface to the caller.
func (r *ReminderSelector) SendForUser(ctx context.Context, userID string) int {
	if userID == "" {
		return 0
	}
	sent, err := r.send(ctx, userID)
	if err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("Reminder scan failed")
	}
	return sent
}

// SendAll sends the reminders due today across every user. Only a failed scan or a
// cancelled context is returned as an error.
func (r *ReminderSelector) SendAll(ctx context.Context) (int, error) {
	sent, err := r.send(ctx, "")
	if err != nil {
		return sent, err
	}
	r.logger.Info().Int("sent", sent).Msg("Global reminder sweep finished")
	return sent, nil
}

func (r *ReminderSelector) send(ctx context.Context, userID string) (int, error) {
	today := clock.Today(r.clock)

	loans, err := r.loanRepo.FindReminderCandidates(ctx, userID, r.dueDates(today))
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	sent := 0
	for _, candidate := range SelectCandidates(loans, today, r.config.Thresholds) {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if r.remind(ctx, candidate) {
			sent++
		}
	}
	return sent, nil
}

func (r *ReminderSelector) dueDates(today time.Time) []time.Time {
	dates := make([]time.Time, 0, len(r.config.Thresholds))
	for _, threshold := range r.config.Thresholds {
		dates = append(dates, today.AddDate(0, 0, threshold))
	}
	return dates
}

// remind claims the ledger entry first so concurrent scans cannot both notify. A failed
// delivery gives the claim back so a later scan can retry.
func (r *ReminderSelector) remind(ctx context.Context, candidate domain.ReminderCandidate) bool {
	loan := candidate.Loan
	key := domain.ReminderKey{
		UserID:    loan.UserID,
		LoanID:    loan.ID,
		Threshold: candidate.Threshold,
		DueDate:   loan.PaymentDueDate,
	}
	log := r.logger.With().
		Str("loan_id", loan.ID.String()).
		Str("user_id", loan.UserID).
		Int("threshold", candidate.Threshold).
		Logger()

	claimed, err := r.ledger.Claim(ctx, key, r.clock.Now(), r.config.Window)
	if err != nil {
		log.Error().Err(customError.WrapDependency("reminder ledger", err)).Msg("Failed to claim reminder")
		return false
	}
	if !claimed {
		log.Debug().Msg("Reminder already sent")
		return false
	}

	message := ReminderMessage(candidate.Threshold, loan.RemainingAmount())
	if err := r.notifier.Notify(ctx, loan.UserID, domain.NotificationKindLoanReminder, message); err != nil {
		log.Error().Err(customError.WrapDependency("notifier", err)).Msg("Failed to send reminder")
		if releaseErr := r.ledger.Release(ctx, key); releaseErr != nil {
			log.Error().Err(releaseErr).Msg("Failed to release reminder claim")
		}
		return false
	}

	log.Info().Msg("Reminder sent")
	return true
}
