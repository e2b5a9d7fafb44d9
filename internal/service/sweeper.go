package service

import (
	"context"

	"github.com/segyhp/loan-tracker/internal/clock"
	"github.com/segyhp/loan-tracker/internal/repository"
	customError "github.com/segyhp/loan-tracker/pkg/errors"

	"github.com/rs/zerolog"
)

// StatusSweeper moves active loans whose due date has passed to overdue.
// Completed and already-overdue loans are never touched, so repeated sweeps are no-ops.
type StatusSweeper struct {
	loanRepo repository.LoanRepository
	clock    clock.Clock
	logger   zerolog.Logger
}

func NewStatusSweeper(loanRepo repository.LoanRepository, clk clock.Clock, logger zerolog.Logger) *StatusSweeper {
	return &StatusSweeper{
		loanRepo: loanRepo,
		clock:    clk,
		logger:   logger.With().Str("component", "status_sweeper").Logger(),
	}
}

// Sweep runs one pass and returns how many loans became overdue
func (s *StatusSweeper) Sweep(ctx context.Context) (int64, error) {
	today := clock.Today(s.clock)

	updated, err := s.loanRepo.MarkOverdue(ctx, today, s.clock.Now())
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	if updated > 0 {
		s.logger.Info().
			Int64("updated", updated).
			Str("today", today.Format("2006-01-02")).
			Msg("Marked loans overdue")
	}

	return updated, nil
}
