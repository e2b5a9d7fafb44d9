// Package notification adapts the core's Notify calls onto the notifications table and a
// Redis channel that live clients subscribe to.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segyhp/loan-tracker/internal/clock"
	"github.com/segyhp/loan-tracker/internal/domain"
	"github.com/segyhp/loan-tracker/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Publisher is the subset of the Redis client the dispatcher needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Dispatcher stores every notification and fans it out to live subscribers.
type Dispatcher struct {
	repo      repository.NotificationRepository
	publisher Publisher
	clock     clock.Clock
	logger    zerolog.Logger
}

// NewDispatcher builds a dispatcher. publisher may be nil to skip live delivery.
func NewDispatcher(repo repository.NotificationRepository, publisher Publisher, clk clock.Clock, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		publisher: publisher,
		clock:     clk,
		logger:    logger.With().Str("component", "notification_dispatcher").Logger(),
	}
}

// Channel is the Redis channel a user's notifications are published on.
func Channel(userID string) string {
	return "notifications:" + userID
}

func (d *Dispatcher) Notify(ctx context.Context, userID, kind, message string) error {
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		CreatedAt: d.clock.Now(),
	}

	if err := d.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if d.publisher == nil {
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		d.logger.Error().Err(err).Str("notification_id", n.ID.String()).Msg("Failed to encode notification")
		return nil
	}

	// The row is already stored, so a missed publish only delays delivery until the next fetch.
	if err := d.publisher.Publish(ctx, Channel(userID), payload).Err(); err != nil {
		d.logger.Warn().Err(err).
			Str("notification_id", n.ID.String()).
			Str("user_id", userID).
			Msg("Failed to publish notification")
	}

	return nil
}

// NoOpNotifier drops every notification.
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(ctx context.Context, userID, kind, message string) error {
	return nil
}
