package repository

import (
	"context"
	"time"

	"github.com/segyhp/loan-tracker/internal/domain"

	"github.com/redis/go-redis/v9"
)

// reminderCache is the Redis-backed reminder ledger: one key per reminder, expiring
// with the dedup window.
type reminderCache struct {
	redis *redis.Client
}

func NewReminderCache(client *redis.Client) domain.ReminderLedger {
	return &reminderCache{redis: client}
}

func (c *reminderCache) Claim(ctx context.Context, key domain.ReminderKey, at time.Time, window time.Duration) (bool, error) {
	return c.redis.SetNX(ctx, key.String(), at.Unix(), window).Result()
}

func (c *reminderCache) Release(ctx context.Context, key domain.ReminderKey) error {
	return c.redis.Del(ctx, key.String()).Err()
}
