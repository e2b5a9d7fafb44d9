package handler

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/segyhp/loan-tracker/pkg/response"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// UserIDHeader carries the caller identity resolved by the upstream auth gateway.
const UserIDHeader = "X-User-ID"

type contextKey string

const userIDKey contextKey = "user_id"

// UserIDFromContext returns the identity set by AuthMiddleware
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// WithUserID stores the caller identity on ctx
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// AuthMiddleware rejects requests without a caller identity
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			response.Unauthorized(w, "missing "+UserIDHeader+" header")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// AdminAuth guards the job-trigger endpoints with a shared bearer token
type AdminAuth struct {
	token  string
	logger zerolog.Logger
}

// NewAdminAuth returns an AdminAuth for token. An empty token disables the admin endpoints.
func NewAdminAuth(token string, logger zerolog.Logger) *AdminAuth {
	return &AdminAuth{
		token:  strings.TrimSpace(token),
		logger: logger.With().Str("component", "admin_auth").Logger(),
	}
}

// Middleware rejects requests that do not carry the admin token
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a == nil || a.token == "" {
			response.Forbidden(w, "admin endpoints are disabled")
			return
		}

		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.Unauthorized(w, "missing admin token")
			return
		}

		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(a.token)) != 1 {
			a.logger.Warn().Str("path", r.URL.Path).Msg("Invalid admin token")
			response.Forbidden(w, "invalid admin token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

const (
	// limiterTTL is how long an idle user's limiter is kept
	limiterTTL      = 10 * time.Minute
	cleanupInterval = 5 * time.Minute
)

// RateLimiter keeps one token bucket per user
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	perMinute int
	burst     int
	logger    zerolog.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(requestsPerMinute, burst int, logger zerolog.Logger) *RateLimiter {
	rl := &RateLimiter{
		limiters:  make(map[string]*limiterEntry),
		perMinute: requestsPerMinute,
		burst:     burst,
		logger:    logger.With().Str("component", "rate_limiter").Logger(),
		stopCh:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow reports whether userID may make another request now
func (rl *RateLimiter) Allow(userID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[userID]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60.0), rl.burst),
		}
		rl.limiters[userID] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for userID, entry := range rl.limiters {
				if now.Sub(entry.lastSeen) > limiterTTL {
					delete(rl.limiters, userID)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware limits mutating requests per caller. Reads pass through. It must run after
// AuthMiddleware.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())
		if !isMutating(r.Method) || userID == "" || rl.Allow(userID) {
			next.ServeHTTP(w, r)
			return
		}

		rl.logger.Warn().Str("user_id", userID).Str("path", r.URL.Path).Msg("Rate limit exceeded")
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.perMinute))
		w.Header().Set("Retry-After", "1")
		response.TooManyRequests(w, "Too many requests")
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
