// Package middleware enforces per-principal request quotas on HTTP routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"trustbank/internal/ratelimit/metrics"
	"trustbank/internal/ratelimit/models"
	dErrors "trustbank/pkg/domain-errors"
	"trustbank/pkg/platform/httputil"
	"trustbank/pkg/requestcontext"
)

// BucketStore counts requests in a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Quota is the number of requests allowed per window for one endpoint class.
type Quota struct {
	Limit  int
	Window time.Duration
}

type Middleware struct {
	store    BucketStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for tests and demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

func New(store BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimitUser limits requests per authenticated user for the given class.
// It must run after RequireAuth. Store failures fail open.
func (m *Middleware) RateLimitUser(class string, quota Quota) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil || m.disabled || quota.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			userID := requestcontext.UserID(ctx)
			if userID.IsNil() {
				next.ServeHTTP(w, r)
				return
			}

			result, err := m.store.Allow(ctx, models.UserKey(class, userID.String()), quota.Limit, quota.Window)
			if err != nil {
				m.metrics.IncrementStoreError()
				m.logger.ErrorContext(ctx, "failed to check user rate limit",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", userID,
					"class", class,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)

			if !result.Allowed {
				m.metrics.IncrementRejection(class)
				m.logger.WarnContext(ctx, "user rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", userID,
					"class", class,
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "You have exceeded your request quota. Please try again later."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
