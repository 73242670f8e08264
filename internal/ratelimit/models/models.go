// Package models holds the rate limiting result shared by stores and middleware.
package models

import (
	"time"
)

// RateLimitResult is the outcome of one sliding-window check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// UserKey is the bucket key for a principal's quota on an endpoint class.
func UserKey(class, userID string) string {
	return "rl:user:" + class + ":" + userID
}

// retryAfter rounds the wait until resetAt up to whole seconds, minimum 1.
func retryAfter(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return max(secs, 1)
}

// Denied builds the result for a request over the limit.
func Denied(limit int, now, resetAt time.Time) *RateLimitResult {
	return &RateLimitResult{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retryAfter(now, resetAt),
	}
}
