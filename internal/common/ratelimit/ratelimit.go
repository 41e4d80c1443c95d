// Package ratelimit implements fixed-window request counting per caller identifier.
//
// A window opens on the first request from an identifier (or the first request
// after the previous window's reset time has passed) with a count of one.
// Within a window, requests are admitted while count < limit; a denied request
// does not increment the count. At exactly now == resetAt the old window still
// applies.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultLimit  = 10
	DefaultWindow = 60 * time.Second
)

// Result is the outcome of a single Check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter admits or denies a request for an identifier.
type Limiter interface {
	Check(ctx context.Context, identifier string) (Result, error)
}

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// NoopLimiter always allows requests (rate limiting disabled).
type NoopLimiter struct{}

func (NoopLimiter) Check(ctx context.Context, identifier string) (Result, error) {
	return Result{Allowed: true, Remaining: -1}, nil
}

func normalize(limit int, window time.Duration) (int, time.Duration) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return limit, window
}
