// Package ratelimit provides the process-wide admission gate for origin requests.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/ygggate/ygggate/internal/metrics"
)

// Config defines rate limit configuration.
type Config struct {
	// RequestsPerSecond is the sustained request rate towards the origin
	RequestsPerSecond float64
	// Burst is the number of requests allowed above the sustained rate
	Burst int
	// MaxConcurrent bounds requests in flight at once
	MaxConcurrent int64
}

// DefaultConfig returns the default rate limit configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 2,
		Burst:             3,
		MaxConcurrent:     4,
	}
}

// Limiter gates every outbound origin request. Waiters on the concurrency
// bound are served in arrival order, so none can starve.
type Limiter struct {
	rate     *rate.Limiter
	sem      *semaphore.Weighted
	logger   zerolog.Logger
	inFlight atomic.Int64
}

// NewLimiter creates a new rate limiter.
func NewLimiter(cfg Config, logger zerolog.Logger) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}

	return &Limiter{
		rate:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
		logger: logger.With().Str("component", "rate-limiter").Logger(),
	}
}

// Permit is a scoped lease on the limiter. Release is safe to call more than once.
type Permit struct {
	once    sync.Once
	release func()
}

// Release returns the permit's capacity to the limiter.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(p.release)
}

// Acquire blocks until a request may be issued or ctx is done.
// Callers must defer Release on the returned permit.
func (l *Limiter) Acquire(ctx context.Context) (*Permit, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for request slot: %w", err)
	}

	if err := l.rate.Wait(ctx); err != nil {
		l.sem.Release(1)
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	metrics.RateLimitInFlight.Set(float64(l.inFlight.Add(1)))
	l.logger.Trace().Msg("Permit acquired")

	return &Permit{release: func() {
		metrics.RateLimitInFlight.Set(float64(l.inFlight.Add(-1)))
		l.sem.Release(1)
	}}, nil
}

// InFlight returns the number of permits currently held.
func (l *Limiter) InFlight() int64 {
	return l.inFlight.Load()
}
