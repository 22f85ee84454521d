// Package startup holds helpers used while the gateway boots.
package startup

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/indexer"
)

// RetryConfig configures the exponential backoff retry behavior.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  uint
}

// DefaultRetryConfig returns the backoff used for the initial origin login.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 5 * time.Second,
		MaxDelay:     2 * time.Minute,
		MaxAttempts:  5,
	}
}

var networkIndicators = []string{
	"connection refused",
	"no such host",
	"timeout",
	"network is unreachable",
	"no route to host",
	"host is down",
	"dial tcp",
	"i/o timeout",
	"connection reset",
	"temporary failure in name resolution",
}

// IsNetworkError reports whether err looks like the origin or the browser
// automation service being unreachable.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if indexer.IsNetworkError(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, indicator := range networkIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

// WithRetry runs fn with exponential backoff, retrying network errors only.
// Any other error, such as rejected credentials, is returned at once.
func WithRetry(ctx context.Context, name string, cfg RetryConfig, fn func() error, logger zerolog.Logger) error {
	err := retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(cfg.MaxAttempts),
		retry.Delay(cfg.InitialDelay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsNetworkError),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().
				Err(err).
				Str("operation", name).
				Uint("attempt", n+1).
				Uint("maxAttempts", cfg.MaxAttempts).
				Msg("Network error, will retry")
		}),
	)
	if err != nil {
		logger.Error().Err(err).Str("operation", name).Msg("Operation failed")
	}
	return err
}
