package startup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/indexer"
)

func fastRetry() RetryConfig {
	return RetryConfig{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 3}
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"indexer network", indexer.NewNetworkError(indexer.PhaseLogin, errors.New("boom")), true},
		{"dial", fmt.Errorf("post: dial tcp 1.2.3.4:443: connect: connection refused"), true},
		{"credentials", indexer.NewInvalidCredentialsError(200), false},
		{"plain", errors.New("something else"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNetworkError(tt.err); got != tt.want {
				t.Errorf("IsNetworkError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetry_RetriesNetworkErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), "login", fastRetry(), func() error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: i/o timeout")
		}
		return nil
	}, zerolog.Nop())

	if err != nil {
		t.Fatalf("WithRetry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetry_StopsOnOtherErrors(t *testing.T) {
	calls := 0
	rejected := indexer.NewInvalidCredentialsError(200)
	err := WithRetry(context.Background(), "login", fastRetry(), func() error {
		calls++
		return rejected
	}, zerolog.Nop())

	if !errors.Is(err, rejected) {
		t.Errorf("WithRetry() error = %v, want %v", err, rejected)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
