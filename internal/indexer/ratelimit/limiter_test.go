package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLimiter_BoundsConcurrency(t *testing.T) {
	l := NewLimiter(Config{RequestsPerSecond: 1000, Burst: 100, MaxConcurrent: 2}, zerolog.Nop())

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := l.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer p.Release()

			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
	if l.InFlight() != 0 {
		t.Errorf("InFlight() = %d after all releases, want 0", l.InFlight())
	}
}

func TestLimiter_ReleaseIsIdempotent(t *testing.T) {
	l := NewLimiter(Config{RequestsPerSecond: 1000, Burst: 10, MaxConcurrent: 1}, zerolog.Nop())

	p, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	p.Release()
	p.Release()

	if l.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", l.InFlight())
	}

	// A double release must not have freed a second slot.
	p1, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer p1.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx); err == nil {
		t.Error("second Acquire() succeeded while the only slot is held")
	}
}

func TestLimiter_CancelledWaitDoesNotLeak(t *testing.T) {
	l := NewLimiter(Config{RequestsPerSecond: 1000, Burst: 10, MaxConcurrent: 1}, zerolog.Nop())

	held, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Acquire(ctx); err == nil {
		t.Fatal("Acquire() with cancelled context should fail")
	}

	held.Release()

	p, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	p.Release()
}
