package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(now *time.Time) *AuthLimiter {
	l := NewAuthLimiter()
	l.now = func() time.Time { return *now }
	return l
}

func TestAllowIP(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	for i := 0; i < DefaultIPRequestsPerMinute; i++ {
		if !l.allowIP("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.allowIP("10.0.0.1") {
		t.Error("request over the budget should be rejected")
	}
	if !l.allowIP("10.0.0.2") {
		t.Error("other IPs have their own budget")
	}

	now = now.Add(DefaultIPWindowDuration + time.Second)
	if !l.allowIP("10.0.0.1") {
		t.Error("budget should reset after the window")
	}
}

func TestLockout(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	for i := 0; i < DefaultMaxFailedAttempts-1; i++ {
		l.RecordFailedAttempt("alice")
	}
	if l.IsAccountLocked("alice") {
		t.Fatal("locked before reaching the threshold")
	}

	l.RecordFailedAttempt("alice")
	if got := l.GetLockoutRemaining("alice"); got != DefaultLockoutDuration {
		t.Fatalf("GetLockoutRemaining() = %v, want %v", got, DefaultLockoutDuration)
	}

	now = now.Add(DefaultLockoutDuration + time.Second)
	if l.IsAccountLocked("alice") {
		t.Fatal("lockout should lapse")
	}

	for i := 0; i < DefaultMaxFailedAttempts; i++ {
		l.RecordFailedAttempt("alice")
	}
	if got := l.GetLockoutRemaining("alice"); got != 2*DefaultLockoutDuration {
		t.Errorf("second lockout = %v, want %v", got, 2*DefaultLockoutDuration)
	}

	l.RecordSuccessfulLogin("alice")
	if l.IsAccountLocked("alice") {
		t.Error("successful login should clear the lockout")
	}
}
