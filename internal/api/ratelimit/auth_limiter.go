// Package ratelimit throttles the /auth endpoint so it cannot be used to
// brute-force origin accounts through the gateway.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	DefaultIPRequestsPerMinute = 10
	DefaultIPWindowDuration    = time.Minute
	DefaultMaxFailedAttempts   = 5
	DefaultLockoutDuration     = 15 * time.Minute
	MaxLockoutDuration         = time.Hour
)

type ipBucket struct {
	count     int
	resetTime time.Time
}

type accountLockout struct {
	failedAttempts int
	lockedUntil    time.Time
	lockoutCount   int
}

// AuthLimiter bounds login attempts per client IP and locks out usernames
// after repeated rejected credentials.
type AuthLimiter struct {
	mu       sync.Mutex
	ips      map[string]*ipBucket
	accounts map[string]*accountLockout
	now      func() time.Time

	ipLimit     int
	ipWindow    time.Duration
	maxFailures int
	lockout     time.Duration
}

// NewAuthLimiter creates a limiter with the default thresholds.
func NewAuthLimiter() *AuthLimiter {
	return &AuthLimiter{
		ips:         make(map[string]*ipBucket),
		accounts:    make(map[string]*accountLockout),
		now:         time.Now,
		ipLimit:     DefaultIPRequestsPerMinute,
		ipWindow:    DefaultIPWindowDuration,
		maxFailures: DefaultMaxFailedAttempts,
		lockout:     DefaultLockoutDuration,
	}
}

// Middleware rejects clients over the per-IP budget with 429.
func (l *AuthLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.allowIP(c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
			}
			return next(c)
		}
	}
}

func (l *AuthLimiter) allowIP(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, ok := l.ips[ip]
	if !ok || now.After(bucket.resetTime) {
		l.ips[ip] = &ipBucket{count: 1, resetTime: now.Add(l.ipWindow)}
		return true
	}
	if bucket.count >= l.ipLimit {
		return false
	}
	bucket.count++
	return true
}

// IsAccountLocked reports whether username is locked out.
func (l *AuthLimiter) IsAccountLocked(username string) bool {
	return l.GetLockoutRemaining(username) > 0
}

// GetLockoutRemaining returns how long username stays locked out.
func (l *AuthLimiter) GetLockoutRemaining(username string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	lockout, ok := l.accounts[username]
	if !ok {
		return 0
	}
	return max(lockout.lockedUntil.Sub(l.now()), 0)
}

// RecordFailedAttempt counts rejected credentials. Every maxFailures-th
// failure locks the account, for longer each time up to MaxLockoutDuration.
func (l *AuthLimiter) RecordFailedAttempt(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lockout, ok := l.accounts[username]
	if !ok {
		lockout = &accountLockout{}
		l.accounts[username] = lockout
	}

	now := l.now()
	if now.After(lockout.lockedUntil) && lockout.failedAttempts >= l.maxFailures {
		lockout.failedAttempts = 0
	}

	lockout.failedAttempts++
	if lockout.failedAttempts >= l.maxFailures {
		lockout.lockoutCount++
		lockout.lockedUntil = now.Add(min(l.lockout*time.Duration(lockout.lockoutCount), MaxLockoutDuration))
	}
}

// RecordSuccessfulLogin clears username's failure history.
func (l *AuthLimiter) RecordSuccessfulLogin(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.accounts, username)
}

// Cleanup drops expired IP windows and lapsed lockouts.
func (l *AuthLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, bucket := range l.ips {
		if now.After(bucket.resetTime) {
			delete(l.ips, ip)
		}
	}
	for username, lockout := range l.accounts {
		if now.After(lockout.lockedUntil) {
			delete(l.accounts, username)
		}
	}
}

// StartCleanup runs Cleanup every interval for the life of the process.
func (l *AuthLimiter) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			l.Cleanup()
		}
	}()
}
