package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/metrics"
	"github.com/ygggate/ygggate/internal/origin"
)

// Renewer re-establishes a session after the origin expired it.
type Renewer interface {
	Renew(ctx context.Context) (origin.Client, error)
}

// Shared is the process-wide session used by every request that does not
// bring its own cookies.
type Shared struct {
	manager *Manager
	creds   Credentials
	persist bool

	mu     sync.RWMutex
	client origin.Client

	group  singleflight.Group
	logger zerolog.Logger
}

// NewShared creates a shared session holder. Call Login before use.
func NewShared(manager *Manager, creds Credentials, persist bool, logger zerolog.Logger) *Shared {
	return &Shared{
		manager: manager,
		creds:   creds,
		persist: persist,
		logger:  logger.With().Str("component", "shared-session").Logger(),
	}
}

// Login performs the initial login.
func (s *Shared) Login(ctx context.Context) error {
	client, err := s.manager.Login(ctx, s.creds, s.persist)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	return nil
}

// Client returns the current shared client, nil before Login succeeded.
func (s *Shared) Client() origin.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Manager returns the session manager behind the shared session.
func (s *Shared) Manager() *Manager { return s.manager }

// Renew logs in again with persistence on and installs the result as the
// shared session. Concurrent callers share one login.
func (s *Shared) Renew(ctx context.Context) (origin.Client, error) {
	v, err, shared := s.group.Do("renew", func() (any, error) {
		s.logger.Info().Msg("Renewing expired session")

		// Other callers may be waiting on this login; one caller going away
		// must not abort it.
		fresh, err := s.manager.Login(context.WithoutCancel(ctx), s.creds, true)
		if err != nil {
			return nil, err
		}
		s.adopt(fresh)
		return fresh, nil
	})

	if err != nil {
		metrics.SessionRenewals.WithLabelValues(metrics.OutcomeFailure).Inc()
		s.logger.Error().Err(err).Msg("Session renewal failed")
		return nil, fmt.Errorf("renew session: %w", err)
	}
	if !shared {
		metrics.SessionRenewals.WithLabelValues(metrics.OutcomeSuccess).Inc()
	}
	s.logger.Info().Bool("coalesced", shared).Msg("Session renewed")
	return v.(origin.Client), nil
}

// adopt makes fresh the shared session. Direct cookies are transplanted into
// the long-lived client so holders of it see the new session; otherwise the
// client itself is swapped.
func (s *Shared) adopt(fresh origin.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.client; current != nil {
		currentJar, currentOK := origin.JarOf(current)
		freshJar, freshOK := origin.JarOf(fresh)
		if currentOK && freshOK {
			currentJar.ReplaceCookies(freshJar.Cookies())
			return
		}
		if old, ok := current.(*origin.ProxiedClient); ok {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
				defer cancel()
				if err := old.Close(ctx); err != nil {
					s.logger.Debug().Err(err).Msg("Old browser session cleanup failed")
				}
			}()
		}
	}
	s.client = fresh
}

// Probe checks the shared session against the site root and renews it if
// the origin expired it.
func (s *Shared) Probe(ctx context.Context) error {
	client := s.Client()
	if client == nil {
		return s.Login(ctx)
	}

	resp, err := client.Get(ctx, s.manager.Site().Root())
	if err != nil {
		return indexer.NewNetworkError(indexer.PhaseProbe, err)
	}
	if origin.IsSessionExpired(resp.Status, resp.URL) {
		_, err := s.Renew(ctx)
		return err
	}
	if !resp.OK() {
		return indexer.NewRemoteServiceError(indexer.PhaseProbe, resp.Status, "site root probe failed")
	}
	return nil
}
