// Package session runs the origin login protocol, persists Direct sessions,
// and renews the shared session when the origin expires it.
package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/flaresolverr"
	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/metrics"
	"github.com/ygggate/ygggate/internal/origin"
)

const cleanupTimeout = 10 * time.Second

// accountCreatedCookie must be present before the origin issues its session cookie.
var accountCreatedCookie = &http.Cookie{Name: "account_created", Value: "true"}

// Credentials identify an origin account.
type Credentials struct {
	Username string
	Password string
}

// Config configures a Manager.
type Config struct {
	Site     origin.Site
	LeakedIP string
	OwnIP    string
	Timeout  time.Duration
	// FlareSolverr selects the proxied strategy when non-nil.
	FlareSolverr *flaresolverr.Client
}

// Manager owns the login protocol.
type Manager struct {
	cfg    Config
	store  CookieStore
	logger zerolog.Logger
}

// NewManager creates a session manager. store may be nil to disable persistence.
func NewManager(cfg Config, store CookieStore, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

// Site returns the origin the manager logs into.
func (m *Manager) Site() origin.Site { return m.cfg.Site }

// Strategy names the login strategy in use.
func (m *Manager) Strategy() origin.Mode {
	if m.cfg.FlareSolverr != nil {
		return origin.ModeProxied
	}
	return origin.ModeDirect
}

// Login authenticates creds and returns a ready client. With persist, a
// Direct login first tries the stored snapshot and saves a fresh one on success.
func (m *Manager) Login(ctx context.Context, creds Credentials, persist bool) (origin.Client, error) {
	strategy := m.Strategy()

	var (
		client origin.Client
		err    error
	)
	if strategy == origin.ModeProxied {
		client, err = m.loginProxied(ctx, creds)
	} else {
		client, err = m.loginDirect(ctx, creds, persist)
	}

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	metrics.Logins.WithLabelValues(string(strategy), outcome).Inc()

	return client, err
}

// NewDirectClient returns a bare Direct client for the configured origin.
func (m *Manager) NewDirectClient() *origin.DirectClient {
	return origin.NewDirectClient(origin.DirectConfig{
		Site:     m.cfg.Site,
		LeakedIP: m.cfg.LeakedIP,
		OwnIP:    m.cfg.OwnIP,
		Timeout:  m.cfg.Timeout,
		Logger:   m.logger,
	})
}

// CustomClient returns a Direct client carrying caller-supplied cookies.
// Such clients are never renewed.
func (m *Manager) CustomClient(cookieHeader string) *origin.DirectClient {
	client := m.NewDirectClient()
	client.SessionJar().ReplaceCookies(origin.ParseCookieHeader(cookieHeader))
	return client
}

func (m *Manager) loginDirect(ctx context.Context, creds Credentials, persist bool) (origin.Client, error) {
	client := m.NewDirectClient()
	log := m.logger.With().Str("username", creds.Username).Logger()

	if persist && m.store != nil {
		if ok := m.resume(ctx, client, creds.Username, log); ok {
			return client, nil
		}
	}

	if err := m.freshDirectLogin(ctx, client, creds); err != nil {
		log.Warn().Err(err).Msg("Login failed")
		return nil, err
	}

	if persist && m.store != nil {
		header := origin.FormatCookieHeader(client.SessionJar().Cookies())
		if err := m.store.SaveCookies(ctx, creds.Username, header); err != nil {
			log.Warn().Err(err).Msg("Failed to save session snapshot")
		} else {
			log.Debug().Msg("Session snapshot saved")
		}
	}

	log.Info().Str("strategy", string(origin.ModeDirect)).Msg("Logged in")
	return client, nil
}

// resume loads the stored snapshot into client and probes the site root.
// A snapshot that fails the probe is deleted.
func (m *Manager) resume(ctx context.Context, client *origin.DirectClient, username string, log zerolog.Logger) bool {
	header, err := m.store.GetCookies(ctx, username)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read session snapshot")
		return false
	}
	if header == "" {
		return false
	}

	cookies := origin.ParseCookieHeader(header)
	client.SessionJar().ReplaceCookies(cookies)
	log.Debug().Int("count", len(cookies)).Msg("Loaded cookies from snapshot")

	resp, err := client.Get(ctx, m.cfg.Site.Root())
	if err == nil && resp.OK() && !origin.IsSessionExpired(resp.Status, resp.URL) {
		log.Info().Msg("Resumed persisted session")
		return true
	}

	if err != nil {
		log.Info().Err(err).Msg("Persisted session probe failed, logging in again")
	} else {
		log.Info().Int("status", resp.Status).Msg("Persisted session is no longer valid, logging in again")
	}
	if err := m.store.ClearCookies(ctx, username); err != nil {
		log.Warn().Err(err).Msg("Failed to remove stale session snapshot")
	}
	return false
}

func (m *Manager) freshDirectLogin(ctx context.Context, client *origin.DirectClient, creds Credentials) error {
	site := m.cfg.Site
	jar := client.SessionJar()
	jar.ReplaceCookies([]*http.Cookie{accountCreatedCookie})

	resp, err := client.Get(ctx, site.LoginPage())
	if err != nil {
		return indexer.NewNetworkError(indexer.PhaseLogin, err)
	}
	if !resp.OK() {
		return indexer.NewRemoteServiceError(indexer.PhaseLogin, resp.Status, "failed to fetch login page")
	}
	if !origin.HasCookiePrefix(jar.Cookies(), origin.SessionCookiePrefix) {
		return indexer.NewNoSessionCookieError()
	}

	resp, err = client.PostForm(ctx, site.LoginProcess(), loginForm(creds))
	if err != nil {
		return indexer.NewNetworkError(indexer.PhaseLogin, err)
	}
	if resp.Status == http.StatusUnauthorized {
		return indexer.NewInvalidCredentialsError(resp.Status)
	}
	if !resp.OK() {
		return indexer.NewRemoteServiceError(indexer.PhaseLogin, resp.Status, "login rejected")
	}

	// Some cookies are only set once the home page has been seen.
	resp, err = client.Get(ctx, site.Root())
	if err != nil {
		return indexer.NewNetworkError(indexer.PhaseLogin, err)
	}
	if !resp.OK() {
		return indexer.NewRemoteServiceError(indexer.PhaseLogin, resp.Status, "failed to fetch site root after login")
	}
	return nil
}

func (m *Manager) loginProxied(ctx context.Context, creds Credentials) (origin.Client, error) {
	fs := m.cfg.FlareSolverr
	site := m.cfg.Site
	log := m.logger.With().Str("username", creds.Username).Str("strategy", string(origin.ModeProxied)).Logger()

	sessionID, err := fs.CreateSession(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not open a browser session, continuing without one")
		sessionID = ""
	}

	cookies := []flaresolverr.CookieInput{{
		Name:   accountCreatedCookie.Name,
		Value:  accountCreatedCookie.Value,
		Domain: site.Host(),
	}}

	resp, err := fs.Get(ctx, site.LoginPage(), sessionID, cookies)
	if err != nil {
		m.destroyBestEffort(sessionID)
		return nil, proxiedError(err)
	}
	if !resp.Solution.HasCookiePrefix(origin.SessionCookiePrefix) {
		m.destroyBestEffort(sessionID)
		return nil, indexer.NewNoSessionCookieError()
	}

	resp, err = fs.Post(ctx, site.LoginProcess(), loginForm(creds).Encode(), sessionID, cookies)
	if err != nil {
		m.destroyBestEffort(sessionID)
		return nil, proxiedError(err)
	}
	if resp.Solution == nil {
		m.destroyBestEffort(sessionID)
		return nil, indexer.NewRemoteServiceError(indexer.PhaseLogin, 0, "no solution in login response")
	}
	if status := resp.Solution.Status; status == http.StatusUnauthorized {
		m.destroyBestEffort(sessionID)
		return nil, indexer.NewInvalidCredentialsError(status)
	} else if status >= 400 {
		m.destroyBestEffort(sessionID)
		return nil, indexer.NewRemoteServiceError(indexer.PhaseLogin, status, "login rejected")
	}

	if _, err := fs.Get(ctx, site.Root(), sessionID, nil); err != nil {
		m.destroyBestEffort(sessionID)
		return nil, proxiedError(err)
	}

	log.Info().Str("session", sessionID).Msg("Logged in")
	return origin.NewProxiedClient(fs, sessionID), nil
}

// destroyBestEffort tears a browser session down in the background.
func (m *Manager) destroyBestEffort(sessionID string) {
	if sessionID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if err := m.cfg.FlareSolverr.DestroySession(ctx, sessionID); err != nil {
			m.logger.Debug().Err(err).Str("session", sessionID).Msg("Browser session cleanup failed")
		}
	}()
}

func proxiedError(err error) error {
	var fsErr *flaresolverr.Error
	if errors.As(err, &fsErr) {
		return &indexer.IndexerError{
			Code:    indexer.ErrCodeRemoteService,
			Message: "browser automation failed",
			Phase:   indexer.PhaseLogin,
			Status:  fsErr.HTTPStatus,
			Cause:   err,
		}
	}
	return indexer.NewNetworkError(indexer.PhaseLogin, err)
}

func loginForm(creds Credentials) url.Values {
	return url.Values{
		"id":   {creds.Username},
		"pass": {creds.Password},
	}
}
