// Package gateway is the engine behind the HTTP API: it picks the origin
// client for a request, wraps every origin operation in the session renewal
// protocol, and decides how a logical search fans out.
package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/indexer/account"
	"github.com/ygggate/ygggate/internal/indexer/categories"
	"github.com/ygggate/ygggate/internal/indexer/grab"
	"github.com/ygggate/ygggate/internal/indexer/quota"
	"github.com/ygggate/ygggate/internal/indexer/search"
	"github.com/ygggate/ygggate/internal/indexer/session"
	"github.com/ygggate/ygggate/internal/indexer/types"
	"github.com/ygggate/ygggate/internal/metadata/tmdb"
	"github.com/ygggate/ygggate/internal/origin"
	"github.com/ygggate/ygggate/internal/startup"
)

// ErrNoCookieHeader is returned by Authenticate when the login strategy
// keeps its cookies inside the browser-automation service.
var ErrNoCookieHeader = indexer.NewConfigError("session cookies are only available with the direct strategy")

// Deps are the collaborators of a Gateway.
type Deps struct {
	Shared   *session.Shared
	Search   *search.Service
	Grab     *grab.Service
	Quota    *quota.Probe
	Account  *account.Fetcher
	Loader   *categories.Loader
	Catalog  *Catalog
	Resolver *tmdb.Resolver
}

// Gateway serves origin operations for the API and the CLI.
type Gateway struct {
	shared   *session.Shared
	search   *search.Service
	grab     *grab.Service
	quota    *quota.Probe
	account  *account.Fetcher
	loader   *categories.Loader
	catalog  *Catalog
	resolver *tmdb.Resolver
	retry    startup.RetryConfig
	logger   zerolog.Logger
}

// New creates a gateway. Call Start before serving requests.
func New(deps Deps, logger zerolog.Logger) *Gateway {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Gateway{
		shared:   deps.Shared,
		search:   deps.Search,
		grab:     deps.Grab,
		quota:    deps.Quota,
		account:  deps.Account,
		loader:   deps.Loader,
		catalog:  catalog,
		resolver: deps.Resolver,
		retry:    startup.DefaultRetryConfig(),
		logger:   logger.With().Str("component", "gateway").Logger(),
	}
}

// SetRetryConfig overrides the backoff used for the initial login.
func (g *Gateway) SetRetryConfig(cfg startup.RetryConfig) {
	g.retry = cfg
}

// Start logs the shared session in and loads the category taxonomy. A failed
// login is not fatal: the next request logs in again.
func (g *Gateway) Start(ctx context.Context) error {
	err := startup.WithRetry(ctx, "initial login", g.retry, func() error {
		return g.shared.Login(ctx)
	}, g.logger)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Initial login failed, serving with lazy login")
	}

	if g.loader == nil {
		return nil
	}
	cache, source, err := g.loader.Load(ctx, g.shared.Client())
	if err != nil {
		return err
	}
	g.catalog.Set(cache, source)
	return nil
}

// client returns the origin client for a request and the renewer to use on
// expiry. A caller-supplied cookie header gets its own client that is never
// renewed.
func (g *Gateway) client(ctx context.Context, cookie string) (origin.Client, session.Renewer, error) {
	if cookie != "" {
		return g.shared.Manager().CustomClient(cookie), nil, nil
	}
	if c := g.shared.Client(); c != nil {
		return c, g.shared, nil
	}
	c, err := g.shared.Renew(ctx)
	if err != nil {
		return nil, nil, err
	}
	return c, g.shared, nil
}

func run[T any](ctx context.Context, g *Gateway, cookie string, attempt func(context.Context, origin.Client) (T, error)) (T, error) {
	client, renewer, err := g.client(ctx, cookie)
	if err != nil {
		var zero T
		return zero, err
	}
	return session.Do(ctx, client, renewer, attempt)
}

// Download runs the token/download protocol for one torrent.
func (g *Gateway) Download(ctx context.Context, cookie string, id int64) (*grab.File, error) {
	return run(ctx, g, cookie, func(ctx context.Context, c origin.Client) (*grab.File, error) {
		return g.grab.Download(ctx, c, id)
	})
}

// Remaining returns the downloads left today.
func (g *Gateway) Remaining(ctx context.Context, cookie string) (int, error) {
	return run(ctx, g, cookie, g.quota.Remaining)
}

// Account returns the logged-in user's standing.
func (g *Gateway) Account(ctx context.Context, cookie string) (*types.Account, error) {
	return run(ctx, g, cookie, g.account.Fetch)
}

// Categories returns the taxonomy in use.
func (g *Gateway) Categories() []types.Category {
	return g.catalog.All()
}

// Authenticate runs a fresh, non-persisted login for creds and returns the
// resulting cookie header.
func (g *Gateway) Authenticate(ctx context.Context, creds session.Credentials) (string, error) {
	if creds.Username == "" || creds.Password == "" {
		return "", indexer.NewConfigError("username and password are required")
	}
	client, err := g.shared.Manager().Login(ctx, creds, false)
	if err != nil {
		return "", err
	}
	header, ok := origin.CookieHeader(client)
	if !ok {
		if closer, isProxied := client.(*origin.ProxiedClient); isProxied {
			_ = closer.Close(context.WithoutCancel(ctx))
		}
		return "", ErrNoCookieHeader
	}
	return header, nil
}

// CookieHeader is the cookie header of the client a request with cookie
// uses, for the X-Session-Cookies response header.
func (g *Gateway) CookieHeader(cookie string) (string, bool) {
	if cookie != "" {
		return origin.FormatCookieHeader(origin.ParseCookieHeader(cookie)), true
	}
	client := g.shared.Client()
	if client == nil {
		return "", false
	}
	return origin.CookieHeader(client)
}

// Probe checks the shared session and renews it when expired.
func (g *Gateway) Probe(ctx context.Context) error {
	return g.shared.Probe(ctx)
}

// RefreshCategories scrapes the taxonomy with the shared session and stores
// it for the next start.
func (g *Gateway) RefreshCategories(ctx context.Context) error {
	if g.loader == nil {
		return nil
	}
	_, err := run(ctx, g, "", func(ctx context.Context, c origin.Client) ([]types.Category, error) {
		return g.loader.Refresh(ctx, c)
	})
	return err
}

// Status summarizes the gateway for the status endpoint.
type Status struct {
	Strategy       origin.Mode       `json:"strategy"`
	Domain         string            `json:"domain"`
	LoggedIn       bool              `json:"loggedIn"`
	Categories     int               `json:"categories"`
	CategorySource categories.Source `json:"categorySource,omitempty"`
	ExternalIDs    bool              `json:"externalIds"`
	Turbo          bool              `json:"turbo"`
}

// Status reports the current state.
func (g *Gateway) Status() Status {
	manager := g.shared.Manager()
	return Status{
		Strategy:       manager.Strategy(),
		Domain:         manager.Site().Domain,
		LoggedIn:       g.shared.Client() != nil,
		Categories:     len(g.catalog.All()),
		CategorySource: g.catalog.Source(),
		ExternalIDs:    g.resolver.Enabled(),
		Turbo:          g.grab.Cooldown() == 0,
	}
}

// SetCooldownSleeper replaces how the download cooldown is waited out.
func (g *Gateway) SetCooldownSleeper(sleep func(time.Duration)) {
	g.grab.SetSleeper(sleep)
}

// Cooldown is the wait between token and download, zero in turbo mode.
func (g *Gateway) Cooldown() time.Duration {
	return g.grab.Cooldown()
}
