package gateway

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/config"
	"github.com/ygggate/ygggate/internal/database"
	"github.com/ygggate/ygggate/internal/flaresolverr"
	"github.com/ygggate/ygggate/internal/indexer/account"
	"github.com/ygggate/ygggate/internal/indexer/categories"
	"github.com/ygggate/ygggate/internal/indexer/grab"
	"github.com/ygggate/ygggate/internal/indexer/parser"
	"github.com/ygggate/ygggate/internal/indexer/quota"
	"github.com/ygggate/ygggate/internal/indexer/ratelimit"
	"github.com/ygggate/ygggate/internal/indexer/search"
	"github.com/ygggate/ygggate/internal/indexer/session"
	"github.com/ygggate/ygggate/internal/metadata/tmdb"
	"github.com/ygggate/ygggate/internal/origin"
)

// Build assembles a Gateway from configuration. db may be nil, in which case
// the category taxonomy is not persisted.
func Build(cfg *config.Config, db *database.DB, logger zerolog.Logger) (*Gateway, error) {
	site := origin.NewSite(cfg.Site.Domain)

	var fs *flaresolverr.Client
	if cfg.FlareSolverr.URL != "" {
		var err error
		fs, err = flaresolverr.NewClient(flaresolverr.Config{
			URL:        cfg.FlareSolverr.URL,
			MaxTimeout: cfg.FlareSolverr.MaxTimeout,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create flaresolverr client: %w", err)
		}
	}

	var store session.CookieStore
	if cfg.Account.UseSessions {
		store = session.NewFileStore(cfg.Site.SessionDir)
	}

	manager := session.NewManager(session.Config{
		Site:         site,
		LeakedIP:     cfg.Site.LeakedIP,
		OwnIP:        cfg.Site.OwnIP,
		Timeout:      cfg.Site.Timeout,
		FlareSolverr: fs,
	}, store, logger)

	shared := session.NewShared(manager, session.Credentials{
		Username: cfg.Account.Username,
		Password: cfg.Account.Password,
	}, cfg.Account.UseSessions, logger)

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		MaxConcurrent:     cfg.RateLimit.MaxConcurrent,
	}, logger)

	var categoryStore *categories.Store
	if db != nil {
		categoryStore = categories.NewStore(db.Conn())
	}

	catalog := NewCatalog()
	probe := quota.NewProbe(site, limiter)

	return New(Deps{
		Shared:   shared,
		Search:   search.NewService(site, limiter, parser.New(), catalog, logger),
		Grab:     grab.NewService(site, limiter, probe, grab.Config{Turbo: cfg.Download.Turbo, Cooldown: cfg.Download.Cooldown}, logger),
		Quota:    probe,
		Account:  account.NewFetcher(site, limiter),
		Loader:   categories.NewLoader(categoryStore, categories.NewScraper(site, limiter), logger),
		Catalog:  catalog,
		Resolver: tmdb.NewResolver(tmdb.NewClient(cfg.TMDB, logger)),
	}, logger), nil
}
