package categories

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/indexer/parser"
	"github.com/ygggate/ygggate/internal/indexer/ratelimit"
	"github.com/ygggate/ygggate/internal/indexer/types"
	"github.com/ygggate/ygggate/internal/origin"
)

// Source names where a loaded taxonomy came from.
type Source string

const (
	SourceStore  Source = "store"
	SourceScrape Source = "scrape"
	SourceSeed   Source = "seed"
)

// Scraper reads the taxonomy off the origin's search form.
type Scraper struct {
	site    origin.Site
	limiter *ratelimit.Limiter
}

// NewScraper creates a scraper for site.
func NewScraper(site origin.Site, limiter *ratelimit.Limiter) *Scraper {
	return &Scraper{site: site, limiter: limiter}
}

// Scrape fetches the search form with client and parses its selects.
func (s *Scraper) Scrape(ctx context.Context, client origin.Client) ([]types.Category, error) {
	permit, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	resp, err := client.Get(ctx, s.site.URL(origin.SearchPath))
	if err != nil {
		return nil, indexer.NewNetworkError(indexer.PhaseCategory, err)
	}
	if origin.IsSessionExpired(resp.Status, resp.URL) {
		return nil, indexer.NewSessionExpiredError(indexer.PhaseCategory, resp.Status)
	}
	if !resp.OK() {
		return nil, indexer.NewRemoteServiceError(indexer.PhaseCategory, resp.Status, "search form unavailable")
	}
	return parser.ParseCategories(resp.Body)
}

// Loader builds the startup Cache.
type Loader struct {
	store   *Store
	scraper *Scraper
	logger  zerolog.Logger
}

// NewLoader creates a loader. Either collaborator may be nil.
func NewLoader(store *Store, scraper *Scraper, logger zerolog.Logger) *Loader {
	return &Loader{
		store:   store,
		scraper: scraper,
		logger:  logger.With().Str("component", "categories").Logger(),
	}
}

// Load tries the store, then a scrape with client, then the bundled seed.
// A taxonomy not read from the store is written back to it.
func (l *Loader) Load(ctx context.Context, client origin.Client) (*Cache, Source, error) {
	if l.store != nil {
		categories, err := l.store.Load(ctx)
		switch {
		case err != nil:
			l.logger.Warn().Err(err).Msg("Failed to read stored categories")
		case len(categories) > 0:
			l.logger.Info().Int("count", len(categories)).Msg("Categories loaded from database")
			return NewCache(categories), SourceStore, nil
		}
	}

	var errs []error
	if l.scraper != nil && client != nil {
		categories, err := l.scraper.Scrape(ctx, client)
		if err == nil {
			l.persist(ctx, categories)
			l.logger.Info().Int("count", len(categories)).Msg("Categories scraped from origin")
			return NewCache(categories), SourceScrape, nil
		}
		l.logger.Warn().Err(err).Msg("Category scrape failed, using bundled taxonomy")
		errs = append(errs, err)
	}

	categories, err := Seed()
	if err != nil {
		errs = append(errs, err)
		return nil, "", fmt.Errorf("no category taxonomy available: %w", errors.Join(errs...))
	}
	l.persist(ctx, categories)
	l.logger.Info().Int("count", len(categories)).Msg("Categories loaded from bundled seed")
	return NewCache(categories), SourceSeed, nil
}

func (l *Loader) persist(ctx context.Context, categories []types.Category) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(ctx, categories); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to store categories")
	}
}

// Refresh scrapes the taxonomy and stores it for the next start. The
// running process keeps the Cache it started with.
func (l *Loader) Refresh(ctx context.Context, client origin.Client) ([]types.Category, error) {
	if l.scraper == nil {
		return nil, errors.New("no category scraper configured")
	}
	categories, err := l.scraper.Scrape(ctx, client)
	if err != nil {
		return nil, err
	}
	if l.store != nil {
		if err := l.store.Save(ctx, categories); err != nil {
			return nil, fmt.Errorf("failed to store categories: %w", err)
		}
	}
	l.logger.Info().Int("count", len(categories)).Msg("Category taxonomy refreshed")
	return categories, nil
}
