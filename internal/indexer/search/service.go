// Package search runs queries against the origin's search engine and merges
// the results of fanned-out queries.
package search

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/indexer/ratelimit"
	"github.com/ygggate/ygggate/internal/indexer/types"
	"github.com/ygggate/ygggate/internal/metrics"
	"github.com/ygggate/ygggate/internal/origin"
)

// Batch thresholds for ID-expanded searches.
const (
	// A candidate with more results than this is taken as the answer.
	unambiguousResults = 5
	// A candidate with at least this many results joins the merge.
	mergeResults = 5
)

// Parser turns a result page into torrents in page order.
type Parser interface {
	ParseTorrents(body []byte) ([]types.Torrent, error)
}

// Service issues origin searches.
type Service struct {
	site       origin.Site
	limiter    *ratelimit.Limiter
	parser     Parser
	categories CategoryLookup
	logger     zerolog.Logger
}

// NewService creates a search service.
func NewService(site origin.Site, limiter *ratelimit.Limiter, parser Parser, categories CategoryLookup, logger zerolog.Logger) *Service {
	return &Service{
		site:       site,
		limiter:    limiter,
		parser:     parser,
		categories: categories,
		logger:     logger.With().Str("component", "search").Logger(),
	}
}

// Search runs one query. An expired session is reported as
// indexer.ErrSessionExpired; renewal is the caller's business.
func (s *Service) Search(ctx context.Context, client origin.Client, params types.SearchParams) ([]types.Torrent, error) {
	permit, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	target := BuildURL(s.site, params, s.categories)
	s.logger.Debug().
		Str("name", params.Name).
		Int("offset", params.Offset).
		Int("category", params.Category).
		Int("subCategory", params.SubCategory).
		Str("sort", string(params.Sort)).
		Str("order", string(params.Order)).
		Msg("Searching")

	start := time.Now()
	resp, err := client.Get(ctx, target)
	metrics.OriginRequestDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OriginRequests.WithLabelValues("search", metrics.OutcomeFailure).Inc()
		return nil, indexer.NewNetworkError(indexer.PhaseSearch, err)
	}

	if origin.IsSessionExpired(resp.Status, resp.URL) {
		metrics.OriginRequests.WithLabelValues("search", metrics.OutcomeExpired).Inc()
		return nil, indexer.NewSessionExpiredError(indexer.PhaseSearch, resp.Status)
	}
	if !resp.OK() {
		metrics.OriginRequests.WithLabelValues("search", metrics.OutcomeFailure).Inc()
		return nil, indexer.NewSearchError(resp.Status, nil)
	}

	torrents, err := s.parser.ParseTorrents(resp.Body)
	if err != nil {
		metrics.OriginRequests.WithLabelValues("search", metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.OriginRequests.WithLabelValues("search", metrics.OutcomeSuccess).Inc()

	torrents = FilterBanWords(torrents, params.BanWords)
	s.logger.Debug().
		Int("results", len(torrents)).
		Dur("elapsed", time.Since(start)).
		Msg("Search completed")
	return torrents, nil
}

// candidate is the outcome of one fanned-out query.
type candidate struct {
	label    string
	torrents []types.Torrent
	err      error
}

// fanOut runs one search per params concurrently and returns the outcomes
// indexed like params. Per-query failures are recorded, not returned.
func (s *Service) fanOut(ctx context.Context, client origin.Client, labels []string, params []types.SearchParams) []candidate {
	results := make([]candidate, len(params))

	var g errgroup.Group
	for i := range params {
		g.Go(func() error {
			torrents, err := s.Search(ctx, client, params[i])
			results[i] = candidate{label: labels[i], torrents: torrents, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// BatchBest runs one search per query and picks the best answer:
//   - the first query (in query order) with more than five results wins outright;
//   - otherwise queries with at least five results are merged, and a
//     non-empty query seen while nothing is merged yet is merged too.
//
// The outcome depends only on the per-query results, not on their completion
// order. Any expired query expires the whole batch.
func (s *Service) BatchBest(ctx context.Context, client origin.Client, queries []string, params types.SearchParams) ([]types.Torrent, error) {
	s.logger.Debug().Int("queries", len(queries)).Strs("candidates", queries).Msg("Starting batch search")

	batch := make([]types.SearchParams, len(queries))
	for i, q := range queries {
		batch[i] = params
		batch[i].Name = q
	}
	results := s.fanOut(ctx, client, queries, batch)

	for i, r := range results {
		if r.err == nil && len(r.torrents) > unambiguousResults {
			s.logger.Debug().Int("query", i+1).Str("name", r.label).Int("results", len(r.torrents)).
				Msg("Unambiguous match, ignoring other queries")
			types.SortTorrents(r.torrents, params.Sort, params.Order)
			return r.torrents, nil
		}
	}

	if err := firstExpired(results); err != nil {
		return nil, err
	}

	var collected []types.Torrent
	for i, r := range results {
		switch {
		case r.err != nil:
			s.logger.Warn().Err(r.err).Int("query", i+1).Str("name", r.label).Msg("Batch query failed")
		case len(r.torrents) >= mergeResults:
			collected = append(collected, r.torrents...)
		case len(r.torrents) > 0 && len(collected) == 0:
			s.logger.Debug().Int("query", i+1).Str("name", r.label).Int("results", len(r.torrents)).
				Msg("Keeping small result set as fallback")
			collected = append(collected, r.torrents...)
		}
	}

	merged := deduplicateTorrents(collected)
	types.SortTorrents(merged, params.Sort, params.Order)
	s.logger.Debug().Int("results", len(merged)).Msg("Batch search merged")
	return merged, nil
}

// BatchCategories searches every category and returns the union of the
// results. Failed categories are skipped unless the session expired.
func (s *Service) BatchCategories(ctx context.Context, client origin.Client, categoryIDs []int, params types.SearchParams) ([]types.Torrent, error) {
	s.logger.Debug().Ints("categories", categoryIDs).Msg("Starting category search")

	labels := make([]string, len(categoryIDs))
	batch := make([]types.SearchParams, len(categoryIDs))
	for i, id := range categoryIDs {
		batch[i] = params
		batch[i].Category = id
		labels[i] = "category " + strconv.Itoa(id)
	}
	results := s.fanOut(ctx, client, labels, batch)

	if err := firstExpired(results); err != nil {
		return nil, err
	}

	var collected []types.Torrent
	for _, r := range results {
		if r.err != nil {
			s.logger.Warn().Err(r.err).Str("query", r.label).Msg("Category query failed")
			continue
		}
		collected = append(collected, r.torrents...)
	}

	merged := deduplicateTorrents(collected)
	types.SortTorrents(merged, params.Sort, params.Order)
	s.logger.Debug().Int("results", len(merged)).Int("categories", len(categoryIDs)).Msg("Category search merged")
	return merged, nil
}

func firstExpired(results []candidate) error {
	for _, r := range results {
		if r.err != nil && indexer.IsSessionExpired(r.err) {
			return r.err
		}
	}
	return nil
}

// deduplicateTorrents drops repeated IDs, keeping the first occurrence.
// Identity is the site-assigned ID only. The result is never nil.
func deduplicateTorrents(torrents []types.Torrent) []types.Torrent {
	seen := make(map[int64]struct{}, len(torrents))
	result := make([]types.Torrent, 0, len(torrents))
	for _, t := range torrents {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		result = append(result, t)
	}
	return result
}

// FilterBanWords drops torrents whose name contains any ban word, ignoring case.
func FilterBanWords(torrents []types.Torrent, banWords []string) []types.Torrent {
	if len(banWords) == 0 {
		return torrents
	}

	fold := cases.Fold()
	words := make([]string, 0, len(banWords))
	for _, w := range banWords {
		if w = fold.String(strings.TrimSpace(w)); w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return torrents
	}

	filtered := torrents[:0:0]
	for _, t := range torrents {
		name := fold.String(t.Name)
		if !containsAny(name, words) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
