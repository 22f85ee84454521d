package gateway

import (
	"context"

	"github.com/ygggate/ygggate/internal/indexer/types"
	"github.com/ygggate/ygggate/internal/metadata/tmdb"
	"github.com/ygggate/ygggate/internal/origin"
)

// maxConnarrCategories is the largest category list kept for *arr callers;
// longer lists are their "everything" default and only slow the search down.
const maxConnarrCategories = 2

// SearchRequest is one logical search as received from a client.
type SearchRequest struct {
	Params types.SearchParams
	// Query is the Torznab "q" parameter, used when Params.Name is empty.
	Query string
	// Categories fans the search out over several categories.
	Categories []int
	// Connarr marks requests from Sonarr/Radarr-style clients.
	Connarr bool
	// ExternalID replaces the text query with the titles it resolves to.
	ExternalID *tmdb.ExternalID
}

// plan is what a SearchRequest turns into.
type plan string

const (
	planSingle     plan = "single"
	planCategories plan = "categories"
	planExternalID plan = "external-id"
	planNothing    plan = "none"
)

// normalize applies the caller-class defaults and picks the search plan.
func normalize(req SearchRequest, externalIDs bool) (SearchRequest, plan) {
	if req.ExternalID != nil {
		if !externalIDs {
			return req, planNothing
		}
		return req, planExternalID
	}

	if req.Connarr && len(req.Categories) > maxConnarrCategories {
		req.Categories = nil
	}
	if req.Params.Name == "" {
		req.Params.Name = req.Query
	}
	if req.Params.Name == "" && req.Connarr {
		// RSS sync: newest first.
		req.Params.Sort = types.SortPublishDate
		req.Params.Order = types.OrderDesc
	}

	if req.Params.Category == 0 && len(req.Categories) > 0 {
		return req, planCategories
	}
	return req, planSingle
}

// Search runs a logical search. The result is never nil.
func (g *Gateway) Search(ctx context.Context, cookie string, req SearchRequest) ([]types.Torrent, error) {
	req, p := normalize(req, g.resolver.Enabled())
	log := g.logger.With().Str("name", req.Params.Name).Str("plan", string(p)).Logger()

	var (
		torrents []types.Torrent
		err      error
	)
	switch p {
	case planNothing:
		log.Debug().Str("id", req.ExternalID.String()).Msg("External ID search without a TMDB token")
		return []types.Torrent{}, nil

	case planExternalID:
		queries, qerr := g.resolver.Queries(ctx, *req.ExternalID)
		if qerr != nil {
			log.Warn().Err(qerr).Str("id", req.ExternalID.String()).Msg("Failed to resolve external ID")
			return []types.Torrent{}, nil
		}
		if len(queries) == 0 {
			return []types.Torrent{}, nil
		}
		torrents, err = run(ctx, g, cookie, func(ctx context.Context, c origin.Client) ([]types.Torrent, error) {
			return g.search.BatchBest(ctx, c, queries, req.Params)
		})

	case planCategories:
		torrents, err = run(ctx, g, cookie, func(ctx context.Context, c origin.Client) ([]types.Torrent, error) {
			return g.search.BatchCategories(ctx, c, req.Categories, req.Params)
		})

	default:
		torrents, err = run(ctx, g, cookie, func(ctx context.Context, c origin.Client) ([]types.Torrent, error) {
			return g.search.Search(ctx, c, req.Params)
		})
	}

	if err != nil {
		return nil, err
	}
	if torrents == nil {
		torrents = []types.Torrent{}
	}
	return torrents, nil
}
