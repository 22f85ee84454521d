// Package account reads the logged-in user's standing from the origin.
package account

import (
	"context"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/indexer/parser"
	"github.com/ygggate/ygggate/internal/indexer/ratelimit"
	"github.com/ygggate/ygggate/internal/indexer/types"
	"github.com/ygggate/ygggate/internal/origin"
)

type Fetcher struct {
	site    origin.Site
	limiter *ratelimit.Limiter
}

func NewFetcher(site origin.Site, limiter *ratelimit.Limiter) *Fetcher {
	return &Fetcher{site: site, limiter: limiter}
}

// Fetch scrapes the account page.
func (f *Fetcher) Fetch(ctx context.Context, client origin.Client) (*types.Account, error) {
	permit, err := f.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	resp, err := client.Get(ctx, f.site.Account())
	if err != nil {
		return nil, indexer.NewNetworkError(indexer.PhaseAccount, err)
	}
	if origin.IsSessionExpired(resp.Status, resp.URL) {
		return nil, indexer.NewSessionExpiredError(indexer.PhaseAccount, resp.Status)
	}
	if !resp.OK() {
		return nil, indexer.NewRemoteServiceError(indexer.PhaseAccount, resp.Status, "account page unavailable")
	}
	return parser.ParseAccount(resp.Body)
}
