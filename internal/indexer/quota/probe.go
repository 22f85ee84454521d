// Package quota reads the origin's "downloads left today" counter.
package quota

import (
	"context"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/indexer/parser"
	"github.com/ygggate/ygggate/internal/indexer/ratelimit"
	"github.com/ygggate/ygggate/internal/origin"
)

// Probe fetches a fixed content page whose sidebar carries the counter.
type Probe struct {
	site    origin.Site
	limiter *ratelimit.Limiter
}

// NewProbe creates a probe for site.
func NewProbe(site origin.Site, limiter *ratelimit.Limiter) *Probe {
	return &Probe{site: site, limiter: limiter}
}

// Remaining returns how many downloads the account has left today.
// parser.UnknownRemaining is returned when the page shows no counter.
func (p *Probe) Remaining(ctx context.Context, client origin.Client) (int, error) {
	permit, err := p.limiter.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer permit.Release()

	resp, err := client.Get(ctx, p.site.RemainingProbe())
	if err != nil {
		return 0, indexer.NewNetworkError(indexer.PhaseRemaining, err)
	}
	if origin.IsSessionExpired(resp.Status, resp.URL) {
		return 0, indexer.NewSessionExpiredError(indexer.PhaseRemaining, resp.Status)
	}
	if !resp.OK() {
		return 0, indexer.NewRemoteServiceError(indexer.PhaseRemaining, resp.Status, "probe page unavailable")
	}

	return parser.ParseRemainingDownloads(resp.Body)
}
