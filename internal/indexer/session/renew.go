package session

import (
	"context"
	"fmt"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/origin"
)

// maxRenewals bounds how often one operation may renew the session.
const maxRenewals = 1

// Do runs attempt with client. If it fails with an expired session and
// renewer is non-nil, the session is renewed and attempt runs once more with
// the renewed client. A second expiry is returned as is.
func Do[T any](ctx context.Context, client origin.Client, renewer Renewer, attempt func(context.Context, origin.Client) (T, error)) (T, error) {
	for renewals := 0; ; renewals++ {
		result, err := attempt(ctx, client)
		if err == nil || !indexer.IsSessionExpired(err) || renewer == nil {
			return result, err
		}
		if renewals >= maxRenewals {
			return result, fmt.Errorf("session still expired after renewal: %w", err)
		}

		client, err = renewer.Renew(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
	}
}
