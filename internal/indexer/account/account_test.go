package account

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/indexer/ratelimit"
	"github.com/ygggate/ygggate/internal/origin"
	"github.com/ygggate/ygggate/internal/testutil"
)

func setup(t *testing.T, handler http.HandlerFunc) (*Fetcher, origin.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	site := origin.NewSite(server.URL)
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerSecond: 100, Burst: 10, MaxConcurrent: 2}, zerolog.Nop())
	client := origin.NewDirectClient(origin.DirectConfig{Site: site, Timeout: 5 * time.Second, Logger: zerolog.Nop()})
	return NewFetcher(site, limiter), client
}

func TestFetch(t *testing.T) {
	fetcher, client := setup(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != origin.AccountPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(testutil.AccountPage("alice", "1.2To", "800Go", "1,54")))
	})

	account, err := fetcher.Fetch(context.Background(), client)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if account.Username != "alice" || account.Uploaded != "1.2To" {
		t.Errorf("Fetch() = %+v", account)
	}
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"expired", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, origin.LoginPagePath, http.StatusFound)
		}, indexer.ErrSessionExpired},
		{"unavailable", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, indexer.ErrRemoteService},
		{"layout changed", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html></html>"))
		}, indexer.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher, client := setup(t, tt.handler)
			_, err := fetcher.Fetch(context.Background(), client)
			if !errors.Is(err, tt.want) {
				t.Errorf("Fetch() error = %v, want %v", err, tt.want)
			}
		})
	}
}
