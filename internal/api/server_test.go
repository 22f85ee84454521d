package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ygggate/ygggate/internal/gateway"
	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/indexer/grab"
	"github.com/ygggate/ygggate/internal/indexer/session"
	"github.com/ygggate/ygggate/internal/indexer/types"
	"github.com/ygggate/ygggate/internal/logger"
	"github.com/ygggate/ygggate/internal/metadata/tmdb"
)

type fakeEngine struct {
	lastCookie  string
	lastSearch  gateway.SearchRequest
	torrents    []types.Torrent
	searchErr   error
	downloadErr error
	remaining   int
	remainErr   error
	authErr     error
}

func (f *fakeEngine) Search(_ context.Context, cookie string, req gateway.SearchRequest) ([]types.Torrent, error) {
	f.lastCookie, f.lastSearch = cookie, req
	return f.torrents, f.searchErr
}

func (f *fakeEngine) Download(_ context.Context, cookie string, id int64) (*grab.File, error) {
	f.lastCookie = cookie
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return &grab.File{ID: id, Data: []byte("d8:announce0:e")}, nil
}

func (f *fakeEngine) Remaining(context.Context, string) (int, error) {
	return f.remaining, f.remainErr
}

func (f *fakeEngine) Account(context.Context, string) (*types.Account, error) {
	return &types.Account{Username: "alice", Ratio: 1.5}, nil
}

func (f *fakeEngine) Categories() []types.Category {
	return []types.Category{{ID: 2145, Name: "Film/Vidéo"}}
}

func (f *fakeEngine) Authenticate(_ context.Context, creds session.Credentials) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return "ygg_=" + creds.Username, nil
}

func (f *fakeEngine) CookieHeader(cookie string) (string, bool) {
	if cookie != "" {
		return cookie, true
	}
	return "ygg_=shared", true
}

func (f *fakeEngine) Status() gateway.Status {
	return gateway.Status{LoggedIn: true, Categories: 1}
}

type fakeLogs struct {
	entries []logger.LogEntry
	path    string
}

func (f *fakeLogs) GetRecentLogs() []logger.LogEntry { return f.entries }
func (f *fakeLogs) GetLogFilePath() string           { return f.path }

func newTestServer(engine *fakeEngine, logs LogsProvider) *Server {
	return NewServer(engine, Options{Logs: logs}, zerolog.Nop())
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSearch_ParsesParameters(t *testing.T) {
	engine := &fakeEngine{torrents: []types.Torrent{{ID: 1, Name: "Vaiana"}}}
	s := newTestServer(engine, nil)

	rec := get(t, s, "/search?name=Vaiana&sort=name&order=asc&offset=50&category=2183"+
		"&categories=2145,2139&categories=2144&ban_words=cam,ts&quote_search=true&connarr=1&q=fallback&cookie=ygg_%3Dmine")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req := engine.lastSearch
	assert.Equal(t, "Vaiana", req.Params.Name)
	assert.Equal(t, types.SortName, req.Params.Sort)
	assert.Equal(t, types.OrderAsc, req.Params.Order)
	assert.Equal(t, 50, req.Params.Offset)
	assert.Equal(t, 2183, req.Params.Category)
	assert.Equal(t, []int{2145, 2139, 2144}, req.Categories)
	assert.Equal(t, []string{"cam", "ts"}, req.Params.BanWords)
	assert.True(t, req.Params.QuoteSearch)
	assert.True(t, req.Connarr)
	assert.Equal(t, "fallback", req.Query)
	assert.Nil(t, req.ExternalID)
	assert.Equal(t, "ygg_=mine", engine.lastCookie)
	assert.Equal(t, "ygg_=mine", rec.Header().Get(SessionCookiesHeader))

	var torrents []types.Torrent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &torrents))
	assert.Len(t, torrents, 1)
}

func TestSearch_ConnarrPresence(t *testing.T) {
	for target, want := range map[string]bool{
		"/search?connarr":       true,
		"/search?connarr=":      true,
		"/search?connarr=yes":   true,
		"/search?connarr=false": true,
		"/search?name=x":        false,
	} {
		t.Run(target, func(t *testing.T) {
			engine := &fakeEngine{torrents: []types.Torrent{}}
			s := newTestServer(engine, nil)
			require.Equal(t, http.StatusOK, get(t, s, target).Code)
			assert.Equal(t, want, engine.lastSearch.Connarr)
		})
	}
}

func TestSearch_ExternalID(t *testing.T) {
	engine := &fakeEngine{torrents: []types.Torrent{}}
	s := newTestServer(engine, nil)

	rec := get(t, s, "/search?imdbid=tt0133093")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, engine.lastSearch.ExternalID)
	assert.Equal(t, tmdb.SourceIMDB, engine.lastSearch.ExternalID.Source)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestSearch_BadParameters(t *testing.T) {
	s := newTestServer(&fakeEngine{}, nil)
	for _, target := range []string{
		"/search?sort=size",
		"/search?order=sideways",
		"/search?offset=-1",
		"/search?category=films",
		"/search?categories=1,x",
	} {
		t.Run(target, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, get(t, s, target).Code)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"expired", indexer.NewSessionExpiredError(indexer.PhaseSearch, 302), http.StatusUnauthorized},
		{"credentials", indexer.NewInvalidCredentialsError(401), http.StatusUnauthorized},
		{"quota", indexer.NewQuotaExhaustedError(), http.StatusTooManyRequests},
		{"ratio", indexer.NewRatioInsufficientError(3), http.StatusForbidden},
		{"token", indexer.NewTokenMissingError(), http.StatusInternalServerError},
		{"search", indexer.NewSearchError(500, nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeEngine{downloadErr: tt.err}, nil)
			rec := get(t, s, "/torrent/42")
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.err.Error())
		})
	}
}

func TestDownloadTorrent(t *testing.T) {
	s := newTestServer(&fakeEngine{}, nil)

	rec := get(t, s, "/torrent/42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-bittorrent", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="42.torrent"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "d8:announce0:e", rec.Body.String())
	assert.Equal(t, "ygg_=shared", rec.Header().Get(SessionCookiesHeader))

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/torrent/abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/torrent/0").Code)
}

func TestRemaining(t *testing.T) {
	s := newTestServer(&fakeEngine{remaining: 7}, nil)
	assert.Equal(t, "7\n", get(t, s, "/remain").Body.String())

	s = newTestServer(&fakeEngine{remainErr: indexer.NewSessionExpiredError(indexer.PhaseRemaining, 302)}, nil)
	rec := get(t, s, "/remain")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "-1\n", rec.Body.String())
}

func TestAuth(t *testing.T) {
	s := newTestServer(&fakeEngine{}, nil)
	rec := get(t, s, "/auth?user=bob&pass=x")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ygg_=bob", rec.Body.String())

	s = newTestServer(&fakeEngine{authErr: indexer.NewInvalidCredentialsError(401)}, nil)
	assert.Equal(t, http.StatusUnauthorized, get(t, s, "/auth?user=bob&pass=x").Code)

	s = newTestServer(&fakeEngine{authErr: gateway.ErrNoCookieHeader}, nil)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/auth?user=bob&pass=x").Code)
}

func TestStatusAndCategories(t *testing.T) {
	s := newTestServer(&fakeEngine{}, nil)

	rec := get(t, s, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Gateway.LoggedIn)
	assert.Empty(t, status.Tasks)

	rec = get(t, s, "/categories")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":2145`)

	assert.Equal(t, http.StatusOK, get(t, s, "/health").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/metrics").Code)
}

func TestLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), logger.FileName)
	require.NoError(t, os.WriteFile(path, []byte("line\n"), 0o644))
	logs := &fakeLogs{path: path, entries: []logger.LogEntry{
		{Level: "info", Message: "a"},
		{Level: "error", Message: "b"},
		{Level: "info", Message: "c"},
	}}
	s := newTestServer(&fakeEngine{}, logs)

	var entries []logger.LogEntry
	rec := get(t, s, "/logs?level=info&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "c", entries[0].Message)

	rec = get(t, s, "/logs/download")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), logger.FileName)
	assert.Equal(t, "line\n", rec.Body.String())
}
