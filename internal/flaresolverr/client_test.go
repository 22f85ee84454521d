package flaresolverr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{URL: server.URL + "/", RetryDelay: time.Millisecond, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return c
}

func TestCreateSession_RetriesUntilReady(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1", r.URL.Path)

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, CmdSessionsCreate, req.Cmd)

		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(Response{Status: "error", Message: "browser not ready"})
			return
		}
		_ = json.NewEncoder(w).Encode(Response{Status: "ok", Session: req.Session})
	})

	id, err := c.CreateSession(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateSession_GivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.CreateSession(context.Background())
	require.Error(t, err)

	var fsErr *Error
	require.True(t, errors.As(err, &fsErr))
	assert.Equal(t, http.StatusBadGateway, fsErr.HTTPStatus)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_SendsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, CmdRequestGet, req.Cmd)
		assert.Equal(t, "https://origin.test/auth/login", req.URL)
		assert.Equal(t, int64(60000), req.MaxTimeout)
		assert.Equal(t, "sess-1", req.Session)
		require.Len(t, req.Cookies, 1)
		assert.Equal(t, "account_created", req.Cookies[0].Name)

		_ = json.NewEncoder(w).Encode(Response{
			Status: "ok",
			Solution: &Solution{
				URL:     req.URL,
				Status:  200,
				Cookies: []Cookie{{Name: "ygg_", Value: "abc"}},
			},
		})
	})

	resp, err := c.Get(context.Background(), "https://origin.test/auth/login", "sess-1",
		[]CookieInput{{Name: "account_created", Value: "true", Domain: "origin.test"}})
	require.NoError(t, err)
	assert.True(t, resp.Solution.HasCookiePrefix("ygg_"))
	assert.False(t, resp.Solution.HasCookiePrefix("cf_"))
}

func TestPost_NonOKStatusIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "id=u&pass=p", req.PostData)
		_ = json.NewEncoder(w).Encode(Response{Status: "error", Message: "Timeout after 60.0 seconds."})
	})

	_, err := c.Post(context.Background(), "https://origin.test/auth/process_login", "id=u&pass=p", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Timeout after 60.0 seconds.")
}

func TestParseResponse_InvalidJSONOnSuccess(t *testing.T) {
	_, err := parseResponse(http.StatusOK, []byte("<html>"))
	require.Error(t, err)

	var fsErr *Error
	assert.False(t, errors.As(err, &fsErr))
}
