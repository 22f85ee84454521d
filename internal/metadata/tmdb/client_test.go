package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/config"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.TMDBConfig{Token: "test-token", BaseURL: server.URL, Timeout: 5 * time.Second}
	return NewResolver(NewClient(cfg, zerolog.Nop()))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func movie(id int, fr, original, en string) map[string]any {
	return map[string]any{
		"id":             id,
		"title":          fr,
		"original_title": original,
		"translations": map[string]any{"translations": []map[string]any{
			{"iso_3166_1": "GB", "iso_639_1": "en", "data": map[string]string{"title": en + " (UK)"}},
			{"iso_3166_1": "US", "iso_639_1": "en", "data": map[string]string{"title": en}},
			{"iso_3166_1": "DE", "iso_639_1": "de", "data": map[string]string{"title": "Vaiana - Das Paradies hat einen Haken"}},
		}},
	}
}

func TestQueries_TMDBMovie(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Query().Get("language") != "fr-FR" || r.URL.Query().Get("append_to_response") != "translations" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.URL.Path != "/movie/277834" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, movie(277834, "Vaiana, la légende du bout du monde", "Moana", "Moana"))
	})

	queries, err := resolver.Queries(context.Background(), ExternalID{Source: SourceTMDB, Value: "277834"})
	if err != nil {
		t.Fatalf("Queries() error = %v", err)
	}
	want := []string{"Vaiana, la légende du bout du monde", "Moana"}
	if !reflect.DeepEqual(queries, want) {
		t.Errorf("Queries() = %v, want %v", queries, want)
	}
}

func TestQueries_TMDBFallsBackToSeries(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/1399":
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, ErrorResponse{StatusCode: 34, StatusMessage: "not found"})
		case "/tv/1399":
			writeJSON(w, map[string]any{"id": 1399, "name": "Le Trône de fer", "original_name": "Game of Thrones"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	queries, err := resolver.Queries(context.Background(), ExternalID{Source: SourceTMDB, Value: "1399"})
	if err != nil {
		t.Fatalf("Queries() error = %v", err)
	}
	want := []string{"Le Trône de fer", "Game of Thrones"}
	if !reflect.DeepEqual(queries, want) {
		t.Errorf("Queries() = %v, want %v", queries, want)
	}
}

func TestQueries_IMDB(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/find/tt3521164":
			if r.URL.Query().Get("external_source") != "imdb_id" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			writeJSON(w, map[string]any{"movie_results": []map[string]int{{"id": 277834}}, "tv_results": []any{}})
		case "/movie/277834":
			writeJSON(w, movie(277834, "Vaiana", "Moana", "Moana"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	queries, err := resolver.Queries(context.Background(), ExternalID{Source: SourceIMDB, Value: "3521164"})
	if err != nil {
		t.Fatalf("Queries() error = %v", err)
	}
	if !reflect.DeepEqual(queries, []string{"Vaiana", "Moana"}) {
		t.Errorf("Queries() = %v", queries)
	}
}

func TestQueries_Errors(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/find/tt0000001":
			writeJSON(w, FindResponse{})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	ctx := context.Background()

	if _, err := resolver.Queries(ctx, ExternalID{Source: SourceTMDB, Value: "abc"}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("non-numeric TMDB id error = %v", err)
	}
	if _, err := resolver.Queries(ctx, ExternalID{Source: SourceIMDB, Value: "tt0000001"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown IMDB id error = %v", err)
	}
	if _, err := resolver.Queries(ctx, ExternalID{Source: SourceTMDB, Value: "5"}); !errors.Is(err, ErrAPIError) {
		t.Errorf("unauthorized error = %v", err)
	}
}

func TestResolver_Enabled(t *testing.T) {
	if NewResolver(NewClient(config.TMDBConfig{}, zerolog.Nop())).Enabled() {
		t.Error("resolver without token should be disabled")
	}
	var nilResolver *Resolver
	if nilResolver.Enabled() {
		t.Error("nil resolver should be disabled")
	}
}
