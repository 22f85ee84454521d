package categories

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/indexer/ratelimit"
	"github.com/ygggate/ygggate/internal/indexer/types"
	"github.com/ygggate/ygggate/internal/origin"
	"github.com/ygggate/ygggate/internal/testutil"
)

var sample = []types.Category{
	{ID: 2145, Name: "Film/Vidéo", SubCategories: []types.SubCategory{{ID: 2183, Name: "Film"}, {ID: 2184, Name: "Série TV"}}},
	{ID: 2139, Name: "Audio", SubCategories: []types.SubCategory{{ID: 2148, Name: "Musique"}}},
}

const searchForm = `<form>
<select name="category"><option value="all">Tout</option><option value="2145">Film/Vidéo</option></select>
<select name="sub_category" data-category="2145"><option value="2183">Film</option></select>
</form>`

func TestCacheLookup(t *testing.T) {
	cache := NewCache(sample)

	tests := []struct {
		id      int
		wantCat string
		wantSub string
		wantOK  bool
	}{
		{2145, "2145", All, true},
		{2184, "2145", "2184", true},
		{2148, "2139", "2148", true},
		{9999, "", "", false},
	}

	for _, tt := range tests {
		cat, sub, ok := cache.Lookup(tt.id)
		if cat != tt.wantCat || sub != tt.wantSub || ok != tt.wantOK {
			t.Errorf("Lookup(%d) = (%q, %q, %v), want (%q, %q, %v)", tt.id, cat, sub, ok, tt.wantCat, tt.wantSub, tt.wantOK)
		}
	}
}

func TestCacheIsImmutable(t *testing.T) {
	input := []types.Category{{ID: 1, Name: "A", SubCategories: []types.SubCategory{{ID: 2, Name: "B"}}}}
	cache := NewCache(input)

	input[0].SubCategories[0].ID = 3
	all := cache.All()
	all[0].Name = "changed"

	if _, sub, ok := cache.Lookup(2); !ok || sub != "2" {
		t.Error("cache changed through the input slice")
	}
	if cache.All()[0].Name != "A" {
		t.Error("cache changed through All()")
	}
}

func TestNilCache(t *testing.T) {
	var cache *Cache
	if _, _, ok := cache.Lookup(2145); ok {
		t.Error("nil cache should not resolve anything")
	}
	if cache.Len() != 0 {
		t.Error("nil cache should be empty")
	}
}

func TestSeed(t *testing.T) {
	categories, err := Seed()
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	cache := NewCache(categories)
	if cache.Len() != 8 {
		t.Errorf("seed has %d categories, want 8", cache.Len())
	}
	if cat, sub, ok := cache.Lookup(2183); !ok || cat != "2145" || sub != "2183" {
		t.Errorf("Lookup(2183) = (%q, %q, %v)", cat, sub, ok)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	store := NewStore(tdb.Conn)
	ctx := context.Background()

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("fresh store has %d categories", len(empty))
	}

	if err := store.Save(ctx, sample); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// Saving again replaces rather than duplicates.
	if err := store.Save(ctx, sample[:1]); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != 2145 || len(loaded[0].SubCategories) != 2 {
		t.Fatalf("Load() = %+v", loaded)
	}
	if loaded[0].SubCategories[1].Name != "Série TV" {
		t.Errorf("sub-category order not kept: %+v", loaded[0].SubCategories)
	}
}

func newScraper(t *testing.T, handler http.HandlerFunc) (*Scraper, origin.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	site := origin.NewSite(server.URL)
	client := origin.NewDirectClient(origin.DirectConfig{Site: site, Timeout: 5 * time.Second, Logger: zerolog.Nop()})
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerSecond: 100, Burst: 10, MaxConcurrent: 2}, zerolog.Nop())
	return NewScraper(site, limiter), client
}

func TestLoader_ScrapesWhenStoreEmpty(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	store := NewStore(tdb.Conn)
	scraper, client := newScraper(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != origin.SearchPath {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(searchForm))
	})

	loader := NewLoader(store, scraper, zerolog.Nop())
	cache, source, err := loader.Load(context.Background(), client)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if source != SourceScrape || cache.Len() != 1 {
		t.Fatalf("Load() source = %s, len = %d", source, cache.Len())
	}

	// The scraped taxonomy was persisted and wins on the next start.
	_, source, err = NewLoader(store, nil, zerolog.Nop()).Load(context.Background(), nil)
	if err != nil || source != SourceStore {
		t.Fatalf("second Load() source = %s, err = %v", source, err)
	}
}

func TestLoader_FallsBackToSeed(t *testing.T) {
	scraper, client := newScraper(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, origin.LoginPagePath, http.StatusFound)
	})

	cache, source, err := NewLoader(nil, scraper, zerolog.Nop()).Load(context.Background(), client)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if source != SourceSeed || cache.Len() != 8 {
		t.Errorf("Load() source = %s, len = %d", source, cache.Len())
	}
}
