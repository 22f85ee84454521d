package gateway

import (
	"sync/atomic"

	"github.com/ygggate/ygggate/internal/indexer/categories"
	"github.com/ygggate/ygggate/internal/indexer/types"
)

// Catalog holds the process-wide category taxonomy. It is set once; until
// then every lookup misses and searches carry no category filter.
type Catalog struct {
	cache  atomic.Pointer[categories.Cache]
	source atomic.Value // categories.Source
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Set installs cache. Only the first call has an effect.
func (c *Catalog) Set(cache *categories.Cache, source categories.Source) bool {
	if !c.cache.CompareAndSwap(nil, cache) {
		return false
	}
	c.source.Store(source)
	return true
}

// Lookup implements search.CategoryLookup.
func (c *Catalog) Lookup(id int) (string, string, bool) {
	return c.cache.Load().Lookup(id)
}

// All returns a copy of the taxonomy, empty before Set.
func (c *Catalog) All() []types.Category {
	if cache := c.cache.Load(); cache != nil {
		return cache.All()
	}
	return []types.Category{}
}

// Source reports where the taxonomy came from, empty before Set.
func (c *Catalog) Source() categories.Source {
	s, _ := c.source.Load().(categories.Source)
	return s
}
