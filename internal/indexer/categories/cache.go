// Package categories holds the origin's category taxonomy.
//
// The taxonomy is loaded once at startup into an immutable Cache which is
// then shared by every search.
package categories

import (
	"strconv"

	"github.com/ygggate/ygggate/internal/indexer/types"
)

// All is the sub-category value meaning "every sub-category".
const All = "all"

// Cache is a read-only category taxonomy snapshot.
type Cache struct {
	categories []types.Category
}

// NewCache copies categories into a new snapshot.
func NewCache(categories []types.Category) *Cache {
	return &Cache{categories: clone(categories)}
}

// Lookup resolves id to the origin's category/sub_category pair: a top-level
// id gives (id, "all"), a sub-category id gives (parent, id).
func (c *Cache) Lookup(id int) (category, subCategory string, ok bool) {
	if c == nil {
		return "", "", false
	}
	for _, cat := range c.categories {
		if cat.ID == id {
			return strconv.Itoa(cat.ID), All, true
		}
		for _, sub := range cat.SubCategories {
			if sub.ID == id {
				return strconv.Itoa(cat.ID), strconv.Itoa(sub.ID), true
			}
		}
	}
	return "", "", false
}

// All returns a copy of the taxonomy.
func (c *Cache) All() []types.Category {
	if c == nil {
		return nil
	}
	return clone(c.categories)
}

// Len returns the number of top-level categories.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.categories)
}

func clone(categories []types.Category) []types.Category {
	out := make([]types.Category, len(categories))
	for i, cat := range categories {
		out[i] = types.Category{
			ID:            cat.ID,
			Name:          cat.Name,
			SubCategories: append([]types.SubCategory(nil), cat.SubCategories...),
		}
	}
	return out
}
