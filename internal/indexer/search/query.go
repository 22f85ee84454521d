package search

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ygggate/ygggate/internal/indexer/types"
	"github.com/ygggate/ygggate/internal/origin"
)

// CategoryLookup resolves a category ID to the origin's category and
// sub_category query values.
type CategoryLookup interface {
	Lookup(id int) (category, subCategory string, ok bool)
}

// BuildURL renders the origin search URL for params. Parameters are appended
// in the order the origin's own form submits them.
func BuildURL(site origin.Site, params types.SearchParams, categories CategoryLookup) string {
	name := params.Name
	if params.QuoteSearch {
		name = QuoteWords(name)
	}

	var b strings.Builder
	b.WriteString(site.URL(origin.SearchPath))
	b.WriteString("?name=")
	b.WriteString(escape(name))

	// page=0 is the origin's first page, so a zero offset is left out.
	if params.Offset > 0 {
		b.WriteString("&page=" + strconv.Itoa(params.Offset))
	}
	if params.Category != 0 && categories != nil {
		if cat, sub, ok := categories.Lookup(params.Category); ok {
			b.WriteString("&category=" + cat)
			b.WriteString("&sub_category=" + sub)
		}
	}
	if params.SubCategory != 0 {
		b.WriteString("&sub_category=" + strconv.Itoa(params.SubCategory))
	}
	if params.Sort != types.SortNone {
		b.WriteString("&sort=" + string(params.Sort))
	}
	if params.Order != types.OrderNone {
		b.WriteString("&order=" + string(params.Order))
	}
	b.WriteString("&do=search")
	return b.String()
}

// QuoteWords turns every word of a (possibly form-encoded) query into an
// exact-phrase token: `the matrix` becomes `"the" "matrix"`.
func QuoteWords(name string) string {
	if name == "" {
		return ""
	}
	if decoded, err := url.QueryUnescape(name); err == nil {
		name = decoded
	}

	words := strings.FieldsFunc(name, func(r rune) bool { return r == '+' || r == ' ' })
	for i, w := range words {
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}

// escape percent-encodes s with spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
