package parser

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/indexer/types"
)

// ParseCategories reads the taxonomy from the search form: the top-level
// <select name="category"> and one <select name="sub_category"
// data-category="ID"> per top-level category.
func ParseCategories(body []byte) ([]types.Category, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, indexer.NewParseError(indexer.PhaseCategory, "unreadable search form", err)
	}

	var categories []types.Category
	doc.Find(`select[name="category"] option`).Each(func(_ int, opt *goquery.Selection) {
		id, err := strconv.Atoi(attr(opt, "value"))
		if err != nil {
			return // "all"
		}

		cat := types.Category{ID: id, Name: text(opt)}
		doc.Find(`select[name="sub_category"][data-category="` + strconv.Itoa(id) + `"] option`).
			Each(func(_ int, sub *goquery.Selection) {
				subID, err := strconv.Atoi(attr(sub, "value"))
				if err != nil {
					return
				}
				cat.SubCategories = append(cat.SubCategories, types.SubCategory{ID: subID, Name: text(sub)})
			})
		categories = append(categories, cat)
	})

	if len(categories) == 0 {
		return nil, indexer.NewParseError(indexer.PhaseCategory, "search form lists no categories", nil)
	}
	return categories, nil
}
