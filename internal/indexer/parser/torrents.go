package parser

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/indexer/types"
)

// Result table columns.
const (
	colCategory = iota
	colName
	colNFO
	colComments
	colAge
	colSize
	colCompleted
	colSeeders
	colLeechers
	minColumns
)

// HTML parses origin pages. It holds no state.
type HTML struct{}

// New returns the HTML parser.
func New() HTML { return HTML{} }

// ParseTorrents implements the search result parser.
func (HTML) ParseTorrents(body []byte) ([]types.Torrent, error) {
	return ParseTorrents(body)
}

// ParseTorrents extracts result rows in page order. A page without a result
// table has no results. A row naming a torrent without a usable ID means the
// page layout changed and fails the whole page.
func ParseTorrents(body []byte) ([]types.Torrent, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, indexer.NewParseError(indexer.PhaseSearch, "unreadable result page", err)
	}

	var (
		torrents []types.Torrent
		rowErr   error
	)
	doc.Find("table.table tbody tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		nameLink := row.Find("a#torrent_name").First()
		if nameLink.Length() == 0 {
			return true
		}

		cells := row.Children()
		if cells.Length() < minColumns {
			rowErr = indexer.NewParseError(indexer.PhaseSearch,
				"result row "+strconv.Itoa(i)+" has "+strconv.Itoa(cells.Length())+" columns", nil)
			return false
		}

		href := attr(nameLink, "href")
		id := torrentID(attr(row.Find("a#get_nfo"), "target"), href)
		if id == 0 {
			rowErr = indexer.NewParseError(indexer.PhaseSearch, "result row "+strconv.Itoa(i)+" has no torrent ID", nil)
			return false
		}

		var published time.Time
		if stamp, err := strconv.ParseInt(text(cells.Eq(colAge).Find("div.hidden")), 10, 64); err == nil {
			published = time.Unix(stamp, 0).UTC()
		}

		torrents = append(torrents, types.Torrent{
			ID:          id,
			Name:        text(nameLink),
			CategoryID:  atoi(text(cells.Eq(colCategory).Find("div.hidden"))),
			Size:        parseSize(ownText(cells.Eq(colSize))),
			Completed:   atoi(ownText(cells.Eq(colCompleted))),
			Seeders:     atoi(ownText(cells.Eq(colSeeders))),
			Leechers:    atoi(ownText(cells.Eq(colLeechers))),
			Comments:    atoi(ownText(cells.Eq(colComments))),
			PublishDate: published,
			InfoURL:     href,
		})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return torrents, nil
}

// torrentID prefers the NFO link target and falls back to the numeric
// prefix of the detail page slug ("/torrent/.../1234567-name").
func torrentID(nfoTarget, href string) int64 {
	if id, err := strconv.ParseInt(nfoTarget, 10, 64); err == nil && id > 0 {
		return id
	}

	slug := path.Base(strings.TrimSuffix(href, "/"))
	if i := strings.IndexByte(slug, '-'); i > 0 {
		slug = slug[:i]
	}
	id, err := strconv.ParseInt(slug, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
