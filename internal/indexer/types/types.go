// Package types contains shared type definitions for indexer packages.
package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Torrent is one row of an origin search result page.
// Identity is the site-assigned ID; every other field is mutable.
type Torrent struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	CategoryID  int       `json:"categoryId"`
	Size        int64     `json:"size"`
	Completed   int       `json:"completed"`
	Seeders     int       `json:"seeders"`
	Leechers    int       `json:"leechers"`
	Comments    int       `json:"comments"`
	PublishDate time.Time `json:"publishDate"`
	InfoURL     string    `json:"infoUrl,omitempty"`
}

// Sort is an origin sort key. The zero value means "keep page order".
type Sort string

const (
	SortNone        Sort = ""
	SortName        Sort = "name"
	SortSeed        Sort = "seed"
	SortComments    Sort = "comments"
	SortPublishDate Sort = "publish_date"
	SortCompleted   Sort = "completed"
	SortLeech       Sort = "leech"
)

// ParseSort validates a sort key as accepted by the origin.
func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case SortNone:
		return SortNone, nil
	case SortName:
		return SortName, nil
	case SortSeed:
		return SortSeed, nil
	case SortComments:
		return SortComments, nil
	case SortPublishDate:
		return SortPublishDate, nil
	case SortCompleted:
		return SortCompleted, nil
	case SortLeech:
		return SortLeech, nil
	default:
		return SortNone, fmt.Errorf("invalid sort value %q", s)
	}
}

// Order is a sort direction. The zero value means "unspecified".
type Order string

const (
	OrderNone Order = ""
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder validates a sort order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return OrderNone, nil
	case "asc", "ascending":
		return OrderAsc, nil
	case "desc", "descending":
		return OrderDesc, nil
	default:
		return OrderNone, fmt.Errorf("invalid order value %q", s)
	}
}

// SearchParams describes one logical query against the origin.
type SearchParams struct {
	Name        string
	Offset      int
	Category    int // 0 = none
	SubCategory int // 0 = none
	Sort        Sort
	Order       Order
	BanWords    []string
	QuoteSearch bool
}

// SortTorrents stable-sorts torrents in place. SortNone leaves the slice untouched.
// An unspecified order sorts descending.
func SortTorrents(torrents []Torrent, key Sort, order Order) {
	if key == SortNone {
		return
	}

	less := lessFunc(key)
	if less == nil {
		return
	}

	if order == OrderAsc {
		sort.SliceStable(torrents, func(i, j int) bool { return less(torrents[i], torrents[j]) })
		return
	}
	sort.SliceStable(torrents, func(i, j int) bool { return less(torrents[j], torrents[i]) })
}

func lessFunc(key Sort) func(a, b Torrent) bool {
	switch key {
	case SortName:
		return func(a, b Torrent) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortSeed:
		return func(a, b Torrent) bool { return a.Seeders < b.Seeders }
	case SortComments:
		return func(a, b Torrent) bool { return a.Comments < b.Comments }
	case SortPublishDate:
		return func(a, b Torrent) bool { return a.PublishDate.Before(b.PublishDate) }
	case SortCompleted:
		return func(a, b Torrent) bool { return a.Completed < b.Completed }
	case SortLeech:
		return func(a, b Torrent) bool { return a.Leechers < b.Leechers }
	default:
		return nil
	}
}

// Category is a top-level origin category.
type Category struct {
	ID            int           `json:"id" yaml:"id"`
	Name          string        `json:"name" yaml:"name"`
	SubCategories []SubCategory `json:"subCategories" yaml:"sub_categories"`
}

// SubCategory belongs to exactly one Category.
type SubCategory struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Account is the logged-in user's standing on the origin.
type Account struct {
	Username   string  `json:"username"`
	Uploaded   string  `json:"uploaded"`
	Downloaded string  `json:"downloaded"`
	Ratio      float64 `json:"ratio"`
}
