// Package parser extracts structured data from origin HTML pages.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var sizePattern = regexp.MustCompile(`([\d.]+)\s*([KMGTP]?)(?:I?[OB])?`)

func newDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// text extracts trimmed text content from a selection.
func text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.Text())
}

// attr extracts a trimmed attribute value from a selection.
func attr(sel *goquery.Selection, name string) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	val, _ := sel.Attr(name)
	return strings.TrimSpace(val)
}

// ownText is the selection's text without that of hidden helper nodes.
func ownText(sel *goquery.Selection) string {
	clone := sel.Clone()
	clone.Find(".hidden").Remove()
	return strings.TrimSpace(clone.Text())
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(s, " ", "")))
	return n
}

// parseSize converts "1.37Go" / "700 Mo" / "2.1 GB" to bytes.
func parseSize(s string) int64 {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	matches := sizePattern.FindStringSubmatch(s)
	if len(matches) < 2 {
		return 0
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0
	}

	var multiplier float64 = 1
	switch matches[2] {
	case "K":
		multiplier = 1 << 10
	case "M":
		multiplier = 1 << 20
	case "G":
		multiplier = 1 << 30
	case "T":
		multiplier = 1 << 40
	case "P":
		multiplier = 1 << 50
	}
	return int64(num * multiplier)
}
