package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ygggate/ygggate/internal/indexer"
	"github.com/ygggate/ygggate/internal/indexer/types"
)

const quotaReachedMarker = "Limite atteinte"

// UnknownRemaining is reported when the page shows no counter at all.
const UnknownRemaining = math.MaxUint16

// ParseRemainingDownloads reads the "downloads left today" counter shown on
// content pages as <small style="color: #888;"><strong>N/M</strong></small>.
func ParseRemainingDownloads(body []byte) (int, error) {
	if strings.Contains(string(body), quotaReachedMarker) {
		return 0, nil
	}

	doc, err := newDocument(body)
	if err != nil {
		return 0, indexer.NewParseError(indexer.PhaseRemaining, "unreadable page", err)
	}

	small := doc.Find(`small[style="color: #888;"]`).First()
	if small.Length() == 0 {
		return UnknownRemaining, nil
	}

	strong := small.Find("strong").First()
	if strong.Length() == 0 {
		return 0, indexer.NewParseError(indexer.PhaseRemaining, "counter has no value", nil)
	}

	parts := strings.Split(text(strong), "/")
	if len(parts) != 2 {
		return 0, indexer.NewParseError(indexer.PhaseRemaining, "counter is not N/M: "+text(strong), nil)
	}
	remaining, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, indexer.NewParseError(indexer.PhaseRemaining, "counter is not numeric", err)
	}
	return remaining, nil
}

// ParseAccount reads the account page's label/value table.
func ParseAccount(body []byte) (*types.Account, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, indexer.NewParseError(indexer.PhaseAccount, "unreadable account page", err)
	}

	account := &types.Account{}
	found := false
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSuffix(text(cells.Eq(0)), ":"))
		value := text(cells.Eq(1))

		switch strings.TrimSpace(label) {
		case "pseudo", "username":
			account.Username = value
			found = true
		case "upload", "envoyé":
			account.Uploaded = value
		case "download", "téléchargé":
			account.Downloaded = value
		case "ratio":
			account.Ratio, _ = strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
		}
	})

	if !found {
		return nil, indexer.NewParseError(indexer.PhaseAccount, "account page has no username", nil)
	}
	return account, nil
}
