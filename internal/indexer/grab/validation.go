package grab

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
)

var (
	ErrInvalidTorrent = errors.New("invalid torrent file")
	ErrHTMLResponse   = errors.New("received HTML instead of a torrent")
	ErrEmptyContent   = errors.New("empty content")
)

// Metadata is what the gateway reads out of a downloaded torrent.
type Metadata struct {
	InfoHash string
	Name     string
	Length   int64
}

// Inspect checks that content is a bencoded torrent and extracts its
// info-hash, name and total length.
func Inspect(content []byte) (*Metadata, error) {
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}
	if isHTMLContent(content) {
		return nil, ErrHTMLResponse
	}

	mi, err := metainfo.Load(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTorrent, err)
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: bad info dictionary: %v", ErrInvalidTorrent, err)
	}

	return &Metadata{
		InfoHash: mi.HashInfoBytes().HexString(),
		Name:     info.BestName(),
		Length:   info.TotalLength(),
	}, nil
}

// isHTMLContent checks if the content appears to be HTML.
func isHTMLContent(content []byte) bool {
	checkLen := min(len(content), 1024)
	check := strings.ToLower(string(content[:checkLen]))

	for _, indicator := range []string{"<!doctype html", "<html", "<head", "<body"} {
		if strings.Contains(check, indicator) {
			return true
		}
	}
	return false
}
