package tmdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Source is the database an external ID belongs to.
type Source string

const (
	SourceTMDB Source = "tmdb"
	SourceIMDB Source = "imdb"
)

// ExternalID is a caller-supplied title identifier.
type ExternalID struct {
	Source Source
	Value  string
}

func (id ExternalID) String() string {
	return string(id.Source) + ":" + id.Value
}

// Resolver expands an external ID into title queries.
type Resolver struct {
	client *Client
}

// NewResolver creates a resolver over client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// Enabled reports whether a token is configured.
func (r *Resolver) Enabled() bool {
	return r != nil && r.client.IsConfigured()
}

// Queries returns the French, original and English titles of id, without
// duplicates, in that order.
func (r *Resolver) Queries(ctx context.Context, id ExternalID) ([]string, error) {
	switch id.Source {
	case SourceIMDB:
		return r.fromIMDB(ctx, id.Value)
	case SourceTMDB:
		tmdbID, err := strconv.Atoi(strings.TrimSpace(id.Value))
		if err != nil || tmdbID <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
		}
		return r.fromTMDB(ctx, tmdbID)
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidID, id.Source)
	}
}

func (r *Resolver) fromIMDB(ctx context.Context, imdbID string) ([]string, error) {
	imdbID = strings.TrimSpace(imdbID)
	if !strings.HasPrefix(imdbID, "tt") {
		imdbID = "tt" + imdbID
	}

	found, err := r.client.Find(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	switch {
	case len(found.MovieResults) > 0:
		return r.movieQueries(ctx, found.MovieResults[0].ID)
	case len(found.TVResults) > 0:
		return r.seriesQueries(ctx, found.TVResults[0].ID)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, imdbID)
	}
}

// fromTMDB tries the ID as a movie, then as a series.
func (r *Resolver) fromTMDB(ctx context.Context, id int) ([]string, error) {
	queries, err := r.movieQueries(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return r.seriesQueries(ctx, id)
	}
	return queries, err
}

func (r *Resolver) movieQueries(ctx context.Context, id int) ([]string, error) {
	movie, err := r.client.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	return distinct(movie.Title, movie.OriginalTitle, movie.Translations.english()), nil
}

func (r *Resolver) seriesQueries(ctx context.Context, id int) ([]string, error) {
	series, err := r.client.GetSeries(ctx, id)
	if err != nil {
		return nil, err
	}
	return distinct(series.Name, series.OriginalName, series.Translations.english()), nil
}

func distinct(titles ...string) []string {
	out := make([]string, 0, len(titles))
	seen := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
