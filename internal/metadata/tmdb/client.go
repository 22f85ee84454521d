// Package tmdb turns TMDB and IMDB identifiers into title queries.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ygggate/ygggate/internal/config"
)

var (
	ErrTokenMissing = errors.New("TMDB token is not configured")
	ErrNotFound     = errors.New("title not found")
	ErrAPIError     = errors.New("TMDB API error")
	ErrRateLimited  = errors.New("TMDB API rate limited")
	ErrInvalidID    = errors.New("invalid external ID")
)

// Client is a TMDB API client authenticated with a v4 read token.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
		logger:     logger.With().Str("component", "tmdb").Logger(),
	}
}

// IsConfigured returns true if the token is set.
func (c *Client) IsConfigured() bool {
	return c.config.Token != ""
}

// Find looks up an IMDB ID.
func (c *Client) Find(ctx context.Context, imdbID string) (*FindResponse, error) {
	params := url.Values{}
	params.Set("external_source", "imdb_id")
	params.Set("language", "fr-FR")

	var result FindResponse
	if err := c.doRequest(ctx, "/find/"+url.PathEscape(imdbID), params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMovie returns a movie with its French title and translations.
func (c *Client) GetMovie(ctx context.Context, id int) (*MovieDetails, error) {
	var result MovieDetails
	if err := c.doRequest(ctx, fmt.Sprintf("/movie/%d", id), detailParams(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetSeries returns a TV series with its French name and translations.
func (c *Client) GetSeries(ctx context.Context, id int) (*TVDetails, error) {
	var result TVDetails
	if err := c.doRequest(ctx, fmt.Sprintf("/tv/%d", id), detailParams(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func detailParams() url.Values {
	params := url.Values{}
	params.Set("language", "fr-FR")
	params.Set("append_to_response", "translations")
	return params
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result any) error {
	if !c.IsConfigured() {
		return ErrTokenMissing
	}

	reqURL := c.config.BaseURL + path
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Debug().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid token", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
