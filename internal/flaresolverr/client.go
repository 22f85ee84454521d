// Package flaresolverr is a client for the FlareSolverr browser-automation service.
package flaresolverr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultMaxTimeout    = 60 * time.Second
	defaultCreateRetries = 3
	defaultRetryDelay    = 5 * time.Second
	statusOK             = "ok"
)

// Commands understood by the /v1 endpoint.
const (
	CmdRequestGet      = "request.get"
	CmdRequestPost     = "request.post"
	CmdSessionsCreate  = "sessions.create"
	CmdSessionsDestroy = "sessions.destroy"
)

// Request is the JSON command envelope.
type Request struct {
	Cmd        string        `json:"cmd"`
	URL        string        `json:"url,omitempty"`
	MaxTimeout int64         `json:"maxTimeout,omitempty"`
	PostData   string        `json:"postData,omitempty"`
	Session    string        `json:"session,omitempty"`
	Cookies    []CookieInput `json:"cookies,omitempty"`
}

// CookieInput is a cookie handed to the browser before navigating.
type CookieInput struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
}

// Response is the JSON answer of the service.
type Response struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Solution *Solution `json:"solution,omitempty"`
	Session  string    `json:"session,omitempty"`
}

// Solution is the page the browser ended up on.
type Solution struct {
	URL       string   `json:"url"`
	Status    int      `json:"status"`
	Response  string   `json:"response"`
	Cookies   []Cookie `json:"cookies"`
	UserAgent string   `json:"userAgent"`
}

// Cookie is a cookie held by the remote browser.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// Error is a non-"ok" answer or an HTTP failure of the service itself.
type Error struct {
	HTTPStatus int
	Message    string
}

func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("flaresolverr HTTP %d: %s", e.HTTPStatus, e.Message)
	}
	return "flaresolverr error: " + e.Message
}

// Config configures a Client.
type Config struct {
	URL        string
	MaxTimeout time.Duration
	// RetryDelay is the pause between sessions.create attempts
	RetryDelay time.Duration
	Logger     zerolog.Logger
}

// Client talks to one FlareSolverr instance.
type Client struct {
	endpoint   string
	maxTimeout time.Duration
	retryDelay time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a FlareSolverr client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("flaresolverr URL is required")
	}

	maxTimeout := cfg.MaxTimeout
	if maxTimeout <= 0 {
		maxTimeout = defaultMaxTimeout
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	base := strings.TrimSuffix(cfg.URL, "/")
	return &Client{
		endpoint:   base + "/v1",
		maxTimeout: maxTimeout,
		retryDelay: retryDelay,
		// The browser gets maxTimeout; leave headroom for the service itself.
		httpClient: &http.Client{Timeout: maxTimeout + 15*time.Second},
		logger:     cfg.Logger.With().Str("component", "flaresolverr").Str("url", base).Logger(),
	}, nil
}

// CreateSession opens a persistent browser session, retrying while the
// service warms up its browser.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	var sessionID string

	err := retry.Do(
		func() error {
			resp, err := c.send(ctx, Request{Cmd: CmdSessionsCreate, Session: uuid.NewString()})
			if err != nil {
				return err
			}
			if resp.Session == "" {
				return errors.New("no session ID in sessions.create response")
			}
			sessionID = resp.Session
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(defaultCreateRetries),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn().Err(err).Uint("attempt", n+1).Int("maxAttempts", defaultCreateRetries).
				Msg("sessions.create failed")
		}),
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	c.logger.Debug().Str("session", sessionID).Msg("Browser session created")
	return sessionID, nil
}

// DestroySession tears a browser session down.
func (c *Client) DestroySession(ctx context.Context, sessionID string) error {
	if _, err := c.send(ctx, Request{Cmd: CmdSessionsDestroy, Session: sessionID}); err != nil {
		return fmt.Errorf("destroy session %s: %w", sessionID, err)
	}
	return nil
}

// Get navigates the browser to url.
func (c *Client) Get(ctx context.Context, url, sessionID string, cookies []CookieInput) (*Response, error) {
	return c.send(ctx, Request{
		Cmd:        CmdRequestGet,
		URL:        url,
		MaxTimeout: c.maxTimeout.Milliseconds(),
		Session:    sessionID,
		Cookies:    cookies,
	})
}

// Post submits postData (application/x-www-form-urlencoded) to url.
func (c *Client) Post(ctx context.Context, url, postData, sessionID string, cookies []CookieInput) (*Response, error) {
	return c.send(ctx, Request{
		Cmd:        CmdRequestPost,
		URL:        url,
		MaxTimeout: c.maxTimeout.Milliseconds(),
		PostData:   postData,
		Session:    sessionID,
		Cookies:    cookies,
	})
}

func (c *Client) send(ctx context.Context, body Request) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().Str("cmd", body.Cmd).Str("target", body.URL).Msg("executing command")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseResponse(resp.StatusCode, raw)
}

// parseResponse decodes JSON first: the service reports application errors
// as HTTP 500 with a JSON body.
func parseResponse(httpStatus int, raw []byte) (*Response, error) {
	var parsed Response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if httpStatus < 200 || httpStatus >= 300 {
			return nil, &Error{HTTPStatus: httpStatus, Message: string(raw)}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if parsed.Status != statusOK {
		return nil, &Error{Message: parsed.Message}
	}
	return &parsed, nil
}

// HasCookiePrefix reports whether any cookie name starts with prefix.
func (s *Solution) HasCookiePrefix(prefix string) bool {
	if s == nil {
		return false
	}
	for _, c := range s.Cookies {
		if strings.HasPrefix(c.Name, prefix) {
			return true
		}
	}
	return false
}
