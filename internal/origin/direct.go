package origin

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultDirectTimeout = 30 * time.Second

// browserHeaders is a desktop Chrome request profile.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
	"Sec-Ch-Ua":                 `"Google Chrome";v="137", "Chromium";v="137", "Not/A)Brand";v="24"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"Windows"`,
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "same-origin",
	"Upgrade-Insecure-Requests": "1",
}

// DirectConfig configures a DirectClient.
type DirectConfig struct {
	Site Site
	// LeakedIP, when set, is dialed instead of whatever public DNS returns for the site.
	LeakedIP string
	// OwnIP, when set, is sent as CF-Connecting-IP and X-Forwarded-For.
	OwnIP   string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// DirectClient talks to the origin over plain HTTPS with browser-like headers.
type DirectClient struct {
	site       Site
	ownIP      string
	jar        *SessionJar
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewDirectClient creates a client with an empty cookie jar.
func NewDirectClient(cfg DirectConfig) *DirectClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDirectTimeout
	}

	dialer := &net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: pinnedDialer(dialer, cfg.Site.Host(), cfg.LeakedIP),
		//nolint:gosec // the site is reached through a pinned IP whose certificate does not match
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		ForceAttemptHTTP2:   true,
		DisableCompression:  true,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 15 * time.Second,
	}

	jar := NewSessionJar(cfg.Site)

	return &DirectClient{
		site:  cfg.Site,
		ownIP: cfg.OwnIP,
		jar:   jar,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &decodingTransport{base: transport},
			Jar:       stdJar{jar},
			// Redirects are the expiry and quota signals; never follow them.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: cfg.Logger.With().Str("component", "origin-direct").Logger(),
	}
}

func pinnedDialer(dialer *net.Dialer, host, ip string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if ip != "" {
			if h, port, err := net.SplitHostPort(addr); err == nil && strings.EqualFold(h, host) {
				addr = net.JoinHostPort(ip, port)
			}
		}
		return dialer.DialContext(ctx, network, addr)
	}
}

// Mode implements Client.
func (c *DirectClient) Mode() Mode { return ModeDirect }

// Jar exposes the cookie jar; see JarOf.
func (c *DirectClient) Jar() CookieJar { return c.jar }

// SessionJar returns the concrete jar.
func (c *DirectClient) SessionJar() *SessionJar { return c.jar }

// Get implements Client.
func (c *DirectClient) Get(ctx context.Context, target string) (*Response, error) {
	return c.do(ctx, http.MethodGet, target, nil, "")
}

// PostForm implements Client.
func (c *DirectClient) PostForm(ctx context.Context, target string, form url.Values) (*Response, error) {
	return c.do(ctx, http.MethodPost, target, strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded; charset=UTF-8")
}

// GetBytes implements Client.
func (c *DirectClient) GetBytes(ctx context.Context, target string) (int, []byte, error) {
	resp, err := c.do(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		return 0, nil, err
	}
	return resp.Status, resp.Body, nil
}

func (c *DirectClient) do(ctx context.Context, method, target string, body io.Reader, contentType string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Origin", strings.TrimSuffix(c.site.Root(), "/"))
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	if c.ownIP != "" {
		req.Header.Set("CF-Connecting-IP", c.ownIP)
		req.Header.Set("X-Forwarded-For", c.ownIP)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("url", target).Msg("request failed")
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	return &Response{
		Status: resp.StatusCode,
		Body:   data,
		URL:    resp.Request.URL.String(),
	}, nil
}
