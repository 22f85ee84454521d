package origin

import (
	"context"
	"errors"
	"net/url"

	"github.com/ygggate/ygggate/internal/flaresolverr"
)

// ProxiedClient sends every request through a FlareSolverr browser. An empty
// session ID addresses the service without a persistent browser session.
type ProxiedClient struct {
	fs        *flaresolverr.Client
	sessionID string
}

// NewProxiedClient binds a client to a browser session.
func NewProxiedClient(fs *flaresolverr.Client, sessionID string) *ProxiedClient {
	return &ProxiedClient{fs: fs, sessionID: sessionID}
}

// Mode implements Client.
func (c *ProxiedClient) Mode() Mode { return ModeProxied }

// SessionID returns the bound browser session, possibly empty.
func (c *ProxiedClient) SessionID() string { return c.sessionID }

// Get implements Client.
func (c *ProxiedClient) Get(ctx context.Context, target string) (*Response, error) {
	resp, err := c.fs.Get(ctx, target, c.sessionID, nil)
	if err != nil {
		return nil, err
	}
	return fromSolution(resp)
}

// PostForm implements Client.
func (c *ProxiedClient) PostForm(ctx context.Context, target string, form url.Values) (*Response, error) {
	resp, err := c.fs.Post(ctx, target, form.Encode(), c.sessionID, nil)
	if err != nil {
		return nil, err
	}
	return fromSolution(resp)
}

// GetBytes implements Client. The browser hands back page text, so binary
// payloads arrive as their string form.
func (c *ProxiedClient) GetBytes(ctx context.Context, target string) (int, []byte, error) {
	resp, err := c.Get(ctx, target)
	if err != nil {
		return 0, nil, err
	}
	return resp.Status, resp.Body, nil
}

// Close destroys the browser session. Callers treat failures as best effort.
func (c *ProxiedClient) Close(ctx context.Context) error {
	if c.sessionID == "" {
		return nil
	}
	return c.fs.DestroySession(ctx, c.sessionID)
}

func fromSolution(resp *flaresolverr.Response) (*Response, error) {
	if resp.Solution == nil {
		return nil, errors.New("no solution in flaresolverr response")
	}
	return &Response{
		Status: resp.Solution.Status,
		Body:   []byte(resp.Solution.Response),
		URL:    resp.Solution.URL,
	}, nil
}
