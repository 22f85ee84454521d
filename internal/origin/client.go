package origin

import (
	"context"
	"net/http"
	"net/url"
)

// Mode names the transport strategy behind a Client.
type Mode string

const (
	ModeDirect  Mode = "direct"
	ModeProxied Mode = "proxied"
)

// Response is what any transport returns for a page.
type Response struct {
	Status int
	Body   []byte
	// URL is the final URL after any redirects the transport followed.
	URL string
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Client is a logged-in (or about to be) handle on the origin.
type Client interface {
	Get(ctx context.Context, url string) (*Response, error)
	PostForm(ctx context.Context, url string, form url.Values) (*Response, error)
	GetBytes(ctx context.Context, url string) (int, []byte, error)
	Mode() Mode
}

// CookieJar is the Direct-only access to a client's cookies.
type CookieJar interface {
	// Cookies returns the name/value pairs sent to the site root.
	Cookies() []*http.Cookie
	// ReplaceCookies atomically swaps the whole cookie set.
	ReplaceCookies(cookies []*http.Cookie)
	// AddCookies merges cookies into the current set.
	AddCookies(cookies []*http.Cookie)
}

// JarOf returns the client's cookie jar when it has one.
func JarOf(c Client) (CookieJar, bool) {
	holder, ok := c.(interface{ Jar() CookieJar })
	if !ok {
		return nil, false
	}
	jar := holder.Jar()
	return jar, jar != nil
}

// CookieHeader renders the client's cookies as a Cookie header value.
// Only Direct clients have one.
func CookieHeader(c Client) (string, bool) {
	jar, ok := JarOf(c)
	if !ok {
		return "", false
	}
	return FormatCookieHeader(jar.Cookies()), true
}
