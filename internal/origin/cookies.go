package origin

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// ParseCookieHeader parses "name=value; name2=value2". Segments without a
// name=value shape are skipped, including entries with more than one '='.
func ParseCookieHeader(header string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.Split(part, "=")
		if len(kv) != 2 {
			continue
		}
		name := strings.TrimSpace(kv[0])
		if name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:  name,
			Value: strings.TrimSpace(kv[1]),
		})
	}
	return cookies
}

// FormatCookieHeader is the inverse of ParseCookieHeader.
func FormatCookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// HasCookiePrefix reports whether any cookie name starts with prefix.
func HasCookiePrefix(cookies []*http.Cookie, prefix string) bool {
	for _, c := range cookies {
		if strings.HasPrefix(c.Name, prefix) {
			return true
		}
	}
	return false
}

// SessionJar is an http.CookieJar scoped to one site whose contents can be
// swapped wholesale. Requests read it under a read lock; ReplaceCookies takes
// the write lock, so no request is ever built from a half-replaced set.
type SessionJar struct {
	mu   sync.RWMutex
	jar  *cookiejar.Jar
	root *url.URL
}

// NewSessionJar creates an empty jar for the site.
func NewSessionJar(site Site) *SessionJar {
	return &SessionJar{jar: newCookieJar(), root: site.RootURL()}
}

func newCookieJar() *cookiejar.Jar {
	// cookiejar.New never fails with a non-nil PublicSuffixList.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// SetCookies stores cookies set by a response.
func (j *SessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

// CookiesFor returns the cookies to send to u.
func (j *SessionJar) CookiesFor(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// Cookies returns the cookies sent to the site root.
func (j *SessionJar) Cookies() []*http.Cookie {
	return j.CookiesFor(j.root)
}

// ReplaceCookies swaps the jar for one holding exactly cookies.
func (j *SessionJar) ReplaceCookies(cookies []*http.Cookie) {
	fresh := newCookieJar()
	fresh.SetCookies(j.root, rootScoped(cookies))

	j.mu.Lock()
	j.jar = fresh
	j.mu.Unlock()
}

// AddCookies merges cookies scoped to the site root.
func (j *SessionJar) AddCookies(cookies []*http.Cookie) {
	j.SetCookies(j.root, rootScoped(cookies))
}

// Clear drops every cookie.
func (j *SessionJar) Clear() {
	j.ReplaceCookies(nil)
}

// stdJar adapts SessionJar to http.CookieJar, whose Cookies method takes a URL.
type stdJar struct{ *SessionJar }

func (s stdJar) Cookies(u *url.URL) []*http.Cookie { return s.CookiesFor(u) }

func rootScoped(cookies []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	return out
}
