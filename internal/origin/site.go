// Package origin addresses the origin index site and carries requests to it,
// either directly or through a browser-automation proxy.
package origin

import (
	"fmt"
	"net/url"
	"strings"
)

// Origin paths.
const (
	LoginPagePath     = "/auth/login"
	LoginProcessPath  = "/auth/process_login"
	SearchPath        = "/engine/search"
	DownloadTimerPath = "/engine/start_download_timer"
	DownloadPath      = "/engine/download_torrent"
	AccountPath       = "/user/account"

	// RemainingProbePath is an ordinary content page whose sidebar shows the
	// "downloads left today" counter.
	RemainingProbePath = "/torrent/application/windows/316475-microsoft-toolkit-v2-6-4-activateur-office-2016---2019-windows-10"

	// SessionCookiePrefix prefixes the cookie the origin issues to a browser
	// that fetched the login page.
	SessionCookiePrefix = "ygg_"
)

// Site is the origin's current address. Scheme defaults to https.
type Site struct {
	Scheme string
	Domain string
}

// NewSite returns a Site for domain, accepting an optional scheme prefix.
func NewSite(domain string) Site {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), "/")
	if i := strings.Index(domain, "://"); i >= 0 {
		return Site{Scheme: domain[:i], Domain: domain[i+3:]}
	}
	return Site{Scheme: "https", Domain: domain}
}

func (s Site) scheme() string {
	if s.Scheme == "" {
		return "https"
	}
	return s.Scheme
}

// Host returns the domain without any port.
func (s Site) Host() string {
	if u, err := url.Parse(s.scheme() + "://" + s.Domain); err == nil {
		return u.Hostname()
	}
	return s.Domain
}

// URL joins path onto the site root.
func (s Site) URL(path string) string {
	return s.scheme() + "://" + s.Domain + path
}

// Root is the site root, used for probes and as the cookie scope.
func (s Site) Root() string { return s.URL("/") }

// RootURL is Root parsed.
func (s Site) RootURL() *url.URL {
	u, _ := url.Parse(s.Root())
	return u
}

func (s Site) LoginPage() string    { return s.URL(LoginPagePath) }
func (s Site) LoginProcess() string { return s.URL(LoginProcessPath) }
func (s Site) DownloadTimer() string {
	return s.URL(DownloadTimerPath)
}
func (s Site) Account() string        { return s.URL(AccountPath) }
func (s Site) RemainingProbe() string { return s.URL(RemainingProbePath) }

// Download is the signed download URL for a torrent.
func (s Site) Download(id int64, token string) string {
	return fmt.Sprintf("%s?id=%d&token=%s", s.URL(DownloadPath), id, url.QueryEscape(token))
}

// IsSessionExpired reports whether a response means the session is gone:
// a 302/307 redirect, or a final URL back on the login page.
func IsSessionExpired(status int, finalURL string) bool {
	if status == 302 || status == 307 {
		return true
	}
	return strings.Contains(finalURL, LoginPagePath)
}
