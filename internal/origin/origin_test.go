package origin

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

func TestParseCookieHeader_SkipsMalformed(t *testing.T) {
	cookies := ParseCookieHeader("ygg_=abc; broken; =nameless; account_created=true;; cf_clearance=x=y")

	want := map[string]string{
		"ygg_":            "abc",
		"account_created": "true",
	}
	if len(cookies) != len(want) {
		t.Fatalf("got %d cookies, want %d: %v", len(cookies), len(want), cookies)
	}
	for _, c := range cookies {
		if want[c.Name] != c.Value {
			t.Errorf("cookie %s = %q, want %q", c.Name, c.Value, want[c.Name])
		}
	}
}

func TestCookieHeader_RoundTrip(t *testing.T) {
	site := NewSite("origin.test")
	jar := NewSessionJar(site)
	jar.ReplaceCookies([]*http.Cookie{
		{Name: "ygg_", Value: "s3ss10n"},
		{Name: "account_created", Value: "true"},
	})

	header := FormatCookieHeader(jar.Cookies())

	reloaded := NewSessionJar(site)
	reloaded.ReplaceCookies(ParseCookieHeader(header))

	got := map[string]string{}
	for _, c := range reloaded.Cookies() {
		got[c.Name] = c.Value
	}
	if got["ygg_"] != "s3ss10n" || got["account_created"] != "true" || len(got) != 2 {
		t.Errorf("round trip = %v", got)
	}
}

func TestSessionJar_ReplaceIsWholesale(t *testing.T) {
	jar := NewSessionJar(NewSite("origin.test"))
	jar.AddCookies([]*http.Cookie{{Name: "old", Value: "1"}})
	jar.ReplaceCookies([]*http.Cookie{{Name: "new", Value: "2"}})

	cookies := jar.Cookies()
	if len(cookies) != 1 || cookies[0].Name != "new" {
		t.Errorf("Cookies() = %v, want only new", cookies)
	}
}

func TestSessionJar_ConcurrentReplace(t *testing.T) {
	jar := NewSessionJar(NewSite("origin.test"))
	setA := []*http.Cookie{{Name: "a", Value: "1"}, {Name: "b", Value: "1"}}
	setB := []*http.Cookie{{Name: "a", Value: "2"}, {Name: "b", Value: "2"}}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); jar.ReplaceCookies(setA) }()
		go func() { defer wg.Done(); jar.ReplaceCookies(setB) }()

		cookies := jar.Cookies()
		if len(cookies) == 2 && cookies[0].Value != cookies[1].Value {
			t.Fatalf("observed mixed cookie set %v", cookies)
		}
	}
	wg.Wait()
}

func TestIsSessionExpired(t *testing.T) {
	tests := []struct {
		status int
		url    string
		want   bool
	}{
		{200, "https://origin.test/engine/search?name=x", false},
		{302, "https://origin.test/engine/search", true},
		{307, "https://origin.test/", true},
		{200, "https://origin.test/auth/login?redirect=1", true},
		{404, "https://origin.test/missing", false},
	}
	for _, tt := range tests {
		if got := IsSessionExpired(tt.status, tt.url); got != tt.want {
			t.Errorf("IsSessionExpired(%d, %q) = %v, want %v", tt.status, tt.url, got, tt.want)
		}
	}
}

func TestNewSite(t *testing.T) {
	s := NewSite("http://127.0.0.1:8080/")
	if s.Root() != "http://127.0.0.1:8080/" {
		t.Errorf("Root() = %q", s.Root())
	}
	if s.Host() != "127.0.0.1" {
		t.Errorf("Host() = %q", s.Host())
	}
	if got := NewSite("www.origin.test").LoginPage(); got != "https://www.origin.test/auth/login" {
		t.Errorf("LoginPage() = %q", got)
	}
	if got := s.Download(42, "a b"); got != "http://127.0.0.1:8080/engine/download_torrent?id=42&token=a+b" {
		t.Errorf("Download() = %q", got)
	}
}

func TestDirectClient_HeadersAndNoRedirect(t *testing.T) {
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/auth/login", http.StatusFound)
			return
		}
		gotHeaders = r.Header.Clone()
		http.SetCookie(w, &http.Cookie{Name: "ygg_", Value: "fresh", Path: "/"})
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	site := NewSite(server.URL)
	c := NewDirectClient(DirectConfig{Site: site, OwnIP: "203.0.113.7", Logger: zerolog.Nop()})

	resp, err := c.Get(context.Background(), site.Root())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.Text() != "ok" || !resp.OK() {
		t.Errorf("Get() = %d %q", resp.Status, resp.Text())
	}
	if gotHeaders.Get("CF-Connecting-IP") != "203.0.113.7" || gotHeaders.Get("X-Forwarded-For") != "203.0.113.7" {
		t.Errorf("spoof headers missing: %v", gotHeaders)
	}
	if !HasCookiePrefix(c.SessionJar().Cookies(), SessionCookiePrefix) {
		t.Error("response cookie was not stored in the jar")
	}

	resp, err = c.Get(context.Background(), site.URL("/redirect"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.Status != http.StatusFound {
		t.Errorf("redirect status = %d, want 302 (not followed)", resp.Status)
	}
}

func TestDirectClient_PostForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if r.PostForm.Get("id") != "user" || r.PostForm.Get("pass") != "secret" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	site := NewSite(server.URL)
	c := NewDirectClient(DirectConfig{Site: site, Logger: zerolog.Nop()})
	resp, err := c.PostForm(context.Background(), site.LoginProcess(), url.Values{"id": {"user"}, "pass": {"secret"}})
	if err != nil {
		t.Fatalf("PostForm() error = %v", err)
	}
	if resp.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.Status)
	}
}

func TestDecodingTransport(t *testing.T) {
	payload := []byte("<html>résultats</html>")

	var gz, br bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write(payload)
	_ = gw.Close()
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write(payload)
	_ = bw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != acceptEncoding {
			t.Errorf("Accept-Encoding = %q", r.Header.Get("Accept-Encoding"))
		}
		switch r.URL.Path {
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(gz.Bytes())
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			_, _ = w.Write(br.Bytes())
		default:
			_, _ = w.Write(payload)
		}
	}))
	defer server.Close()

	site := NewSite(server.URL)
	c := NewDirectClient(DirectConfig{Site: site, Logger: zerolog.Nop()})
	for _, path := range []string{"/gzip", "/br", "/plain"} {
		resp, err := c.Get(context.Background(), site.URL(path))
		if err != nil {
			t.Fatalf("Get(%s) error = %v", path, err)
		}
		if !bytes.Equal(resp.Body, payload) {
			t.Errorf("Get(%s) body = %q", path, resp.Body)
		}
	}
}

func TestJarOf(t *testing.T) {
	direct := NewDirectClient(DirectConfig{Site: NewSite("origin.test"), Logger: zerolog.Nop()})
	if _, ok := JarOf(direct); !ok {
		t.Error("JarOf(direct) should expose a jar")
	}
	if _, ok := JarOf(NewProxiedClient(nil, "")); ok {
		t.Error("JarOf(proxied) should not expose a jar")
	}
}
