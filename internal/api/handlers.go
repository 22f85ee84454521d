package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ygggate/ygggate/internal/gateway"
	"github.com/ygggate/ygggate/internal/indexer/session"
	"github.com/ygggate/ygggate/internal/indexer/types"
	"github.com/ygggate/ygggate/internal/metadata/tmdb"
)

// SessionCookiesHeader carries the cookies of the origin session that served
// a request, so clients can reuse it with the cookie parameter.
const SessionCookiesHeader = "X-Session-Cookies"

// searchRequest parses the /search query string.
func searchRequest(c echo.Context) (gateway.SearchRequest, error) {
	var req gateway.SearchRequest

	sort, err := types.ParseSort(c.QueryParam("sort"))
	if err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	order, err := types.ParseOrder(c.QueryParam("order"))
	if err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	offset, err := intParam(c, "offset")
	if err != nil {
		return req, err
	}
	category, err := intParam(c, "category")
	if err != nil {
		return req, err
	}
	subCategory, err := intParam(c, "sub_category")
	if err != nil {
		return req, err
	}

	req.Params = types.SearchParams{
		Name:        c.QueryParam("name"),
		Offset:      offset,
		Category:    category,
		SubCategory: subCategory,
		Sort:        sort,
		Order:       order,
		BanWords:    listParam(c, "ban_words"),
		QuoteSearch: boolParam(c, "quote_search"),
	}
	req.Query = c.QueryParam("q")
	_, req.Connarr = c.QueryParams()["connarr"]

	for _, raw := range listParam(c, "categories") {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return req, echo.NewHTTPError(http.StatusBadRequest, "invalid category "+strconv.Quote(raw))
		}
		req.Categories = append(req.Categories, id)
	}

	switch {
	case c.QueryParam("tmdbid") != "":
		req.ExternalID = &tmdb.ExternalID{Source: tmdb.SourceTMDB, Value: c.QueryParam("tmdbid")}
	case c.QueryParam("imdbid") != "":
		req.ExternalID = &tmdb.ExternalID{Source: tmdb.SourceIMDB, Value: c.QueryParam("imdbid")}
	}
	return req, nil
}

func intParam(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" "+strconv.Quote(raw))
	}
	return n, nil
}

func boolParam(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(c.QueryParam(name))
	return b
}

// listParam accepts both repeated parameters and comma-separated values.
func listParam(c echo.Context, name string) []string {
	var out []string
	for _, v := range c.QueryParams()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) setSessionCookies(c echo.Context, cookie string) {
	if header, ok := s.engine.CookieHeader(cookie); ok && header != "" {
		c.Response().Header().Set(SessionCookiesHeader, header)
	}
}

func (s *Server) search(c echo.Context) error {
	req, err := searchRequest(c)
	if err != nil {
		return err
	}

	cookie := c.QueryParam("cookie")
	torrents, err := s.engine.Search(c.Request().Context(), cookie, req)
	if err != nil {
		return httpError(err)
	}
	s.setSessionCookies(c, cookie)
	return c.JSON(http.StatusOK, torrents)
}

func (s *Server) downloadTorrent(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid torrent id")
	}

	cookie := c.QueryParam("cookie")
	file, err := s.engine.Download(c.Request().Context(), cookie, id)
	if err != nil {
		return httpError(err)
	}

	s.setSessionCookies(c, cookie)
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+file.Filename()+`"`)
	return c.Blob(http.StatusOK, "application/x-bittorrent", file.Data)
}

func (s *Server) listCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Categories())
}

func (s *Server) getAccount(c echo.Context) error {
	cookie := c.QueryParam("cookie")
	account, err := s.engine.Account(c.Request().Context(), cookie)
	if err != nil {
		return httpError(err)
	}
	s.setSessionCookies(c, cookie)
	return c.JSON(http.StatusOK, account)
}

// getRemaining answers -1 when the counter cannot be read.
func (s *Server) getRemaining(c echo.Context) error {
	cookie := c.QueryParam("cookie")
	remaining, err := s.engine.Remaining(c.Request().Context(), cookie)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read remaining downloads")
		return c.JSON(http.StatusOK, -1)
	}
	s.setSessionCookies(c, cookie)
	return c.JSON(http.StatusOK, remaining)
}

func (s *Server) authenticate(c echo.Context) error {
	creds := session.Credentials{Username: c.QueryParam("user"), Password: c.QueryParam("pass")}

	if s.authLimiter.IsAccountLocked(creds.Username) {
		return echo.NewHTTPError(http.StatusTooManyRequests,
			"too many failed logins, retry in "+s.authLimiter.GetLockoutRemaining(creds.Username).Round(time.Second).String())
	}

	header, err := s.engine.Authenticate(c.Request().Context(), creds)
	if err != nil {
		he := httpError(err)
		if he.Code == http.StatusUnauthorized {
			s.authLimiter.RecordFailedAttempt(creds.Username)
		}
		return he
	}

	s.authLimiter.RecordSuccessfulLogin(creds.Username)
	c.Response().Header().Set(SessionCookiesHeader, header)
	return c.String(http.StatusOK, header)
}
