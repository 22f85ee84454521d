package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ygggate/ygggate/internal/indexer"
)

// httpError maps an engine error to the response a client sees.
func httpError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch indexer.GetErrorCode(err) {
	case indexer.ErrCodeInvalidCredentials, indexer.ErrCodeSessionExpired:
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error()).SetInternal(err)
	case indexer.ErrCodeQuotaExhausted:
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error()).SetInternal(err)
	case indexer.ErrCodeRatioInsufficient:
		return echo.NewHTTPError(http.StatusForbidden, err.Error()).SetInternal(err)
	case indexer.ErrCodeConfiguration:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
}
