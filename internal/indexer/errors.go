package indexer

import (
	"errors"
	"fmt"
)

// Error codes for categorizing origin errors
const (
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeNoSessionCookie    = "NO_SESSION_COOKIE"
	ErrCodeRemoteService      = "REMOTE_SERVICE_ERROR"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeNetwork            = "NETWORK_ERROR"
	ErrCodeParse              = "PARSE_ERROR"
	ErrCodeQuotaExhausted     = "QUOTA_EXHAUSTED"
	ErrCodeRatioInsufficient  = "RATIO_INSUFFICIENT"
	ErrCodeTokenMissing       = "TOKEN_MISSING"
	ErrCodeSearch             = "SEARCH_ERROR"
	ErrCodeDownload           = "DOWNLOAD_ERROR"
	ErrCodeConfiguration      = "CONFIG_ERROR"
)

// Phases name the origin operation an error came from.
const (
	PhaseLogin     = "login"
	PhaseProbe     = "probe"
	PhaseSearch    = "search"
	PhaseToken     = "download-token"
	PhaseDownload  = "download"
	PhaseRemaining = "remaining-downloads"
	PhaseAccount   = "account"
	PhaseCategory  = "categories"
)

// IndexerError represents a categorized error from an origin operation.
type IndexerError struct {
	Code      string // Error category code
	Message   string // Human-readable message
	Phase     string // Originating phase, see Phase* constants
	Status    int    // Origin or automation-service HTTP status (0 if not applicable)
	Retryable bool   // Whether the operation can be retried
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *IndexerError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Phase != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Code, e.Phase, e.Message)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *IndexerError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for errors.Is().
func (e *IndexerError) Is(target error) bool {
	var t *IndexerError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Common error instances for comparison
var (
	ErrInvalidCredentials = &IndexerError{Code: ErrCodeInvalidCredentials, Message: "invalid credentials"}
	ErrNoSessionCookie    = &IndexerError{Code: ErrCodeNoSessionCookie, Message: "session cookie not issued"}
	ErrRemoteService      = &IndexerError{Code: ErrCodeRemoteService, Message: "remote service error"}
	ErrSessionExpired     = &IndexerError{Code: ErrCodeSessionExpired, Message: "session expired"}
	ErrNetwork            = &IndexerError{Code: ErrCodeNetwork, Message: "network error"}
	ErrParse              = &IndexerError{Code: ErrCodeParse, Message: "parse error"}
	ErrQuotaExhausted     = &IndexerError{Code: ErrCodeQuotaExhausted, Message: "daily download quota exhausted"}
	ErrRatioInsufficient  = &IndexerError{Code: ErrCodeRatioInsufficient, Message: "ratio too low to download"}
	ErrTokenMissing       = &IndexerError{Code: ErrCodeTokenMissing, Message: "download token missing"}
	ErrSearch             = &IndexerError{Code: ErrCodeSearch, Message: "search failed"}
	ErrDownload           = &IndexerError{Code: ErrCodeDownload, Message: "download failed"}
	ErrConfiguration      = &IndexerError{Code: ErrCodeConfiguration, Message: "configuration error"}
)

// NewInvalidCredentialsError is returned when the origin answers 401 to the login form.
func NewInvalidCredentialsError(status int) *IndexerError {
	return &IndexerError{
		Code:    ErrCodeInvalidCredentials,
		Message: "invalid credentials",
		Phase:   PhaseLogin,
		Status:  status,
	}
}

// NewNoSessionCookieError is returned when the login page did not set a ygg_ cookie.
func NewNoSessionCookieError() *IndexerError {
	return &IndexerError{
		Code:    ErrCodeNoSessionCookie,
		Message: "no ygg_ session cookie after fetching the login page",
		Phase:   PhaseLogin,
	}
}

// NewRemoteServiceError creates an error for an unexpected non-2xx answer.
func NewRemoteServiceError(phase string, status int, message string) *IndexerError {
	return &IndexerError{
		Code:      ErrCodeRemoteService,
		Message:   message,
		Phase:     phase,
		Status:    status,
		Retryable: status >= 500,
	}
}

// NewSessionExpiredError creates a session expiry error.
func NewSessionExpiredError(phase string, status int) *IndexerError {
	return &IndexerError{
		Code:      ErrCodeSessionExpired,
		Message:   "session expired",
		Phase:     phase,
		Status:    status,
		Retryable: true, // Resolved by renewing the session
	}
}

// NewNetworkError creates a transport error.
func NewNetworkError(phase string, cause error) *IndexerError {
	return &IndexerError{
		Code:      ErrCodeNetwork,
		Message:   "network error",
		Phase:     phase,
		Retryable: true,
		Cause:     cause,
	}
}

// NewParseError creates a parsing error.
func NewParseError(phase string, message string, cause error) *IndexerError {
	return &IndexerError{
		Code:    ErrCodeParse,
		Message: message,
		Phase:   phase,
		Cause:   cause,
	}
}

// NewQuotaExhaustedError creates a quota error.
func NewQuotaExhaustedError() *IndexerError {
	return &IndexerError{
		Code:    ErrCodeQuotaExhausted,
		Message: "daily download quota exhausted",
		Phase:   PhaseDownload,
	}
}

// NewRatioInsufficientError creates a ratio error. remaining is the number of
// downloads the account still had when the origin refused the file.
func NewRatioInsufficientError(remaining int) *IndexerError {
	return &IndexerError{
		Code:    ErrCodeRatioInsufficient,
		Message: fmt.Sprintf("download refused with %d downloads remaining, ratio too low", remaining),
		Phase:   PhaseDownload,
	}
}

// NewTokenMissingError creates an error for a timer response without a token.
func NewTokenMissingError() *IndexerError {
	return &IndexerError{
		Code:    ErrCodeTokenMissing,
		Message: "download timer response has no token",
		Phase:   PhaseToken,
	}
}

// NewSearchError creates a search error for a non-2xx search page.
func NewSearchError(status int, cause error) *IndexerError {
	return &IndexerError{
		Code:      ErrCodeSearch,
		Message:   "search failed",
		Phase:     PhaseSearch,
		Status:    status,
		Retryable: true,
		Cause:     cause,
	}
}

// NewDownloadError creates a download error carrying the origin's answer.
func NewDownloadError(phase string, status int, message string, cause error) *IndexerError {
	return &IndexerError{
		Code:    ErrCodeDownload,
		Message: message,
		Phase:   phase,
		Status:  status,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string) *IndexerError {
	return &IndexerError{
		Code:    ErrCodeConfiguration,
		Message: message,
	}
}

// IsRetryable returns whether the error is retryable.
func IsRetryable(err error) bool {
	var indexerErr *IndexerError
	if errors.As(err, &indexerErr) {
		return indexerErr.Retryable
	}
	return false
}

// IsSessionExpired returns whether the error signals an expired origin session.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsAuthError returns whether the error is a login failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrNoSessionCookie) ||
		errors.Is(err, ErrRemoteService) && GetPhase(err) == PhaseLogin
}

// IsNetworkError returns whether the error is a network error.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var indexerErr *IndexerError
	if errors.As(err, &indexerErr) {
		return indexerErr.Code
	}
	return ""
}

// GetPhase extracts the originating phase from an error.
func GetPhase(err error) string {
	var indexerErr *IndexerError
	if errors.As(err, &indexerErr) {
		return indexerErr.Phase
	}
	return ""
}

// GetStatus extracts the HTTP status from an error, 0 if none.
func GetStatus(err error) int {
	var indexerErr *IndexerError
	if errors.As(err, &indexerErr) {
		return indexerErr.Status
	}
	return 0
}
