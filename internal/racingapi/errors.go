// Package racingapi provides a client for the Racing API racecards and
// results endpoints.
package racingapi

import "errors"

// APIError represents errors from Racing API operations
type APIError struct {
	Endpoint string // API endpoint path
	Code     string // Error code (e.g., "rate_limit_exceeded")
	Message  string // Error message
	Err      error  // Underlying error
}

func (e APIError) Error() string {
	if e.Err != nil {
		return e.Endpoint + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Endpoint + ": " + e.Code + ": " + e.Message
}

func (e APIError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)

// Sentinel errors for errors.Is checks
var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
)

// NewAPIError creates a new Racing API error
func NewAPIError(endpoint, code, message string, err error) APIError {
	return APIError{
		Endpoint: endpoint,
		Code:     code,
		Message:  message,
		Err:      err,
	}
}
