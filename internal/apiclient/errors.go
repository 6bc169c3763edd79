package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized marks a 401 from the backend. The session has already been
// cleared and the navigator sent to the login route by the time callers see it.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is returned for every failed call: transport failure, timeout,
// non-2xx status, or an envelope with success=false.
type APIError struct {
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("request failed: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsValidation reports a 4xx other than 401, which screens show inline.
func (e *APIError) IsValidation() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusUnauthorized
}

// MessageOf returns the backend-supplied message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsUnauthorized reports whether err came from a 401 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Retryable reports whether a failed query is worth one automatic retry:
// transport failures and 5xx responses are, 4xx responses are not.
func Retryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return true
	}
	return apiErr.StatusCode == 0 || apiErr.StatusCode >= 500
}

// Transient reports a transport failure or 5xx response, the failures users
// are told about with a generic message.
func Transient(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 0 || apiErr.StatusCode >= 500
}
