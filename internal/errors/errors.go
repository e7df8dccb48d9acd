// Package errors provides structured error types for the bot.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout      = errors.New("operation timed out")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrNotFound     = errors.New("resource not found")
	ErrDenied       = errors.New("access denied")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("service unavailable")
)

// APIError represents an error returned by the Telegram Bot API.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
	RetryAfter  time.Duration
	Err         error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("telegram %s error (status %d): %s: %v", e.Method, e.StatusCode, e.Description, e.Err)
	}
	return fmt.Sprintf("telegram %s error (status %d): %s", e.Method, e.StatusCode, e.Description)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error.
func NewAPIError(method string, statusCode int, description string) *APIError {
	return &APIError{Method: method, StatusCode: statusCode, Description: description}
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}

// IsNotFound reports whether the target of the call no longer exists.
// Telegram reports these as 400 with a descriptive message rather than 404.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == 404 {
		return true
	}
	desc := strings.ToLower(apiErr.Description)
	return apiErr.StatusCode == 400 && (strings.Contains(desc, "not found") ||
		strings.Contains(desc, "peer_id_invalid") ||
		strings.Contains(desc, "message_id_invalid"))
}

// IsForbidden reports whether the bot lacks the rights to perform the call.
func IsForbidden(err error) bool {
	if errors.Is(err, ErrDenied) {
		return true
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == 403 {
		return true
	}
	desc := strings.ToLower(apiErr.Description)
	return apiErr.StatusCode == 400 && (strings.Contains(desc, "can't be deleted") ||
		strings.Contains(desc, "not enough rights") ||
		strings.Contains(desc, "chat_admin_required"))
}

// RetryAfter returns the flood-wait hint carried by err, if any.
func RetryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}
