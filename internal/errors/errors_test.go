package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Error(t *testing.T) {
	err := NewAPIError("sendMessage", 403, "Forbidden: bot was kicked")
	assert.Contains(t, err.Error(), "sendMessage")
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "bot was kicked")
}

func TestAPIError_WithWrapped(t *testing.T) {
	inner := errors.New("connection refused")
	err := &APIError{Method: "getUpdates", StatusCode: 502, Description: "fail", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewAPIError("sendMessage", 429, "Too Many Requests")))
	assert.True(t, IsRetryable(NewAPIError("sendMessage", 502, "Bad Gateway")))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrTimeout)))
	assert.True(t, IsRetryable(ErrUnavailable))

	assert.False(t, IsRetryable(NewAPIError("sendMessage", 400, "Bad Request: chat not found")))
	assert.False(t, IsRetryable(NewAPIError("sendMessage", 403, "Forbidden")))
	assert.False(t, IsRetryable(ErrDenied))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewAPIError("deleteMessage", 400, "Bad Request: message to delete not found")))
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", ErrNotFound)))
	assert.False(t, IsNotFound(NewAPIError("deleteMessage", 400, "Bad Request: message can't be deleted")))
	assert.False(t, IsNotFound(errors.New("boom")))
}

func TestIsForbidden(t *testing.T) {
	assert.True(t, IsForbidden(NewAPIError("deleteMessage", 400, "Bad Request: message can't be deleted")))
	assert.True(t, IsForbidden(NewAPIError("sendMessage", 403, "Forbidden: bot was blocked by the user")))
	assert.False(t, IsForbidden(NewAPIError("deleteMessage", 400, "Bad Request: message to delete not found")))
}

func TestRetryAfter(t *testing.T) {
	err := &APIError{Method: "sendMessage", StatusCode: 429, RetryAfter: 3 * time.Second}
	assert.Equal(t, 3*time.Second, RetryAfter(fmt.Errorf("send: %w", err)))
	assert.Zero(t, RetryAfter(errors.New("plain")))
}
