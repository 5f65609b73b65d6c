package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreUnavailable_Classification(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("advance: %w", NewStoreUnavailable("ai_id", cause))

	assert.True(t, IsStoreUnavailable(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(err))

	appErr, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, "ai_id", appErr.Details["counter"])
}

func TestConcurrentInitConflict_TreatedAsUnavailable(t *testing.T) {
	err := NewConcurrentInitConflict("orders", errors.New("duplicate key"))

	assert.True(t, IsStoreUnavailable(err))
	assert.Equal(t, CodeConcurrentInitConflict, err.Code)
}

func TestInvalidBinderConfig(t *testing.T) {
	err := NewInvalidBinderConfig("User", "field not found").WithDetail("field", "seq")

	assert.True(t, IsInvalidBinderConfig(err))
	assert.False(t, IsStoreUnavailable(err))
	assert.Equal(t, "seq", err.Details["field"])
	assert.Equal(t, "INVALID_BINDER_CONFIG: field not found", err.Error())
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(errors.New("boom")))
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("plain")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.True(t, IsNotFound(NewNotFound("counter", "x")))
}

func TestCounterOverflow(t *testing.T) {
	cause := errors.New("integer out of range")
	err := NewCounterOverflow("orders", cause)

	assert.True(t, IsCounterOverflow(err))
	assert.False(t, IsStoreUnavailable(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusConflict, GetHTTPStatus(err))
}
