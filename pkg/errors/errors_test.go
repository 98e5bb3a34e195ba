package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	assert.Equal(t, "INVALID_INPUT: test error", err.Error())
}

func TestAppError_WithCause(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, ErrCodeInternal, "wrapped error", 500)

	assert.Equal(t, originalErr, err.Cause)
	assert.Contains(t, err.Error(), "original error")
	assert.True(t, errors.Is(err, originalErr))
}

func TestAppError_WithContext(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	err.WithContext("field", "role").WithContext("count", 4)

	assert.Equal(t, "role", err.Context["field"])
	assert.Equal(t, 4, err.Context["count"])
}

func TestConstructors(t *testing.T) {
	cases := []struct {
		name   string
		err    *AppError
		code   ErrorCode
		status int
	}{
		{"invalid input", NewInvalidInputError("bad"), ErrCodeInvalidInput, http.StatusBadRequest},
		{"invalid credential", NewInvalidCredentialError("bad token"), ErrCodeInvalidCredential, http.StatusUnauthorized},
		{"expired credential", NewExpiredCredentialError("expired"), ErrCodeExpiredCredential, http.StatusUnauthorized},
		{"not found", NewNotFoundError("recording"), ErrCodeNotFound, http.StatusNotFound},
		{"forbidden", NewForbiddenError("no"), ErrCodeForbidden, http.StatusForbidden},
		{"rate limit", NewRateLimitError(), ErrCodeRateLimit, http.StatusTooManyRequests},
		{"bad gateway default status", NewBadGatewayError(errors.New("x"), "vendor", 0), ErrCodeBadGateway, http.StatusBadGateway},
		{"bad gateway keeps status", NewBadGatewayError(errors.New("x"), "vendor", http.StatusConflict), ErrCodeBadGateway, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, tc.status, tc.err.HTTPStatus)
		})
	}
	assert.Equal(t, "recording not found", NewNotFoundError("recording").Message)
}

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(NewAppError(ErrCodeInvalidInput, "test", 400)))
	assert.False(t, IsAppError(errors.New("regular error")))
}

func TestGetAppError(t *testing.T) {
	appErr := NewAppError(ErrCodeInvalidInput, "test", 400)
	assert.Same(t, appErr, GetAppError(appErr))

	wrapped := fmt.Errorf("issue token: %w", appErr)
	require.NotNil(t, GetAppError(wrapped))
	assert.Equal(t, ErrCodeInvalidInput, GetAppError(wrapped).Code)

	assert.Nil(t, GetAppError(errors.New("regular error")))
	assert.Nil(t, GetAppError(nil))
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewExpiredCredentialError("expired"))
	assert.True(t, HasCode(err, ErrCodeExpiredCredential))
	assert.False(t, HasCode(err, ErrCodeInvalidCredential))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeInternal))
}
