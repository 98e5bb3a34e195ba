package middleware

import (
	"errors"
	"strings"

	"cohortcast/internal/core/domain"
	"cohortcast/internal/core/ports"
	apperrors "cohortcast/pkg/errors"
	"cohortcast/pkg/logger"

	"github.com/gin-gonic/gin"
)

const credentialKey = "credential"

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate requires a valid participant credential and stores its status
// on the gin context.
func Authenticate(validator ports.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, apperrors.NewUnauthorizedError("authorization header with bearer token required"))
			return
		}

		status := validator.Validate(token)
		if !status.Valid {
			if errors.Is(status.Failure, domain.ErrExpiredCredential) {
				abortWithError(c, apperrors.NewExpiredCredentialError("token expired"))
			} else {
				abortWithError(c, apperrors.NewInvalidCredentialError("invalid token"))
			}
			return
		}

		c.Set(credentialKey, status)
		c.Request = c.Request.WithContext(
			logger.WithParticipantID(c.Request.Context(), string(status.ParticipantID)),
		)
		c.Next()
	}
}

// RequireControl admits only participants whose role may control the room.
// It must run after Authenticate.
func RequireControl() gin.HandlerFunc {
	return func(c *gin.Context) {
		status, ok := CredentialFromContext(c)
		if !ok {
			abortWithError(c, apperrors.NewUnauthorizedError("authentication required"))
			return
		}
		if !status.CanControl {
			abortWithError(c, apperrors.NewForbiddenError("role "+string(status.Role)+" cannot control recordings").
				WithContext("role", status.Role))
			return
		}
		c.Next()
	}
}

// CredentialFromContext returns the status stored by Authenticate.
func CredentialFromContext(c *gin.Context) (domain.CredentialStatus, bool) {
	v, exists := c.Get(credentialKey)
	if !exists {
		return domain.CredentialStatus{}, false
	}
	status, ok := v.(domain.CredentialStatus)
	return status, ok
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
