package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cohortcast/internal/core/domain"
	"cohortcast/internal/core/ports"
	apperrors "cohortcast/pkg/errors"
	"cohortcast/pkg/tracing"
	"cohortcast/pkg/validation"

	"github.com/gin-gonic/gin"
)

// AuthMetrics counts credential activity; the Prometheus collector satisfies it.
type AuthMetrics interface {
	RecordTokenIssued(role domain.Role)
	RecordIssueFailure(code string)
	RecordValidation(result string)
}

type AuthHandler struct {
	issuer    ports.TokenIssuer
	validator ports.TokenValidator
	metrics   AuthMetrics
}

func NewAuthHandler(issuer ports.TokenIssuer, validator ports.TokenValidator, metrics AuthMetrics) *AuthHandler {
	return &AuthHandler{
		issuer:    issuer,
		validator: validator,
		metrics:   metrics,
	}
}

func (h *AuthHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/api/auth")
	{
		api.POST("/token", h.IssueToken)
		api.POST("/validate", h.ValidateToken)
		api.GET("/roles", h.ListRoles)
		api.GET("/room-code", h.RoomCode)
	}
}

// TokenRequest accepts "username" as an alias of "display_name".
type TokenRequest struct {
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	RoomID      string `json:"room_id"`
}

type TokenResponse struct {
	Token         string    `json:"token"`
	ParticipantID string    `json:"participant_id"`
	RoomID        string    `json:"room_id"`
	DisplayName   string    `json:"display_name"`
	Role          string    `json:"role"`
	ExpiresIn     int64     `json:"expires_in"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	ctx, span := tracing.TraceTokenOperation(c.Request.Context(), "issue")
	defer span.End()

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = strings.TrimSpace(req.Username)
	}
	if err := validation.ValidateDisplayName(displayName); err != nil {
		h.fail(c, apperrors.NewInvalidInputError(err.Error()).WithContext("field", "display_name"))
		return
	}

	role := domain.Role(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.DefaultRole
	}

	roomID := strings.TrimSpace(req.RoomID)
	if roomID != "" {
		if err := validation.ValidateRoomID(roomID); err != nil {
			h.fail(c, apperrors.NewInvalidInputError(err.Error()).WithContext("field", "room_id"))
			return
		}
	}

	cred, err := h.issuer.Issue(displayName, role, domain.RoomID(roomID))
	if err != nil {
		tracing.RecordError(ctx, err)
		if apperrors.IsAppError(err) {
			h.fail(c, err)
		} else {
			h.fail(c, apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to issue token", http.StatusInternalServerError))
		}
		return
	}

	tracing.AddSpanAttributes(ctx,
		tracing.ParticipantIDKey.String(string(cred.ParticipantID)),
		tracing.RoomIDKey.String(string(cred.RoomID)),
		tracing.RoleKey.String(string(cred.Role)),
	)
	if h.metrics != nil {
		h.metrics.RecordTokenIssued(cred.Role)
	}

	c.JSON(http.StatusCreated, TokenResponse{
		Token:         cred.Token,
		ParticipantID: string(cred.ParticipantID),
		RoomID:        string(cred.RoomID),
		DisplayName:   cred.DisplayName,
		Role:          string(cred.Role),
		ExpiresIn:     int64(cred.ExpiresIn / time.Second),
		ExpiresAt:     cred.ExpiresAt.UTC(),
	})
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	if h.metrics != nil {
		code := string(apperrors.ErrCodeInternal)
		if appErr := apperrors.GetAppError(err); appErr != nil {
			code = string(appErr.Code)
		}
		h.metrics.RecordIssueFailure(code)
	}
	_ = c.Error(err)
}

type ValidateRequest struct {
	Token string `json:"token"`
}

type ValidateResponse struct {
	Valid         bool      `json:"valid"`
	ParticipantID string    `json:"participant_id"`
	RoomID        string    `json:"room_id"`
	Role          string    `json:"role"`
	CanPublish    bool      `json:"can_publish"`
	CanControl    bool      `json:"can_control"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (h *AuthHandler) ValidateToken(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		_ = c.Error(apperrors.NewInvalidInputError("token is required").WithContext("field", "token"))
		return
	}

	// Oversized tokens skip signature work but are still a "not valid" result.
	status := domain.CredentialStatus{Failure: domain.ErrInvalidCredential}
	if validation.ValidateToken(req.Token) == nil {
		status = h.validator.Validate(req.Token)
	}
	if !status.Valid {
		code, message, result := apperrors.ErrCodeInvalidCredential, "invalid token", "invalid"
		if errors.Is(status.Failure, domain.ErrExpiredCredential) {
			code, message, result = apperrors.ErrCodeExpiredCredential, "token expired", "expired"
		}
		if h.metrics != nil {
			h.metrics.RecordValidation(result)
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"valid":   false,
			"error":   string(code),
			"message": message,
		})
		return
	}

	if h.metrics != nil {
		h.metrics.RecordValidation("valid")
	}
	c.JSON(http.StatusOK, ValidateResponse{
		Valid:         true,
		ParticipantID: string(status.ParticipantID),
		RoomID:        string(status.RoomID),
		Role:          string(status.Role),
		CanPublish:    status.CanPublish,
		CanControl:    status.CanControl,
		IssuedAt:      status.IssuedAt.UTC(),
		ExpiresAt:     status.ExpiresAt.UTC(),
	})
}

func (h *AuthHandler) ListRoles(c *gin.Context) {
	roles := domain.Roles()
	descriptions := make(map[domain.Role]domain.RoleDescriptor, len(roles))
	for _, r := range roles {
		descriptions[r.ID] = r
	}

	c.JSON(http.StatusOK, gin.H{
		"roles":        domain.RoleIDs(),
		"descriptions": descriptions,
	})
}

// RoomCode returns the configured room as a shareable code.
func (h *AuthHandler) RoomCode(c *gin.Context) {
	room := string(h.issuer.DefaultRoom())

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}

	c.JSON(http.StatusOK, gin.H{
		"room_code": room,
		"room_id":   room,
		"join_url":  fmt.Sprintf("%s://%s/join/%s", scheme, c.Request.Host, room),
	})
}
