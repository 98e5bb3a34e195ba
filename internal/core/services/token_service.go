package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cohortcast/internal/core/domain"
	apperrors "cohortcast/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenTypeApp marks participant credentials accepted by the client SDK.
	TokenTypeApp = "app"
	// TokenTypeManagement marks server-to-server REST credentials.
	TokenTypeManagement = "management"

	tokenVersion = 2
)

// CredentialClaims is the claim set signed into a participant credential.
type CredentialClaims struct {
	AccessKey  string      `json:"access_key,omitempty"`
	RoomID     string      `json:"room_id"`
	UserID     string      `json:"user_id"`
	Role       domain.Role `json:"role"`
	CanPublish bool        `json:"can_publish"`
	CanControl bool        `json:"can_control"`
	Type       string      `json:"type"`
	Version    int         `json:"version"`
	jwt.RegisteredClaims
}

// TokenConfig carries the immutable values the token service signs with.
type TokenConfig struct {
	Secret    string
	AccessKey string
	RoomID    string
}

// TokenService issues and validates participant credentials. It holds only
// immutable state and is safe for concurrent use.
type TokenService struct {
	secret      []byte
	accessKey   string
	defaultRoom domain.RoomID
	ttl         time.Duration
	now         func() time.Time
	newID       func() string
	parser      *jwt.Parser
}

type TokenOption func(*TokenService)

// WithClock replaces the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// WithIDGenerator replaces the participant id source.
func WithIDGenerator(newID func() string) TokenOption {
	return func(s *TokenService) {
		s.newID = newID
	}
}

func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, domain.ErrMissingSecret
	}
	if cfg.RoomID == "" {
		return nil, domain.ErrMissingRoom
	}

	s := &TokenService{
		secret:      []byte(cfg.Secret),
		accessKey:   cfg.AccessKey,
		defaultRoom: domain.RoomID(cfg.RoomID),
		ttl:         domain.CredentialTTL,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

// DefaultRoom returns the room used when a caller does not name one.
func (s *TokenService) DefaultRoom() domain.RoomID {
	return s.defaultRoom
}

// Issue mints a credential admitting displayName into roomID with role.
// An empty roomID selects the configured room.
func (s *TokenService) Issue(displayName string, role domain.Role, roomID domain.RoomID) (*domain.IssuedCredential, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, apperrors.NewInvalidInputError("display name is required").
			WithContext("field", "display_name")
	}

	descriptor, ok := domain.DescribeRole(role)
	if !ok {
		return nil, apperrors.NewInvalidInputError(
			fmt.Sprintf("invalid role %q, valid roles are: %s", role, domain.ValidRolesList()),
		).WithContext("field", "role").WithContext("valid_roles", domain.RoleIDs())
	}

	if roomID == "" {
		roomID = s.defaultRoom
	}

	participantID := s.newID()
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	claims := &CredentialClaims{
		AccessKey:  s.accessKey,
		RoomID:     string(roomID),
		UserID:     participantID,
		Role:       descriptor.ID,
		CanPublish: descriptor.CanPublish,
		CanControl: descriptor.CanControl,
		Type:       TokenTypeApp,
		Version:    tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign credential: %w", err)
	}

	return &domain.IssuedCredential{
		Token:         token,
		ParticipantID: domain.ParticipantID(participantID),
		RoomID:        roomID,
		DisplayName:   displayName,
		Role:          descriptor.ID,
		IssuedAt:      claims.IssuedAt.Time,
		ExpiresAt:     claims.ExpiresAt.Time,
		ExpiresIn:     s.ttl,
	}, nil
}

// Validate checks a credential's signature and expiry. Failures are reported
// in the returned status, never as an error.
func (s *TokenService) Validate(tokenString string) domain.CredentialStatus {
	claims := &CredentialClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.CredentialStatus{Failure: domain.ErrExpiredCredential}
		}
		return domain.CredentialStatus{Failure: domain.ErrInvalidCredential}
	}
	if !token.Valid || claims.Type != TokenTypeApp || claims.UserID == "" || claims.RoomID == "" {
		return domain.CredentialStatus{Failure: domain.ErrInvalidCredential}
	}

	// Capabilities come from the registry, not from the token body.
	descriptor, ok := domain.DescribeRole(claims.Role)
	if !ok {
		return domain.CredentialStatus{Failure: domain.ErrInvalidCredential}
	}

	status := domain.CredentialStatus{
		Valid:         true,
		ParticipantID: domain.ParticipantID(claims.UserID),
		RoomID:        domain.RoomID(claims.RoomID),
		Role:          descriptor.ID,
		CanPublish:    descriptor.CanPublish,
		CanControl:    descriptor.CanControl,
		ExpiresAt:     claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		status.IssuedAt = claims.IssuedAt.Time
	}
	return status
}
