package hms

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	managementTokenTTL     = 24 * time.Hour
	managementTokenRefresh = time.Hour
)

// TokenSource supplies the bearer token for platform REST calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type managementClaims struct {
	AccessKey string `json:"access_key"`
	Type      string `json:"type"`
	Version   int    `json:"version"`
	jwt.RegisteredClaims
}

// ManagementTokenSource returns a configured static token or mints one from
// the app secret, reusing it until an hour before it expires.
type ManagementTokenSource struct {
	static    string
	secret    []byte
	accessKey string
	now       func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewManagementTokenSource(static, secret, accessKey string) (*ManagementTokenSource, error) {
	if static == "" && (secret == "" || accessKey == "") {
		return nil, errors.New("management token requires either a static token or secret and access key")
	}
	return &ManagementTokenSource{
		static:    static,
		secret:    []byte(secret),
		accessKey: accessKey,
		now:       time.Now,
	}, nil
}

func (s *ManagementTokenSource) Token(context.Context) (string, error) {
	if s.static != "" {
		return s.static, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expiresAt.Add(-managementTokenRefresh)) {
		return s.token, nil
	}

	expiresAt := now.Add(managementTokenTTL)
	claims := &managementClaims{
		AccessKey: s.accessKey,
		Type:      "management",
		Version:   2,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign management token: %w", err)
	}

	s.token = token
	s.expiresAt = expiresAt
	return token, nil
}
