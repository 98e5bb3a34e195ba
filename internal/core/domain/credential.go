package domain

import "time"

// CredentialTTL is the fixed validity window of a participant credential.
const CredentialTTL = 24 * time.Hour

type ParticipantID string

type RoomID string

// IssuedCredential is what the issuer hands back to a joining participant.
type IssuedCredential struct {
	Token         string
	ParticipantID ParticipantID
	RoomID        RoomID
	DisplayName   string
	Role          Role
	IssuedAt      time.Time
	ExpiresAt     time.Time
	ExpiresIn     time.Duration
}

// CredentialStatus is the outcome of validating a credential. Failure is
// ErrInvalidCredential or ErrExpiredCredential when Valid is false.
type CredentialStatus struct {
	Valid         bool
	ParticipantID ParticipantID
	RoomID        RoomID
	Role          Role
	CanPublish    bool
	CanControl    bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Failure       error
}
