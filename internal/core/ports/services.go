package ports

import (
	"context"
	"encoding/json"

	"cohortcast/internal/core/domain"
)

// TokenIssuer mints participant credentials.
type TokenIssuer interface {
	Issue(displayName string, role domain.Role, roomID domain.RoomID) (*domain.IssuedCredential, error)
	DefaultRoom() domain.RoomID
}

// TokenValidator checks participant credentials. Validation failures are
// reported in the status, not as errors.
type TokenValidator interface {
	Validate(token string) domain.CredentialStatus
}

type RecordingService interface {
	ListRecordings(ctx context.Context, query domain.RecordingQuery) (*domain.RecordingPage, error)
	GetRecording(ctx context.Context, recordingID string) (json.RawMessage, error)
	StartRecording(ctx context.Context, req domain.StartRecordingRequest) (json.RawMessage, error)
	StopRecording(ctx context.Context, roomID domain.RoomID) (json.RawMessage, error)
	RecordingStatus(ctx context.Context, roomID domain.RoomID) (json.RawMessage, error)
}
