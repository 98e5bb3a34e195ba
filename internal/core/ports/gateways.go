package ports

import (
	"context"
	"encoding/json"
	"time"

	"cohortcast/internal/core/domain"
)

// RecordingGateway talks to the streaming platform's recording API.
type RecordingGateway interface {
	ListRecordings(ctx context.Context, query domain.RecordingQuery) (*domain.RecordingPage, error)
	GetRecording(ctx context.Context, recordingID string) (json.RawMessage, error)
	StartRecording(ctx context.Context, req domain.StartRecordingRequest) (json.RawMessage, error)
	StopRecording(ctx context.Context, roomID domain.RoomID) (json.RawMessage, error)
	RecordingStatus(ctx context.Context, roomID domain.RoomID) (json.RawMessage, error)
}

// Cache stores opaque values with a TTL. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
}
