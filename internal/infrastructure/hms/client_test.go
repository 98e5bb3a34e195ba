package hms

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cohortcast/internal/core/domain"
	"cohortcast/pkg/circuitbreaker"
	"cohortcast/pkg/retry"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token(context.Context) (string, error) { return string(s), nil }

type recordedSample struct {
	operation string
	status    int
}

type sampleObserver struct {
	mu      sync.Mutex
	samples []recordedSample
}

func (o *sampleObserver) ObserveVendorRequest(operation string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.samples = append(o.samples, recordedSample{operation, status})
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		Retry: retry.Config{
			Enabled:      true,
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     2 * time.Millisecond,
			Multiplier:   2,
		},
		Breaker: circuitbreaker.Config{
			FailureThreshold: 2,
			SuccessThreshold: 1,
			Timeout:          time.Hour,
		},
	}
}

func TestClient_ListRecordings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/recordings", r.URL.Path)
		assert.Equal(t, "Bearer mgmt-token", r.Header.Get("Authorization"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "40", r.URL.Query().Get("start"))
		assert.Equal(t, "room-1", r.URL.Query().Get("room_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"id":"rec-1"},{"id":"rec-2"}],"total":42,"has_next":true}`)
	}))
	defer srv.Close()

	observer := &sampleObserver{}
	client := NewClient(testConfig(srv.URL+"/v2/"), staticTokens("mgmt-token"), observer, nil)

	page, err := client.ListRecordings(context.Background(), domain.RecordingQuery{RoomID: "room-1", Page: 3, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, page.Recordings, 2)
	assert.Equal(t, 42, page.Total)
	assert.True(t, page.HasNext)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, []recordedSample{{"list_recordings", http.StatusOK}}, observer.samples)
}

func TestClient_ListRecordings_OmitsEmptyRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("room_id"))
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), staticTokens("t"), nil, nil)
	page, err := client.ListRecordings(context.Background(), domain.RecordingQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Recordings)
}

func TestClient_StartStopStatus(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()

		if r.URL.Path == "/recordings/room/room-1/start" {
			var body domain.StartRecordingRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, domain.RoomID("room-1"), body.RoomID)
			assert.Equal(t, 1920, body.Resolution.Width)
			assert.True(t, body.Record)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		}
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), staticTokens("t"), nil, nil)
	ctx := context.Background()

	_, err := client.StartRecording(ctx, domain.StartRecordingRequest{
		RoomID:     "room-1",
		Resolution: domain.Resolution{Width: 1920, Height: 1080},
		Record:     true,
	})
	require.NoError(t, err)

	_, err = client.StopRecording(ctx, "room-1")
	require.NoError(t, err)

	body, err := client.RecordingStatus(ctx, "room-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	assert.Equal(t, []string{
		"POST /recordings/room/room-1/start",
		"POST /recordings/room/room-1/stop",
		"GET /recordings/room/room-1/status",
	}, seen)
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":404,"message":"recording not found"}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), staticTokens("t"), nil, nil)

	for i := 0; i < 3; i++ {
		_, err := client.GetRecording(context.Background(), "rec-1")
		var vendorErr *domain.VendorError
		require.True(t, errors.As(err, &vendorErr))
		assert.Equal(t, http.StatusNotFound, vendorErr.StatusCode)
		assert.Equal(t, "recording not found", vendorErr.Message)
	}

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, circuitbreaker.StateClosed, client.Breaker().GetState(), "client errors must not trip the breaker")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"id":"rec-1"}`)
	}))
	defer srv.Close()

	observer := &sampleObserver{}
	client := NewClient(testConfig(srv.URL), staticTokens("t"), observer, nil)

	body, err := client.GetRecording(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"rec-1"}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, observer.samples, 3)
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.Enabled = false
	client := NewClient(cfg, staticTokens("t"), nil, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.RecordingStatus(ctx, "room-1")
		require.Error(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, client.Breaker().GetState())

	_, err := client.RecordingStatus(ctx, "room-1")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	observer := &sampleObserver{}
	cfg := testConfig(srv.URL)
	cfg.Retry.Enabled = false
	client := NewClient(cfg, staticTokens("t"), observer, nil)

	_, err := client.GetRecording(context.Background(), "rec-1")
	require.Error(t, err)
	var vendorErr *domain.VendorError
	assert.False(t, errors.As(err, &vendorErr))
	assert.Equal(t, []recordedSample{{"get_recording", 0}}, observer.samples)
}

func TestClient_EscapesPathSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recordings/a%2Fb", r.URL.EscapedPath())
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), staticTokens("t"), nil, nil)
	_, err := client.GetRecording(context.Background(), "a/b")
	require.NoError(t, err)
}

func TestManagementTokenSource_Static(t *testing.T) {
	src, err := NewManagementTokenSource("static", "", "")
	require.NoError(t, err)

	token, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", token)
}

func TestManagementTokenSource_RequiresCredentials(t *testing.T) {
	_, err := NewManagementTokenSource("", "secret", "")
	assert.Error(t, err)
}

func TestManagementTokenSource_MintsAndReuses(t *testing.T) {
	src, err := NewManagementTokenSource("", "app-secret", "access-key")
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return now }

	first, err := src.Token(context.Background())
	require.NoError(t, err)

	claims := &managementClaims{}
	_, err = jwt.ParseWithClaims(first, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("app-secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)
	assert.Equal(t, "management", claims.Type)
	assert.Equal(t, "access-key", claims.AccessKey)
	assert.Equal(t, 2, claims.Version)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, now.Add(24*time.Hour), claims.ExpiresAt.Time, 0)

	now = now.Add(22 * time.Hour)
	second, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	now = now.Add(time.Hour)
	third, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}
