package hms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cohortcast/internal/core/domain"
	"cohortcast/pkg/circuitbreaker"
	"cohortcast/pkg/retry"
	"cohortcast/pkg/tracing"

	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// Observer receives one sample per HTTP exchange with the platform.
type Observer interface {
	ObserveVendorRequest(operation string, status int, duration time.Duration)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	Retry   retry.Config
	Breaker circuitbreaker.Config
}

// Client calls the 100ms recording REST API. Transport failures, 5xx and 429
// answers are retried; the retried call as a whole goes through a circuit
// breaker that ignores client errors.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	retry      retry.Config
	breaker    *circuitbreaker.CircuitBreaker
	observer   Observer
	logger     *zap.SugaredLogger
}

func NewClient(cfg Config, tokens TokenSource, observer Observer, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	retryCfg := cfg.Retry
	retryCfg.Retryable = isRetryable

	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = isBreakerFailure

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		retry:      retryCfg,
		breaker:    circuitbreaker.New(breakerCfg),
		observer:   observer,
		logger:     logger,
	}
}

// Breaker exposes the circuit breaker for readiness checks and metrics.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

type listResponse struct {
	Data    []json.RawMessage `json:"data"`
	Total   int               `json:"total"`
	HasNext bool              `json:"has_next"`
}

func (c *Client) ListRecordings(ctx context.Context, query domain.RecordingQuery) (*domain.RecordingPage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(query.Limit))
	params.Set("start", strconv.Itoa(query.Start()))
	if query.RoomID != "" {
		params.Set("room_id", string(query.RoomID))
	}

	body, err := c.call(ctx, "list_recordings", http.MethodGet, "/recordings", params, nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode recordings list: %w", err)
	}
	return &domain.RecordingPage{
		Recordings: resp.Data,
		Page:       query.Page,
		Limit:      query.Limit,
		Total:      resp.Total,
		HasNext:    resp.HasNext,
	}, nil
}

func (c *Client) GetRecording(ctx context.Context, recordingID string) (json.RawMessage, error) {
	return c.call(ctx, "get_recording", http.MethodGet, "/recordings/"+url.PathEscape(recordingID), nil, nil)
}

func (c *Client) StartRecording(ctx context.Context, req domain.StartRecordingRequest) (json.RawMessage, error) {
	path := fmt.Sprintf("/recordings/room/%s/start", url.PathEscape(string(req.RoomID)))
	return c.call(ctx, "start_recording", http.MethodPost, path, nil, req)
}

func (c *Client) StopRecording(ctx context.Context, roomID domain.RoomID) (json.RawMessage, error) {
	path := fmt.Sprintf("/recordings/room/%s/stop", url.PathEscape(string(roomID)))
	return c.call(ctx, "stop_recording", http.MethodPost, path, nil, struct{}{})
}

func (c *Client) RecordingStatus(ctx context.Context, roomID domain.RoomID) (json.RawMessage, error) {
	path := fmt.Sprintf("/recordings/room/%s/status", url.PathEscape(string(roomID)))
	return c.call(ctx, "recording_status", http.MethodGet, path, nil, nil)
}

func (c *Client) call(ctx context.Context, operation, method, path string, params url.Values, payload any) (json.RawMessage, error) {
	ctx, span := tracing.TraceVendorCall(ctx, operation)
	defer span.End()

	body, err := circuitbreaker.Do(ctx, c.breaker, func() (json.RawMessage, error) {
		return retry.RetryWithResult(ctx, c.retry, func() (json.RawMessage, error) {
			return c.send(ctx, operation, method, path, params, payload)
		})
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		c.logger.Warnw("platform request failed",
			"operation", operation,
			"path", path,
			"error", err,
		)
		return nil, err
	}
	return body, nil
}

func (c *Client) send(ctx context.Context, operation, method, path string, params url.Values, payload any) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", operation, err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(operation, 0, start)
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()
	c.observe(operation, resp.StatusCode, start)
	tracing.AddSpanAttributes(ctx, tracing.VendorStatusKey.Int(resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newVendorError(resp.StatusCode, data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: platform returned invalid JSON", operation)
	}
	return json.RawMessage(data), nil
}

func (c *Client) observe(operation string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveVendorRequest(operation, status, time.Since(start))
	}
}

func newVendorError(status int, body []byte) *domain.VendorError {
	vendorErr := &domain.VendorError{StatusCode: status}
	if json.Valid(body) {
		vendorErr.Body = json.RawMessage(body)
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			vendorErr.Message = payload.Message
		}
	}
	return vendorErr
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var vendorErr *domain.VendorError
	if errors.As(err, &vendorErr) {
		return vendorErr.Temporary()
	}
	return true
}

func isBreakerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var vendorErr *domain.VendorError
	if errors.As(err, &vendorErr) {
		return vendorErr.StatusCode >= 500
	}
	return true
}
