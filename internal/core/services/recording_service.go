package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cohortcast/internal/core/domain"
	"cohortcast/internal/core/ports"
	"cohortcast/pkg/circuitbreaker"
	apperrors "cohortcast/pkg/errors"

	"go.uber.org/zap"
)

const recordingCachePrefix = "recordings:list:"

// RecordingMetrics receives cache lookups; implemented by the Prometheus collector.
type RecordingMetrics interface {
	RecordCacheLookup(hit bool)
}

type recordingService struct {
	gateway  ports.RecordingGateway
	cache    ports.Cache
	cacheTTL time.Duration
	metrics  RecordingMetrics
	logger   *zap.SugaredLogger
}

// NewRecordingService proxies recording management to gateway. List pages are
// cached for cacheTTL when cache is non-nil and cacheTTL > 0.
func NewRecordingService(
	gateway ports.RecordingGateway,
	cache ports.Cache,
	cacheTTL time.Duration,
	metrics RecordingMetrics,
	logger *zap.SugaredLogger,
) ports.RecordingService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &recordingService{
		gateway:  gateway,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
	}
}

// NormalizeRecordingQuery applies the page defaults and the platform's page size limit.
func NormalizeRecordingQuery(q domain.RecordingQuery) domain.RecordingQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = domain.DefaultRecordingPageLimit
	}
	if q.Limit > domain.MaxRecordingPageLimit {
		q.Limit = domain.MaxRecordingPageLimit
	}
	return q
}

func (s *recordingService) ListRecordings(ctx context.Context, query domain.RecordingQuery) (*domain.RecordingPage, error) {
	query = NormalizeRecordingQuery(query)
	key := fmt.Sprintf("%s%s:%d:%d", recordingCachePrefix, query.RoomID, query.Page, query.Limit)

	if page, ok := s.cachedPage(ctx, key); ok {
		return page, nil
	}

	page, err := s.gateway.ListRecordings(ctx, query)
	if err != nil {
		return nil, mapGatewayError(err, "room", "failed to fetch recordings")
	}
	page.Page = query.Page
	page.Limit = query.Limit
	if page.Recordings == nil {
		page.Recordings = []json.RawMessage{}
	}

	s.storePage(ctx, key, page)
	return page, nil
}

func (s *recordingService) GetRecording(ctx context.Context, recordingID string) (json.RawMessage, error) {
	body, err := s.gateway.GetRecording(ctx, recordingID)
	if err != nil {
		return nil, mapGatewayError(err, "recording", "failed to fetch recording")
	}
	return body, nil
}

func (s *recordingService) StartRecording(ctx context.Context, req domain.StartRecordingRequest) (json.RawMessage, error) {
	body, err := s.gateway.StartRecording(ctx, req)
	if err != nil {
		return nil, mapGatewayError(err, "room", "failed to start recording")
	}
	s.invalidate(ctx)
	s.logger.Infow("recording started", "room_id", req.RoomID)
	return body, nil
}

func (s *recordingService) StopRecording(ctx context.Context, roomID domain.RoomID) (json.RawMessage, error) {
	body, err := s.gateway.StopRecording(ctx, roomID)
	if err != nil {
		return nil, mapGatewayError(err, "room", "failed to stop recording")
	}
	s.invalidate(ctx)
	s.logger.Infow("recording stopped", "room_id", roomID)
	return body, nil
}

func (s *recordingService) RecordingStatus(ctx context.Context, roomID domain.RoomID) (json.RawMessage, error) {
	body, err := s.gateway.RecordingStatus(ctx, roomID)
	if err != nil {
		return nil, mapGatewayError(err, "room", "failed to get recording status")
	}
	return body, nil
}

func (s *recordingService) cachingEnabled() bool {
	return s.cache != nil && s.cacheTTL > 0
}

func (s *recordingService) cachedPage(ctx context.Context, key string) (*domain.RecordingPage, bool) {
	if !s.cachingEnabled() {
		return nil, false
	}

	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warnw("recordings cache read failed", "key", key, "error", err)
		return nil, false
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(found)
	}
	if !found {
		return nil, false
	}

	var page domain.RecordingPage
	if err := json.Unmarshal(data, &page); err != nil {
		s.logger.Warnw("dropping undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	return &page, true
}

func (s *recordingService) storePage(ctx context.Context, key string, page *domain.RecordingPage) {
	if !s.cachingEnabled() {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warnw("recordings cache write failed", "key", key, "error", err)
	}
}

func (s *recordingService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, recordingCachePrefix); err != nil {
		s.logger.Warnw("recordings cache invalidation failed", "error", err)
	}
}

// mapGatewayError converts platform and transport failures into API errors.
// resource names what a platform 404 was looking for. Platform 401 and 403
// mean the management credential was refused and map to 502.
func mapGatewayError(err error, resource, message string) error {
	var vendorErr *domain.VendorError
	switch {
	case errors.As(err, &vendorErr):
		if vendorErr.StatusCode == http.StatusNotFound {
			return apperrors.NewNotFoundError(resource)
		}
		status := http.StatusBadGateway
		switch {
		case vendorErr.StatusCode == http.StatusUnauthorized, vendorErr.StatusCode == http.StatusForbidden:
		case vendorErr.StatusCode >= 400 && vendorErr.StatusCode < 500:
			status = vendorErr.StatusCode
		}
		appErr := apperrors.NewBadGatewayError(err, message, status)
		if vendorErr.Message != "" {
			appErr.WithContext("platform_message", vendorErr.Message)
		}
		return appErr
	case errors.Is(err, circuitbreaker.ErrOpen):
		return apperrors.WrapError(err, apperrors.ErrCodeServiceUnavailable,
			"recording service temporarily unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.WrapError(err, apperrors.ErrCodeServiceUnavailable,
			"recording service timed out", http.StatusGatewayTimeout)
	default:
		return apperrors.NewBadGatewayError(err, message, http.StatusBadGateway)
	}
}
