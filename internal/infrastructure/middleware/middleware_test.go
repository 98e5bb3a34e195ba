package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cohortcast/internal/core/domain"
	apperrors "cohortcast/pkg/errors"
	"cohortcast/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *logger.ContextLogger {
	return logger.NewContextLogger(zap.NewNop())
}

type fakeValidator map[string]domain.CredentialStatus

func (f fakeValidator) Validate(token string) domain.CredentialStatus {
	if status, ok := f[token]; ok {
		return status
	}
	return domain.CredentialStatus{Failure: domain.ErrInvalidCredential}
}

var validators = fakeValidator{
	"host": {
		Valid: true, ParticipantID: "p-1", RoomID: "room-1",
		Role: domain.RoleBroadcaster, CanPublish: true, CanControl: true,
	},
	"viewer": {
		Valid: true, ParticipantID: "p-2", RoomID: "room-1",
		Role: domain.RoleViewerRealtime,
	},
	"stale": {Failure: domain.ErrExpiredCredential},
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func controlRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlerMiddleware(testLogger()))
	router.POST("/control", Authenticate(validators), RequireControl(), func(c *gin.Context) {
		status, ok := CredentialFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"participant_id": status.ParticipantID})
	})
	return router
}

func TestRequireControl(t *testing.T) {
	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic host", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, "INVALID_CREDENTIAL"},
		{"expired token", "Bearer stale", http.StatusUnauthorized, "EXPIRED_CREDENTIAL"},
		{"viewer cannot control", "Bearer viewer", http.StatusForbidden, "FORBIDDEN"},
	}

	router := controlRouter()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/control", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w)["error"])
		})
	}

	t.Run("broadcaster passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/control", nil)
		req.Header.Set("Authorization", "bearer host")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"participant_id":"p-1"}`, w.Body.String())
	})
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc.def.ghi")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", token)

	_, ok = BearerToken("abc.def.ghi")
	assert.False(t, ok)
}

func TestErrorHandlerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlerMiddleware(testLogger()))
	router.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperrors.NewInvalidInputError("bad role").WithContext("field", "role"))
	})
	router.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("database exploded"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "INVALID_INPUT", body["error"])
	assert.Equal(t, "bad role", body["message"])
	assert.Equal(t, map[string]any{"field": "role"}, body["details"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body = decodeError(t, w)
	assert.Equal(t, "INTERNAL_ERROR", body["error"])
	assert.NotContains(t, w.Body.String(), "database exploded")
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryMiddleware(testLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, w)["error"])
}

type httpSample struct {
	method, route string
	status        int
}

type httpRecorder struct {
	samples []httpSample
}

func (r *httpRecorder) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	r.samples = append(r.samples, httpSample{method, route, status})
}

func TestRequestIDAndLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &httpRecorder{}

	router := gin.New()
	router.Use(RequestIDMiddleware(), LoggingMiddleware(testLogger(), observer), TracingMiddleware())
	router.GET("/items/:id", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestIDFromContext(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items/7", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/8", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	require.Len(t, observer.samples, 2)
	assert.Equal(t, httpSample{"GET", "/items/:id", http.StatusOK}, observer.samples[0])
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://app.example.com"}))
	router.POST("/api/auth/token", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/token", nil)
	req.Header.Set("Origin", "https://app.example.com")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/auth/token", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddleware_Wildcard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware([]string{"*"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	router.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
