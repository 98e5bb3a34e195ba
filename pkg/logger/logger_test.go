package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	l := New("debug", "json")
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l = New("warn", "console")
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l = New("not-a-level", "json")
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestContextLogger_AddsContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cl := NewContextLogger(zap.New(core))

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithParticipantID(ctx, "participant-1")
	cl.LogRequest(ctx, "POST", "/api/auth/token", 201, 3)

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "participant-1", fields["participant_id"])
	assert.Equal(t, int64(201), fields["status_code"])
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
}

func TestContextLogger_NoFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cl := NewContextLogger(zap.New(core))

	cl.LogInfo(context.Background(), "hello")
	assert.Len(t, logs.All(), 1)
	assert.Empty(t, logs.All()[0].ContextMap())
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}
