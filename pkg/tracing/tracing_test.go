package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "cohortcast", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestStartSpan_NoProvider(t *testing.T) {
	_, span := StartSpan(context.Background(), "test.operation")
	require.NotNil(t, span)
	span.End()
}

func TestTraceVendorCall(t *testing.T) {
	recorder := useRecorder(t)

	ctx, span := TraceVendorCall(context.Background(), "list_recordings")
	AddSpanAttributes(ctx, VendorStatusKey.Int(200))
	MeasureDuration(ctx, time.Now())
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "hms.list_recordings", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	assert.Contains(t, spans[0].Attributes(), VendorOpKey.String("list_recordings"))
	assert.Contains(t, spans[0].Attributes(), VendorStatusKey.Int(200))
}

func TestTraceHTTPRequest(t *testing.T) {
	recorder := useRecorder(t)

	_, span := TraceHTTPRequest(context.Background(), "POST", "/api/auth/token")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "http.POST", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
}

func TestRecordError(t *testing.T) {
	recorder := useRecorder(t)

	ctx, span := TraceTokenOperation(context.Background(), "issue")
	RecordError(ctx, errors.New("boom"))
	AddSpanAttributes(ctx, attribute.String("k", "v"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
}

func TestSetLogger(t *testing.T) {
	SetLogger(logr.Discard())
	otel.Handle(errors.New("ignored"))
}
