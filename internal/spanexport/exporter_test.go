package spanexport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/healops/healops-go/internal/record"
)

type fakeSpanSender struct {
	lastBatch record.SpanBatch
	called    bool
	err       error
}

func (f *fakeSpanSender) SendSpans(ctx context.Context, timeout time.Duration, payload any) error {
	f.called = true
	f.lastBatch = payload.(record.SpanBatch)
	return f.err
}

func TestExportSpans_OnlyShipsErrorAndExceptionSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := tp.Tracer("test")

	_, okSpan := tracer.Start(context.Background(), "ok-op")
	okSpan.End()

	_, errSpan := tracer.Start(context.Background(), "error-op")
	errSpan.SetStatus(codes.Error, "boom")
	errSpan.RecordError(errors.New("boom"))
	errSpan.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	sender := &fakeSpanSender{}
	exp := New(Config{Sender: sender, Timeout: time.Second, APIKey: "k", ServiceName: "svc", Release: "1.0", Environment: "test"})

	err := exp.ExportSpans(context.Background(), spans)
	require.NoError(t, err)
	require.True(t, sender.called)
	require.Len(t, sender.lastBatch.Spans, 1)
	assert.Equal(t, "k", sender.lastBatch.APIKey)
	assert.Equal(t, "svc", sender.lastBatch.ServiceName)
	assert.Equal(t, "error-op", sender.lastBatch.Spans[0].Name)
	assert.Equal(t, "Error", sender.lastBatch.Spans[0].Status.Code)
	assert.Contains(t, sender.lastBatch.Spans[0].Attributes["exception.message"], "boom")
}

func TestExportSpans_NoQualifyingSpansSendsNothing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := tp.Tracer("test")

	_, span := tracer.Start(context.Background(), "fine-op")
	span.End()

	sender := &fakeSpanSender{}
	exp := New(Config{Sender: sender, Timeout: time.Second})

	err := exp.ExportSpans(context.Background(), sr.Ended())
	require.NoError(t, err)
	assert.False(t, sender.called)
}

func TestExportSpans_UsesEndTimeAsTimestamp(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := tp.Tracer("test")

	_, span := tracer.Start(context.Background(), "error-op")
	span.SetStatus(codes.Error, "boom")
	span.End()

	sender := &fakeSpanSender{}
	exp := New(Config{Sender: sender, Timeout: time.Second})
	require.NoError(t, exp.ExportSpans(context.Background(), sr.Ended()))

	got := sender.lastBatch.Spans[0]
	assert.Equal(t, got.EndTime, got.Timestamp)
}

func TestExportSpans_PropagatesSendError(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := tp.Tracer("test")

	_, span := tracer.Start(context.Background(), "error-op")
	span.SetStatus(codes.Error, "boom")
	span.End()

	sender := &fakeSpanSender{err: errors.New("network down")}
	exp := New(Config{Sender: sender, Timeout: time.Second})

	err := exp.ExportSpans(context.Background(), sr.Ended())
	assert.Error(t, err)
}

func TestShutdown_IsNoop(t *testing.T) {
	exp := New(Config{Sender: &fakeSpanSender{}})
	assert.NoError(t, exp.Shutdown(context.Background()))
}
