// Package spanexport implements a custom go.opentelemetry.io/otel/sdk/trace
// SpanExporter that ships error/exception-bearing spans to the HealOps
// ingestion backend. It relies entirely on the host's own
// BatchSpanProcessor for batching cadence — this package only transforms
// and transmits.
package spanexport

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/healops/healops-go/internal/healopserr"
	"github.com/healops/healops-go/internal/record"
	"github.com/healops/healops-go/internal/selflog"
)

// Sender is the subset of transport.Transport this exporter depends on.
type Sender interface {
	SendSpans(ctx context.Context, timeout time.Duration, payload any) error
}

// Exporter implements sdktrace.SpanExporter.
type Exporter struct {
	sender      Sender
	timeout     time.Duration
	apiKey      string
	serviceName string
	log         selflog.Logger
}

var _ sdktrace.SpanExporter = (*Exporter)(nil)

// Config configures an Exporter.
type Config struct {
	Sender      Sender
	Timeout     time.Duration
	APIKey      string
	ServiceName string
	Release     string
	Environment string
	Log         selflog.Logger
}

// New constructs an Exporter.
func New(cfg Config) *Exporter {
	log := cfg.Log
	if log == nil {
		log = selflog.NewNoOp()
	}
	return &Exporter{
		sender:      cfg.Sender,
		timeout:     cfg.Timeout,
		apiKey:      cfg.APIKey,
		serviceName: cfg.ServiceName,
		log:         log,
	}
}

// ExportSpans transforms and ships the given spans. Only spans carrying an
// error status or an exception event are included — this exporter is
// specifically for the error/exception pipeline, not general trace
// shipping. A batch's failure is logged and returned to the caller's
// BatchSpanProcessor; it never blocks or drops the next batch.
func (e *Exporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	var out []record.Span
	for _, s := range spans {
		if rec, ok := e.toRecord(s); ok {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil
	}

	payload := record.SpanBatch{
		APIKey:      e.apiKey,
		ServiceName: e.serviceName,
		Spans:       out,
	}
	if err := e.sender.SendSpans(ctx, e.timeout, payload); err != nil {
		wrapped := healopserr.Transport("span export failed", err)
		e.log.Warn(wrapped.Error())
		return wrapped
	}
	return nil
}

// Shutdown is a no-op: the underlying Sender (transport.Transport) has no
// per-call resources that need releasing beyond what the process's own
// shutdown already tears down.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return nil
}

func (e *Exporter) toRecord(s sdktrace.ReadOnlySpan) (record.Span, bool) {
	status := s.Status()
	isError := status.Code == codes.Error

	attrs := make(map[string]any, len(s.Attributes()))
	for _, attr := range s.Attributes() {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}

	events := make([]record.SpanEvent, 0, len(s.Events()))
	hasException := false
	for _, ev := range s.Events() {
		evAttrs := make(map[string]any, len(ev.Attributes))
		for _, attr := range ev.Attributes {
			evAttrs[string(attr.Key)] = attr.Value.AsInterface()
		}
		events = append(events, record.SpanEvent{
			Name:       ev.Name,
			Time:       ev.Time.UnixMilli(),
			Attributes: evAttrs,
		})

		if ev.Name != "exception" {
			continue
		}
		hasException = true
		// Hoist the exception event's own attributes up into the span's
		// attribute map, per the component design.
		for k, v := range evAttrs {
			attrs[k] = v
		}
	}

	if !isError && !hasException {
		return record.Span{}, false
	}

	// If the span is in error status but no exception event carried its
	// own stacktrace, promote whichever stack-bearing attribute is present.
	if _, ok := attrs["exception.stacktrace"].(string); !ok {
		for _, key := range []string{"error.stack", "stack", "errorStack"} {
			if v, ok := attrs[key]; ok {
				if sv, ok := v.(string); ok && sv != "" {
					attrs["exception.stacktrace"] = sv
					break
				}
			}
		}
	}

	sc := s.SpanContext()
	var parentID string
	if s.Parent().IsValid() {
		parentID = s.Parent().SpanID().String()
	}

	resourceAttrs := map[string]any{}
	if res := s.Resource(); res != nil {
		for _, attr := range res.Attributes() {
			resourceAttrs[string(attr.Key)] = attr.Value.AsInterface()
		}
	}

	return record.Span{
		TraceID:      sc.TraceID().String(),
		SpanID:       sc.SpanID().String(),
		ParentSpanID: parentID,
		Name:         s.Name(),
		Timestamp:    s.EndTime().UnixMilli(),
		StartTime:    s.StartTime().UnixMilli(),
		EndTime:      s.EndTime().UnixMilli(),
		Attributes:   attrs,
		Events:       events,
		Status: record.SpanStatus{
			Code:    status.Code.String(),
			Message: status.Description,
		},
		Resource: resourceAttrs,
	}, true
}
