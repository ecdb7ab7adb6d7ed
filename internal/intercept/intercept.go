// Package intercept wraps Go's process-global default loggers — log.Default()
// and slog.Default() — so every line written through either one is also
// shipped as a HealOps log record, the closest structural analogue Go has
// to patching a JS console object's five methods.
package intercept

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync"

	"github.com/healops/healops-go/internal/record"
)

// Sink receives a severity/message/metadata triple for every intercepted
// line. The façade (healops.Client) implements this.
type Sink interface {
	Capture(severity record.Severity, message string, metadata map[string]any)
}

// Interceptor owns the single original writer/handler this process had
// before Start was called, so Stop can restore it exactly once. It is
// idempotent: calling Start or Stop more than once is a no-op after the
// first call.
type Interceptor struct {
	sink Sink

	mu       sync.Mutex
	started  bool
	origLog  io.Writer
	origSlog slog.Handler
}

// New constructs an Interceptor delivering captured lines to sink.
func New(sink Sink) *Interceptor {
	return &Interceptor{sink: sink}
}

// Start installs the wrapping writer/handler. Safe to call more than
// once; only the first call has an effect.
func (i *Interceptor) Start() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.started {
		return
	}
	i.started = true

	i.origLog = log.Writer()
	log.SetOutput(&teeWriter{sink: i.sink, next: i.origLog})

	i.origSlog = slog.Default().Handler()
	slog.SetDefault(slog.New(&slogTee{sink: i.sink, next: i.origSlog}))
}

// Stop restores the original writer/handler captured at Start. Safe to
// call more than once, and safe to call without a prior Start.
func (i *Interceptor) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.started {
		return
	}
	i.started = false

	log.SetOutput(i.origLog)
	slog.SetDefault(slog.New(i.origSlog))
}

// teeWriter forwards every Write to the original destination first (so
// developer-facing output is never lost), then forwards the same line to
// the sink at INFO — collapsing log.Print/Printf/Println's single
// undifferentiated channel onto the INFO severity, matching the console
// interceptor's severity mapping for "log"/"info"/"debug".
type teeWriter struct {
	sink Sink
	next io.Writer
}

func (w *teeWriter) Write(p []byte) (int, error) {
	n, err := w.next.Write(p)
	w.sink.Capture(record.SeverityInfo, string(p), nil)
	return n, err
}

// slogTee wraps an slog.Handler, forwarding to the original handler first
// and then to the sink with the severity mapping from the component
// design: Debug/Info -> INFO, Warn -> WARNING, Error -> ERROR.
type slogTee struct {
	sink Sink
	next slog.Handler
}

func (h *slogTee) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *slogTee) Handle(ctx context.Context, r slog.Record) error {
	err := h.next.Handle(ctx, r)

	meta := attrsToMetadata(r)
	severity := mapSeverity(r.Level)

	if r.Level == slog.LevelError {
		if name, msg, ok := errorShapeFromMetadata(meta); ok {
			meta["errorName"] = name
			meta["errorMessage"] = msg
		}
	}

	h.sink.Capture(severity, r.Message, meta)
	return err
}

func (h *slogTee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &slogTee{sink: h.sink, next: h.next.WithAttrs(attrs)}
}

func (h *slogTee) WithGroup(name string) slog.Handler {
	return &slogTee{sink: h.sink, next: h.next.WithGroup(name)}
}

func mapSeverity(level slog.Level) record.Severity {
	switch {
	case level >= slog.LevelError:
		return record.SeverityError
	case level >= slog.LevelWarn:
		return record.SeverityWarning
	default:
		return record.SeverityInfo
	}
}

func attrsToMetadata(r slog.Record) map[string]any {
	meta := make(map[string]any, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		meta[a.Key] = coerceAttrValue(a)
		return true
	})
	return meta
}

// coerceAttrValue serializes a structured slog value through
// encoding/json, falling back to fmt.Sprint when the value cannot be
// marshaled (channels, funcs, circular references).
func coerceAttrValue(a slog.Attr) any {
	v := a.Value.Any()
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}

func errorShapeFromMetadata(meta map[string]any) (name, message string, ok bool) {
	for _, v := range meta {
		if err, isErr := v.(error); isErr {
			return fmt.Sprintf("%T", err), err.Error(), true
		}
	}
	return "", "", false
}
