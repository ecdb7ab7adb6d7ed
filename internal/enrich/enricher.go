// Package enrich builds the final outbound record from a raw log call:
// resolving the caller's stack, attaching masked metadata, and synthesizing
// exception fields from an error-shaped argument.
package enrich

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/healops/healops-go/internal/record"
	"github.com/healops/healops-go/internal/sourcemap"
	"github.com/healops/healops-go/internal/stackparse"
)

// enrichmentBudget bounds how long one resolution pass is allowed to block
// on source-map fetches; once the budget is spent the caller's own raw
// frame is used unresolved rather than waiting further. Build starts a
// separate budget for the cleaned stack and for the caller frame, so one
// record can wait up to twice this long.
const enrichmentBudget = 1000 * time.Millisecond

// Enricher turns a raw message plus caller context into a fully populated
// record.Log.
type Enricher struct {
	resolver    *sourcemap.Resolver
	enableMaps  bool
	serviceName string
	release     string
	environment string
	source      string
	reentrant   atomic.Bool
}

// Config configures an Enricher.
type Config struct {
	Resolver         *sourcemap.Resolver
	EnableSourceMaps bool
	ServiceName      string
	Release          string
	Environment      string
	Source           string
}

// New constructs an Enricher.
func New(cfg Config) *Enricher {
	return &Enricher{
		resolver:    cfg.Resolver,
		enableMaps:  cfg.EnableSourceMaps,
		serviceName: cfg.ServiceName,
		release:     cfg.Release,
		environment: cfg.Environment,
		source:      cfg.Source,
	}
}

// Build constructs a record.Log from a façade call, following the
// component design's enrichment steps: select a raw stack (caller-supplied
// metadata beats a synthetic capture), clean it of SDK frames, resolve a
// filePath through the caller-supplied/raw-stack/cleaned-stack/synthetic
// priority chain (rewriting bundled paths to source via the resolver),
// attach the OTel code.* attributes once a filePath is known, and for
// ERROR/CRITICAL severities synthesize an exception sub-record.
//
// A reentrance guard prevents an enrichment failure (e.g. a source-map
// fetch itself producing a log call through an instrumented HTTP client)
// from recursing back into this same Enricher; a reentrant call returns a
// minimally enriched record with no stack resolution.
func (e *Enricher) Build(ctx context.Context, severity record.Severity, message string, metadata map[string]any) record.Log {
	meta := MaskMetadata(metadata)
	if meta == nil {
		meta = map[string]any{}
	}

	rec := record.Log{
		ServiceName: e.serviceName,
		Severity:    severity,
		Message:     message,
		Source:      e.source,
		Timestamp:   time.Now().UTC(),
		Release:     e.release,
		Environment: e.environment,
	}

	if !e.reentrant.CompareAndSwap(false, true) {
		rec.Metadata = meta
		return rec
	}
	defer e.reentrant.Store(false)

	rawStack, usingSynthetic := selectRawStack(metadata)
	if usingSynthetic {
		rawStack = captureStack()
	}

	cleaned, parseErr := stackparse.Parse(rawStack)
	if parseErr == nil {
		if e.enableMaps && e.resolver != nil {
			rctx, cancel := context.WithTimeout(ctx, enrichmentBudget)
			for i, f := range cleaned {
				cleaned[i] = e.resolver.Resolve(rctx, f)
			}
			cancel()
		}
		meta["stack"] = cleaned
	}

	if frame, ok := e.resolveCallerFrame(ctx, metadata, rawStack, cleaned, usingSynthetic); ok {
		meta["filePath"] = frame.FileName
		meta["line"] = frame.LineNumber
		meta["column"] = frame.ColumnNumber
		if frame.FunctionName != "" {
			meta["functionName"] = frame.FunctionName
		}
		meta["code.file.path"] = frame.FileName
		meta["code.line.number"] = frame.LineNumber
		meta["code.column.number"] = frame.ColumnNumber
		meta["code.function.name"] = frame.FunctionName
	}

	if severity == record.SeverityError || severity == record.SeverityCritical {
		meta["exception"] = e.synthesizeException(metadata, message, cleaned)
	}

	rec.Metadata = meta
	return rec
}

// selectRawStack implements the component design's rawStack priority
// chain: caller-supplied metadata.errorStack, then metadata.stack, then
// metadata.exception.stacktrace. When none is present, usingSynthetic is
// true and the caller must fall back to a captured stack.
func selectRawStack(metadata map[string]any) (stack string, usingSynthetic bool) {
	if s, ok := stringField(metadata, "errorStack"); ok && s != "" {
		return s, false
	}
	if s, ok := stringField(metadata, "stack"); ok && s != "" {
		return s, false
	}
	if exc, ok := mapField(metadata, "exception"); ok {
		if s, ok := stringField(exc, "stacktrace"); ok && s != "" {
			return s, false
		}
	}
	return "", true
}

// resolveCallerFrame implements the component design's filePath priority
// chain: caller-supplied metadata.filePath first, then the first meaningful
// path from the raw (unfiltered) stack, then the first path from the
// cleaned stack, then the synthesized frame. Whichever frame is chosen is
// always run through the source-map resolver so a bundled path still
// rewrites to source.
func (e *Enricher) resolveCallerFrame(ctx context.Context, metadata map[string]any, rawStack string, cleaned []record.Frame, usingSynthetic bool) (record.Frame, bool) {
	var frame record.Frame
	var ok bool

	switch {
	case hasFilePath(metadata):
		fp, _ := stringField(metadata, "filePath")
		frame = record.Frame{FileName: fp}
		if line, has := intField(metadata, "line"); has {
			frame.LineNumber = line
		}
		if col, has := intField(metadata, "column"); has {
			frame.ColumnNumber = col
		}
		if fn, has := stringField(metadata, "functionName"); has {
			frame.FunctionName = fn
		}
		ok = true
	case !usingSynthetic:
		// A real caller-supplied stack is present: extraction is more
		// reliable against its raw (unfiltered) form than the cleaned one.
		if f, found := stackparse.FirstFrame(rawStack); found {
			frame, ok = f, true
		} else if len(cleaned) > 0 {
			frame, ok = cleaned[0], true
		}
	default:
		// No error stack at all: fall back to the synthetic capture's
		// first meaningful (already SDK-filtered) frame.
		if len(cleaned) > 0 {
			frame, ok = cleaned[0], true
		}
	}

	if !ok {
		return record.Frame{}, false
	}

	if e.enableMaps && e.resolver != nil {
		rctx, cancel := context.WithTimeout(ctx, enrichmentBudget)
		defer cancel()
		frame = e.resolver.Resolve(rctx, frame)
	}
	return frame, true
}

// synthesizeException builds the {type, message, stacktrace} sub-record
// required for ERROR/CRITICAL severities, in the component design's
// priority order: caller-supplied metadata.errorName/errorMessage; then
// caller-supplied metadata.exception.*; then defaults of "Error" and the
// record's own message.
func (e *Enricher) synthesizeException(metadata map[string]any, message string, cleaned []record.Frame) map[string]any {
	stacktrace := frameStackString(cleaned)

	if name, hasName := stringField(metadata, "errorName"); hasName && name != "" {
		msg, _ := stringField(metadata, "errorMessage")
		if st, hasStack := stringField(metadata, "errorStack"); hasStack && st != "" {
			stacktrace = st
		}
		return map[string]any{"type": name, "message": msg, "stacktrace": stacktrace}
	}

	if exc, ok := mapField(metadata, "exception"); ok {
		excType, _ := stringField(exc, "type")
		excMsg, _ := stringField(exc, "message")
		excStack, hasStack := stringField(exc, "stacktrace")
		if excType != "" || excMsg != "" {
			if excType == "" {
				excType = "Error"
			}
			if hasStack && excStack != "" {
				stacktrace = excStack
			}
			return map[string]any{"type": excType, "message": excMsg, "stacktrace": stacktrace}
		}
	}

	return map[string]any{"type": "Error", "message": message, "stacktrace": stacktrace}
}

// frameStackString renders resolved frames into a human-readable
// stacktrace string, used when no caller-supplied stacktrace is available.
func frameStackString(frames []record.Frame) string {
	var b strings.Builder
	for _, f := range frames {
		fn := f.FunctionName
		if fn == "" {
			fn = "<anonymous>"
		}
		b.WriteString(fn)
		b.WriteString(" (")
		b.WriteString(f.FileName)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(f.LineNumber))
		if f.ColumnNumber > 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(f.ColumnNumber))
		}
		b.WriteString(")\n")
	}
	return b.String()
}

// captureStack renders the current goroutine's stack using the runtime
// debug format, trimming the initial "goroutine N [running]:" header line
// the stack parser does not need.
func captureStack() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	s := string(buf[:n])
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func hasFilePath(metadata map[string]any) bool {
	fp, ok := stringField(metadata, "filePath")
	return ok && fp != ""
}

func stringField(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, exists := m[key]
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intField(m map[string]any, key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	v, exists := m[key]
	if !exists {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func mapField(m map[string]any, key string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	v, exists := m[key]
	if !exists {
		return nil, false
	}
	sub, ok := v.(map[string]any)
	return sub, ok
}
