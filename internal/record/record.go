// Package record defines the wire-format structures shipped to the HealOps
// ingestion endpoints, matching the external interface contract exactly.
package record

import "time"

// Severity is the log severity level, one of the four the façade exposes.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Frame is a single resolved (or unresolved) stack frame.
type Frame struct {
	FunctionName string `json:"functionName,omitempty"`
	FileName     string `json:"fileName"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber"`
	// Resolved is true once a source map successfully mapped this frame
	// back to original source coordinates.
	Resolved bool `json:"resolved"`
}

// Log is a single log record, matching the /ingest/logs wire format. The
// metadata map is where everything beyond the fixed envelope lives:
// filePath, line, column, functionName, stack, errorStack, an exception
// sub-record for ERROR/CRITICAL, the four OTel code.* attributes, and any
// arbitrary caller-supplied keys.
type Log struct {
	ServiceName string         `json:"service_name"`
	Severity    Severity       `json:"severity"`
	Message     string         `json:"message"`
	Source      string         `json:"source"`
	Timestamp   time.Time      `json:"timestamp"`
	Release     string         `json:"release,omitempty"`
	Environment string         `json:"environment,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Batch is the payload shape for /ingest/logs/batch.
type Batch struct {
	Logs []Log `json:"logs"`
}

// SpanEvent is a single timestamped event attached to a span.
type SpanEvent struct {
	Name       string         `json:"name"`
	Time       int64          `json:"time"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// SpanStatus is a span's terminal status.
type SpanStatus struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Span is a single exported trace span, matching the /otel/errors wire
// format. Exception details for an ERROR-status span are hoisted into
// Attributes under exception.type/exception.message/exception.stacktrace
// rather than carried as separate struct fields.
type Span struct {
	TraceID      string         `json:"traceId"`
	SpanID       string         `json:"spanId"`
	ParentSpanID string         `json:"parentSpanId,omitempty"`
	Name         string         `json:"name"`
	Timestamp    int64          `json:"timestamp"`
	StartTime    int64          `json:"startTime"`
	EndTime      int64          `json:"endTime"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	Events       []SpanEvent    `json:"events,omitempty"`
	Status       SpanStatus     `json:"status"`
	Resource     map[string]any `json:"resource,omitempty"`
}

// SpanBatch is the payload shape for a single /otel/errors export call. The
// API key rides in the envelope body rather than a request header.
type SpanBatch struct {
	APIKey      string `json:"apiKey"`
	ServiceName string `json:"serviceName"`
	Spans       []Span `json:"spans"`
}
