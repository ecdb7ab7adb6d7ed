// Package healopserr defines the internal error taxonomy used across the
// SDK. No error originating here is ever returned from a public façade
// method on the running Client — it is logged through selflog and, where
// applicable, folded into a dropped-record or self-metrics counter instead.
// The one exception is construction-time configuration validation, where
// returning an error is the correct and only signal available.
package healopserr

import "fmt"

// Kind determines whether the error is worth retrying and how it should be
// counted in self-metrics.
type Kind string

const (
	// KindTransient represents a failure that might succeed if retried
	// unchanged (network blip, 5xx, timeout).
	KindTransient Kind = "TRANSIENT"

	// KindPermanent represents a failure that will not succeed on retry
	// without changing the input (malformed payload, 4xx other than 429).
	KindPermanent Kind = "PERMANENT"

	// KindInternal represents a bug or invariant violation inside the SDK
	// itself (nil dereference guarded by recover, parse logic error).
	KindInternal Kind = "INTERNAL"
)

// Code enumerates the error taxonomy from the component design.
type Code string

const (
	CodeTransportError           Code = "TRANSPORT_ERROR"
	CodeBatchEndpointUnavailable Code = "BATCH_ENDPOINT_UNAVAILABLE"
	CodeSourceMapUnavailable     Code = "SOURCE_MAP_UNAVAILABLE"
	CodeStackParseError          Code = "STACK_PARSE_ERROR"
	CodeEnqueueAfterDestroy      Code = "ENQUEUE_AFTER_DESTROY"
	CodeHostIngestionError       Code = "HOST_INGESTION_ERROR"
	CodeConfigInvalid            Code = "CONFIG_INVALID"
)

// Error is the standardized internal error value for this module.
type Error struct {
	Code    Code
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the error's Kind suggests a retry might help.
func (e *Error) Retryable() bool { return e.Kind == KindTransient }
