package healopserr

import "fmt"

// New is the generic constructor for Error.
func New(code Code, kind Kind, message string, err error) *Error {
	return &Error{Code: code, Kind: kind, Message: message, Err: err}
}

// Transport builds a CodeTransportError, wrapping the underlying transport
// failure (network error, non-2xx after retries exhausted).
func Transport(message string, err error) *Error {
	return New(CodeTransportError, KindTransient, message, err)
}

// BatchEndpointUnavailable builds a CodeBatchEndpointUnavailable error for
// the single-send fallback path described in the batcher's component design.
func BatchEndpointUnavailable(err error) *Error {
	return New(CodeBatchEndpointUnavailable, KindTransient, "batch endpoint unavailable, falling back to per-record send", err)
}

// SourceMapUnavailable builds a CodeSourceMapUnavailable error for a 404,
// parse failure, or fetch timeout while resolving a source map.
func SourceMapUnavailable(url string, err error) *Error {
	return New(CodeSourceMapUnavailable, KindPermanent, "source map unavailable: "+url, err)
}

// StackParseError builds a CodeStackParseError for a stack string that no
// known dialect can parse.
func StackParseError(raw string, err error) *Error {
	return New(CodeStackParseError, KindPermanent, "could not parse stack trace", err)
}

// EnqueueAfterDestroy builds a CodeEnqueueAfterDestroy error for a record
// submitted after the client has been destroyed.
func EnqueueAfterDestroy() *Error {
	return New(CodeEnqueueAfterDestroy, KindPermanent, "record enqueued after destroy, dropped", nil)
}

// HostIngestionError builds a CodeHostIngestionError for a non-2xx response
// from the ingestion backend that the transport's retry policy gave up on.
func HostIngestionError(status int, body string) *Error {
	return New(CodeHostIngestionError, KindTransient, "ingestion endpoint rejected batch", fmt.Errorf("status %d: %s", status, body))
}

// ConfigInvalid builds a CodeConfigInvalid error for a Config that failed
// validation at construction time. This is the one error kind this module
// returns directly to the caller.
func ConfigInvalid(err error) *Error {
	return New(CodeConfigInvalid, KindPermanent, "invalid configuration", err)
}
