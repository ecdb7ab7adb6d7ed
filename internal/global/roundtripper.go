package global

import (
	"net/http"
	"runtime/debug"

	"github.com/healops/healops-go/internal/record"
)

// WrapTransport wraps next (typically http.DefaultTransport) so every
// outbound request is inspected: a response status >= 400 is reported as
// an ERROR record with metadata.type = "http_error"; a RoundTrip error
// (DNS failure, connection refused, timeout) is reported as ERROR with
// metadata.type = "network_error" and then returned unchanged — this
// wrapper never swallows the original error, it only observes it, mirroring
// the "network call wrapper" component's re-throw requirement.
func WrapTransport(next http.RoundTripper, sink Sink) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &wrappedTransport{next: next, sink: sink}
}

type wrappedTransport struct {
	next http.RoundTripper
	sink Sink
}

func (t *wrappedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.sink.Capture(record.SeverityError, "network request failed: "+err.Error(), map[string]any{
			"type":   "network_error",
			"url":    req.URL.String(),
			"method": req.Method,
			"stack":  string(debug.Stack()),
		})
		return resp, err
	}

	if resp.StatusCode >= 400 {
		t.sink.Capture(record.SeverityError, "http request returned an error status", map[string]any{
			"type":   "http_error",
			"url":    req.URL.String(),
			"method": req.Method,
			"status": resp.StatusCode,
			"stack":  string(debug.Stack()),
		})
	}

	return resp, err
}
