package global

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healops/healops-go/internal/record"
)

type captured struct {
	severity record.Severity
	message  string
	metadata map[string]any
}

type fakeSink struct {
	mu         sync.Mutex
	logs       []captured
	flushCalls int
}

func (f *fakeSink) Capture(severity record.Severity, message string, metadata map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, captured{severity, message, metadata})
}

func (f *fakeSink) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCalls++
	return nil
}

func (f *fakeSink) snapshot() []captured {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]captured, len(f.logs))
	copy(out, f.logs)
	return out
}

func TestRecover_ReportsCriticalAndRepanics(t *testing.T) {
	sink := &fakeSink{}

	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			assert.Equal(t, "boom", r)
		}()
		defer Recover(sink)
		panic("boom")
	}()

	logs := sink.snapshot()
	require.Len(t, logs, 1)
	assert.Equal(t, record.SeverityCritical, logs[0].severity)
	assert.Equal(t, "boom", logs[0].message)
	assert.Equal(t, 1, sink.flushCalls)
}

func TestRecover_NoPanicIsANoop(t *testing.T) {
	sink := &fakeSink{}
	func() {
		defer Recover(sink)
	}()
	assert.Empty(t, sink.snapshot())
	assert.Equal(t, 0, sink.flushCalls)
}

func TestGo_RunsFnToCompletion(t *testing.T) {
	sink := &fakeSink{}
	done := make(chan struct{})

	Go(sink, func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fn launched by Go never ran")
	}
	assert.Empty(t, sink.snapshot())
}

func TestWrapTransport_ReportsNetworkErrorAndRethrows(t *testing.T) {
	sink := &fakeSink{}
	boom := errors.New("connection refused")
	rt := WrapTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, boom
	}), sink)

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	_, err := rt.RoundTrip(req)

	assert.Same(t, boom, err)
	logs := sink.snapshot()
	require.Len(t, logs, 1)
	assert.Equal(t, record.SeverityError, logs[0].severity)
	assert.Equal(t, "network_error", logs[0].metadata["type"])
}

func TestWrapTransport_ReportsHTTPErrorStatusWithoutSwallowing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := &fakeSink{}
	rt := WrapTransport(http.DefaultTransport, sink)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	logs := sink.snapshot()
	require.Len(t, logs, 1)
	assert.Equal(t, "http_error", logs[0].metadata["type"])
	assert.Equal(t, http.StatusInternalServerError, logs[0].metadata["status"])
}

func TestWrapTransport_SuccessfulRequestReportsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := &fakeSink{}
	rt := WrapTransport(http.DefaultTransport, sink)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Empty(t, sink.snapshot())
}

func TestWatchSignals_CancelDeregistersWithoutCallingDestroy(t *testing.T) {
	var called bool
	cancel := WatchSignals(func(ctx context.Context) error {
		called = true
		return nil
	})
	cancel()
	time.Sleep(10 * time.Millisecond)
	assert.False(t, called)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
