package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healops/healops-go/internal/record"
	"github.com/healops/healops-go/internal/selflog"
)

func TestTransport_SendLog_SucceedsOn202(t *testing.T) {
	var gotPath string
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-HealOps-Key")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr := New(srv.URL, "test-key", selflog.NewNoOp())
	err := tr.SendLog(context.Background(), time.Second, record.Log{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "/ingest/logs", gotPath)
	assert.Equal(t, "test-key", gotKey)
}

func TestTransport_SendSpans_CarriesNoAuthHeader(t *testing.T) {
	var gotPath string
	var gotKey string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-HealOps-Key")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := New(srv.URL, "test-key", selflog.NewNoOp())
	err := tr.SendSpans(context.Background(), time.Second, record.SpanBatch{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, "/otel/errors", gotPath)
	assert.Empty(t, gotKey)
	assert.Empty(t, gotAuth)
}

func TestTransport_SendBatch_SetsRequestIDHeader(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-HealOps-Request-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := New(srv.URL, "key", selflog.NewNoOp())
	err := tr.SendBatch(context.Background(), time.Second, record.Batch{})
	require.NoError(t, err)
	assert.NotEmpty(t, gotID)
}

func TestTransport_RetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := New(srv.URL, "key", selflog.NewNoOp())
	err := tr.SendLog(context.Background(), 5*time.Second, record.Log{Message: "retry me"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, attempts.Load(), int32(2))
}

func TestTransport_RetriesOn4xxUntilMaxAttempts(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tr := New(srv.URL, "key", selflog.NewNoOp())
	err := tr.SendLog(context.Background(), time.Second, record.Log{Message: "bad"})
	require.Error(t, err)
	assert.EqualValues(t, maxAttempts, attempts.Load())
}

func TestTransport_GivesUpAfterMaxAttempts(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := New(srv.URL, "key", selflog.NewNoOp())
	err := tr.SendLog(context.Background(), 5*time.Second, record.Log{Message: "never works"})
	require.Error(t, err)
	assert.EqualValues(t, maxAttempts, attempts.Load())
}

func TestFixedBackoff_DoublesEachAttempt(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, fixedBackoff(0, 0, 1, nil))
	assert.Equal(t, 400*time.Millisecond, fixedBackoff(0, 0, 2, nil))
}
