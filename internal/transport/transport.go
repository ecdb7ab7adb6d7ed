// Package transport delivers batches and single records to the HealOps
// ingestion endpoints over HTTP, with bounded retries and a fixed backoff
// schedule.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/healops/healops-go/internal/healopserr"
	"github.com/healops/healops-go/internal/pkg/uid"
	"github.com/healops/healops-go/internal/selflog"
)

const (
	logEndpoint      = "/ingest/logs"
	logBatchEndpoint = "/ingest/logs/batch"
	spanEndpoint     = "/otel/errors"

	// maxAttempts is the total number of attempts per call (one initial
	// try plus two retries), matching the component design's "after three
	// total attempts, fail" contract.
	maxAttempts = 3
)

// Transport is the single HTTP client used by the batcher and span
// exporter to reach the ingestion backend.
type Transport struct {
	client  *retryablehttp.Client
	baseURL string
	apiKey  string
}

// New constructs a Transport against baseURL, authenticating with apiKey.
func New(baseURL, apiKey string, log selflog.Logger) *Transport {
	client := retryablehttp.NewClient()
	client.RetryMax = maxAttempts - 1
	// go-retryablehttp numbers retries from 0; fixedBackoff numbers them
	// from 1.
	client.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		return fixedBackoff(min, max, attemptNum+1, resp)
	}
	client.CheckRetry = checkRetry
	client.Logger = newLeveledLoggerAdapter(log)
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Transport{client: client, baseURL: baseURL, apiKey: apiKey}
}

// fixedBackoff implements 100*2^attempt milliseconds for attempt in
// {1, 2}, the exact cadence the component design names as a testable
// property, rather than go-retryablehttp's default jittered curve.
func fixedBackoff(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
	if attemptNum < 1 {
		attemptNum = 1
	}
	return time.Duration(100<<uint(attemptNum)) * time.Millisecond
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return true, nil
	}
	return false, nil
}

// post issues the request. When withKeyHeader is true, the transport's API
// key is sent as the X-HealOps-Key header; the log and batch endpoints
// authenticate this way. The span endpoint instead expects the key embedded
// in the request body, so callers there pass withKeyHeader=false.
func (t *Transport) post(ctx context.Context, timeout time.Duration, path string, body any, withKeyHeader bool) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return healopserr.Transport("failed to marshal payload", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return healopserr.Transport("failed to build request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if withKeyHeader {
		req.Header.Set("X-HealOps-Key", t.apiKey)
	}
	req.Header.Set("X-HealOps-Request-Id", uid.NewUUID())

	resp, err := t.client.Do(req)
	if err != nil {
		return healopserr.Transport("request failed after retries", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return healopserr.HostIngestionError(resp.StatusCode, "")
	}
	return nil
}

// SendLog delivers a single log record to /ingest/logs, authenticating with
// the X-HealOps-Key header.
func (t *Transport) SendLog(ctx context.Context, timeout time.Duration, payload any) error {
	return t.post(ctx, timeout, logEndpoint, payload, true)
}

// SendBatch delivers a batch of log records to /ingest/logs/batch,
// authenticating with the X-HealOps-Key header.
func (t *Transport) SendBatch(ctx context.Context, timeout time.Duration, payload any) error {
	return t.post(ctx, timeout, logBatchEndpoint, payload, true)
}

// SendSpans delivers a batch of span records to /otel/errors. The API key
// travels inside the payload's envelope, not as a header.
func (t *Transport) SendSpans(ctx context.Context, timeout time.Duration, payload any) error {
	return t.post(ctx, timeout, spanEndpoint, payload, false)
}
