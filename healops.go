// Package healops is a client-side observability SDK: it intercepts an
// application's own console output and unhandled errors, enriches them
// with resolved stack traces, and ships them to a HealOps backend in
// bounded batches. It also exports a custom OpenTelemetry SpanExporter for
// error-bearing trace spans.
package healops

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/healops/healops-go/internal/batch"
	"github.com/healops/healops-go/internal/config"
	"github.com/healops/healops-go/internal/enrich"
	"github.com/healops/healops-go/internal/global"
	"github.com/healops/healops-go/internal/intercept"
	"github.com/healops/healops-go/internal/record"
	"github.com/healops/healops-go/internal/selflog"
	"github.com/healops/healops-go/internal/selfmetrics"
	"github.com/healops/healops-go/internal/sourcemap"
	"github.com/healops/healops-go/internal/spanexport"
	"github.com/healops/healops-go/internal/transport"
)

// Client is the SDK's entry point. Construct one with New and keep it
// alive for the lifetime of the process; call Destroy during shutdown.
type Client struct {
	cfg *config.Resolved

	log     selflog.Logger
	metrics selfmetrics.Metrics

	enricher *enrich.Enricher
	batcher  *batch.Batcher

	interceptor    *intercept.Interceptor
	cancelSignals  func()
	origTransport  http.RoundTripper

	// SpanExporter is the OpenTelemetry SpanExporter the host application
	// should register on its own TracerProvider (e.g. via
	// sdktrace.WithBatcher(client.SpanExporter)).
	SpanExporter *spanexport.Exporter
}

// New validates cfg and constructs a Client. It returns an error only when
// cfg fails validation; once construction succeeds, no SDK error is ever
// returned from the running Client's methods.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bootstrapLog := selflog.NewNoOp()
	raw := config.Raw{
		APIKey:             cfg.APIKey,
		ServiceName:        cfg.ServiceName,
		Release:            cfg.Release,
		Environment:        cfg.Environment,
		Source:             cfg.Source,
		IngestBaseURL:      cfg.IngestBaseURL,
		BatchSize:          cfg.BatchSize,
		BatchIntervalMs:    cfg.BatchIntervalMs,
		CaptureConsole:     cfg.CaptureConsole,
		CaptureErrors:      cfg.CaptureErrors,
		EnableSourceMaps:   cfg.EnableSourceMaps,
		SourceMapCacheSize: cfg.SourceMapCacheSize,
		RedisCacheAddr:     cfg.RedisCacheAddr,
		EnableSelfMetrics:  cfg.EnableSelfMetrics,
		MetricsEndpoint:    cfg.MetricsEndpoint,
		DiagnosticLogPath:  cfg.DiagnosticLogPath,
	}
	resolved := config.Load(raw, bootstrapLog)

	log := selflog.NewNoOp()
	if resolved.Debug {
		log = selflog.New(diagnosticMode(), resolved.DiagnosticLogPath)
		// Resolve again through the diagnostic logger so clamp warnings
		// are emitted in debug mode.
		resolved = config.Load(raw, log)
	}
	smLog := selflog.NewNoOp()
	if resolved.DebugSourceMaps {
		smLog = log.WithField("component", "sourcemap")
	}

	metrics := selfmetrics.NewNoOp()
	if resolved.EnableSelfMetrics && resolved.MetricsEndpoint != "" {
		if m, err := selfmetrics.NewOTel(context.Background(), resolved.MetricsEndpoint, resolved.ServiceName); err == nil {
			metrics = m
		} else {
			log.Warn("failed to start self-metrics, continuing without them: " + err.Error())
		}
	}

	t := transport.New(resolved.IngestBaseURL, resolved.APIKey, log)

	var resolver *sourcemap.Resolver
	if resolved.EnableSourceMaps {
		var cacheBackend sourcemap.CacheBackend
		if resolved.RedisCacheAddr != "" {
			cacheBackend = sourcemap.NewRedisCache(resolved.RedisCacheAddr, cfg.RedisPassword, cfg.RedisDB, smLog)
		}
		resolver = sourcemap.New(sourcemap.Options{
			CacheSize:    resolved.SourceMapCacheSize,
			CacheBackend: cacheBackend,
			Log:          smLog,
		})
	}

	enricher := enrich.New(enrich.Config{
		Resolver:         resolver,
		EnableSourceMaps: resolved.EnableSourceMaps,
		ServiceName:      resolved.ServiceName,
		Release:          resolved.Release,
		Environment:      resolved.Environment,
		Source:           resolved.Source,
	})

	batcher := batch.New(batch.Config{
		Sender:        t,
		BatchSize:     resolved.BatchSize,
		BatchInterval: resolved.BatchInterval,
		SingleTimeout: resolved.SingleTimeout,
		BatchTimeout:  resolved.BatchTimeout,
		Log:           log,
		Drops:         metrics,
	})

	spanExp := spanexport.New(spanexport.Config{
		Sender:      t,
		Timeout:     resolved.SpanTimeout,
		APIKey:      resolved.APIKey,
		ServiceName: resolved.ServiceName,
		Release:     resolved.Release,
		Environment: resolved.Environment,
		Log:         log,
	})

	c := &Client{
		cfg:          resolved,
		log:          log,
		metrics:      metrics,
		enricher:     enricher,
		batcher:      batcher,
		SpanExporter: spanExp,
	}

	if resolved.CaptureConsole {
		c.interceptor = intercept.New(c)
		c.interceptor.Start()
	}

	if resolved.CaptureErrors {
		c.origTransport = http.DefaultTransport
		http.DefaultTransport = global.WrapTransport(http.DefaultTransport, c)
		c.cancelSignals = global.WatchSignals(c.Destroy)
	}

	return c, nil
}

// Capture implements intercept.Sink and global.Sink, the common entry
// point for every internally generated record (console lines, panics,
// HTTP errors) as well as the public façade methods below.
func (c *Client) Capture(severity record.Severity, message string, metadata map[string]any) {
	rec := c.enricher.Build(context.Background(), severity, message, metadata)
	c.metrics.RecordsEnqueued(1)
	c.batcher.Enqueue(rec)
}

// Info records an INFO-severity log.
func (c *Client) Info(message string, metadata map[string]any) {
	c.Capture(record.SeverityInfo, message, metadata)
}

// Warn records a WARNING-severity log.
func (c *Client) Warn(message string, metadata map[string]any) {
	c.Capture(record.SeverityWarning, message, metadata)
}

// Error records an ERROR-severity log.
func (c *Client) Error(message string, metadata map[string]any) {
	c.Capture(record.SeverityError, message, metadata)
}

// Critical records a CRITICAL-severity log.
func (c *Client) Critical(message string, metadata map[string]any) {
	c.Capture(record.SeverityCritical, message, metadata)
}

// Flush synchronously drains the current batch queue, bounded by ctx.
func (c *Client) Flush(ctx context.Context) error {
	start := time.Now()
	err := c.batcher.Flush(ctx)
	c.metrics.FlushDuration(time.Since(start).Seconds(), err == nil)
	return err
}

// Destroy stops console/error interception, performs a best-effort final
// flush bounded by cfg.DestroyTimeout, and releases self-metrics
// resources. Safe to call more than once.
func (c *Client) Destroy(ctx context.Context) error {
	if c.interceptor != nil {
		c.interceptor.Stop()
	}
	if c.cancelSignals != nil {
		c.cancelSignals()
		c.cancelSignals = nil
	}
	if c.origTransport != nil {
		http.DefaultTransport = c.origTransport
		c.origTransport = nil
	}

	destroyCtx, cancel := context.WithTimeout(ctx, c.cfg.DestroyTimeout)
	defer cancel()

	err := c.batcher.Destroy(destroyCtx)
	_ = c.metrics.Close(destroyCtx)
	return err
}

// diagnosticMode picks the selflog backend based on whether stderr is an
// attached terminal: interactive development gets tinted stdout output,
// unattended processes (containers, daemons, CI workers) get rotated JSON.
func diagnosticMode() selflog.Mode {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return selflog.ModeStdout
	}
	return selflog.ModeJSON
}
