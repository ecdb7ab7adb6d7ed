// Package config resolves the SDK's runtime configuration: defaults,
// environment overrides, and the caller-supplied options, in that priority
// order (lowest to highest).
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/healops/healops-go/internal/selflog"
)

const (
	minBatchSize = 1
	maxBatchSize = 1000

	minBatchInterval = 100 * time.Millisecond
	maxBatchInterval = 60 * time.Second

	defaultBatchSize     = 50
	defaultBatchInterval = 1000 * time.Millisecond

	defaultSingleTimeout = 3 * time.Second
	defaultBatchTimeout  = 5 * time.Second
	defaultSpanTimeout   = 3 * time.Second
	defaultDestroyWait   = 2 * time.Second

	defaultSourceMapCacheSize = 1000

	defaultSource = "healops-sdk"
)

// Resolved is the fully validated, bounds-clamped configuration consumed by
// every other internal package. It is built once, at Client construction.
type Resolved struct {
	APIKey      string
	ServiceName string
	Release     string
	Environment string
	Source      string

	IngestBaseURL string

	BatchSize      int
	BatchInterval  time.Duration
	SingleTimeout  time.Duration
	BatchTimeout   time.Duration
	SpanTimeout    time.Duration
	DestroyTimeout time.Duration

	CaptureConsole bool
	CaptureErrors  bool

	EnableSourceMaps   bool
	SourceMapCacheSize int
	RedisCacheAddr     string

	EnableSelfMetrics bool
	MetricsEndpoint   string

	Debug             bool
	DebugSourceMaps   bool
	DiagnosticLogPath string
}

// Raw mirrors the public healops.Config struct (duplicated here to avoid an
// import cycle between the config loader and the root package). The root
// package maps its Config into this one before calling Load.
type Raw struct {
	APIKey      string
	ServiceName string
	Release     string
	Environment string
	Source      string

	IngestBaseURL string

	BatchSize       int
	BatchIntervalMs int

	CaptureConsole bool
	CaptureErrors  bool

	EnableSourceMaps   bool
	SourceMapCacheSize int
	RedisCacheAddr     string

	EnableSelfMetrics bool
	MetricsEndpoint   string

	DiagnosticLogPath string
}

// Load merges environment variables (HEALOPS_*) under the caller-supplied
// raw config and returns a bounds-clamped Resolved. Clamp events are logged
// through log at WARN, never silently.
func Load(raw Raw, log selflog.Logger) *Resolved {
	v := viper.New()
	v.SetEnvPrefix("HEALOPS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("batch_size", defaultBatchSize)
	v.SetDefault("batch_interval_ms", int(defaultBatchInterval/time.Millisecond))
	v.SetDefault("base_url", "https://ingest.healops.dev")

	r := &Resolved{
		APIKey:             raw.APIKey,
		ServiceName:        raw.ServiceName,
		Release:            raw.Release,
		Environment:        raw.Environment,
		Source:             firstNonEmpty(raw.Source, defaultSource),
		IngestBaseURL:      firstNonEmpty(raw.IngestBaseURL, v.GetString("base_url")),
		CaptureConsole:     raw.CaptureConsole,
		CaptureErrors:      raw.CaptureErrors,
		EnableSourceMaps:   raw.EnableSourceMaps,
		SourceMapCacheSize: raw.SourceMapCacheSize,
		RedisCacheAddr:     raw.RedisCacheAddr,
		EnableSelfMetrics:  raw.EnableSelfMetrics,
		MetricsEndpoint:    raw.MetricsEndpoint,
		SingleTimeout:      defaultSingleTimeout,
		BatchTimeout:       defaultBatchTimeout,
		SpanTimeout:        defaultSpanTimeout,
		DestroyTimeout:     defaultDestroyWait,
		Debug:              v.GetBool("debug"),
		DebugSourceMaps:    v.GetBool("debug_sourcemaps"),
		DiagnosticLogPath:  firstNonEmpty(raw.DiagnosticLogPath, v.GetString("debug_log_path")),
	}

	if r.SourceMapCacheSize <= 0 {
		r.SourceMapCacheSize = defaultSourceMapCacheSize
	}

	batchSize := raw.BatchSize
	if batchSize == 0 {
		batchSize = v.GetInt("batch_size")
	}
	r.BatchSize = clampInt(batchSize, minBatchSize, maxBatchSize, "batchSize", log)

	intervalMs := raw.BatchIntervalMs
	if intervalMs == 0 {
		intervalMs = v.GetInt("batch_interval_ms")
	}
	interval := time.Duration(intervalMs) * time.Millisecond
	r.BatchInterval = clampDuration(interval, minBatchInterval, maxBatchInterval, "batchIntervalMs", log)

	return r
}

func clampInt(v, lo, hi int, field string, log selflog.Logger) int {
	if v < lo {
		log.Warn(field + " below minimum, clamped to floor")
		return lo
	}
	if v > hi {
		log.Warn(field + " above maximum, clamped to ceiling")
		return hi
	}
	return v
}

func clampDuration(v, lo, hi time.Duration, field string, log selflog.Logger) time.Duration {
	if v < lo {
		log.Warn(field + " below minimum, clamped to floor")
		return lo
	}
	if v > hi {
		log.Warn(field + " above maximum, clamped to ceiling")
		return hi
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

