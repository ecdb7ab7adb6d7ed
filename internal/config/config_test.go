package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/healops/healops-go/internal/selflog"
)

func TestLoad_AppliesDefaultsWhenRawIsZeroValue(t *testing.T) {
	r := Load(Raw{APIKey: "k", ServiceName: "svc"}, selflog.NewNoOp())

	assert.Equal(t, defaultBatchSize, r.BatchSize)
	assert.Equal(t, defaultBatchInterval, r.BatchInterval)
	assert.Equal(t, "https://ingest.healops.dev", r.IngestBaseURL)
	assert.Equal(t, defaultSourceMapCacheSize, r.SourceMapCacheSize)
}

func TestLoad_ClampsBatchSizeAboveCeiling(t *testing.T) {
	r := Load(Raw{BatchSize: 99999}, selflog.NewNoOp())
	assert.Equal(t, maxBatchSize, r.BatchSize)
}

func TestLoad_ClampsBatchIntervalBelowFloor(t *testing.T) {
	r := Load(Raw{BatchIntervalMs: 1}, selflog.NewNoOp())
	assert.Equal(t, minBatchInterval, r.BatchInterval)
}

func TestLoad_ClampsBatchIntervalAboveCeiling(t *testing.T) {
	r := Load(Raw{BatchIntervalMs: int((2 * time.Minute) / time.Millisecond)}, selflog.NewNoOp())
	assert.Equal(t, maxBatchInterval, r.BatchInterval)
}

func TestLoad_EnvOverridesDefaultBaseURL(t *testing.T) {
	t.Setenv("HEALOPS_BASE_URL", "https://custom.example.com")
	r := Load(Raw{}, selflog.NewNoOp())
	assert.Equal(t, "https://custom.example.com", r.IngestBaseURL)
}

func TestLoad_RawValueTakesPriorityOverEnv(t *testing.T) {
	t.Setenv("HEALOPS_BASE_URL", "https://from-env.example.com")
	r := Load(Raw{IngestBaseURL: "https://from-raw.example.com"}, selflog.NewNoOp())
	assert.Equal(t, "https://from-raw.example.com", r.IngestBaseURL)
}

func TestLoad_NonPositiveSourceMapCacheSizeFallsBackToDefault(t *testing.T) {
	r := Load(Raw{SourceMapCacheSize: -5}, selflog.NewNoOp())
	assert.Equal(t, defaultSourceMapCacheSize, r.SourceMapCacheSize)
}

func TestMain(m *testing.M) {
	// Ensure no stray HEALOPS_* env vars leak in from the host environment
	// and corrupt the default-value assertions above.
	os.Unsetenv("HEALOPS_BASE_URL")
	os.Unsetenv("HEALOPS_BATCH_SIZE")
	os.Unsetenv("HEALOPS_BATCH_INTERVAL_MS")
	os.Exit(m.Run())
}
