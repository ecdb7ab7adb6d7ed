package selfmetrics

import "context"

type noopMetrics struct{}

var _ Metrics = (*noopMetrics)(nil)

// NewNoOp returns a Metrics implementation that discards everything. Used
// when enableSelfMetrics is false (the default).
func NewNoOp() Metrics { return &noopMetrics{} }

func (noopMetrics) RecordsEnqueued(n int)             {}
func (noopMetrics) RecordsDropped(n int)              {}
func (noopMetrics) FlushDuration(seconds float64, ok bool) {}
func (noopMetrics) SourceMapCacheHit()                {}
func (noopMetrics) SourceMapCacheMiss()                {}
func (noopMetrics) SpansExported(n int)                {}
func (noopMetrics) Close(ctx context.Context) error    { return nil }
