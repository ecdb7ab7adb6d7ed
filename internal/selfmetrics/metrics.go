// Package selfmetrics instruments the SDK's own delivery pipeline —
// enqueue/drop/flush/cache/export counters — entirely independent of the
// log/span records being shipped. Disabled by default.
package selfmetrics

import "context"

// Metrics is the interface every other internal package depends on to
// report its own behavior.
type Metrics interface {
	RecordsEnqueued(n int)
	RecordsDropped(n int)
	FlushDuration(seconds float64, ok bool)
	SourceMapCacheHit()
	SourceMapCacheMiss()
	SpansExported(n int)
	Close(ctx context.Context) error
}
