package selfmetrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoOpMetrics_AllMethodsAreSafeNoops(t *testing.T) {
	m := NewNoOp()

	assert.NotPanics(t, func() {
		m.RecordsEnqueued(5)
		m.RecordsDropped(1)
		m.FlushDuration(0.2, true)
		m.SourceMapCacheHit()
		m.SourceMapCacheMiss()
		m.SpansExported(3)
	})

	assert.NoError(t, m.Close(context.Background()))
}
