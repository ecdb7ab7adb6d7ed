package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healops/healops-go/internal/record"
)

type fakeSender struct {
	mu          sync.Mutex
	singleCalls []record.Log
	batchCalls  [][]record.Log
	failBatch   atomic.Bool
}

func (f *fakeSender) SendLog(ctx context.Context, timeout time.Duration, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singleCalls = append(f.singleCalls, payload.(record.Log))
	return nil
}

func (f *fakeSender) SendBatch(ctx context.Context, timeout time.Duration, payload any) error {
	if f.failBatch.Load() {
		return errors.New("batch endpoint down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, payload.(record.Batch).Logs)
	return nil
}

func newTestBatcher(sender Sender, batchSize int) *Batcher {
	return New(Config{
		Sender:        sender,
		BatchSize:     batchSize,
		BatchInterval: time.Hour, // effectively disabled for these tests
		SingleTimeout: time.Second,
		BatchTimeout:  time.Second,
	})
}

func TestBatcher_FlushesOnSizeTrigger(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBatcher(sender, 2)

	b.Enqueue(record.Log{Message: "one"})
	b.Enqueue(record.Log{Message: "two"})

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.batchCalls) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestBatcher_ManualFlushOfSingleRecordUsesBatchEndpoint(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBatcher(sender, 10)

	b.Enqueue(record.Log{Message: "only one"})
	require.NoError(t, b.Flush(context.Background()))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Empty(t, sender.singleCalls)
	require.Len(t, sender.batchCalls, 1)
	assert.Len(t, sender.batchCalls[0], 1)
}

func TestBatcher_FallsBackToPerRecordSendOnBatchFailure(t *testing.T) {
	sender := &fakeSender{}
	sender.failBatch.Store(true)
	b := newTestBatcher(sender, 10)

	b.Enqueue(record.Log{Message: "a"})
	b.Enqueue(record.Log{Message: "b"})
	require.NoError(t, b.Flush(context.Background()))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Len(t, sender.singleCalls, 2)
}

func TestBatcher_EnqueueAfterDestroyIsRejected(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBatcher(sender, 10)

	require.NoError(t, b.Destroy(context.Background()))
	b.Enqueue(record.Log{Message: "too late"})

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Empty(t, sender.singleCalls)
	assert.Empty(t, sender.batchCalls)
}

func TestBatcher_OldestRecordDroppedWhenQueueFull(t *testing.T) {
	sender := &fakeSender{}
	b := New(Config{
		Sender:        sender,
		BatchSize:     100,
		BatchInterval: time.Hour,
		SingleTimeout: time.Second,
		BatchTimeout:  time.Second,
		MaxQueueSize:  2,
	})

	b.Enqueue(record.Log{Message: "first"})
	b.Enqueue(record.Log{Message: "second"})
	b.Enqueue(record.Log{Message: "third"})

	require.NoError(t, b.Flush(context.Background()))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.batchCalls, 1)
	assert.Len(t, sender.batchCalls[0], 2)
	assert.Equal(t, "second", sender.batchCalls[0][0].Message)
	assert.Equal(t, "third", sender.batchCalls[0][1].Message)
}

func TestBatcher_ConcurrentFlushesDoNotDoubleSend(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBatcher(sender, 100)

	for i := 0; i < 5; i++ {
		b.Enqueue(record.Log{Message: "x"})
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Flush(context.Background())
		}()
	}
	wg.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.LessOrEqual(t, len(sender.batchCalls), 1)
}
