// Package batch accumulates log records and flushes them to the transport
// on a size or interval trigger, falling back to per-record sends when a
// batch delivery fails.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/healops/healops-go/internal/healopserr"
	"github.com/healops/healops-go/internal/record"
	"github.com/healops/healops-go/internal/selflog"
)

// Sender is the subset of transport.Transport the batcher depends on,
// narrowed so this package can be tested without a real HTTP client.
type Sender interface {
	SendLog(ctx context.Context, timeout time.Duration, payload any) error
	SendBatch(ctx context.Context, timeout time.Duration, payload any) error
}

// DropCounter receives a count of records dropped due to the bounded
// queue's oldest-drop policy, feeding the self-metrics dropped-records
// counter.
type DropCounter interface {
	RecordsDropped(n int)
}

type noopDropCounter struct{}

func (noopDropCounter) RecordsDropped(int) {}

// Config configures a Batcher.
type Config struct {
	Sender         Sender
	BatchSize      int
	BatchInterval  time.Duration
	SingleTimeout  time.Duration
	BatchTimeout   time.Duration
	// MaxQueueSize bounds the in-memory queue. When full, the oldest
	// record is dropped to admit the newest one — the bounded
	// fire-and-forget back-pressure policy the component design
	// recommends as a permissible refinement over unbounded growth.
	MaxQueueSize int
	Log          selflog.Logger
	Drops        DropCounter
}

// Batcher queues log records and flushes them in batches.
type Batcher struct {
	sender        Sender
	batchSize     int
	batchInterval time.Duration
	singleTimeout time.Duration
	batchTimeout  time.Duration
	maxQueueSize  int
	log           selflog.Logger
	drops         DropCounter

	mu        sync.Mutex
	queue     []record.Log
	timer     *time.Timer
	flushing  atomic.Bool
	destroyed atomic.Bool
}

// New constructs a Batcher and starts its interval timer.
func New(cfg Config) *Batcher {
	log := cfg.Log
	if log == nil {
		log = selflog.NewNoOp()
	}
	drops := cfg.Drops
	if drops == nil {
		drops = noopDropCounter{}
	}
	maxQueue := cfg.MaxQueueSize
	if maxQueue <= 0 {
		maxQueue = cfg.BatchSize * 50
	}

	b := &Batcher{
		sender:        cfg.Sender,
		batchSize:     cfg.BatchSize,
		batchInterval: cfg.BatchInterval,
		singleTimeout: cfg.SingleTimeout,
		batchTimeout:  cfg.BatchTimeout,
		maxQueueSize:  maxQueue,
		log:           log,
		drops:         drops,
	}
	b.timer = time.AfterFunc(b.batchInterval, b.onTimer)
	return b
}

// Enqueue appends a record to the queue, triggering an immediate flush if
// the queue has reached batchSize. Enqueue after Destroy is rejected and
// logged, never silently swallowed.
func (b *Batcher) Enqueue(rec record.Log) {
	if b.destroyed.Load() {
		b.log.Warn(healopserr.EnqueueAfterDestroy().Error())
		return
	}

	b.mu.Lock()
	if len(b.queue) >= b.maxQueueSize {
		b.queue = b.queue[1:]
		b.drops.RecordsDropped(1)
	}
	b.queue = append(b.queue, rec)
	shouldFlush := len(b.queue) >= b.batchSize
	b.mu.Unlock()

	if shouldFlush {
		go b.Flush(context.Background())
	}
}

func (b *Batcher) onTimer() {
	b.Flush(context.Background())
	if !b.destroyed.Load() {
		b.mu.Lock()
		b.timer.Reset(b.batchInterval)
		b.mu.Unlock()
	}
}

// Flush drains the current queue and sends it. At most one flush executes
// at a time, enforced with a CAS guard rather than a mutex held across the
// network call, matching the "at most one execution active" concurrency
// invariant. A concurrent caller during an in-flight flush returns
// immediately without waiting or re-queuing.
func (b *Batcher) Flush(ctx context.Context) error {
	if !b.flushing.CompareAndSwap(false, true) {
		return nil
	}
	defer b.flushing.Store(false)

	b.mu.Lock()
	if len(b.queue) == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := b.queue
	b.queue = nil
	b.mu.Unlock()

	payload := record.Batch{Logs: batch}
	if err := b.sender.SendBatch(ctx, b.batchTimeout, payload); err != nil {
		b.log.Warn(healopserr.BatchEndpointUnavailable(err).Error())
		return b.sendEachFallback(ctx, batch)
	}
	return nil
}

// sendEachFallback sends every record in the failed batch individually.
// Each record's own failure is logged and otherwise swallowed — a single
// record's delivery failure never blocks or aborts the rest of the batch.
func (b *Batcher) sendEachFallback(ctx context.Context, batch []record.Log) error {
	var lastErr error
	for _, rec := range batch {
		if err := b.sender.SendLog(ctx, b.singleTimeout, rec); err != nil {
			b.log.Warn("fallback single send failed: " + err.Error())
			lastErr = err
		}
	}
	return lastErr
}

// Destroy stops the interval timer and performs a final best-effort flush,
// bounded by ctx's deadline. No further Enqueue calls are accepted once
// Destroy has been called.
func (b *Batcher) Destroy(ctx context.Context) error {
	if !b.destroyed.CompareAndSwap(false, true) {
		return nil
	}
	b.timer.Stop()
	return b.Flush(ctx)
}
