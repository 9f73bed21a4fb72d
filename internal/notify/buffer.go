package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"botwatch/internal/core/domain"
)

// Buffer wraps an Emitter and coalesces bursts into batches. Notifications
// queue up until the batch threshold is hit or the flush interval elapses;
// either way the whole batch goes out in one EmitBatch call. This keeps a
// catch-up run over a busy wallet from flooding the downstream sink.
type Buffer struct {
	inner     Emitter
	threshold int
	interval  time.Duration
	pending   []*domain.Notification
	mu        sync.Mutex
}

// NewBuffer creates a buffer flushing at 'threshold' queued notifications or
// every 'interval', whichever comes first. A threshold of 0 disables
// buffering and emits straight through.
func NewBuffer(inner Emitter, threshold int, interval time.Duration) *Buffer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Buffer{
		inner:     inner,
		threshold: threshold,
		interval:  interval,
	}
}

// Emit queues a notification. The batch is flushed inline once the
// threshold is reached.
func (b *Buffer) Emit(ctx context.Context, n *domain.Notification) error {
	b.mu.Lock()

	// Threshold 0 means pass-through
	if b.threshold == 0 {
		b.mu.Unlock()
		return b.inner.Emit(ctx, n)
	}

	b.pending = append(b.pending, n)
	if len(b.pending) < b.threshold {
		b.mu.Unlock()
		return nil
	}

	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	return b.emitBatch(ctx, batch)
}

// EmitBatch queues multiple notifications at once.
func (b *Buffer) EmitBatch(ctx context.Context, ns []*domain.Notification) error {
	for _, n := range ns {
		if err := b.Emit(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// Flush emits everything currently queued.
func (b *Buffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return b.emitBatch(ctx, batch)
}

// PendingCount returns the number of queued notifications.
func (b *Buffer) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Start runs the interval flusher. Blocks until the context is cancelled;
// a final flush runs on the way out.
func (b *Buffer) Start(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = b.Flush(context.Background())
			return
		case <-ticker.C:
			_ = b.Flush(ctx)
		}
	}
}

// Close flushes the remaining batch and closes the inner emitter.
func (b *Buffer) Close() error {
	if err := b.Flush(context.Background()); err != nil {
		return err
	}
	return b.inner.Close()
}

func (b *Buffer) emitBatch(ctx context.Context, batch []*domain.Notification) error {
	if err := b.inner.EmitBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to emit batch of %d: %w", len(batch), err)
	}
	return nil
}
