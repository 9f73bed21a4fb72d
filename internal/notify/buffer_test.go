package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"botwatch/internal/core/domain"
)

type captureEmitter struct {
	mu      sync.Mutex
	batches [][]*domain.Notification
	singles int
	closed  bool
}

func (c *captureEmitter) Emit(ctx context.Context, n *domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singles++
	return nil
}

func (c *captureEmitter) EmitBatch(ctx context.Context, ns []*domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, ns)
	return nil
}

func (c *captureEmitter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureEmitter) batchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func TestBufferFlushesAtThreshold(t *testing.T) {
	ctx := context.Background()
	inner := &captureEmitter{}
	buf := NewBuffer(inner, 3, time.Hour)

	for i := 0; i < 2; i++ {
		if err := buf.Emit(ctx, &domain.Notification{ID: "n"}); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}
	if inner.batchCount() != 0 {
		t.Fatalf("Expected no flush below threshold, got %d batches", inner.batchCount())
	}
	if buf.PendingCount() != 2 {
		t.Errorf("Expected 2 pending, got %d", buf.PendingCount())
	}

	if err := buf.Emit(ctx, &domain.Notification{ID: "n"}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if inner.batchCount() != 1 {
		t.Fatalf("Expected 1 batch at threshold, got %d", inner.batchCount())
	}
	if len(inner.batches[0]) != 3 {
		t.Errorf("Expected batch of 3, got %d", len(inner.batches[0]))
	}
	if buf.PendingCount() != 0 {
		t.Errorf("Expected empty buffer after flush, got %d", buf.PendingCount())
	}
}

func TestBufferManualFlush(t *testing.T) {
	ctx := context.Background()
	inner := &captureEmitter{}
	buf := NewBuffer(inner, 10, time.Hour)

	if err := buf.Flush(ctx); err != nil {
		t.Fatalf("Empty flush failed: %v", err)
	}
	if inner.batchCount() != 0 {
		t.Error("Expected empty flush to emit nothing")
	}

	_ = buf.Emit(ctx, &domain.Notification{ID: "a"})
	if err := buf.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if inner.batchCount() != 1 || len(inner.batches[0]) != 1 {
		t.Errorf("Expected one batch of one, got %v", inner.batches)
	}
}

func TestBufferPassThrough(t *testing.T) {
	ctx := context.Background()
	inner := &captureEmitter{}
	buf := NewBuffer(inner, 0, time.Hour)

	if err := buf.Emit(ctx, &domain.Notification{ID: "a"}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if inner.singles != 1 {
		t.Errorf("Expected pass-through emit, got %d singles", inner.singles)
	}
	if buf.PendingCount() != 0 {
		t.Errorf("Expected nothing buffered in pass-through mode")
	}
}

func TestBufferCloseFlushesRemainder(t *testing.T) {
	ctx := context.Background()
	inner := &captureEmitter{}
	buf := NewBuffer(inner, 10, time.Hour)

	_ = buf.Emit(ctx, &domain.Notification{ID: "a"})
	_ = buf.Emit(ctx, &domain.Notification{ID: "b"})

	if err := buf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if inner.batchCount() != 1 || len(inner.batches[0]) != 2 {
		t.Errorf("Expected final batch of 2 on close, got %v", inner.batches)
	}
	if !inner.closed {
		t.Error("Expected inner emitter to be closed")
	}
}
