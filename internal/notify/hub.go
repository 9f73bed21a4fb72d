package notify

import (
	"context"
	"sync"

	"botwatch/internal/core/domain"
	"botwatch/internal/metrics"
)

// Hub fans notifications out to in-process subscribers. The API layer opens
// one subscription per connected SSE client. Delivery is best-effort: a
// subscriber that stops draining its channel misses notifications instead of
// blocking the emit path.
type Hub struct {
	subscribers map[uint64]chan *domain.Notification
	nextID      uint64
	bufSize     int
	closed      bool
	mu          sync.RWMutex
}

// NewHub creates a hub. bufSize is the per-subscriber channel depth.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Hub{
		subscribers: make(map[uint64]chan *domain.Notification),
		bufSize:     bufSize,
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the subscriber goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan *domain.Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan *domain.Notification, h.bufSize)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	h.nextID++
	id := h.nextID
	h.subscribers[id] = ch
	metrics.SSEClients.Set(float64(len(h.subscribers)))

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(sub)
			metrics.SSEClients.Set(float64(len(h.subscribers)))
		}
	}
	return ch, cancel
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Emit delivers a notification to every subscriber, dropping it for
// subscribers whose buffer is full.
func (h *Hub) Emit(ctx context.Context, n *domain.Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- n:
		default:
			// Subscriber is not draining, skip it
		}
	}
	return nil
}

// EmitBatch delivers multiple notifications.
func (h *Hub) EmitBatch(ctx context.Context, ns []*domain.Notification) error {
	for _, n := range ns {
		if err := h.Emit(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// Close drops all subscribers and closes their channels.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
	metrics.SSEClients.Set(0)
	return nil
}
