// Package notify owns the notification stream: persistence, the emitter
// fanout to live subscribers, and read-state management.
package notify

import (
	"context"

	"botwatch/internal/core/domain"
)

// Emitter defines the interface for pushing notifications to subscribers
type Emitter interface {
	// Emit sends a single notification
	Emit(ctx context.Context, n *domain.Notification) error

	// EmitBatch sends multiple notifications
	EmitBatch(ctx context.Context, ns []*domain.Notification) error

	// Close closes the emitter
	Close() error
}
