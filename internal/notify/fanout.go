package notify

import (
	"context"
	"log/slog"

	"botwatch/internal/core/domain"
	"botwatch/internal/metrics"
)

// Fanout delivers every notification to a set of named sinks. Delivery is
// best-effort: a failing sink is logged and counted, the others still
// receive the notification.
type Fanout struct {
	names []string
	sinks []Emitter
}

// NewFanout creates an empty fanout.
func NewFanout() *Fanout {
	return &Fanout{}
}

// AddSink registers a sink under a name used for logging and metrics.
func (f *Fanout) AddSink(name string, sink Emitter) {
	f.names = append(f.names, name)
	f.sinks = append(f.sinks, sink)
}

// Emit sends a notification to every sink.
func (f *Fanout) Emit(ctx context.Context, n *domain.Notification) error {
	for i, sink := range f.sinks {
		if err := sink.Emit(ctx, n); err != nil {
			metrics.NotificationFanoutErrors.WithLabelValues(f.names[i]).Inc()
			slog.Warn("Notification sink failed", "sink", f.names[i], "error", err)
		}
	}
	return nil
}

// EmitBatch sends multiple notifications to every sink.
func (f *Fanout) EmitBatch(ctx context.Context, ns []*domain.Notification) error {
	for i, sink := range f.sinks {
		if err := sink.EmitBatch(ctx, ns); err != nil {
			metrics.NotificationFanoutErrors.WithLabelValues(f.names[i]).Inc()
			slog.Warn("Notification sink failed", "sink", f.names[i], "error", err)
		}
	}
	return nil
}

// Close closes every sink, returning the last error seen.
func (f *Fanout) Close() error {
	var last error
	for i, sink := range f.sinks {
		if err := sink.Close(); err != nil {
			slog.Warn("Failed to close notification sink", "sink", f.names[i], "error", err)
			last = err
		}
	}
	return last
}
