package worker

import (
	"context"
	"log/slog"
	"time"

	"botwatch/internal/core/config"
	"botwatch/internal/infra/storage"
	"botwatch/internal/metrics"
)

// Pruner deletes aged rows according to the retention policy.
type Pruner struct {
	cfg           config.RetentionConfig
	txs           storage.TransactionRepository
	notifications storage.NotificationRepository
}

// NewPruner creates a retention pruner over the ledger and notification stores.
func NewPruner(
	cfg config.RetentionConfig,
	txs storage.TransactionRepository,
	notifications storage.NotificationRepository,
) *Pruner {
	return &Pruner{
		cfg:           cfg,
		txs:           txs,
		notifications: notifications,
	}
}

// Start runs the pruner loop until ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	shortest := shortestRetention(p.cfg)
	if shortest <= 0 {
		return // Retention disabled
	}

	// Check at 10% of the shortest retention period, clamped to [1m, 1h].
	interval := min(shortest/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	if p.cfg.Transactions > 0 {
		cutoff := time.Now().Add(-p.cfg.Transactions)
		n, err := p.txs.DeleteOlderThan(ctx, cutoff)
		switch {
		case err != nil:
			slog.Error("Failed to prune transactions", "error", err)
		case n > 0:
			metrics.RowsPrunedTotal.WithLabelValues("transactions").Add(float64(n))
			slog.Info("Pruned transactions", "count", n, "cutoff", cutoff)
		}
	}

	if p.cfg.Notifications > 0 {
		cutoff := time.Now().Add(-p.cfg.Notifications)
		n, err := p.notifications.DeleteOlderThan(ctx, cutoff)
		switch {
		case err != nil:
			slog.Error("Failed to prune notifications", "error", err)
		case n > 0:
			metrics.RowsPrunedTotal.WithLabelValues("notifications").Add(float64(n))
			slog.Info("Pruned notifications", "count", n, "cutoff", cutoff)
		}
	}
}

// shortestRetention returns the smallest enabled retention period, or 0
// when pruning is disabled for every table.
func shortestRetention(cfg config.RetentionConfig) time.Duration {
	var shortest time.Duration
	for _, d := range []time.Duration{cfg.Transactions, cfg.Notifications} {
		if d <= 0 {
			continue
		}
		if shortest == 0 || d < shortest {
			shortest = d
		}
	}
	return shortest
}
