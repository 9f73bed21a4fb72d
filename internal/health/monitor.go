package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
	"botwatch/internal/metrics"
)

// Pinger checks connectivity of an infrastructure dependency.
type Pinger interface {
	Health(ctx context.Context) error
}

// Observer exposes the chain observer's liveness.
type Observer interface {
	Running() bool
	LastScan() time.Time
}

// Deps wires the monitored components. Nil fields are treated as disabled
// and left out of the report.
type Deps struct {
	DB            Pinger
	Redis         Pinger
	NATSConnected func() bool
	Observer      Observer
	Wallets       storage.WalletRepository
	Txs           storage.TransactionRepository
	Notifications storage.NotificationRepository
	QueueDepth    func() int
}

// Monitor aggregates health status from the system components.
type Monitor struct {
	deps         Deps
	pollInterval time.Duration
	started      time.Time

	mu         sync.RWMutex
	lastCheck  time.Time
	lastReport *Report
}

// NewMonitor creates a health monitor. pollInterval is the observer's scan
// interval, used to judge scan staleness.
func NewMonitor(deps Deps, pollInterval time.Duration) *Monitor {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	return &Monitor{
		deps:         deps,
		pollInterval: pollInterval,
		started:      time.Now(),
	}
}

// CheckHealth probes every configured dependency. Results are cached for
// 10s to keep the health endpoint from hammering the backends.
func (m *Monitor) CheckHealth(ctx context.Context) *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < 10*time.Second {
		return m.lastReport
	}

	report := &Report{
		Status:     StatusHealthy,
		Components: make(map[string]ComponentHealth),
		CheckedAt:  time.Now().UTC(),
	}

	if m.deps.DB != nil {
		if err := m.deps.DB.Health(ctx); err != nil {
			report.Components["database"] = ComponentHealth{Status: StatusCritical, Detail: err.Error()}
		} else {
			report.Components["database"] = ComponentHealth{Status: StatusHealthy}
		}
	} else {
		report.Components["storage"] = ComponentHealth{Status: StatusHealthy, Detail: "in-memory"}
	}

	if m.deps.Redis != nil {
		if err := m.deps.Redis.Health(ctx); err != nil {
			report.Components["redis"] = ComponentHealth{Status: StatusDegraded, Detail: err.Error()}
		} else {
			report.Components["redis"] = ComponentHealth{Status: StatusHealthy}
		}
	}

	if m.deps.NATSConnected != nil {
		if m.deps.NATSConnected() {
			report.Components["nats"] = ComponentHealth{Status: StatusHealthy}
		} else {
			report.Components["nats"] = ComponentHealth{Status: StatusDegraded, Detail: "disconnected"}
		}
	}

	if m.deps.Observer != nil {
		report.Components["observer"] = m.observerHealth()
	}

	// Worst component wins
	for _, c := range report.Components {
		if c.Status == StatusCritical {
			report.Status = StatusCritical
			break
		}
		if c.Status == StatusDegraded {
			report.Status = StatusDegraded
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

func (m *Monitor) observerHealth() ComponentHealth {
	if !m.deps.Observer.Running() {
		return ComponentHealth{Status: StatusDegraded, Detail: "not running"}
	}
	last := m.deps.Observer.LastScan()
	if !last.IsZero() && time.Since(last) > 3*m.pollInterval {
		return ComponentHealth{
			Status: StatusDegraded,
			Detail: fmt.Sprintf("last scan %s ago", time.Since(last).Round(time.Second)),
		}
	}
	return ComponentHealth{Status: StatusHealthy}
}

// Status builds the bot status summary: counts plus the aggregated health.
func (m *Monitor) Status(ctx context.Context) (*BotStatus, error) {
	report := m.CheckHealth(ctx)

	status := &BotStatus{
		Running:       true,
		Status:        report.Status,
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		CheckedAt:     time.Now().UTC(),
	}

	if m.deps.Wallets != nil {
		all, err := m.deps.Wallets.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count wallets: %w", err)
		}
		status.TrackedWallets = len(all)
		for _, w := range all {
			if w.IsActive {
				status.ActiveWallets++
			}
		}
	}

	if m.deps.Txs != nil {
		pending, err := m.deps.Txs.CountByStatus(ctx, domain.TxStatusPending)
		if err != nil {
			return nil, fmt.Errorf("failed to count pending transactions: %w", err)
		}
		failed, err := m.deps.Txs.CountByStatus(ctx, domain.TxStatusFailed)
		if err != nil {
			return nil, fmt.Errorf("failed to count failed transactions: %w", err)
		}
		status.PendingTransactions = pending
		status.FailedTransactions = failed
	}

	if m.deps.Notifications != nil {
		unread, err := m.deps.Notifications.UnreadCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count unread notifications: %w", err)
		}
		status.UnreadNotifications = unread
	}

	if m.deps.QueueDepth != nil {
		status.QueueDepth = m.deps.QueueDepth()
	}

	if m.deps.Observer != nil {
		status.ObserverRunning = m.deps.Observer.Running()
		if last := m.deps.Observer.LastScan(); !last.IsZero() {
			status.ObserverLagSeconds = time.Since(last).Seconds()
		}
	}

	return status, nil
}

// Start refreshes the status gauges until the context is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.updateGauges(ctx)
		}
	}
}

func (m *Monitor) updateGauges(ctx context.Context) {
	if m.deps.Txs != nil {
		if pending, err := m.deps.Txs.CountByStatus(ctx, domain.TxStatusPending); err == nil {
			metrics.TxPending.Set(float64(pending))
		} else {
			slog.Warn("Failed to refresh pending gauge", "error", err)
		}
		if failed, err := m.deps.Txs.CountByStatus(ctx, domain.TxStatusFailed); err == nil {
			metrics.TxFailedGauge.Set(float64(failed))
		}
	}
	if m.deps.Wallets != nil {
		if all, err := m.deps.Wallets.GetAll(ctx); err == nil {
			metrics.WalletsTracked.Set(float64(len(all)))
		}
	}
}
