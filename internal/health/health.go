// Package health aggregates component health and bot status for the API.
package health

import "time"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ComponentHealth contains the health state of one dependency.
type ComponentHealth struct {
	Status SystemStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// Report contains the full system health report.
type Report struct {
	Status     SystemStatus               `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	CheckedAt  time.Time                  `json:"checked_at"`
}

// BotStatus is the operational summary behind the bot status endpoint.
type BotStatus struct {
	Running             bool         `json:"running"`
	Status              SystemStatus `json:"status"`
	UptimeSeconds       int64        `json:"uptime_seconds"`
	TrackedWallets      int          `json:"tracked_wallets"`
	ActiveWallets       int          `json:"active_wallets"`
	PendingTransactions int          `json:"pending_transactions"`
	FailedTransactions  int          `json:"failed_transactions"`
	UnreadNotifications int          `json:"unread_notifications"`
	QueueDepth          int          `json:"queue_depth"`
	ObserverRunning     bool         `json:"observer_running"`
	ObserverLagSeconds  float64      `json:"observer_lag_seconds,omitempty"`
	CheckedAt           time.Time    `json:"checked_at"`
}
