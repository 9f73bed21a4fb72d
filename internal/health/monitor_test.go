package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage/memory"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Health(ctx context.Context) error {
	return f.err
}

type fakeObserver struct {
	running  bool
	lastScan time.Time
}

func (f fakeObserver) Running() bool       { return f.running }
func (f fakeObserver) LastScan() time.Time { return f.lastScan }

func TestCheckHealthAllHealthy(t *testing.T) {
	m := NewMonitor(Deps{
		DB:            fakePinger{},
		Redis:         fakePinger{},
		NATSConnected: func() bool { return true },
		Observer:      fakeObserver{running: true, lastScan: time.Now()},
	}, 15*time.Second)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", report.Status)
	}
	for name, c := range report.Components {
		if c.Status != StatusHealthy {
			t.Errorf("Expected %s healthy, got %s (%s)", name, c.Status, c.Detail)
		}
	}
}

func TestCheckHealthDatabaseDown(t *testing.T) {
	m := NewMonitor(Deps{
		DB:    fakePinger{err: errors.New("connection refused")},
		Redis: fakePinger{},
	}, 15*time.Second)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusCritical {
		t.Errorf("Expected critical when database is down, got %s", report.Status)
	}
	if c := report.Components["database"]; c.Status != StatusCritical {
		t.Errorf("Expected database critical, got %s", c.Status)
	}
}

func TestCheckHealthDegradedComponents(t *testing.T) {
	m := NewMonitor(Deps{
		NATSConnected: func() bool { return false },
		Observer:      fakeObserver{running: true, lastScan: time.Now().Add(-time.Hour)},
	}, 15*time.Second)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", report.Status)
	}
	if c := report.Components["nats"]; c.Status != StatusDegraded {
		t.Errorf("Expected nats degraded, got %s", c.Status)
	}
	if c := report.Components["observer"]; c.Status != StatusDegraded {
		t.Errorf("Expected observer degraded by stale scan, got %s", c.Status)
	}
	if c := report.Components["storage"]; c.Status != StatusHealthy {
		t.Errorf("Expected in-memory storage healthy, got %s", c.Status)
	}
}

func TestCheckHealthCachesReport(t *testing.T) {
	calls := 0
	m := NewMonitor(Deps{
		NATSConnected: func() bool { calls++; return true },
	}, 15*time.Second)

	ctx := context.Background()
	m.CheckHealth(ctx)
	m.CheckHealth(ctx)
	if calls != 1 {
		t.Errorf("Expected cached second check, probe ran %d times", calls)
	}
}

func TestStatusCounts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	wallets := memory.NewWalletRepo(store)
	txs := memory.NewTxRepo(store)
	notifications := memory.NewNotificationRepo(store)

	active := &domain.Wallet{Address: "So11111111111111111111111111111111111111112", IsActive: true}
	if err := wallets.Create(ctx, active); err != nil {
		t.Fatalf("Create wallet failed: %v", err)
	}
	idle := &domain.Wallet{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"}
	if err := wallets.Create(ctx, idle); err != nil {
		t.Fatalf("Create wallet failed: %v", err)
	}

	for i, status := range []domain.TxStatus{domain.TxStatusPending, domain.TxStatusPending, domain.TxStatusFailed} {
		tx := &domain.Transaction{TxID: string(rune('a' + i)), Status: status}
		if err := txs.Create(ctx, tx); err != nil {
			t.Fatalf("Create tx failed: %v", err)
		}
	}

	if err := notifications.Create(ctx, &domain.Notification{ID: "n1", Title: "t"}); err != nil {
		t.Fatalf("Create notification failed: %v", err)
	}

	m := NewMonitor(Deps{
		Wallets:       wallets,
		Txs:           txs,
		Notifications: notifications,
		QueueDepth:    func() int { return 7 },
		Observer:      fakeObserver{running: true, lastScan: time.Now().Add(-2 * time.Second)},
	}, 15*time.Second)

	status, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.TrackedWallets != 2 || status.ActiveWallets != 1 {
		t.Errorf("Expected 2 tracked / 1 active, got %d / %d", status.TrackedWallets, status.ActiveWallets)
	}
	if status.PendingTransactions != 2 || status.FailedTransactions != 1 {
		t.Errorf("Expected 2 pending / 1 failed, got %d / %d", status.PendingTransactions, status.FailedTransactions)
	}
	if status.UnreadNotifications != 1 {
		t.Errorf("Expected 1 unread, got %d", status.UnreadNotifications)
	}
	if status.QueueDepth != 7 {
		t.Errorf("Expected queue depth 7, got %d", status.QueueDepth)
	}
	if !status.ObserverRunning || status.ObserverLagSeconds <= 0 {
		t.Errorf("Expected observer lag reported, got running=%v lag=%f", status.ObserverRunning, status.ObserverLagSeconds)
	}
}
