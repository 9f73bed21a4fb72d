package control

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"botwatch/internal/core/config"
	"botwatch/internal/core/domain"
)

func memoryConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.ApplyDefaults()
	cfg.Server.Port = 0 // ephemeral port
	return cfg
}

func TestAppLifecycle(t *testing.T) {
	app, err := NewApp(memoryConfig())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	if app.pipeline == nil || app.monitor == nil || app.server == nil {
		t.Fatal("expected core components to be wired")
	}
	if app.db != nil || app.redisClient != nil || app.natsConn != nil {
		t.Fatal("expected no infrastructure connections in memory mode")
	}
	if app.consumer != nil || app.observer != nil {
		t.Fatal("expected NATS consumer and observer to be disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ev := &domain.TxEvent{
		TxID:       "lifecycle-1",
		FromWallet: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		ToWallet:   "BPFLoaderUpgradeab1e11111111111111111111111",
		Amount:     decimal.NewFromInt(3),
		Type:       domain.TxTypeTransfer,
		Source:     domain.SourceAPI,
	}
	if err := app.pipeline.Submit(ctx, ev); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := app.ledger.Get(ctx, "lifecycle-1"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("transaction was not recorded before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Sender was auto-registered by the pipeline.
	if !app.registry.Tracked(ev.FromWallet) {
		t.Error("expected sender wallet to be tracked")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if stopCtx.Err() != nil {
		t.Fatal("Stop did not finish before its deadline")
	}
}

func TestAppHealthInMemoryMode(t *testing.T) {
	app, err := NewApp(memoryConfig())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	report := app.monitor.CheckHealth(context.Background())
	if report.Status != "healthy" {
		t.Fatalf("expected healthy status, got %s", report.Status)
	}
	storage, ok := report.Components["storage"]
	if !ok {
		t.Fatal("expected a storage component in the report")
	}
	if storage.Detail != "in-memory" {
		t.Errorf("expected in-memory storage detail, got %q", storage.Detail)
	}
	for _, missing := range []string{"database", "redis", "nats", "observer"} {
		if _, ok := report.Components[missing]; ok {
			t.Errorf("expected %s to be absent from the report", missing)
		}
	}
}
