package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"botwatch/internal/botconfig"
	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
	"botwatch/internal/infra/storage/memory"
	"botwatch/internal/ledger"
	"botwatch/internal/registry"
)

const (
	parentAddr  = "So11111111111111111111111111111111111111112"
	counterAddr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type captureNotifier struct {
	mu    sync.Mutex
	items []*domain.Notification
}

func (c *captureNotifier) Append(ctx context.Context, n *domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
	return nil
}

func (c *captureNotifier) titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.items))
	for _, n := range c.items {
		out = append(out, n.Title)
	}
	return out
}

type fakeDeduper struct {
	mu      sync.Mutex
	seen    map[string]bool
	fail    bool
	cleared []string
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: make(map[string]bool)}
}

func (f *fakeDeduper) MarkSeen(ctx context.Context, txID string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false, errors.New("guard down")
	}
	if f.seen[txID] {
		return false, nil
	}
	f.seen[txID] = true
	return true, nil
}

func (f *fakeDeduper) ClearSeen(ctx context.Context, txID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, txID)
	f.cleared = append(f.cleared, txID)
	return nil
}

type testRig struct {
	pipeline *Pipeline
	reg      *registry.Service
	led      *ledger.Service
	cfgs     *botconfig.Service
	notifier *captureNotifier
}

func newTestRig(t *testing.T, deduper Deduper) *testRig {
	t.Helper()
	store := memory.NewMemoryStorage()
	notifier := &captureNotifier{}
	reg := registry.NewService(memory.NewWalletRepo(store), registry.NewFilter(), nil)
	led := ledger.NewService(memory.NewTxRepo(store), nil, nil, nil)
	cfgs := botconfig.NewService(memory.NewConfigRepo(store), memory.NewWalletRepo(store))

	p := NewPipeline(Config{Workers: 2, QueueSize: 16}, reg, led, cfgs, notifier, deduper)
	return &testRig{pipeline: p, reg: reg, led: led, cfgs: cfgs, notifier: notifier}
}

func event(txID string) *domain.TxEvent {
	return &domain.TxEvent{
		TxID:        txID,
		FromWallet:  parentAddr,
		ToWallet:    counterAddr,
		TokenSymbol: "SOL",
		Amount:      decimal.RequireFromString("10"),
		Type:        domain.TxTypeTransfer,
		Source:      domain.SourceAPI,
	}
}

func TestProcessRecordsAndAutoRegisters(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, nil)

	if err := rig.pipeline.Process(ctx, event("sig-1")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	tx, err := rig.led.Get(ctx, "sig-1")
	if err != nil {
		t.Fatalf("Expected recorded transaction: %v", err)
	}
	if tx.Status != domain.TxStatusPending {
		t.Errorf("Expected pending status, got %s", tx.Status)
	}

	for _, addr := range []string{parentAddr, counterAddr} {
		w, err := rig.reg.Get(ctx, addr)
		if err != nil {
			t.Fatalf("Expected auto-registered wallet %s: %v", addr, err)
		}
		if w.Label != autoLabel || w.Level != 1 {
			t.Errorf("Expected auto child wallet, got label=%q level=%d", w.Label, w.Level)
		}
	}
}

func TestProcessDuplicateTxID(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, nil)

	if err := rig.pipeline.Process(ctx, event("sig-dup")); err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	err := rig.pipeline.Process(ctx, event("sig-dup"))
	if !errors.Is(err, storage.ErrDuplicateTxID) {
		t.Errorf("Expected ErrDuplicateTxID, got %v", err)
	}
}

func TestProcessDedupeGuard(t *testing.T) {
	ctx := context.Background()
	deduper := newFakeDeduper()
	rig := newTestRig(t, deduper)

	if err := rig.pipeline.Process(ctx, event("sig-a")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	// Second sighting is stopped by the guard before the ledger
	if err := rig.pipeline.Process(ctx, event("sig-a")); !errors.Is(err, storage.ErrDuplicateTxID) {
		t.Errorf("Expected guard to drop duplicate, got %v", err)
	}
}

func TestProcessGuardFailsOpen(t *testing.T) {
	ctx := context.Background()
	deduper := newFakeDeduper()
	deduper.fail = true
	rig := newTestRig(t, deduper)

	if err := rig.pipeline.Process(ctx, event("sig-open")); err != nil {
		t.Fatalf("Expected ingest to proceed when guard is down, got %v", err)
	}
	if _, err := rig.led.Get(ctx, "sig-open"); err != nil {
		t.Errorf("Expected transaction recorded despite guard outage: %v", err)
	}
}

func TestProcessEvaluatesConfig(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, nil)

	// Parent wallet with an enabled band; amount 10 sits inside it
	if _, err := rig.reg.Register(ctx, parentAddr, "treasury", 0); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	err := rig.cfgs.Put(ctx, &domain.BotConfiguration{
		ParentWalletAddress: parentAddr,
		MinAmount:           decimal.RequireFromString("1"),
		MaxAmount:           decimal.RequireFromString("100"),
		Enabled:             true,
	})
	if err != nil {
		t.Fatalf("Put config failed: %v", err)
	}

	if err := rig.pipeline.Process(ctx, event("sig-eval")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	titles := rig.notifier.titles()
	if len(titles) != 1 || titles[0] != "Transaction in band" {
		t.Errorf("Expected in-band notification, got %v", titles)
	}

	// Above-band amount warns
	ev := event("sig-warn")
	ev.Amount = decimal.RequireFromString("500")
	if err := rig.pipeline.Process(ctx, ev); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	titles = rig.notifier.titles()
	if len(titles) != 2 || titles[1] != "Amount above configured maximum" {
		t.Errorf("Expected above-max warning, got %v", titles)
	}
}

func TestRunDrainsQueueOnShutdown(t *testing.T) {
	rig := newTestRig(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_ = rig.pipeline.Run(ctx)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		ev := event("sig-run")
		ev.TxID = ev.TxID + string(rune('0'+i))
		if err := rig.pipeline.Submit(ctx, ev); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Pipeline did not stop")
	}

	count, err := rig.led.List(context.Background(), storage.TxFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(count) != 5 {
		t.Errorf("Expected all 5 events processed before shutdown, got %d", len(count))
	}
}

func TestTrySubmitQueueFull(t *testing.T) {
	rig := newTestRig(t, nil)
	// Workers are not running, so the queue fills up
	small := NewPipeline(Config{Workers: 1, QueueSize: 1}, rig.reg, rig.led, rig.cfgs, nil, nil)

	if err := small.TrySubmit(event("a")); err != nil {
		t.Fatalf("first TrySubmit failed: %v", err)
	}
	if err := small.TrySubmit(event("b")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
	if small.QueueDepth() != 1 {
		t.Errorf("Expected queue depth 1, got %d", small.QueueDepth())
	}
}
