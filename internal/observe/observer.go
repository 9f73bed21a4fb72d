package observe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"botwatch/internal/core/domain"
	"botwatch/internal/registry"
)

// Submitter accepts observed transaction events. Satisfied by the ingest
// pipeline.
type Submitter interface {
	Submit(ctx context.Context, ev *domain.TxEvent) error
}

// Config holds the observer settings.
type Config struct {
	PollInterval    time.Duration
	BalanceInterval time.Duration
	SignatureLimit  int
}

// Observer scans active wallets for new signatures on an interval and
// submits parsed transfers. Cursor advancement is at-least-once: a crash
// between submit and cursor write re-delivers, and the pipeline's dedupe
// drops the repeat.
type Observer struct {
	cfg      Config
	client   ChainClient
	registry *registry.Service
	sink     Submitter

	running atomic.Bool
	stop    chan struct{}

	mu       sync.RWMutex
	lastScan time.Time
}

// NewObserver creates an observer over the given chain client.
func NewObserver(cfg Config, client ChainClient, reg *registry.Service, sink Submitter) *Observer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.BalanceInterval <= 0 {
		cfg.BalanceInterval = time.Minute
	}
	if cfg.SignatureLimit <= 0 {
		cfg.SignatureLimit = 20
	}
	return &Observer{
		cfg:      cfg,
		client:   client,
		registry: reg,
		sink:     sink,
		stop:     make(chan struct{}),
	}
}

// Start runs the scan and balance loops. Blocks until the context is
// cancelled or Stop is called.
func (o *Observer) Start(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return errors.New("observer already running")
	}
	defer o.running.Store(false)

	slog.Info("Chain observer started",
		"poll_interval", o.cfg.PollInterval,
		"balance_interval", o.cfg.BalanceInterval,
		"signature_limit", o.cfg.SignatureLimit)

	poll := time.NewTicker(o.cfg.PollInterval)
	defer poll.Stop()
	balances := time.NewTicker(o.cfg.BalanceInterval)
	defer balances.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.stop:
			return nil
		case <-poll.C:
			if err := o.scanOnce(ctx); err != nil {
				slog.Error("Wallet scan failed", "error", err)
			}
		case <-balances.C:
			o.refreshBalances(ctx)
		}
	}
}

// Stop terminates the loops.
func (o *Observer) Stop() {
	if o.running.Load() {
		close(o.stop)
	}
}

// Running reports whether the loops are active.
func (o *Observer) Running() bool {
	return o.running.Load()
}

// LastScan returns the completion time of the most recent full scan.
func (o *Observer) LastScan() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastScan
}

// scanOnce walks every active wallet once. Per-wallet failures are logged
// and do not block the remaining wallets.
func (o *Observer) scanOnce(ctx context.Context) error {
	wallets, err := o.registry.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active wallets: %w", err)
	}

	for _, w := range wallets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.scanWallet(ctx, w); err != nil {
			slog.Warn("Wallet scan failed", "address", w.Address, "error", err)
		}
	}

	o.mu.Lock()
	o.lastScan = time.Now()
	o.mu.Unlock()
	return nil
}

// scanWallet fetches signatures since the wallet's cursor and replays them
// oldest first so the cursor only ever moves forward.
func (o *Observer) scanWallet(ctx context.Context, w *domain.Wallet) error {
	sigs, err := o.client.Signatures(ctx, w.Address, w.LastSignature, o.cfg.SignatureLimit)
	if err != nil {
		return err
	}
	if len(sigs) == 0 {
		return nil
	}

	for i := len(sigs) - 1; i >= 0; i-- {
		s := sigs[i]
		if s.Failed {
			// Failed signatures carry no transfer but still advance the cursor
			o.advance(ctx, w.Address, s.Signature)
			continue
		}

		ev, err := o.client.Transaction(ctx, s.Signature, w.Address)
		if err != nil {
			// Keep the cursor so the next tick retries from here
			return err
		}
		if ev != nil {
			if err := o.sink.Submit(ctx, ev); err != nil {
				return err
			}
		}
		o.advance(ctx, w.Address, s.Signature)
	}
	return nil
}

func (o *Observer) advance(ctx context.Context, address, signature string) {
	if err := o.registry.AdvanceCursor(ctx, address, signature); err != nil {
		slog.Warn("Failed to advance signature cursor", "address", address, "error", err)
	}
}

func (o *Observer) refreshBalances(ctx context.Context) {
	wallets, err := o.registry.ListActive(ctx)
	if err != nil {
		slog.Warn("Failed to list wallets for balance refresh", "error", err)
		return
	}

	for _, w := range wallets {
		if ctx.Err() != nil {
			return
		}
		balance, err := o.client.Balance(ctx, w.Address)
		if err != nil {
			slog.Warn("Failed to fetch balance", "address", w.Address, "error", err)
			continue
		}
		if err := o.registry.UpdateBalance(ctx, w.Address, balance); err != nil {
			slog.Warn("Failed to store balance", "address", w.Address, "error", err)
		}
	}
	slog.Debug("Wallet balances refreshed", "count", len(wallets))
}
