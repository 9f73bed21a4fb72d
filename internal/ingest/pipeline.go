// Package ingest glues the observation sources to the ledger: observed
// transactions come in from the REST API, the NATS subject, or the chain
// observer, get deduplicated, recorded, evaluated against bot
// configuration, and announced.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"botwatch/internal/botconfig"
	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
	"botwatch/internal/ledger"
	"botwatch/internal/metrics"
	"botwatch/internal/registry"
)

// ErrQueueFull is returned when the pipeline cannot take more events.
var ErrQueueFull = errors.New("ingest queue is full")

// autoLabel marks wallets registered on first observation.
const autoLabel = "auto"

// drainGrace bounds how long shutdown spends on queued events.
const drainGrace = 5 * time.Second

// Deduper tracks already-seen transaction ids across restarts.
type Deduper interface {
	// MarkSeen records a tx id, reporting whether it is the first sighting.
	MarkSeen(ctx context.Context, txID string, ttl time.Duration) (bool, error)

	// ClearSeen drops the marker so the id can be ingested again.
	ClearSeen(ctx context.Context, txID string) error
}

// Notifier receives pipeline events for the notification stream.
type Notifier interface {
	Append(ctx context.Context, n *domain.Notification) error
}

// Config holds the pipeline settings.
type Config struct {
	Workers   int
	QueueSize int
	DedupeTTL time.Duration
}

// Pipeline is the transaction ingest worker pool. Every source funnels
// into one queue; workers run the per-event steps in order: dedupe,
// wallet auto-registration, ledger record, config evaluation, notify.
type Pipeline struct {
	cfg      Config
	registry *registry.Service
	ledger   *ledger.Service
	configs  *botconfig.Service
	notifier Notifier
	deduper  Deduper

	queue chan *domain.TxEvent
	wg    sync.WaitGroup
}

// NewPipeline creates an ingest pipeline. deduper and notifier may be nil.
func NewPipeline(
	cfg Config,
	reg *registry.Service,
	led *ledger.Service,
	configs *botconfig.Service,
	notifier Notifier,
	deduper Deduper,
) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 24 * time.Hour
	}
	return &Pipeline{
		cfg:      cfg,
		registry: reg,
		ledger:   led,
		configs:  configs,
		notifier: notifier,
		deduper:  deduper,
		queue:    make(chan *domain.TxEvent, cfg.QueueSize),
	}
}

// Submit queues an event, blocking until there is room or the context ends.
func (p *Pipeline) Submit(ctx context.Context, ev *domain.TxEvent) error {
	select {
	case p.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues an event without blocking. Returns ErrQueueFull when the
// queue has no room; sources with redelivery (NATS) Nak on that.
func (p *Pipeline) TrySubmit(ev *domain.TxEvent) error {
	select {
	case p.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth returns how many events are waiting.
func (p *Pipeline) QueueDepth() int {
	return len(p.queue)
}

// Run starts the workers and blocks until the context is cancelled and the
// remaining queue is drained.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("Ingest pipeline started", "workers", p.cfg.Workers, "queue", p.cfg.QueueSize)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	<-ctx.Done()
	p.wg.Wait()
	slog.Info("Ingest pipeline stopped")
	return ctx.Err()
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case ev := <-p.queue:
			p.Process(ctx, ev)
		}
	}
}

// drain processes what is left in the queue on shutdown, bounded by a
// grace window so a stuck store cannot hold the process open.
func (p *Pipeline) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainGrace)
	defer cancel()

	for {
		select {
		case ev := <-p.queue:
			p.Process(ctx, ev)
		default:
			return
		}
	}
}

// Process runs one event through the pipeline. Exported so the REST
// handler can ingest synchronously and report the ledger outcome.
func (p *Pipeline) Process(ctx context.Context, ev *domain.TxEvent) error {
	start := time.Now()
	source := string(ev.Source)
	if source == "" {
		source = string(domain.SourceAPI)
	}
	defer func() {
		metrics.IngestLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	if ev.TxID == "" {
		slog.Warn("Dropping event without tx id", "source", source)
		return ledger.ErrMissingTxID
	}

	// Cross-restart dedupe guard; fail open when the guard is unavailable
	if p.deduper != nil {
		first, err := p.deduper.MarkSeen(ctx, ev.TxID, p.cfg.DedupeTTL)
		if err != nil {
			slog.Warn("Dedupe guard unavailable", "tx_id", ev.TxID, "error", err)
		} else if !first {
			metrics.TxDuplicateTotal.WithLabelValues(source).Inc()
			slog.Debug("Duplicate event dropped by guard", "tx_id", ev.TxID, "source", source)
			return storage.ErrDuplicateTxID
		}
	}

	// Wallets spring into existence on first observation
	p.ensureWallet(ctx, ev.FromWallet)
	p.ensureWallet(ctx, ev.ToWallet)

	tx := ev.ToTransaction()
	if err := p.ledger.Record(ctx, tx); err != nil {
		if errors.Is(err, storage.ErrDuplicateTxID) {
			metrics.TxDuplicateTotal.WithLabelValues(source).Inc()
			slog.Debug("Duplicate tx id", "tx_id", ev.TxID, "source", source)
			return err
		}
		// Clear the guard so a transient store failure doesn't eat the event
		if p.deduper != nil {
			if clearErr := p.deduper.ClearSeen(ctx, ev.TxID); clearErr != nil {
				slog.Warn("Failed to clear dedupe marker", "tx_id", ev.TxID, "error", clearErr)
			}
		}
		slog.Error("Failed to record transaction", "tx_id", ev.TxID, "error", err)
		return err
	}
	metrics.TxIngestedTotal.WithLabelValues(source).Inc()

	p.evaluate(ctx, tx)
	return nil
}

// ensureWallet registers an unknown address as an auto-tracked child.
func (p *Pipeline) ensureWallet(ctx context.Context, address string) {
	if address == "" || p.registry.Tracked(address) {
		return
	}
	if _, err := p.registry.Register(ctx, address, autoLabel, 1); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateAddress):
			// Raced another worker, the wallet exists
		case errors.Is(err, registry.ErrInvalidAddress):
			slog.Debug("Skipping non-address counterparty", "address", address)
		default:
			slog.Warn("Failed to auto-register wallet", "address", address, "error", err)
		}
	}
}

// evaluate classifies the transaction against the governing bot
// configuration and announces the verdict.
func (p *Pipeline) evaluate(ctx context.Context, tx *domain.Transaction) {
	if p.configs == nil {
		return
	}
	cfg, err := p.configs.ForTransaction(ctx, tx)
	if err != nil {
		if !errors.Is(err, storage.ErrConfigNotFound) {
			slog.Warn("Failed to look up bot configuration", "tx_id", tx.TxID, "error", err)
		}
		return
	}

	verdict, n := botconfig.Evaluate(cfg, tx)
	if n == nil {
		return
	}
	slog.Debug("Transaction evaluated", "tx_id", tx.TxID, "verdict", verdict)
	if p.notifier != nil {
		if err := p.notifier.Append(ctx, n); err != nil {
			slog.Warn("Failed to emit evaluation notification", "tx_id", tx.TxID, "error", err)
		}
	}
}
