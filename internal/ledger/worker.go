package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryWorker periodically scans for failed transactions whose backoff has
// elapsed and schedules the next attempt.
type RetryWorker struct {
	ledger   *Service
	interval time.Duration
}

// NewRetryWorker creates a retry worker scanning at the given interval.
func NewRetryWorker(ledger *Service, interval time.Duration) *RetryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RetryWorker{
		ledger:   ledger,
		interval: interval,
	}
}

// Start runs the retry loop. Blocks until the context is cancelled.
func (w *RetryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			retried, err := w.processOnce(ctx)
			if err != nil {
				slog.Error("Retry scan failed", "error", err)
				continue
			}
			if retried > 0 {
				slog.Info("Transaction retries scheduled", "count", retried)
			}
		}
	}
}

// processOnce schedules a retry for every due failed transaction.
func (w *RetryWorker) processOnce(ctx context.Context) (int, error) {
	txs, err := w.ledger.Retryable(ctx)
	if err != nil {
		return 0, err
	}

	strategy := w.ledger.Strategy()
	retried := 0
	for _, tx := range txs {
		// Backoff window counts from the last attempt
		if time.Since(tx.UpdatedAt) < strategy.Delay(tx.RetryCount) {
			continue
		}
		if _, err := w.ledger.Retry(ctx, tx.TxID); err != nil {
			// Status may have changed between the scan and the retry
			if errors.Is(err, ErrNotRetryable) || errors.Is(err, ErrRetryExhausted) {
				continue
			}
			return retried, err
		}
		retried++
	}
	return retried, nil
}
