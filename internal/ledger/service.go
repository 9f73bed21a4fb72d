package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"botwatch/internal/core/domain"
	"botwatch/internal/core/txstate"
	"botwatch/internal/infra/storage"
	"botwatch/internal/metrics"
)

var (
	// ErrNotRetryable is returned when retrying a transaction that is not failed.
	ErrNotRetryable = errors.New("transaction is not in a retryable state")

	// ErrRetryExhausted is returned when the retry limit is already spent.
	ErrRetryExhausted = errors.New("transaction retry limit reached")

	// ErrMissingTxID is returned when recording a transaction without an id.
	ErrMissingTxID = errors.New("transaction id is required")
)

// Notifier receives ledger events for the notification stream.
type Notifier interface {
	Append(ctx context.Context, n *domain.Notification) error
}

// RetryPublisher re-announces a failed transaction to the external executor.
type RetryPublisher interface {
	PublishRetry(ctx context.Context, tx *domain.Transaction) error
}

// Service owns the transaction ledger: recording, the status machine and
// the retry policy for failed transactions.
type Service struct {
	txs       storage.TransactionRepository
	strategy  RetryStrategy
	notifier  Notifier
	publisher RetryPublisher
}

// NewService creates a ledger service. notifier and publisher may be nil.
func NewService(txs storage.TransactionRepository, strategy RetryStrategy, notifier Notifier, publisher RetryPublisher) *Service {
	if strategy == nil {
		strategy = DefaultBackoff()
	}
	return &Service{
		txs:       txs,
		strategy:  strategy,
		notifier:  notifier,
		publisher: publisher,
	}
}

// Record appends a transaction to the ledger. Status defaults to pending.
// Returns ErrDuplicateTxID when the tx id was recorded before.
func (s *Service) Record(ctx context.Context, tx *domain.Transaction) error {
	if tx.TxID == "" {
		return ErrMissingTxID
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusPending
	}
	switch tx.Status {
	case domain.TxStatusPending, domain.TxStatusCompleted, domain.TxStatusFailed:
	default:
		return fmt.Errorf("unknown transaction status %q", tx.Status)
	}

	if err := s.txs.Create(ctx, tx); err != nil {
		return err
	}
	slog.Debug("Transaction recorded", "tx_id", tx.TxID, "status", tx.Status, "amount", tx.Amount)
	return nil
}

// UpdateStatus moves a transaction through the status machine.
// pending may complete or fail; failed may still complete after a retry;
// nothing returns to pending.
func (s *Service) UpdateStatus(ctx context.Context, txID string, status domain.TxStatus, failReason string) (*domain.Transaction, error) {
	tx, err := s.txs.GetByTxID(ctx, txID)
	if err != nil {
		return nil, err
	}

	if !txstate.CanTransition(tx.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", txstate.ErrInvalidTransition, tx.Status, status)
	}
	if status != domain.TxStatusFailed {
		failReason = ""
	}
	if err := s.txs.UpdateStatus(ctx, txID, status, failReason); err != nil {
		return nil, err
	}
	metrics.TxStatusTransitions.WithLabelValues(string(status)).Inc()
	slog.Info("Transaction status changed", "tx_id", txID, "from", tx.Status, "to", status)

	s.announceOutcome(ctx, tx, status, failReason)

	tx.Status = status
	tx.FailReason = failReason
	return tx, nil
}

// Retry schedules another attempt for a failed transaction: the retry
// counter is bumped and the transaction is re-announced. The outcome of
// the attempt arrives later as a status update.
func (s *Service) Retry(ctx context.Context, txID string) (*domain.Transaction, error) {
	tx, err := s.txs.GetByTxID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.TxStatusFailed {
		return nil, fmt.Errorf("%w: status is %s", ErrNotRetryable, tx.Status)
	}
	if !s.strategy.ShouldRetry(tx.RetryCount) {
		return nil, fmt.Errorf("%w: %d attempts", ErrRetryExhausted, tx.RetryCount)
	}

	if err := s.txs.IncrementRetry(ctx, txID); err != nil {
		return nil, err
	}
	tx.RetryCount++
	metrics.TxRetriesTotal.Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishRetry(ctx, tx); err != nil {
			slog.Warn("Failed to publish retry", "tx_id", txID, "error", err)
		}
	}

	if s.strategy.ShouldRetry(tx.RetryCount) {
		s.notify(ctx, &domain.Notification{
			Type:    domain.NotifyWarning,
			Title:   "Transaction retry",
			Message: fmt.Sprintf("Retry %d scheduled for %s", tx.RetryCount, txID),
			TxID:    txID,
		})
	} else {
		s.notify(ctx, &domain.Notification{
			Type:    domain.NotifyError,
			Title:   "Transaction retry limit reached",
			Message: fmt.Sprintf("%s failed after %d attempts: %s", txID, tx.RetryCount, tx.FailReason),
			TxID:    txID,
		})
	}

	slog.Info("Transaction retry scheduled", "tx_id", txID, "attempt", tx.RetryCount)
	return tx, nil
}

// Get retrieves a transaction by tx id.
func (s *Service) Get(ctx context.Context, txID string) (*domain.Transaction, error) {
	return s.txs.GetByTxID(ctx, txID)
}

// List retrieves transactions matching the filter, newest first.
func (s *Service) List(ctx context.Context, f storage.TxFilter) ([]*domain.Transaction, error) {
	return s.txs.List(ctx, f)
}

// PendingCount returns the number of pending transactions.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.txs.CountByStatus(ctx, domain.TxStatusPending)
}

// FailedCount returns the number of failed transactions.
func (s *Service) FailedCount(ctx context.Context) (int, error) {
	return s.txs.CountByStatus(ctx, domain.TxStatusFailed)
}

// Retryable lists failed transactions that still have attempts left.
func (s *Service) Retryable(ctx context.Context) ([]*domain.Transaction, error) {
	max := 0
	if b, ok := s.strategy.(*ExponentialBackoff); ok {
		max = b.MaxAttempts
	}
	return s.txs.ListRetryable(ctx, max)
}

// Strategy exposes the retry policy, used by the retry worker for due checks.
func (s *Service) Strategy() RetryStrategy {
	return s.strategy
}

func (s *Service) announceOutcome(ctx context.Context, tx *domain.Transaction, status domain.TxStatus, failReason string) {
	switch status {
	case domain.TxStatusCompleted:
		s.notify(ctx, &domain.Notification{
			Type:    domain.NotifySuccess,
			Title:   "Transaction completed",
			Message: fmt.Sprintf("%s %s %s confirmed", tx.Type, tx.Amount, tx.TokenSymbol),
			Wallet:  tx.FromWallet,
			TxID:    tx.TxID,
		})
	case domain.TxStatusFailed:
		s.notify(ctx, &domain.Notification{
			Type:    domain.NotifyError,
			Title:   "Transaction failed",
			Message: fmt.Sprintf("%s failed: %s", tx.TxID, failReason),
			Wallet:  tx.FromWallet,
			TxID:    tx.TxID,
		})
	}
}

func (s *Service) notify(ctx context.Context, n *domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Append(ctx, n); err != nil {
		slog.Warn("Failed to emit ledger notification", "error", err)
	}
}
