package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
)

// TxRepo implements storage.TransactionRepository using PostgreSQL.
type TxRepo struct {
	db *DB
}

// NewTxRepo creates a new PostgreSQL transaction repository.
func NewTxRepo(db *DB) *TxRepo {
	return &TxRepo{db: db}
}

type txRow struct {
	ID          uint64          `db:"id"`
	TxID        string          `db:"tx_id"`
	FromWallet  string          `db:"from_wallet"`
	ToWallet    string          `db:"to_wallet"`
	TokenSymbol string          `db:"token_symbol"`
	Amount      decimal.Decimal `db:"amount"`
	Type        string          `db:"type"`
	Status      string          `db:"status"`
	FailReason  string          `db:"fail_reason"`
	RetryCount  int             `db:"retry_count"`
	ObservedAt  time.Time       `db:"observed_at"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (t *txRow) toDomain() *domain.Transaction {
	return &domain.Transaction{
		ID:          t.ID,
		TxID:        t.TxID,
		FromWallet:  t.FromWallet,
		ToWallet:    t.ToWallet,
		TokenSymbol: t.TokenSymbol,
		Amount:      t.Amount,
		Type:        domain.TxType(t.Type),
		Status:      domain.TxStatus(t.Status),
		FailReason:  t.FailReason,
		RetryCount:  t.RetryCount,
		ObservedAt:  t.ObservedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

const txColumns = `id, tx_id, from_wallet, to_wallet, token_symbol, amount, type, status, fail_reason, retry_count, observed_at, created_at, updated_at`

// Create inserts a new transaction and fills in the assigned id.
func (r *TxRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			tx_id, from_wallet, to_wallet, token_symbol, amount, type, status, fail_reason, retry_count, observed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id
	`
	err := r.db.GetContext(ctx, &tx.ID, query,
		tx.TxID, tx.FromWallet, tx.ToWallet, tx.TokenSymbol,
		tx.Amount, string(tx.Type), string(tx.Status),
		tx.FailReason, tx.RetryCount, tx.ObservedAt,
	)
	if isUniqueViolation(err) {
		return storage.ErrDuplicateTxID
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByTxID retrieves a transaction by tx id.
func (r *TxRepo) GetByTxID(ctx context.Context, txID string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE tx_id = $1`

	var row txRow
	err := r.db.GetContext(ctx, &row, query, txID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrTxNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return row.toDomain(), nil
}

// List retrieves transactions matching the filter, newest first.
func (r *TxRepo) List(ctx context.Context, f storage.TxFilter) ([]*domain.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + txColumns + ` FROM transactions`)

	var conds []string
	var args []any
	if f.Wallet != "" {
		args = append(args, f.Wallet)
		n := strconv.Itoa(len(args))
		conds = append(conds, `(from_wallet = $`+n+` OR to_wallet = $`+n+`)`)
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, `status = $`+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(conds, ` AND `))
	}
	sb.WriteString(` ORDER BY id DESC`)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sb.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sb.WriteString(` OFFSET $` + strconv.Itoa(len(args)))
	}

	var rows []txRow
	if err := r.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		txs = append(txs, rows[i].toDomain())
	}
	return txs, nil
}

// UpdateStatus sets a new status and fail reason.
func (r *TxRepo) UpdateStatus(ctx context.Context, txID string, status domain.TxStatus, failReason string) error {
	query := `UPDATE transactions SET status = $1, fail_reason = $2, updated_at = NOW() WHERE tx_id = $3`
	return r.exec(ctx, query, string(status), failReason, txID)
}

// IncrementRetry bumps the retry counter.
func (r *TxRepo) IncrementRetry(ctx context.Context, txID string) error {
	query := `UPDATE transactions SET retry_count = retry_count + 1, updated_at = NOW() WHERE tx_id = $1`
	return r.exec(ctx, query, txID)
}

// CountByStatus returns how many transactions carry a status.
func (r *TxRepo) CountByStatus(ctx context.Context, status domain.TxStatus) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM transactions WHERE status = $1`
	if err := r.db.GetContext(ctx, &count, query, string(status)); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// ListRetryable retrieves failed transactions below the retry limit, oldest attempt first.
func (r *TxRepo) ListRetryable(ctx context.Context, maxRetries int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + ` FROM transactions
		WHERE status = $1 AND retry_count < $2
		ORDER BY updated_at ASC
	`
	var rows []txRow
	err := r.db.SelectContext(ctx, &rows, query, string(domain.TxStatusFailed), maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable transactions: %w", err)
	}
	txs := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		txs = append(txs, rows[i].toDomain())
	}
	return txs, nil
}

// DeleteOlderThan removes terminal transactions observed before cutoff.
func (r *TxRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM transactions WHERE status <> $1 AND observed_at < $2`
	res, err := r.db.ExecContext(ctx, query, string(domain.TxStatusPending), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transactions: %w", err)
	}
	return res.RowsAffected()
}

// exec runs an update that must touch exactly one transaction row.
func (r *TxRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrTxNotFound
	}
	return nil
}
