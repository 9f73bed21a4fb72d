package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
)

// WalletRepo implements storage.WalletRepository using PostgreSQL.
type WalletRepo struct {
	db *DB
}

// NewWalletRepo creates a new PostgreSQL wallet repository.
func NewWalletRepo(db *DB) *WalletRepo {
	return &WalletRepo{db: db}
}

type walletRow struct {
	Address       string          `db:"address"`
	Label         string          `db:"label"`
	Level         int             `db:"level"`
	IsActive      bool            `db:"is_active"`
	Balance       decimal.Decimal `db:"balance"`
	LastSignature string          `db:"last_signature"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (w *walletRow) toDomain() *domain.Wallet {
	return &domain.Wallet{
		Address:       w.Address,
		Label:         w.Label,
		Level:         w.Level,
		IsActive:      w.IsActive,
		Balance:       w.Balance,
		LastSignature: w.LastSignature,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

const walletColumns = `address, label, level, is_active, balance, last_signature, created_at, updated_at`

// Create inserts a new wallet.
func (r *WalletRepo) Create(ctx context.Context, wallet *domain.Wallet) error {
	query := `
		INSERT INTO wallets (address, label, level, is_active, balance, last_signature, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		wallet.Address, wallet.Label, wallet.Level,
		wallet.IsActive, wallet.Balance, wallet.LastSignature,
	)
	if isUniqueViolation(err) {
		return storage.ErrDuplicateAddress
	}
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// GetByAddress retrieves a wallet by address.
func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE address = $1`

	var row walletRow
	err := r.db.GetContext(ctx, &row, query, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return row.toDomain(), nil
}

// GetAll retrieves all wallets.
func (r *WalletRepo) GetAll(ctx context.Context) ([]*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets ORDER BY created_at`
	return r.selectWallets(ctx, query)
}

// GetActive retrieves all active wallets.
func (r *WalletRepo) GetActive(ctx context.Context) ([]*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE is_active ORDER BY created_at`
	return r.selectWallets(ctx, query)
}

// GetByLevel retrieves wallets at a hierarchy level.
func (r *WalletRepo) GetByLevel(ctx context.Context, level int) ([]*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE level = $1 ORDER BY created_at`
	return r.selectWallets(ctx, query, level)
}

func (r *WalletRepo) selectWallets(ctx context.Context, query string, args ...any) ([]*domain.Wallet, error) {
	var rows []walletRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	wallets := make([]*domain.Wallet, 0, len(rows))
	for i := range rows {
		wallets = append(wallets, rows[i].toDomain())
	}
	return wallets, nil
}

// SetActive flips the active flag.
func (r *WalletRepo) SetActive(ctx context.Context, address string, active bool) error {
	query := `UPDATE wallets SET is_active = $1, updated_at = NOW() WHERE address = $2`
	return r.exec(ctx, query, active, address)
}

// UpdateBalance sets the current balance.
func (r *WalletRepo) UpdateBalance(ctx context.Context, address string, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE address = $2`
	return r.exec(ctx, query, balance, address)
}

// UpdateLastSignature advances the observer cursor for a wallet.
func (r *WalletRepo) UpdateLastSignature(ctx context.Context, address string, signature string) error {
	query := `UPDATE wallets SET last_signature = $1, updated_at = NOW() WHERE address = $2`
	return r.exec(ctx, query, signature, address)
}

// exec runs an update that must touch exactly one wallet row.
func (r *WalletRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrWalletNotFound
	}
	return nil
}
