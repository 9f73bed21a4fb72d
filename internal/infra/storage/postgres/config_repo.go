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

// ConfigRepo implements storage.BotConfigRepository using PostgreSQL.
type ConfigRepo struct {
	db *DB
}

// NewConfigRepo creates a new PostgreSQL bot configuration repository.
func NewConfigRepo(db *DB) *ConfigRepo {
	return &ConfigRepo{db: db}
}

type configRow struct {
	ParentWalletAddress string          `db:"parent_wallet_address"`
	MinAmount           decimal.Decimal `db:"min_amount"`
	MaxAmount           decimal.Decimal `db:"max_amount"`
	BuyThreshold        decimal.Decimal `db:"buy_threshold"`
	SellThreshold       decimal.Decimal `db:"sell_threshold"`
	StopLoss            decimal.Decimal `db:"stop_loss"`
	SlippageBps         int             `db:"slippage_bps"`
	Enabled             bool            `db:"enabled"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

func (c *configRow) toDomain() *domain.BotConfiguration {
	return &domain.BotConfiguration{
		ParentWalletAddress: c.ParentWalletAddress,
		MinAmount:           c.MinAmount,
		MaxAmount:           c.MaxAmount,
		BuyThreshold:        c.BuyThreshold,
		SellThreshold:       c.SellThreshold,
		StopLoss:            c.StopLoss,
		SlippageBps:         c.SlippageBps,
		Enabled:             c.Enabled,
		UpdatedAt:           c.UpdatedAt,
	}
}

const configColumns = `parent_wallet_address, min_amount, max_amount, buy_threshold, sell_threshold, stop_loss, slippage_bps, enabled, updated_at`

// Put inserts or wholly replaces the configuration for its parent wallet.
// A single upsert statement keeps the replace atomic; the last writer wins.
func (r *ConfigRepo) Put(ctx context.Context, cfg *domain.BotConfiguration) error {
	query := `
		INSERT INTO bot_configurations (
			parent_wallet_address, min_amount, max_amount, buy_threshold, sell_threshold, stop_loss, slippage_bps, enabled, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (parent_wallet_address) DO UPDATE SET
			min_amount = EXCLUDED.min_amount,
			max_amount = EXCLUDED.max_amount,
			buy_threshold = EXCLUDED.buy_threshold,
			sell_threshold = EXCLUDED.sell_threshold,
			stop_loss = EXCLUDED.stop_loss,
			slippage_bps = EXCLUDED.slippage_bps,
			enabled = EXCLUDED.enabled,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		cfg.ParentWalletAddress, cfg.MinAmount, cfg.MaxAmount,
		cfg.BuyThreshold, cfg.SellThreshold, cfg.StopLoss,
		cfg.SlippageBps, cfg.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to put bot configuration: %w", err)
	}
	return nil
}

// Get retrieves the configuration for a parent wallet.
func (r *ConfigRepo) Get(ctx context.Context, parentAddress string) (*domain.BotConfiguration, error) {
	query := `SELECT ` + configColumns + ` FROM bot_configurations WHERE parent_wallet_address = $1`

	var row configRow
	err := r.db.GetContext(ctx, &row, query, parentAddress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bot configuration: %w", err)
	}
	return row.toDomain(), nil
}

// GetAll retrieves every stored configuration.
func (r *ConfigRepo) GetAll(ctx context.Context) ([]*domain.BotConfiguration, error) {
	query := `SELECT ` + configColumns + ` FROM bot_configurations ORDER BY parent_wallet_address`

	var rows []configRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list bot configurations: %w", err)
	}
	configs := make([]*domain.BotConfiguration, 0, len(rows))
	for i := range rows {
		configs = append(configs, rows[i].toDomain())
	}
	return configs, nil
}
