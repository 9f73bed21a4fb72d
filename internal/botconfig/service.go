// Package botconfig stores the per-parent-wallet trading parameters and
// classifies observed transactions against them. The trading decision
// itself belongs to an external executor; this package only says whether
// an observed amount is inside the configured band.
package botconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
)

var (
	// ErrNotParentWallet is returned when configuring a wallet below level 0.
	ErrNotParentWallet = errors.New("configuration target is not a parent wallet")

	// ErrInvalidBand is returned when minAmount exceeds maxAmount.
	ErrInvalidBand = errors.New("min amount exceeds max amount")
)

// Service owns bot configurations: exactly one per parent wallet, replaced
// wholesale on update, last write wins.
type Service struct {
	configs storage.BotConfigRepository
	wallets storage.WalletRepository
}

// NewService creates a bot configuration service.
func NewService(configs storage.BotConfigRepository, wallets storage.WalletRepository) *Service {
	return &Service{
		configs: configs,
		wallets: wallets,
	}
}

// Put replaces the configuration for its parent wallet. The referenced
// wallet must exist and sit at the top of the hierarchy. The replace is a
// single upsert, so concurrent writers leave exactly one winner.
func (s *Service) Put(ctx context.Context, cfg *domain.BotConfiguration) error {
	wallet, err := s.wallets.GetByAddress(ctx, cfg.ParentWalletAddress)
	if err != nil {
		return err
	}
	if !wallet.IsParent() {
		return fmt.Errorf("%w: %s is level %d", ErrNotParentWallet, wallet.Address, wallet.Level)
	}
	if cfg.MaxAmount.IsPositive() && cfg.MinAmount.GreaterThan(cfg.MaxAmount) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidBand, cfg.MinAmount, cfg.MaxAmount)
	}

	if err := s.configs.Put(ctx, cfg); err != nil {
		return err
	}
	slog.Info("Bot configuration replaced",
		"parent", cfg.ParentWalletAddress,
		"min", cfg.MinAmount, "max", cfg.MaxAmount,
		"enabled", cfg.Enabled)
	return nil
}

// Get retrieves the configuration for a parent wallet.
func (s *Service) Get(ctx context.Context, parentAddress string) (*domain.BotConfiguration, error) {
	return s.configs.Get(ctx, parentAddress)
}

// All retrieves every stored configuration.
func (s *Service) All(ctx context.Context) ([]*domain.BotConfiguration, error) {
	return s.configs.GetAll(ctx)
}

// ForTransaction finds the configuration governing a transaction: the one
// keyed on whichever endpoint wallet carries a configuration, source side
// first. Returns ErrConfigNotFound when neither side has one.
func (s *Service) ForTransaction(ctx context.Context, tx *domain.Transaction) (*domain.BotConfiguration, error) {
	cfg, err := s.configs.Get(ctx, tx.FromWallet)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, storage.ErrConfigNotFound) {
		return nil, err
	}
	return s.configs.Get(ctx, tx.ToWallet)
}
