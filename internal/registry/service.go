package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
	"botwatch/internal/metrics"
)

var (
	// ErrInvalidAddress is returned for addresses that are not valid base58 public keys.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrInvalidLevel is returned for negative hierarchy levels.
	ErrInvalidLevel = errors.New("invalid hierarchy level")
)

// Notifier receives registry events for the notification stream.
type Notifier interface {
	Append(ctx context.Context, n *domain.Notification) error
}

// Service manages the tracked wallet registry and its address filter.
type Service struct {
	wallets  storage.WalletRepository
	filter   *Filter
	notifier Notifier
}

// NewService creates a registry service. notifier may be nil.
func NewService(wallets storage.WalletRepository, filter *Filter, notifier Notifier) *Service {
	return &Service{
		wallets:  wallets,
		filter:   filter,
		notifier: notifier,
	}
}

// ValidateAddress checks that an address is a base58-encoded 32-byte public key.
func ValidateAddress(address string) error {
	decoded, err := base58.Decode(address)
	if err != nil {
		return ErrInvalidAddress
	}
	if len(decoded) != 32 {
		return ErrInvalidAddress
	}
	return nil
}

// Register adds a new wallet to the registry. Returns ErrDuplicateAddress
// when the address is already tracked.
func (s *Service) Register(ctx context.Context, address, label string, level int) (*domain.Wallet, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	if level < 0 {
		return nil, ErrInvalidLevel
	}

	wallet := &domain.Wallet{
		Address:  address,
		Label:    label,
		Level:    level,
		IsActive: true,
		Balance:  decimal.Zero,
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		return nil, err
	}
	s.filter.Add(address)
	metrics.WalletsTracked.Inc()

	s.notify(ctx, &domain.Notification{
		Type:    domain.NotifySuccess,
		Title:   "Wallet registered",
		Message: fmt.Sprintf("Now tracking %s (level %d)", address, level),
		Wallet:  address,
	})

	slog.Info("Wallet registered", "address", address, "label", label, "level", level)
	return wallet, nil
}

// Get retrieves a wallet by address.
func (s *Service) Get(ctx context.Context, address string) (*domain.Wallet, error) {
	return s.wallets.GetByAddress(ctx, address)
}

// List retrieves all wallets.
func (s *Service) List(ctx context.Context) ([]*domain.Wallet, error) {
	return s.wallets.GetAll(ctx)
}

// ListActive retrieves all active wallets.
func (s *Service) ListActive(ctx context.Context) ([]*domain.Wallet, error) {
	return s.wallets.GetActive(ctx)
}

// Children retrieves wallets at a hierarchy level.
func (s *Service) Children(ctx context.Context, level int) ([]*domain.Wallet, error) {
	return s.wallets.GetByLevel(ctx, level)
}

// SetActive flips the active flag. Inactive wallets stay in the filter so
// already observed transactions still resolve, but the observer skips them.
func (s *Service) SetActive(ctx context.Context, address string, active bool) error {
	if err := s.wallets.SetActive(ctx, address, active); err != nil {
		return err
	}
	slog.Info("Wallet active flag changed", "address", address, "active", active)
	return nil
}

// UpdateBalance sets the current balance for a wallet.
func (s *Service) UpdateBalance(ctx context.Context, address string, balance decimal.Decimal) error {
	return s.wallets.UpdateBalance(ctx, address, balance)
}

// AdvanceCursor persists the newest processed signature for a wallet.
func (s *Service) AdvanceCursor(ctx context.Context, address, signature string) error {
	return s.wallets.UpdateLastSignature(ctx, address, signature)
}

// Tracked reports whether an address is in the filter.
func (s *Service) Tracked(address string) bool {
	return s.filter.Contains(address)
}

// TrackedCount returns the filter size.
func (s *Service) TrackedCount() int {
	return s.filter.Size()
}

// PreloadFilter loads every stored wallet into the filter. Called once at startup.
func (s *Service) PreloadFilter(ctx context.Context) error {
	wallets, err := s.wallets.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to preload filter: %w", err)
	}
	addrs := make([]string, 0, len(wallets))
	for _, w := range wallets {
		addrs = append(addrs, w.Address)
	}
	s.filter.AddBatch(addrs)
	metrics.WalletsTracked.Set(float64(len(addrs)))
	slog.Info("Loaded wallet addresses into filter", "count", len(addrs))
	return nil
}

// QRCode renders a wallet address as a PNG QR code.
func (s *Service) QRCode(ctx context.Context, address string, size int) ([]byte, error) {
	if _, err := s.wallets.GetByAddress(ctx, address); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(address, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

func (s *Service) notify(ctx context.Context, n *domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Append(ctx, n); err != nil {
		slog.Warn("Failed to emit registry notification", "error", err)
	}
}
