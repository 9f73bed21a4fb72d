package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"botwatch/internal/core/domain"
)

var (
	// ErrWalletNotFound is returned when a wallet doesn't exist
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrDuplicateAddress is returned when registering an address that already exists
	ErrDuplicateAddress = errors.New("wallet address already registered")

	// ErrTxNotFound is returned when a transaction doesn't exist
	ErrTxNotFound = errors.New("transaction not found")

	// ErrDuplicateTxID is returned when recording a transaction id that already exists
	ErrDuplicateTxID = errors.New("transaction id already recorded")

	// ErrConfigNotFound is returned when no configuration exists for a parent wallet
	ErrConfigNotFound = errors.New("bot configuration not found")

	// ErrNotificationNotFound is returned when a notification doesn't exist
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrProjectNotFound is returned when a project doesn't exist
	ErrProjectNotFound = errors.New("project not found")
)

// WalletRepository handles tracked wallet storage
type WalletRepository interface {
	// Create inserts a new wallet, ErrDuplicateAddress if the address exists
	Create(ctx context.Context, wallet *domain.Wallet) error

	// GetByAddress retrieves a wallet by address
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)

	// GetAll retrieves all wallets
	GetAll(ctx context.Context) ([]*domain.Wallet, error)

	// GetActive retrieves all active wallets
	GetActive(ctx context.Context) ([]*domain.Wallet, error)

	// GetByLevel retrieves wallets at a hierarchy level
	GetByLevel(ctx context.Context, level int) ([]*domain.Wallet, error)

	// SetActive flips the active flag
	SetActive(ctx context.Context, address string, active bool) error

	// UpdateBalance sets the current balance
	UpdateBalance(ctx context.Context, address string, balance decimal.Decimal) error

	// UpdateLastSignature advances the observer cursor for a wallet
	UpdateLastSignature(ctx context.Context, address string, signature string) error
}

// TxFilter narrows transaction listings. Zero values mean "any".
type TxFilter struct {
	Wallet string
	Status domain.TxStatus
	Limit  int
	Offset int
}

// TransactionRepository handles transaction ledger storage
type TransactionRepository interface {
	// Create inserts a new transaction, ErrDuplicateTxID if the tx id exists
	Create(ctx context.Context, tx *domain.Transaction) error

	// GetByTxID retrieves a transaction by tx id
	GetByTxID(ctx context.Context, txID string) (*domain.Transaction, error)

	// List retrieves transactions matching the filter, newest first
	List(ctx context.Context, f TxFilter) ([]*domain.Transaction, error)

	// UpdateStatus sets a new status and fail reason
	UpdateStatus(ctx context.Context, txID string, status domain.TxStatus, failReason string) error

	// IncrementRetry bumps the retry counter
	IncrementRetry(ctx context.Context, txID string) error

	// CountByStatus returns how many transactions carry a status
	CountByStatus(ctx context.Context, status domain.TxStatus) (int, error)

	// ListRetryable retrieves failed transactions below the retry limit,
	// oldest attempt first
	ListRetryable(ctx context.Context, maxRetries int) ([]*domain.Transaction, error)

	// DeleteOlderThan removes terminal transactions observed before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// BotConfigRepository handles per-parent bot configuration storage
type BotConfigRepository interface {
	// Put inserts or wholly replaces the configuration for its parent wallet
	Put(ctx context.Context, cfg *domain.BotConfiguration) error

	// Get retrieves the configuration for a parent wallet
	Get(ctx context.Context, parentAddress string) (*domain.BotConfiguration, error)

	// GetAll retrieves every stored configuration
	GetAll(ctx context.Context) ([]*domain.BotConfiguration, error)
}

// NotificationRepository handles notification storage
type NotificationRepository interface {
	// Create appends a notification
	Create(ctx context.Context, n *domain.Notification) error

	// GetByID retrieves a notification by id
	GetByID(ctx context.Context, id string) (*domain.Notification, error)

	// List retrieves notifications, newest first
	List(ctx context.Context, onlyUnread bool, limit int) ([]*domain.Notification, error)

	// MarkRead flags one notification as read
	MarkRead(ctx context.Context, id string) error

	// MarkAllRead flags every unread notification as read, returns how many
	MarkAllRead(ctx context.Context) (int64, error)

	// UnreadCount returns the number of unread notifications
	UnreadCount(ctx context.Context) (int, error)

	// DeleteOlderThan removes read notifications created before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ProjectRepository handles bot deployment projects
type ProjectRepository interface {
	// Create inserts a new project
	Create(ctx context.Context, p *domain.Project) error

	// GetByID retrieves a project by id
	GetByID(ctx context.Context, id string) (*domain.Project, error)

	// GetAll retrieves all projects
	GetAll(ctx context.Context) ([]*domain.Project, error)

	// UpdateStatus sets the project status
	UpdateStatus(ctx context.Context, id string, status domain.ProjectStatus) error

	// Delete removes a project
	Delete(ctx context.Context, id string) error
}
