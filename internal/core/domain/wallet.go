package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet represents a tracked wallet address
type Wallet struct {
	Address       string          `json:"address"`
	Label         string          `json:"label"`
	Level         int             `json:"level"`
	IsActive      bool            `json:"is_active"`
	Balance       decimal.Decimal `json:"balance"`
	LastSignature string          `json:"last_signature,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsParent reports whether the wallet sits at the top of the hierarchy.
// Child wallets carry the level they were spawned at (1, 2, ...).
func (w *Wallet) IsParent() bool {
	return w.Level == 0
}
