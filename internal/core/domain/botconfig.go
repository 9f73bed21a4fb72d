package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BotConfiguration holds the trading parameters for one parent wallet.
// Exactly one configuration exists per parent; an update replaces every
// field at once, last write wins.
type BotConfiguration struct {
	ParentWalletAddress string          `json:"parent_wallet_address"`
	MinAmount           decimal.Decimal `json:"min_amount"`
	MaxAmount           decimal.Decimal `json:"max_amount"`
	BuyThreshold        decimal.Decimal `json:"buy_threshold"`
	SellThreshold       decimal.Decimal `json:"sell_threshold"`
	StopLoss            decimal.Decimal `json:"stop_loss"`
	SlippageBps         int             `json:"slippage_bps"`
	Enabled             bool            `json:"enabled"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
