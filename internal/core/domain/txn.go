package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents an observed bot transaction
type Transaction struct {
	ID          uint64          `json:"id"`
	TxID        string          `json:"tx_id"`
	FromWallet  string          `json:"from_wallet"`
	ToWallet    string          `json:"to_wallet"`
	TokenSymbol string          `json:"token_symbol"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TxType          `json:"type"`
	Status      TxStatus        `json:"status"`
	FailReason  string          `json:"fail_reason,omitempty"`
	RetryCount  int             `json:"retry_count"`
	ObservedAt  time.Time       `json:"observed_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCompleted TxStatus = "completed"
	TxStatusFailed    TxStatus = "failed"
)

type TxType string

const (
	TxTypeBuy      TxType = "buy"
	TxTypeSell     TxType = "sell"
	TxTypeTransfer TxType = "transfer"
)
