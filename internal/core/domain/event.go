package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxEvent is the wire form of an observed transaction as produced by the
// ingest sources (REST, NATS, chain observer). Status may carry a terminal
// value when the source already knows the outcome; empty means pending.
type TxEvent struct {
	TxID        string          `json:"tx_id"`
	FromWallet  string          `json:"from_wallet"`
	ToWallet    string          `json:"to_wallet"`
	TokenSymbol string          `json:"token_symbol"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TxType          `json:"type"`
	Status      TxStatus        `json:"status,omitempty"`
	FailReason  string          `json:"fail_reason,omitempty"`
	ObservedAt  time.Time       `json:"observed_at"`
	Source      Source          `json:"source,omitempty"`
}

type Source string

const (
	SourceAPI      Source = "api"
	SourceNATS     Source = "nats"
	SourceObserver Source = "observer"
)

// ToTransaction builds the ledger record for the event.
func (e *TxEvent) ToTransaction() *Transaction {
	status := e.Status
	if status == "" {
		status = TxStatusPending
	}
	observed := e.ObservedAt
	if observed.IsZero() {
		observed = time.Now().UTC()
	}
	return &Transaction{
		TxID:        e.TxID,
		FromWallet:  e.FromWallet,
		ToWallet:    e.ToWallet,
		TokenSymbol: e.TokenSymbol,
		Amount:      e.Amount,
		Type:        e.Type,
		Status:      status,
		FailReason:  e.FailReason,
		ObservedAt:  observed,
	}
}
