package observe

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"botwatch/internal/core/domain"
)

// parseTransfer extracts the SOL movement of a transaction from the wallet's
// perspective using pre/post balances. The fee payer's delta is corrected by
// the fee so a plain fee debit does not look like a transfer. Returns nil
// when the wallet's balance did not change.
func parseTransfer(res *rpc.GetTransactionResult, signature string, owner solana.PublicKey) *domain.TxEvent {
	if res == nil || res.Meta == nil {
		return nil
	}
	decoded, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil
	}

	keys := decoded.Message.AccountKeys
	ownerIndex := -1
	for i, key := range keys {
		if key.Equals(owner) {
			ownerIndex = i
			break
		}
	}
	if ownerIndex < 0 || ownerIndex >= len(res.Meta.PreBalances) || ownerIndex >= len(res.Meta.PostBalances) {
		return nil
	}

	delta := int64(res.Meta.PostBalances[ownerIndex]) - int64(res.Meta.PreBalances[ownerIndex])
	if ownerIndex == 0 {
		// Account 0 is the fee payer
		delta += int64(res.Meta.Fee)
	}
	if delta == 0 {
		return nil
	}

	ev := &domain.TxEvent{
		TxID:        signature,
		TokenSymbol: "SOL",
		Type:        domain.TxTypeTransfer,
		Status:      domain.TxStatusCompleted,
		Source:      domain.SourceObserver,
	}
	if res.Meta.Err != nil {
		ev.Status = domain.TxStatusFailed
		ev.FailReason = "transaction failed on chain"
	}
	if res.BlockTime != nil {
		ev.ObservedAt = res.BlockTime.Time().UTC()
	}

	limit := len(res.Meta.PreBalances)
	if len(res.Meta.PostBalances) < limit {
		limit = len(res.Meta.PostBalances)
	}

	if delta > 0 {
		ev.ToWallet = owner.String()
		ev.Amount = decimal.New(delta, -9)
		for i, key := range keys {
			if i == ownerIndex || i >= limit {
				continue
			}
			if res.Meta.PreBalances[i] > res.Meta.PostBalances[i] {
				ev.FromWallet = key.String()
				break
			}
		}
	} else {
		ev.FromWallet = owner.String()
		ev.Amount = decimal.New(-delta, -9)
		for i, key := range keys {
			if i == ownerIndex || i >= limit {
				continue
			}
			if res.Meta.PostBalances[i] > res.Meta.PreBalances[i] {
				ev.ToWallet = key.String()
				break
			}
		}
	}
	return ev
}
