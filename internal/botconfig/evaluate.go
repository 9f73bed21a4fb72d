package botconfig

import (
	"fmt"

	"botwatch/internal/core/domain"
)

// Verdict classifies an observed transaction against a configuration.
type Verdict string

const (
	// VerdictIgnore means the amount sits below the configured minimum.
	VerdictIgnore Verdict = "ignore"

	// VerdictInBand means the amount sits inside the configured band.
	VerdictInBand Verdict = "in_band"

	// VerdictAboveMax means the amount exceeds the configured maximum.
	VerdictAboveMax Verdict = "above_max"
)

// Evaluate classifies a transaction amount against the configured band and
// builds the notification announcing the outcome. Returns nil when nothing
// should be announced: the configuration is disabled or the amount is below
// the minimum.
func Evaluate(cfg *domain.BotConfiguration, tx *domain.Transaction) (Verdict, *domain.Notification) {
	if cfg == nil || !cfg.Enabled {
		return VerdictIgnore, nil
	}
	if cfg.MinAmount.IsPositive() && tx.Amount.LessThan(cfg.MinAmount) {
		return VerdictIgnore, nil
	}

	if cfg.MaxAmount.IsPositive() && tx.Amount.GreaterThan(cfg.MaxAmount) {
		return VerdictAboveMax, &domain.Notification{
			Type:  domain.NotifyWarning,
			Title: "Amount above configured maximum",
			Message: fmt.Sprintf("%s %s %s exceeds max %s for %s",
				tx.Type, tx.Amount, tx.TokenSymbol, cfg.MaxAmount, cfg.ParentWalletAddress),
			Wallet: cfg.ParentWalletAddress,
			TxID:   tx.TxID,
		}
	}

	return VerdictInBand, &domain.Notification{
		Type:    domain.NotifyInfo,
		Title:   bandTitle(cfg, tx),
		Message: fmt.Sprintf("%s %s %s observed for %s", tx.Type, tx.Amount, tx.TokenSymbol, cfg.ParentWalletAddress),
		Wallet:  cfg.ParentWalletAddress,
		TxID:    tx.TxID,
	}
}

// bandTitle names the in-band observation, calling out crossed buy/sell
// thresholds so the dashboard can surface them.
func bandTitle(cfg *domain.BotConfiguration, tx *domain.Transaction) string {
	switch tx.Type {
	case domain.TxTypeBuy:
		if cfg.BuyThreshold.IsPositive() && tx.Amount.GreaterThanOrEqual(cfg.BuyThreshold) {
			return "Buy threshold crossed"
		}
	case domain.TxTypeSell:
		if cfg.SellThreshold.IsPositive() && tx.Amount.GreaterThanOrEqual(cfg.SellThreshold) {
			return "Sell threshold crossed"
		}
	}
	return "Transaction in band"
}
