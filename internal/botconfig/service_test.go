package botconfig

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
	"botwatch/internal/infra/storage/memory"
)

const (
	parentAddr = "So11111111111111111111111111111111111111112"
	childAddr  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := memory.NewMemoryStorage()
	wallets := memory.NewWalletRepo(store)
	ctx := context.Background()
	if err := wallets.Create(ctx, &domain.Wallet{Address: parentAddr, Level: 0, IsActive: true}); err != nil {
		t.Fatalf("seed parent failed: %v", err)
	}
	if err := wallets.Create(ctx, &domain.Wallet{Address: childAddr, Level: 1, IsActive: true}); err != nil {
		t.Fatalf("seed child failed: %v", err)
	}
	return NewService(memory.NewConfigRepo(store), wallets)
}

func TestPutValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	err := svc.Put(ctx, &domain.BotConfiguration{ParentWalletAddress: "unknown"})
	if !errors.Is(err, storage.ErrWalletNotFound) {
		t.Errorf("Expected ErrWalletNotFound for unknown wallet, got %v", err)
	}

	err = svc.Put(ctx, &domain.BotConfiguration{ParentWalletAddress: childAddr})
	if !errors.Is(err, ErrNotParentWallet) {
		t.Errorf("Expected ErrNotParentWallet for level 1 wallet, got %v", err)
	}

	err = svc.Put(ctx, &domain.BotConfiguration{
		ParentWalletAddress: parentAddr,
		MinAmount:           dec("10"),
		MaxAmount:           dec("5"),
	})
	if !errors.Is(err, ErrInvalidBand) {
		t.Errorf("Expected ErrInvalidBand, got %v", err)
	}
}

func TestPutReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first := &domain.BotConfiguration{
		ParentWalletAddress: parentAddr,
		MinAmount:           dec("1"),
		MaxAmount:           dec("100"),
		StopLoss:            dec("0.5"),
		SlippageBps:         50,
		Enabled:             true,
	}
	if err := svc.Put(ctx, first); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Replacement omits stop loss and slippage; the old values must not leak through
	second := &domain.BotConfiguration{
		ParentWalletAddress: parentAddr,
		MinAmount:           dec("2"),
		MaxAmount:           dec("200"),
	}
	if err := svc.Put(ctx, second); err != nil {
		t.Fatalf("Put replace failed: %v", err)
	}

	got, err := svc.Get(ctx, parentAddr)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.MinAmount.Equal(dec("2")) || !got.MaxAmount.Equal(dec("200")) {
		t.Errorf("Expected replaced band, got %s..%s", got.MinAmount, got.MaxAmount)
	}
	if !got.StopLoss.IsZero() || got.SlippageBps != 0 || got.Enabled {
		t.Errorf("Expected full replace, got %+v", got)
	}
}

func TestPutLastWriteWins(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cfg := &domain.BotConfiguration{
				ParentWalletAddress: parentAddr,
				MinAmount:           decimal.New(int64(n), 0),
				MaxAmount:           decimal.New(int64(n+100), 0),
			}
			if err := svc.Put(ctx, cfg); err != nil {
				t.Errorf("concurrent Put failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	all, err := svc.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected exactly one configuration, got %d", len(all))
	}
	// The winner must be one of the written configs, internally consistent
	got := all[0]
	if !got.MaxAmount.Sub(got.MinAmount).Equal(dec("100")) {
		t.Errorf("Expected a consistent winner, got %s..%s", got.MinAmount, got.MaxAmount)
	}
}

func TestForTransaction(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	cfg := &domain.BotConfiguration{ParentWalletAddress: parentAddr, Enabled: true}
	if err := svc.Put(ctx, cfg); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// From side carries the config
	got, err := svc.ForTransaction(ctx, &domain.Transaction{FromWallet: parentAddr, ToWallet: childAddr})
	if err != nil || got.ParentWalletAddress != parentAddr {
		t.Errorf("Expected config via from wallet, got %v %v", got, err)
	}

	// To side carries the config
	got, err = svc.ForTransaction(ctx, &domain.Transaction{FromWallet: childAddr, ToWallet: parentAddr})
	if err != nil || got.ParentWalletAddress != parentAddr {
		t.Errorf("Expected config via to wallet, got %v %v", got, err)
	}

	// Neither side has one
	_, err = svc.ForTransaction(ctx, &domain.Transaction{FromWallet: childAddr, ToWallet: childAddr})
	if !errors.Is(err, storage.ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestEvaluate(t *testing.T) {
	cfg := &domain.BotConfiguration{
		ParentWalletAddress: parentAddr,
		MinAmount:           dec("1"),
		MaxAmount:           dec("100"),
		BuyThreshold:        dec("50"),
		Enabled:             true,
	}

	cases := []struct {
		name      string
		amount    string
		txType    domain.TxType
		verdict   Verdict
		notified  bool
		wantType  domain.NotificationType
		wantTitle string
	}{
		{"below min ignored", "0.5", domain.TxTypeTransfer, VerdictIgnore, false, "", ""},
		{"inside band", "10", domain.TxTypeTransfer, VerdictInBand, true, domain.NotifyInfo, "Transaction in band"},
		{"buy threshold crossed", "60", domain.TxTypeBuy, VerdictInBand, true, domain.NotifyInfo, "Buy threshold crossed"},
		{"above max warns", "150", domain.TxTypeSell, VerdictAboveMax, true, domain.NotifyWarning, "Amount above configured maximum"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tx := &domain.Transaction{TxID: "sig", Amount: dec(c.amount), Type: c.txType, TokenSymbol: "SOL"}
			verdict, n := Evaluate(cfg, tx)
			if verdict != c.verdict {
				t.Errorf("Expected verdict %s, got %s", c.verdict, verdict)
			}
			if c.notified != (n != nil) {
				t.Fatalf("Expected notified=%v, got %v", c.notified, n)
			}
			if n != nil {
				if n.Type != c.wantType {
					t.Errorf("Expected notification type %s, got %s", c.wantType, n.Type)
				}
				if n.Title != c.wantTitle {
					t.Errorf("Expected title %q, got %q", c.wantTitle, n.Title)
				}
				if n.TxID != "sig" {
					t.Errorf("Expected tx id carried through, got %q", n.TxID)
				}
			}
		})
	}
}

func TestEvaluateDisabled(t *testing.T) {
	cfg := &domain.BotConfiguration{ParentWalletAddress: parentAddr, Enabled: false}
	tx := &domain.Transaction{Amount: dec("10")}
	if verdict, n := Evaluate(cfg, tx); verdict != VerdictIgnore || n != nil {
		t.Errorf("Expected disabled config to short-circuit, got %s %v", verdict, n)
	}
	if verdict, n := Evaluate(nil, tx); verdict != VerdictIgnore || n != nil {
		t.Errorf("Expected nil config to short-circuit, got %s %v", verdict, n)
	}
}
