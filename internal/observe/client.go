// Package observe polls the Solana chain for activity on tracked wallets
// and feeds observed transfers into the ingest pipeline. It is an optional
// source: deployments that receive events over NATS or the REST API only
// run without it.
package observe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"botwatch/internal/core/domain"
	"botwatch/internal/metrics"
)

// SignatureInfo is one entry from a wallet's signature history, newest first.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	Failed    bool
	BlockTime time.Time
}

// ChainClient is the chain access surface the observer needs. Implementations
// must be safe for concurrent use.
type ChainClient interface {
	// Signatures lists signatures touching an address, newest first,
	// stopping at the until signature when set.
	Signatures(ctx context.Context, address, until string, limit int) ([]SignatureInfo, error)

	// Transaction fetches a transaction and extracts the transfer as seen
	// from the given wallet. Returns nil when the transaction moved nothing
	// of interest (fee-only, no balance change).
	Transaction(ctx context.Context, signature, wallet string) (*domain.TxEvent, error)

	// Balance returns the SOL balance of an address.
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}

// SolanaClient implements ChainClient against one or more Solana RPC
// endpoints. A failing call rotates to the next endpoint; calls always use
// the currently active one.
type SolanaClient struct {
	mu        sync.Mutex
	endpoints []string
	clients   []*rpc.Client
	active    int
}

// NewSolanaClient builds a client over the given RPC endpoints.
func NewSolanaClient(endpoints []string) (*SolanaClient, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("at least one rpc endpoint is required")
	}
	clients := make([]*rpc.Client, len(endpoints))
	for i, url := range endpoints {
		clients[i] = rpc.New(url)
	}
	return &SolanaClient{
		endpoints: endpoints,
		clients:   clients,
	}, nil
}

func (c *SolanaClient) current() (*rpc.Client, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clients[c.active], c.endpoints[c.active]
}

// rotate moves to the next endpoint unless another caller already did.
func (c *SolanaClient) rotate(failed string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.endpoints) < 2 || c.endpoints[c.active] != failed {
		return
	}
	c.active = (c.active + 1) % len(c.endpoints)
	slog.Warn("Rotated RPC endpoint", "from", failed, "to", c.endpoints[c.active])
}

// Signatures implements ChainClient.
func (c *SolanaClient) Signatures(ctx context.Context, address, until string, limit int) ([]SignatureInfo, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", address, err)
	}

	opts := &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	}
	if until != "" {
		// A corrupt stored cursor falls back to a plain limited scan
		if u, err := solana.SignatureFromBase58(until); err == nil {
			opts.Until = u
		} else {
			slog.Warn("Ignoring malformed signature cursor", "address", address, "cursor", until)
		}
	}

	client, endpoint := c.current()
	metrics.RPCCallsTotal.WithLabelValues(endpoint, "getSignaturesForAddress").Inc()
	sigs, err := client.GetSignaturesForAddressWithOpts(ctx, pub, opts)
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(endpoint, "getSignaturesForAddress").Inc()
		c.rotate(endpoint)
		return nil, fmt.Errorf("getSignaturesForAddress %s: %w", address, err)
	}

	out := make([]SignatureInfo, 0, len(sigs))
	for _, s := range sigs {
		info := SignatureInfo{
			Signature: s.Signature.String(),
			Slot:      uint64(s.Slot),
			Failed:    s.Err != nil,
		}
		if s.BlockTime != nil {
			info.BlockTime = s.BlockTime.Time()
		}
		out = append(out, info)
	}
	return out, nil
}

// Transaction implements ChainClient.
func (c *SolanaClient) Transaction(ctx context.Context, signature, wallet string) (*domain.TxEvent, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %s: %w", signature, err)
	}
	owner, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", wallet, err)
	}

	maxVersion := uint64(0)
	client, endpoint := c.current()
	metrics.RPCCallsTotal.WithLabelValues(endpoint, "getTransaction").Inc()
	res, err := client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(endpoint, "getTransaction").Inc()
		c.rotate(endpoint)
		return nil, fmt.Errorf("getTransaction %s: %w", signature, err)
	}
	return parseTransfer(res, signature, owner), nil
}

// Balance implements ChainClient.
func (c *SolanaClient) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid address %s: %w", address, err)
	}

	client, endpoint := c.current()
	metrics.RPCCallsTotal.WithLabelValues(endpoint, "getBalance").Inc()
	out, err := client.GetBalance(ctx, pub, rpc.CommitmentConfirmed)
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(endpoint, "getBalance").Inc()
		c.rotate(endpoint)
		return decimal.Zero, fmt.Errorf("getBalance %s: %w", address, err)
	}
	return decimal.New(int64(out.Value), -9), nil
}
