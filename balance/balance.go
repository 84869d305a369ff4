// Package balance reads SOL balances from a Solana JSON-RPC endpoint.
package balance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

var (
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrRPC            = errors.New("solana rpc error")
)

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / LamportsPerSOL
}

// FormatSOL renders a SOL amount with two decimals, as wallets display it.
func FormatSOL(sol float64) string {
	return fmt.Sprintf("%.2f", sol)
}

// Fetcher returns the balance in lamports of a base58 address.
type Fetcher interface {
	Balance(ctx context.Context, address string) (uint64, error)
}

// Client issues getBalance calls. It never retries; a failed call is
// reported to the caller, which decides what an unknown balance means.
type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
	timeout    time.Duration
}

// NewClient creates a Client for endpoint. commitment is one of processed,
// confirmed or finalized; empty means finalized.
func NewClient(endpoint, commitment string, timeout time.Duration) *Client {
	if commitment == "" {
		commitment = string(rpc.CommitmentFinalized)
	}
	return &Client{
		rpc:        rpc.New(endpoint),
		commitment: rpc.CommitmentType(commitment),
		timeout:    timeout,
	}
}

// Balance fetches the lamport balance of address.
func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, ErrInvalidAddress
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.rpc.GetBalance(ctx, pub, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRPC, err)
	}
	if out == nil {
		return 0, fmt.Errorf("%w: empty result", ErrRPC)
	}
	return out.Value, nil
}
