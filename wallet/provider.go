// Package wallet is the client side of SolStream sign-in: it finds a wallet,
// connects to it, proves ownership of the key to the server, keeps the
// resulting session and tracks the wallet's SOL balance.
package wallet

import (
	"context"
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrNotInstalled       = errors.New("wallet not installed")
	ErrConnectFailed      = errors.New("failed to connect wallet")
	ErrNotConnected       = errors.New("wallet not connected")
	ErrSigningUnsupported = errors.New("wallet does not support message signing")
	ErrAuthFailed         = errors.New("authentication failed")
)

// Provider is the capability handle a wallet exposes. Connect may block
// until the user approves in the wallet's own UI; the caller's context is
// the only bound on that wait.
type Provider interface {
	Connect(ctx context.Context) (solana.PublicKey, error)
	// SignMessage signs raw bytes with the wallet key and returns the 64-byte
	// ed25519 signature, or ErrSigningUnsupported.
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
	Disconnect(ctx context.Context) error
}

// KeypairProvider is a Provider holding an ed25519 key in process. Tooling
// and tests use it where a browser extension would normally sit.
type KeypairProvider struct {
	key solana.PrivateKey

	mu        sync.Mutex
	connected bool
}

// NewKeypairProvider wraps an existing key.
func NewKeypairProvider(key solana.PrivateKey) *KeypairProvider {
	return &KeypairProvider{key: key}
}

// NewRandomKeypairProvider generates a fresh key.
func NewRandomKeypairProvider() (*KeypairProvider, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return NewKeypairProvider(key), nil
}

func (p *KeypairProvider) Connect(ctx context.Context) (solana.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return solana.PublicKey{}, err
	}
	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
	return p.key.PublicKey(), nil
}

func (p *KeypairProvider) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	p.mu.Lock()
	connected := p.connected
	p.mu.Unlock()
	if !connected {
		return nil, ErrNotConnected
	}
	sig, err := p.key.Sign(msg)
	if err != nil {
		return nil, err
	}
	return sig[:], nil
}

func (p *KeypairProvider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	return nil
}

// PublicKey returns the provider's address without connecting.
func (p *KeypairProvider) PublicKey() solana.PublicKey {
	return p.key.PublicKey()
}
