package auth

import (
	"encoding/base64"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var ErrInvalidWallet = errors.New("invalid wallet address")

// ParseWallet decodes a base58 Solana address.
func ParseWallet(addr string) (solana.PublicKey, error) {
	if addr == "" {
		return solana.PublicKey{}, ErrInvalidWallet
	}
	pub, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return solana.PublicKey{}, ErrInvalidWallet
	}
	return pub, nil
}

// DecodeSignature accepts a 64-byte ed25519 signature as base64 (what
// browser wallets hand back after btoa) or base58 (Solana's native encoding).
func DecodeSignature(s string) (solana.Signature, error) {
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil && len(raw) == len(solana.Signature{}) {
		var sig solana.Signature
		copy(sig[:], raw)
		return sig, nil
	}
	sig, err := solana.SignatureFromBase58(s)
	if err != nil {
		return solana.Signature{}, ErrInvalidSignature
	}
	return sig, nil
}
