package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
)

var (
	ErrInvalidChallenge     = errors.New("invalid challenge nonce")
	ErrChallengeExpired     = errors.New("challenge nonce expired")
	ErrChallengeKeyTooShort = errors.New("challenge key must be at least 32 bytes")
)

const (
	challengeEntropySize = 16
	challengeTimeSize    = 8
	challengeMACSize     = 16
	challengeSize        = challengeEntropySize + challengeTimeSize + challengeMACSize
)

// ChallengeGenerator issues and verifies stateless sign-in nonces.
//
// A nonce is base58(entropy || issuedAt || hmac) where the HMAC also covers the
// subject (the wallet public key) without embedding it, so a nonce verifies
// only for the wallet it was issued to. Single use is enforced by the caller.
type ChallengeGenerator struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewChallengeGenerator creates a generator whose nonces expire after ttl.
func NewChallengeGenerator(key []byte, ttl time.Duration) (*ChallengeGenerator, error) {
	if len(key) < 32 {
		return nil, ErrChallengeKeyTooShort
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ChallengeGenerator{key: key, ttl: ttl, now: time.Now}, nil
}

// TTL returns how long issued nonces remain valid.
func (g *ChallengeGenerator) TTL() time.Duration {
	return g.ttl
}

// Generate issues a nonce bound to subject. The returned time is truncated to
// whole seconds, matching what Verify recovers.
func (g *ChallengeGenerator) Generate(subject []byte) (string, time.Time, error) {
	issuedAt := g.now().UTC().Truncate(time.Second)

	payload := make([]byte, challengeEntropySize+challengeTimeSize, challengeSize)
	if _, err := rand.Read(payload[:challengeEntropySize]); err != nil {
		return "", time.Time{}, err
	}
	binary.BigEndian.PutUint64(payload[challengeEntropySize:], uint64(issuedAt.Unix()))

	token := append(payload, g.sign(payload, subject)...)
	return base58.Encode(token), issuedAt, nil
}

// Verify checks the nonce signature against subject and its age against the TTL.
// It returns the issue time embedded in the nonce.
func (g *ChallengeGenerator) Verify(nonce string, subject []byte) (time.Time, error) {
	data := base58.Decode(nonce)
	if len(data) != challengeSize {
		return time.Time{}, ErrInvalidChallenge
	}

	payload := data[:challengeSize-challengeMACSize]
	sig := data[challengeSize-challengeMACSize:]
	if !hmac.Equal(sig, g.sign(payload, subject)) {
		return time.Time{}, ErrInvalidChallenge
	}

	issuedAt := time.Unix(int64(binary.BigEndian.Uint64(payload[challengeEntropySize:])), 0).UTC()
	age := g.now().Sub(issuedAt)
	if age > g.ttl {
		return time.Time{}, ErrChallengeExpired
	}
	// Clock skew allowance for nonces minted by a peer node slightly ahead of us.
	if age < -time.Minute {
		return time.Time{}, ErrInvalidChallenge
	}

	return issuedAt, nil
}

func (g *ChallengeGenerator) sign(payload, subject []byte) []byte {
	mac := hmac.New(sha256.New, g.key)
	mac.Write(payload)
	mac.Write(subject)
	return mac.Sum(nil)[:challengeMACSize]
}
