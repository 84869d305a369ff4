// Package auth provides wallet sign-in for SolStream: signed challenge nonces,
// ed25519 signature checks and session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/scalecode-solutions/solstream/crypto"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrInvalidChallenge = errors.New("invalid challenge")
	ErrChallengeExpired = errors.New("challenge expired")
	ErrNonceUsed        = errors.New("challenge already used")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Config holds authentication configuration.
type Config struct {
	// JWT signing key, also the master for the challenge key
	TokenKey []byte
	// Token expiration duration (default 2 weeks)
	TokenExpiry time.Duration
	// How long a challenge nonce may be answered (default 5 minutes)
	ChallengeTTL time.Duration
	// Shown in the first line of the message the wallet signs
	AppName string
}

// NonceTracker records consumed challenge nonces.
// MarkNonceUsed reports false when the nonce was already marked.
type NonceTracker interface {
	MarkNonceUsed(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}

// Revoker keeps the set of logged-out session ids.
type Revoker interface {
	RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, error)
}

// Auth handles authentication operations.
type Auth struct {
	config     Config
	challenges *crypto.ChallengeGenerator
	nonces     NonceTracker
	revoked    Revoker
	now        func() time.Time
}

// New creates a new Auth instance. Nil trackers fall back to in-process ones.
func New(cfg Config, nonces NonceTracker, revoked Revoker) (*Auth, error) {
	if len(cfg.TokenKey) == 0 {
		return nil, errors.New("auth: token key is required")
	}
	if cfg.TokenExpiry == 0 {
		cfg.TokenExpiry = 14 * 24 * time.Hour // 2 weeks
	}
	if cfg.ChallengeTTL == 0 {
		cfg.ChallengeTTL = 5 * time.Minute
	}
	if cfg.AppName == "" {
		cfg.AppName = "SolStream"
	}

	challengeKey, err := crypto.DeriveKey(cfg.TokenKey, "solstream-challenge", 32)
	if err != nil {
		return nil, fmt.Errorf("auth: derive challenge key: %w", err)
	}
	gen, err := crypto.NewChallengeGenerator(challengeKey, cfg.ChallengeTTL)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	if nonces == nil {
		nonces = NewMemoryNonceTracker()
	}
	if revoked == nil {
		revoked = NewMemoryRevoker()
	}

	return &Auth{
		config:     cfg,
		challenges: gen,
		nonces:     nonces,
		revoked:    revoked,
		now:        time.Now,
	}, nil
}

// Challenge is handed to a wallet to sign.
type Challenge struct {
	Wallet    string    `json:"wallet"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueChallenge creates a nonce bound to the wallet address.
func (a *Auth) IssueChallenge(wallet string) (*Challenge, error) {
	pub, err := ParseWallet(wallet)
	if err != nil {
		return nil, err
	}

	nonce, issuedAt, err := a.challenges.Generate(pub.Bytes())
	if err != nil {
		return nil, err
	}

	addr := pub.String()
	return &Challenge{
		Wallet:    addr,
		Nonce:     nonce,
		Message:   ChallengeMessage(a.config.AppName, addr, nonce, issuedAt),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(a.challenges.TTL()),
	}, nil
}

// ChallengeMessage builds the exact text a wallet signs.
func ChallengeMessage(app, wallet, nonce string, issuedAt time.Time) string {
	return fmt.Sprintf("Sign this message to authenticate with %s\n\nWallet: %s\nNonce: %s\nIssued: %s",
		app, wallet, nonce, issuedAt.UTC().Format(time.RFC3339))
}

// VerifySignature checks a signed challenge and consumes its nonce.
// The signature may be base64 or base58 encoded.
func (a *Auth) VerifySignature(ctx context.Context, wallet, nonce, signature string) (solana.PublicKey, error) {
	pub, err := ParseWallet(wallet)
	if err != nil {
		return solana.PublicKey{}, err
	}

	issuedAt, err := a.challenges.Verify(nonce, pub.Bytes())
	if err != nil {
		if errors.Is(err, crypto.ErrChallengeExpired) {
			return solana.PublicKey{}, ErrChallengeExpired
		}
		return solana.PublicKey{}, ErrInvalidChallenge
	}

	sig, err := DecodeSignature(signature)
	if err != nil {
		return solana.PublicKey{}, err
	}

	msg := ChallengeMessage(a.config.AppName, pub.String(), nonce, issuedAt)
	if !sig.Verify(pub, []byte(msg)) {
		return solana.PublicKey{}, ErrInvalidSignature
	}

	// Consumed only after a valid signature so a bad attempt cannot burn it.
	remaining := issuedAt.Add(a.challenges.TTL()).Sub(a.now())
	if remaining < time.Second {
		remaining = time.Second
	}
	fresh, err := a.nonces.MarkNonceUsed(ctx, nonce, remaining)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("auth: mark nonce: %w", err)
	}
	if !fresh {
		return solana.PublicKey{}, ErrNonceUsed
	}

	return pub, nil
}

// Claims represents JWT claims.
type Claims struct {
	Wallet    string `json:"wallet"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// GenerateToken generates a session token for a wallet.
func (a *Auth) GenerateToken(wallet string) (token string, sessionID string, expiresAt time.Time, err error) {
	now := a.now()
	expiresAt = now.Add(a.config.TokenExpiry)
	sessionID = uuid.NewString()

	claims := Claims{
		Wallet:    wallet,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   wallet,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "solstream",
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.config.TokenKey)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, sessionID, expiresAt, nil
}

// ValidateToken validates a session token and returns its claims.
func (a *Auth) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.config.TokenKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Wallet == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := a.revoked.IsSessionRevoked(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("auth: check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// RevokeToken invalidates the session the claims belong to.
func (a *Auth) RevokeToken(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	ttl := claims.ExpiresAt.Time.Sub(a.now())
	if ttl <= 0 {
		return nil
	}
	return a.revoked.RevokeSession(ctx, claims.SessionID, ttl)
}
