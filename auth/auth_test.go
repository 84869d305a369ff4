package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
)

func testConfig() Config {
	return Config{
		TokenKey:     []byte("test-secret-key-32-bytes-long!!!"),
		TokenExpiry:  time.Hour,
		ChallengeTTL: 5 * time.Minute,
	}
}

func newTestAuth(t *testing.T, cfg Config) *Auth {
	t.Helper()
	a, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func newTestWallet(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey failed: %v", err)
	}
	return key
}

func signChallenge(t *testing.T, key solana.PrivateKey, c *Challenge) string {
	t.Helper()
	sig, err := key.Sign([]byte(c.Message))
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	return base64.StdEncoding.EncodeToString(sig[:])
}

func TestNew_DefaultValues(t *testing.T) {
	a := newTestAuth(t, Config{TokenKey: []byte("k")})

	if a.config.TokenExpiry != 14*24*time.Hour {
		t.Errorf("expected default TokenExpiry 2 weeks, got %v", a.config.TokenExpiry)
	}
	if a.config.ChallengeTTL != 5*time.Minute {
		t.Errorf("expected default ChallengeTTL 5m, got %v", a.config.ChallengeTTL)
	}
	if a.config.AppName != "SolStream" {
		t.Errorf("expected default AppName SolStream, got %q", a.config.AppName)
	}
}

func TestNew_EmptyKey(t *testing.T) {
	if _, err := New(Config{}, nil, nil); err == nil {
		t.Error("expected error for empty token key")
	}
}

func TestIssueChallenge(t *testing.T) {
	a := newTestAuth(t, testConfig())
	wallet := newTestWallet(t).PublicKey().String()

	c, err := a.IssueChallenge(wallet)
	if err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}

	if c.Wallet != wallet {
		t.Errorf("wallet = %q, want %q", c.Wallet, wallet)
	}
	want := "Sign this message to authenticate with SolStream\n\nWallet: " + wallet + "\nNonce: " + c.Nonce + "\nIssued: "
	if !strings.HasPrefix(c.Message, want) {
		t.Errorf("unexpected message %q", c.Message)
	}
	if got := c.ExpiresAt.Sub(c.IssuedAt); got != 5*time.Minute {
		t.Errorf("expiry window = %v, want 5m", got)
	}
}

func TestIssueChallenge_InvalidWallet(t *testing.T) {
	a := newTestAuth(t, testConfig())

	for _, wallet := range []string{"", "not-a-wallet", "0OIl"} {
		if _, err := a.IssueChallenge(wallet); !errors.Is(err, ErrInvalidWallet) {
			t.Errorf("IssueChallenge(%q) = %v, want ErrInvalidWallet", wallet, err)
		}
	}
}

func TestVerifySignature_Success(t *testing.T) {
	a := newTestAuth(t, testConfig())
	key := newTestWallet(t)
	wallet := key.PublicKey().String()

	c, _ := a.IssueChallenge(wallet)
	pub, err := a.VerifySignature(context.Background(), wallet, c.Nonce, signChallenge(t, key, c))
	if err != nil {
		t.Fatalf("VerifySignature failed: %v", err)
	}
	if !pub.Equals(key.PublicKey()) {
		t.Errorf("pub = %s, want %s", pub, key.PublicKey())
	}
}

func TestVerifySignature_Base58(t *testing.T) {
	a := newTestAuth(t, testConfig())
	key := newTestWallet(t)
	wallet := key.PublicKey().String()

	c, _ := a.IssueChallenge(wallet)
	sig, _ := key.Sign([]byte(c.Message))
	if _, err := a.VerifySignature(context.Background(), wallet, c.Nonce, sig.String()); err != nil {
		t.Fatalf("VerifySignature(base58) failed: %v", err)
	}
}

func TestVerifySignature_NonceSingleUse(t *testing.T) {
	a := newTestAuth(t, testConfig())
	key := newTestWallet(t)
	wallet := key.PublicKey().String()

	c, _ := a.IssueChallenge(wallet)
	sig := signChallenge(t, key, c)

	if _, err := a.VerifySignature(context.Background(), wallet, c.Nonce, sig); err != nil {
		t.Fatalf("first VerifySignature failed: %v", err)
	}
	if _, err := a.VerifySignature(context.Background(), wallet, c.Nonce, sig); err != ErrNonceUsed {
		t.Errorf("replayed VerifySignature = %v, want ErrNonceUsed", err)
	}
}

func TestVerifySignature_Failures(t *testing.T) {
	a := newTestAuth(t, testConfig())
	key := newTestWallet(t)
	other := newTestWallet(t)
	wallet := key.PublicKey().String()

	c, _ := a.IssueChallenge(wallet)
	otherSig, _ := other.Sign([]byte(c.Message))
	tamperedSig, _ := key.Sign([]byte(c.Message + "x"))

	testCases := []struct {
		name      string
		wallet    string
		nonce     string
		signature string
		wantErr   error
	}{
		{"bad wallet", "nope", c.Nonce, signChallenge(t, key, c), ErrInvalidWallet},
		{"bad nonce", wallet, "abc", signChallenge(t, key, c), ErrInvalidChallenge},
		{"nonce for other wallet", other.PublicKey().String(), c.Nonce, base64.StdEncoding.EncodeToString(otherSig[:]), ErrInvalidChallenge},
		{"undecodable signature", wallet, c.Nonce, "!!!", ErrInvalidSignature},
		{"short signature", wallet, c.Nonce, base64.StdEncoding.EncodeToString([]byte("short")), ErrInvalidSignature},
		{"wrong signer", wallet, c.Nonce, base64.StdEncoding.EncodeToString(otherSig[:]), ErrInvalidSignature},
		{"different message", wallet, c.Nonce, base64.StdEncoding.EncodeToString(tamperedSig[:]), ErrInvalidSignature},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.VerifySignature(context.Background(), tc.wallet, tc.nonce, tc.signature)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	// None of the failures above consumed the nonce.
	if _, err := a.VerifySignature(context.Background(), wallet, c.Nonce, signChallenge(t, key, c)); err != nil {
		t.Errorf("valid signature after failures: %v", err)
	}
}

func TestVerifySignature_Expired(t *testing.T) {
	a := newTestAuth(t, Config{TokenKey: []byte("k"), ChallengeTTL: time.Second})
	key := newTestWallet(t)
	wallet := key.PublicKey().String()

	c, _ := a.IssueChallenge(wallet)
	sig := signChallenge(t, key, c)

	time.Sleep(2100 * time.Millisecond)

	if _, err := a.VerifySignature(context.Background(), wallet, c.Nonce, sig); err != ErrChallengeExpired {
		t.Errorf("expected ErrChallengeExpired, got %v", err)
	}
}

func TestGenerateToken_Success(t *testing.T) {
	a := newTestAuth(t, testConfig())
	wallet := newTestWallet(t).PublicKey().String()

	token, sid, expiresAt, err := a.GenerateToken(wallet)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" || sid == "" {
		t.Error("token and session id should not be empty")
	}

	expectedExpiry := time.Now().Add(time.Hour)
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("expiresAt should be ~1 hour from now, got %v", expiresAt)
	}

	_, sid2, _, _ := a.GenerateToken(wallet)
	if sid == sid2 {
		t.Error("session ids should be unique per token")
	}
}

func TestValidateToken_Success(t *testing.T) {
	a := newTestAuth(t, testConfig())
	wallet := newTestWallet(t).PublicKey().String()

	token, sid, _, _ := a.GenerateToken(wallet)

	claims, err := a.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Wallet != wallet {
		t.Errorf("expected wallet %s, got %s", wallet, claims.Wallet)
	}
	if claims.SessionID != sid {
		t.Errorf("expected sid %s, got %s", sid, claims.SessionID)
	}
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	a := newTestAuth(t, Config{
		TokenKey:    []byte("test-key"),
		TokenExpiry: -time.Hour, // Already expired
	})

	token, _, _, _ := a.GenerateToken("wallet")

	if _, err := a.ValidateToken(context.Background(), token); err != ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateToken_InvalidToken(t *testing.T) {
	a := newTestAuth(t, testConfig())

	testCases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.valid.token"},
		{"malformed", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := a.ValidateToken(context.Background(), tc.token); err != ErrInvalidToken {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestValidateToken_WrongKey(t *testing.T) {
	a1 := newTestAuth(t, Config{TokenKey: []byte("key-one")})
	a2 := newTestAuth(t, Config{TokenKey: []byte("key-two")})

	token, _, _, _ := a1.GenerateToken("wallet")

	if _, err := a2.ValidateToken(context.Background(), token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for wrong key, got %v", err)
	}
}

func TestRevokeToken(t *testing.T) {
	a := newTestAuth(t, testConfig())
	ctx := context.Background()

	token, _, _, _ := a.GenerateToken("wallet")
	claims, err := a.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if err := a.RevokeToken(ctx, claims); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}
	if _, err := a.ValidateToken(ctx, token); err != ErrTokenRevoked {
		t.Errorf("expected ErrTokenRevoked, got %v", err)
	}

	// Other sessions of the same wallet stay valid.
	other, _, _, _ := a.GenerateToken("wallet")
	if _, err := a.ValidateToken(ctx, other); err != nil {
		t.Errorf("other session rejected: %v", err)
	}
}

type failingRevoker struct{}

func (failingRevoker) RevokeSession(context.Context, string, time.Duration) error {
	return errors.New("down")
}

func (failingRevoker) IsSessionRevoked(context.Context, string) (bool, error) {
	return false, errors.New("down")
}

func TestValidateToken_RevokerError(t *testing.T) {
	a, err := New(testConfig(), nil, failingRevoker{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	token, _, _, _ := a.GenerateToken("wallet")

	_, err = a.ValidateToken(context.Background(), token)
	if err == nil || errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected revocation backend error, got %v", err)
	}
}
