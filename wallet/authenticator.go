package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrBackend marks failures talking to the SolStream server.
var ErrBackend = errors.New("backend request failed")

// Challenge is a server-issued sign-in challenge. Message is signed verbatim.
type Challenge struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Authenticator is the backend half of wallet sign-in.
type Authenticator interface {
	Challenge(ctx context.Context, address string) (*Challenge, error)
	Verify(ctx context.Context, address, nonce, signature string) (*WalletSession, error)
	Logout(ctx context.Context, token string) error
}

// HTTPAuthenticator talks to the server's /v0/auth endpoints.
type HTTPAuthenticator struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAuthenticator creates an authenticator for the server at baseURL.
// A nil client uses a 15 second timeout.
func NewHTTPAuthenticator(baseURL string, client *http.Client) *HTTPAuthenticator {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPAuthenticator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (a *HTTPAuthenticator) Challenge(ctx context.Context, address string) (*Challenge, error) {
	var ch Challenge
	if err := a.post(ctx, "/v0/auth/challenge", "", map[string]string{"wallet": address}, &ch); err != nil {
		return nil, err
	}
	if ch.Nonce == "" || ch.Message == "" {
		return nil, fmt.Errorf("%w: incomplete challenge", ErrBackend)
	}
	return &ch, nil
}

func (a *HTTPAuthenticator) Verify(ctx context.Context, address, nonce, signature string) (*WalletSession, error) {
	var resp struct {
		Token         string    `json:"token"`
		WalletAddress string    `json:"walletAddress"`
		ExpiresAt     time.Time `json:"expiresAt"`
	}
	body := map[string]string{
		"wallet":    address,
		"nonce":     nonce,
		"signature": signature,
	}
	if err := a.post(ctx, "/v0/auth/wallet", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrBackend)
	}
	if resp.WalletAddress == "" {
		resp.WalletAddress = address
	}
	return &WalletSession{
		AccessToken:   resp.Token,
		WalletAddress: resp.WalletAddress,
		ExpiresAt:     resp.ExpiresAt,
	}, nil
}

func (a *HTTPAuthenticator) Logout(ctx context.Context, token string) error {
	return a.post(ctx, "/v0/auth/logout", token, nil, nil)
}

func (a *HTTPAuthenticator) post(ctx context.Context, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
			return fmt.Errorf("%w: %s", ErrAuthFailed, e.Error)
		}
		return fmt.Errorf("%w: status %d %s", ErrBackend, resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrBackend, err)
	}
	return nil
}
