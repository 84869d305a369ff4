package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPAuthenticator(t *testing.T) {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	var logoutAuth string

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v0/auth/challenge", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"wallet":    req["wallet"],
			"nonce":     "nonce-1",
			"message":   "sign me",
			"expiresAt": expires,
		})
	})
	mux.HandleFunc("POST /v0/auth/wallet", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["nonce"] != "nonce-1" || req["signature"] != "sig" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid signature"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":         "jwt",
			"walletAddress": req["wallet"],
			"expiresAt":     expires,
		})
	})
	mux.HandleFunc("POST /v0/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		logoutAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := NewHTTPAuthenticator(srv.URL+"/", nil)
	ctx := context.Background()

	ch, err := a.Challenge(ctx, "addr")
	if err != nil {
		t.Fatalf("Challenge failed: %v", err)
	}
	if ch.Nonce != "nonce-1" || ch.Message != "sign me" || !ch.ExpiresAt.Equal(expires) {
		t.Errorf("unexpected challenge %+v", ch)
	}

	s, err := a.Verify(ctx, "addr", "nonce-1", "sig")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if s.AccessToken != "jwt" || s.WalletAddress != "addr" || !s.ExpiresAt.Equal(expires) {
		t.Errorf("unexpected session %+v", s)
	}

	if _, err := a.Verify(ctx, "addr", "nonce-1", "bad"); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}

	if err := a.Logout(ctx, "jwt"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if logoutAuth != "Bearer jwt" {
		t.Errorf("expected bearer header, got %q", logoutAuth)
	}
}

func TestHTTPAuthenticator_BackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
		{"empty challenge", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPAuthenticator(srv.URL, nil).Challenge(context.Background(), "addr")
			if !errors.Is(err, ErrBackend) {
				t.Errorf("expected ErrBackend, got %v", err)
			}
		})
	}
}

func TestHTTPAuthenticator_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewHTTPAuthenticator(url, nil).Challenge(context.Background(), "addr"); !errors.Is(err, ErrBackend) {
		t.Errorf("expected ErrBackend, got %v", err)
	}
}
