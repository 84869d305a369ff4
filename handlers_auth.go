package main

import (
	"errors"
	"net/http"

	"github.com/scalecode-solutions/solstream/auth"
)

// handleChallenge issues a sign-in challenge for a wallet.
func (h *Handlers) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet string `json:"wallet"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	ch, err := h.auth.IssueChallenge(req.Wallet)
	if errors.Is(err, auth.ErrInvalidWallet) {
		writeError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}
	if err != nil {
		h.logger.Error("failed to issue challenge", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, ch)
}

// handleWalletAuth verifies a signed challenge and opens a session.
func (h *Handlers) handleWalletAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet    string `json:"wallet"`
		Nonce     string `json:"nonce"`
		Signature string `json:"signature"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Wallet == "" || req.Nonce == "" || req.Signature == "" {
		writeError(w, http.StatusBadRequest, "wallet, nonce and signature are required")
		return
	}

	pub, err := h.auth.VerifySignature(r.Context(), req.Wallet, req.Nonce, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidWallet):
			writeError(w, http.StatusBadRequest, "invalid wallet address")
		case errors.Is(err, auth.ErrInvalidSignature),
			errors.Is(err, auth.ErrInvalidChallenge),
			errors.Is(err, auth.ErrChallengeExpired),
			errors.Is(err, auth.ErrNonceUsed):
			h.logger.Info("wallet authentication rejected", "wallet", shortAddr(req.Wallet), "reason", err)
			writeError(w, http.StatusUnauthorized, err.Error())
		default:
			h.logger.Error("wallet authentication failed", "wallet", shortAddr(req.Wallet), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	wallet := pub.String()
	if err := h.db.UpsertWallet(r.Context(), wallet, r.UserAgent()); err != nil {
		h.logger.Error("failed to record wallet", "wallet", shortAddr(wallet), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, sessionID, expiresAt, err := h.auth.GenerateToken(wallet)
	if err != nil {
		h.logger.Error("failed to generate token", "wallet", shortAddr(wallet), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("wallet authenticated", "wallet", shortAddr(wallet), "sid", shortSID(sessionID))
	writeJSON(w, http.StatusOK, map[string]any{
		"token":         token,
		"walletAddress": wallet,
		"expiresAt":     expiresAt,
	})
}

// handleLogout revokes the caller's session token.
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if err := h.auth.RevokeToken(r.Context(), claims); err != nil {
		h.logger.Error("failed to revoke session", "wallet", shortAddr(claims.Wallet), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSession describes the caller's session.
func (h *Handlers) handleSession(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	writeJSON(w, http.StatusOK, map[string]any{
		"walletAddress": claims.Wallet,
		"sessionId":     claims.SessionID,
		"expiresAt":     claims.ExpiresAt.Time,
	})
}
