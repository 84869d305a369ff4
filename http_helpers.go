package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/scalecode-solutions/solstream/auth"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 64 << 10

var errNoToken = errors.New("no auth token")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body into v, replying 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// bearerToken extracts the session token from the Authorization header,
// falling back to the token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// authenticateRequest validates the request's session token.
func (h *Handlers) authenticateRequest(r *http.Request) (*auth.Claims, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, errNoToken
	}
	return h.auth.ValidateToken(r.Context(), token)
}

// requireAuth wraps a handler that needs an authenticated wallet.
func (h *Handlers) requireAuth(next func(http.ResponseWriter, *http.Request, *auth.Claims)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.authenticateRequest(r)
		switch {
		case err == nil:
			next(w, r, claims)
		case errors.Is(err, errNoToken), errors.Is(err, auth.ErrInvalidToken),
			errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrTokenRevoked):
			writeError(w, http.StatusUnauthorized, "unauthorized")
		default:
			h.logger.Error("token validation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

// clientIP returns the caller's address, honouring X-Forwarded-For when
// the server sits behind a trusted proxy.
func clientIP(r *http.Request, useXForwardedFor bool) string {
	if useXForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
