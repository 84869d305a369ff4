package main

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/scalecode-solutions/solstream/auth"
	"github.com/scalecode-solutions/solstream/store"
	"github.com/scalecode-solutions/solstream/textutil"
)

const (
	defaultSupporters = 3
	maxSupporters     = 20
)

// handleDonate records a donation the caller already sent on chain and
// announces it in the stream's chat.
func (h *Handlers) handleDonate(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	id, ok := parseUUID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid stream id")
		return
	}

	var req struct {
		Amount      float64 `json:"amount"`
		Message     string  `json:"message"`
		TxSignature string  `json:"txSignature"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Amount <= 0 || math.IsInf(req.Amount, 0) || math.IsNaN(req.Amount) {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	message, err := textutil.Clean(req.Message, 0, h.cfg.Limits.MaxDonationMessage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "message too long")
		return
	}
	if _, err := solana.SignatureFromBase58(req.TxSignature); err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction signature")
		return
	}

	rec, err := h.db.GetStreamByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load stream", "stream", shortID(id), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "stream not found")
		return
	}
	if rec.Terminated {
		writeError(w, http.StatusGone, "stream terminated")
		return
	}

	d := &store.Donation{
		StreamID:    id,
		Wallet:      claims.Wallet,
		Amount:      req.Amount,
		Message:     message,
		TxSignature: req.TxSignature,
	}
	err = h.db.CreateDonation(r.Context(), d)
	switch {
	case errors.Is(err, store.ErrDuplicateDonation):
		writeError(w, http.StatusConflict, "donation already recorded")
		return
	case err != nil:
		h.logger.Error("failed to record donation", "stream", shortID(id), "wallet", shortAddr(claims.Wallet), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(id.String(), &ServerMessage{
		Info: &MsgServerInfo{
			Stream:  id.String(),
			What:    "donation",
			From:    claims.Wallet,
			Amount:  d.Amount,
			Message: d.Message,
			Ts:      d.CreatedAt,
		},
	})

	h.logger.Info("donation recorded", "stream", shortID(id), "wallet", shortAddr(claims.Wallet), "amount", d.Amount)
	writeJSON(w, http.StatusCreated, d)
}

// handleSupporters lists a stream's top donors.
func (h *Handlers) handleSupporters(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid stream id")
		return
	}

	limit := defaultSupporters
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = min(l, maxSupporters)
	}

	supporters, err := h.db.GetTopSupporters(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("failed to load supporters", "stream", shortID(id), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if supporters == nil {
		supporters = []store.Supporter{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"supporters": supporters})
}
