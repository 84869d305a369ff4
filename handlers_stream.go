package main

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/scalecode-solutions/solstream/auth"
	"github.com/scalecode-solutions/solstream/balance"
	"github.com/scalecode-solutions/solstream/media"
	"github.com/scalecode-solutions/solstream/moderation"
	"github.com/scalecode-solutions/solstream/store"
	"github.com/scalecode-solutions/solstream/textutil"
	"github.com/scalecode-solutions/solstream/video"
)

var (
	streamCategories = []string{"crypto", "nfts", "gaming", "defi", "dev", "trading", "education"}
	donationPresets  = []float64{0.5, 1, 2, 5, 10}
)

const (
	fallbackStreamTitle = "Fallback Test Stream"
	thumbnailPrefix     = "/thumbnails/"
	maxListSize         = 100
	multipartOverhead   = 64 << 10
)

// streamView is a stream record as the API returns it.
type streamView struct {
	*store.Stream
	PlaybackID string `json:"playbackId"`
	// Only for the owner
	StreamKey string `json:"streamKey,omitempty"`
}

func (h *Handlers) view(s *store.Stream, owner string) (*streamView, error) {
	v := &streamView{
		Stream:     s,
		PlaybackID: video.ExtractPlaybackID(s.PlaybackURL),
	}
	if owner != "" && owner == s.Wallet && len(s.StreamKey) > 0 {
		key, err := h.encryptor.Decrypt(s.StreamKey)
		if err != nil {
			return nil, err
		}
		v.StreamKey = string(key)
	}
	return v, nil
}

// optionalWallet returns the caller's wallet if a valid token was sent.
func (h *Handlers) optionalWallet(r *http.Request) string {
	claims, err := h.authenticateRequest(r)
	if err != nil {
		return ""
	}
	return claims.Wallet
}

// handleCreateStream registers a stream with the video API and stores it.
func (h *Handlers) handleCreateStream(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	title, err := textutil.Clean(req.Title, 5, 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, "title must be between 5 and 100 characters")
		return
	}
	description, err := textutil.Clean(req.Description, 10, 500)
	if err != nil {
		writeError(w, http.StatusBadRequest, "description must be between 10 and 500 characters")
		return
	}
	if !slices.Contains(streamCategories, req.Category) {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	vs, err := h.video.CreateStream(r.Context(), title, true)
	if err != nil {
		h.logger.Error("video api create stream failed", "wallet", shortAddr(claims.Wallet), "error", err)
		writeError(w, http.StatusBadGateway, "failed to create stream")
		return
	}

	key, err := h.encryptor.Encrypt([]byte(vs.StreamKey))
	if err != nil {
		h.logger.Error("failed to encrypt stream key", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	rec := &store.Stream{
		Wallet:      claims.Wallet,
		Title:       title,
		Description: description,
		Category:    req.Category,
		VideoID:     vs.ID,
		PlaybackURL: h.video.PlaybackURL(vs.PlaybackID),
		StreamKey:   key,
	}
	if err := h.db.CreateStream(r.Context(), rec); err != nil {
		h.logger.Error("failed to store stream", "wallet", shortAddr(claims.Wallet), "video_id", vs.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save stream")
		return
	}

	h.logger.Info("stream created", "stream", shortID(rec.ID), "wallet", shortAddr(claims.Wallet), "category", rec.Category)
	writeJSON(w, http.StatusCreated, &streamView{
		Stream:     rec,
		PlaybackID: vs.PlaybackID,
		StreamKey:  vs.StreamKey,
	})
}

// handleListStreams lists streams, live ones first, optionally filtered to
// live streams or to one wallet.
func (h *Handlers) handleListStreams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		streams []store.Stream
		err     error
	)
	if wallet := q.Get("wallet"); wallet != "" {
		if _, perr := auth.ParseWallet(wallet); perr != nil {
			writeError(w, http.StatusBadRequest, "invalid wallet address")
			return
		}
		streams, err = h.db.ListStreamsByWallet(r.Context(), wallet)
	} else {
		limit := defaultListSize
		if l, perr := strconv.Atoi(q.Get("limit")); perr == nil && l > 0 {
			limit = min(l, maxListSize)
		}
		streams, err = h.db.ListStreams(r.Context(), q.Get("live") == "true", limit)
	}
	if err != nil {
		h.logger.Error("failed to list streams", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	caller := h.optionalWallet(r)
	views := make([]*streamView, 0, len(streams))
	for i := range streams {
		v, err := h.view(&streams[i], caller)
		if err != nil {
			h.logger.Error("failed to decrypt stream key", "stream", shortID(streams[i].ID), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"streams": views})
}

// handleGetStream returns one stream. Unknown ids get a placeholder that
// points at the fallback playback id, so the viewer page always plays.
func (h *Handlers) handleGetStream(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")

	var rec *store.Stream
	if id, ok := parseUUID(raw); ok {
		var err error
		rec, err = h.db.GetStreamByID(r.Context(), id)
		if err != nil {
			h.logger.Error("failed to load stream", "stream", shortID(id), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	if rec == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":          raw,
			"title":       fallbackStreamTitle,
			"playbackId":  video.FallbackPlaybackID,
			"playbackUrl": h.video.PlaybackURL(video.FallbackPlaybackID),
			"fallback":    true,
		})
		return
	}

	v, err := h.view(rec, h.optionalWallet(r))
	if err != nil {
		h.logger.Error("failed to decrypt stream key", "stream", shortID(rec.ID), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handlePlayback proxies the video API's playback info for a stream.
func (h *Handlers) handlePlayback(w http.ResponseWriter, r *http.Request) {
	playbackID := video.FallbackPlaybackID
	if id, ok := parseUUID(r.PathValue("id")); ok {
		rec, err := h.db.GetStreamByID(r.Context(), id)
		if err != nil {
			h.logger.Error("failed to load stream", "stream", shortID(id), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if rec != nil {
			if rec.Terminated {
				writeError(w, http.StatusGone, "stream terminated")
				return
			}
			playbackID = video.ExtractPlaybackID(rec.PlaybackURL)
		}
	}

	info, err := h.video.PlaybackInfo(r.Context(), playbackID)
	switch {
	case errors.Is(err, video.ErrPlaybackFailed):
		writeError(w, http.StatusNotFound, "playback failed")
		return
	case err != nil:
		h.logger.Error("video api playback lookup failed", "playback_id", playbackID, "error", err)
		writeError(w, http.StatusBadGateway, "video backend unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"playbackId": playbackID,
		"live":       info.IsLive(),
		"sources":    info.Meta.Source,
	})
}

// ownedStream loads a stream and checks the caller owns it.
func (h *Handlers) ownedStream(w http.ResponseWriter, r *http.Request, claims *auth.Claims) (*store.Stream, bool) {
	id, ok := parseUUID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid stream id")
		return nil, false
	}
	rec, err := h.db.GetStreamByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load stream", "stream", shortID(id), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "stream not found")
		return nil, false
	}
	if rec.Wallet != claims.Wallet {
		writeError(w, http.StatusForbidden, "not the stream owner")
		return nil, false
	}
	return rec, true
}

// handleSetLive marks a stream live or offline and drives moderation.
func (h *Handlers) handleSetLive(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	rec, ok := h.ownedStream(w, r, claims)
	if !ok {
		return
	}
	var req struct {
		Live bool `json:"live"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.db.SetStreamLive(r.Context(), rec.ID, req.Live)
	switch {
	case errors.Is(err, store.ErrStreamNotFound):
		// SetStreamLive refuses to revive terminated streams
		writeError(w, http.StatusGone, "stream terminated")
		return
	case err != nil:
		h.logger.Error("failed to update stream", "stream", shortID(rec.ID), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	streamID := rec.ID.String()
	if h.moderation != nil {
		h.moderation.SetLive(streamID, req.Live)
	}

	what := "offline"
	if req.Live {
		what = "live"
	}
	h.hub.Broadcast(streamID, &ServerMessage{
		Info: &MsgServerInfo{Stream: streamID, What: what, Ts: time.Now().UTC()},
	})

	h.logger.Info("stream status changed", "stream", shortID(rec.ID), "live", req.Live)
	writeJSON(w, http.StatusOK, map[string]any{"id": streamID, "isLive": req.Live})
}

// handleThumbnail stores a cover image for a stream.
func (h *Handlers) handleThumbnail(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	rec, ok := h.ownedStream(w, r, claims)
	if !ok {
		return
	}
	if h.thumbs == nil {
		writeError(w, http.StatusServiceUnavailable, "thumbnails disabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Media.MaxSize+multipartOverhead)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	rel, err := h.thumbs.Save(rec.ID, file)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	case errors.Is(err, media.ErrUnsupported):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported image format")
		return
	case err != nil:
		h.logger.Error("failed to save thumbnail", "stream", shortID(rec.ID), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save thumbnail")
		return
	}

	path := thumbnailPrefix + strings.TrimPrefix(rel, "/")
	if err := h.db.SetStreamThumbnail(r.Context(), rec.ID, path); err != nil {
		h.logger.Error("failed to store thumbnail path", "stream", shortID(rec.ID), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"thumbnail": path})
}

// handleBalance reports a wallet's SOL balance. RPC failures yield a null
// balance rather than an error status.
func (h *Handlers) handleBalance(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	if _, err := auth.ParseWallet(wallet); err != nil {
		writeError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	resp := map[string]any{
		"wallet":   wallet,
		"lamports": nil,
		"sol":      nil,
		"display":  "",
	}
	if h.balances == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	lamports, err := h.balances.Balance(r.Context(), wallet)
	if err != nil {
		h.logger.Warn("balance lookup failed", "wallet", shortAddr(wallet), "error", err)
		writeJSON(w, http.StatusOK, resp)
		return
	}
	sol := balance.LamportsToSOL(lamports)
	resp["lamports"] = lamports
	resp["sol"] = sol
	resp["display"] = balance.FormatSOL(sol)
	writeJSON(w, http.StatusOK, resp)
}

// handlePublicConfig exposes the settings clients need to render forms.
func (h *Handlers) handlePublicConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":         streamCategories,
		"donationPresets":    donationPresets,
		"maxChatLength":      h.cfg.Limits.MaxChatLength,
		"maxDonationMessage": h.cfg.Limits.MaxDonationMessage,
		"fallbackPlaybackId": video.FallbackPlaybackID,
	})
}

// OnStreamTerminated persists a moderation takedown and tells the room.
func (h *Handlers) OnStreamTerminated(streamID string, violation moderation.Violation, score float64) {
	id, ok := parseUUID(streamID)
	if !ok {
		return
	}
	ctx, cancel := handlerCtx()
	defer cancel()

	if err := h.db.TerminateStream(ctx, id, string(violation)); err != nil {
		h.logger.Error("failed to terminate stream", "stream", shortID(id), "violation", violation, "error", err)
	}
	h.logger.Warn("stream terminated by moderation", "stream", shortID(id), "violation", violation, "score", score)

	h.hub.Broadcast(streamID, &ServerMessage{
		Info: &MsgServerInfo{
			Stream:    streamID,
			What:      "terminated",
			Violation: string(violation),
			Ts:        time.Now().UTC(),
		},
	})
}

// ResumeModeration starts monitoring streams already live at startup.
func (h *Handlers) ResumeModeration(ctx context.Context) error {
	if h.moderation == nil {
		return nil
	}
	ids, err := h.db.ListLiveStreamIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		h.moderation.SetLive(id.String(), true)
	}
	return nil
}
