package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scalecode-solutions/solstream/auth"
	"github.com/scalecode-solutions/solstream/balance"
	"github.com/scalecode-solutions/solstream/config"
	"github.com/scalecode-solutions/solstream/crypto"
	"github.com/scalecode-solutions/solstream/media"
	"github.com/scalecode-solutions/solstream/moderation"
	"github.com/scalecode-solutions/solstream/ratelimit"
	"github.com/scalecode-solutions/solstream/store"
	"github.com/scalecode-solutions/solstream/textutil"
	"github.com/scalecode-solutions/solstream/video"
)

const (
	handlerTimeout  = 10 * time.Second
	maxChatHistory  = 100
	defaultListSize = 50
)

// VideoService is the part of the video API the handlers use.
type VideoService interface {
	CreateStream(ctx context.Context, name string, record bool) (*video.Stream, error)
	PlaybackInfo(ctx context.Context, playbackID string) (*video.PlaybackInfo, error)
	PlaybackURL(playbackID string) string
}

var _ VideoService = (*video.Client)(nil)

// HandlerDeps are the collaborators of Handlers. Balances, Thumbs and
// Moderation may be nil.
type HandlerDeps struct {
	Store      store.Store
	Auth       *auth.Auth
	Hub        *Hub
	Presence   *PresenceManager
	Encryptor  *crypto.Encryptor
	Video      VideoService
	Balances   balance.Fetcher
	Thumbs     *media.Thumbnailer
	Moderation *moderation.Manager
	Config     *config.Config
}

// Handlers holds dependencies for WebSocket and HTTP request handlers.
type Handlers struct {
	db         store.Store
	auth       *auth.Auth
	hub        *Hub
	presence   *PresenceManager
	encryptor  *crypto.Encryptor
	video      VideoService
	balances   balance.Fetcher
	thumbs     *media.Thumbnailer
	moderation *moderation.Manager
	chatLimit  *ratelimit.Limiter
	cfg        *config.Config
	logger     *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(d HandlerDeps) *Handlers {
	return &Handlers{
		db:         d.Store,
		auth:       d.Auth,
		hub:        d.Hub,
		presence:   d.Presence,
		encryptor:  d.Encryptor,
		video:      d.Video,
		balances:   d.Balances,
		thumbs:     d.Thumbs,
		moderation: d.Moderation,
		chatLimit:  ratelimit.New(d.Config.Limits.ChatPerMinute, time.Minute),
		cfg:        d.Config,
		logger:     slog.Default().With("component", "handlers"),
	}
}

// handlerCtx bounds the backend work done for one request.
func handlerCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

// parseUUID parses a client-supplied id, reporting ok=false for garbage.
func parseUUID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// HandleLogin binds a wallet session token to the connection.
func (h *Handlers) HandleLogin(s SessionInterface, msg *ClientMessage) {
	login := msg.Login
	if login == nil || login.Token == "" {
		s.Send(CtrlError(msg.ID, CodeBadRequest, "missing token"))
		return
	}

	ctx, cancel := handlerCtx()
	defer cancel()

	claims, err := h.auth.ValidateToken(ctx, login.Token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		s.Send(CtrlError(msg.ID, CodeUnauthorized, "token expired"))
		return
	case errors.Is(err, auth.ErrTokenRevoked), errors.Is(err, auth.ErrInvalidToken):
		s.Send(CtrlError(msg.ID, CodeUnauthorized, "invalid token"))
		return
	case err != nil:
		h.logger.Error("token validation failed", "sid", shortSID(s.ID()), "error", err)
		s.Send(CtrlError(msg.ID, CodeInternalError, "internal error"))
		return
	}

	s.SetWallet(claims.Wallet)
	if err := h.db.UpsertWallet(ctx, claims.Wallet, s.UserAgent()); err != nil {
		h.logger.Warn("failed to record wallet login", "wallet", shortAddr(claims.Wallet), "error", err)
	}

	s.Send(CtrlSuccess(msg.ID, CodeOK, map[string]any{
		"wallet":  claims.Wallet,
		"expires": claims.ExpiresAt.Time,
	}))
}

// lookupStream resolves a room id to a stream, replying with an error
// ctrl message when it cannot be used.
func (h *Handlers) lookupStream(ctx context.Context, s SessionInterface, msgID, raw string) (*store.Stream, bool) {
	id, ok := parseUUID(raw)
	if !ok {
		s.Send(CtrlError(msgID, CodeBadRequest, "invalid stream id"))
		return nil, false
	}
	stream, err := h.db.GetStreamByID(ctx, id)
	if err != nil {
		h.logger.Error("stream lookup failed", "stream", shortID(id), "error", err)
		s.Send(CtrlError(msgID, CodeInternalError, "internal error"))
		return nil, false
	}
	if stream == nil {
		s.Send(CtrlError(msgID, CodeNotFound, "stream not found"))
		return nil, false
	}
	if stream.Terminated {
		s.Send(CtrlError(msgID, CodeGone, "stream terminated"))
		return nil, false
	}
	return stream, true
}

func (h *Handlers) viewers(ctx context.Context, streamID string) int64 {
	if h.presence != nil {
		return h.presence.Viewers(ctx, streamID)
	}
	return int64(h.hub.RoomSize(streamID))
}

// HandleJoin enters a stream's chat room.
func (h *Handlers) HandleJoin(s SessionInterface, msg *ClientMessage) {
	ctx, cancel := handlerCtx()
	defer cancel()

	stream, ok := h.lookupStream(ctx, s, msg.ID, msg.Join.Stream)
	if !ok {
		return
	}
	streamID := stream.ID.String()
	h.hub.JoinRoom(s, streamID)

	s.Send(CtrlSuccess(msg.ID, CodeOK, map[string]any{
		"stream":  streamID,
		"live":    stream.IsLive,
		"viewers": h.viewers(ctx, streamID),
	}))
}

// HandleLeave leaves a stream's chat room.
func (h *Handlers) HandleLeave(s SessionInterface, msg *ClientMessage) {
	id, ok := parseUUID(msg.Leave.Stream)
	if !ok {
		s.Send(CtrlError(msg.ID, CodeBadRequest, "invalid stream id"))
		return
	}
	if !h.hub.LeaveRoom(s, id.String()) {
		s.Send(CtrlError(msg.ID, CodeNotFound, "not in stream"))
		return
	}
	s.Send(CtrlSuccess(msg.ID, CodeOK, nil))
}

// HandleSend posts a chat line to every viewer of a stream.
func (h *Handlers) HandleSend(s SessionInterface, msg *ClientMessage) {
	if !s.RequireAuth(msg.ID) {
		return
	}
	send := msg.Send

	id, ok := parseUUID(send.Stream)
	if !ok {
		s.Send(CtrlError(msg.ID, CodeBadRequest, "invalid stream id"))
		return
	}
	if !h.hub.InRoom(s.ID(), id.String()) {
		s.Send(CtrlError(msg.ID, CodeForbidden, "join the stream first"))
		return
	}

	text, err := textutil.Clean(send.Text, 1, h.cfg.Limits.MaxChatLength)
	switch {
	case errors.Is(err, textutil.ErrEmpty), errors.Is(err, textutil.ErrTooShort):
		s.Send(CtrlError(msg.ID, CodeBadRequest, "empty message"))
		return
	case errors.Is(err, textutil.ErrTooLong):
		s.Send(CtrlError(msg.ID, CodeBadRequest, "message too long"))
		return
	}

	wallet := s.Wallet()
	if !h.chatLimit.Allow(wallet) {
		s.Send(CtrlError(msg.ID, CodeTooManyRequests, "slow down"))
		return
	}

	ctx, cancel := handlerCtx()
	defer cancel()

	if _, ok := h.lookupStream(ctx, s, msg.ID, send.Stream); !ok {
		return
	}

	line, err := h.db.CreateChatMessage(ctx, id, wallet, text)
	if err != nil {
		h.logger.Error("failed to store chat message", "stream", shortID(id), "wallet", shortAddr(wallet), "error", err)
		s.Send(CtrlError(msg.ID, CodeInternalError, "failed to send message"))
		return
	}

	h.hub.Broadcast(id.String(), &ServerMessage{
		Data: &MsgServerData{
			Stream: id.String(),
			ID:     line.ID.String(),
			From:   wallet,
			Text:   line.Content,
			Ts:     line.CreatedAt,
		},
	})

	s.Send(CtrlSuccess(msg.ID, CodeAccepted, map[string]any{
		"id": line.ID.String(),
		"ts": line.CreatedAt,
	}))
}

// HandleGet returns chat history or the viewer count of a stream.
func (h *Handlers) HandleGet(s SessionInterface, msg *ClientMessage) {
	get := msg.Get
	id, ok := parseUUID(get.Stream)
	if !ok {
		s.Send(CtrlError(msg.ID, CodeBadRequest, "invalid stream id"))
		return
	}

	ctx, cancel := handlerCtx()
	defer cancel()

	switch get.What {
	case "messages":
		limit := get.Limit
		if limit <= 0 {
			limit = h.cfg.Limits.ChatHistory
		}
		if limit > maxChatHistory {
			limit = maxChatHistory
		}
		lines, err := h.db.GetChatMessages(ctx, id, limit)
		if err != nil {
			h.logger.Error("failed to load chat history", "stream", shortID(id), "error", err)
			s.Send(CtrlError(msg.ID, CodeInternalError, "failed to load messages"))
			return
		}
		if lines == nil {
			lines = []store.ChatMessage{}
		}
		s.Send(CtrlSuccess(msg.ID, CodeOK, map[string]any{
			"stream":   id.String(),
			"messages": lines,
		}))

	case "viewers":
		s.Send(CtrlSuccess(msg.ID, CodeOK, map[string]any{
			"stream":  id.String(),
			"viewers": h.viewers(ctx, id.String()),
		}))

	default:
		s.Send(CtrlError(msg.ID, CodeBadRequest, "unknown get target"))
	}
}
