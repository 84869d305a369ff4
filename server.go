package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scalecode-solutions/solstream/config"
	"github.com/scalecode-solutions/solstream/middleware"
	"github.com/scalecode-solutions/solstream/ratelimit"
	"github.com/scalecode-solutions/solstream/store"
)

// Server handles HTTP and WebSocket connections.
type Server struct {
	hub      *Hub
	config   *config.Config
	handlers *Handlers
	db       store.Store
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer creates a new server.
func NewServer(hub *Hub, cfg *config.Config, handlers *Handlers, db store.Store) *Server {
	return &Server{
		hub:      hub,
		config:   cfg,
		handlers: handlers,
		db:       db,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     middleware.CheckOrigin(cfg.Server.AllowedOrigins),
		},
		logger: slog.Default().With("component", "server"),
	}
}

// Handler builds the routed handler wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	cors := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: s.config.Server.AllowedOrigins,
	})
	return middleware.Logging(slog.Default())(cors(mux))
}

// SetupRoutes configures HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	h := s.handlers
	challengeLimit := ratelimit.New(s.config.Limits.ChallengesPerMinute, time.Minute).
		Middleware(func(r *http.Request) string {
			return clientIP(r, s.config.Server.UseXForwardedFor)
		})

	mux.HandleFunc("/v0/ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v0/config/public", h.handlePublicConfig)

	mux.Handle("POST /v0/auth/challenge", challengeLimit(http.HandlerFunc(h.handleChallenge)))
	mux.HandleFunc("POST /v0/auth/wallet", h.handleWalletAuth)
	mux.HandleFunc("POST /v0/auth/logout", h.requireAuth(h.handleLogout))
	mux.HandleFunc("GET /v0/auth/session", h.requireAuth(h.handleSession))

	mux.HandleFunc("GET /v0/balance/{wallet}", h.handleBalance)

	mux.HandleFunc("POST /v0/streams", h.requireAuth(h.handleCreateStream))
	mux.HandleFunc("GET /v0/streams", h.handleListStreams)
	mux.HandleFunc("GET /v0/streams/{id}", h.handleGetStream)
	mux.HandleFunc("GET /v0/streams/{id}/playback", h.handlePlayback)
	mux.HandleFunc("POST /v0/streams/{id}/live", h.requireAuth(h.handleSetLive))
	mux.HandleFunc("POST /v0/streams/{id}/thumbnail", h.requireAuth(h.handleThumbnail))
	mux.HandleFunc("POST /v0/streams/{id}/donations", h.requireAuth(h.handleDonate))
	mux.HandleFunc("GET /v0/streams/{id}/supporters", h.handleSupporters)

	if h.thumbs != nil {
		mux.Handle("GET "+thumbnailPrefix, http.StripPrefix(thumbnailPrefix, http.FileServer(http.Dir(h.thumbs.Dir()))))
	}
}

// handleWebSocket upgrades HTTP to WebSocket and creates a session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := NewSession(s.hub, conn, clientIP(r, s.config.Server.UseXForwardedFor), r.UserAgent(), s.handlers)
	s.hub.Register(sess)

	// Run the session (blocks until session closes)
	sess.Run()
}

// handleHealth reports liveness and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("health check: database unreachable", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":   status,
		"sessions": s.hub.SessionCount(),
	})
}
