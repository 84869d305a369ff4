package main

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Chat frames are small; anything bigger is abuse.
	maxMessageSize = 8 * 1024
	// Send buffer size
	sendBufferSize = 128
)

// Session is one WebSocket connection. Viewers may stay anonymous; a login
// with a wallet session token is needed only to chat.
type Session struct {
	id         string
	hub        *Hub
	conn       *websocket.Conn
	send       chan *ServerMessage
	handlers   *Handlers
	remoteAddr string

	// Protected by mu - accessed from multiple goroutines
	mu        sync.RWMutex
	wallet    string
	userAgent string
	ver       string

	// Closing state
	closing int32
	once    sync.Once
}

// NewSession creates a new session.
func NewSession(hub *Hub, conn *websocket.Conn, remoteAddr, userAgent string, handlers *Handlers) *Session {
	return &Session{
		id:         uuid.New().String(),
		hub:        hub,
		conn:       conn,
		send:       make(chan *ServerMessage, sendBufferSize),
		handlers:   handlers,
		remoteAddr: remoteAddr,
		userAgent:  userAgent,
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Wallet returns the authenticated wallet address, or "".
func (s *Session) Wallet() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet
}

// SetWallet binds the session to a wallet after a successful login.
func (s *Session) SetWallet(wallet string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = wallet
}

// IsAuthenticated returns true if the session is authenticated.
func (s *Session) IsAuthenticated() bool {
	return s.Wallet() != ""
}

// RequireAuth replies 401 and returns false for anonymous sessions.
func (s *Session) RequireAuth(msgID string) bool {
	if !s.IsAuthenticated() {
		s.Send(CtrlError(msgID, CodeUnauthorized, "authentication required"))
		return false
	}
	return true
}

// UserAgent returns the session's user agent.
func (s *Session) UserAgent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userAgent
}

// Send queues a message to be sent to the client.
// Safe to call from multiple goroutines.
func (s *Session) Send(msg *ServerMessage) {
	// Close may close the channel between the check and the send.
	defer func() {
		_ = recover()
	}()

	if atomic.LoadInt32(&s.closing) == 1 {
		return
	}
	select {
	case s.send <- msg:
	default:
		// Slow consumer
		go s.Close()
	}
}

// Close closes the session.
// Safe to call multiple times - only first call takes effect.
func (s *Session) Close() {
	s.once.Do(func() {
		atomic.StoreInt32(&s.closing, 1)
		close(s.send)
		s.conn.Close()
	})
}

// Run starts the session's read and write pumps.
func (s *Session) Run() {
	go s.writePump()
	s.readPump()
}

// readPump pumps messages from the WebSocket connection to the handlers.
func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		s.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket closed unexpectedly", "sid", shortSID(s.id), "error", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.Send(CtrlError("", CodeBadRequest, "malformed message"))
			continue
		}

		s.dispatch(&msg)
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes a client message to the appropriate handler.
func (s *Session) dispatch(msg *ClientMessage) {
	switch {
	case msg.Hi != nil:
		s.handleHi(msg)
	case msg.Login != nil:
		s.handlers.HandleLogin(s, msg)
	case msg.Join != nil:
		s.handlers.HandleJoin(s, msg)
	case msg.Leave != nil:
		s.handlers.HandleLeave(s, msg)
	case msg.Send != nil:
		s.handlers.HandleSend(s, msg)
	case msg.Get != nil:
		s.handlers.HandleGet(s, msg)
	default:
		s.Send(CtrlError(msg.ID, CodeBadRequest, "unknown message type"))
	}
}

func (s *Session) handleHi(msg *ClientMessage) {
	hi := msg.Hi

	s.mu.Lock()
	s.ver = hi.Version
	if hi.UserAgent != "" {
		s.userAgent = hi.UserAgent
	}
	s.mu.Unlock()

	s.Send(CtrlSuccess(msg.ID, CodeOK, map[string]any{
		"ver":   currentVersion,
		"build": buildstamp,
		"sid":   s.id,
	}))
}
