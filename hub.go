package main

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/scalecode-solutions/solstream/redis"
)

// Hub maintains active sessions and the chat room of every stream.
type Hub struct {
	// Sessions indexed by session ID
	sessions map[string]*Session
	// Room members: stream ID -> session ID -> session
	rooms map[string]map[string]SessionInterface
	// Rooms a session is in: session ID -> stream IDs
	joined map[string]map[string]struct{}

	mu sync.RWMutex

	// Channels for session management
	register   chan *Session
	unregister chan *Session
	shutdown   chan struct{}

	// Viewer counts (set after initialization)
	presence *PresenceManager

	// Redis client for pub/sub (optional, nil if not enabled)
	redis *redis.Client
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]*Session),
		rooms:      make(map[string]map[string]SessionInterface),
		joined:     make(map[string]map[string]struct{}),
		register:   make(chan *Session, 256),
		unregister: make(chan *Session, 256),
		shutdown:   make(chan struct{}),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case sess := <-h.register:
			h.addSession(sess)

		case sess := <-h.unregister:
			h.removeSession(sess)

		case <-h.shutdown:
			h.closeAllSessions()
			return
		}
	}
}

// Shutdown gracefully shuts down the hub.
func (h *Hub) Shutdown() {
	close(h.shutdown)
}

// SetPresence sets the presence manager.
func (h *Hub) SetPresence(p *PresenceManager) {
	h.presence = p
}

// SetRedis sets the Redis client for pub/sub.
func (h *Hub) SetRedis(r *redis.Client) {
	h.redis = r
}

// HandlePubSubMessage delivers a room message published by another node.
func (h *Hub) HandlePubSubMessage(msg *redis.Message) {
	streamID, ok := strings.CutPrefix(msg.Channel, redis.StreamChannel(""))
	if !ok || streamID == "" {
		log.Printf("hub: pub/sub message on unexpected channel %q", msg.Channel)
		return
	}

	var sm ServerMessage
	if err := json.Unmarshal(msg.Payload, &sm); err != nil {
		log.Printf("hub: failed to unmarshal pub/sub message: %v", err)
		return
	}

	h.deliver(streamID, &sm)
}

// Register adds a session to the hub.
// Non-blocking: if buffer is full, spawns goroutine to retry.
func (h *Hub) Register(sess *Session) {
	select {
	case h.register <- sess:
	default:
		go func() { h.register <- sess }()
	}
}

// Unregister removes a session from the hub.
// Non-blocking: if buffer is full, spawns goroutine to retry.
func (h *Hub) Unregister(sess *Session) {
	select {
	case h.unregister <- sess:
	default:
		go func() { h.unregister <- sess }()
	}
}

func (h *Hub) addSession(sess *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[sess.id] = sess
}

func (h *Hub) removeSession(sess *Session) {
	h.mu.Lock()
	delete(h.sessions, sess.id)
	left := h.leaveAllLocked(sess.id)
	h.mu.Unlock()

	if h.presence != nil {
		for _, streamID := range left {
			go h.presence.ViewerLeft(streamID)
		}
	}
}

// leaveAllLocked drops a session from every room and returns the rooms it was in.
func (h *Hub) leaveAllLocked(sessID string) []string {
	rooms := h.joined[sessID]
	delete(h.joined, sessID)

	left := make([]string, 0, len(rooms))
	for streamID := range rooms {
		members := h.rooms[streamID]
		delete(members, sessID)
		if len(members) == 0 {
			delete(h.rooms, streamID)
		}
		left = append(left, streamID)
	}
	return left
}

func (h *Hub) closeAllSessions() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sess := range h.sessions {
		sess.Close()
	}
	h.sessions = make(map[string]*Session)
	h.rooms = make(map[string]map[string]SessionInterface)
	h.joined = make(map[string]map[string]struct{})
}

// JoinRoom adds a session to a stream's room. It reports false if the
// session was already there.
func (h *Hub) JoinRoom(sess SessionInterface, streamID string) bool {
	h.mu.Lock()
	members := h.rooms[streamID]
	if members == nil {
		members = make(map[string]SessionInterface)
		h.rooms[streamID] = members
	}
	if _, ok := members[sess.ID()]; ok {
		h.mu.Unlock()
		return false
	}
	members[sess.ID()] = sess

	rooms := h.joined[sess.ID()]
	if rooms == nil {
		rooms = make(map[string]struct{})
		h.joined[sess.ID()] = rooms
	}
	rooms[streamID] = struct{}{}
	h.mu.Unlock()

	if h.presence != nil {
		h.presence.ViewerJoined(streamID)
	}
	return true
}

// LeaveRoom removes a session from a stream's room. It reports false if
// the session was not there.
func (h *Hub) LeaveRoom(sess SessionInterface, streamID string) bool {
	h.mu.Lock()
	members := h.rooms[streamID]
	if _, ok := members[sess.ID()]; !ok {
		h.mu.Unlock()
		return false
	}
	delete(members, sess.ID())
	if len(members) == 0 {
		delete(h.rooms, streamID)
	}
	delete(h.joined[sess.ID()], streamID)
	if len(h.joined[sess.ID()]) == 0 {
		delete(h.joined, sess.ID())
	}
	h.mu.Unlock()

	if h.presence != nil {
		h.presence.ViewerLeft(streamID)
	}
	return true
}

// InRoom reports whether a session has joined a stream's room.
func (h *Hub) InRoom(sessID, streamID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[streamID][sessID]
	return ok
}

// RoomSize returns the number of sessions in a stream's room on this node.
func (h *Hub) RoomSize(streamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[streamID])
}

// SessionCount returns the total number of active sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast sends a message to everyone in a stream's room, on this node
// and, with Redis enabled, on every other node.
func (h *Hub) Broadcast(streamID string, msg *ServerMessage) {
	h.deliver(streamID, msg)

	if h.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.redis.Publish(ctx, redis.StreamChannel(streamID), messageType(msg), msg); err != nil {
		log.Printf("hub: failed to publish to stream %s: %v", shortSID(streamID), err)
	}
}

func (h *Hub) deliver(streamID string, msg *ServerMessage) {
	h.mu.RLock()
	members := make([]SessionInterface, 0, len(h.rooms[streamID]))
	for _, sess := range h.rooms[streamID] {
		members = append(members, sess)
	}
	h.mu.RUnlock()

	for _, sess := range members {
		sess.Send(msg)
	}
}

func messageType(msg *ServerMessage) string {
	switch {
	case msg.Data != nil:
		return "data"
	case msg.Info != nil:
		return "info"
	case msg.Pres != nil:
		return "pres"
	default:
		return "ctrl"
	}
}
