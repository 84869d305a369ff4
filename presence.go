package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/scalecode-solutions/solstream/redis"
)

// PresenceManager keeps stream viewer counts and announces them to rooms.
// With Redis the count spans every node; without it, only this one.
type PresenceManager struct {
	hub    *Hub
	redis  *redis.Client
	logger *slog.Logger
}

// NewPresenceManager creates a new presence manager. r may be nil.
func NewPresenceManager(hub *Hub, r *redis.Client) *PresenceManager {
	return &PresenceManager{
		hub:    hub,
		redis:  r,
		logger: slog.Default().With("component", "presence"),
	}
}

// ViewerJoined is called after a session joins a stream's room.
func (p *PresenceManager) ViewerJoined(streamID string) {
	count := int64(p.hub.RoomSize(streamID))
	if p.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := p.redis.AddViewer(ctx, streamID)
		if err != nil {
			p.logger.Warn("failed to count viewer", "stream", shortSID(streamID), "error", err)
		} else {
			count = n
		}
	}
	p.announce(streamID, count)
}

// ViewerLeft is called after a session leaves a stream's room or disconnects.
func (p *PresenceManager) ViewerLeft(streamID string) {
	count := int64(p.hub.RoomSize(streamID))
	if p.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := p.redis.RemoveViewer(ctx, streamID)
		if err != nil {
			p.logger.Warn("failed to uncount viewer", "stream", shortSID(streamID), "error", err)
		} else {
			count = n
		}
	}
	p.announce(streamID, count)
}

// Viewers returns the current viewer count of a stream.
func (p *PresenceManager) Viewers(ctx context.Context, streamID string) int64 {
	if p.redis != nil {
		n, err := p.redis.ViewerCount(ctx, streamID)
		if err == nil {
			return n
		}
		p.logger.Warn("failed to read viewer count", "stream", shortSID(streamID), "error", err)
	}
	return int64(p.hub.RoomSize(streamID))
}

func (p *PresenceManager) announce(streamID string, count int64) {
	p.hub.Broadcast(streamID, &ServerMessage{
		Pres: &MsgServerPres{
			Stream:  streamID,
			Viewers: count,
		},
	})
}
