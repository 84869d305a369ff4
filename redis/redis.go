// Package redis provides the shared state SolStream nodes coordinate through:
// consumed sign-in nonces, revoked sessions, viewer counts and chat fan-out.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis client with SolStream-specific operations.
type Client struct {
	rdb    *redis.Client
	nodeID string // Unique identifier for this server instance
	prefix string // Key prefix for namespacing
}

// Config holds Redis connection settings.
type Config struct {
	Addr     string // host:port
	Password string
	DB       int
	NodeID   string // Unique ID for this instance (hostname, UUID, etc.)
	Prefix   string // Key prefix (default: "solstream:")
}

// New creates a new Redis client.
func New(cfg Config) (*Client, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "solstream:"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:    rdb,
		nodeID: cfg.NodeID,
		prefix: cfg.Prefix,
	}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// NodeID returns this instance's node ID.
func (c *Client) NodeID() string {
	return c.nodeID
}

func (c *Client) key(k string) string {
	return c.prefix + k
}

// StreamChannel names the pub/sub channel for a stream's chat room.
func StreamChannel(streamID string) string {
	return "stream:" + streamID
}

// ============================================================================
// Auth state
// ============================================================================

// MarkNonceUsed records a sign-in nonce. It reports false if another node
// already consumed it.
func (c *Client) MarkNonceUsed(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, c.key("nonce:"+nonce), c.nodeID, ttl).Result()
}

// RevokeSession blacklists a session id until its token would have expired.
func (c *Client) RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key("revoked:"+sessionID), 1, ttl).Err()
}

// IsSessionRevoked checks the blacklist.
func (c *Client) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.key("revoked:"+sessionID)).Result()
	return n > 0, err
}

// ============================================================================
// Viewer counts
// ============================================================================

// AddViewer increments the cluster-wide viewer count for a stream.
func (c *Client) AddViewer(ctx context.Context, streamID string) (int64, error) {
	key := c.key("viewers:" + streamID)
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// Counters of nodes that died without decrementing eventually age out.
	c.rdb.Expire(ctx, key, 12*time.Hour)
	return n, nil
}

// RemoveViewer decrements the viewer count, never below zero.
func (c *Client) RemoveViewer(ctx context.Context, streamID string) (int64, error) {
	key := c.key("viewers:" + streamID)
	n, err := c.rdb.Decr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		c.rdb.Set(ctx, key, 0, 12*time.Hour)
		return 0, nil
	}
	return n, nil
}

// ViewerCount returns the cluster-wide viewer count for a stream.
func (c *Client) ViewerCount(ctx context.Context, streamID string) (int64, error) {
	n, err := c.rdb.Get(ctx, c.key("viewers:"+streamID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// ============================================================================
// Pub/Sub
// ============================================================================

// Message represents a pub/sub message.
type Message struct {
	Type     string          `json:"type"`    // "data", "info", "pres"
	Channel  string          `json:"channel"` // Unprefixed channel name
	FromNode string          `json:"from"`    // Originating node ID
	Payload  json.RawMessage `json:"payload"` // The actual message
}

// PubSub handles pub/sub operations.
type PubSub struct {
	client  *Client
	pubsub  *redis.PubSub
	handler func(msg *Message)
}

// NewPubSub creates a new pub/sub handler.
func (c *Client) NewPubSub(handler func(msg *Message)) *PubSub {
	return &PubSub{
		client:  c,
		handler: handler,
	}
}

// SubscribeStreams subscribes to every stream chat channel by pattern.
func (ps *PubSub) SubscribeStreams(ctx context.Context) error {
	ps.pubsub = ps.client.rdb.PSubscribe(ctx, ps.client.key("ch:stream:*"))
	_, err := ps.pubsub.Receive(ctx)
	return err
}

// Listen starts listening for messages (blocking).
func (ps *PubSub) Listen(ctx context.Context) {
	if ps.pubsub == nil {
		return
	}

	ch := ps.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				continue
			}
			// Skip messages from self
			if msg.FromNode == ps.client.nodeID {
				continue
			}
			if ps.handler != nil {
				ps.handler(&msg)
			}
		}
	}
}

// Close closes the pub/sub connection.
func (ps *PubSub) Close() error {
	if ps.pubsub != nil {
		return ps.pubsub.Close()
	}
	return nil
}

// Publish publishes a message to a channel.
func (c *Client) Publish(ctx context.Context, channel string, msgType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msgData, err := json.Marshal(Message{
		Type:     msgType,
		Channel:  channel,
		FromNode: c.nodeID,
		Payload:  data,
	})
	if err != nil {
		return err
	}

	return c.rdb.Publish(ctx, c.key("ch:"+channel), msgData).Err()
}
