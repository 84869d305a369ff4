package store

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for all database operations.
// This interface enables mocking for unit tests.
type Store interface {
	// Close closes the database connection.
	Close()
	Ping(ctx context.Context) error

	// Wallets
	UpsertWallet(ctx context.Context, address, userAgent string) error
	GetWallet(ctx context.Context, address string) (*Wallet, error)

	// Streams
	CreateStream(ctx context.Context, s *Stream) error
	GetStreamByID(ctx context.Context, id uuid.UUID) (*Stream, error)
	ListStreams(ctx context.Context, liveOnly bool, limit int) ([]Stream, error)
	ListStreamsByWallet(ctx context.Context, wallet string) ([]Stream, error)
	ListLiveStreamIDs(ctx context.Context) ([]uuid.UUID, error)
	SetStreamLive(ctx context.Context, id uuid.UUID, live bool) error
	TerminateStream(ctx context.Context, id uuid.UUID, violation string) error
	SetStreamThumbnail(ctx context.Context, id uuid.UUID, path string) error

	// Chat
	CreateChatMessage(ctx context.Context, streamID uuid.UUID, wallet, content string) (*ChatMessage, error)
	GetChatMessages(ctx context.Context, streamID uuid.UUID, limit int) ([]ChatMessage, error)

	// Donations
	CreateDonation(ctx context.Context, d *Donation) error
	GetTopSupporters(ctx context.Context, streamID uuid.UUID, limit int) ([]Supporter, error)
}

// Verify DB implements Store at compile time.
var _ Store = (*DB)(nil)
