package store

import (
	"context"

	"github.com/google/uuid"
)

// MockStore is a mock implementation of Store for testing.
// Each method field can be set to a custom function to control behavior.
type MockStore struct {
	PingFn func(ctx context.Context) error

	// Wallets
	UpsertWalletFn func(ctx context.Context, address, userAgent string) error
	GetWalletFn    func(ctx context.Context, address string) (*Wallet, error)

	// Streams
	CreateStreamFn        func(ctx context.Context, s *Stream) error
	GetStreamByIDFn       func(ctx context.Context, id uuid.UUID) (*Stream, error)
	ListStreamsFn         func(ctx context.Context, liveOnly bool, limit int) ([]Stream, error)
	ListStreamsByWalletFn func(ctx context.Context, wallet string) ([]Stream, error)
	ListLiveStreamIDsFn   func(ctx context.Context) ([]uuid.UUID, error)
	SetStreamLiveFn       func(ctx context.Context, id uuid.UUID, live bool) error
	TerminateStreamFn     func(ctx context.Context, id uuid.UUID, violation string) error
	SetStreamThumbnailFn  func(ctx context.Context, id uuid.UUID, path string) error

	// Chat
	CreateChatMessageFn func(ctx context.Context, streamID uuid.UUID, wallet, content string) (*ChatMessage, error)
	GetChatMessagesFn   func(ctx context.Context, streamID uuid.UUID, limit int) ([]ChatMessage, error)

	// Donations
	CreateDonationFn   func(ctx context.Context, d *Donation) error
	GetTopSupportersFn func(ctx context.Context, streamID uuid.UUID, limit int) ([]Supporter, error)
}

// Compile-time check that MockStore implements Store.
var _ Store = (*MockStore)(nil)

func (m *MockStore) Close() {}

func (m *MockStore) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn(ctx)
	}
	return nil
}

func (m *MockStore) UpsertWallet(ctx context.Context, address, userAgent string) error {
	if m.UpsertWalletFn != nil {
		return m.UpsertWalletFn(ctx, address, userAgent)
	}
	return nil
}

func (m *MockStore) GetWallet(ctx context.Context, address string) (*Wallet, error) {
	if m.GetWalletFn != nil {
		return m.GetWalletFn(ctx, address)
	}
	return nil, nil
}

func (m *MockStore) CreateStream(ctx context.Context, s *Stream) error {
	if m.CreateStreamFn != nil {
		return m.CreateStreamFn(ctx, s)
	}
	s.ID = uuid.New()
	return nil
}

func (m *MockStore) GetStreamByID(ctx context.Context, id uuid.UUID) (*Stream, error) {
	if m.GetStreamByIDFn != nil {
		return m.GetStreamByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *MockStore) ListStreams(ctx context.Context, liveOnly bool, limit int) ([]Stream, error) {
	if m.ListStreamsFn != nil {
		return m.ListStreamsFn(ctx, liveOnly, limit)
	}
	return nil, nil
}

func (m *MockStore) ListStreamsByWallet(ctx context.Context, wallet string) ([]Stream, error) {
	if m.ListStreamsByWalletFn != nil {
		return m.ListStreamsByWalletFn(ctx, wallet)
	}
	return nil, nil
}

func (m *MockStore) ListLiveStreamIDs(ctx context.Context) ([]uuid.UUID, error) {
	if m.ListLiveStreamIDsFn != nil {
		return m.ListLiveStreamIDsFn(ctx)
	}
	return nil, nil
}

func (m *MockStore) SetStreamLive(ctx context.Context, id uuid.UUID, live bool) error {
	if m.SetStreamLiveFn != nil {
		return m.SetStreamLiveFn(ctx, id, live)
	}
	return nil
}

func (m *MockStore) TerminateStream(ctx context.Context, id uuid.UUID, violation string) error {
	if m.TerminateStreamFn != nil {
		return m.TerminateStreamFn(ctx, id, violation)
	}
	return nil
}

func (m *MockStore) SetStreamThumbnail(ctx context.Context, id uuid.UUID, path string) error {
	if m.SetStreamThumbnailFn != nil {
		return m.SetStreamThumbnailFn(ctx, id, path)
	}
	return nil
}

func (m *MockStore) CreateChatMessage(ctx context.Context, streamID uuid.UUID, wallet, content string) (*ChatMessage, error) {
	if m.CreateChatMessageFn != nil {
		return m.CreateChatMessageFn(ctx, streamID, wallet, content)
	}
	return &ChatMessage{ID: uuid.New(), StreamID: streamID, Wallet: wallet, Content: content}, nil
}

func (m *MockStore) GetChatMessages(ctx context.Context, streamID uuid.UUID, limit int) ([]ChatMessage, error) {
	if m.GetChatMessagesFn != nil {
		return m.GetChatMessagesFn(ctx, streamID, limit)
	}
	return nil, nil
}

func (m *MockStore) CreateDonation(ctx context.Context, d *Donation) error {
	if m.CreateDonationFn != nil {
		return m.CreateDonationFn(ctx, d)
	}
	d.ID = uuid.New()
	return nil
}

func (m *MockStore) GetTopSupporters(ctx context.Context, streamID uuid.UUID, limit int) ([]Supporter, error) {
	if m.GetTopSupportersFn != nil {
		return m.GetTopSupportersFn(ctx, streamID, limit)
	}
	return nil, nil
}
