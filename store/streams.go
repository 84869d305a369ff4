package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrStreamNotFound is returned by updates that matched no row.
var ErrStreamNotFound = errors.New("stream not found")

// Stream is a stream record owned by a wallet.
type Stream struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Wallet      string    `json:"walletAddress"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	VideoID     string    `json:"videoId"`
	PlaybackURL string    `json:"playbackUrl"`
	// Encrypted; handlers decrypt for the owner only
	StreamKey  []byte  `json:"-"`
	Thumbnail  *string `json:"thumbnail,omitempty"`
	IsLive     bool    `json:"isLive"`
	Terminated bool    `json:"terminated"`
	Violation  *string `json:"violation,omitempty"`
}

const streamColumns = `id, created_at, updated_at, wallet, title, description, category,
	video_id, playback_url, stream_key, thumbnail, is_live, terminated, violation`

func scanStream(row pgx.Row) (*Stream, error) {
	var s Stream
	err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt, &s.Wallet, &s.Title, &s.Description, &s.Category,
		&s.VideoID, &s.PlaybackURL, &s.StreamKey, &s.Thumbnail, &s.IsLive, &s.Terminated, &s.Violation)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateStream inserts a stream record. ID and timestamps are assigned here.
func (db *DB) CreateStream(ctx context.Context, s *Stream) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt

	_, err := db.pool.Exec(ctx, `
		INSERT INTO streams (id, created_at, updated_at, wallet, title, description, category,
			video_id, playback_url, stream_key)
		VALUES ($1, $2, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID, s.CreatedAt, s.Wallet, s.Title, s.Description, s.Category, s.VideoID, s.PlaybackURL, s.StreamKey)
	return err
}

// GetStreamByID retrieves a stream by ID.
func (db *DB) GetStreamByID(ctx context.Context, id uuid.UUID) (*Stream, error) {
	s, err := scanStream(db.pool.QueryRow(ctx, `SELECT `+streamColumns+` FROM streams WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListStreams lists non-terminated streams, live ones first, newest first.
func (db *DB) ListStreams(ctx context.Context, liveOnly bool, limit int) ([]Stream, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+streamColumns+` FROM streams
		WHERE NOT terminated AND (is_live OR NOT $1)
		ORDER BY is_live DESC, created_at DESC
		LIMIT $2
	`, liveOnly, limit)
	if err != nil {
		return nil, err
	}
	return collectStreams(rows)
}

// ListStreamsByWallet lists every stream a wallet created, newest first.
func (db *DB) ListStreamsByWallet(ctx context.Context, wallet string) ([]Stream, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+streamColumns+` FROM streams
		WHERE wallet = $1
		ORDER BY created_at DESC
	`, wallet)
	if err != nil {
		return nil, err
	}
	return collectStreams(rows)
}

// ListLiveStreamIDs returns every live, non-terminated stream.
func (db *DB) ListLiveStreamIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx, `SELECT id FROM streams WHERE is_live AND NOT terminated`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func collectStreams(rows pgx.Rows) ([]Stream, error) {
	defer rows.Close()

	var streams []Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		streams = append(streams, *s)
	}
	return streams, rows.Err()
}

// SetStreamLive flips the live flag. Terminated streams cannot go live again.
func (db *DB) SetStreamLive(ctx context.Context, id uuid.UUID, live bool) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE streams SET is_live = $2, updated_at = $3
		WHERE id = $1 AND (NOT terminated OR NOT $2)
	`, id, live, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStreamNotFound
	}
	return nil
}

// TerminateStream takes a stream offline permanently and records why.
func (db *DB) TerminateStream(ctx context.Context, id uuid.UUID, violation string) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE streams SET is_live = FALSE, terminated = TRUE, violation = $2, updated_at = $3
		WHERE id = $1
	`, id, violation, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStreamNotFound
	}
	return nil
}

// SetStreamThumbnail stores the thumbnail path.
func (db *DB) SetStreamThumbnail(ctx context.Context, id uuid.UUID, path string) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE streams SET thumbnail = $2, updated_at = $3 WHERE id = $1
	`, id, path, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStreamNotFound
	}
	return nil
}
