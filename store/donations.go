package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateDonation is returned when a transaction signature was already recorded.
var ErrDuplicateDonation = errors.New("donation already recorded")

// Donation is a tip sent to a streamer, in SOL.
type Donation struct {
	ID          uuid.UUID `json:"id"`
	StreamID    uuid.UUID `json:"streamId"`
	Wallet      string    `json:"wallet"`
	Amount      float64   `json:"amount"`
	Message     string    `json:"message,omitempty"`
	TxSignature string    `json:"txSignature"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Supporter aggregates donations by wallet.
type Supporter struct {
	Wallet string  `json:"wallet"`
	Total  float64 `json:"total"`
	Count  int     `json:"count"`
}

// CreateDonation records a donation. ID and timestamp are assigned here.
func (db *DB) CreateDonation(ctx context.Context, d *Donation) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC()

	_, err := db.pool.Exec(ctx, `
		INSERT INTO donations (id, stream_id, wallet, amount, message, tx_signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, d.ID, d.StreamID, d.Wallet, d.Amount, d.Message, d.TxSignature, d.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateDonation
	}
	return err
}

// GetTopSupporters returns the wallets that donated most to a stream.
func (db *DB) GetTopSupporters(ctx context.Context, streamID uuid.UUID, limit int) ([]Supporter, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT wallet, SUM(amount)::float8, COUNT(*)
		FROM donations WHERE stream_id = $1
		GROUP BY wallet
		ORDER BY SUM(amount) DESC, MIN(created_at) ASC
		LIMIT $2
	`, streamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var supporters []Supporter
	for rows.Next() {
		var s Supporter
		if err := rows.Scan(&s.Wallet, &s.Total, &s.Count); err != nil {
			return nil, err
		}
		supporters = append(supporters, s)
	}
	return supporters, rows.Err()
}
