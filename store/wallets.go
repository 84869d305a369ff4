package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Wallet is a wallet address that has signed in at least once.
type Wallet struct {
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// UpsertWallet records a sign-in, creating the wallet row on first sight.
func (db *DB) UpsertWallet(ctx context.Context, address, userAgent string) error {
	now := time.Now().UTC()
	_, err := db.pool.Exec(ctx, `
		INSERT INTO wallets (address, created_at, last_seen, user_agent)
		VALUES ($1, $2, $2, $3)
		ON CONFLICT (address) DO UPDATE SET last_seen = $2, user_agent = $3
	`, address, now, userAgent)
	return err
}

// GetWallet retrieves a wallet by address.
func (db *DB) GetWallet(ctx context.Context, address string) (*Wallet, error) {
	var w Wallet
	err := db.pool.QueryRow(ctx, `
		SELECT address, created_at, last_seen, user_agent
		FROM wallets WHERE address = $1
	`, address).Scan(&w.Address, &w.CreatedAt, &w.LastSeen, &w.UserAgent)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
