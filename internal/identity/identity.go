// Package identity resolves the requester behind a token and decides whether
// they may start another run.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrUnknownRequester = errors.New("unknown requester")
	ErrPaymentRequired  = errors.New("payment required")
)

const DefaultFreeLimit = 3

type Identity struct {
	ID        int64
	Email     string
	FreeCount int
	Paid      bool
}

// Admit rejects a requester who has used up the free allowance and has no
// paid entitlement.
func Admit(id Identity, freeLimit int) error {
	if id.FreeCount > freeLimit && !id.Paid {
		return ErrPaymentRequired
	}
	return nil
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Lookup(ctx context.Context, requesterID int64) (Identity, error) {
	id := Identity{ID: requesterID}
	err := s.db.QueryRowContext(ctx,
		`SELECT email, free_count, paid_status FROM users WHERE id = $1`,
		requesterID,
	).Scan(&id.Email, &id.FreeCount, &id.Paid)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrUnknownRequester
	}
	if err != nil {
		return Identity{}, fmt.Errorf("lookup requester %d: %w", requesterID, err)
	}
	return id, nil
}

// RecordUsage counts one admitted run against the free allowance.
func (s *Store) RecordUsage(ctx context.Context, requesterID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET free_count = free_count + 1 WHERE id = $1`,
		requesterID,
	)
	if err != nil {
		return fmt.Errorf("record usage for %d: %w", requesterID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUnknownRequester
	}
	return nil
}
