package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRow mirrors the out-of-band user record. The core never creates or
// authenticates users; it only reads display_name for presentation.
type UserRow struct {
	ID          uuid.UUID
	Username    string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GetUserByUsername looks up a user for display purposes. Returns nil, nil
// if the username is unknown to the core (auth issuance lives elsewhere).
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*UserRow, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, username, display_name, created_at, updated_at FROM users WHERE username = $1
	`, username)

	var u UserRow
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
