package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

type DailyReflectionRow struct {
	Username       string
	LocalDate      time.Time
	Gratitude      []string
	Challenges     []string
	Learning       string
	Connections    []string
	LookingForward string
}

// UpsertDailyReflection writes one reflection per (user, local date),
// overwriting any prior pass for the same day.
func (db *DB) UpsertDailyReflection(ctx context.Context, r DailyReflectionRow) error {
	gratitude := marshalOrEmptyArray(r.Gratitude)
	challenges := marshalOrEmptyArray(r.Challenges)
	connections := marshalOrEmptyArray(r.Connections)

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO daily_reflections (username, local_date, gratitude, challenges, learning, connections, looking_forward)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (username, local_date) DO UPDATE SET
			gratitude = EXCLUDED.gratitude, challenges = EXCLUDED.challenges,
			learning = EXCLUDED.learning, connections = EXCLUDED.connections,
			looking_forward = EXCLUDED.looking_forward
	`, r.Username, r.LocalDate.Format("2006-01-02"), gratitude, challenges, r.Learning, connections, r.LookingForward)
	return err
}

// GetDailyReflection returns the reflection for (username, localDate), or nil if none exists.
func (db *DB) GetDailyReflection(ctx context.Context, username string, localDate time.Time) (*DailyReflectionRow, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT username, local_date, gratitude, challenges, learning, connections, looking_forward
		FROM daily_reflections WHERE username = $1 AND local_date = $2
	`, username, localDate.Format("2006-01-02"))

	var r DailyReflectionRow
	var gratitude, challenges, connections []byte
	err := row.Scan(&r.Username, &r.LocalDate, &gratitude, &challenges, &r.Learning, &connections, &r.LookingForward)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(gratitude, &r.Gratitude)
	_ = json.Unmarshal(challenges, &r.Challenges)
	_ = json.Unmarshal(connections, &r.Connections)
	return &r, nil
}
