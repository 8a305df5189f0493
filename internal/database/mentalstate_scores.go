package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MentalStateScoreRow struct {
	ID         uuid.UUID
	Username   string
	Timestamp  time.Time
	Energy     float64
	Stress     float64
	Confidence float64
	DataSource string
	EventID    *uuid.UUID
}

// InsertMentalStateScore persists one computed sample, used both to cache
// C5 output and to seed the personal-adjustment lookup (§4.4 layer 3).
func (db *DB) InsertMentalStateScore(ctx context.Context, s MentalStateScoreRow) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO mental_state_scores (username, ts, energy, stress, confidence, data_source, event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.Username, s.Timestamp, s.Energy, s.Stress, s.Confidence, s.DataSource, s.EventID)
	return err
}

// HistoricalSample is a slim projection used for the personal-adjustment mean.
type HistoricalSample struct {
	Timestamp time.Time
	Energy    float64
	Stress    float64
}

// ListHistoricalSamples returns persisted samples for a user within the
// trailing window, for the caller to filter by hour-of-day and day-type —
// Postgres doesn't know the caller's target timezone, so that filtering
// happens in internal/mentalstate, not in SQL.
func (db *DB) ListHistoricalSamples(ctx context.Context, username string, since time.Time) ([]HistoricalSample, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT ts, energy, stress FROM mental_state_scores
		WHERE username = $1 AND ts >= $2
		ORDER BY ts
	`, username, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoricalSample
	for rows.Next() {
		var s HistoricalSample
		if err := rows.Scan(&s.Timestamp, &s.Energy, &s.Stress); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
