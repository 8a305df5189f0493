package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type BatchRow struct {
	ID              uuid.UUID
	Username        string
	FirstSegmentAt  time.Time
	LastSegmentAt   time.Time
	SegmentCount    int
	SpeechDuration  float64
	Status          string
	RetryCount      int
	ProcessedAt     *time.Time
}

// GetAccumulatingBatch returns the user's unique `accumulating` batch, if one exists.
func (db *DB) GetAccumulatingBatch(ctx context.Context, username string) (*BatchRow, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, username, first_segment_time, last_segment_time, segment_count,
		       speech_duration_s, status, retry_count
		FROM batches WHERE username = $1 AND status = 'accumulating'
	`, username)

	var b BatchRow
	err := row.Scan(&b.ID, &b.Username, &b.FirstSegmentAt, &b.LastSegmentAt, &b.SegmentCount,
		&b.SpeechDuration, &b.Status, &b.RetryCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBatch opens a new accumulating batch at segmentTime.
func (db *DB) CreateBatch(ctx context.Context, username string, segmentTime time.Time) (*BatchRow, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO batches (username, first_segment_time, last_segment_time, status)
		VALUES ($1, $2, $2, 'accumulating')
		RETURNING id, username, first_segment_time, last_segment_time, segment_count, speech_duration_s, status, retry_count
	`, username, segmentTime)

	var b BatchRow
	if err := row.Scan(&b.ID, &b.Username, &b.FirstSegmentAt, &b.LastSegmentAt, &b.SegmentCount,
		&b.SpeechDuration, &b.Status, &b.RetryCount); err != nil {
		return nil, err
	}
	return &b, nil
}

// AddSegmentToBatch increments counters and advances last_segment_time.
func (db *DB) AddSegmentToBatch(ctx context.Context, batchID uuid.UUID, segmentTime time.Time, speechDuration float64) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE batches
		SET segment_count = segment_count + 1,
		    speech_duration_s = speech_duration_s + $3,
		    last_segment_time = $2
		WHERE id = $1
	`, batchID, segmentTime, speechDuration)
	return err
}

// ListBatchesReadyForProcessing returns accumulating batches whose
// first_segment_time is older than timeout, as of now.
func (db *DB) ListBatchesReadyForProcessing(ctx context.Context, timeout time.Duration, now time.Time) ([]BatchRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, username, first_segment_time, last_segment_time, segment_count, speech_duration_s, status, retry_count
		FROM batches
		WHERE status = 'accumulating' AND first_segment_time <= $1
	`, now.Add(-timeout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BatchRow
	for rows.Next() {
		var b BatchRow
		if err := rows.Scan(&b.ID, &b.Username, &b.FirstSegmentAt, &b.LastSegmentAt, &b.SegmentCount,
			&b.SpeechDuration, &b.Status, &b.RetryCount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// MarkBatchProcessing atomically flips accumulating -> processing, returning
// false if another worker already claimed it (prevents double processing).
func (db *DB) MarkBatchProcessing(ctx context.Context, batchID uuid.UUID) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE batches SET status = 'processing' WHERE id = $1 AND status = 'accumulating'
	`, batchID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkBatchCompleted finalizes a batch regardless of whether a
// TranscriptionResult was produced (empty-transcript batches still complete).
func (db *DB) MarkBatchCompleted(ctx context.Context, batchID uuid.UUID, processedAt time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE batches SET status = 'completed', processed_at = $2 WHERE id = $1
	`, batchID, processedAt)
	return err
}

// MarkBatchFailed records a terminal failure, stamps processed_at with the
// failure time and bumps the retry counter so the recovery sweep can bound
// re-attempts.
func (db *DB) MarkBatchFailed(ctx context.Context, batchID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE batches SET status = 'failed', retry_count = retry_count + 1, processed_at = now() WHERE id = $1
	`, batchID)
	return err
}

// ListRecoverableFailedBatches returns batches stuck in `failed` longer than
// grace, with retry_count below maxRetries — candidates for the recovery sweep.
func (db *DB) ListRecoverableFailedBatches(ctx context.Context, grace time.Duration, maxRetries int, now time.Time) ([]BatchRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, username, first_segment_time, last_segment_time, segment_count, speech_duration_s, status, retry_count
		FROM batches
		WHERE status = 'failed' AND retry_count < $1
		  AND COALESCE(processed_at, first_segment_time) <= $2
	`, maxRetries, now.Add(-grace))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BatchRow
	for rows.Next() {
		var b BatchRow
		if err := rows.Scan(&b.ID, &b.Username, &b.FirstSegmentAt, &b.LastSegmentAt, &b.SegmentCount,
			&b.SpeechDuration, &b.Status, &b.RetryCount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ResetBatchToAccumulating returns a failed batch to accumulating so the
// transcription monitor picks it up again on its next tick.
func (db *DB) ResetBatchToAccumulating(ctx context.Context, batchID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE batches SET status = 'accumulating' WHERE id = $1 AND status = 'failed'
	`, batchID)
	return err
}

// CountBatchesByStatus reports the live batch count in a given status, used
// by the metrics collector's scrape-time gauges.
func (db *DB) CountBatchesByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM batches WHERE status = $1`, status).Scan(&n)
	return n, err
}
