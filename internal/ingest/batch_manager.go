package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

// BatchManager implements the Batch Manager sub-contract (§4.1): at most one
// accumulating batch per user, opened lazily and closed by gap or timeout.
type BatchManager struct {
	db  *database.DB
	gap time.Duration
}

func NewBatchManager(db *database.DB, gap time.Duration) *BatchManager {
	return &BatchManager{db: db, gap: gap}
}

// GetOrCreateBatch returns the user's accumulating batch if its
// last_segment_time is within the gap of segmentTime, otherwise opens a
// fresh one at segmentTime (closing the old one is the transcription
// monitor's job, triggered by timeout — this method never closes a batch).
func (m *BatchManager) GetOrCreateBatch(ctx context.Context, username string, segmentTime time.Time) (*database.BatchRow, error) {
	existing, err := m.db.GetAccumulatingBatch(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil && segmentTime.Sub(existing.LastSegmentAt) <= m.gap {
		return existing, nil
	}
	return m.db.CreateBatch(ctx, username, segmentTime)
}

// AddSegmentToBatch links a file, advances counters, and advances the
// batch's last_segment_time.
func (m *BatchManager) AddSegmentToBatch(ctx context.Context, batch *database.BatchRow, fileID uuid.UUID, segmentTime time.Time, speechDuration float64) error {
	if err := m.db.AttachToBatch(ctx, fileID, batch.ID); err != nil {
		return err
	}
	return m.db.AddSegmentToBatch(ctx, batch.ID, segmentTime, speechDuration)
}
