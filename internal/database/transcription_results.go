package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TranscriptionResultRow struct {
	ID              uuid.UUID
	Username        string
	BatchID         uuid.UUID
	StartTime       time.Time
	EndTime         time.Time
	TranscriptText  string
	Confidence      float64
	Language        string
	Sentiment       json.RawMessage
	Topics          json.RawMessage
	Intents         json.RawMessage
	SegmentCount    int
	AnalysisStatus  string
}

// InsertTranscriptionResult persists a merged, speaker-attributed transcript
// with analysis_status = pending, ready for C4 to pick up.
func (db *DB) InsertTranscriptionResult(ctx context.Context, r TranscriptionResultRow) (uuid.UUID, error) {
	if r.Sentiment == nil {
		r.Sentiment = json.RawMessage(`{}`)
	}
	if r.Topics == nil {
		r.Topics = json.RawMessage(`[]`)
	}
	if r.Intents == nil {
		r.Intents = json.RawMessage(`[]`)
	}
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO transcription_results
			(username, batch_id, start_time, end_time, transcript_text, confidence, language,
			 sentiment, topics, intents, segment_count, analysis_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending')
		RETURNING id
	`, r.Username, r.BatchID, r.StartTime, r.EndTime, r.TranscriptText, r.Confidence, r.Language,
		r.Sentiment, r.Topics, r.Intents, r.SegmentCount).Scan(&id)
	return id, err
}

// SelectPendingForAnalysis returns up to limit pending transcripts ordered by
// user then start_time, per §4.3 step 1.
func (db *DB) SelectPendingForAnalysis(ctx context.Context, limit int) ([]TranscriptionResultRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, username, batch_id, start_time, end_time, transcript_text, analysis_status
		FROM transcription_results
		WHERE analysis_status = 'pending'
		ORDER BY username, start_time
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TranscriptionResultRow
	for rows.Next() {
		var t TranscriptionResultRow
		if err := rows.Scan(&t.ID, &t.Username, &t.BatchID, &t.StartTime, &t.EndTime, &t.TranscriptText, &t.AnalysisStatus); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountByAnalysisStatus reports the live transcript count in a given
// analysis_status, used by the metrics collector's scrape-time gauges.
func (db *DB) CountByAnalysisStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM transcription_results WHERE analysis_status = $1`, status).Scan(&n)
	return n, err
}

// ListTranscriptionsPage returns a page of transcripts across all users
// (optionally filtered by username and/or a start/end time window), newest
// first, for GET /api/v1/transcriptions (§6).
func (db *DB) ListTranscriptionsPage(ctx context.Context, username string, start, end *time.Time, page, pageSize int) ([]TranscriptionResultRow, int, error) {
	offset := (page - 1) * pageSize

	var total int
	if err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM transcription_results
		WHERE ($1 = '' OR username = $1)
		  AND ($2::timestamptz IS NULL OR start_time >= $2)
		  AND ($3::timestamptz IS NULL OR start_time <= $3)
	`, username, start, end).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, username, batch_id, start_time, end_time, transcript_text, confidence,
		       language, sentiment, topics, intents, segment_count, analysis_status
		FROM transcription_results
		WHERE ($1 = '' OR username = $1)
		  AND ($2::timestamptz IS NULL OR start_time >= $2)
		  AND ($3::timestamptz IS NULL OR start_time <= $3)
		ORDER BY start_time DESC
		LIMIT $4 OFFSET $5
	`, username, start, end, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []TranscriptionResultRow
	for rows.Next() {
		var t TranscriptionResultRow
		if err := rows.Scan(&t.ID, &t.Username, &t.BatchID, &t.StartTime, &t.EndTime, &t.TranscriptText,
			&t.Confidence, &t.Language, &t.Sentiment, &t.Topics, &t.Intents, &t.SegmentCount, &t.AnalysisStatus); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// MarkTranscriptsStatus bulk-updates analysis_status for a group of ids,
// used for the pending->processing claim and the processing->completed/failed
// resolution in §4.3 step 2.
func (db *DB) MarkTranscriptsStatus(ctx context.Context, ids []uuid.UUID, status string, analyzedAt *time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.Pool.Exec(ctx, `
		UPDATE transcription_results SET analysis_status = $2, analyzed_at = $3 WHERE id = ANY($1)
	`, ids, status, analyzedAt)
	return err
}
