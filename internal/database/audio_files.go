package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SpeechInterval is one [start_seconds, end_seconds] span detected by VAD.
type SpeechInterval struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

type AudioFileRow struct {
	ID              uuid.UUID
	Username        string
	Bucket          string
	ObjectKey       string
	CapturedAt      time.Time
	UploadedAt      time.Time
	ContentSize     int64
	Format          string
	Status          string
	SpeechSegments  []SpeechInterval
	SegmentCount    int
	SpeechDuration  float64
	TotalDuration   float64
	SpeechRatio     float64
	VADProcessedAt  *time.Time
	VADError        *string
	BatchID         *uuid.UUID
}

// ErrAlreadyExists is returned by InsertAudioFile when a row for (bucket, key)
// already exists — the idempotence point for at-least-once queue delivery.
var ErrAlreadyExists = errors.New("audio file already exists")

// FindAudioFileByObject returns the existing row for (bucket, key), if any.
func (db *DB) FindAudioFileByObject(ctx context.Context, bucket, key string) (*AudioFileRow, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, username, bucket, object_key, captured_at, uploaded_at, content_size,
		       format, status, batch_id
		FROM audio_files WHERE bucket = $1 AND object_key = $2
	`, bucket, key)

	var f AudioFileRow
	err := row.Scan(&f.ID, &f.Username, &f.Bucket, &f.ObjectKey, &f.CapturedAt, &f.UploadedAt,
		&f.ContentSize, &f.Format, &f.Status, &f.BatchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FindAudioFileByID loads a single row by id, used when a detached task only
// carries the file's id and needs its username/captured-at back.
func (db *DB) FindAudioFileByID(ctx context.Context, id uuid.UUID) (*AudioFileRow, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, username, bucket, object_key, captured_at, uploaded_at, content_size,
		       format, status, batch_id
		FROM audio_files WHERE id = $1
	`, id)

	var f AudioFileRow
	err := row.Scan(&f.ID, &f.Username, &f.Bucket, &f.ObjectKey, &f.CapturedAt, &f.UploadedAt,
		&f.ContentSize, &f.Format, &f.Status, &f.BatchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// InsertAudioFile inserts a new row with status "uploaded". Returns
// ErrAlreadyExists (wrapping nothing, checked via errors.Is) if the
// (bucket, key) pair was already inserted by a concurrent delivery.
func (db *DB) InsertAudioFile(ctx context.Context, username, bucket, key string, capturedAt, uploadedAt time.Time, size int64, format string) (*AudioFileRow, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO audio_files (username, bucket, object_key, captured_at, uploaded_at, content_size, format, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'uploaded')
		ON CONFLICT (bucket, object_key) DO NOTHING
		RETURNING id, username, bucket, object_key, captured_at, uploaded_at, content_size, format, status
	`, username, bucket, key, capturedAt, uploadedAt, size, format)

	var f AudioFileRow
	err := row.Scan(&f.ID, &f.Username, &f.Bucket, &f.ObjectKey, &f.CapturedAt, &f.UploadedAt,
		&f.ContentSize, &f.Format, &f.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// SetVADResult records detected speech intervals and flips status to
// vad_complete, ready for batch attachment by the caller.
func (db *DB) SetVADResult(ctx context.Context, id uuid.UUID, segments []SpeechInterval, speechDuration, totalDuration float64, processedAt time.Time) error {
	raw, err := json.Marshal(segments)
	if err != nil {
		return err
	}
	ratio := 0.0
	if totalDuration > 0 {
		ratio = speechDuration / totalDuration
	}
	_, err = db.Pool.Exec(ctx, `
		UPDATE audio_files
		SET status = 'vad_complete', speech_segments = $2, segment_count = $3,
		    speech_duration_s = $4, total_duration_s = $5, speech_ratio = $6, vad_processed_at = $7
		WHERE id = $1
	`, id, raw, len(segments), speechDuration, totalDuration, ratio, processedAt)
	return err
}

// MarkNoSpeech records that VAD found zero speech in this file.
func (db *DB) MarkNoSpeech(ctx context.Context, id uuid.UUID, totalDuration float64, processedAt time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE audio_files
		SET status = 'no_speech', total_duration_s = $2, vad_processed_at = $3
		WHERE id = $1
	`, id, totalDuration, processedAt)
	return err
}

// MarkVADFailed records a terminal VAD failure; ingest is never blocked by this.
func (db *DB) MarkVADFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE audio_files SET status = 'vad_failed', vad_error = $2 WHERE id = $1
	`, id, reason)
	return err
}

// AttachToBatch links a file to a batch once VAD found speech.
func (db *DB) AttachToBatch(ctx context.Context, fileID, batchID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `UPDATE audio_files SET batch_id = $2 WHERE id = $1`, fileID, batchID)
	return err
}

// ListFilesForBatch returns all files attached to a batch, ordered by upload time.
func (db *DB) ListFilesForBatch(ctx context.Context, batchID uuid.UUID) ([]AudioFileRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, username, bucket, object_key, captured_at, uploaded_at, content_size, format,
		       status, speech_segments, speech_duration_s, total_duration_s
		FROM audio_files WHERE batch_id = $1 ORDER BY uploaded_at
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AudioFileRow
	for rows.Next() {
		var f AudioFileRow
		var raw []byte
		if err := rows.Scan(&f.ID, &f.Username, &f.Bucket, &f.ObjectKey, &f.CapturedAt, &f.UploadedAt,
			&f.ContentSize, &f.Format, &f.Status, &raw, &f.SpeechDuration, &f.TotalDuration); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &f.SpeechSegments); err != nil {
				return nil, err
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// MarkFilesTranscribed flips every file in a batch to status "transcribed".
func (db *DB) MarkFilesTranscribed(ctx context.Context, batchID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `UPDATE audio_files SET status = 'transcribed' WHERE batch_id = $1`, batchID)
	return err
}

// ListUnreconciledKeys returns object-store keys in `present` that have no
// AudioFile row yet, used by the reconciliation sweep (§4.1 step 4).
func (db *DB) ListUnreconciledKeys(ctx context.Context, bucket string, present []string) ([]string, error) {
	if len(present) == 0 {
		return nil, nil
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT key FROM unnest($2::text[]) AS key
		WHERE NOT EXISTS (SELECT 1 FROM audio_files WHERE bucket = $1 AND object_key = key)
	`, bucket, present)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		missing = append(missing, k)
	}
	return missing, rows.Err()
}
