package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

// Recoverer implements the batch-failed recovery sweep. Not part of the
// distilled process, added because a batch that fails transcription for a
// transient reason (vendor outage, network blip) would otherwise sit in
// `failed` forever — every tick it resets batches that have been failed
// longer than a grace period back to `accumulating`, bounded by a retry
// counter so a batch with a permanent defect (corrupt audio, bad speaker
// count) eventually stops being retried and surfaces only via metrics.
type Recoverer struct {
	db         *database.DB
	tick       time.Duration
	grace      time.Duration
	maxRetries int
	log        zerolog.Logger
}

func NewRecoverer(db *database.DB, tick, grace time.Duration, maxRetries int, log zerolog.Logger) *Recoverer {
	return &Recoverer{
		db:         db,
		tick:       tick,
		grace:      grace,
		maxRetries: maxRetries,
		log:        log.With().Str("component", "ingest.recover").Logger(),
	}
}

func (r *Recoverer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Recoverer) sweep(ctx context.Context) {
	batches, err := r.db.ListRecoverableFailedBatches(ctx, r.grace, r.maxRetries, time.Now().UTC())
	if err != nil {
		r.log.Error().Err(err).Msg("recovery list failed")
		return
	}
	for _, b := range batches {
		if err := r.db.ResetBatchToAccumulating(ctx, b.ID); err != nil {
			r.log.Warn().Err(err).Str("batch_id", b.ID.String()).Msg("recovery reset failed")
			continue
		}
		r.log.Info().Str("batch_id", b.ID.String()).Int("retry_count", b.RetryCount).Msg("batch reset to accumulating for retry")
	}
}
