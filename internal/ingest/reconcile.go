package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
	"github.com/nirva-labs/nirva-pipeline/internal/metrics"
	"github.com/nirva-labs/nirva-pipeline/internal/storage"
)

// Reconciler runs the periodic sweep (§4.1 step 4) that lists object-store
// keys under the expected prefix and synthesizes a pseudo-notification for
// any key without an AudioFile row — closing the gap left by dropped queue
// messages, per §8 scenario 6.
type Reconciler struct {
	store    *storage.Store
	db       *database.DB
	consumer *QueueConsumer
	interval time.Duration
	window   time.Duration
	log      zerolog.Logger
}

func NewReconciler(store *storage.Store, db *database.DB, consumer *QueueConsumer, interval, window time.Duration, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		db:       db,
		consumer: consumer,
		interval: interval,
		window:   window,
		log:      log.With().Str("component", "ingest.reconcile").Logger(),
	}
}

// Run wakes every interval until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
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

func (r *Reconciler) sweep(ctx context.Context) {
	since := time.Now().Add(-r.window)
	keys, err := r.store.ListRecentKeys(ctx, "native-audio/", since)
	if err != nil {
		r.log.Error().Err(err).Msg("reconciliation list failed")
		return
	}
	if len(keys) == 0 {
		return
	}

	// Group by bucket isn't needed: ListRecentKeys is already bucket-scoped
	// by the Store's configured bucket.
	missing, err := r.db.ListUnreconciledKeys(ctx, r.store.Bucket(), keys)
	if err != nil {
		r.log.Error().Err(err).Msg("reconciliation diff failed")
		return
	}
	if len(missing) == 0 {
		return
	}

	r.log.Info().Int("missing", len(missing)).Msg("reconciliation found unprocessed keys")
	for _, key := range missing {
		username, _ := parseObjectKey(key)
		if username == "" {
			continue
		}
		if err := r.consumer.ingestObject(ctx, r.store.Bucket(), key, time.Now().UTC(), 0); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("reconciliation ingest failed")
			continue
		}
		metrics.ReconciledFilesTotal.Inc()
	}
}
