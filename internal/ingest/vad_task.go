package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nirva-labs/nirva-pipeline/internal/audiodec"
	"github.com/nirva-labs/nirva-pipeline/internal/database"
	"github.com/nirva-labs/nirva-pipeline/internal/metrics"
	"github.com/nirva-labs/nirva-pipeline/internal/storage"
	"github.com/nirva-labs/nirva-pipeline/internal/vad"
)

// vadJob is one detached VAD task (§4.1 step 3).
type vadJob struct {
	fileID uuid.UUID
	bucket string
	key    string
}

// VADRunner owns a bounded worker pool that drains detached VAD tasks.
// Scheduling a job never blocks ingest acknowledgment (§4.1: "success/failure
// does not affect message acknowledgment").
type VADRunner struct {
	jobs     chan vadJob
	db       *database.DB
	store    *storage.Store
	detector vad.Detector
	params   vad.Params
	batches  *BatchManager
	log      zerolog.Logger
	wg       sync.WaitGroup
}

type VADRunnerOptions struct {
	DB       *database.DB
	Store    *storage.Store
	Detector vad.Detector
	Params   vad.Params
	Batches  *BatchManager
	Workers  int
	QueueSize int
	Log      zerolog.Logger
}

func NewVADRunner(opts VADRunnerOptions) *VADRunner {
	r := &VADRunner{
		jobs:     make(chan vadJob, opts.QueueSize),
		db:       opts.DB,
		store:    opts.Store,
		detector: opts.Detector,
		params:   opts.Params,
		batches:  opts.Batches,
		log:      opts.Log.With().Str("component", "ingest.vad").Logger(),
	}
	for i := 0; i < opts.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return r
}

func (r *VADRunner) Schedule(fileID uuid.UUID, bucket, key string) {
	select {
	case r.jobs <- vadJob{fileID: fileID, bucket: bucket, key: key}:
	default:
		r.log.Warn().Str("file_id", fileID.String()).Msg("vad queue full, dropping job (file stays status=uploaded)")
	}
}

func (r *VADRunner) Stop() {
	close(r.jobs)
	r.wg.Wait()
}

func (r *VADRunner) worker(id int) {
	defer r.wg.Done()
	for job := range r.jobs {
		ctx := context.Background()
		status, err := r.process(ctx, job)
		if err != nil {
			r.log.Warn().Err(err).Str("key", job.key).Msg("vad processing failed")
			_ = r.db.MarkVADFailed(ctx, job.fileID, err.Error())
			status = "vad_failed"
		}
		metrics.VADTasksTotal.WithLabelValues(status).Inc()
	}
}

// process is §4.1 step 3: download, detect, persist, attach to batch. The
// returned status label (vad_complete or no_speech) feeds the VAD task
// metric; on error the caller records vad_failed itself.
func (r *VADRunner) process(ctx context.Context, job vadJob) (string, error) {
	scratch, err := r.download(ctx, job.key)
	if err != nil {
		return "", fmt.Errorf("download scratch copy: %w", err)
	}
	defer os.Remove(scratch)

	pcm, sampleCount, err := audiodec.DecodeToPCM16(scratch, r.params.SampleRate)
	if err != nil {
		return "", fmt.Errorf("decode to pcm: %w", err)
	}

	intervals, err := r.detector.Detect(pcm, r.params)
	if err != nil {
		return "", fmt.Errorf("%s detect: %w", r.detector.Name(), err)
	}

	now := time.Now().UTC()
	totalDuration := vad.TotalDuration(sampleCount, r.params.SampleRate).Seconds()

	if len(intervals) == 0 {
		return "no_speech", r.db.MarkNoSpeech(ctx, job.fileID, totalDuration, now)
	}

	speechDuration := vad.SpeechDuration(intervals)
	segments := make([]database.SpeechInterval, len(intervals))
	for i, iv := range intervals {
		segments[i] = database.SpeechInterval{StartSeconds: iv.StartSeconds, EndSeconds: iv.EndSeconds}
	}

	if err := r.db.SetVADResult(ctx, job.fileID, segments, speechDuration, totalDuration, now); err != nil {
		return "", fmt.Errorf("persist vad result: %w", err)
	}

	return "vad_complete", r.attachToBatch(ctx, job.fileID, speechDuration)
}

// attachToBatch re-reads the file row (for username/captured-at) and calls
// the Batch Manager, per §4.1 step 3's hand-off to the batch sub-contract.
func (r *VADRunner) attachToBatch(ctx context.Context, fileID uuid.UUID, speechDuration float64) error {
	file, err := r.db.FindAudioFileByID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("reload file: %w", err)
	}
	if file == nil {
		return fmt.Errorf("file %s vanished before batch attach", fileID)
	}

	batch, err := r.batches.GetOrCreateBatch(ctx, file.Username, file.CapturedAt)
	if err != nil {
		return fmt.Errorf("get_or_create_batch: %w", err)
	}
	return r.batches.AddSegmentToBatch(ctx, batch, fileID, file.CapturedAt, speechDuration)
}

func (r *VADRunner) download(ctx context.Context, key string) (string, error) {
	rc, err := r.store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	f, err := os.CreateTemp("", "nirva-vad-*.audio")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
