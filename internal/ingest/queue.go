// Package ingest implements C2 (§4.1): the poll loop that turns upload
// notifications into durable, VAD-annotated, batch-attached AudioFile rows,
// plus the reconciliation sweep that closes the gap on dropped messages and
// the batch-failed recovery sweep (§9 open question iii). Modeled on the
// teacher's MQTT-consumer pipeline shape (one long-lived poll loop, a typed
// job queue feeding detached worker goroutines, idempotent-by-key writes)
// applied to SQS instead of MQTT.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
	"github.com/nirva-labs/nirva-pipeline/internal/metrics"
	"github.com/nirva-labs/nirva-pipeline/internal/storage"
)

// objectKeyPattern matches native-audio/{username}/{filename} (§4.1 step 1).
var objectKeyPattern = regexp.MustCompile(`^native-audio/([^/]+)/([^/]+)$`)

// QueueConsumer runs the continuous poll loop against the upload-notification
// queue (§4.1 step 1).
type QueueConsumer struct {
	sqsClient *sqs.Client
	queueURL  string
	waitTime  int32
	visibility int32
	maxMsgs   int32

	db      *database.DB
	store   *storage.Store
	vad     *VADRunner
	batches *BatchManager

	log zerolog.Logger
}

type QueueConsumerOptions struct {
	SQS        *sqs.Client
	QueueURL   string
	WaitTime   time.Duration
	Visibility time.Duration
	MaxMessages int32
	DB         *database.DB
	Store      *storage.Store
	VAD        *VADRunner
	Batches    *BatchManager
	Log        zerolog.Logger
}

func NewQueueConsumer(opts QueueConsumerOptions) *QueueConsumer {
	return &QueueConsumer{
		sqsClient:  opts.SQS,
		queueURL:   opts.QueueURL,
		waitTime:   int32(opts.WaitTime.Seconds()),
		visibility: int32(opts.Visibility.Seconds()),
		maxMsgs:    opts.MaxMessages,
		db:         opts.DB,
		store:      opts.Store,
		vad:        opts.VAD,
		batches:    opts.Batches,
		log:        opts.Log.With().Str("component", "ingest.queue").Logger(),
	}
}

// Run polls indefinitely until ctx is canceled (§4.1 step 1). Each
// long-poll batch of up to N messages is processed concurrently and bounded
// by N in flight, matching §5's backpressure policy.
func (c *QueueConsumer) Run(ctx context.Context) {
	c.log.Info().Str("queue", c.queueURL).Int32("max_messages", c.maxMsgs).Msg("queue consumer starting")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("queue consumer stopping")
			return
		default:
		}

		out, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            &c.queueURL,
			MaxNumberOfMessages: c.maxMsgs,
			WaitTimeSeconds:     c.waitTime,
			VisibilityTimeout:   c.visibility,
			MessageAttributeNames: []string{"All"},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error().Err(err).Msg("receive message failed")
			continue
		}

		var wg sync.WaitGroup
		for _, msg := range out.Messages {
			wg.Add(1)
			go func(m types.Message) {
				defer wg.Done()
				c.handleMessage(ctx, m)
			}(msg)
		}
		wg.Wait()
	}
}

// s3Notification is the subset of the standard object-store Records[*]
// envelope this component consumes (§6).
type s3Notification struct {
	Records []struct {
		EventName string    `json:"eventName"`
		EventTime time.Time `json:"eventTime"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key  string `json:"key"`
				Size int64  `json:"size"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

func (c *QueueConsumer) handleMessage(ctx context.Context, msg types.Message) {
	metrics.QueueMessagesTotal.Inc()
	ok := c.processRawMessage(ctx, aws.ToString(msg.Body))
	if ok {
		c.deleteMessage(ctx, msg)
	}
	// On failure we deliberately do not delete: the message reappears after
	// the visibility timeout and is retried indefinitely (§4.1 failure semantics).
}

// processRawMessage parses one notification envelope and runs step 2 for
// every ObjectCreated record within it. Returns true if the message may be
// safely deleted (either fully processed, or intentionally not our concern).
func (c *QueueConsumer) processRawMessage(ctx context.Context, body string) bool {
	var note s3Notification
	if err := json.Unmarshal([]byte(body), &note); err != nil {
		c.log.Warn().Err(err).Msg("unparseable queue message, acknowledging and dropping")
		return true
	}

	allOK := true
	for _, rec := range note.Records {
		if !strings.HasPrefix(rec.EventName, "ObjectCreated") {
			continue // non-creation events are deleted without processing
		}
		if !objectKeyPattern.MatchString(rec.S3.Object.Key) {
			c.log.Warn().Str("key", rec.S3.Object.Key).Msg("object key does not match native-audio/{user}/{filename}, dropping")
			continue
		}
		if err := c.ingestObject(ctx, rec.S3.Bucket.Name, rec.S3.Object.Key, rec.EventTime, rec.S3.Object.Size); err != nil {
			c.log.Error().Err(err).Str("bucket", rec.S3.Bucket.Name).Str("key", rec.S3.Object.Key).Msg("ingest failed, will retry")
			allOK = false
		}
	}
	return allOK
}

// ingestObject is §4.1 step 2: derive captured-at, insert idempotently,
// schedule VAD as a detached task.
func (c *QueueConsumer) ingestObject(ctx context.Context, bucket, key string, uploadedAt time.Time, size int64) error {
	username, filename := parseObjectKey(key)
	if username == "" {
		return fmt.Errorf("could not extract username from key %q", key)
	}
	_ = filename

	existing, err := c.db.FindAudioFileByObject(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("lookup existing audio file: %w", err)
	}
	if existing != nil {
		// Idempotence point for at-least-once delivery (§7).
		return nil
	}

	meta, headSize, err := c.store.Metadata(ctx, key)
	if err != nil {
		return fmt.Errorf("read object metadata: %w", err)
	}
	if headSize > 0 {
		size = headSize
	}
	capturedAt := deriveCapturedAt(meta, uploadedAt)
	format := formatFromKey(key)

	file, err := c.db.InsertAudioFile(ctx, username, bucket, key, capturedAt, uploadedAt, size, format)
	if err != nil {
		if err == database.ErrAlreadyExists {
			return nil // concurrent delivery raced us; also idempotent
		}
		return fmt.Errorf("insert audio file: %w", err)
	}

	c.vad.Schedule(file.ID, bucket, key)
	return nil
}

func (c *QueueConsumer) deleteMessage(ctx context.Context, msg types.Message) {
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to delete processed message")
	}
}

func parseObjectKey(key string) (username, filename string) {
	m := objectKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

func formatFromKey(key string) string {
	idx := strings.LastIndex(key, ".")
	if idx < 0 || idx == len(key)-1 {
		return ""
	}
	return key[idx+1:]
}

// deriveCapturedAt implements §4.1's captured-at derivation: prefer the
// "capturedat" Unix-millis metadata field, fall back to ISO-8601
// "capture-time", fall back to upload time.
func deriveCapturedAt(meta map[string]string, uploadedAt time.Time) time.Time {
	if raw, ok := meta["capturedat"]; ok && raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
	}
	if raw, ok := meta["capture-time"]; ok && raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC()
		}
	}
	return uploadedAt.UTC()
}
