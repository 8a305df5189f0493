// Command nirva-pipeline wires every component of the life-event pipeline
// and runs them together: ingest, batch transcription, the incremental
// event analyzer and reflection sweeper, the mental-state calculator
// behind the HTTP API, and the supporting storage tiers. CLI flags override
// environment variables for addr/log-level/database/redis; everything else
// is env-only configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/nirva-labs/nirva-pipeline/internal/analyzer"
	"github.com/nirva-labs/nirva-pipeline/internal/api"
	"github.com/nirva-labs/nirva-pipeline/internal/config"
	"github.com/nirva-labs/nirva-pipeline/internal/database"
	"github.com/nirva-labs/nirva-pipeline/internal/ingest"
	"github.com/nirva-labs/nirva-pipeline/internal/kv"
	"github.com/nirva-labs/nirva-pipeline/internal/llm"
	"github.com/nirva-labs/nirva-pipeline/internal/mentalstate"
	"github.com/nirva-labs/nirva-pipeline/internal/metrics"
	"github.com/nirva-labs/nirva-pipeline/internal/storage"
	"github.com/nirva-labs/nirva-pipeline/internal/transcribe"
	"github.com/nirva-labs/nirva-pipeline/internal/vad"
)

const version = "0.1.0"

func main() {
	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.HTTPAddr, "http-addr", "", "override HTTP_ADDR")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "override LOG_LEVEL")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "override DATABASE_URL")
	flag.StringVar(&overrides.RedisURL, "redis-url", "", "override REDIS_URL")
	flag.Parse()

	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)

	if cfg.AuthTokenGenerated {
		log.Warn().Msg("AUTH_TOKEN not set; generated a one-time token for this process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	kvStore, err := kv.Connect(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect kv store")
	}
	defer kvStore.Close()

	store, err := storage.New(ctx, storage.Config{
		Region:          cfg.AWSRegion,
		Bucket:          cfg.S3Bucket,
		Endpoint:        cfg.S3Endpoint,
		ForcePathStyle:  cfg.S3ForcePathStyle,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect object store")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatal().Err(err).Msg("load aws config for sqs")
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	var detector vad.Detector
	if cfg.VADModelPath != "" {
		silero, err := vad.NewSilero(cfg.VADModelPath)
		if err != nil {
			log.Warn().Err(err).Msg("silero model load failed, falling back to energy-threshold VAD")
			detector = vad.NewEnergyDetector()
		} else {
			detector = silero
		}
	} else {
		detector = vad.NewEnergyDetector()
	}
	vadParams := vad.DefaultParams()
	vadParams.SampleRate = cfg.VADSampleRate
	vadParams.MinSpeechMS = cfg.VADMinSpeechMS
	vadParams.MinSilenceMS = cfg.VADMinSilenceMS
	vadParams.Threshold = cfg.VADThreshold
	vadParams.PadMS = cfg.VADPadMS

	batches := ingest.NewBatchManager(db, cfg.BatchGap)

	vadRunner := ingest.NewVADRunner(ingest.VADRunnerOptions{
		DB:        db,
		Store:     store,
		Detector:  detector,
		Params:    vadParams,
		Batches:   batches,
		Workers:   cfg.VADWorkers,
		QueueSize: cfg.VADQueueSize,
		Log:       log,
	})
	defer vadRunner.Stop()

	consumer := ingest.NewQueueConsumer(ingest.QueueConsumerOptions{
		SQS:         sqsClient,
		QueueURL:    cfg.SQSQueueURL,
		WaitTime:    cfg.SQSWaitTime,
		Visibility:  cfg.SQSVisibilityTime,
		MaxMessages: cfg.SQSMaxMessages,
		DB:          db,
		Store:       store,
		VAD:         vadRunner,
		Batches:     batches,
		Log:         log,
	})

	reconciler := ingest.NewReconciler(store, db, consumer, cfg.ReconcileInterval, cfg.ReconcileWindow, log)
	recoverer := ingest.NewRecoverer(db, cfg.BatchRecoverTick, cfg.BatchRecoverGrace, cfg.MaxBatchRetries, log)

	deepgram := transcribe.NewDeepgramClient(cfg.DeepgramAPIKey, cfg.VendorTimeout)
	pyannote := transcribe.NewPyannoteClient(cfg.PyannoteURL, cfg.PyannoteAPIKey, cfg.VendorTimeout, cfg.PyannotePollTick, cfg.PyannoteMaxWait)

	monitor := transcribe.NewMonitor(transcribe.MonitorOptions{
		DB:                db,
		Store:             store,
		TranscriptVendor:  deepgram,
		DiarizationVendor: pyannote,
		Timeouts:          transcribe.DefaultVendorTimeouts(),
		SentenceGapS:      cfg.SentenceGap,
		BatchTimeout:      cfg.BatchTimeout,
		Log:               log,
	})

	llmClient := llm.New(cfg.LLMURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, log)

	an := analyzer.New(analyzer.Options{
		DB:        db,
		LLM:       llmClient,
		Interval:  cfg.AnalyzeInterval,
		BatchSize: cfg.AnalyzeBatchSize,
		EventGap:  cfg.EventGap,
		Log:       log,
	})

	reflector := analyzer.NewReflectionSweeper(analyzer.ReflectionOptions{
		DB:    db,
		LLM:   llmClient,
		Tick:  cfg.ReflectionTick,
		Delay: cfg.ReflectionDelay,
		Log:   log,
	})

	calc := mentalstate.New(mentalstate.Options{
		DB:              db,
		KV:              kvStore,
		DefaultTimezone: cfg.DefaultTimezone,
		Log:             log,
	})

	if cfg.MetricsEnabled {
		prometheus.MustRegister(metrics.NewCollector(db.Pool, db))
	}

	startTime := time.Now()
	handler := api.NewServer(cfg, db, kvStore, store, an, calc, version, startTime, log)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go consumer.Run(ctx)
	go reconciler.Run(ctx)
	go recoverer.Run(ctx)
	go monitor.Run(ctx)
	go an.Run(ctx)
	go reflector.Run(ctx)

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
}
