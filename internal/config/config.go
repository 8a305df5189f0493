package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"4"`

	AWSRegion         string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3Bucket          string `env:"S3_BUCKET,required"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3ForcePathStyle  bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`

	SQSQueueURL         string        `env:"SQS_QUEUE_URL,required"`
	SQSWaitTime         time.Duration `env:"SQS_WAIT_TIME" envDefault:"20s"`
	SQSVisibilityTime   time.Duration `env:"SQS_VISIBILITY_TIMEOUT" envDefault:"60s"`
	SQSMaxMessages      int32         `env:"SQS_MAX_MESSAGES" envDefault:"10"`

	// Voice activity detection (C2)
	VADModelPath       string  `env:"VAD_MODEL_PATH"` // empty = fall back to the energy-threshold detector
	VADSampleRate      int     `env:"VAD_SAMPLE_RATE" envDefault:"16000"`
	VADMinSpeechMS     int     `env:"VAD_MIN_SPEECH_MS" envDefault:"250"`
	VADMinSilenceMS    int     `env:"VAD_MIN_SILENCE_MS" envDefault:"100"`
	VADThreshold       float64 `env:"VAD_THRESHOLD" envDefault:"0.08"`
	VADPadMS           int     `env:"VAD_PAD_MS" envDefault:"100"`
	VADWorkers         int     `env:"VAD_WORKERS" envDefault:"4"`
	VADQueueSize       int     `env:"VAD_QUEUE_SIZE" envDefault:"500"`

	// Batch accumulation (C2/C3)
	BatchGap            time.Duration `env:"BATCH_GAP" envDefault:"300s"`
	BatchTimeout        time.Duration `env:"BATCH_TIMEOUT" envDefault:"300s"`
	BatchMonitorTick    time.Duration `env:"BATCH_MONITOR_TICK" envDefault:"10s"`
	BatchRecoverTick    time.Duration `env:"BATCH_RECOVER_TICK" envDefault:"30m"`
	BatchRecoverGrace   time.Duration `env:"BATCH_RECOVER_GRACE" envDefault:"15m"`
	MaxBatchRetries     int           `env:"MAX_BATCH_RETRIES" envDefault:"3"`
	ReconcileInterval   time.Duration `env:"RECONCILE_INTERVAL" envDefault:"300s"`
	ReconcileWindow     time.Duration `env:"RECONCILE_WINDOW" envDefault:"24h"`

	// Transcription vendors (C3)
	DeepgramAPIKey   string        `env:"DEEPGRAM_API_KEY,required"`
	DeepgramModel    string        `env:"DEEPGRAM_MODEL" envDefault:"nova-3"`
	DeepgramURL      string        `env:"DEEPGRAM_URL" envDefault:"https://api.deepgram.com/v1/listen"`
	PyannoteAPIKey   string        `env:"PYANNOTE_API_KEY,required"`
	PyannoteURL      string        `env:"PYANNOTE_URL" envDefault:"https://api.pyannote.ai/v1"`
	PyannoteModel    string        `env:"PYANNOTE_MODEL" envDefault:"precision-1"`
	PyannotePollTick time.Duration `env:"PYANNOTE_POLL_TICK" envDefault:"3s"`
	PyannoteMaxWait  time.Duration `env:"PYANNOTE_MAX_WAIT" envDefault:"10m"`
	VendorTimeout    time.Duration `env:"VENDOR_TIMEOUT" envDefault:"300s"`
	SentenceGap      float64       `env:"SENTENCE_GAP_SECONDS" envDefault:"1.0"`

	TranscribeWorkers   int     `env:"TRANSCRIBE_WORKERS" envDefault:"2"`
	TranscribeQueueSize int     `env:"TRANSCRIBE_QUEUE_SIZE" envDefault:"500"`

	// LLM vendor (C4)
	LLMURL      string        `env:"LLM_URL,required"`
	LLMAPIKey   string        `env:"LLM_API_KEY"`
	LLMModel    string        `env:"LLM_MODEL" envDefault:"gpt-4.1"`
	LLMTimeout  time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`

	// Incremental event analyzer (C4)
	AnalyzeInterval     time.Duration `env:"ANALYZE_INTERVAL" envDefault:"120s"`
	AnalyzeBatchSize    int           `env:"ANALYZE_BATCH_SIZE" envDefault:"1000"`
	EventGap            time.Duration `env:"EVENT_GAP" envDefault:"600s"`
	ReflectionDelay     time.Duration `env:"REFLECTION_DELAY" envDefault:"2h"`
	ReflectionTick      time.Duration `env:"REFLECTION_TICK" envDefault:"15m"`

	// Mental-state calculator (C5)
	DefaultTimezone string `env:"DEFAULT_TIMEZONE" envDefault:"UTC"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthEnabled        bool   `env:"AUTH_ENABLED" envDefault:"true"`
	AuthToken          string `env:"AUTH_TOKEN"`
	AuthTokenGenerated bool
	CORSOrigins        string `env:"CORS_ORIGINS"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
	MetricsEnabled bool    `env:"METRICS_ENABLED" envDefault:"true"`

	// Key/value TTLs (§4.5)
	ContextTTL        time.Duration `env:"CONTEXT_TTL" envDefault:"168h"`
	UploadStagingTTL  time.Duration `env:"UPLOAD_STAGING_TTL" envDefault:"60s"`
}

// Validate checks cross-field invariants not already enforced by required env tags.
func (c *Config) Validate() error {
	if c.BatchGap <= 0 || c.BatchTimeout <= 0 {
		return fmt.Errorf("BATCH_GAP and BATCH_TIMEOUT must be positive")
	}
	if c.MaxBatchRetries < 1 {
		return fmt.Errorf("MAX_BATCH_RETRIES must be >= 1")
	}
	if c.DBMaxConns < c.DBMinConns || c.DBMinConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= DB_MIN_CONNS >= 1")
	}
	return nil
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	RedisURL    string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.RedisURL != "" {
		cfg.RedisURL = overrides.RedisURL
	}

	if !cfg.AuthEnabled {
		cfg.AuthToken = ""
	} else if cfg.AuthToken == "" {
		// Auto-generate so the API is never accidentally exposed unauthenticated.
		// Changes on every restart; set AUTH_TOKEN for a persistent one.
		b := make([]byte, 32)
		if _, err := rand.Read(b); err == nil {
			cfg.AuthToken = base64.URLEncoding.EncodeToString(b)
			cfg.AuthTokenGenerated = true
		}
	}

	return cfg, nil
}
