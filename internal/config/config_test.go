package config

import (
	"os"
	"testing"
)

func requiredEnvs() map[string]string {
	return map[string]string{
		"DATABASE_URL":     "postgres://localhost/test",
		"REDIS_URL":        "redis://localhost:6379/0",
		"S3_BUCKET":        "nirva-audio",
		"SQS_QUEUE_URL":    "https://sqs.us-east-1.amazonaws.com/123456789012/nirva-uploads",
		"DEEPGRAM_API_KEY": "dg-test-key",
		"PYANNOTE_API_KEY": "pa-test-key",
		"LLM_URL":          "https://llm.example.com/v1/chat/completions",
	}
}

func TestLoad(t *testing.T) {
	cleanup := setEnvs(t, requiredEnvs())
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":8080" {
			t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.BatchGap.String() != "5m0s" {
			t.Errorf("BatchGap = %v, want 5m0s", cfg.BatchGap)
		}
		if cfg.BatchTimeout != cfg.BatchGap {
			t.Errorf("BatchTimeout (%v) should default equal to BatchGap (%v)", cfg.BatchTimeout, cfg.BatchGap)
		}
		if cfg.EventGap.String() != "10m0s" {
			t.Errorf("EventGap = %v, want 10m0s", cfg.EventGap)
		}
		if cfg.MaxBatchRetries != 3 {
			t.Errorf("MaxBatchRetries = %d, want 3", cfg.MaxBatchRetries)
		}
		if cfg.DefaultTimezone != "UTC" {
			t.Errorf("DefaultTimezone = %q, want UTC", cfg.DefaultTimezone)
		}
		if cfg.DBMaxConns != 20 || cfg.DBMinConns != 4 {
			t.Errorf("DBMaxConns/DBMinConns = %d/%d, want 20/4", cfg.DBMaxConns, cfg.DBMinConns)
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:     "nonexistent.env",
			HTTPAddr:    ":9090",
			LogLevel:    "debug",
			DatabaseURL: "postgres://override/db",
			RedisURL:    "redis://override:6379/0",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPAddr != ":9090" {
			t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
		}
		if cfg.DatabaseURL != "postgres://override/db" {
			t.Errorf("DatabaseURL = %q, want override", cfg.DatabaseURL)
		}
		if cfg.RedisURL != "redis://override:6379/0" {
			t.Errorf("RedisURL = %q, want override", cfg.RedisURL)
		}
	})

	t.Run("empty_overrides_use_env", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.DatabaseURL != "postgres://localhost/test" {
			t.Errorf("DatabaseURL = %q, want env value", cfg.DatabaseURL)
		}
	})
}

func TestLoadMissingRequired(t *testing.T) {
	cleanup := setEnvs(t, requiredEnvs())
	defer cleanup()
	os.Unsetenv("DATABASE_URL")

	_, err := Load(Overrides{EnvFile: "nonexistent.env"})
	if err == nil {
		t.Error("expected error when required env vars are missing")
	}
}

func TestValidate(t *testing.T) {
	cleanup := setEnvs(t, requiredEnvs())
	defer cleanup()

	cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}

	cfg.MaxBatchRetries = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to reject MaxBatchRetries = 0")
	}
	cfg.MaxBatchRetries = 3

	cfg.DBMinConns = 10
	cfg.DBMaxConns = 5
	if err := cfg.Validate(); err == nil {
		t.Error("expected Validate to reject DBMaxConns < DBMinConns")
	}
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
