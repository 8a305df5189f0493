package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nirva-labs/nirva-pipeline/internal/analyzer"
	"github.com/nirva-labs/nirva-pipeline/internal/authctx"
	"github.com/nirva-labs/nirva-pipeline/internal/config"
	"github.com/nirva-labs/nirva-pipeline/internal/database"
	"github.com/nirva-labs/nirva-pipeline/internal/kv"
	"github.com/nirva-labs/nirva-pipeline/internal/mentalstate"
	"github.com/nirva-labs/nirva-pipeline/internal/metrics"
	"github.com/nirva-labs/nirva-pipeline/internal/storage"
)

// NewServer builds the full HTTP router (§6): health and metrics are
// unauthenticated; the five operational endpoints sit behind bearer auth
// and a request-scoped caller identity resolved by internal/authctx.
func NewServer(cfg *config.Config, db *database.DB, kvStore *kv.Store, store *storage.Store, an *analyzer.Analyzer, calc *mentalstate.Calculator, version string, startTime time.Time, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	var origins []string
	if cfg.CORSOrigins != "" {
		for _, o := range strings.Split(cfg.CORSOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer)
	r.Use(CORSWithOrigins(origins))
	r.Use(RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
	r.Use(ResponseTimeout(cfg.WriteTimeout))
	r.Use(MaxBodySize(10 << 20))
	if cfg.MetricsEnabled {
		r.Use(metrics.InstrumentHandler)
	}

	health := NewHealthHandler(db, kvStore, store, version, startTime)
	r.Get("/api/v1/health", health.ServeHTTP)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	analyzeHandler := NewAnalyzeHandler(an)
	eventsHandler := NewEventsHandler(db)
	mentalStateHandler := NewMentalStateHandler(calc)
	transcriptionsHandler := NewTranscriptionsHandler(db)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		r.Use(authctx.Middleware)

		r.Post("/action/analyze/incremental/v1/", analyzeHandler.Incremental)
		r.Post("/action/analyze/events/get/v1/", eventsHandler.Get)
		r.Get("/action/get_events_by_date/v1/", eventsHandler.GetByDate)
		r.Get("/api/insights/mental-state", mentalStateHandler.ServeHTTP)
		r.Get("/api/v1/transcriptions", transcriptionsHandler.ServeHTTP)
	})

	return r
}
