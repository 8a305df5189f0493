package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
	"github.com/nirva-labs/nirva-pipeline/internal/kv"
	"github.com/nirva-labs/nirva-pipeline/internal/storage"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

// HealthHandler reports liveness of the three external dependencies the
// pipeline cannot run without: the relational store, the kv store, and the
// object store (§4, §7).
type HealthHandler struct {
	db        *database.DB
	kv        *kv.Store
	store     *storage.Store
	version   string
	startTime time.Time
}

func NewHealthHandler(db *database.DB, kvStore *kv.Store, store *storage.Store, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		kv:        kvStore,
		store:     store,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.HealthCheck(r.Context()); err != nil {
		checks["database"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.kv != nil {
		if err := h.kv.Ping(r.Context()); err != nil {
			checks["kv"] = "error"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["kv"] = "ok"
		}
	} else {
		checks["kv"] = "not_configured"
	}

	if h.store != nil {
		if err := h.store.HeadBucket(r.Context()); err != nil {
			checks["object_store"] = "error"
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["object_store"] = "ok"
		}
	} else {
		checks["object_store"] = "not_configured"
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(resp)
}
