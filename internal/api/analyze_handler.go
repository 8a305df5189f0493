package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/nirva-labs/nirva-pipeline/internal/analyzer"
	"github.com/nirva-labs/nirva-pipeline/internal/authctx"
)

// AnalyzeHandler serves POST /action/analyze/incremental/v1/ (§6): runs C4
// immediately against one externally-submitted transcript-shaped payload.
type AnalyzeHandler struct {
	analyzer *analyzer.Analyzer
}

func NewAnalyzeHandler(a *analyzer.Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: a}
}

type incrementalRequest struct {
	TimeStamp     time.Time `json:"time_stamp"`
	NewTranscript string    `json:"new_transcript"`
}

type incrementalResponse struct {
	UpdatedEventsCount int    `json:"updated_events_count"`
	NewEventsCount     int    `json:"new_events_count"`
	TotalEventsCount   int    `json:"total_events_count"`
	Message            string `json:"message"`
}

// Incremental handles POST /action/analyze/incremental/v1/.
func (h *AnalyzeHandler) Incremental(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	username, ok := authctx.Username(r.Context())
	if !ok {
		WriteErrorWithCode(w, http.StatusUnauthorized, ErrUnauthorized, "missing caller identity")
		return
	}

	var req incrementalRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "invalid request body")
		return
	}
	if req.NewTranscript == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "new_transcript is required")
		return
	}

	ts := req.TimeStamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	result, err := h.analyzer.AnalyzeIncremental(r.Context(), username, analyzer.NewTranscriptInput{
		StartTime: ts,
		EndTime:   ts,
		Text:      req.NewTranscript,
	})
	if err != nil {
		log.Error().Err(err).Msg("incremental analysis failed")
		WriteError(w, http.StatusInternalServerError, "incremental analysis failed")
		return
	}

	WriteJSON(w, http.StatusOK, incrementalResponse{
		UpdatedEventsCount: result.UpdatedEventsCount,
		NewEventsCount:     result.NewEventsCount,
		TotalEventsCount:   result.TotalEventsCount,
		Message:            "analysis complete",
	})
}
