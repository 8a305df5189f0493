package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/nirva-labs/nirva-pipeline/internal/authctx"
	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

// TranscriptionsHandler serves GET /api/v1/transcriptions (§6).
type TranscriptionsHandler struct {
	db *database.DB
}

func NewTranscriptionsHandler(db *database.DB) *TranscriptionsHandler {
	return &TranscriptionsHandler{db: db}
}

type transcriptionDTO struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	BatchID        string    `json:"batch_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	TranscriptText string    `json:"transcript_text"`
	Confidence     float64   `json:"confidence"`
	Language       string    `json:"language"`
	SegmentCount   int       `json:"segment_count"`
	AnalysisStatus string    `json:"analysis_status"`
}

func newTranscriptionDTO(t database.TranscriptionResultRow) transcriptionDTO {
	return transcriptionDTO{
		ID:             t.ID.String(),
		Username:       t.Username,
		BatchID:        t.BatchID.String(),
		StartTime:      t.StartTime,
		EndTime:        t.EndTime,
		TranscriptText: t.TranscriptText,
		Confidence:     t.Confidence,
		Language:       t.Language,
		SegmentCount:   t.SegmentCount,
		AnalysisStatus: t.AnalysisStatus,
	}
}

type transcriptionsResponse struct {
	Transcriptions []transcriptionDTO `json:"transcriptions"`
	Page           int                `json:"page"`
	PageSize       int                `json:"page_size"`
	TotalCount     int                `json:"total_count"`
}

// ServeHTTP handles GET /api/v1/transcriptions?page&page_size&start_date&end_date.
func (h *TranscriptionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	username, ok := authctx.Username(r.Context())
	if !ok {
		WriteErrorWithCode(w, http.StatusUnauthorized, ErrUnauthorized, "missing caller identity")
		return
	}

	page := 1
	if v, ok := QueryInt(r, "page"); ok && v > 0 {
		page = v
	}
	pageSize := 50
	if v, ok := QueryInt(r, "page_size"); ok && v > 0 {
		pageSize = v
	}

	var start, end *time.Time
	if v, ok := QueryTime(r, "start_date"); ok {
		start = &v
	}
	if v, ok := QueryTime(r, "end_date"); ok {
		end = &v
	}

	rows, total, err := h.db.ListTranscriptionsPage(r.Context(), username, start, end, page, pageSize)
	if err != nil {
		log.Error().Err(err).Msg("list transcriptions failed")
		WriteError(w, http.StatusInternalServerError, "failed to list transcriptions")
		return
	}

	dtos := make([]transcriptionDTO, len(rows))
	for i, row := range rows {
		dtos[i] = newTranscriptionDTO(row)
	}

	WriteJSON(w, http.StatusOK, transcriptionsResponse{
		Transcriptions: dtos,
		Page:           page,
		PageSize:       pageSize,
		TotalCount:     total,
	})
}
