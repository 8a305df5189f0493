package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/nirva-labs/nirva-pipeline/internal/authctx"
	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

// EventsHandler serves the event-retrieval endpoints (§6):
// POST /action/analyze/events/get/v1/ and GET /action/get_events_by_date/v1/.
type EventsHandler struct {
	db *database.DB
}

func NewEventsHandler(db *database.DB) *EventsHandler {
	return &EventsHandler{db: db}
}

type eventsGetRequest struct {
	TimeStamp time.Time `json:"time_stamp"`
}

type eventsGetResponse struct {
	Events      []EventDTO `json:"events"`
	TotalCount  int        `json:"total_count"`
	LastUpdated time.Time  `json:"last_updated"`
}

// Get handles POST /action/analyze/events/get/v1/. The request carries only
// a window start; the window runs from time_stamp through now, served by
// the same ListEventsInWindow overlap query C5 uses (events whose span
// touches [time_stamp, now], both ends inclusive).
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	username, ok := authctx.Username(r.Context())
	if !ok {
		WriteErrorWithCode(w, http.StatusUnauthorized, ErrUnauthorized, "missing caller identity")
		return
	}

	var req eventsGetRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "invalid request body")
		return
	}
	if req.TimeStamp.IsZero() {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "time_stamp is required")
		return
	}

	now := time.Now().UTC()
	events, err := h.db.ListEventsInWindow(r.Context(), username, req.TimeStamp, now)
	if err != nil {
		log.Error().Err(err).Msg("list events in window failed")
		WriteError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	WriteJSON(w, http.StatusOK, eventsGetResponse{
		Events:      newEventDTOs(events),
		TotalCount:  len(events),
		LastUpdated: latestProcessedAt(events),
	})
}

type eventsByDateResponse struct {
	Events []EventDTO `json:"events"`
	Date   string     `json:"date"`
}

// GetByDate handles GET /action/get_events_by_date/v1/?date=YYYY-MM-DD&timezone=IANA.
func (h *EventsHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	username, ok := authctx.Username(r.Context())
	if !ok {
		WriteErrorWithCode(w, http.StatusUnauthorized, ErrUnauthorized, "missing caller identity")
		return
	}

	dateStr, ok := QueryString(r, "date")
	if !ok {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "date is required (YYYY-MM-DD)")
		return
	}
	tzName := r.URL.Query().Get("timezone")
	if tzName == "" {
		tzName = "UTC"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "invalid timezone")
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.Add(24 * time.Hour)

	filter := database.EventFilter{Location: r.URL.Query().Get("location")}
	if activityTypes := r.URL.Query().Get("activity_type"); activityTypes != "" {
		filter.ActivityTypes = strings.Split(activityTypes, ",")
	}

	events, err := h.db.ListEventsByLocalDateFiltered(r.Context(), username, dayStart, dayEnd, filter)
	if err != nil {
		log.Error().Err(err).Msg("list events by date failed")
		WriteError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	WriteJSON(w, http.StatusOK, eventsByDateResponse{
		Events: newEventDTOs(events),
		Date:   dateStr,
	})
}
