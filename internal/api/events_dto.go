package api

import (
	"time"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

// EventDTO is the JSON-tagged wire shape for an EventRow (§6). EventRow
// itself carries no json tags since it is also the relational scan target.
type EventDTO struct {
	ID                 string    `json:"id"`
	Username            string    `json:"username"`
	EventStatus         string    `json:"event_status"`
	StartTimestamp      time.Time `json:"start_timestamp"`
	EndTimestamp        time.Time `json:"end_timestamp"`
	LastProcessedAt     time.Time `json:"last_processed_at"`
	TimeRange           string    `json:"time_range"`
	DurationMinutes     float64   `json:"duration_minutes"`
	Title               string    `json:"title"`
	Summary             string    `json:"summary"`
	Story               string    `json:"story"`
	Location            string    `json:"location"`
	ActivityType        string    `json:"activity_type"`
	InteractionDynamic  string    `json:"interaction_dynamic"`
	InferredImpact      string    `json:"inferred_impact"`
	TopicLabels         []string  `json:"topic_labels"`
	MoodLabels          []string  `json:"mood_labels"`
	PeopleInvolved      []string  `json:"people_involved"`
	OneSentenceSummary  string    `json:"one_sentence_summary"`
	ActionItem          string    `json:"action_item"`
	MoodScore           float64   `json:"mood_score"`
	StressLevel         float64   `json:"stress_level"`
	EnergyLevel         float64   `json:"energy_level"`
}

func newEventDTO(e database.EventRow) EventDTO {
	return EventDTO{
		ID:                 e.ID.String(),
		Username:            e.Username,
		EventStatus:         e.EventStatus,
		StartTimestamp:      e.StartTimestamp,
		EndTimestamp:        e.EndTimestamp,
		LastProcessedAt:     e.LastProcessedAt,
		TimeRange:           e.TimeRange,
		DurationMinutes:     e.DurationMinutes,
		Title:               e.Title,
		Summary:             e.Summary,
		Story:               e.Story,
		Location:            e.Location,
		ActivityType:        e.ActivityType,
		InteractionDynamic:  e.InteractionDynamic,
		InferredImpact:      e.InferredImpact,
		TopicLabels:         e.TopicLabels,
		MoodLabels:          e.MoodLabels,
		PeopleInvolved:      e.PeopleInvolved,
		OneSentenceSummary:  e.OneSentenceSummary,
		ActionItem:          e.ActionItem,
		MoodScore:           e.MoodScore,
		StressLevel:         e.StressLevel,
		EnergyLevel:         e.EnergyLevel,
	}
}

func newEventDTOs(rows []database.EventRow) []EventDTO {
	out := make([]EventDTO, len(rows))
	for i, e := range rows {
		out[i] = newEventDTO(e)
	}
	return out
}

// latestProcessedAt returns the max LastProcessedAt among rows, zero time if empty.
func latestProcessedAt(rows []database.EventRow) time.Time {
	var latest time.Time
	for _, e := range rows {
		if e.LastProcessedAt.After(latest) {
			latest = e.LastProcessedAt
		}
	}
	return latest
}
