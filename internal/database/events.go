package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventRow struct {
	ID                 uuid.UUID
	Username           string
	EventStatus        string
	StartTimestamp     time.Time
	EndTimestamp       time.Time
	LastProcessedAt    time.Time
	TimeRange          string
	DurationMinutes    float64
	Title              string
	Summary            string
	Story              string
	Location           string
	ActivityType       string
	InteractionDynamic string
	InferredImpact     string
	TopicLabels        []string
	MoodLabels         []string
	PeopleInvolved     []string
	OneSentenceSummary string
	ActionItem         string
	MoodScore          float64
	StressLevel        float64
	EnergyLevel        float64
}

func marshalOrEmptyArray(v []string) json.RawMessage {
	if v == nil {
		return json.RawMessage(`[]`)
	}
	raw, _ := json.Marshal(v)
	return raw
}

// UpsertEvent inserts a new event (ID zero-value) or updates an existing one
// by id, per §4.3 step 7 ("upsert by event_id").
func (db *DB) UpsertEvent(ctx context.Context, e EventRow) (uuid.UUID, error) {
	topics := marshalOrEmptyArray(e.TopicLabels)
	moods := marshalOrEmptyArray(e.MoodLabels)
	people := marshalOrEmptyArray(e.PeopleInvolved)

	if e.ID == uuid.Nil {
		var id uuid.UUID
		err := db.Pool.QueryRow(ctx, `
			INSERT INTO events
				(username, event_status, start_timestamp, end_timestamp, last_processed_at,
				 time_range, duration_minutes, title, summary, story, location, activity_type,
				 interaction_dynamic, inferred_impact, topic_labels, mood_labels, people_involved,
				 one_sentence_summary, action_item, mood_score, stress_level, energy_level)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
			RETURNING id
		`, e.Username, e.EventStatus, e.StartTimestamp, e.EndTimestamp, e.LastProcessedAt,
			e.TimeRange, e.DurationMinutes, e.Title, e.Summary, e.Story, e.Location, e.ActivityType,
			e.InteractionDynamic, e.InferredImpact, topics, moods, people,
			e.OneSentenceSummary, e.ActionItem, e.MoodScore, e.StressLevel, e.EnergyLevel).Scan(&id)
		return id, err
	}

	_, err := db.Pool.Exec(ctx, `
		UPDATE events SET
			event_status = $2, start_timestamp = $3, end_timestamp = $4, last_processed_at = $5,
			time_range = $6, duration_minutes = $7, title = $8, summary = $9, story = $10,
			location = $11, activity_type = $12, interaction_dynamic = $13, inferred_impact = $14,
			topic_labels = $15, mood_labels = $16, people_involved = $17,
			one_sentence_summary = $18, action_item = $19, mood_score = $20, stress_level = $21,
			energy_level = $22
		WHERE id = $1
	`, e.ID, e.EventStatus, e.StartTimestamp, e.EndTimestamp, e.LastProcessedAt,
		e.TimeRange, e.DurationMinutes, e.Title, e.Summary, e.Story, e.Location, e.ActivityType,
		e.InteractionDynamic, e.InferredImpact, topics, moods, people,
		e.OneSentenceSummary, e.ActionItem, e.MoodScore, e.StressLevel, e.EnergyLevel)
	return e.ID, err
}

func scanEvent(row interface{ Scan(...any) error }) (EventRow, error) {
	var e EventRow
	var topics, moods, people []byte
	err := row.Scan(&e.ID, &e.Username, &e.EventStatus, &e.StartTimestamp, &e.EndTimestamp,
		&e.LastProcessedAt, &e.TimeRange, &e.DurationMinutes, &e.Title, &e.Summary, &e.Story,
		&e.Location, &e.ActivityType, &e.InteractionDynamic, &e.InferredImpact,
		&topics, &moods, &people, &e.OneSentenceSummary, &e.ActionItem,
		&e.MoodScore, &e.StressLevel, &e.EnergyLevel)
	if err != nil {
		return e, err
	}
	_ = json.Unmarshal(topics, &e.TopicLabels)
	_ = json.Unmarshal(moods, &e.MoodLabels)
	_ = json.Unmarshal(people, &e.PeopleInvolved)
	return e, nil
}

const eventColumns = `id, username, event_status, start_timestamp, end_timestamp, last_processed_at,
	time_range, duration_minutes, title, summary, story, location, activity_type,
	interaction_dynamic, inferred_impact, topic_labels, mood_labels, people_involved,
	one_sentence_summary, action_item, mood_score, stress_level, energy_level`

// ListOngoingEvents returns all `ongoing` events for a user (§4.3 step 5).
func (db *DB) ListOngoingEvents(ctx context.Context, username string) ([]EventRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+eventColumns+` FROM events WHERE username = $1 AND event_status = 'ongoing'
		ORDER BY start_timestamp
	`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListEventsInWindow returns non-dropped events overlapping [from, to],
// used by C5 to gather event impacts (§4.4 layer 2).
func (db *DB) ListEventsInWindow(ctx context.Context, username string, from, to time.Time) ([]EventRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE username = $1 AND event_status != 'dropped'
		  AND start_timestamp <= $3 AND end_timestamp >= $2
		ORDER BY start_timestamp
	`, username, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListEventsByLocalDate returns non-dropped events for a user on a calendar
// date, used by the get_events_by_date API (§6).
func (db *DB) ListEventsByLocalDate(ctx context.Context, username string, dayStart, dayEnd time.Time) ([]EventRow, error) {
	return db.ListEventsByLocalDateFiltered(ctx, username, dayStart, dayEnd, EventFilter{})
}

// EventFilter narrows ListEventsByLocalDateFiltered to a subset of a day's
// events; zero-value fields impose no filter (the "IS NULL OR ..." idiom).
type EventFilter struct {
	ActivityTypes []string
	Location      string
}

// ListEventsByLocalDateFiltered is ListEventsByLocalDate plus optional
// activity-type and location narrowing, used by the get_events_by_date API
// (§6) when the caller passes `activity_type`/`location` query params.
func (db *DB) ListEventsByLocalDateFiltered(ctx context.Context, username string, dayStart, dayEnd time.Time, filter EventFilter) ([]EventRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE username = $1 AND event_status != 'dropped'
		  AND start_timestamp < $3 AND end_timestamp >= $2
		  AND ($4::text[] IS NULL OR activity_type = ANY($4))
		  AND ($5::text IS NULL OR location = $5)
		ORDER BY start_timestamp
	`, username, dayStart, dayEnd, pqStringArray(filter.ActivityTypes), pqString(filter.Location))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEventsForUser returns the user's total non-dropped event count, used
// in the incremental-analyze response envelope (§4.3 step 8).
func (db *DB) CountEventsForUser(ctx context.Context, username string) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM events WHERE username = $1 AND event_status != 'dropped'
	`, username).Scan(&n)
	return n, err
}

// CountEventsByStatus reports the live total event count across all users in
// a given event_status, used by the metrics collector's scrape-time gauges.
func (db *DB) CountEventsByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM events WHERE event_status = $1`, status).Scan(&n)
	return n, err
}

// ReflectionCandidate is a (user, local_date) pair whose completed events
// have stabilized and have no reflection yet (added feature).
type ReflectionCandidate struct {
	Username  string
	LocalDate time.Time
}

// ListReflectionCandidates finds days whose completed events last changed at
// least delay ago and that the daily reflection pass has not yet processed.
func (db *DB) ListReflectionCandidates(ctx context.Context, delay time.Duration) ([]ReflectionCandidate, error) {
	cutoff := time.Now().UTC().Add(-delay)
	rows, err := db.Pool.Query(ctx, `
		WITH stable AS (
			SELECT username, (start_timestamp AT TIME ZONE 'UTC')::date AS local_date,
			       max(last_processed_at) AS last_touch
			FROM events
			WHERE event_status = 'completed'
			GROUP BY username, local_date
		)
		SELECT s.username, s.local_date
		FROM stable s
		LEFT JOIN daily_reflections dr ON dr.username = s.username AND dr.local_date = s.local_date
		WHERE s.last_touch < $1 AND dr.username IS NULL
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReflectionCandidate
	for rows.Next() {
		var c ReflectionCandidate
		if err := rows.Scan(&c.Username, &c.LocalDate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
