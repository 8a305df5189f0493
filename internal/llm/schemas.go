package llm

import (
	"context"
	"fmt"
)

// OngoingEventOutput is the schema for the continue and new-ongoing calls
// (§4.3 steps 6): a title/summary/story triple, nothing categorical yet.
type OngoingEventOutput struct {
	EventTitle   string `json:"event_title"`
	EventSummary string `json:"event_summary"`
	EventStory   string `json:"event_story"`
}

// CompletedEventOutput is the schema for the completion call (§4.3 step 6),
// adding the full categorical/metric field set an ongoing event lacks.
type CompletedEventOutput struct {
	EventTitle         string   `json:"event_title"`
	EventSummary       string   `json:"event_summary"`
	EventStory         string   `json:"event_story"`
	Location           string   `json:"location"`
	PeopleInvolved     []string `json:"people_involved"`
	ActivityType       string   `json:"activity_type"`
	InteractionDynamic string   `json:"interaction_dynamic"`
	InferredImpact     string   `json:"inferred_impact"`
	TopicLabels        []string `json:"topic_labels"`
	MoodLabels         []string `json:"mood_labels"`
	OneSentenceSummary string   `json:"one_sentence_summary"`
	ActionItem         string   `json:"action_item"`
	MoodScore          float64  `json:"mood_score"`
	StressLevel        float64  `json:"stress_level"`
	EnergyLevel        float64  `json:"energy_level"`
}

// ReflectionOutput is the schema for the daily reflection pass (added, see
// SPEC_FULL.md §3 DailyReflection trigger).
type ReflectionOutput struct {
	Gratitude      []string `json:"gratitude"`
	Challenges     []string `json:"challenges"`
	Learning       string   `json:"learning"`
	Connections    []string `json:"connections"`
	LookingForward string   `json:"looking_forward"`
}

var ongoingEventSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"event_title":   map[string]any{"type": "string"},
		"event_summary": map[string]any{"type": "string"},
		"event_story":   map[string]any{"type": "string"},
	},
	"required":             []string{"event_title", "event_summary", "event_story"},
	"additionalProperties": false,
}

var completedEventSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"event_title":         map[string]any{"type": "string"},
		"event_summary":       map[string]any{"type": "string"},
		"event_story":         map[string]any{"type": "string"},
		"location":            map[string]any{"type": "string"},
		"people_involved":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"activity_type":       map[string]any{"type": "string"},
		"interaction_dynamic": map[string]any{"type": "string"},
		"inferred_impact":     map[string]any{"type": "string"},
		"topic_labels":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"mood_labels":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"one_sentence_summary": map[string]any{"type": "string"},
		"action_item":         map[string]any{"type": "string"},
		"mood_score":          map[string]any{"type": "number"},
		"stress_level":        map[string]any{"type": "number"},
		"energy_level":        map[string]any{"type": "number"},
	},
	"required": []string{
		"event_title", "event_summary", "event_story", "location", "people_involved",
		"activity_type", "interaction_dynamic", "inferred_impact", "topic_labels",
		"mood_labels", "one_sentence_summary", "action_item", "mood_score",
		"stress_level", "energy_level",
	},
	"additionalProperties": false,
}

var reflectionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"gratitude":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"challenges":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"learning":        map[string]any{"type": "string"},
		"connections":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"looking_forward": map[string]any{"type": "string"},
	},
	"required":             []string{"gratitude", "challenges", "learning", "connections", "looking_forward"},
	"additionalProperties": false,
}

// ContinueEvent runs the continue LLM call (§4.3 step 6): extend an ongoing
// event with a new raw group's text.
func (c *Client) ContinueEvent(ctx context.Context, existingStory, newText string) (*OngoingEventOutput, error) {
	system := "You extend an ongoing personal life event with new activity. Respond only with the requested fields."
	user := fmt.Sprintf("Existing event story so far:\n%s\n\nNew activity to incorporate:\n%s", existingStory, newText)

	var out OngoingEventOutput
	if err := c.Complete(ctx, system, user, "ongoing_event", ongoingEventSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NewOngoingEvent runs the new-ongoing LLM call (§4.3 step 6) for a raw
// group that does not continue any existing event.
func (c *Client) NewOngoingEvent(ctx context.Context, text string) (*OngoingEventOutput, error) {
	system := "You summarize a chunk of a person's day into the start of a new life event. Respond only with the requested fields."
	user := fmt.Sprintf("Activity:\n%s", text)

	var out OngoingEventOutput
	if err := c.Complete(ctx, system, user, "ongoing_event", ongoingEventSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteEvent runs the completion LLM call (§4.3 step 6): finalize an
// ongoing event into the full categorical/metric schema.
func (c *Client) CompleteEvent(ctx context.Context, story string) (*CompletedEventOutput, error) {
	system := "You finalize a personal life event into a structured summary with mood, stress, and energy metrics. Respond only with the requested fields."
	user := fmt.Sprintf("Event story:\n%s", story)

	var out CompletedEventOutput
	if err := c.Complete(ctx, system, user, "completed_event", completedEventSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reflect runs the daily reflection pass call (added, see DESIGN.md).
func (c *Client) Reflect(ctx context.Context, dayNarrative string) (*ReflectionOutput, error) {
	system := "You write a brief end-of-day reflection from a person's completed life events. Respond only with the requested fields."
	user := fmt.Sprintf("Today's events:\n%s", dayNarrative)

	var out ReflectionOutput
	if err := c.Complete(ctx, system, user, "reflection", reflectionSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
