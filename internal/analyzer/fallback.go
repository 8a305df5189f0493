package analyzer

import "github.com/nirva-labs/nirva-pipeline/internal/llm"

// fallbackOngoing is the deterministic substitute used when the LLM vendor
// fails on a continue or new-ongoing call (§4.3 "LLM contract": "substitutes
// a deterministic fallback ... rather than aborting the cycle").
func fallbackOngoing() llm.OngoingEventOutput {
	return llm.OngoingEventOutput{
		EventTitle:   "Untitled activity",
		EventSummary: "Activity recorded but not yet summarized.",
		EventStory:   "",
	}
}

// fallbackCompleted is the deterministic substitute for the completion call,
// using the defaults named in §4.3 step 6 for new-ongoing events
// (activity_type unknown, mood neutral, scores 7/5/7) since no richer
// default is specified for the completion path.
func fallbackCompleted() llm.CompletedEventOutput {
	return llm.CompletedEventOutput{
		EventTitle:         "Untitled activity",
		EventSummary:       "Activity recorded but not yet summarized.",
		EventStory:         "",
		Location:           "unspecified",
		PeopleInvolved:     nil,
		ActivityType:       "unknown",
		InteractionDynamic: "",
		InferredImpact:     "",
		TopicLabels:        nil,
		MoodLabels:         []string{"neutral"},
		OneSentenceSummary: "",
		ActionItem:         "",
		MoodScore:          7,
		StressLevel:        5,
		EnergyLevel:        7,
	}
}
