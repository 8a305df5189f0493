package mentalstate

// Recommendation is one actionable suggestion (§4.4 "Derived outputs:
// Recommendations"). At most three are ever returned.
type Recommendation struct {
	Kind    string
	Message string
}

const maxRecommendations = 3

// buildRecommendations chooses recommendations by rule from the current
// state, the sustained trend over recent samples, and detected patterns, in
// that priority order, then truncates to maxRecommendations.
func buildRecommendations(current Sample, recent []Sample, patterns []Pattern) []Recommendation {
	var recs []Recommendation

	if isBurnout(current) {
		recs = append(recs, Recommendation{
			Kind:    "urgent_break",
			Message: "Take an urgent break: energy is very low and stress is very high.",
		})
	}
	if current.Energy < 4 {
		recs = append(recs, Recommendation{
			Kind:    "low_energy",
			Message: "Energy is low. A short walk or rest may help.",
		})
	}
	if current.Stress > 7 {
		recs = append(recs, Recommendation{
			Kind:    "breathing",
			Message: "Stress is high. Try a few minutes of slow breathing.",
		})
	}

	if sustainedHighStress(recent) {
		recs = append(recs, Recommendation{
			Kind:    "schedule_recovery",
			Message: "Stress has stayed elevated across recent samples. Schedule recovery time.",
		})
	}

	for _, p := range patterns {
		switch p.Name {
		case "afternoon_dip":
			recs = append(recs, Recommendation{Kind: p.Name, Message: "Energy often dips in the afternoon. Plan lighter tasks then."})
		case "morning_stress":
			recs = append(recs, Recommendation{Kind: p.Name, Message: "Mornings tend to run stressful. Consider an earlier wind-up routine."})
		}
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// sustainedHighStress reports whether the last 3 samples all have
// stress > 6 (§4.4 "Recommendations": "sustained trend ... last 3 samples
// stress>6").
func sustainedHighStress(recent []Sample) bool {
	if len(recent) < 3 {
		return false
	}
	last3 := recent[len(recent)-3:]
	for _, s := range last3 {
		if s.Stress <= 6 {
			return false
		}
	}
	return true
}
