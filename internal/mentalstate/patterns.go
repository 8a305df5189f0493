package mentalstate

// Pattern is one detected recurring behavior (§4.4 "Derived outputs:
// Patterns"). The framework is extensible; these two are the baseline set.
type Pattern struct {
	Name        string
	Description string
}

func detectPatterns(samples []Sample) []Pattern {
	var patterns []Pattern

	if mean, ok := meanEnergyInHourRange(samples, 13, 15); ok && mean < 5 {
		patterns = append(patterns, Pattern{
			Name:        "afternoon_dip",
			Description: "Energy tends to dip in the early afternoon.",
		})
	}
	if mean, ok := meanStressInHourRange(samples, 7, 10); ok && mean > 6 {
		patterns = append(patterns, Pattern{
			Name:        "morning_stress",
			Description: "Stress tends to run high in the morning.",
		})
	}
	return patterns
}

func meanEnergyInHourRange(samples []Sample, fromHour, toHour int) (float64, bool) {
	var sum float64
	var n int
	for _, s := range samples {
		if h := s.Timestamp.Hour(); h >= fromHour && h < toHour {
			sum += s.Energy
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func meanStressInHourRange(samples []Sample, fromHour, toHour int) (float64, bool) {
	var sum float64
	var n int
	for _, s := range samples {
		if h := s.Timestamp.Hour(); h >= fromHour && h < toHour {
			sum += s.Stress
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
