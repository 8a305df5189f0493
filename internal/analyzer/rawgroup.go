package analyzer

import (
	"fmt"
	"strings"
	"time"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

// rawGroup is a time-adjacent cluster of transcripts within a day's group,
// the unit the continue/complete/new-ongoing logic operates on (§4.3 step 4).
type rawGroup struct {
	StartTime time.Time
	EndTime   time.Time
	Text      string
}

// concatenateGroup renders each transcript as "[HH:MM] {text}" and joins
// with single spaces (§4.3 step 3). The transcript's own text already
// carries fine-grained per-sentence timestamps from the merge algorithm
// (§4.2); this outer marker is an additional orientation hint.
func concatenateGroup(items []database.TranscriptionResultRow) string {
	parts := make([]string, len(items))
	for i, t := range items {
		parts[i] = fmt.Sprintf("[%s] %s", t.StartTime.UTC().Format("15:04"), t.TranscriptText)
	}
	return strings.Join(parts, " ")
}

// buildRawGroups walks the transcripts in chronological order and starts a
// new raw group whenever the gap from the previous transcript's end_time
// exceeds eventGap (§4.3 step 4). Each transcript becomes one time-text
// chunk prefixed with the same "[HH:MM]" marker format concatenateGroup
// uses; operating on the structured rows directly avoids re-parsing those
// markers out of a joined string.
func buildRawGroups(items []database.TranscriptionResultRow, eventGap time.Duration) []rawGroup {
	if len(items) == 0 {
		return nil
	}

	var groups []rawGroup
	cur := rawGroup{
		StartTime: items[0].StartTime,
		EndTime:   items[0].EndTime,
		Text:      fmt.Sprintf("[%s] %s", items[0].StartTime.UTC().Format("15:04"), items[0].TranscriptText),
	}

	for i := 1; i < len(items); i++ {
		t := items[i]
		chunk := fmt.Sprintf("[%s] %s", t.StartTime.UTC().Format("15:04"), t.TranscriptText)
		if t.StartTime.Sub(cur.EndTime) > eventGap {
			groups = append(groups, cur)
			cur = rawGroup{StartTime: t.StartTime, EndTime: t.EndTime, Text: chunk}
			continue
		}
		cur.EndTime = t.EndTime
		cur.Text += " " + chunk
	}
	groups = append(groups, cur)
	return groups
}
