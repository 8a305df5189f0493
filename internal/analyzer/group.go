// Package analyzer implements the incremental event analyzer: a background
// loop that turns pending TranscriptionResults into a growing set of
// Events, calling out to the LLM vendor for narrative synthesis. Uses the
// common ticker-plus-context-scoped-goroutine loop shape; the
// grouping/merge logic itself is built fresh since no other part of this
// system has an event-narrative concept.
package analyzer

import (
	"time"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
)

// transcriptGroup is one (user, local_date) bucket of pending transcripts,
// ready for raw-group splitting (§4.3 step 1).
type transcriptGroup struct {
	Username  string
	LocalDate string // YYYY-MM-DD, always UTC per Open Question (i)
	Items     []database.TranscriptionResultRow
}

// groupByUserAndDate groups transcripts by (user, local_date_of(start_time))
// where the local date is always derived from start_time in UTC — see
// DESIGN.md Open Question (i). The incremental-analyze request's
// `time_stamp` becomes the submitted transcript's start_time and end_time,
// so it reaches this key only through start_time, like any other transcript.
func groupByUserAndDate(transcripts []database.TranscriptionResultRow) []transcriptGroup {
	index := make(map[string]int)
	var groups []transcriptGroup

	for _, t := range transcripts {
		key := t.Username + "|" + localDateUTC(t.StartTime)
		if i, ok := index[key]; ok {
			groups[i].Items = append(groups[i].Items, t)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, transcriptGroup{
			Username:  t.Username,
			LocalDate: localDateUTC(t.StartTime),
			Items:     []database.TranscriptionResultRow{t},
		})
	}
	return groups
}

func localDateUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
