package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
	"github.com/nirva-labs/nirva-pipeline/internal/llm"
	"github.com/nirva-labs/nirva-pipeline/internal/metrics"
)

// Analyzer owns the background loop that drives the per-cycle algorithm
// (§4.3) and can also be invoked synchronously for the incremental-analyze
// API endpoint (§6).
type Analyzer struct {
	db       *database.DB
	llm      *llm.Client
	interval time.Duration
	batch    int
	eventGap time.Duration
	log      zerolog.Logger
}

type Options struct {
	DB       *database.DB
	LLM      *llm.Client
	Interval time.Duration
	BatchSize int
	EventGap time.Duration
	Log      zerolog.Logger
}

func New(opts Options) *Analyzer {
	return &Analyzer{
		db:       opts.DB,
		llm:      opts.LLM,
		interval: opts.Interval,
		batch:    opts.BatchSize,
		eventGap: opts.EventGap,
		log:      opts.Log.With().Str("component", "analyzer").Logger(),
	}
}

// Run wakes every interval and processes up to BatchSize transcripts, then
// sleeps (§4.3 "Scheduling").
func (a *Analyzer) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.RunCycle(ctx); err != nil {
				a.log.Error().Err(err).Msg("analysis cycle failed")
			}
		}
	}
}

// CycleResult is the response envelope's payload (§6, §4.3 step 8).
type CycleResult struct {
	UpdatedEventsCount int
	NewEventsCount     int
	TotalEventsCount   int
}

// RunCycle executes one pass of the per-cycle algorithm (§4.3 steps 1-8)
// over up to a.batch pending transcripts.
func (a *Analyzer) RunCycle(ctx context.Context) (*CycleResult, error) {
	metrics.AnalyzerCyclesTotal.Inc()
	pending, err := a.db.SelectPendingForAnalysis(ctx, a.batch)
	if err != nil {
		return nil, fmt.Errorf("select pending: %w", err)
	}
	if len(pending) == 0 {
		return &CycleResult{}, nil
	}

	groups := groupByUserAndDate(pending)
	result := &CycleResult{}
	touchedUsers := make(map[string]bool)

	for _, g := range groups {
		updated, created, err := a.processGroup(ctx, g)
		if err != nil {
			a.log.Error().Err(err).Str("user", g.Username).Str("date", g.LocalDate).Msg("group processing failed")
			a.markFailed(ctx, g.Items)
			continue
		}
		result.UpdatedEventsCount += updated
		result.NewEventsCount += created
		touchedUsers[g.Username] = true
	}

	for user := range touchedUsers {
		n, err := a.db.CountEventsForUser(ctx, user)
		if err == nil {
			result.TotalEventsCount += n
		}
	}
	return result, nil
}

// processGroup runs §4.3 steps 2-7 for one (user, local_date) group.
func (a *Analyzer) processGroup(ctx context.Context, g transcriptGroup) (updated, created int, err error) {
	ids := make([]uuid.UUID, len(g.Items))
	for i, t := range g.Items {
		ids[i] = t.ID
	}
	if err := a.db.MarkTranscriptsStatus(ctx, ids, "processing", nil); err != nil {
		return 0, 0, fmt.Errorf("claim transcripts: %w", err)
	}

	rawGroups := buildRawGroups(g.Items, a.eventGap)
	ongoing, err := a.db.ListOngoingEvents(ctx, g.Username)
	if err != nil {
		return 0, 0, fmt.Errorf("list ongoing events: %w", err)
	}

	for _, rg := range rawGroups {
		ongoing, updated, created = a.applyRawGroup(ctx, g.Username, rg, ongoing, updated, created)
	}

	now := time.Now().UTC()
	if err := a.db.MarkTranscriptsStatus(ctx, ids, "completed", &now); err != nil {
		return updated, created, fmt.Errorf("mark completed: %w", err)
	}
	return updated, created, nil
}

// applyRawGroup runs §4.3 step 6 for one raw group against the current
// ongoing-event set, returning the (possibly mutated) ongoing set plus
// updated counters.
func (a *Analyzer) applyRawGroup(ctx context.Context, username string, rg rawGroup, ongoing []database.EventRow, updated, created int) ([]database.EventRow, int, int) {
	if idx := findContinuable(ongoing, rg, a.eventGap); idx >= 0 {
		event := ongoing[idx]
		out, err := a.llm.ContinueEvent(ctx, event.Story, rg.Text)
		fb := fallbackOngoing()
		if err != nil {
			a.log.Warn().Err(err).Msg("continue call failed, using fallback")
			out = &fb
		}

		event.EndTimestamp = rg.EndTime
		event.Title = out.EventTitle
		event.Summary = out.EventSummary
		event.Story = out.EventStory
		event.LastProcessedAt = time.Now().UTC()
		event.TimeRange = formatTimeRange(event.StartTimestamp, event.EndTimestamp)
		event.DurationMinutes = event.EndTimestamp.Sub(event.StartTimestamp).Minutes()

		if _, err := a.db.UpsertEvent(ctx, event); err != nil {
			a.log.Error().Err(err).Msg("upsert continued event failed")
		} else {
			updated++
		}

		ongoing = removeAt(ongoing, idx)
		return ongoing, updated, created
	}

	// Complete-then-create: any ongoing event whose gap to this group exceeds
	// T_event_gap is finalized first.
	var stillOngoing []database.EventRow
	for _, event := range ongoing {
		if rg.StartTime.Sub(event.EndTimestamp) > a.eventGap {
			a.completeEvent(ctx, event)
			updated++
			continue
		}
		stillOngoing = append(stillOngoing, event)
	}
	ongoing = stillOngoing

	out, err := a.llm.NewOngoingEvent(ctx, rg.Text)
	fb := fallbackOngoing()
	if err != nil {
		a.log.Warn().Err(err).Msg("new-ongoing call failed, using fallback")
		out = &fb
	}

	event := database.EventRow{
		Username:        username,
		EventStatus:     "ongoing",
		StartTimestamp:  rg.StartTime,
		EndTimestamp:    rg.EndTime,
		LastProcessedAt: time.Now().UTC(),
		Title:           out.EventTitle,
		Summary:         out.EventSummary,
		Story:           out.EventStory,
		ActivityType:    "unknown",
		MoodLabels:      []string{"neutral"},
		MoodScore:       7,
		StressLevel:     5,
		EnergyLevel:     7,
	}
	event.TimeRange = formatTimeRange(event.StartTimestamp, event.EndTimestamp)
	event.DurationMinutes = event.EndTimestamp.Sub(event.StartTimestamp).Minutes()

	id, err := a.db.UpsertEvent(ctx, event)
	if err != nil {
		a.log.Error().Err(err).Msg("upsert new event failed")
		return ongoing, updated, created
	}
	event.ID = id
	created++
	metrics.EventsCreatedTotal.Inc()
	ongoing = append(ongoing, event)
	return ongoing, updated, created
}

func (a *Analyzer) completeEvent(ctx context.Context, event database.EventRow) {
	out, err := a.llm.CompleteEvent(ctx, event.Story)
	fb := fallbackCompleted()
	if err != nil {
		a.log.Warn().Err(err).Msg("completion call failed, using fallback")
		out = &fb
	}

	event.EventStatus = "completed"
	event.Title = out.EventTitle
	event.Summary = out.EventSummary
	event.Story = out.EventStory
	event.Location = out.Location
	event.PeopleInvolved = out.PeopleInvolved
	event.ActivityType = out.ActivityType
	event.InteractionDynamic = out.InteractionDynamic
	event.InferredImpact = out.InferredImpact
	event.TopicLabels = out.TopicLabels
	event.MoodLabels = out.MoodLabels
	event.OneSentenceSummary = out.OneSentenceSummary
	event.ActionItem = out.ActionItem
	event.MoodScore = out.MoodScore
	event.StressLevel = out.StressLevel
	event.EnergyLevel = out.EnergyLevel
	event.LastProcessedAt = time.Now().UTC()

	if _, err := a.db.UpsertEvent(ctx, event); err != nil {
		a.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("upsert completed event failed")
		return
	}
	metrics.EventsCompletedTotal.Inc()
}

// NewTranscriptInput is the externally-submitted transcript-shaped payload
// accepted by the incremental-analyze endpoint (§6).
type NewTranscriptInput struct {
	StartTime time.Time
	EndTime   time.Time
	Text      string
}

// AnalyzeIncremental runs the per-cycle algorithm immediately against one
// externally-submitted transcript, bypassing the scheduler (§6
// "triggers C4 immediately for one transcript-shaped payload"). The
// transcript still needs a batch_id to satisfy the normal storage schema, so
// a single-use batch is created and marked completed around it; this is an
// API-surface convenience, not a second ingest path — C2/C3 never see it.
func (a *Analyzer) AnalyzeIncremental(ctx context.Context, username string, nt NewTranscriptInput) (*CycleResult, error) {
	batch, err := a.db.CreateBatch(ctx, username, nt.StartTime)
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	if _, err := a.db.MarkBatchProcessing(ctx, batch.ID); err != nil {
		return nil, fmt.Errorf("mark batch processing: %w", err)
	}
	if err := a.db.MarkBatchCompleted(ctx, batch.ID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("mark batch completed: %w", err)
	}

	row := database.TranscriptionResultRow{
		Username:       username,
		BatchID:        batch.ID,
		StartTime:      nt.StartTime,
		EndTime:        nt.EndTime,
		TranscriptText: nt.Text,
	}
	id, err := a.db.InsertTranscriptionResult(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("insert transcript: %w", err)
	}
	row.ID = id

	g := transcriptGroup{Username: username, LocalDate: localDateUTC(nt.StartTime), Items: []database.TranscriptionResultRow{row}}
	updated, created, err := a.processGroup(ctx, g)
	if err != nil {
		a.markFailed(ctx, g.Items)
		return nil, fmt.Errorf("process group: %w", err)
	}

	total, err := a.db.CountEventsForUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	return &CycleResult{UpdatedEventsCount: updated, NewEventsCount: created, TotalEventsCount: total}, nil
}

func (a *Analyzer) markFailed(ctx context.Context, items []database.TranscriptionResultRow) {
	ids := make([]uuid.UUID, len(items))
	for i, t := range items {
		ids[i] = t.ID
	}
	_ = a.db.MarkTranscriptsStatus(ctx, ids, "failed", nil)
}

// findContinuable returns the index of an ongoing event whose end_timestamp
// is within eventGap of the raw group's start, or -1 (§4.3 step 6 "Continue").
func findContinuable(ongoing []database.EventRow, rg rawGroup, eventGap time.Duration) int {
	for i, e := range ongoing {
		gap := rg.StartTime.Sub(e.EndTimestamp)
		if gap >= 0 && gap <= eventGap {
			return i
		}
	}
	return -1
}

func removeAt(events []database.EventRow, idx int) []database.EventRow {
	out := make([]database.EventRow, 0, len(events)-1)
	out = append(out, events[:idx]...)
	out = append(out, events[idx+1:]...)
	return out
}

func formatTimeRange(start, end time.Time) string {
	if start.Format("2006-01-02") == end.Format("2006-01-02") {
		return fmt.Sprintf("%s %s-%s", start.Format("Jan 2"), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", start.Format("Jan 2 15:04"), end.Format("Jan 2 15:04"))
}
