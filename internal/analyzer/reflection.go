package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
	"github.com/nirva-labs/nirva-pipeline/internal/llm"
)

// ReflectionSweeper runs the additive daily reflection pass: once a day's
// completed events have stopped changing for at least delay, it synthesizes
// one DailyReflection row from that day's event narrative. Grounded on the
// teacher's maintenanceLoop daily-sweep idiom (ticker + immediate first run),
// generalized from a 24h period to the configurable ReflectionTick since
// reflections need to surface well before a full day has passed.
type ReflectionSweeper struct {
	db    *database.DB
	llm   *llm.Client
	tick  time.Duration
	delay time.Duration
	log   zerolog.Logger
}

type ReflectionOptions struct {
	DB    *database.DB
	LLM   *llm.Client
	Tick  time.Duration
	Delay time.Duration
	Log   zerolog.Logger
}

func NewReflectionSweeper(opts ReflectionOptions) *ReflectionSweeper {
	return &ReflectionSweeper{
		db:    opts.DB,
		llm:   opts.LLM,
		tick:  opts.Tick,
		delay: opts.Delay,
		log:   opts.Log.With().Str("component", "reflection").Logger(),
	}
}

// Run performs one sweep immediately, then every tick (teacher's
// maintenanceLoop idiom).
func (r *ReflectionSweeper) Run(ctx context.Context) {
	r.sweep(ctx)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *ReflectionSweeper) sweep(ctx context.Context) {
	candidates, err := r.db.ListReflectionCandidates(ctx, r.delay)
	if err != nil {
		r.log.Error().Err(err).Msg("list reflection candidates failed")
		return
	}

	for _, c := range candidates {
		if err := r.reflectOne(ctx, c); err != nil {
			r.log.Error().Err(err).Str("user", c.Username).Str("date", c.LocalDate.Format("2006-01-02")).
				Msg("reflection failed")
		}
	}
}

func (r *ReflectionSweeper) reflectOne(ctx context.Context, c database.ReflectionCandidate) error {
	dayStart := time.Date(c.LocalDate.Year(), c.LocalDate.Month(), c.LocalDate.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	events, err := r.db.ListEventsByLocalDate(ctx, c.Username, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	narrative := dayNarrative(events)
	out, err := r.llm.Reflect(ctx, narrative)
	fb := fallbackReflection()
	if err != nil {
		r.log.Warn().Err(err).Msg("reflect call failed, using fallback")
		out = &fb
	}

	row := database.DailyReflectionRow{
		Username:       c.Username,
		LocalDate:      dayStart,
		Gratitude:      out.Gratitude,
		Challenges:     out.Challenges,
		Learning:       out.Learning,
		Connections:    out.Connections,
		LookingForward: out.LookingForward,
	}
	if err := r.db.UpsertDailyReflection(ctx, row); err != nil {
		return fmt.Errorf("upsert reflection: %w", err)
	}
	return nil
}

// dayNarrative renders a day's completed events as one text block for the
// reflection LLM call, skipping events that never reached completion (their
// summaries aren't final).
func dayNarrative(events []database.EventRow) string {
	var parts []string
	for _, e := range events {
		if e.EventStatus != "completed" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", e.TimeRange, e.Title, e.OneSentenceSummary))
	}
	return strings.Join(parts, "\n")
}

func fallbackReflection() llm.ReflectionOutput {
	return llm.ReflectionOutput{
		Gratitude:      nil,
		Challenges:     nil,
		Learning:       "",
		Connections:    nil,
		LookingForward: "",
	}
}
