package mentalstate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nirva-labs/nirva-pipeline/internal/database"
	"github.com/nirva-labs/nirva-pipeline/internal/kv"
)

// Calculator computes the full insights bundle on demand (§4.4). It is
// read-only against Events and MentalStateScore aside from persisting the
// one sample it computes per call, which also seeds future personal
// adjustment lookups.
type Calculator struct {
	db              *database.DB
	kv              *kv.Store
	defaultTimezone string
	log             zerolog.Logger
}

type Options struct {
	DB              *database.DB
	KV              *kv.Store
	DefaultTimezone string
	Log             zerolog.Logger
}

func New(opts Options) *Calculator {
	tz := opts.DefaultTimezone
	if tz == "" {
		tz = "UTC"
	}
	return &Calculator{
		db:              opts.DB,
		kv:              opts.KV,
		defaultTimezone: tz,
		log:             opts.Log.With().Str("component", "mentalstate").Logger(),
	}
}

// Bundle is the full response for "/api/insights/mental-state" (§6).
type Bundle struct {
	CurrentState    Sample
	Timeline24h     []Sample
	Timeline7Day    []Sample
	DailyStats      DailyStats
	Patterns        []Pattern
	Recommendations []Recommendation
	RiskIndicators  RiskIndicators
}

// Compute resolves the caller's timezone and reference date, then runs the
// full three-layer model to assemble the bundle. tz may be empty (falls back
// to UserContext, then DefaultTimezone); date may be nil (uses the current
// moment).
func (c *Calculator) Compute(ctx context.Context, username, tz string, date *time.Time) (*Bundle, error) {
	loc, err := c.resolveLocation(ctx, username, tz)
	if err != nil {
		return nil, err
	}

	now := time.Now().In(loc)
	if date != nil {
		endOfDay := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, loc)
		if endOfDay.Before(now) {
			now = endOfDay
		}
	}

	return c.computeAt(ctx, username, now, loc)
}

func (c *Calculator) computeAt(ctx context.Context, username string, now time.Time, loc *time.Location) (*Bundle, error) {
	from := now.Add(-7 * 24 * time.Hour)
	events, err := c.db.ListEventsInWindow(ctx, username, from, now)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	since := now.Add(-30 * 24 * time.Hour)
	historical, err := c.db.ListHistoricalSamples(ctx, username, since)
	if err != nil {
		return nil, fmt.Errorf("list historical samples: %w", err)
	}

	current := computeSample(now, events, historical)
	timeline24 := Timeline24h(now, events, historical)
	timeline7 := Timeline7Day(now, events, historical)

	today := filterToday(timeline24, loc, now)
	stats := computeDailyStats(today)
	patterns := detectPatterns(today)
	recs := buildRecommendations(current, timeline24, patterns)
	risk := computeRiskIndicators(timeline24)

	if err := c.db.InsertMentalStateScore(ctx, database.MentalStateScoreRow{
		Username:   username,
		Timestamp:  current.Timestamp,
		Energy:     current.Energy,
		Stress:     current.Stress,
		Confidence: current.Confidence,
		DataSource: current.DataSource,
		EventID:    current.EventID,
	}); err != nil {
		c.log.Warn().Err(err).Msg("persist mental state score failed")
	}

	return &Bundle{
		CurrentState:    current,
		Timeline24h:     timeline24,
		Timeline7Day:    timeline7,
		DailyStats:      stats,
		Patterns:        patterns,
		Recommendations: recs,
		RiskIndicators:  risk,
	}, nil
}

// resolveLocation honors an explicit timezone request first, then falls back
// to the cached UserContext, then DefaultTimezone (§4.4 "Timezone handling").
func (c *Calculator) resolveLocation(ctx context.Context, username, tz string) (*time.Location, error) {
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		return loc, nil
	}

	if c.kv != nil {
		if uc, err := c.kv.GetUserContext(ctx, username); err == nil && uc != nil && uc.Timezone != "" {
			if loc, err := time.LoadLocation(uc.Timezone); err == nil {
				return loc, nil
			}
		}
	}

	loc, err := time.LoadLocation(c.defaultTimezone)
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}
