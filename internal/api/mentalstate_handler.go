package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/nirva-labs/nirva-pipeline/internal/authctx"
	"github.com/nirva-labs/nirva-pipeline/internal/mentalstate"
)

// MentalStateHandler serves GET /api/insights/mental-state (§6).
type MentalStateHandler struct {
	calc *mentalstate.Calculator
}

func NewMentalStateHandler(calc *mentalstate.Calculator) *MentalStateHandler {
	return &MentalStateHandler{calc: calc}
}

type sampleDTO struct {
	Timestamp  time.Time `json:"timestamp"`
	Energy     float64   `json:"energy"`
	Stress     float64   `json:"stress"`
	Confidence float64   `json:"confidence"`
	DataSource string    `json:"data_source"`
	EventID    *string   `json:"event_id,omitempty"`
}

func newSampleDTO(s mentalstate.Sample) sampleDTO {
	dto := sampleDTO{
		Timestamp:  s.Timestamp,
		Energy:     s.Energy,
		Stress:     s.Stress,
		Confidence: s.Confidence,
		DataSource: s.DataSource,
	}
	if s.EventID != nil {
		id := s.EventID.String()
		dto.EventID = &id
	}
	return dto
}

func newSampleDTOs(samples []mentalstate.Sample) []sampleDTO {
	out := make([]sampleDTO, len(samples))
	for i, s := range samples {
		out[i] = newSampleDTO(s)
	}
	return out
}

type dailyStatsDTO struct {
	AvgEnergy       float64   `json:"avg_energy"`
	AvgStress       float64   `json:"avg_stress"`
	PeakEnergyAt    time.Time `json:"peak_energy_at"`
	PeakStressAt    time.Time `json:"peak_stress_at"`
	OptimalMinutes  int       `json:"optimal_minutes"`
	BurnoutMinutes  int       `json:"burnout_minutes"`
	RecoveryPeriods int       `json:"recovery_periods"`
}

type patternDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type recommendationDTO struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type riskIndicatorsDTO struct {
	BurnoutCount      int    `json:"burnout_count"`
	HighStressCount   int    `json:"high_stress_count"`
	LowEnergyCount    int    `json:"low_energy_count"`
	Level             string `json:"level"`
	NeedsIntervention bool   `json:"needs_intervention"`
}

type bundleDTO struct {
	CurrentState    sampleDTO           `json:"current_state"`
	Timeline24h     []sampleDTO         `json:"timeline_24h"`
	Timeline7Day    []sampleDTO         `json:"timeline_7day"`
	DailyStats      dailyStatsDTO       `json:"daily_stats"`
	Patterns        []patternDTO        `json:"patterns"`
	Recommendations []recommendationDTO `json:"recommendations"`
	RiskIndicators  riskIndicatorsDTO   `json:"risk_indicators"`
}

func newBundleDTO(b *mentalstate.Bundle) bundleDTO {
	patterns := make([]patternDTO, len(b.Patterns))
	for i, p := range b.Patterns {
		patterns[i] = patternDTO{Name: p.Name, Description: p.Description}
	}
	recs := make([]recommendationDTO, len(b.Recommendations))
	for i, rec := range b.Recommendations {
		recs[i] = recommendationDTO{Kind: rec.Kind, Message: rec.Message}
	}

	return bundleDTO{
		CurrentState: newSampleDTO(b.CurrentState),
		Timeline24h:  newSampleDTOs(b.Timeline24h),
		Timeline7Day: newSampleDTOs(b.Timeline7Day),
		DailyStats: dailyStatsDTO{
			AvgEnergy:       b.DailyStats.AvgEnergy,
			AvgStress:       b.DailyStats.AvgStress,
			PeakEnergyAt:    b.DailyStats.PeakEnergyAt,
			PeakStressAt:    b.DailyStats.PeakStressAt,
			OptimalMinutes:  b.DailyStats.OptimalMinutes,
			BurnoutMinutes:  b.DailyStats.BurnoutMinutes,
			RecoveryPeriods: b.DailyStats.RecoveryPeriods,
		},
		Patterns:        patterns,
		Recommendations: recs,
		RiskIndicators: riskIndicatorsDTO{
			BurnoutCount:      b.RiskIndicators.BurnoutCount,
			HighStressCount:   b.RiskIndicators.HighStressCount,
			LowEnergyCount:    b.RiskIndicators.LowEnergyCount,
			Level:             b.RiskIndicators.Level,
			NeedsIntervention: b.RiskIndicators.NeedsIntervention,
		},
	}
}

// ServeHTTP handles GET /api/insights/mental-state?date=YYYY-MM-DD&timezone=IANA.
// Both params are optional; an unparseable date or timezone is a 400 (§7).
func (h *MentalStateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	username, ok := authctx.Username(r.Context())
	if !ok {
		WriteErrorWithCode(w, http.StatusUnauthorized, ErrUnauthorized, "missing caller identity")
		return
	}

	tz := r.URL.Query().Get("timezone")
	loc := time.UTC
	if tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "invalid timezone")
			return
		}
	}

	var datePtr *time.Time
	if dateStr, ok := QueryString(r, "date"); ok {
		d, err := time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		datePtr = &d
	}

	bundle, err := h.calc.Compute(r.Context(), username, tz, datePtr)
	if err != nil {
		log.Error().Err(err).Msg("mental state computation failed")
		WriteError(w, http.StatusInternalServerError, "failed to compute mental state")
		return
	}

	WriteJSON(w, http.StatusOK, newBundleDTO(bundle))
}
