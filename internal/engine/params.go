package engine

import (
	"fmt"
	"time"
)

// highScore is the 0-100 score treated as a high-quality answer. It is
// shared by the mastery streak criterion and the discrimination
// top/bottom group test (0.8 on the unit scale).
const highScore = 80.0

// Params holds every tunable constant of the engine. All call sites
// must observe the same values; services carry one Params from config.
type Params struct {
	// Difficulty adjustment.
	DifficultyStep float64 // major step for scores outside the mid band
	MinorStep      float64 // fine step at the mid band edges
	MaxAdjustments int     // non-zero adjustments allowed per session
	HighBand       float64 // score above this earns a major increase
	LowBand        float64 // score below this earns a major decrease

	// Question bank.
	DifficultyWindow              float64       // half-width of the selection window around the target
	Cooldown                      time.Duration // items answered within this window are excluded
	MinResponsesForDiscrimination int           // response floor before an index is computed
	LowDiscrimination             float64       // indices below this flag the item

	// Break and termination.
	BreakQuestionCount int           // question count that suggests a break
	FatigueAfter       time.Duration // elapsed time that suggests a break and forces termination
	BreakScoreDrop     float64       // per-entry drop counted toward the two-drop signal
	MaxQuestions       int           // hard question ceiling per session

	// Early stop.
	EarlyStopCI              float64 // CI width (0-100 scale) below which stopping is allowed
	EarlyStopMinObservations int

	// Recalibration and closing.
	RecalibrationWindow  int     // responses between trend recalibrations
	RecalibrationTrend   float64 // half-to-half mean shift that triggers a corrective step
	TrailingWindow       int     // entries in the closing trailing average
	StrategicEndingBelow float64 // trailing average below this appends an easier final item
	BaselineQuestions    int     // reference count for the efficiency score

	// Calibration.
	CalibratedBand          float64 // |delta| at or under this is CALIBRATED
	OverconfidenceThreshold float64 // delta above this flags a response as overconfident

	// Mastery.
	MasteryStreak          int     // consecutive high scores required
	MasterySpacingDays     float64 // minimum practice span in days
	MasteryCalibratedShare float64 // fraction of well-calibrated responses required

	// Peer aggregation.
	MinPeerPool     int     // opted-in users required before aggregates are released
	MinUserSamples  int     // per-user sample floor for pool eligibility
	TopicPrevalence float64 // share of the pool that must flag a concept
}

// DefaultParams returns the production constants.
func DefaultParams() Params {
	return Params{
		DifficultyStep: 15,
		MinorStep:      5,
		MaxAdjustments: 3,
		HighBand:       85,
		LowBand:        60,

		DifficultyWindow:              10,
		Cooldown:                      14 * 24 * time.Hour,
		MinResponsesForDiscrimination: 20,
		LowDiscrimination:             0.2,

		BreakQuestionCount: 10,
		FatigueAfter:       30 * time.Minute,
		BreakScoreDrop:     15,
		MaxQuestions:       20,

		EarlyStopCI:              10,
		EarlyStopMinObservations: 3,

		RecalibrationWindow:  5,
		RecalibrationTrend:   20,
		TrailingWindow:       3,
		StrategicEndingBelow: 70,
		BaselineQuestions:    15,

		CalibratedBand:          15,
		OverconfidenceThreshold: 15,

		MasteryStreak:          3,
		MasterySpacingDays:     2,
		MasteryCalibratedShare: 0.5,

		MinPeerPool:     20,
		MinUserSamples:  5,
		TopicPrevalence: 0.5,
	}
}

// Validate rejects parameter sets that would make the engine degenerate.
func (p Params) Validate() error {
	checks := []struct {
		ok   bool
		what string
	}{
		{p.DifficultyStep > 0, "difficulty step must be positive"},
		{p.MinorStep > 0 && p.MinorStep <= p.DifficultyStep, "minor step must be positive and at most the major step"},
		{p.MaxAdjustments >= 0, "max adjustments must be non-negative"},
		{p.LowBand < p.HighBand, "low band must sit below high band"},
		{p.DifficultyWindow > 0, "difficulty window must be positive"},
		{p.Cooldown > 0, "cooldown must be positive"},
		{p.MinResponsesForDiscrimination > 0, "discrimination response floor must be positive"},
		{p.BreakQuestionCount > 0, "break question count must be positive"},
		{p.FatigueAfter > 0, "fatigue window must be positive"},
		{p.MaxQuestions > 0, "max questions must be positive"},
		{p.EarlyStopCI > 0, "early-stop CI must be positive"},
		{p.EarlyStopMinObservations > 0, "early-stop observation floor must be positive"},
		{p.RecalibrationWindow > 1, "recalibration window must exceed one response"},
		{p.TrailingWindow > 0, "trailing window must be positive"},
		{p.BaselineQuestions > 0, "baseline question count must be positive"},
		{p.MinPeerPool > 0, "peer pool floor must be positive"},
		{p.MinUserSamples > 0, "per-user sample floor must be positive"},
		{p.TopicPrevalence > 0 && p.TopicPrevalence <= 1, "topic prevalence must be in (0,1]"},
		{p.MasteryStreak > 0, "mastery streak must be positive"},
		{p.MasterySpacingDays > 0, "mastery spacing must be positive"},
		{p.MasteryCalibratedShare > 0 && p.MasteryCalibratedShare <= 1, "mastery calibrated share must be in (0,1]"},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s", ErrInvalidParameters, c.what)
		}
	}
	return nil
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clamp01 bounds v to the unit interval.
func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
