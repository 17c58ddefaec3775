package engine

import (
	"time"

	"github.com/montanaflynn/stats"

	"acumen/internal/model"
)

// defaultDifficulty seeds sessions for users with no response history.
const defaultDifficulty = 50.0

// Starting-difficulty blend weights: performance history dominates, the
// calibration correction tempers it.
const (
	performanceWeight = 0.7
	calibrationWeight = 0.3
)

// StartingDifficulty blends the user's recent average score (mapped
// directly onto the 0-100 difficulty scale) with a calibration
// correction: overconfident users (positive mean delta) start lower,
// underconfident users higher.
//
//	start = clamp(0.7*avg + 0.3*(avg - meanDelta))
//
// With no history the session starts at 50.
func StartingDifficulty(recentScores []float64, meanCalibrationDelta float64) float64 {
	avg, ok := mean(recentScores)
	if !ok {
		return defaultDifficulty
	}
	blended := performanceWeight*avg + calibrationWeight*(avg-meanCalibrationDelta)
	return clamp(blended, 0, 100)
}

// AdjustDifficulty returns the next difficulty and the applied
// adjustment for a scored response. Scores above the high band step up
// by the major step, below the low band step down; the band edges
// (within MinorStep of either bound) move by the minor step and the
// middle holds. Once adjustmentsUsed reaches the cap every request is a
// no-op hold. The returned adjustment reflects clamping at the scale
// bounds.
func AdjustDifficulty(current, score float64, adjustmentsUsed int, p Params) (next, adjustment float64) {
	if adjustmentsUsed >= p.MaxAdjustments {
		return current, 0
	}

	var step float64
	switch {
	case score > p.HighBand:
		step = p.DifficultyStep
	case score < p.LowBand:
		step = -p.DifficultyStep
	case score > p.HighBand-p.MinorStep:
		step = p.MinorStep
	case score < p.LowBand+p.MinorStep:
		step = -p.MinorStep
	}

	next = clamp(current+step, 0, 100)
	return next, next - current
}

// ShouldRecommendBreak reports whether the session warrants a pause:
// the question count reached the break threshold, the session ran past
// the fatigue window, or the last two trajectory entries each dropped
// more than the break drop from their predecessor.
func ShouldRecommendBreak(trajectory []model.TrajectoryEntry, startedAt, now time.Time, p Params) bool {
	if len(trajectory) >= p.BreakQuestionCount {
		return true
	}
	if now.Sub(startedAt) >= p.FatigueAfter {
		return true
	}
	return consecutiveDrops(trajectory, p.BreakScoreDrop)
}

func consecutiveDrops(trajectory []model.TrajectoryEntry, drop float64) bool {
	n := len(trajectory)
	if n < 3 {
		return false
	}
	latest := trajectory[n-2].Score - trajectory[n-1].Score
	previous := trajectory[n-3].Score - trajectory[n-2].Score
	return latest > drop && previous > drop
}

// TerminationCheck returns the reason the session must end, or empty
// when it may continue. Mastery wins over fatigue, fatigue over the
// question ceiling. Early stop is a separate, optional path decided by
// the caller from the estimator's eligibility signal.
func TerminationCheck(questionCount int, startedAt, now time.Time, masteryVerified bool, p Params) model.TerminationReason {
	switch {
	case masteryVerified:
		return model.TerminationMastery
	case now.Sub(startedAt) >= p.FatigueAfter:
		return model.TerminationFatigue
	case questionCount >= p.MaxQuestions:
		return model.TerminationMaxQuestions
	}
	return ""
}

// RecalibrationStep compares the mean score of the first trajectory
// half against the second. A shift beyond the trend threshold returns a
// corrective step of the same sign and the threshold's magnitude; this
// step bypasses the per-response adjustment cap.
func RecalibrationStep(trajectory []model.TrajectoryEntry, p Params) float64 {
	if len(trajectory) < 2 {
		return 0
	}
	mid := len(trajectory) / 2
	first, _ := mean(scoresOf(trajectory[:mid]))
	second, _ := mean(scoresOf(trajectory[mid:]))

	trend := second - first
	switch {
	case trend > p.RecalibrationTrend:
		return p.RecalibrationTrend
	case trend < -p.RecalibrationTrend:
		return -p.RecalibrationTrend
	}
	return 0
}

// NeedsStrategicEnding reports whether the closing trailing average sits
// below the confidence-building threshold, in which case the caller
// appends one easier final item before finalizing.
func NeedsStrategicEnding(trajectory []model.TrajectoryEntry, p Params) bool {
	n := len(trajectory)
	if n == 0 {
		return false
	}
	window := p.TrailingWindow
	if n < window {
		window = n
	}
	avg, ok := mean(scoresOf(trajectory[n-window:]))
	return ok && avg < p.StrategicEndingBelow
}

// Efficiency scores convergence speed against the baseline question
// count: 100 * max(0, baseline - n) / baseline. Sessions at or beyond
// the baseline score 0.
func Efficiency(questionCount int, p Params) float64 {
	saved := float64(p.BaselineQuestions - questionCount)
	if saved < 0 {
		saved = 0
	}
	return 100 * saved / float64(p.BaselineQuestions)
}

// CanTransition reports whether a session state change is legal.
// Transient states re-enter ACTIVE; TERMINATED is reachable from every
// live state and absorbing.
func CanTransition(from, to model.SessionState) bool {
	switch from {
	case model.SessionInitializing:
		return to == model.SessionActive || to == model.SessionTerminated
	case model.SessionActive:
		return to == model.SessionBreakRecommended ||
			to == model.SessionRecalibrating ||
			to == model.SessionTerminated
	case model.SessionBreakRecommended, model.SessionRecalibrating:
		return to == model.SessionActive || to == model.SessionTerminated
	}
	return false
}

// Summarize builds the closing report for a session: full difficulty
// progression, the textual adaptation log, the final estimate and the
// efficiency score.
func Summarize(s *model.AdaptiveSession, now time.Time, p Params) *model.SessionSummary {
	progression := make([]float64, 0, len(s.Trajectory))
	for _, entry := range s.Trajectory {
		progression = append(progression, entry.Difficulty)
	}
	notes := make([]string, 0, len(s.Adaptations))
	for _, a := range s.Adaptations {
		notes = append(notes, a.Note)
	}

	end := now
	if s.TerminatedAt != nil {
		end = *s.TerminatedAt
	}

	return &model.SessionSummary{
		SessionID:          s.ID,
		ObjectiveID:        s.ObjectiveID,
		TotalQuestions:     s.QuestionCount,
		Progression:        progression,
		Adaptations:        notes,
		FinalEstimate:      s.IRTEstimate,
		ConfidenceInterval: s.ConfidenceInterval,
		Efficiency:         Efficiency(s.QuestionCount, p),
		TerminationReason:  s.TerminationReason,
		DurationSec:        int(end.Sub(s.CreatedAt).Seconds()),
	}
}

func scoresOf(trajectory []model.TrajectoryEntry) []float64 {
	scores := make([]float64, 0, len(trajectory))
	for _, entry := range trajectory {
		scores = append(scores, entry.Score)
	}
	return scores
}

// mean wraps stats.Mean with an ok flag instead of an error for empty
// input.
func mean(values []float64) (float64, bool) {
	m, err := stats.Mean(values)
	if err != nil {
		return 0, false
	}
	return m, true
}
