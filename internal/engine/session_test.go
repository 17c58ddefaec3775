package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acumen/internal/model"
)

func trajectoryOf(scores ...float64) []model.TrajectoryEntry {
	entries := make([]model.TrajectoryEntry, 0, len(scores))
	for _, s := range scores {
		entries = append(entries, model.TrajectoryEntry{Score: s})
	}
	return entries
}

func TestStartingDifficulty(t *testing.T) {
	t.Run("no history starts at midpoint", func(t *testing.T) {
		assert.Equal(t, 50.0, StartingDifficulty(nil, 0))
	})

	t.Run("tracks recent performance", func(t *testing.T) {
		assert.InDelta(t, 90.0, StartingDifficulty([]float64{85, 90, 95}, 0), 1e-9)
	})

	t.Run("overconfidence lowers the start", func(t *testing.T) {
		// 0.7*90 + 0.3*(90-20) = 84
		assert.InDelta(t, 84.0, StartingDifficulty([]float64{90, 90}, 20), 1e-9)
	})

	t.Run("underconfidence raises the start", func(t *testing.T) {
		// 0.7*60 + 0.3*(60+20) = 66
		assert.InDelta(t, 66.0, StartingDifficulty([]float64{60, 60}, -20), 1e-9)
	})

	t.Run("clamped to the scale", func(t *testing.T) {
		assert.Equal(t, 100.0, StartingDifficulty([]float64{100, 100}, -100))
	})
}

func TestAdjustDifficulty(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name           string
		current, score float64
		used           int
		wantNext       float64
		wantAdjustment float64
	}{
		{"high score steps up", 60, 90, 0, 75, 15},
		{"low score steps down", 60, 50, 0, 45, -15},
		{"upper micro band nudges up", 50, 84, 0, 55, 5},
		{"high band edge is a micro move", 50, 85, 0, 55, 5},
		{"lower micro band nudges down", 50, 62, 0, 45, -5},
		{"low band edge is a micro move", 50, 60, 0, 45, -5},
		{"middle band holds", 50, 70, 0, 50, 0},
		{"micro band edges hold", 50, 80, 0, 50, 0},
		{"cap exhausted holds", 50, 95, 3, 50, 0},
		{"clamped at the ceiling", 95, 95, 0, 100, 5},
		{"clamped at the floor", 5, 30, 0, 0, -5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, adjustment := AdjustDifficulty(tc.current, tc.score, tc.used, p)
			assert.Equal(t, tc.wantNext, next)
			assert.Equal(t, tc.wantAdjustment, adjustment)
		})
	}
}

func TestShouldRecommendBreak(t *testing.T) {
	p := DefaultParams()
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("question threshold", func(t *testing.T) {
		traj := trajectoryOf(make([]float64, 10)...)
		assert.True(t, ShouldRecommendBreak(traj, start, start.Add(5*time.Minute), p))
	})

	t.Run("fatigue window", func(t *testing.T) {
		traj := trajectoryOf(80, 80)
		assert.True(t, ShouldRecommendBreak(traj, start, start.Add(31*time.Minute), p))
	})

	t.Run("two steep drops", func(t *testing.T) {
		traj := trajectoryOf(90, 70, 50)
		assert.True(t, ShouldRecommendBreak(traj, start, start.Add(5*time.Minute), p))
	})

	t.Run("gentle decline is fine", func(t *testing.T) {
		traj := trajectoryOf(90, 80, 70)
		assert.False(t, ShouldRecommendBreak(traj, start, start.Add(5*time.Minute), p))
	})

	t.Run("one drop is not a pattern", func(t *testing.T) {
		traj := trajectoryOf(90, 60)
		assert.False(t, ShouldRecommendBreak(traj, start, start.Add(5*time.Minute), p))
	})
}

func TestTerminationCheck(t *testing.T) {
	p := DefaultParams()
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("mastery wins over everything", func(t *testing.T) {
		reason := TerminationCheck(20, start, start.Add(time.Hour), true, p)
		assert.Equal(t, model.TerminationMastery, reason)
	})

	t.Run("fatigue wins over the ceiling", func(t *testing.T) {
		reason := TerminationCheck(20, start, start.Add(time.Hour), false, p)
		assert.Equal(t, model.TerminationFatigue, reason)
	})

	t.Run("question ceiling", func(t *testing.T) {
		reason := TerminationCheck(20, start, start.Add(5*time.Minute), false, p)
		assert.Equal(t, model.TerminationMaxQuestions, reason)
	})

	t.Run("mid-session continues", func(t *testing.T) {
		reason := TerminationCheck(5, start, start.Add(10*time.Minute), false, p)
		assert.Empty(t, reason)
	})
}

func TestRecalibrationStep(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{"strong improvement steps up", []float64{50, 50, 75, 75}, 20},
		{"strong decline steps down", []float64{80, 80, 55, 55}, -20},
		{"flat trend holds", []float64{70, 70, 70, 70}, 0},
		{"trend at the threshold holds", []float64{50, 50, 70, 70}, 0},
		{"odd window splits on the midpoint", []float64{40, 40, 70, 70, 70}, 20},
		{"too short to judge", []float64{90}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RecalibrationStep(trajectoryOf(tc.scores...), p))
		})
	}
}

func TestNeedsStrategicEnding(t *testing.T) {
	p := DefaultParams()

	t.Run("struggling finish", func(t *testing.T) {
		assert.True(t, NeedsStrategicEnding(trajectoryOf(90, 50, 60, 65), p))
	})

	t.Run("strong finish", func(t *testing.T) {
		assert.False(t, NeedsStrategicEnding(trajectoryOf(40, 75, 80, 70), p))
	})

	t.Run("short session uses what it has", func(t *testing.T) {
		assert.True(t, NeedsStrategicEnding(trajectoryOf(60), p))
	})

	t.Run("threshold itself is acceptable", func(t *testing.T) {
		assert.False(t, NeedsStrategicEnding(trajectoryOf(70, 70, 70), p))
	})

	t.Run("empty trajectory", func(t *testing.T) {
		assert.False(t, NeedsStrategicEnding(nil, p))
	})
}

func TestEfficiency(t *testing.T) {
	p := DefaultParams()

	assert.InDelta(t, 33.33, Efficiency(10, p), 0.01)
	assert.InDelta(t, 53.33, Efficiency(7, p), 0.01)
	assert.Equal(t, 0.0, Efficiency(15, p))
	assert.Equal(t, 0.0, Efficiency(20, p))
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to model.SessionState }{
		{model.SessionInitializing, model.SessionActive},
		{model.SessionActive, model.SessionBreakRecommended},
		{model.SessionActive, model.SessionRecalibrating},
		{model.SessionActive, model.SessionTerminated},
		{model.SessionBreakRecommended, model.SessionActive},
		{model.SessionRecalibrating, model.SessionActive},
		{model.SessionBreakRecommended, model.SessionTerminated},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to model.SessionState }{
		{model.SessionInitializing, model.SessionBreakRecommended},
		{model.SessionActive, model.SessionInitializing},
		{model.SessionBreakRecommended, model.SessionRecalibrating},
		{model.SessionTerminated, model.SessionActive},
		{model.SessionTerminated, model.SessionTerminated},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSummarize(t *testing.T) {
	p := DefaultParams()
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	ended := created.Add(5 * time.Minute)
	theta := 0.72
	ci := 8.5

	session := &model.AdaptiveSession{
		ID:            "as_1234",
		ObjectiveID:   "obj-1",
		QuestionCount: 3,
		Trajectory: []model.TrajectoryEntry{
			{QuestionID: "q1", Difficulty: 50, Score: 90},
			{QuestionID: "q2", Difficulty: 65, Score: 88},
			{QuestionID: "q3", Difficulty: 80, Score: 85},
		},
		Adaptations: []model.Adaptation{
			{Kind: model.AdaptationIncrease, Note: "difficulty raised 50 -> 65"},
			{Kind: model.AdaptationIncrease, Note: "difficulty raised 65 -> 80"},
		},
		IRTEstimate:        &theta,
		ConfidenceInterval: &ci,
		TerminationReason:  model.TerminationEarlyStop,
		CreatedAt:          created,
		TerminatedAt:       &ended,
	}

	summary := Summarize(session, ended.Add(time.Hour), p)

	require.NotNil(t, summary)
	assert.Equal(t, "as_1234", summary.SessionID)
	assert.Equal(t, []float64{50, 65, 80}, summary.Progression)
	assert.Equal(t, []string{"difficulty raised 50 -> 65", "difficulty raised 65 -> 80"}, summary.Adaptations)
	assert.Equal(t, model.TerminationEarlyStop, summary.TerminationReason)
	assert.InDelta(t, 80.0, summary.Efficiency, 1e-9)
	assert.Equal(t, 300, summary.DurationSec)
	require.NotNil(t, summary.FinalEstimate)
	assert.Equal(t, 0.72, *summary.FinalEstimate)
}
