package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"acumen/internal/model"
)

// masteryTypeTarget is how many distinct assessment types a learner
// must have been tested under.
const masteryTypeTarget = 2

// EvaluateMastery runs the five criteria against a user's full response
// history for one objective. Criteria with too little data evaluate to
// unmet with partial progress, never an error; the status is VERIFIED
// only when all five are met, NOT_STARTED when no responses exist, and
// IN_PROGRESS otherwise. VerifiedAt is stamped here on verification;
// preserving an earlier stamp across recomputations is the caller's
// concern.
func EvaluateMastery(userID string, objective *model.LearningObjective, responses []model.AssessmentResponse, now time.Time, p Params) *model.MasteryVerification {
	ordered := append([]model.AssessmentResponse(nil), responses...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RespondedAt.Before(ordered[j].RespondedAt)
	})

	criteria := []model.CriterionResult{
		consecutiveHighScores(ordered, p),
		multipleAssessmentTypes(ordered),
		difficultyMatch(ordered, objective),
		calibrationAccuracy(ordered, p),
		timeSpacing(ordered, p),
	}

	verification := &model.MasteryVerification{
		UserID:      userID,
		ObjectiveID: objective.ID,
		Criteria:    criteria,
		EvaluatedAt: now,
	}

	allMet := true
	var total float64
	for _, c := range criteria {
		total += c.Progress
		if !c.Met {
			allMet = false
		}
	}
	verification.OverallProgress = total / float64(len(criteria))

	switch {
	case len(ordered) == 0:
		verification.Status = model.MasteryNotStarted
		verification.OverallProgress = 0
	case allMet:
		verification.Status = model.MasteryVerified
		verification.VerifiedAt = &now
	default:
		verification.Status = model.MasteryInProgress
	}
	return verification
}

// consecutiveHighScores measures the most-recent unbroken streak of
// scores at or above the high mark.
func consecutiveHighScores(ordered []model.AssessmentResponse, p Params) model.CriterionResult {
	streak := 0
	for i := len(ordered) - 1; i >= 0; i-- {
		if ordered[i].Score < highScore {
			break
		}
		streak++
	}
	capped := streak
	if capped > p.MasteryStreak {
		capped = p.MasteryStreak
	}
	return model.CriterionResult{
		Criterion: model.CriterionConsecutiveHighScores,
		Met:       streak >= p.MasteryStreak,
		Progress:  float64(capped) / float64(p.MasteryStreak),
		Detail:    fmt.Sprintf("streak of %d (need %d)", streak, p.MasteryStreak),
	}
}

// multipleAssessmentTypes counts distinct assessment types observed.
func multipleAssessmentTypes(ordered []model.AssessmentResponse) model.CriterionResult {
	seen := make(map[model.AssessmentType]struct{})
	for _, r := range ordered {
		seen[r.AssessmentType] = struct{}{}
	}
	count := len(seen)
	capped := count
	if capped > masteryTypeTarget {
		capped = masteryTypeTarget
	}
	return model.CriterionResult{
		Criterion: model.CriterionMultipleTypes,
		Met:       count >= masteryTypeTarget,
		Progress:  float64(capped) / float64(masteryTypeTarget),
		Detail:    fmt.Sprintf("%d of %d assessment types", count, masteryTypeTarget),
	}
}

// difficultyMatch requires at least one high score recorded inside the
// objective's complexity band. Boolean only.
func difficultyMatch(ordered []model.AssessmentResponse, objective *model.LearningObjective) model.CriterionResult {
	min, max := objective.Complexity.Band()
	result := model.CriterionResult{
		Criterion: model.CriterionDifficultyMatch,
		Detail:    fmt.Sprintf("no high score in band %.0f-%.0f", min, max),
	}
	for _, r := range ordered {
		if r.Score >= highScore && objective.Complexity.Contains(r.DifficultyLevel) {
			result.Met = true
			result.Progress = 1
			result.Detail = fmt.Sprintf("high score at difficulty %.0f in band %.0f-%.0f", r.DifficultyLevel, min, max)
			break
		}
	}
	return result
}

// calibrationAccuracy is the fraction of responses whose delta stays
// inside the calibrated band; met once that fraction reaches the
// majority threshold.
func calibrationAccuracy(ordered []model.AssessmentResponse, p Params) model.CriterionResult {
	result := model.CriterionResult{Criterion: model.CriterionCalibrationAccuracy}
	if len(ordered) == 0 {
		result.Detail = "no responses"
		return result
	}
	calibrated := 0
	for _, r := range ordered {
		if math.Abs(r.CalibrationDelta) <= p.CalibratedBand {
			calibrated++
		}
	}
	fraction := float64(calibrated) / float64(len(ordered))
	result.Met = fraction >= p.MasteryCalibratedShare
	result.Progress = fraction
	result.Detail = fmt.Sprintf("%d of %d responses well calibrated", calibrated, len(ordered))
	return result
}

// timeSpacing measures the span in days between the earliest and latest
// response; distributed practice needs at least the minimum spacing.
func timeSpacing(ordered []model.AssessmentResponse, p Params) model.CriterionResult {
	result := model.CriterionResult{Criterion: model.CriterionTimeSpacing}
	if len(ordered) == 0 {
		result.Detail = "no responses"
		return result
	}
	first := ordered[0].RespondedAt
	last := ordered[len(ordered)-1].RespondedAt
	gapDays := last.Sub(first).Hours() / 24

	result.Met = gapDays >= p.MasterySpacingDays
	result.Progress = math.Min(gapDays/p.MasterySpacingDays, 1)
	result.Detail = fmt.Sprintf("practice span %.1f days (need %.0f)", gapDays, p.MasterySpacingDays)
	return result
}
