package model

import "time"

// MasteryStatus is the verification state for a (user, objective) pair.
type MasteryStatus string

const (
	MasteryNotStarted MasteryStatus = "NOT_STARTED"
	MasteryInProgress MasteryStatus = "IN_PROGRESS"
	MasteryVerified   MasteryStatus = "VERIFIED"
)

// IsValid reports whether s is a known mastery status.
func (s MasteryStatus) IsValid() bool {
	switch s {
	case MasteryNotStarted, MasteryInProgress, MasteryVerified:
		return true
	}
	return false
}

// Criterion identifies one of the five mastery checks.
type Criterion string

const (
	CriterionConsecutiveHighScores Criterion = "CONSECUTIVE_HIGH_SCORES"
	CriterionMultipleTypes         Criterion = "MULTIPLE_ASSESSMENT_TYPES"
	CriterionDifficultyMatch       Criterion = "DIFFICULTY_MATCH"
	CriterionCalibrationAccuracy   Criterion = "CALIBRATION_ACCURACY"
	CriterionTimeSpacing           Criterion = "TIME_SPACING"
)

// AllCriteria lists the five checks in evaluation order.
var AllCriteria = []Criterion{
	CriterionConsecutiveHighScores,
	CriterionMultipleTypes,
	CriterionDifficultyMatch,
	CriterionCalibrationAccuracy,
	CriterionTimeSpacing,
}

// CriterionResult is the outcome of a single mastery check.
type CriterionResult struct {
	Criterion Criterion `json:"criterion" bson:"criterion"`
	Met       bool      `json:"met" bson:"met"`
	Progress  float64   `json:"progress" bson:"progress"` // 0-1
	Detail    string    `json:"detail,omitempty" bson:"detail,omitempty"`
}

// MasteryVerification is keyed by (userId, objectiveId). VerifiedAt is
// set once on the first VERIFIED transition and never cleared by later
// recomputation.
type MasteryVerification struct {
	UserID          string            `json:"userId" bson:"userId"`
	ObjectiveID     string            `json:"objectiveId" bson:"objectiveId"`
	Status          MasteryStatus     `json:"status" bson:"status"`
	Criteria        []CriterionResult `json:"criteria" bson:"criteria"`
	OverallProgress float64           `json:"overallProgress" bson:"overallProgress"` // mean of the five
	VerifiedAt      *time.Time        `json:"verifiedAt,omitempty" bson:"verifiedAt,omitempty"`
	EvaluatedAt     time.Time         `json:"evaluatedAt" bson:"evaluatedAt"`
}
