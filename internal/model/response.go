package model

import "time"

// AssessmentType distinguishes what kind of competence a response exercised.
type AssessmentType string

const (
	AssessmentComprehension     AssessmentType = "COMPREHENSION"
	AssessmentClinicalReasoning AssessmentType = "CLINICAL_REASONING"
)

// IsValid reports whether t is a known assessment type.
func (t AssessmentType) IsValid() bool {
	switch t {
	case AssessmentComprehension, AssessmentClinicalReasoning:
		return true
	}
	return false
}

// ConfidenceLevel is the learner's ordinal self-rating, 1 (guessing)
// through 5 (certain).
type ConfidenceLevel int

const (
	ConfidenceGuessing ConfidenceLevel = iota + 1
	ConfidenceUnsure
	ConfidenceNeutral
	ConfidenceSure
	ConfidenceCertain
)

// IsValid reports whether c lies in the 1..5 scale.
func (c ConfidenceLevel) IsValid() bool {
	return c >= ConfidenceGuessing && c <= ConfidenceCertain
}

// AssessmentResponse is one scored, confidence-annotated answer.
// Immutable once recorded; the calibration delta is derived at record
// time and stored alongside the raw score. ConceptName is denormalized
// from the bank item so peer aggregation can group without a join.
type AssessmentResponse struct {
	ID               string          `json:"id" bson:"_id,omitempty"`
	UserID           string          `json:"userId" bson:"userId"`
	ObjectiveID      string          `json:"objectiveId" bson:"objectiveId"`
	QuestionID       string          `json:"questionId" bson:"questionId"`
	SessionID        string          `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	ConceptName      string          `json:"conceptName" bson:"conceptName"`
	Score            float64         `json:"score" bson:"score"` // 0-100
	Confidence       ConfidenceLevel `json:"confidence" bson:"confidence"`
	AssessmentType   AssessmentType  `json:"assessmentType" bson:"assessmentType"`
	DifficultyLevel  float64         `json:"difficultyLevel" bson:"difficultyLevel"` // 0-100
	CalibrationDelta float64         `json:"calibrationDelta" bson:"calibrationDelta"`
	RespondedAt      time.Time       `json:"respondedAt" bson:"respondedAt"`
}
