package model

import "time"

// SessionState is the lifecycle state of an adaptive session.
// Break and recalibration states are transient and re-enter ACTIVE;
// TERMINATED is terminal.
type SessionState string

const (
	SessionInitializing     SessionState = "INITIALIZING"
	SessionActive           SessionState = "ACTIVE"
	SessionBreakRecommended SessionState = "BREAK_RECOMMENDED"
	SessionRecalibrating    SessionState = "RECALIBRATING"
	SessionTerminated       SessionState = "TERMINATED"
)

// IsValid reports whether s is a known session state.
func (s SessionState) IsValid() bool {
	switch s {
	case SessionInitializing, SessionActive, SessionBreakRecommended,
		SessionRecalibrating, SessionTerminated:
		return true
	}
	return false
}

// IsTerminal reports whether the session can no longer accept responses.
func (s SessionState) IsTerminal() bool {
	return s == SessionTerminated
}

// TerminationReason explains why a session ended.
type TerminationReason string

const (
	TerminationMastery      TerminationReason = "MASTERY_VERIFIED"
	TerminationFatigue      TerminationReason = "FATIGUE"
	TerminationMaxQuestions TerminationReason = "MAX_QUESTIONS"
	TerminationEarlyStop    TerminationReason = "EARLY_STOP"
	TerminationManual       TerminationReason = "MANUAL"
)

// AdaptationKind tags an orchestrator intervention recorded on the session.
type AdaptationKind string

const (
	AdaptationIncrease        AdaptationKind = "DIFFICULTY_INCREASE"
	AdaptationDecrease        AdaptationKind = "DIFFICULTY_DECREASE"
	AdaptationBreak           AdaptationKind = "BREAK_RECOMMENDED"
	AdaptationRecalibration   AdaptationKind = "RECALIBRATION"
	AdaptationStrategicEnding AdaptationKind = "STRATEGIC_ENDING"
)

// TrajectoryEntry is one presented-and-scored question in session order.
type TrajectoryEntry struct {
	QuestionID string    `json:"questionId" bson:"questionId"`
	Difficulty float64   `json:"difficulty" bson:"difficulty"`
	Score      float64   `json:"score" bson:"score"`
	Adjustment float64   `json:"adjustment" bson:"adjustment"` // applied after this entry, 0 if held
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

// Adaptation is a human-readable record of an orchestrator intervention.
type Adaptation struct {
	Kind      AdaptationKind `json:"kind" bson:"kind"`
	Magnitude float64        `json:"magnitude,omitempty" bson:"magnitude,omitempty"`
	Note      string         `json:"note" bson:"note"`
	At        time.Time      `json:"at" bson:"at"`
}

// AdaptiveSession is one assessment episode for a (user, objective) pair.
// The trajectory is append-only and mutated exclusively through the
// session service; sessions are never deleted, only marked terminated.
type AdaptiveSession struct {
	ID                string            `json:"id" bson:"_id,omitempty"`
	UserID            string            `json:"userId" bson:"userId"`
	ObjectiveID       string            `json:"objectiveId" bson:"objectiveId"`
	State             SessionState      `json:"state" bson:"state"`
	InitialDifficulty float64           `json:"initialDifficulty" bson:"initialDifficulty"`
	CurrentDifficulty float64           `json:"currentDifficulty" bson:"currentDifficulty"` // 0-100
	QuestionCount     int               `json:"questionCount" bson:"questionCount"`
	AdjustmentsUsed   int               `json:"adjustmentsUsed" bson:"adjustmentsUsed"`
	Trajectory        []TrajectoryEntry `json:"trajectory" bson:"trajectory"`
	Adaptations       []Adaptation      `json:"adaptations" bson:"adaptations"`
	CurrentQuestionID string            `json:"currentQuestionId,omitempty" bson:"currentQuestionId,omitempty"`

	// Streaming ability estimate, persisted so a session can resume
	// across processes. Estimate is theta in [0,1], interval width on
	// the 0-100 scale. Information must survive the JSON round-trip
	// through the cache or a resumed session forgets its precision.
	IRTEstimate        *float64 `json:"irtEstimate,omitempty" bson:"irtEstimate,omitempty"`
	ConfidenceInterval *float64 `json:"confidenceInterval,omitempty" bson:"confidenceInterval,omitempty"`
	IRTInformation     float64  `json:"irtInformation,omitempty" bson:"irtInformation"`

	TerminationReason TerminationReason `json:"terminationReason,omitempty" bson:"terminationReason,omitempty"`
	CreatedAt         time.Time         `json:"createdAt" bson:"createdAt"`
	TerminatedAt      *time.Time        `json:"terminatedAt,omitempty" bson:"terminatedAt,omitempty"`
}

// SessionSummary is the closing report for a terminated session.
type SessionSummary struct {
	SessionID          string            `json:"sessionId"`
	ObjectiveID        string            `json:"objectiveId"`
	TotalQuestions     int               `json:"totalQuestions"`
	Progression        []float64         `json:"progression"` // difficulty per question
	Adaptations        []string          `json:"adaptations"`
	FinalEstimate      *float64          `json:"finalEstimate,omitempty"`
	ConfidenceInterval *float64          `json:"confidenceInterval,omitempty"`
	Efficiency         float64           `json:"efficiency"` // 0-100
	TerminationReason  TerminationReason `json:"terminationReason,omitempty"`
	DurationSec        int               `json:"durationSec"`
}

// StartSessionResponse is returned when a session is opened.
type StartSessionResponse struct {
	Session       *AdaptiveSession  `json:"session"`
	FirstQuestion *QuestionBankItem `json:"firstQuestion,omitempty"`
}

// EndSessionResponse is returned when a learner asks to end. Either a
// confidence-building final question (the session stays open for it) or
// the closing summary.
type EndSessionResponse struct {
	FinalQuestion     *QuestionBankItem `json:"finalQuestion,omitempty"`
	Summary           *SessionSummary   `json:"summary,omitempty"`
	State             SessionState      `json:"state"`
	TerminationReason TerminationReason `json:"terminationReason,omitempty"`
}

// SubmitResponseRequest is the body for submitting a scored response.
type SubmitResponseRequest struct {
	QuestionID     string          `json:"questionId"`
	Score          float64         `json:"score"` // 0-100
	Confidence     ConfidenceLevel `json:"confidence"`
	AssessmentType AssessmentType  `json:"assessmentType"`
}

// SubmitResponseResponse reports the orchestrator's reaction to a response.
type SubmitResponseResponse struct {
	ResponseID        string               `json:"responseId"`
	Feedback          *CalibrationFeedback `json:"feedback"`
	Adjustment        float64              `json:"adjustment"`
	CurrentDifficulty float64              `json:"currentDifficulty"`
	State             SessionState         `json:"state"`
	BreakRecommended  bool                 `json:"breakRecommended"`
	CanStopEarly      bool                 `json:"canStopEarly"`
	Terminated        bool                 `json:"terminated"`
	TerminationReason TerminationReason    `json:"terminationReason,omitempty"`
	NextQuestion      *QuestionBankItem    `json:"nextQuestion,omitempty"`
	Summary           *SessionSummary      `json:"summary,omitempty"`
}
