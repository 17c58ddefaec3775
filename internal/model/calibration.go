package model

import "time"

// CalibrationCategory classifies a confidence-vs-score delta.
// The boundary band of ±15 inclusive counts as CALIBRATED.
type CalibrationCategory string

const (
	CalibrationOverconfident  CalibrationCategory = "OVERCONFIDENT"
	CalibrationUnderconfident CalibrationCategory = "UNDERCONFIDENT"
	CalibrationCalibrated     CalibrationCategory = "CALIBRATED"
)

// CorrelationStrength is the magnitude interpretation of Pearson's r.
// Sign-agnostic: a strong negative correlation is still "strong".
type CorrelationStrength string

const (
	CorrelationStrong   CorrelationStrength = "strong"
	CorrelationModerate CorrelationStrength = "moderate"
	CorrelationWeak     CorrelationStrength = "weak"
)

// CalibrationFeedback is the per-response calibration readout shown to
// the learner.
type CalibrationFeedback struct {
	NormalizedConfidence float64             `json:"normalizedConfidence"` // 0-100
	Score                float64             `json:"score"`                // 0-100
	Delta                float64             `json:"delta"`
	Category             CalibrationCategory `json:"category"`
	Message              string              `json:"message"`
}

// CalibrationMetric is one computed correlation snapshot for a user.
// Rows accumulate over time and are never overwritten.
type CalibrationMetric struct {
	ID               string    `json:"id" bson:"_id,omitempty"`
	UserID           string    `json:"userId" bson:"userId"`
	CorrelationCoeff float64   `json:"correlationCoeff" bson:"correlationCoeff"` // [-1,1]
	SampleSize       int       `json:"sampleSize" bson:"sampleSize"`
	ComputedAt       time.Time `json:"computedAt" bson:"computedAt"`
}

// PeerDistribution is the derived, privacy-gated spread of per-user
// calibration correlations. Not a source of truth; rebuilt from metric
// rows and snapshotted for fast percentile lookups.
type PeerDistribution struct {
	Correlations []float64  `json:"correlations"` // sorted ascending
	Quartiles    [3]float64 `json:"quartiles"`    // Q1, median, Q3
	Median       float64    `json:"median"`
	Mean         float64    `json:"mean"`
	PoolSize     int        `json:"poolSize"`
	ComputedAt   time.Time  `json:"computedAt"`
}

// OverconfidentTopic is a concept commonly over-estimated across the
// peer pool.
type OverconfidentTopic struct {
	ConceptName  string  `json:"conceptName"`
	Prevalence   float64 `json:"prevalence"` // distinct flagging users / pool size
	UsersFlagged int     `json:"usersFlagged"`
	AvgDelta     float64 `json:"avgDelta"` // mean delta across flagged responses
}

// PeerReport places one user inside the peer calibration distribution.
type PeerReport struct {
	UserID              string               `json:"userId"`
	Correlation         float64              `json:"correlation"`
	Strength            CorrelationStrength  `json:"strength"`
	Percentile          float64              `json:"percentile"` // 0-100
	Quartile            int                  `json:"quartile"`   // 1-4
	Distribution        *PeerDistribution    `json:"distribution"`
	OverconfidentTopics []OverconfidentTopic `json:"overconfidentTopics"`
	GeneratedAt         time.Time            `json:"generatedAt"`
}
