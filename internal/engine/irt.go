package engine

import (
	"fmt"
	"math"
)

// irtScale is the logistic scaling factor on the 0-100 difficulty scale.
// A learner whose ability sits one scale unit (12.5 points) above an
// item's difficulty answers it correctly with probability ~0.73.
const irtScale = 12.5

// priorCI is the interval width reported before any observation: half
// the ability scale. It can never satisfy the early-stop gate.
const priorCI = 50.0

// Estimator maintains a streaming ability estimate for one
// (user, objective) pair. Ability θ lives on [0,1]; the confidence
// interval width is reported on the 0-100 scale. The estimator only
// reports early-stop eligibility; ending the session is the
// orchestrator's decision.
type Estimator struct {
	theta        float64
	information  float64 // accumulated Fisher information
	observations int
}

// NewEstimator starts from the uninformed midpoint estimate.
func NewEstimator() *Estimator {
	return &Estimator{theta: 0.5}
}

// RestoreEstimator rebuilds an estimator from persisted session state so
// an interrupted session resumes where it left off.
func RestoreEstimator(theta, information float64, observations int) *Estimator {
	return &Estimator{
		theta:        clamp01(theta),
		information:  math.Max(information, 0),
		observations: observations,
	}
}

// ExpectedAccuracy returns P(correct) for ability θ against an item:
// p = 1 / (1 + e^(-(100θ - difficulty) / 12.5)).
func ExpectedAccuracy(theta, difficulty float64) float64 {
	return 1.0 / (1.0 + math.Exp(-(theta*100-difficulty)/irtScale))
}

// Observe folds one scored response into the estimate:
// θ' = clamp(θ + K(n) * (score - p) / 100), where score is on [0,1]
// (a correct/incorrect outcome maps to 1/0) and p is the expected
// accuracy before this observation. K shrinks as evidence accumulates.
func (e *Estimator) Observe(difficulty, score float64) error {
	if difficulty < 0 || difficulty > 100 {
		return fmt.Errorf("%w: difficulty %v", ErrInvalidParameters, difficulty)
	}
	if score < 0 || score > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidScore, score)
	}

	p := ExpectedAccuracy(e.theta, difficulty)
	e.theta = clamp01(e.theta + e.kFactor()*(score-p)/100)
	e.information += p * (1 - p)
	e.observations++
	return nil
}

// kFactor steps down as the observation count grows, tapering the
// per-response movement of the estimate.
func (e *Estimator) kFactor() float64 {
	switch {
	case e.observations < 20:
		return 3.0
	case e.observations < 100:
		return 2.0
	default:
		return 1.0
	}
}

// Theta returns the ability estimate in [0,1].
func (e *Estimator) Theta() float64 {
	return e.theta
}

// Information returns the accumulated Fisher information.
func (e *Estimator) Information() float64 {
	return e.information
}

// Observations returns how many responses have been folded in.
func (e *Estimator) Observations() int {
	return e.observations
}

// ConfidenceInterval returns the interval width on the 0-100 scale:
// CI = 12.5 / sqrt(Σ pᵢ(1-pᵢ)). Items presented near the learner's
// ability carry the most information and shrink the interval fastest.
func (e *Estimator) ConfidenceInterval() float64 {
	if e.information <= 0 {
		return priorCI
	}
	return irtScale / math.Sqrt(e.information)
}

// CanStopEarly reports eligibility only: true when at least the minimum
// number of observations exist and the interval has narrowed below the
// early-stop width.
func (e *Estimator) CanStopEarly(p Params) bool {
	return e.observations >= p.EarlyStopMinObservations &&
		e.ConfidenceInterval() < p.EarlyStopCI
}
