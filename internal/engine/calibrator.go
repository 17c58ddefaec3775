package engine

import (
	"fmt"
	"math"

	"acumen/internal/model"
)

// minCorrelationPairs is the fewest paired samples for which Pearson's r
// is considered meaningful; below it Correlation reports no value.
const minCorrelationPairs = 5

// NormalizeConfidence maps the ordinal 1..5 confidence scale onto 0-100:
// normalized = (confidence - 1) * 25.
func NormalizeConfidence(c model.ConfidenceLevel) (float64, error) {
	if !c.IsValid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidConfidence, int(c))
	}
	return float64(c-1) * 25, nil
}

// CalibrationDelta computes normalized confidence minus score. Positive
// deltas indicate overconfidence, negative ones underconfidence.
func CalibrationDelta(c model.ConfidenceLevel, score float64) (float64, error) {
	normalized, err := NormalizeConfidence(c)
	if err != nil {
		return 0, err
	}
	if score < 0 || score > 100 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, score)
	}
	return normalized - score, nil
}

// CategorizeDelta classifies a delta against the calibrated band.
// Deltas of exactly ±band are CALIBRATED.
func CategorizeDelta(delta, band float64) model.CalibrationCategory {
	switch {
	case delta > band:
		return model.CalibrationOverconfident
	case delta < -band:
		return model.CalibrationUnderconfident
	default:
		return model.CalibrationCalibrated
	}
}

// Feedback builds the per-response calibration readout: delta, category
// and a message template keyed by category citing the normalized
// confidence and the score.
func Feedback(c model.ConfidenceLevel, score float64, p Params) (*model.CalibrationFeedback, error) {
	normalized, err := NormalizeConfidence(c)
	if err != nil {
		return nil, err
	}
	delta, err := CalibrationDelta(c, score)
	if err != nil {
		return nil, err
	}
	category := CategorizeDelta(delta, p.CalibratedBand)
	return &model.CalibrationFeedback{
		NormalizedConfidence: normalized,
		Score:                score,
		Delta:                delta,
		Category:             category,
		Message:              feedbackMessage(category, normalized, score),
	}, nil
}

func feedbackMessage(category model.CalibrationCategory, normalized, score float64) string {
	switch category {
	case model.CalibrationOverconfident:
		return fmt.Sprintf("Your confidence (%.0f) ran ahead of your score (%.0f). Slow down and double-check before committing.", normalized, score)
	case model.CalibrationUnderconfident:
		return fmt.Sprintf("Your confidence (%.0f) trailed your score (%.0f). You know more than you give yourself credit for.", normalized, score)
	default:
		return fmt.Sprintf("Your confidence (%.0f) matched your score (%.0f). Well calibrated.", normalized, score)
	}
}

// Correlation computes Pearson's r over paired (confidence, score)
// series. It reports nil with no error when fewer than 5 pairs exist,
// fails on mismatched lengths, returns 0 when either series has zero
// variance, and otherwise clamps r to [-1,1] against float drift.
func Correlation(confidences, scores []float64) (*float64, error) {
	if len(confidences) != len(scores) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrSeriesLengthMismatch, len(confidences), len(scores))
	}
	n := len(confidences)
	if n < minCorrelationPairs {
		return nil, nil
	}

	var sumC, sumS float64
	for i := 0; i < n; i++ {
		sumC += confidences[i]
		sumS += scores[i]
	}
	meanC := sumC / float64(n)
	meanS := sumS / float64(n)

	var cov, varC, varS float64
	for i := 0; i < n; i++ {
		dc := confidences[i] - meanC
		ds := scores[i] - meanS
		cov += dc * ds
		varC += dc * dc
		varS += ds * ds
	}
	if varC == 0 || varS == 0 {
		r := 0.0
		return &r, nil
	}

	r := clamp(cov/math.Sqrt(varC*varS), -1, 1)
	return &r, nil
}

// InterpretCorrelation maps |r| onto a strength label: above 0.7 strong,
// 0.4 to 0.7 moderate, below 0.4 weak. The sign is ignored.
func InterpretCorrelation(r float64) model.CorrelationStrength {
	abs := math.Abs(r)
	switch {
	case abs > 0.7:
		return model.CorrelationStrong
	case abs >= 0.4:
		return model.CorrelationModerate
	default:
		return model.CorrelationWeak
	}
}
