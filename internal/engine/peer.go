package engine

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"acumen/internal/model"
)

// UserCorrelation collapses a user's accumulated metric rows into one
// correlation: the sample-size weighted mean. It also returns the total
// sample count, which feeds the pool eligibility gate.
func UserCorrelation(metrics []model.CalibrationMetric) (float64, int) {
	var weighted float64
	total := 0
	for _, m := range metrics {
		weighted += m.CorrelationCoeff * float64(m.SampleSize)
		total += m.SampleSize
	}
	if total == 0 {
		return 0, 0
	}
	return weighted / float64(total), total
}

// BuildDistribution derives the peer spread from per-user correlations:
// values sorted ascending, Q1/median/Q3 by linear interpolation, and the
// arithmetic mean. Returns nil for an empty pool; the privacy gate in
// front of this function enforces the real pool floor.
func BuildDistribution(correlations []float64, now time.Time) *model.PeerDistribution {
	if len(correlations) == 0 {
		return nil
	}

	sorted := append([]float64(nil), correlations...)
	sort.Float64s(sorted)

	mean, _ := stats.Mean(sorted)
	median, _ := stats.Median(sorted)

	return &model.PeerDistribution{
		Correlations: sorted,
		Quartiles: [3]float64{
			interpolate(sorted, 0.25),
			interpolate(sorted, 0.50),
			interpolate(sorted, 0.75),
		},
		Median:     median,
		Mean:       mean,
		PoolSize:   len(sorted),
		ComputedAt: now,
	}
}

// interpolate returns the q-quantile of ascending values by linear
// interpolation between closest ranks: position = q * (n-1).
func interpolate(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if frac == 0 || lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Percentile ranks a value against the pool: 100 times the count of
// peer values strictly less than v over the pool size, clamped to
// [0,100]. A value above every peer scores 100, below every peer 0.
func Percentile(dist *model.PeerDistribution, v float64) float64 {
	if dist == nil || dist.PoolSize == 0 {
		return 0
	}
	below := sort.SearchFloat64s(dist.Correlations, v)
	return clamp(100*float64(below)/float64(dist.PoolSize), 0, 100)
}

// QuartileRank places a percentile into quartile 1 (bottom) through 4
// (top).
func QuartileRank(percentile float64) int {
	switch {
	case percentile < 25:
		return 1
	case percentile < 50:
		return 2
	case percentile < 75:
		return 3
	default:
		return 4
	}
}

// OverconfidentTopics surfaces concepts commonly over-estimated across
// the peer pool. A response counts when its delta exceeds the
// overconfidence threshold, at most once per (user, concept) for
// prevalence; concepts kept must be flagged by at least the prevalence
// share of the pool. Results sort by prevalence descending, ties by
// concept name, each annotated with the mean delta across all of its
// flagged responses.
func OverconfidentTopics(responses []model.AssessmentResponse, poolSize int, p Params) []model.OverconfidentTopic {
	if poolSize == 0 {
		return nil
	}

	type conceptStats struct {
		users      map[string]struct{}
		deltaSum   float64
		deltaCount int
	}
	byConcept := make(map[string]*conceptStats)

	for _, r := range responses {
		if r.CalibrationDelta <= p.OverconfidenceThreshold {
			continue
		}
		cs, ok := byConcept[r.ConceptName]
		if !ok {
			cs = &conceptStats{users: make(map[string]struct{})}
			byConcept[r.ConceptName] = cs
		}
		cs.users[r.UserID] = struct{}{}
		cs.deltaSum += r.CalibrationDelta
		cs.deltaCount++
	}

	var topics []model.OverconfidentTopic
	for concept, cs := range byConcept {
		prevalence := float64(len(cs.users)) / float64(poolSize)
		if prevalence < p.TopicPrevalence {
			continue
		}
		topics = append(topics, model.OverconfidentTopic{
			ConceptName:  concept,
			Prevalence:   prevalence,
			UsersFlagged: len(cs.users),
			AvgDelta:     cs.deltaSum / float64(cs.deltaCount),
		})
	}

	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Prevalence != topics[j].Prevalence {
			return topics[i].Prevalence > topics[j].Prevalence
		}
		return topics[i].ConceptName < topics[j].ConceptName
	})
	return topics
}
