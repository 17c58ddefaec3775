package engine

import (
	"math"
	"sort"
	"time"

	"acumen/internal/model"
)

// discriminationGroupShare is the slice of respondents forming the top
// and bottom comparison groups, per the classical 27% rule.
const discriminationGroupShare = 0.27

// LowDiscriminationReason is the review note attached to items whose
// recomputed index falls below the flag threshold.
const LowDiscriminationReason = "Low discrimination index: item does not distinguish high/low performers"

// SelectionOptions controls candidate ordering in SelectQuestion.
// ExcludeRecent is honored by the caller's candidate assembly (the
// cooldown filter); SelectQuestion itself only orders and picks.
type SelectionOptions struct {
	PreferUnused         bool
	SortByDiscrimination bool
	ExcludeRecent        bool
}

// SortForLoad orders a bank load by timesUsed ascending, breaking ties
// by discrimination index descending with unset indices last. The input
// is not modified.
func SortForLoad(items []*model.QuestionBankItem) []*model.QuestionBankItem {
	sorted := append([]*model.QuestionBankItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TimesUsed != sorted[j].TimesUsed {
			return sorted[i].TimesUsed < sorted[j].TimesUsed
		}
		return discriminationAbove(sorted[i], sorted[j])
	})
	return sorted
}

// discriminationAbove reports whether a ranks above b on discrimination
// descending with nil last.
func discriminationAbove(a, b *model.QuestionBankItem) bool {
	switch {
	case a.DiscriminationIndex == nil:
		return false
	case b.DiscriminationIndex == nil:
		return true
	default:
		return *a.DiscriminationIndex > *b.DiscriminationIndex
	}
}

// FilterByDifficulty keeps items whose difficulty lies inside the
// inclusive window [max(0, target-w), min(100, target+w)].
func FilterByDifficulty(items []*model.QuestionBankItem, target, window float64) []*model.QuestionBankItem {
	lo := math.Max(0, target-window)
	hi := math.Min(100, target+window)
	var kept []*model.QuestionBankItem
	for _, item := range items {
		if item.DifficultyLevel >= lo && item.DifficultyLevel <= hi {
			kept = append(kept, item)
		}
	}
	return kept
}

// FilterCooldown drops items the user answered within the cooldown
// window. Items never answered, or answered earlier than the window,
// stay eligible. lastAnswered maps item id to the user's most recent
// answer time.
func FilterCooldown(items []*model.QuestionBankItem, lastAnswered map[string]time.Time, now time.Time, cooldown time.Duration) []*model.QuestionBankItem {
	cutoff := now.Add(-cooldown)
	var kept []*model.QuestionBankItem
	for _, item := range items {
		if at, ok := lastAnswered[item.ID]; ok && at.After(cutoff) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// SelectQuestion picks the best candidate. With PreferUnused, items
// with timesUsed == 0 strictly beat any used item regardless of
// discrimination. Inside a tier, SortByDiscrimination ranks by index
// descending with unset indices last; otherwise by timesUsed ascending.
// Returns nil on an empty candidate list.
func SelectQuestion(items []*model.QuestionBankItem, opts SelectionOptions) *model.QuestionBankItem {
	if len(items) == 0 {
		return nil
	}

	pool := items
	if opts.PreferUnused {
		var unused []*model.QuestionBankItem
		for _, item := range items {
			if item.TimesUsed == 0 {
				unused = append(unused, item)
			}
		}
		if len(unused) > 0 {
			pool = unused
		}
	}

	best := pool[0]
	for _, item := range pool[1:] {
		if opts.SortByDiscrimination {
			if discriminationAbove(item, best) {
				best = item
			}
		} else if item.TimesUsed < best.TimesUsed {
			best = item
		}
	}
	return best
}

// Discrimination computes the classical discrimination index from an
// item's full score history (0-100 scale): the fraction of the
// top-27%-by-score group scoring at least 80 minus the same fraction of
// the bottom-27% group, clamped to [0,1]. Below the response floor the
// index stays unset and nil is returned; group size is round(0.27n)
// with a floor of one respondent.
func Discrimination(scores []float64, minResponses int) *float64 {
	if len(scores) < minResponses {
		return nil
	}

	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	group := int(math.Round(discriminationGroupShare * float64(len(sorted))))
	if group < 1 {
		group = 1
	}
	top := sorted[:group]
	bottom := sorted[len(sorted)-group:]

	index := clamp01(fractionHigh(top) - fractionHigh(bottom))
	return &index
}

func fractionHigh(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	high := 0
	for _, s := range scores {
		if s >= highScore {
			high++
		}
	}
	return float64(high) / float64(len(scores))
}
