// Package category implements the four behavioral score formulas and
// the three-hit inertia protocol that confirms category changes.
//
// The score/clamp shape follows signals.ComputeDamping: small pure
// functions over a ratio, clamped into a bounded range, with the floor
// and inertia values fixed as package constants. The pending/confirm state machine
// follows stoplist.Manager's candidate bookkeeping.
package category

import (
	"context"
	"fmt"

	"github.com/ariacore/aria/pkg/aria/internalerr"
	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/store"
)

// MinOccurrencesForCategory is the floor below which a token stays
// unclassified regardless of its scores.
const MinOccurrencesForCategory = 2

// CategoryFloor is the minimum max-score required to nominate any
// candidate other than unclassified.
const CategoryFloor = 0.15

// InertiaThreshold is the number of consecutive ticks a non-current
// candidate must win before the category actually changes.
const InertiaThreshold = 3

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func max1(v uint64) float64 {
	if v < 1 {
		return 1
	}
	return float64(v)
}

// Score runs Pass A (variance refresh) and Pass B (scores + inertia)
// for every token touched this tick, persisting updated stats.
func Score(ctx context.Context, st store.Store, touched map[string]*model.TokenStat, messageIndex uint64) error {
	variances := make(map[string]float64, len(touched))

	globalMaxVariance := 0.0
	for token := range touched {
		positions, err := st.RecentPositions(ctx, token, 100)
		if err != nil {
			return fmt.Errorf("category: recent positions %q: %w", token, internalerr.ErrBackend)
		}
		v := variance(positions)
		variances[token] = v
		if v > globalMaxVariance {
			globalMaxVariance = v
		}
	}

	global, err := st.GetGlobalStats(ctx)
	if err != nil {
		return fmt.Errorf("category: global stats: %w", internalerr.ErrBackend)
	}
	if globalMaxVariance > global.MaxPositionalVariance {
		if err := st.UpdateGlobalStats(ctx, store.GlobalStatsDelta{}, globalMaxVariance); err != nil {
			return fmt.Errorf("category: raise max variance: %w", internalerr.ErrBackend)
		}
		global.MaxPositionalVariance = globalMaxVariance
	}

	gCtx := max1(global.TotalContextsSeen)
	gAdj := max1(global.TotalAdjWindows)
	gVar := global.MaxPositionalVariance
	if gVar < 1 {
		gVar = 1
	}

	for token, s := range touched {
		sigma2 := variances[token]
		occ := max1(s.TotalOccurrences)

		stability := clamp01(float64(s.ContextCount)/gCtx + float64(s.UniqueAdjacencyCount)/gAdj - sigma2/gVar)
		transition := clamp01(float64(s.BridgeCount)/occ + float64(s.TemporalAdjCount)/occ + sigma2/gVar)
		dependency := clamp01(float64(s.AdjacentToStable)/occ + float64(s.ContrastPairCount)/occ - float64(s.StandaloneCount)/occ)
		structural := clamp01(float64(s.TotalOccurrences)/gCtx + float64(s.TemporalAdjCount)/occ - float64(s.UniqueAdjacencyCount)/gAdj - float64(s.StandaloneCount)/occ - sigma2/gVar)

		s.Stability = stability
		s.Transition = transition
		s.Dependency = dependency
		s.Structural = structural

		candidate := candidateCategory(s)
		applyInertia(s, candidate)

		if err := st.UpsertTokenStat(ctx, *s); err != nil {
			return fmt.Errorf("category: upsert %q: %w", token, internalerr.ErrBackend)
		}
	}

	return nil
}

// candidateCategory applies the min-occurrences floor, the category
// floor, and the stable>transition>modifier>structural tie-break.
func candidateCategory(s *model.TokenStat) model.Category {
	if s.TotalOccurrences < MinOccurrencesForCategory {
		return model.CategoryUnclassified
	}

	type scored struct {
		cat   model.Category
		score float64
	}
	// Priority order doubles as the tie-break order: first entry wins ties.
	candidates := []scored{
		{model.CategoryStable, s.Stability},
		{model.CategoryTransition, s.Transition},
		{model.CategoryModifier, s.Dependency},
		{model.CategoryStructural, s.Structural},
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}

	if best.score <= CategoryFloor {
		return model.CategoryUnclassified
	}
	return best.cat
}

// applyInertia implements the pending/confirm state machine: a
// candidate must win InertiaThreshold consecutive ticks in a row
// before it is committed as the current category.
func applyInertia(s *model.TokenStat, candidate model.Category) {
	switch {
	case candidate == s.Category:
		s.PendingCategory = ""
		s.PendingCount = 0
	case candidate == s.PendingCategory && s.PendingCategory != "":
		s.PendingCount++
		if s.PendingCount >= InertiaThreshold {
			s.Category = candidate
			s.PendingCategory = ""
			s.PendingCount = 0
		}
	default:
		s.PendingCategory = candidate
		s.PendingCount = 1
	}
}

// variance computes the population variance of at most the 100 most
// recent integer position samples: sigma^2 = mean(x^2) - mean(x)^2.
func variance(positions []uint32) float64 {
	if len(positions) == 0 {
		return 0
	}
	if len(positions) > model.MaxPositionSamples {
		positions = positions[len(positions)-model.MaxPositionSamples:]
	}

	var sum, sumSq float64
	for _, p := range positions {
		x := float64(p)
		sum += x
		sumSq += x * x
	}
	n := float64(len(positions))
	mean := sum / n
	meanSq := sumSq / n
	v := meanSq - mean*mean
	if v < 0 {
		v = 0 // guards float rounding, variance can't be negative
	}
	return v
}
