// Package decay implements the decay engine: on every message tick,
// every pair whose decay_at_message has arrived is aged by its tier's
// rate, and pairs that fall below the strength floor are retired to
// the decay tier.
//
// The Result/Run shape follows maintenance.Cleaner — iterate a due
// set, mutate, count outcomes — and the decay curve itself is the same
// multiply-toward-a-floor idea as signals.dampingCurve, applied
// per-tier instead of continuously.
package decay

import (
	"context"
	"fmt"

	"github.com/ariacore/aria/pkg/aria/internalerr"
	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/pair"
	"github.com/ariacore/aria/pkg/aria/store"
)

// Result summarizes one decay pass.
type Result struct {
	Decayed int
	Removed int // retired to the decay tier this pass
}

// Run processes every pair due for decay as of messageIndex. The
// aging hook is handled separately by AgeScores, since it operates on
// token stats rather than pairs and is rate-limited by the caller.
func Run(ctx context.Context, st store.Store, messageIndex uint64) (*Result, error) {
	due, err := st.PairsDueForDecay(ctx, messageIndex)
	if err != nil {
		return nil, fmt.Errorf("decay: due pairs: %w", internalerr.ErrBackend)
	}

	res := &Result{}
	for _, p := range due {
		key := p.PatternKey()
		retired := false

		err := st.UpdatePair(ctx, key, func(p *model.Pair) {
			if p.Tier == model.TierDecay {
				return
			}
			rate := pair.TierRate[p.Tier]
			newStrength := p.Strength * (1 - rate)

			if newStrength < model.DecayMin {
				p.Strength = newStrength
				p.Tier = model.TierDecay
				p.DecayCount++
				retired = true
				return
			}

			newTier := model.TierForStrength(newStrength)
			p.Strength = newStrength
			p.Tier = newTier
			p.DecayCount++
			p.DecayAtMessage = messageIndex + pair.TierInterval[newTier]
		})
		if err != nil {
			return nil, fmt.Errorf("decay: update %q: %w", key, internalerr.ErrBackend)
		}

		res.Decayed++
		if retired {
			res.Removed++
		}
	}

	return res, nil
}

// AgingFactor is the multiplier AgeScores applies to each of a stale
// token's four category scores. How often aging runs is left to the
// caller's cadence (e.g. once per N ticks).
const AgingFactor = 0.99

// AgeScores implements the optional aging hook: multiply all four
// category scores of stale tokens by AgingFactor.
// Categories are not re-derived here; this only nudges future
// assignments made by the category scorer. staleTokens is expected to
// be pre-filtered by the caller (e.g. not updated in the last 24h).
func AgeScores(ctx context.Context, st store.Store, staleTokens []string) error {
	for _, token := range staleTokens {
		s, err := st.GetTokenStat(ctx, token)
		if err != nil {
			return fmt.Errorf("decay: aging load %q: %w", token, internalerr.ErrBackend)
		}
		if s == nil {
			continue
		}
		s.Stability *= AgingFactor
		s.Transition *= AgingFactor
		s.Dependency *= AgingFactor
		s.Structural *= AgingFactor
		if err := st.UpsertTokenStat(ctx, *s); err != nil {
			return fmt.Errorf("decay: aging upsert %q: %w", token, internalerr.ErrBackend)
		}
	}
	return nil
}
