// Package pair implements the pair engine: creating and reinforcing
// adjacent-token pairs, deriving their tier from strength, and
// snapshotting the category pattern at reinforcement time.
//
// Canonical key construction follows pmi.Counter.GetPairCount's
// sort-then-join approach (pkg/korel/pmi/counts.go); the promotion
// table is shaped like signals.CollisionConfig's threshold tables
// (pkg/korel/signals/collision.go).
package pair

import (
	"context"
	"fmt"

	"github.com/ariacore/aria/pkg/aria/internalerr"
	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/store"
)

// ReinforcementBase is the strength added on a plain reinforcement
// before the category modifier is applied.
const ReinforcementBase = 0.02

// ReinforcementMax is the strength ceiling.
const ReinforcementMax = 1.0

// promotionModifier scales the reinforcement amount by the stronger of
// the two endpoint categories' "stickiness".
var promotionModifier = map[model.Category]float64{
	model.CategoryStable:       1.5,
	model.CategoryStructural:   0.6,
	model.CategoryTransition:   1.0,
	model.CategoryModifier:     1.0,
	model.CategoryUnclassified: 0.8,
}

// TierInterval is how many messages until a pair in this tier is next
// due for decay.
var TierInterval = map[model.Tier]uint64{
	model.TierShort:  50,
	model.TierMedium: 200,
	model.TierLong:   1000,
}

// TierRate is the multiplicative decay applied when a pair's
// decay_at_message arrives.
var TierRate = map[model.Tier]float64{
	model.TierShort:  0.15,
	model.TierMedium: 0.05,
	model.TierLong:   0.01,
}

// Result summarizes what the pair engine did for one message tick.
type Result struct {
	NewPairs   int
	Reinforced int
	Promoted   int
}

// Process forms and reinforces every adjacent pair in tokens, skipping
// self-pairs (equal adjacent tokens). categories must already hold the
// current category for every distinct token in tokens; Process does no
// per-token category reads of its own.
func Process(ctx context.Context, st store.Store, tokens []string, categories map[string]model.Category, messageIndex uint64) (*Result, error) {
	res := &Result{}

	for i := 0; i < len(tokens)-1; i++ {
		a, b := tokens[i], tokens[i+1]
		if a == b {
			continue
		}

		if err := reinforceOrCreate(ctx, st, a, b, categories, messageIndex, res); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func reinforceOrCreate(ctx context.Context, st store.Store, a, b string, categories map[string]model.Category, messageIndex uint64, res *Result) error {
	ta, tb := model.SortTokens(a, b)
	key := model.PatternKey(ta, tb)

	existing, err := st.GetPair(ctx, key)
	if err != nil {
		return fmt.Errorf("pair: get %q: %w", key, internalerr.ErrBackend)
	}

	catA := categories[ta]
	catB := categories[tb]
	pattern := string(catA) + "->" + string(catB)

	if existing == nil || existing.Tier == model.TierDecay {
		// A key collision against a retired pair restores it fresh —
		// never reinforces the decayed strength.
		p := model.Pair{
			TokenA:             ta,
			TokenB:             tb,
			Strength:           ReinforcementBase,
			Tier:               model.TierShort,
			Frequency:          1,
			ReinforcementCount: 1,
			CategoryPattern:    pattern,
			DecayAtMessage:     messageIndex + TierInterval[model.TierShort],
			LastSeenMessage:    messageIndex,
		}
		if existing != nil {
			p.Frequency = existing.Frequency + 1
			p.ReinforcementCount = existing.ReinforcementCount + 1
			p.DecayCount = existing.DecayCount
			if err := st.UpdatePair(ctx, key, func(stored *model.Pair) { *stored = p }); err != nil {
				return fmt.Errorf("pair: restore %q: %w", key, internalerr.ErrBackend)
			}
			res.NewPairs++
			return nil
		}
		outcome, err := st.InsertPair(ctx, p)
		if err != nil {
			return fmt.Errorf("pair: insert %q: %w", key, internalerr.ErrBackend)
		}
		if outcome == store.Conflict {
			// A concurrent tick won the insert race; fall through to
			// the reinforce branch against whatever it wrote.
			return reinforceExisting(ctx, st, key, catA, catB, messageIndex, res)
		}
		res.NewPairs++
		return nil
	}

	return reinforceExisting(ctx, st, key, catA, catB, messageIndex, res)
}

func reinforceExisting(ctx context.Context, st store.Store, key string, catA, catB model.Category, messageIndex uint64, res *Result) error {
	promoted := false
	modifier := promotionModifier[catA]
	if m := promotionModifier[catB]; m > modifier {
		modifier = m
	}
	add := ReinforcementBase * modifier
	pattern := string(catA) + "->" + string(catB)

	err := st.UpdatePair(ctx, key, func(p *model.Pair) {
		oldTier := p.Tier
		newStrength := p.Strength + add
		if newStrength > ReinforcementMax {
			newStrength = ReinforcementMax
		}
		newTier := model.TierForStrength(newStrength)

		p.Strength = newStrength
		p.Tier = newTier
		p.CategoryPattern = pattern
		p.Frequency++
		p.ReinforcementCount++
		p.DecayAtMessage = messageIndex + TierInterval[newTier]
		p.LastSeenMessage = messageIndex

		if newTier != oldTier {
			promoted = true
		}
	})
	if err != nil {
		return fmt.Errorf("pair: update %q: %w", key, internalerr.ErrBackend)
	}

	res.Reinforced++
	if promoted {
		res.Promoted++
	}
	return nil
}
