// Package stats implements the token statistics accumulator:
// per-message behavioral counters, position history, and the
// global normalization record, updated once per message tick.
//
// The increment-per-occurrence style here is the same shape as
// pmi.Counter.AddDocument, adapted from per-document co-occurrence
// counting to per-message behavioral signals.
package stats

import (
	"context"
	"fmt"

	"github.com/ariacore/aria/pkg/aria/internalerr"
	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/store"
)

// MaxPositionHistory bounds the position samples considered for
// variance.
const MaxPositionHistory = 100

// AdjacencyWindow is the ±N neighborhood radius used for the unique-
// adjacency, temporal and stable adjacency signals (the bridge signal
// looks only at the immediate neighbors).
const AdjacencyWindow = 2

// Result carries the loaded/updated TokenStat rows for a tick, handed
// to the category scorer (which runs immediately after accumulation).
type Result struct {
	Stats map[string]*model.TokenStat // keyed by token, same set as tokenSet
}

// Accumulate runs step 4.3 of the pipeline for one message. tokens is
// the tokenizer's output (already lowercased, order preserved).
func Accumulate(ctx context.Context, st store.Store, tokens []string, messageIndex uint64) (*Result, error) {
	tokenSet := uniqueTokens(tokens)
	n := len(tokens)

	loaded := make(map[string]*model.TokenStat, len(tokenSet))
	for t := range tokenSet {
		existing, err := st.GetTokenStat(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("accumulate: load %q: %w", t, internalerr.ErrBackend)
		}
		if existing == nil {
			existing = &model.TokenStat{Token: t, Category: model.CategoryUnclassified}
		}
		loaded[t] = existing
	}

	stableSet := make(map[string]struct{})
	for t, s := range loaded {
		if s.Category == model.CategoryStable {
			stableSet[t] = struct{}{}
		}
	}

	standalone := n == 1

	contextSeen := make(map[string]struct{}, len(tokenSet)) // (token) context_count gate
	standaloneSeen := make(map[string]struct{}, len(tokenSet))
	bridgeSeen := make(map[string]struct{}, len(tokenSet))
	temporalSeen := make(map[string]struct{}, len(tokenSet))
	adjStableSeen := make(map[string]struct{}, len(tokenSet))
	contrastSeen := make(map[string]struct{}, len(tokenSet))
	adjSets := make(map[string]map[string]struct{}, len(tokenSet))

	for i, tok := range tokens {
		s := loaded[tok]

		if err := st.AppendTokenPosition(ctx, tok, uint32(i), messageIndex); err != nil {
			return nil, fmt.Errorf("accumulate: append position %q: %w", tok, internalerr.ErrBackend)
		}

		lo := i - AdjacencyWindow
		if lo < 0 {
			lo = 0
		}
		hi := i + AdjacencyWindow
		if hi > n-1 {
			hi = n - 1
		}
		adjSet := adjSets[tok]
		if adjSet == nil {
			adjSet = make(map[string]struct{})
			adjSets[tok] = adjSet
		}
		neighborIsStable := false
		neighborIsTemporal := false
		for j := lo; j <= hi; j++ {
			if j == i {
				continue
			}
			neighbor := tokens[j]
			adjSet[neighbor] = struct{}{}
			if _, ok := stableSet[neighbor]; ok {
				neighborIsStable = true
			}
			if model.IsTemporalMarker(neighbor) {
				neighborIsTemporal = true
			}
		}

		s.TotalOccurrences++

		if s.LastMessageIndex != messageIndex {
			if _, already := contextSeen[tok]; !already {
				s.ContextCount++
				contextSeen[tok] = struct{}{}
			}
		}

		if i > 0 && i < n-1 {
			prev, next := tokens[i-1], tokens[i+1]
			_, prevStable := stableSet[prev]
			_, nextStable := stableSet[next]
			if prevStable && nextStable {
				if _, already := bridgeSeen[tok]; !already {
					s.BridgeCount++
					bridgeSeen[tok] = struct{}{}
				}
			}
		}

		if neighborIsTemporal {
			if _, already := temporalSeen[tok]; !already {
				s.TemporalAdjCount++
				temporalSeen[tok] = struct{}{}
			}
		}

		if neighborIsStable {
			if _, already := adjStableSeen[tok]; !already {
				s.AdjacentToStable++
				adjStableSeen[tok] = struct{}{}
			}
		}

		if model.HasContrastPartnerIn(tok, tokenSet) {
			if _, already := contrastSeen[tok]; !already {
				s.ContrastPairCount++
				contrastSeen[tok] = struct{}{}
			}
		}

		if standalone {
			if _, already := standaloneSeen[tok]; !already {
				s.StandaloneCount++
				standaloneSeen[tok] = struct{}{}
			}
		}
	}

	for tok, adjSet := range adjSets {
		s := loaded[tok]
		if uint64(len(adjSet)) > s.UniqueAdjacencyCount {
			s.UniqueAdjacencyCount = uint64(len(adjSet))
		}
	}

	for tok, s := range loaded {
		s.LastMessageIndex = messageIndex
		if err := st.UpsertTokenStat(ctx, *s); err != nil {
			return nil, fmt.Errorf("accumulate: upsert %q: %w", tok, internalerr.ErrBackend)
		}
	}

	delta := store.GlobalStatsDelta{
		Contexts:   1,
		TokensSeen: uint64(n),
	}
	if n > 1 {
		delta.AdjWindows = uint64(n - 1)
	}
	if err := st.UpdateGlobalStats(ctx, delta, 0); err != nil {
		return nil, fmt.Errorf("accumulate: update global stats: %w", internalerr.ErrBackend)
	}

	return &Result{Stats: loaded}, nil
}

func uniqueTokens(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
