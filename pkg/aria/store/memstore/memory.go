// Package memstore is an in-memory implementation of store.Store for
// tests and the REPL: a single mutex-guarded struct with maps per
// entity and defensive copies on every read/write so callers can't
// alias internal state.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/store"
)

// Store is an in-memory, goroutine-safe store.Store.
type Store struct {
	mu sync.Mutex

	messageCounter uint64
	tokens         map[string]*model.TokenStat
	positions      map[string][]uint32
	global         model.GlobalStats
	pairs          map[string]*model.Pair
}

// New creates an empty in-memory store, with global stats initialized
// to the {1,1,1,1} singleton.
func New() *Store {
	return &Store{
		tokens:    make(map[string]*model.TokenStat),
		positions: make(map[string][]uint32),
		global:    model.NewGlobalStats(),
		pairs:     make(map[string]*model.Pair),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// NextMessageIndex implements store.Store.
func (s *Store) NextMessageIndex(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageCounter++
	return s.messageCounter, nil
}

// GetTokenStat implements store.Store.
func (s *Store) GetTokenStat(ctx context.Context, token string) (*model.TokenStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	copied := *existing
	return &copied, nil
}

// UpsertTokenStat implements store.Store.
func (s *Store) UpsertTokenStat(ctx context.Context, stat model.TokenStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := stat
	s.tokens[stat.Token] = &copied
	return nil
}

// AppendTokenPosition implements store.Store.
func (s *Store) AppendTokenPosition(ctx context.Context, token string, position uint32, messageIndex uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[token] = append(s.positions[token], position)
	return nil
}

// RecentPositions implements store.Store. It returns at most the limit
// most-recently-appended samples, oldest first.
func (s *Store) RecentPositions(ctx context.Context, token string, limit int) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.positions[token]
	if limit <= 0 || len(all) <= limit {
		out := make([]uint32, len(all))
		copy(out, all)
		return out, nil
	}
	out := make([]uint32, limit)
	copy(out, all[len(all)-limit:])
	return out, nil
}

// GetManyCategories implements store.Store.
func (s *Store) GetManyCategories(ctx context.Context, tokens []string) (map[string]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]model.Category, len(tokens))
	for _, t := range tokens {
		if existing, ok := s.tokens[t]; ok {
			result[t] = existing.Category
		} else {
			result[t] = model.CategoryUnclassified
		}
	}
	return result, nil
}

// GetGlobalStats implements store.Store.
func (s *Store) GetGlobalStats(ctx context.Context) (model.GlobalStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.global, nil
}

// UpdateGlobalStats implements store.Store.
func (s *Store) UpdateGlobalStats(ctx context.Context, delta store.GlobalStatsDelta, newMax float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global.TotalContextsSeen += delta.Contexts
	s.global.TotalAdjWindows += delta.AdjWindows
	s.global.TotalTokensSeen += delta.TokensSeen
	if newMax > s.global.MaxPositionalVariance {
		s.global.MaxPositionalVariance = newMax
	}
	return nil
}

// GetPair implements store.Store.
func (s *Store) GetPair(ctx context.Context, patternKey string) (*model.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.pairs[patternKey]
	if !ok {
		return nil, nil
	}
	copied := *existing
	return &copied, nil
}

// InsertPair implements store.Store.
func (s *Store) InsertPair(ctx context.Context, p model.Pair) (store.InsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := p.PatternKey()
	if _, exists := s.pairs[key]; exists {
		return store.Conflict, nil
	}
	copied := p
	s.pairs[key] = &copied
	return store.Created, nil
}

// UpdatePair implements store.Store.
func (s *Store) UpdatePair(ctx context.Context, patternKey string, mutate func(p *model.Pair)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.pairs[patternKey]
	if !ok {
		return nil
	}
	copied := *existing
	mutate(&copied)
	s.pairs[patternKey] = &copied
	return nil
}

// SearchPairsByWord implements store.Store.
func (s *Store) SearchPairsByWord(ctx context.Context, token string) ([]model.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Pair
	for _, p := range s.pairs {
		if p.Tier == model.TierDecay {
			continue
		}
		if p.TokenA == token || p.TokenB == token {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	return out, nil
}

// TopPairs implements store.Store.
func (s *Store) TopPairs(ctx context.Context, limit int, tier model.Tier) ([]model.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Pair
	for _, p := range s.pairs {
		if tier != "" && p.Tier != tier {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PairsDueForDecay implements store.Store.
func (s *Store) PairsDueForDecay(ctx context.Context, messageIndex uint64) ([]model.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Pair
	for _, p := range s.pairs {
		if p.Tier != model.TierDecay && p.DecayAtMessage <= messageIndex {
			out = append(out, *p)
		}
	}
	return out, nil
}

// MovePairTier implements store.Store.
func (s *Store) MovePairTier(ctx context.Context, patternKey string, newTier model.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.pairs[patternKey]
	if !ok {
		return nil
	}
	copied := *existing
	copied.Tier = newTier
	s.pairs[patternKey] = &copied
	return nil
}
