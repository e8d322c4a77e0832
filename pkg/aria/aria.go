// Package aria is the main memory engine facade: a thin struct
// wrapping a store.Store and a config, exposing ProcessMessage and
// GenerateResponse plus the informational queries a caller needs to
// inspect what the engine has learned.
package aria

import (
	"context"
	"fmt"
	"sort"

	"github.com/ariacore/aria/pkg/aria/category"
	"github.com/ariacore/aria/pkg/aria/config"
	"github.com/ariacore/aria/pkg/aria/decay"
	"github.com/ariacore/aria/pkg/aria/generate"
	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/pair"
	"github.com/ariacore/aria/pkg/aria/stats"
	"github.com/ariacore/aria/pkg/aria/store"
	"github.com/ariacore/aria/pkg/aria/tokenize"
)

// Aria is the main engine facade. It owns no state of its own beyond
// the store and the active tunables; every call is safe for
// concurrent use to the extent the underlying Store is.
type Aria struct {
	store store.Store
	cfg   config.Config
}

// Options configures a new Aria instance.
type Options struct {
	Store  store.Store
	Config *config.Config // nil means config.Default()
}

// New creates an Aria instance backed by opts.Store.
func New(opts Options) *Aria {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	return &Aria{store: opts.Store, cfg: cfg}
}

// Close shuts down the underlying store.
func (a *Aria) Close() error {
	return a.store.Close()
}

// ProcessMessage runs one message through the full learning pipeline:
// tokenize, accumulate token statistics, score categories, reinforce
// pairs, and run decay. messageID and userID are validated but not
// persisted; ARIA holds no per-user state.
func (a *Aria) ProcessMessage(ctx context.Context, text, messageID, userID string) (model.ProcessReport, error) {
	if text == "" {
		return model.ProcessReport{Processed: false, Reason: "empty text"}, nil
	}
	if messageID == "" || userID == "" {
		return model.ProcessReport{Processed: false, Reason: "missing message_id or user_id"}, nil
	}

	tokens := tokenize.Tokenize(text)
	if len(tokens) == 0 {
		return model.ProcessReport{Processed: true, Reason: "no tokens"}, nil
	}

	messageIndex, err := a.store.NextMessageIndex(ctx)
	if err != nil {
		return model.ProcessReport{}, fmt.Errorf("aria: process message: %w", err)
	}

	statsRes, err := stats.Accumulate(ctx, a.store, tokens, messageIndex)
	if err != nil {
		return model.ProcessReport{}, fmt.Errorf("aria: process message: %w", err)
	}

	if err := category.Score(ctx, a.store, statsRes.Stats, messageIndex); err != nil {
		return model.ProcessReport{}, fmt.Errorf("aria: process message: %w", err)
	}

	categorized := 0
	categories := make(map[string]model.Category, len(statsRes.Stats))
	for token, s := range statsRes.Stats {
		categories[token] = s.Category
		if s.Category != model.CategoryUnclassified {
			categorized++
		}
	}

	pairRes, err := pair.Process(ctx, a.store, tokens, categories, messageIndex)
	if err != nil {
		return model.ProcessReport{}, fmt.Errorf("aria: process message: %w", err)
	}

	decayRes, err := decay.Run(ctx, a.store, messageIndex)
	if err != nil {
		return model.ProcessReport{}, fmt.Errorf("aria: process message: %w", err)
	}

	return model.ProcessReport{
		Processed:       true,
		MessageIndex:    messageIndex,
		TokensProcessed: len(tokens),
		Categorized:     categorized,
		NewPairs:        pairRes.NewPairs,
		Reinforced:      pairRes.Reinforced,
		Promoted:        pairRes.Promoted,
		Decayed:         decayRes.Decayed,
		Removed:         decayRes.Removed,
	}, nil
}

// GenerateResponse produces a response to text. Every internal failure
// collapses to "..." rather than propagating.
func (a *Aria) GenerateResponse(ctx context.Context, text string, maxLength int) string {
	out, err := generate.Generate(ctx, a.store, text, a.cfg.Generator, maxLength)
	if err != nil {
		return "..."
	}
	return out
}

// AgeStaleTokens multiplies the category scores of the given tokens by
// the aging factor, nudging future category assignments for tokens a
// caller has identified as stale (e.g. not touched in the last N
// messages or the last 24h). The core never calls this on its own; a
// caller wires it into whatever cadence fits its traffic.
func (a *Aria) AgeStaleTokens(ctx context.Context, tokens []string) error {
	if err := decay.AgeScores(ctx, a.store, tokens); err != nil {
		return fmt.Errorf("aria: age stale tokens: %w", err)
	}
	return nil
}

// MemoryStats summarizes what the engine currently holds.
type MemoryStats struct {
	TotalTokensSeen   uint64
	TotalContextsSeen uint64
	TotalAdjWindows   uint64
}

// MemoryStats reports the global normalization singleton.
func (a *Aria) MemoryStats(ctx context.Context) (MemoryStats, error) {
	g, err := a.store.GetGlobalStats(ctx)
	if err != nil {
		return MemoryStats{}, fmt.Errorf("aria: memory stats: %w", err)
	}
	return MemoryStats{
		TotalTokensSeen:   g.TotalTokensSeen,
		TotalContextsSeen: g.TotalContextsSeen,
		TotalAdjWindows:   g.TotalAdjWindows,
	}, nil
}

// SearchByWord returns every live pair touching word, strongest first.
func (a *Aria) SearchByWord(ctx context.Context, word string) ([]model.Pair, error) {
	tokens := tokenize.Tokenize(word)
	if len(tokens) == 0 {
		return nil, nil
	}
	out, err := a.store.SearchPairsByWord(ctx, tokens[0])
	if err != nil {
		return nil, fmt.Errorf("aria: search by word: %w", err)
	}
	return out, nil
}

// GetTokenStats returns the full stat record for token, or nil if
// the engine has never seen it.
func (a *Aria) GetTokenStats(ctx context.Context, token string) (*model.TokenStat, error) {
	s, err := a.store.GetTokenStat(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("aria: get token stats: %w", err)
	}
	return s, nil
}

// GetTokensByCategory is a best-effort scan: the Store interface has
// no native "all tokens" query, so callers needing this at scale
// should query their backing store directly. For memstore and small
// sqlite databases this works by asking the store for every token
// touching its strongest pairs.
func (a *Aria) GetTokensByCategory(ctx context.Context, cat model.Category, limit int) ([]string, error) {
	top, err := a.store.TopPairs(ctx, 500, "")
	if err != nil {
		return nil, fmt.Errorf("aria: get tokens by category: %w", err)
	}

	seen := map[string]struct{}{}
	var tokens []string
	for _, p := range top {
		seen[p.TokenA] = struct{}{}
		seen[p.TokenB] = struct{}{}
	}
	for t := range seen {
		tokens = append(tokens, t)
	}

	cats, err := a.store.GetManyCategories(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("aria: get tokens by category: %w", err)
	}

	var out []string
	for t, c := range cats {
		if c == cat {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetTopPairs returns the strongest pairs, optionally filtered to tier.
func (a *Aria) GetTopPairs(ctx context.Context, limit int, tier model.Tier) ([]model.Pair, error) {
	out, err := a.store.TopPairs(ctx, limit, tier)
	if err != nil {
		return nil, fmt.Errorf("aria: get top pairs: %w", err)
	}
	return out, nil
}

// GetEmergentChains exposes the response generator's G1 phrase
// discovery as a standalone read: the DFS chains from word through the
// current pair graph whose length is at most maxLen (the DFS itself
// stops at 5 tokens and 5 branches per node).
func (a *Aria) GetEmergentChains(ctx context.Context, word string, maxLen int) ([][]string, error) {
	out, err := generate.EmergentChains(ctx, a.store, word, maxLen)
	if err != nil {
		return nil, fmt.Errorf("aria: get emergent chains: %w", err)
	}
	return out, nil
}
