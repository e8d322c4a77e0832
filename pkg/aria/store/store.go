// Package store defines the abstract persistence backend the ARIA core
// depends on. The core never touches a database directly —
// it is exclusively owned by implementations of Store (memstore for
// tests, sqlite for durable deployments).
package store

import (
	"context"

	"github.com/ariacore/aria/pkg/aria/model"
)

// InsertOutcome reports whether insert_pair created a new row or lost a
// race to a concurrent insert on the same pattern key.
type InsertOutcome int

const (
	Created InsertOutcome = iota
	Conflict
)

// Store is the persistence contract the ARIA core consumes. Every
// operation fails with a wrapped internalerr.ErrBackend on I/O errors;
// NotFound-shaped absence is reported via the ok/ptr-nil return, never
// as an error.
type Store interface {
	Close() error

	// NextMessageIndex atomically advances and returns the message
	// counter singleton. Must be linearizable with respect to all
	// writes performed in the same tick.
	NextMessageIndex(ctx context.Context) (uint64, error)

	GetTokenStat(ctx context.Context, token string) (*model.TokenStat, error)
	UpsertTokenStat(ctx context.Context, s model.TokenStat) error

	AppendTokenPosition(ctx context.Context, token string, position uint32, messageIndex uint64) error
	// RecentPositions returns at most limit positions, most recent last.
	RecentPositions(ctx context.Context, token string, limit int) ([]uint32, error)

	// GetManyCategories resolves categories for a batch of tokens in a
	// single round trip; tokens with no stat yet are reported unclassified.
	GetManyCategories(ctx context.Context, tokens []string) (map[string]model.Category, error)

	GetGlobalStats(ctx context.Context) (model.GlobalStats, error)
	// UpdateGlobalStats applies delta to the running totals and raises
	// MaxPositionalVariance to newMax if it is larger than the current one.
	UpdateGlobalStats(ctx context.Context, delta GlobalStatsDelta, newMax float64) error

	GetPair(ctx context.Context, patternKey string) (*model.Pair, error)
	InsertPair(ctx context.Context, p model.Pair) (InsertOutcome, error)
	// UpdatePair loads the current row, applies mutate, and persists
	// the result. mutate must not be called if the row does not exist.
	UpdatePair(ctx context.Context, patternKey string, mutate func(p *model.Pair)) error

	// SearchPairsByWord returns every non-decay pair touching token,
	// ordered by strength descending.
	SearchPairsByWord(ctx context.Context, token string) ([]model.Pair, error)
	// TopPairs returns the strongest pairs overall, optionally filtered
	// to a single tier (empty tier means no filter).
	TopPairs(ctx context.Context, limit int, tier model.Tier) ([]model.Pair, error)
	// PairsDueForDecay returns every non-decay pair whose DecayAtMessage
	// has arrived as of messageIndex.
	PairsDueForDecay(ctx context.Context, messageIndex uint64) ([]model.Pair, error)
	MovePairTier(ctx context.Context, patternKey string, newTier model.Tier) error
}

// GlobalStatsDelta is the per-tick increment applied to GlobalStats.
type GlobalStatsDelta struct {
	Contexts     uint64
	AdjWindows   uint64
	TokensSeen   uint64
}
