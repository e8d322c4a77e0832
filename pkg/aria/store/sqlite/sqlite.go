// Package sqlite implements store.Store on top of modernc.org/sqlite,
// for deployments that need ARIA's memory to survive a restart.
//
// WAL mode, a single schema-init exec, ON CONFLICT upserts, and a
// batch-IN-clause for multi-token lookups.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ariacore/aria/pkg/aria/internalerr"
	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/store"
)

type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite-backed Store at path (use ":memory:" for a
// throwaway in-process instance), enabling WAL mode and initializing
// the schema if absent.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", internalerr.ErrBackend)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: wal mode: %w", internalerr.ErrBackend)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: foreign keys: %w", internalerr.ErrBackend)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", internalerr.ErrBackend)
	}

	return &sqliteStore{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS message_counter (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	value INTEGER NOT NULL
);
INSERT OR IGNORE INTO message_counter (id, value) VALUES (1, 0);

CREATE TABLE IF NOT EXISTS global_stats (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	total_contexts_seen INTEGER NOT NULL,
	total_adj_windows INTEGER NOT NULL,
	max_positional_variance REAL NOT NULL,
	total_tokens_seen INTEGER NOT NULL
);
INSERT OR IGNORE INTO global_stats (id, total_contexts_seen, total_adj_windows, max_positional_variance, total_tokens_seen)
VALUES (1, 1, 1, 1, 1);

CREATE TABLE IF NOT EXISTS token_stats (
	token TEXT PRIMARY KEY,
	total_occurrences INTEGER NOT NULL DEFAULT 0,
	context_count INTEGER NOT NULL DEFAULT 0,
	unique_adjacency_count INTEGER NOT NULL DEFAULT 0,
	positional_variance REAL NOT NULL DEFAULT 0,
	bridge_count INTEGER NOT NULL DEFAULT 0,
	temporal_adj_count INTEGER NOT NULL DEFAULT 0,
	adjacent_to_stable INTEGER NOT NULL DEFAULT 0,
	contrast_pair_count INTEGER NOT NULL DEFAULT 0,
	standalone_count INTEGER NOT NULL DEFAULT 0,
	stability REAL NOT NULL DEFAULT 0,
	transition REAL NOT NULL DEFAULT 0,
	dependency REAL NOT NULL DEFAULT 0,
	structural REAL NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT '',
	pending_category TEXT NOT NULL DEFAULT '',
	pending_count INTEGER NOT NULL DEFAULT 0,
	last_message_index INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS token_positions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	token TEXT NOT NULL,
	position INTEGER NOT NULL,
	message_index INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_token_positions_token ON token_positions(token, id);

CREATE TABLE IF NOT EXISTS pairs (
	pattern_key TEXT PRIMARY KEY,
	token_a TEXT NOT NULL,
	token_b TEXT NOT NULL,
	frequency INTEGER NOT NULL DEFAULT 0,
	strength REAL NOT NULL DEFAULT 0,
	category_pattern TEXT NOT NULL DEFAULT '',
	reinforcement_count INTEGER NOT NULL DEFAULT 0,
	decay_count INTEGER NOT NULL DEFAULT 0,
	tier TEXT NOT NULL DEFAULT 'short',
	decay_at_message INTEGER NOT NULL DEFAULT 0,
	last_seen_message INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_pairs_token_a ON pairs(token_a);
CREATE INDEX IF NOT EXISTS idx_pairs_token_b ON pairs(token_b);
CREATE INDEX IF NOT EXISTS idx_pairs_strength ON pairs(strength DESC);
CREATE INDEX IF NOT EXISTS idx_pairs_decay_due ON pairs(tier, decay_at_message);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) NextMessageIndex(ctx context.Context) (uint64, error) {
	var next uint64
	err := s.db.QueryRowContext(ctx, `
UPDATE message_counter SET value = value + 1 WHERE id = 1 RETURNING value;
`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("sqlite: next message index: %w", internalerr.ErrBackend)
	}
	return next, nil
}

func (s *sqliteStore) GetTokenStat(ctx context.Context, token string) (*model.TokenStat, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT token, total_occurrences, context_count, unique_adjacency_count, positional_variance,
       bridge_count, temporal_adj_count, adjacent_to_stable, contrast_pair_count, standalone_count,
       stability, transition, dependency, structural, category, pending_category, pending_count,
       last_message_index
FROM token_stats WHERE token = ?;
`, token)

	var st model.TokenStat
	var category, pending string
	err := row.Scan(&st.Token, &st.TotalOccurrences, &st.ContextCount, &st.UniqueAdjacencyCount,
		&st.PositionalVariance, &st.BridgeCount, &st.TemporalAdjCount, &st.AdjacentToStable,
		&st.ContrastPairCount, &st.StandaloneCount, &st.Stability, &st.Transition, &st.Dependency,
		&st.Structural, &category, &pending, &st.PendingCount, &st.LastMessageIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get token stat %q: %w", token, internalerr.ErrBackend)
	}
	st.Category = model.Category(category)
	st.PendingCategory = model.Category(pending)
	return &st, nil
}

func (s *sqliteStore) UpsertTokenStat(ctx context.Context, st model.TokenStat) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO token_stats (
	token, total_occurrences, context_count, unique_adjacency_count, positional_variance,
	bridge_count, temporal_adj_count, adjacent_to_stable, contrast_pair_count, standalone_count,
	stability, transition, dependency, structural, category, pending_category, pending_count,
	last_message_index
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(token) DO UPDATE SET
	total_occurrences=excluded.total_occurrences,
	context_count=excluded.context_count,
	unique_adjacency_count=excluded.unique_adjacency_count,
	positional_variance=excluded.positional_variance,
	bridge_count=excluded.bridge_count,
	temporal_adj_count=excluded.temporal_adj_count,
	adjacent_to_stable=excluded.adjacent_to_stable,
	contrast_pair_count=excluded.contrast_pair_count,
	standalone_count=excluded.standalone_count,
	stability=excluded.stability,
	transition=excluded.transition,
	dependency=excluded.dependency,
	structural=excluded.structural,
	category=excluded.category,
	pending_category=excluded.pending_category,
	pending_count=excluded.pending_count,
	last_message_index=excluded.last_message_index;
`, st.Token, st.TotalOccurrences, st.ContextCount, st.UniqueAdjacencyCount, st.PositionalVariance,
		st.BridgeCount, st.TemporalAdjCount, st.AdjacentToStable, st.ContrastPairCount, st.StandaloneCount,
		st.Stability, st.Transition, st.Dependency, st.Structural, string(st.Category), string(st.PendingCategory),
		st.PendingCount, st.LastMessageIndex)
	if err != nil {
		return fmt.Errorf("sqlite: upsert token stat %q: %w", st.Token, internalerr.ErrBackend)
	}
	return nil
}

func (s *sqliteStore) AppendTokenPosition(ctx context.Context, token string, position uint32, messageIndex uint64) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO token_positions (token, position, message_index) VALUES (?, ?, ?);
`, token, position, messageIndex)
	if err != nil {
		return fmt.Errorf("sqlite: append position %q: %w", token, internalerr.ErrBackend)
	}
	return nil
}

func (s *sqliteStore) RecentPositions(ctx context.Context, token string, limit int) ([]uint32, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT position FROM token_positions WHERE token = ? ORDER BY id DESC LIMIT ?;
`, token, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent positions %q: %w", token, internalerr.ErrBackend)
	}
	defer rows.Close()

	var reversed []uint32
	for rows.Next() {
		var p uint32
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("sqlite: scan position %q: %w", token, internalerr.ErrBackend)
		}
		reversed = append(reversed, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: recent positions %q: %w", token, internalerr.ErrBackend)
	}

	out := make([]uint32, len(reversed))
	for i, p := range reversed {
		out[len(reversed)-1-i] = p
	}
	return out, nil
}

func (s *sqliteStore) GetManyCategories(ctx context.Context, tokens []string) (map[string]model.Category, error) {
	result := make(map[string]model.Category, len(tokens))
	for _, t := range tokens {
		result[t] = model.CategoryUnclassified
	}
	if len(tokens) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tokens)), ",")
	args := make([]interface{}, len(tokens))
	for i, t := range tokens {
		args[i] = t
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT token, category FROM token_stats WHERE token IN (%s);
`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get many categories: %w", internalerr.ErrBackend)
	}
	defer rows.Close()

	for rows.Next() {
		var token, category string
		if err := rows.Scan(&token, &category); err != nil {
			return nil, fmt.Errorf("sqlite: scan category: %w", internalerr.ErrBackend)
		}
		if category == "" {
			category = string(model.CategoryUnclassified)
		}
		result[token] = model.Category(category)
	}
	return result, rows.Err()
}

func (s *sqliteStore) GetGlobalStats(ctx context.Context) (model.GlobalStats, error) {
	var g model.GlobalStats
	err := s.db.QueryRowContext(ctx, `
SELECT total_contexts_seen, total_adj_windows, max_positional_variance, total_tokens_seen
FROM global_stats WHERE id = 1;
`).Scan(&g.TotalContextsSeen, &g.TotalAdjWindows, &g.MaxPositionalVariance, &g.TotalTokensSeen)
	if err != nil {
		return model.GlobalStats{}, fmt.Errorf("sqlite: get global stats: %w", internalerr.ErrBackend)
	}
	return g, nil
}

func (s *sqliteStore) UpdateGlobalStats(ctx context.Context, delta store.GlobalStatsDelta, newMax float64) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE global_stats SET
	total_contexts_seen = total_contexts_seen + ?,
	total_adj_windows = total_adj_windows + ?,
	total_tokens_seen = total_tokens_seen + ?,
	max_positional_variance = MAX(max_positional_variance, ?)
WHERE id = 1;
`, delta.Contexts, delta.AdjWindows, delta.TokensSeen, newMax)
	if err != nil {
		return fmt.Errorf("sqlite: update global stats: %w", internalerr.ErrBackend)
	}
	return nil
}

func (s *sqliteStore) GetPair(ctx context.Context, patternKey string) (*model.Pair, error) {
	p, err := s.scanPair(ctx, `
SELECT pattern_key, token_a, token_b, frequency, strength, category_pattern, reinforcement_count,
       decay_count, tier, decay_at_message, last_seen_message
FROM pairs WHERE pattern_key = ?;
`, patternKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get pair %q: %w", patternKey, internalerr.ErrBackend)
	}
	return p, nil
}

func (s *sqliteStore) scanPair(ctx context.Context, query string, args ...interface{}) (*model.Pair, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	var p model.Pair
	var key, tier string
	err := row.Scan(&key, &p.TokenA, &p.TokenB, &p.Frequency, &p.Strength, &p.CategoryPattern,
		&p.ReinforcementCount, &p.DecayCount, &tier, &p.DecayAtMessage, &p.LastSeenMessage)
	if err != nil {
		return nil, err
	}
	p.Tier = model.Tier(tier)
	return &p, nil
}

func (s *sqliteStore) InsertPair(ctx context.Context, p model.Pair) (store.InsertOutcome, error) {
	key := p.PatternKey()
	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO pairs (
	pattern_key, token_a, token_b, frequency, strength, category_pattern,
	reinforcement_count, decay_count, tier, decay_at_message, last_seen_message
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, key, p.TokenA, p.TokenB, p.Frequency, p.Strength, p.CategoryPattern,
		p.ReinforcementCount, p.DecayCount, string(p.Tier), p.DecayAtMessage, p.LastSeenMessage)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert pair %q: %w", key, internalerr.ErrBackend)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert pair rows affected %q: %w", key, internalerr.ErrBackend)
	}
	if n == 0 {
		return store.Conflict, nil
	}
	return store.Created, nil
}

func (s *sqliteStore) UpdatePair(ctx context.Context, patternKey string, mutate func(p *model.Pair)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: update pair begin %q: %w", patternKey, internalerr.ErrBackend)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
SELECT pattern_key, token_a, token_b, frequency, strength, category_pattern, reinforcement_count,
       decay_count, tier, decay_at_message, last_seen_message
FROM pairs WHERE pattern_key = ?;
`, patternKey)

	var p model.Pair
	var key, tier string
	if err := row.Scan(&key, &p.TokenA, &p.TokenB, &p.Frequency, &p.Strength, &p.CategoryPattern,
		&p.ReinforcementCount, &p.DecayCount, &tier, &p.DecayAtMessage, &p.LastSeenMessage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("sqlite: update pair load %q: %w", patternKey, internalerr.ErrBackend)
	}
	p.Tier = model.Tier(tier)

	mutate(&p)

	_, err = tx.ExecContext(ctx, `
UPDATE pairs SET
	token_a=?, token_b=?, frequency=?, strength=?, category_pattern=?,
	reinforcement_count=?, decay_count=?, tier=?, decay_at_message=?, last_seen_message=?
WHERE pattern_key=?;
`, p.TokenA, p.TokenB, p.Frequency, p.Strength, p.CategoryPattern,
		p.ReinforcementCount, p.DecayCount, string(p.Tier), p.DecayAtMessage, p.LastSeenMessage, patternKey)
	if err != nil {
		return fmt.Errorf("sqlite: update pair write %q: %w", patternKey, internalerr.ErrBackend)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: update pair commit %q: %w", patternKey, internalerr.ErrBackend)
	}
	return nil
}

func (s *sqliteStore) SearchPairsByWord(ctx context.Context, token string) ([]model.Pair, error) {
	return s.queryPairs(ctx, `
SELECT pattern_key, token_a, token_b, frequency, strength, category_pattern, reinforcement_count,
       decay_count, tier, decay_at_message, last_seen_message
FROM pairs
WHERE tier != 'decay' AND (token_a = ? OR token_b = ?)
ORDER BY strength DESC;
`, token, token)
}

func (s *sqliteStore) TopPairs(ctx context.Context, limit int, tier model.Tier) ([]model.Pair, error) {
	if tier == "" {
		return s.queryPairs(ctx, `
SELECT pattern_key, token_a, token_b, frequency, strength, category_pattern, reinforcement_count,
       decay_count, tier, decay_at_message, last_seen_message
FROM pairs
ORDER BY strength DESC
LIMIT ?;
`, limit)
	}
	return s.queryPairs(ctx, `
SELECT pattern_key, token_a, token_b, frequency, strength, category_pattern, reinforcement_count,
       decay_count, tier, decay_at_message, last_seen_message
FROM pairs
WHERE tier = ?
ORDER BY strength DESC
LIMIT ?;
`, string(tier), limit)
}

func (s *sqliteStore) PairsDueForDecay(ctx context.Context, messageIndex uint64) ([]model.Pair, error) {
	return s.queryPairs(ctx, `
SELECT pattern_key, token_a, token_b, frequency, strength, category_pattern, reinforcement_count,
       decay_count, tier, decay_at_message, last_seen_message
FROM pairs
WHERE tier != 'decay' AND decay_at_message <= ?;
`, messageIndex)
}

func (s *sqliteStore) MovePairTier(ctx context.Context, patternKey string, newTier model.Tier) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pairs SET tier = ? WHERE pattern_key = ?;`, string(newTier), patternKey)
	if err != nil {
		return fmt.Errorf("sqlite: move pair tier %q: %w", patternKey, internalerr.ErrBackend)
	}
	return nil
}

func (s *sqliteStore) queryPairs(ctx context.Context, query string, args ...interface{}) ([]model.Pair, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query pairs: %w", internalerr.ErrBackend)
	}
	defer rows.Close()

	var out []model.Pair
	for rows.Next() {
		var p model.Pair
		var key, tier string
		if err := rows.Scan(&key, &p.TokenA, &p.TokenB, &p.Frequency, &p.Strength, &p.CategoryPattern,
			&p.ReinforcementCount, &p.DecayCount, &tier, &p.DecayAtMessage, &p.LastSeenMessage); err != nil {
			return nil, fmt.Errorf("sqlite: scan pair: %w", internalerr.ErrBackend)
		}
		p.Tier = model.Tier(tier)
		out = append(out, p)
	}
	return out, rows.Err()
}
