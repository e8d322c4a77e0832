package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/store"
)

func TestNextMessageIndexMonotonic(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "aria.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	for want := uint64(1); want <= 3; want++ {
		got, err := st.NextMessageIndex(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("NextMessageIndex() = %d, want %d", got, want)
		}
	}
}

func TestTokenStatRoundTrips(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "aria.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	stat := model.TokenStat{
		Token: "hello", TotalOccurrences: 5, Category: model.CategoryStable,
		PendingCategory: model.CategoryTransition, PendingCount: 2,
	}
	if err := st.UpsertTokenStat(ctx, stat); err != nil {
		t.Fatal(err)
	}
	got, err := st.GetTokenStat(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.TotalOccurrences != 5 || got.Category != model.CategoryStable {
		t.Errorf("GetTokenStat() = %+v", got)
	}
	if got.PendingCategory != model.CategoryTransition || got.PendingCount != 2 {
		t.Errorf("pending fields not preserved: %+v", got)
	}
}

func TestGetTokenStatMissingReturnsNilNotError(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "aria.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	got, err := st.GetTokenStat(ctx, "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestRecentPositionsOrderedOldestToNewest(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "aria.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	for i := uint32(0); i < 5; i++ {
		if err := st.AppendTokenPosition(ctx, "x", i, uint64(i)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := st.RecentPositions(ctx, "x", 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{2, 3, 4}
	if len(got) != 3 || got[0] != want[0] || got[2] != want[2] {
		t.Errorf("RecentPositions() = %v, want %v", got, want)
	}
}

func TestInsertPairConflictOnDuplicateKey(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "aria.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	p := model.Pair{TokenA: "a", TokenB: "b", Tier: model.TierShort}
	outcome, err := st.InsertPair(ctx, p)
	if err != nil || outcome != store.Created {
		t.Fatalf("first insert: outcome=%v err=%v", outcome, err)
	}
	outcome, err = st.InsertPair(ctx, p)
	if err != nil || outcome != store.Conflict {
		t.Fatalf("second insert: outcome=%v err=%v, want Conflict", outcome, err)
	}
}

func TestUpdatePairMutatesStoredRow(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "aria.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	st.InsertPair(ctx, model.Pair{TokenA: "a", TokenB: "b", Strength: 0.1, Tier: model.TierShort})
	err = st.UpdatePair(ctx, "a_b", func(p *model.Pair) { p.Strength = 0.5 })
	if err != nil {
		t.Fatal(err)
	}
	got, err := st.GetPair(ctx, "a_b")
	if err != nil {
		t.Fatal(err)
	}
	if got.Strength != 0.5 {
		t.Errorf("Strength = %f, want 0.5", got.Strength)
	}
}

func TestSearchPairsByWordExcludesDecayTier(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "aria.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	st.InsertPair(ctx, model.Pair{TokenA: "a", TokenB: "b", Strength: 0.5, Tier: model.TierMedium})
	st.InsertPair(ctx, model.Pair{TokenA: "a", TokenB: "c", Strength: 0.01, Tier: model.TierDecay})

	out, err := st.SearchPairsByWord(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].TokenB != "b" {
		t.Errorf("SearchPairsByWord() = %+v, want only a_b", out)
	}
}

func TestTopPairsSortedByStrengthDesc(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "aria.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	st.InsertPair(ctx, model.Pair{TokenA: "a", TokenB: "b", Strength: 0.2, Tier: model.TierShort})
	st.InsertPair(ctx, model.Pair{TokenA: "c", TokenB: "d", Strength: 0.9, Tier: model.TierLong})
	st.InsertPair(ctx, model.Pair{TokenA: "e", TokenB: "f", Strength: 0.5, Tier: model.TierMedium})

	out, err := st.TopPairs(ctx, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].Strength != 0.9 || out[1].Strength != 0.5 {
		t.Errorf("TopPairs() = %+v", out)
	}
}

func TestPairsDueForDecay(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "aria.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	st.InsertPair(ctx, model.Pair{TokenA: "a", TokenB: "b", Tier: model.TierShort, DecayAtMessage: 10})
	st.InsertPair(ctx, model.Pair{TokenA: "c", TokenB: "d", Tier: model.TierShort, DecayAtMessage: 100})

	due, err := st.PairsDueForDecay(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].TokenA != "a" {
		t.Errorf("PairsDueForDecay() = %+v, want only a_b", due)
	}
}

func TestGetManyCategoriesReportsUnclassifiedForUnknown(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "aria.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	st.UpsertTokenStat(ctx, model.TokenStat{Token: "known", Category: model.CategoryStable})

	got, err := st.GetManyCategories(ctx, []string{"known", "unknown"})
	if err != nil {
		t.Fatal(err)
	}
	if got["known"] != model.CategoryStable {
		t.Errorf("known = %v, want stable", got["known"])
	}
	if got["unknown"] != model.CategoryUnclassified {
		t.Errorf("unknown = %v, want unclassified", got["unknown"])
	}
}

func TestUpdateGlobalStatsAppliesDeltaAndRaisesMax(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "aria.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if err := st.UpdateGlobalStats(ctx, store.GlobalStatsDelta{Contexts: 1, AdjWindows: 2, TokensSeen: 3}, 5.0); err != nil {
		t.Fatal(err)
	}
	if err := st.UpdateGlobalStats(ctx, store.GlobalStatsDelta{}, 2.0); err != nil {
		t.Fatal(err)
	}
	g, err := st.GetGlobalStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if g.TotalContextsSeen != 2 || g.TotalAdjWindows != 3 || g.TotalTokensSeen != 4 {
		t.Errorf("GetGlobalStats() = %+v", g)
	}
	if g.MaxPositionalVariance != 5.0 {
		t.Errorf("MaxPositionalVariance = %f, want 5.0 (monotonic)", g.MaxPositionalVariance)
	}
}
