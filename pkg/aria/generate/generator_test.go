package generate

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/ariacore/aria/pkg/aria/config"
	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/store/memstore"
)

func seedChain(t *testing.T, st *memstore.Store, words []string, strength float64, cats map[string]model.Category) {
	t.Helper()
	ctx := context.Background()
	for _, w := range words {
		cat := cats[w]
		if err := st.UpsertTokenStat(ctx, model.TokenStat{Token: w, TotalOccurrences: 10, Category: cat}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < len(words)-1; i++ {
		a, b := model.SortTokens(words[i], words[i+1])
		_, err := st.InsertPair(ctx, model.Pair{
			TokenA: a, TokenB: b, Strength: strength, Tier: model.TierForStrength(strength),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestGenerateProducesNonEmptyResponse(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seedChain(t, st, []string{"the", "weather", "is", "nice", "today", "outside"}, 0.6, map[string]model.Category{
		"weather": model.CategoryStable, "nice": model.CategoryModifier, "today": model.CategoryStructural,
	})

	cfg := config.Default().Generator
	out, err := Generate(ctx, st, "tell me about the weather", cfg, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		t.Fatal("Generate returned empty string")
	}
}

func TestGenerateFallsBackToRawPairsWhenOtherStagesFallShort(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.InsertPair(ctx, model.Pair{TokenA: "a", TokenB: "b", Strength: 0.5, Tier: model.TierMedium})

	cfg := config.Default().Generator
	cfg.MinWords = 100 // force every stage except G4 to fail
	out, err := Generate(ctx, st, "unrelated text entirely", cfg, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out == "..." {
		t.Error("expected raw-pair fallback, got empty-response sentinel")
	}
	if !strings.Contains(out, "a") || !strings.Contains(out, "b") {
		t.Errorf("expected fallback to echo a/b pair, got %q", out)
	}
}

func TestGenerateReturnsEllipsisWhenStoreEmpty(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	cfg := config.Default().Generator
	out, err := Generate(ctx, st, "hello", cfg, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out != "..." {
		t.Errorf("Generate() = %q, want ...", out)
	}
}

func TestPostprocessCollapsesConsecutiveDuplicates(t *testing.T) {
	out := postprocess([]string{"the", "the", "cat", "cat", "sat"}, 150)
	if out != "the cat sat" {
		t.Errorf("postprocess() = %q, want %q", out, "the cat sat")
	}
}

func TestPostprocessTruncatesAtWordBoundary(t *testing.T) {
	words := strings.Split("one two three four five six seven eight nine ten", " ")
	out := postprocess(words, 20)
	if len(out) > 20 {
		t.Errorf("len(out) = %d, want <= 20", len(out))
	}
	if strings.HasSuffix(out, " ") {
		t.Errorf("postprocess left trailing space: %q", out)
	}
}

func TestPostprocessEmptyWordsReturnsEllipsis(t *testing.T) {
	if out := postprocess(nil, 150); out != "..." {
		t.Errorf("postprocess(nil) = %q, want ...", out)
	}
}

func TestEmergentChainsFindsMultiHopPaths(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	seedChain(t, st, []string{"cat", "sat", "mat", "flat"}, 0.5, nil)

	chains, err := EmergentChains(ctx, st, "cat", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(chains) == 0 {
		t.Fatal("expected at least one chain starting from cat")
	}
	multiHop := false
	for _, c := range chains {
		if c[0] != "cat" {
			t.Errorf("chain %v does not start with cat", c)
		}
		if len(c) > 2 {
			multiHop = true
		}
	}
	if !multiHop {
		t.Errorf("chains = %v, want at least one chain longer than one hop", chains)
	}
}

func TestWalkStopsBelowThreshold(t *testing.T) {
	g := newGraph()
	g.ensure("a", model.CategoryStable)
	g.ensure("b", model.CategoryStable)
	g.addEdge("a", "b", 0.005)
	g.sortEdges()

	rng := rand.New(rand.NewSource(1))
	path := walk(g, "a", []string{"a"}, 0.01, 0.25, 12, 1, rng)
	if len(path) != 1 {
		t.Errorf("walk() = %v, want just [a] since the only edge is below threshold", path)
	}
}

func TestChooseStartPrefersInGraphKeyword(t *testing.T) {
	g := newGraph()
	g.ensure("keyword", model.CategoryStable)
	g.ensure("other", model.CategoryStable)
	g.addEdge("keyword", "other", 0.5)
	g.sortEdges()

	rng := rand.New(rand.NewSource(1))
	start, ok := chooseStart(g, []string{"keyword"}, config.Default().Generator.StartWeights, rng)
	if !ok || start != "keyword" {
		t.Errorf("chooseStart() = (%q, %v), want (keyword, true)", start, ok)
	}
}
