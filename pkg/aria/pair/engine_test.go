package pair

import (
	"context"
	"testing"

	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/store/memstore"
)

func categoriesOf(tokens []string, cat model.Category) map[string]model.Category {
	m := make(map[string]model.Category, len(tokens))
	for _, t := range tokens {
		m[t] = cat
	}
	return m
}

func TestProcessCreatesAdjacentPairsOnly(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	tokens := []string{"the", "weather", "is", "beautiful", "today"}

	res, err := Process(ctx, st, tokens, categoriesOf(tokens, model.CategoryUnclassified), 1)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.NewPairs != 4 {
		t.Errorf("NewPairs = %d, want 4", res.NewPairs)
	}

	for _, key := range []string{"the_weather", "is_weather", "beautiful_is", "beautiful_today"} {
		p, err := st.GetPair(ctx, key)
		if err != nil {
			t.Fatalf("GetPair(%q) error = %v", key, err)
		}
		if p == nil {
			t.Errorf("pair %q not found", key)
			continue
		}
		if p.Strength != ReinforcementBase {
			t.Errorf("pair %q strength = %f, want %f", key, p.Strength, ReinforcementBase)
		}
		if p.Tier != model.TierShort {
			t.Errorf("pair %q tier = %q, want short", key, p.Tier)
		}
	}
}

func TestProcessSkipsEqualAdjacentTokens(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	tokens := []string{"go", "go", "now"}

	res, err := Process(ctx, st, tokens, categoriesOf(tokens, model.CategoryUnclassified), 1)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.NewPairs != 1 {
		t.Errorf("NewPairs = %d, want 1 (go-go skipped)", res.NewPairs)
	}
}

func TestProcessReinforcesExistingPair(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	tokens := []string{"good", "morning"}
	cats := categoriesOf(tokens, model.CategoryUnclassified)

	if _, err := Process(ctx, st, tokens, cats, 1); err != nil {
		t.Fatal(err)
	}
	res, err := Process(ctx, st, tokens, cats, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Reinforced != 1 || res.NewPairs != 0 {
		t.Errorf("got reinforced=%d new=%d, want reinforced=1 new=0", res.Reinforced, res.NewPairs)
	}

	p, _ := st.GetPair(ctx, "good_morning")
	want := ReinforcementBase + ReinforcementBase*promotionModifier[model.CategoryUnclassified]
	if diff := p.Strength - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("strength = %f, want %f", p.Strength, want)
	}
}

func TestProcessCanonicalKeyOrderIndependent(t *testing.T) {
	ctx := context.Background()
	st1 := memstore.New()
	st2 := memstore.New()

	if _, err := Process(ctx, st1, []string{"apple", "banana"}, categoriesOf([]string{"apple", "banana"}, model.CategoryUnclassified), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := Process(ctx, st2, []string{"banana", "apple"}, categoriesOf([]string{"apple", "banana"}, model.CategoryUnclassified), 1); err != nil {
		t.Fatal(err)
	}

	p1, _ := st1.GetPair(ctx, "apple_banana")
	p2, _ := st2.GetPair(ctx, "apple_banana")
	if p1 == nil || p2 == nil {
		t.Fatal("expected both stores to hold the canonical key")
	}
	if p1.Strength != p2.Strength {
		t.Errorf("order dependence detected: %f vs %f", p1.Strength, p2.Strength)
	}
}

func TestProcessStableModifierAcceleratesStrength(t *testing.T) {
	ctx := context.Background()
	stPlain := memstore.New()
	stStable := memstore.New()
	tokens := []string{"x", "y"}

	if _, err := Process(ctx, stPlain, tokens, categoriesOf(tokens, model.CategoryUnclassified), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := Process(ctx, stPlain, tokens, categoriesOf(tokens, model.CategoryUnclassified), 2); err != nil {
		t.Fatal(err)
	}

	if _, err := Process(ctx, stStable, tokens, categoriesOf(tokens, model.CategoryUnclassified), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := Process(ctx, stStable, tokens, categoriesOf(tokens, model.CategoryStable), 2); err != nil {
		t.Fatal(err)
	}

	plain, _ := stPlain.GetPair(ctx, "x_y")
	stable, _ := stStable.GetPair(ctx, "x_y")
	if stable.Strength <= plain.Strength {
		t.Errorf("stable modifier did not accelerate strength: stable=%f plain=%f", stable.Strength, plain.Strength)
	}
}

func TestRestoreFromDecayResetsStrength(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	tokens := []string{"x", "y"}
	cats := categoriesOf(tokens, model.CategoryUnclassified)

	if _, err := Process(ctx, st, tokens, cats, 1); err != nil {
		t.Fatal(err)
	}
	if err := st.UpdatePair(ctx, "x_y", func(p *model.Pair) {
		p.Strength = 0.001
		p.Tier = model.TierDecay
		p.DecayCount = 3
	}); err != nil {
		t.Fatal(err)
	}

	res, err := Process(ctx, st, tokens, cats, 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewPairs != 1 {
		t.Errorf("NewPairs = %d, want 1 (decay collision restores fresh)", res.NewPairs)
	}

	p, _ := st.GetPair(ctx, "x_y")
	if p.Strength != ReinforcementBase {
		t.Errorf("strength = %f, want %f (fresh restore, not reinforced)", p.Strength, ReinforcementBase)
	}
	if p.Tier != model.TierShort {
		t.Errorf("tier = %q, want short", p.Tier)
	}
	if p.DecayCount != 3 {
		t.Errorf("DecayCount = %d, want preserved at 3", p.DecayCount)
	}
}
