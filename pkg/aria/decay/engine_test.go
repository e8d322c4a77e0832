package decay

import (
	"context"
	"testing"

	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/pair"
	"github.com/ariacore/aria/pkg/aria/store/memstore"
)

func TestRunAppliesTierRate(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.InsertPair(ctx, model.Pair{
		TokenA: "a", TokenB: "b", Strength: 0.20, Tier: model.TierShort, DecayAtMessage: 50,
	})

	res, err := Run(ctx, st, 50)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decayed != 1 || res.Removed != 0 {
		t.Fatalf("Run() = %+v, want Decayed=1 Removed=0", res)
	}

	got, _ := st.GetPair(ctx, "a_b")
	want := 0.20 * (1 - pair.TierRate[model.TierShort])
	if diff := got.Strength - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Strength = %f, want %f", got.Strength, want)
	}
}

func TestRunRetiresPairBelowDecayMin(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.InsertPair(ctx, model.Pair{
		TokenA: "a", TokenB: "b", Strength: 0.011, Tier: model.TierShort, DecayAtMessage: 50,
	})

	res, err := Run(ctx, st, 50)
	if err != nil {
		t.Fatal(err)
	}
	if res.Removed != 1 {
		t.Fatalf("Removed = %d, want 1", res.Removed)
	}
	got, _ := st.GetPair(ctx, "a_b")
	if got.Tier != model.TierDecay {
		t.Errorf("Tier = %v, want decay", got.Tier)
	}
	if got.DecayCount != 1 {
		t.Errorf("DecayCount = %d, want 1", got.DecayCount)
	}
}

func TestRunRecomputesTierAndReschedulesDecay(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	// 0.35 is medium; decaying by the medium rate should keep it above
	// DecayMin but may drop it to short once the tier is re-derived.
	st.InsertPair(ctx, model.Pair{
		TokenA: "a", TokenB: "b", Strength: 0.35, Tier: model.TierMedium, DecayAtMessage: 200,
	})

	_, err := Run(ctx, st, 200)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := st.GetPair(ctx, "a_b")
	wantStrength := 0.35 * (1 - pair.TierRate[model.TierMedium])
	wantTier := model.TierForStrength(wantStrength)
	if got.Tier != wantTier {
		t.Errorf("Tier = %v, want %v", got.Tier, wantTier)
	}
	if got.DecayAtMessage != 200+pair.TierInterval[wantTier] {
		t.Errorf("DecayAtMessage = %d, want %d", got.DecayAtMessage, 200+pair.TierInterval[wantTier])
	}
}

func TestRunIgnoresPairsNotYetDue(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.InsertPair(ctx, model.Pair{TokenA: "a", TokenB: "b", Strength: 0.5, DecayAtMessage: 500})

	res, err := Run(ctx, st, 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decayed != 0 {
		t.Errorf("Decayed = %d, want 0", res.Decayed)
	}
}

func TestRunNeverReinstatesAnAlreadyDecayedPair(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.InsertPair(ctx, model.Pair{
		TokenA: "a", TokenB: "b", Strength: 0.005, Tier: model.TierDecay, DecayAtMessage: 50,
	})

	// A decay-tier pair is due by DecayAtMessage but must never be
	// re-derived by strength; Run leaves it untouched.
	_, err := Run(ctx, st, 50)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := st.GetPair(ctx, "a_b")
	if got.Strength != 0.005 || got.Tier != model.TierDecay {
		t.Errorf("decayed pair mutated: %+v", got)
	}
}

func TestAgeScoresMultipliesAllFourScores(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	st.UpsertTokenStat(ctx, model.TokenStat{
		Token: "x", Stability: 1.0, Transition: 1.0, Dependency: 1.0, Structural: 1.0,
	})

	if err := AgeScores(ctx, st, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	got, _ := st.GetTokenStat(ctx, "x")
	if got.Stability != AgingFactor || got.Transition != AgingFactor || got.Dependency != AgingFactor || got.Structural != AgingFactor {
		t.Errorf("scores after aging = %+v, want all %f", got, AgingFactor)
	}
}

func TestAgeScoresSkipsUnknownTokens(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	if err := AgeScores(ctx, st, []string{"ghost"}); err != nil {
		t.Fatal(err)
	}
}
