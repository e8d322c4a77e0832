package generate

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/ariacore/aria/pkg/aria/config"
	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/store"
	"github.com/ariacore/aria/pkg/aria/tokenize"
)

// Generate produces a response to userMessage. It tries, in order:
// emergent phrase discovery, the weighted graph walk if that falls
// short, category composition if that also falls short, and a raw
// top-pair echo as the last resort.
// maxLength overrides cfg.Generator.MaxLengthChars when positive.
func Generate(ctx context.Context, st store.Store, userMessage string, cfg config.Generator, maxLength int) (string, error) {
	keywords := dedupeKeywords(tokenize.Tokenize(userMessage))

	limit := maxLength
	if limit <= 0 {
		limit = cfg.MaxLengthChars
	}

	g, err := buildGraph(ctx, st, keywords, cfg.StrengthThreshold)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	rng := rand.New(rand.NewSource(walkSeed(userMessage)))

	words, ok := discoverPhrase(g, keywords, cfg.MaxWords, cfg.MinWords)
	if !ok {
		words, ok = tryWalk(g, keywords, cfg, rng)
	}
	if !ok {
		words, ok = composeFromCategories(g, keywords, rng, cfg.MinWords)
	}
	if !ok {
		words, _ = rawPairFallback(ctx, st, keywords)
	}

	return postprocess(words, limit), nil
}

func tryWalk(g *graph, keywords []string, cfg config.Generator, rng *rand.Rand) ([]string, bool) {
	start, ok := chooseStart(g, keywords, cfg.StartWeights, rng)
	if !ok {
		return nil, false
	}
	words := walk(g, start, keywords, cfg.StrengthThreshold, cfg.Randomness, cfg.MaxWords, cfg.MinWords, rng)
	return words, len(words) >= cfg.MinWords
}

// rawPairFallback takes the strongest live pair of the first keyword
// (in input order) that has any, else the single strongest pair in the
// store, and echoes it three times: "a b a b a b".
func rawPairFallback(ctx context.Context, st store.Store, keywords []string) ([]string, bool) {
	var best *model.Pair
	for _, kw := range keywords {
		pairs, err := st.SearchPairsByWord(ctx, kw)
		if err != nil || len(pairs) == 0 {
			continue
		}
		best = &pairs[0]
		break
	}
	if best == nil {
		top, err := st.TopPairs(ctx, 1, "")
		if err != nil || len(top) == 0 {
			return nil, false
		}
		best = &top[0]
	}

	words := make([]string, 0, 6)
	for i := 0; i < 3; i++ {
		words = append(words, best.TokenA, best.TokenB)
	}
	return words, true
}

// EmergentChains exposes G1's phrase discovery as a standalone
// informational query (get_emergent_chains): the chains G1's DFS finds
// from word in the current pair graph (at most 5 tokens long, following
// at most 5 edges per node), keeping those no longer than maxLen,
// sorted strongest (shortest) first.
func EmergentChains(ctx context.Context, st store.Store, word string, maxLen int) ([][]string, error) {
	g, err := buildGraph(ctx, st, []string{word}, 0)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	chains := emergentChains(g, word)
	sortChainsByWeightDesc(chains)

	var out [][]string
	for _, c := range chains {
		if maxLen > 0 && len(c.words) > maxLen {
			continue
		}
		out = append(out, c.words)
	}
	return out, nil
}

func dedupeKeywords(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// walkSeed derives a deterministic-per-call seed from the input text so
// repeated calls in tests are reproducible, while distinct inputs (and
// the accumulating conversation) still diversify the walk over time.
func walkSeed(text string) int64 {
	var h int64 = 1469598103934665603
	for _, r := range text {
		h ^= int64(r)
		h *= 1099511628211
	}
	return h
}

// postprocess lowercases, collapses whitespace, removes immediately
// repeated words, and truncates to maxChars, preferring to cut at the
// last space after 70% of the limit.
func postprocess(words []string, maxChars int) string {
	if len(words) == 0 {
		return "..."
	}

	deduped := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if len(deduped) > 0 && deduped[len(deduped)-1] == w {
			continue
		}
		deduped = append(deduped, w)
	}
	if len(deduped) == 0 {
		return "..."
	}

	text := strings.Join(deduped, " ")
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	cut := text[:maxChars]
	threshold := int(float64(maxChars) * 0.7)
	if idx := strings.LastIndex(cut, " "); idx >= threshold {
		cut = cut[:idx]
	}
	return cut
}
