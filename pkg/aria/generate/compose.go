package generate

import (
	"math/rand"

	"github.com/ariacore/aria/pkg/aria/model"
)

// composeFromCategories builds a phrase around a stable "anchor" token
// using the template [modifier?] b [modifier?] [structural?]
// [transition?]: the modifier, transition, and structural slots are
// filled from the anchor's strongest same-category neighbors, with a
// single modifier word placed before or after the anchor. 30% of the
// time the modifier is skipped entirely; when it is present, 30% of
// the time it lands after the anchor instead of before it. 20% of the
// time a structural word is inserted between the anchor and the
// transition word.
func composeFromCategories(g *graph, keywords []string, rng *rand.Rand, minWords int) ([]string, bool) {
	anchor, ok := pickStableAnchor(g, keywords)
	if !ok {
		return nil, false
	}

	modifier, hasModifier := strongestNeighborOf(g, anchor, model.CategoryModifier)
	transition, hasTransition := strongestNeighborOf(g, anchor, model.CategoryTransition)
	structural, hasStructural := strongestNeighborOf(g, anchor, model.CategoryStructural)

	includeModifier := hasModifier && rng.Float64() >= 0.3
	reverseModifier := includeModifier && rng.Float64() < 0.3
	includeStructural := hasStructural && rng.Float64() < 0.2

	var words []string
	if includeModifier && !reverseModifier {
		words = append(words, modifier)
	}
	words = append(words, anchor)
	if includeModifier && reverseModifier {
		words = append(words, modifier)
	}
	if includeStructural {
		words = append(words, structural)
	}
	if hasTransition {
		words = append(words, transition)
	}

	return words, len(words) >= minWords
}

// pickStableAnchor gathers up to 5 stable-category nodes, preferring
// ones that also appear among the input keywords, and returns the
// highest-degree candidate.
func pickStableAnchor(g *graph, keywords []string) (string, bool) {
	keywordSet := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		keywordSet[k] = true
	}

	var candidates []string
	for tok, n := range g.nodes {
		if n.category == model.CategoryStable && keywordSet[tok] {
			candidates = append(candidates, tok)
		}
	}
	if len(candidates) == 0 {
		for tok, n := range g.nodes {
			if n.category == model.CategoryStable {
				candidates = append(candidates, tok)
			}
		}
	}
	if len(candidates) > 5 {
		candidates = candidates[:5]
	}

	best := ""
	bestDeg := -1
	for _, tok := range candidates {
		if d := g.degree(tok); d > bestDeg {
			bestDeg = d
			best = tok
		}
	}
	return best, best != ""
}

// strongestNeighborOf returns anchor's highest-weight neighbor whose
// category matches cat.
func strongestNeighborOf(g *graph, anchor string, cat model.Category) (string, bool) {
	n, ok := g.nodes[anchor]
	if !ok {
		return "", false
	}
	for _, e := range n.edges { // already sorted by weight descending
		if g.nodes[e.to].category == cat {
			return e.to, true
		}
	}
	return "", false
}
