// Package generate implements the response generator: emergent-chain
// phrase discovery over the pair graph, then a category-aware weighted
// random walk when the chains don't produce enough words, then
// category composition, and finally a raw-pair echo.
//
// The graph/read-model shape follows query.Retriever and rank.Scorer:
// fetch candidates from the store in bulk, score them with a small
// pure function, pick a winner. The DFS-with-visited-set traversal for
// emergent chains mirrors inference/simple.Engine's transitive-closure
// walk (pkg/korel/inference/simple/engine.go).
package generate

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/ariacore/aria/pkg/aria/internalerr"
	"github.com/ariacore/aria/pkg/aria/model"
	"github.com/ariacore/aria/pkg/aria/store"
)

// edge is one weighted, undirected connection from a graph node.
type edge struct {
	to     string
	weight float64
}

// node is a token annotated with its current category and its edges,
// sorted by weight descending.
type node struct {
	token    string
	category model.Category
	edges    []edge
}

// graph is the undirected, category-annotated pair graph the walk
// operates on.
type graph struct {
	nodes map[string]*node
}

func newGraph() *graph {
	return &graph{nodes: make(map[string]*node)}
}

func (g *graph) ensure(token string, cat model.Category) *node {
	n, ok := g.nodes[token]
	if !ok {
		n = &node{token: token, category: cat}
		g.nodes[token] = n
	}
	return n
}

func (g *graph) addEdge(a, b string, weight float64) {
	g.nodes[a].edges = append(g.nodes[a].edges, edge{to: b, weight: weight})
	g.nodes[b].edges = append(g.nodes[b].edges, edge{to: a, weight: weight})
}

func (g *graph) sortEdges() {
	for _, n := range g.nodes {
		sort.Slice(n.edges, func(i, j int) bool { return n.edges[i].weight > n.edges[j].weight })
	}
}

func (g *graph) degree(token string) int {
	n, ok := g.nodes[token]
	if !ok {
		return 0
	}
	return len(n.edges)
}

// buildGraph collects pairs touching the first 10 keywords plus the
// top 100 pairs globally, deduplicates by pattern key, batch-fetches
// categories for every distinct token, and builds the undirected
// weighted graph filtered to strength >= threshold.
func buildGraph(ctx context.Context, st store.Store, keywords []string, threshold float64) (*graph, error) {
	seen := make(map[string]model.Pair)

	limit := len(keywords)
	if limit > 10 {
		limit = 10
	}
	for _, kw := range keywords[:limit] {
		pairs, err := st.SearchPairsByWord(ctx, kw)
		if err != nil {
			return nil, fmt.Errorf("generate: search pairs %q: %w", kw, internalerr.ErrBackend)
		}
		for _, p := range pairs {
			seen[p.PatternKey()] = p
		}
	}

	top, err := st.TopPairs(ctx, 100, "")
	if err != nil {
		return nil, fmt.Errorf("generate: top pairs: %w", internalerr.ErrBackend)
	}
	for _, p := range top {
		if p.Tier == model.TierDecay {
			continue
		}
		seen[p.PatternKey()] = p
	}

	tokenSet := make(map[string]struct{})
	for _, p := range seen {
		tokenSet[p.TokenA] = struct{}{}
		tokenSet[p.TokenB] = struct{}{}
	}
	tokens := make([]string, 0, len(tokenSet))
	for t := range tokenSet {
		tokens = append(tokens, t)
	}

	categories, err := st.GetManyCategories(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("generate: get many categories: %w", internalerr.ErrBackend)
	}

	g := newGraph()
	for t := range tokenSet {
		g.ensure(t, categories[t])
	}
	for _, p := range seen {
		if p.Strength < threshold {
			continue
		}
		g.addEdge(p.TokenA, p.TokenB, p.Strength)
	}
	g.sortEdges()

	return g, nil
}

// transitionTable is the category-affinity table: a neighbor landing
// in transitions[c] gets its score multiplied by 1.5.
var transitionTable = map[model.Category][]model.Category{
	model.CategoryStable:     {model.CategoryModifier, model.CategoryTransition, model.CategoryStructural},
	model.CategoryModifier:   {model.CategoryStable, model.CategoryStructural},
	model.CategoryTransition: {model.CategoryStable, model.CategoryModifier, model.CategoryStructural},
	model.CategoryStructural: {model.CategoryStable, model.CategoryModifier, model.CategoryTransition},
}

func favoredTransition(from, to model.Category) bool {
	if from == model.CategoryUnclassified {
		return true // unclassified sources favor every transition
	}
	for _, c := range transitionTable[from] {
		if c == to {
			return true
		}
	}
	return false
}

// chooseStart picks the walk's starting node: the highest-scoring
// in-graph keyword, else the highest-degree stable node, else the
// highest-degree node overall.
func chooseStart(g *graph, keywords []string, startWeights map[string]float64, rng *rand.Rand) (string, bool) {
	bestScore := -1.0
	bestToken := ""
	for _, kw := range keywords {
		n, ok := g.nodes[kw]
		if !ok {
			continue
		}
		degreeFactor := 1 + minFloat(1, float64(len(n.edges))/10)
		jitter := 1 + rng.Float64()*0.3
		score := startWeights[string(n.category)] * degreeFactor * jitter
		if score > bestScore {
			bestScore = score
			bestToken = kw
		}
	}
	if bestToken != "" {
		return bestToken, true
	}

	if tok, ok := highestDegreeWithCategory(g, model.CategoryStable); ok {
		return tok, true
	}
	return highestDegreeOverall(g)
}

func highestDegreeWithCategory(g *graph, cat model.Category) (string, bool) {
	best := ""
	bestDeg := -1
	for tok, n := range g.nodes {
		if n.category != cat {
			continue
		}
		if len(n.edges) > bestDeg {
			bestDeg = len(n.edges)
			best = tok
		}
	}
	return best, best != ""
}

func highestDegreeOverall(g *graph) (string, bool) {
	best := ""
	bestDeg := -1
	for tok, n := range g.nodes {
		if len(n.edges) > bestDeg {
			bestDeg = len(n.edges)
			best = tok
		}
	}
	return best, best != ""
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// walk performs the category-aware weighted random walk, including
// dead-end recovery. keywords is used both to choose the start and as
// the recovery priority list.
func walk(g *graph, start string, keywords []string, threshold, randomness float64, maxWords int, minWords int, rng *rand.Rand) []string {
	path := []string{start}
	visited := map[string]struct{}{start: {}}
	current := start

	extend := func() {
		for len(path) < maxWords {
			next, ok := pickNext(g, current, visited, threshold, randomness, rng)
			if !ok {
				return
			}
			path = append(path, next)
			visited[next] = struct{}{}
			current = next
		}
	}
	extend()

	if len(path) < minWords {
		retrySet := map[string]struct{}{}
		for attempt := 0; attempt < len(g.nodes); attempt++ {
			if len(path) >= minWords || len(path) >= maxWords {
				break
			}
			alt, ok := pickRecoveryStart(g, keywords, visited, retrySet)
			if !ok {
				break
			}
			retrySet[alt] = struct{}{}
			path = append(path, alt)
			visited[alt] = struct{}{}
			current = alt
			extend()
		}
	}

	return path
}

func pickNext(g *graph, current string, visited map[string]struct{}, threshold, randomness float64, rng *rand.Rand) (string, bool) {
	n, ok := g.nodes[current]
	if !ok {
		return "", false
	}

	type scored struct {
		token string
		score float64
	}
	var candidates []scored
	for _, e := range n.edges {
		if e.weight < threshold {
			continue
		}
		if _, seen := visited[e.to]; seen {
			continue
		}
		score := e.weight * (1 + rng.Float64()*randomness)
		if favoredTransition(n.category, g.nodes[e.to].category) {
			score *= 1.5
		}
		candidates = append(candidates, scored{e.to, score})
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	r := rng.Float64()
	idx := 0
	switch {
	case r < 0.70 || len(candidates) == 1:
		idx = 0
	case r < 0.90 && len(candidates) >= 2:
		idx = 1
	case len(candidates) >= 3:
		idx = 2
	default:
		idx = len(candidates) - 1
	}
	return candidates[idx].token, true
}

// pickRecoveryStart implements the dead-end recovery priority order:
// another unvisited keyword in the graph, else the highest-degree
// unvisited stable node, else the highest-degree unvisited node.
func pickRecoveryStart(g *graph, keywords []string, visited, retrySet map[string]struct{}) (string, bool) {
	eligible := func(tok string) bool {
		if _, v := visited[tok]; v {
			return false
		}
		if _, r := retrySet[tok]; r {
			return false
		}
		_, inGraph := g.nodes[tok]
		return inGraph
	}

	for _, kw := range keywords {
		if eligible(kw) {
			return kw, true
		}
	}

	best := ""
	bestDeg := -1
	for tok, n := range g.nodes {
		if n.category != model.CategoryStable || !eligible(tok) {
			continue
		}
		if len(n.edges) > bestDeg {
			bestDeg = len(n.edges)
			best = tok
		}
	}
	if best != "" {
		return best, true
	}

	bestDeg = -1
	for tok, n := range g.nodes {
		if !eligible(tok) {
			continue
		}
		if len(n.edges) > bestDeg {
			bestDeg = len(n.edges)
			best = tok
		}
	}
	return best, best != ""
}
