package generate

// chain is one emergent phrase discovered by depth-first search over
// the pair graph: a sequence of 2-5 tokens with no repeats, weighted
// by 1/len so shorter, tighter chains are preferred when chains
// compete for inclusion.
type chain struct {
	words  []string
	weight float64
}

const (
	minChainLen     = 2
	maxChainLen     = 5
	maxBranchFanout = 5
)

// emergentChains runs a bounded DFS from start, branching into at most
// the top 5 edges per node (edges are pre-sorted by weight), and
// collects every simple path of length 2..5.
func emergentChains(g *graph, start string) []chain {
	var out []chain
	if _, ok := g.nodes[start]; !ok {
		return out
	}

	visited := map[string]bool{start: true}
	path := []string{start}

	var dfs func()
	dfs = func() {
		if len(path) >= minChainLen {
			words := make([]string, len(path))
			copy(words, path)
			out = append(out, chain{words: words, weight: 1.0 / float64(len(words))})
		}
		if len(path) >= maxChainLen {
			return
		}
		n := g.nodes[path[len(path)-1]]
		fanout := 0
		for _, e := range n.edges {
			if fanout >= maxBranchFanout {
				break
			}
			if visited[e.to] {
				continue
			}
			fanout++
			visited[e.to] = true
			path = append(path, e.to)
			dfs()
			path = path[:len(path)-1]
			visited[e.to] = false
		}
	}
	dfs()
	return out
}

// discoverPhrase runs G1 from each of the first 5 keywords (a keyword
// absent from the graph yields no chains), then greedily concatenates the highest-weight chains whose
// overlap with already-used words stays at or below 50%, until
// max_words is reached. Returns ok=false if the result doesn't reach
// min_words.
func discoverPhrase(g *graph, keywords []string, maxWords, minWords int) ([]string, bool) {
	limit := len(keywords)
	if limit > 5 {
		limit = 5
	}

	var all []chain
	seenStart := map[string]bool{}
	for _, kw := range keywords[:limit] {
		if seenStart[kw] {
			continue
		}
		seenStart[kw] = true
		all = append(all, emergentChains(g, kw)...)
	}
	if len(all) == 0 {
		return nil, false
	}

	sortChainsByWeightDesc(all)

	var result []string
	used := map[string]int{}
	for _, c := range all {
		if len(result) >= maxWords {
			break
		}
		overlap := 0
		for _, w := range c.words {
			if used[w] > 0 {
				overlap++
			}
		}
		if float64(overlap)/float64(len(c.words)) > 0.5 {
			continue
		}
		for _, w := range c.words {
			if len(result) >= maxWords {
				break
			}
			if used[w] > 0 {
				continue
			}
			result = append(result, w)
			used[w]++
		}
	}

	return result, len(result) >= minWords
}

func sortChainsByWeightDesc(chains []chain) {
	for i := 1; i < len(chains); i++ {
		for j := i; j > 0 && chains[j].weight > chains[j-1].weight; j-- {
			chains[j], chains[j-1] = chains[j-1], chains[j]
		}
	}
}
