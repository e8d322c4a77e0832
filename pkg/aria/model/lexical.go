package model

// TemporalMarkers is the fixed set of tokens that signal temporal
// adjacency for the statistics accumulator.
var TemporalMarkers = buildSet([]string{
	"then", "now", "before", "after", "when", "while", "during", "until",
	"since", "already", "soon", "later", "earlier", "yesterday", "today",
	"tomorrow", "always", "never", "once", "first", "last", "next",
	"finally", "eventually", "immediately", "suddenly", "gradually",
	"recently", "formerly", "meanwhile",
})

// IsTemporalMarker reports whether a token is a temporal marker.
func IsTemporalMarker(token string) bool {
	_, ok := TemporalMarkers[token]
	return ok
}

// contrastPairs is the fixed symmetric set of 20 antonym pairs, stored
// both directions for O(1) lookup.
// "old" appears in two pairs (old/new and young/old) so a token may
// have more than one partner.
var contrastPairs = buildContrastPairs([][2]string{
	{"good", "bad"}, {"big", "small"}, {"hot", "cold"}, {"fast", "slow"},
	{"old", "new"}, {"high", "low"}, {"light", "dark"}, {"happy", "sad"},
	{"strong", "weak"}, {"hard", "soft"}, {"loud", "quiet"}, {"clean", "dirty"},
	{"rich", "poor"}, {"safe", "dangerous"}, {"full", "empty"}, {"long", "short"},
	{"thick", "thin"}, {"wide", "narrow"}, {"deep", "shallow"}, {"young", "old"},
})

// HasContrastPartnerIn reports whether token has a known contrast
// partner present in tokenSet.
func HasContrastPartnerIn(token string, tokenSet map[string]struct{}) bool {
	partners, ok := contrastPairs[token]
	if !ok {
		return false
	}
	for _, p := range partners {
		if _, present := tokenSet[p]; present {
			return true
		}
	}
	return false
}

func buildSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func buildContrastPairs(pairs [][2]string) map[string][]string {
	m := make(map[string][]string, len(pairs)*2)
	for _, p := range pairs {
		m[p[0]] = append(m[p[0]], p[1])
		m[p[1]] = append(m[p[1]], p[0])
	}
	return m
}
