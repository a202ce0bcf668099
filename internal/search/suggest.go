package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggest returns up to limit titles close to query, nearest first. It is
// used to propose alternatives when a lookup finds nothing.
func Suggest(query string, titles []string, limit int) []string {
	query = strings.TrimSpace(query)
	if query == "" || len(titles) == 0 {
		return nil
	}

	ranks := fuzzy.RankFindFold(query, titles)
	if len(ranks) == 0 {
		// No subsequence match: fall back to edit distance on short titles
		for i, t := range titles {
			d := fuzzy.LevenshteinDistance(strings.ToLower(query), strings.ToLower(t))
			if d <= len(query)/3+1 {
				ranks = append(ranks, fuzzy.Rank{Source: query, Target: t, Distance: d, OriginalIndex: i})
			}
		}
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	seen := make(map[string]bool)
	var out []string
	for _, r := range ranks {
		if seen[r.Target] {
			continue
		}
		seen[r.Target] = true
		out = append(out, r.Target)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
