// Package search filters the cached catalog as the user types.
package search

import (
	"strings"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/sahilm/fuzzy"
)

// Result is one filter match. MatchedIndexes are byte offsets into the
// content title, for highlighting.
type Result struct {
	Content        *domain.Content
	MatchedIndexes []int
	Score          int
}

// Index implements sahilm/fuzzy.Source over content titles and artists
type Index struct {
	items    []*domain.Content
	haystack []string // lowercase "title artist"
	titleLen []int
}

// String returns the searchable text at index i (implements fuzzy.Source)
func (idx *Index) String(i int) string { return idx.haystack[i] }

// Len returns the number of items (implements fuzzy.Source)
func (idx *Index) Len() int { return len(idx.items) }

// NewIndex builds an index, pre-computing lowercase text once
func NewIndex(items []*domain.Content) *Index {
	idx := &Index{
		items:    make([]*domain.Content, 0, len(items)),
		haystack: make([]string, 0, len(items)),
		titleLen: make([]int, 0, len(items)),
	}
	for _, c := range items {
		if c == nil {
			continue
		}
		title := strings.ToLower(c.Title)
		text := title
		if c.Artist != "" {
			text += " " + strings.ToLower(c.Artist)
		}
		idx.items = append(idx.items, c)
		idx.haystack = append(idx.haystack, text)
		idx.titleLen = append(idx.titleLen, len(title))
	}
	return idx
}

// Filter returns items matching query, best first. An empty query matches
// everything in index order.
func (idx *Index) Filter(query string) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		results := make([]Result, len(idx.items))
		for i, c := range idx.items {
			results[i] = Result{Content: c}
		}
		return results
	}

	matches := fuzzy.FindFrom(query, idx)
	results := make([]Result, len(matches))
	for i, m := range matches {
		// Only title positions are highlightable
		var inTitle []int
		for _, pos := range m.MatchedIndexes {
			if pos < idx.titleLen[m.Index] {
				inTitle = append(inTitle, pos)
			}
		}
		results[i] = Result{
			Content:        idx.items[m.Index],
			MatchedIndexes: inTitle,
			Score:          m.Score,
		}
	}
	return results
}
