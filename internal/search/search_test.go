package search

import (
	"testing"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() []*domain.Content {
	return []*domain.Content{
		{ID: "1", Type: domain.ContentTypeSound, Title: "Morning Dew", Artist: "Ama"},
		{ID: "2", Type: domain.ContentTypeSound, Title: "Night Drive", Artist: "Kofi"},
		{ID: "1", Type: domain.ContentTypeEvent, Title: "Open Air Douala", Artist: "Reveil"},
	}
}

func TestFilterEmptyQueryKeepsOrder(t *testing.T) {
	idx := NewIndex(catalog())
	results := idx.Filter("  ")
	require.Len(t, results, 3)
	assert.Equal(t, "Morning Dew", results[0].Content.Title)
	assert.Equal(t, domain.ContentTypeEvent, results[2].Content.Type)
}

func TestFilterMatchesTitle(t *testing.T) {
	idx := NewIndex(catalog())
	results := idx.Filter("dew")
	require.NotEmpty(t, results)
	assert.Equal(t, "Morning Dew", results[0].Content.Title)
	assert.Equal(t, []int{8, 9, 10}, results[0].MatchedIndexes)
}

func TestFilterMatchesArtistWithoutTitleHighlights(t *testing.T) {
	idx := NewIndex(catalog())
	results := idx.Filter("kofi")
	require.Len(t, results, 1)
	assert.Equal(t, "Night Drive", results[0].Content.Title)
	assert.Empty(t, results[0].MatchedIndexes)
}

func TestFilterNoMatch(t *testing.T) {
	idx := NewIndex(catalog())
	assert.Empty(t, idx.Filter("zzz"))
}

func TestSuggest(t *testing.T) {
	titles := []string{"Morning Dew", "Night Drive", "Open Air Douala"}

	assert.Equal(t, []string{"Night Drive"}, Suggest("ngt", titles, 5))
	assert.Equal(t, []string{"Night Drive"}, Suggest("Nihgt Drive", titles, 1))
	assert.Nil(t, Suggest("", titles, 5))
}
