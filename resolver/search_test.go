package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/helpcomp/merchant-category-resolver/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchEnricherMatches(t *testing.T) {
	searcher := &fakeSearcher{results: []search.Result{
		{
			Title:       "Swiggy: Order Food Online",
			Snippet:     "Swiggy is a restaurant food delivery platform",
			Link:        "https://www.swiggy.com",
			DisplayLink: "www.swiggy.com",
		},
	}}
	e := &searchEnricher{client: searcher, taxonomy: testTaxonomy()}

	res := e.resolve(context.Background(), "Swiggy Order #1234")
	require.NotNil(t, res)
	assert.Equal(t, SourceSearch, res.Source)
	assert.Equal(t, "Food & Dining", res.CategoryName)
	assert.Equal(t, "11", res.CategoryID)
	assert.Greater(t, res.Confidence, 0.7)
	assert.LessOrEqual(t, res.Confidence, 0.95)
}

func TestSearchEnricherScoresAcrossAllFields(t *testing.T) {
	// Keyword appears only in the display link.
	searcher := &fakeSearcher{results: []search.Result{
		{Title: "Ride receipt", DisplayLink: "riders.uber.com"},
	}}
	e := &searchEnricher{client: searcher, taxonomy: testTaxonomy()}

	res := e.resolve(context.Background(), "UBR* PENDING")
	require.NotNil(t, res)
	assert.Equal(t, "Transport", res.CategoryName)
}

func TestSearchEnricherConfidenceInBounds(t *testing.T) {
	searcher := &fakeSearcher{results: []search.Result{
		{Title: "swiggy swiggy swiggy", Snippet: "food restaurant food restaurant"},
	}}
	e := &searchEnricher{client: searcher, taxonomy: testTaxonomy()}

	res := e.resolve(context.Background(), "Swiggy")
	require.NotNil(t, res)
	assert.GreaterOrEqual(t, res.Confidence, 0.7)
	assert.LessOrEqual(t, res.Confidence, 0.95)
}

func TestSearchEnricherSoftFailures(t *testing.T) {
	tax := testTaxonomy()

	t.Run("search error", func(t *testing.T) {
		e := &searchEnricher{client: &fakeSearcher{err: errors.New("timeout")}, taxonomy: tax}
		assert.Nil(t, e.resolve(context.Background(), "Swiggy"))
	})
	t.Run("empty results", func(t *testing.T) {
		e := &searchEnricher{client: &fakeSearcher{}, taxonomy: tax}
		assert.Nil(t, e.resolve(context.Background(), "Swiggy"))
	})
	t.Run("no keyword matched", func(t *testing.T) {
		e := &searchEnricher{client: &fakeSearcher{results: []search.Result{
			{Title: "Unrelated result", Snippet: "nothing relevant"},
		}}, taxonomy: tax}
		assert.Nil(t, e.resolve(context.Background(), "Mystery Shop"))
	})
}
