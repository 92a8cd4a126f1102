package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-agent-be/pkg/llm"
	"book-agent-be/pkg/store"
	"book-agent-be/pkg/vectorindex"
)

type scriptedLLM struct{ response string }

func (s scriptedLLM) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	return s.response, nil
}

func (s scriptedLLM) Generate(context.Context, string, ...llm.Option) (string, error) {
	return s.response, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fakeEmbedder struct {
	vec []float64
	err error
}

func (f fakeEmbedder) Embed(context.Context, string) ([]float64, error) {
	return f.vec, f.err
}

func testCatalog() *Catalog {
	return NewCatalog([]Book{
		{
			ID: 1, Title: "Python Crash Course", Authors: []string{"Eric Matthes"},
			Genres: []string{"tecnologia"}, Rating: 4.5, NumRatings: 9000,
			Description: "a hands-on introduction to python programming",
		},
		{
			ID: 2, Title: "Fluent Python", Authors: []string{"Luciano Ramalho"},
			Genres: []string{"tecnologia"}, Rating: 4.7, NumRatings: 4000,
			Description: "clear and effective python for experienced developers",
		},
		{
			ID: 3, Title: "Dune", Authors: []string{"Frank Herbert"},
			Genres: []string{"ficção científica"}, Rating: 4.2, NumRatings: 70000,
			Description: "a desert planet, spice and political intrigue",
		},
		{
			ID: 4, Title: "Batman: Year One", Authors: []string{"Frank Miller"},
			Genres: []string{"quadrinhos"}, Rating: 4.4, NumRatings: 12000,
			Description: "the definitive origin of the dark knight",
			Characters:  []string{"Batman", "James Gordon"},
		},
		{
			ID: 5, Title: "O Hobbit", Authors: []string{"J.R.R. Tolkien"},
			Genres: []string{"fantasia"}, Rating: 4.6, NumRatings: 65000,
			Description: "bilbo's journey there and back again",
		},
	})
}

func testIndex(t *testing.T) *vectorindex.MemoryIndex {
	t.Helper()
	idx := vectorindex.NewMemoryIndex(3)
	vectors := map[int][]float64{
		1: {1, 0, 0},
		2: {0.9, 0.1, 0},
		3: {0, 1, 0},
		4: {0, 0.9, 0.1},
		5: {0, 0, 1},
	}
	for id, v := range vectors {
		require.NoError(t, idx.Add(id, v))
	}
	return idx
}

func newTestEngine(t *testing.T, embedder fakeEmbedder) *Engine {
	t.Helper()
	return NewEngine(testCatalog(), embedder, testIndex(t), nil,
		NewResultCache(64, time.Minute), nil, nopLogger{})
}

func TestSearchSemantic(t *testing.T) {
	e := newTestEngine(t, fakeEmbedder{vec: []float64{1, 0, 0}})

	results := e.SearchSemantic(context.Background(), "python basics", 3)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0].BookID)
	assert.Equal(t, 2, results[1].BookID)
	assert.Equal(t, store.MethodSemantic, results[0].SearchMethod)
	// zero distance maps to similarity 1
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-9)
	assert.Greater(t, results[0].SimilarityScore, results[1].SimilarityScore)
}

func TestSearchSemanticEmbedderFailureReturnsEmpty(t *testing.T) {
	e := newTestEngine(t, fakeEmbedder{err: errors.New("model offline")})

	results := e.SearchSemantic(context.Background(), "python", 3)
	assert.Empty(t, results)
}

func TestSearchTextualScoring(t *testing.T) {
	e := newTestEngine(t, fakeEmbedder{})

	results := e.SearchTextual("python", 10)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, store.MethodTextual, r.SearchMethod)
		assert.Greater(t, r.SimilarityScore, 0.0)
		assert.LessOrEqual(t, r.SimilarityScore, 1.0)
	}

	// character matches contribute too
	batman := e.SearchTextual("batman", 10)
	require.NotEmpty(t, batman)
	assert.Equal(t, 4, batman[0].BookID)

	// multi-term scores normalize by the weight budget, not per term
	crash := e.SearchTextual("python programming", 10)
	require.NotEmpty(t, crash)
	assert.Equal(t, 1, crash[0].BookID)
	assert.InDelta(t, 1.0, crash[0].SimilarityScore, 1e-9)
}

func TestSearchByGenreSynonyms(t *testing.T) {
	e := newTestEngine(t, fakeEmbedder{})

	// english genre term finds the portuguese catalog tag
	results := e.SearchByGenre("fantasy", 5)
	require.Len(t, results, 1)
	assert.Equal(t, 5, results[0].BookID)
	assert.Equal(t, store.MethodGenre, results[0].SearchMethod)

	scifi := e.SearchByGenre("sci-fi", 5)
	require.Len(t, scifi, 1)
	assert.Equal(t, 3, scifi[0].BookID)
}

func TestSearchByAuthor(t *testing.T) {
	e := newTestEngine(t, fakeEmbedder{})

	results := e.SearchByAuthor("frank", 5)
	require.Len(t, results, 2)
	// rating-ordered: Batman (4.4) before Dune (4.2)
	assert.Equal(t, 4, results[0].BookID)
	assert.Equal(t, 3, results[1].BookID)

	assert.Empty(t, e.SearchByAuthor("", 5))
}

func TestSearchByPopularity(t *testing.T) {
	e := newTestEngine(t, fakeEmbedder{})

	results := e.SearchByPopularity(3)
	require.Len(t, results, 3)
	assert.Equal(t, 2, results[0].BookID) // 4.7
	assert.Equal(t, 5, results[1].BookID) // 4.6
	assert.Equal(t, 1, results[2].BookID) // 4.5
}

func TestBookByID(t *testing.T) {
	e := newTestEngine(t, fakeEmbedder{})

	book, ok := e.BookByID(3)
	require.True(t, ok)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, store.MethodIDLookup, book.SearchMethod)
	assert.Equal(t, 1.0, book.SimilarityScore)

	_, ok = e.BookByID(999)
	assert.False(t, ok)
}

func TestSearchSpecificTitle(t *testing.T) {
	e := newTestEngine(t, fakeEmbedder{})

	exact := e.SearchSpecificTitle("dune", 5)
	require.NotEmpty(t, exact)
	assert.Equal(t, 1.0, exact[0].SimilarityScore)

	partial := e.SearchSpecificTitle("python", 5)
	require.Len(t, partial, 2)
	assert.Equal(t, 0.8, partial[0].SimilarityScore)
}

func TestMergeDedupeFirstOccurrenceWins(t *testing.T) {
	semantic := []store.BookRef{
		{BookID: 1, Title: "Python Crash Course", SimilarityScore: 0.9, SearchMethod: store.MethodSemantic},
		{BookID: 3, Title: "Dune", SimilarityScore: 0.5, SearchMethod: store.MethodSemantic},
	}
	textual := []store.BookRef{
		{BookID: 1, Title: "Python Crash Course", SimilarityScore: 0.7, SearchMethod: store.MethodTextual},
		{BookID: 2, Title: "Fluent Python", SimilarityScore: 0.6, SearchMethod: store.MethodTextual},
	}

	merged := mergeDedupe(10, semantic, textual)
	require.Len(t, merged, 3)
	// the semantic occurrence of book 1 was seen first and is kept
	assert.Equal(t, store.MethodSemantic, merged[0].SearchMethod)
	assert.Equal(t, 1, merged[0].BookID)
	// ordered by score descending
	assert.Equal(t, 2, merged[1].BookID)
	assert.Equal(t, 3, merged[2].BookID)
}

func TestMergeDedupeByNormalizedTitleWhenNoID(t *testing.T) {
	a := []store.BookRef{{Title: "The  Hobbit", SimilarityScore: 0.9}}
	b := []store.BookRef{{Title: "the hobbit", SimilarityScore: 0.4}}

	merged := mergeDedupe(10, a, b)
	require.Len(t, merged, 1)
	assert.Equal(t, 0.9, merged[0].SimilarityScore)
}

func TestBoostComicTitles(t *testing.T) {
	results := []store.BookRef{
		{BookID: 1, Title: "Python Crash Course", SimilarityScore: 0.9},
		{BookID: 4, Title: "Batman: Year One", SimilarityScore: 0.5},
	}

	boosted := boostComicTitles(results, []string{"batman"})
	assert.Equal(t, 4, boosted[0].BookID)
	assert.Equal(t, 1, boosted[1].BookID)
}

func TestBoostKeywords(t *testing.T) {
	kws := boostKeywords(llm.Refinement{Keywords: []string{" Batman ", ""}})
	assert.Equal(t, []string{"batman"}, kws)

	// no extracted keywords: fall back to the normalized query's own terms
	kws = boostKeywords(llm.Refinement{NormalizedQuery: "spider-man comics"})
	assert.Equal(t, []string{"spider-man", "comics"}, kws)
}

func TestExecuteNewSearchComicsBoostUsesRefinementKeywords(t *testing.T) {
	refiner := llm.NewQueryRefiner(scriptedLLM{
		response: `{"normalized_query":"batman comics","synonyms":["dark knight"],"keywords":["batman"],"search_intent":"comics"}`,
	})
	e := NewEngine(testCatalog(), fakeEmbedder{vec: []float64{0, 1, 0}}, testIndex(t),
		refiner, NewResultCache(64, time.Minute), nil, nopLogger{})

	results := e.Execute(context.Background(), Request{
		Query:    "batmann comics",
		Strategy: store.StrategyNewSearch,
	})
	require.GreaterOrEqual(t, len(results), 2)
	// the title containing a query keyword outranks the higher raw similarity
	assert.Equal(t, 4, results[0].BookID)
	assert.Equal(t, 3, results[1].BookID)
	assert.Greater(t, results[1].SimilarityScore, results[0].SimilarityScore)
}

func TestExecuteUsePreviousOnly(t *testing.T) {
	e := newTestEngine(t, fakeEmbedder{vec: []float64{1, 0, 0}})

	shown := make([]store.BookRef, 12)
	for i := range shown {
		shown[i] = store.BookRef{BookID: i + 1}
	}

	results := e.Execute(context.Background(), Request{
		Strategy:  store.StrategyUsePreviousOnly,
		LastShown: shown,
	})
	assert.Len(t, results, 8)
}

func TestExecuteNewSearchMergesPaths(t *testing.T) {
	e := newTestEngine(t, fakeEmbedder{vec: []float64{1, 0, 0}})

	results := e.Execute(context.Background(), Request{
		Query:    "python programming",
		Strategy: store.StrategyNewSearch,
	})
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 8)

	seen := make(map[int]bool)
	for _, r := range results {
		assert.False(t, seen[r.BookID], "duplicate book %d in merged results", r.BookID)
		seen[r.BookID] = true
	}
}

func TestExecuteFallbackCap(t *testing.T) {
	e := newTestEngine(t, fakeEmbedder{vec: []float64{0, 1, 0}})

	results := e.Execute(context.Background(), Request{
		Query:    "space opera",
		Strategy: store.StrategyFallback,
	})
	assert.LessOrEqual(t, len(results), 5)
	require.NotEmpty(t, results)
	assert.Equal(t, 3, results[0].BookID)
}

func TestBoostQuery(t *testing.T) {
	shown := []store.BookRef{
		{Title: "Dune Messiah Part Two Extra", Authors: []string{"Frank Herbert"}, Genres: []string{"sci-fi", "classic", "space"}},
	}

	q := boostQuery("more like this", shown)
	assert.Contains(t, q, "more like this")
	assert.Contains(t, q, "dune")
	assert.Contains(t, q, "frank")
	// capped at 5 extra terms
	assert.LessOrEqual(t, len(splitWords(q))-len(splitWords("more like this")), 5)
}

func splitWords(s string) []string { return queryTerms(s) }

func TestResultCacheStats(t *testing.T) {
	cache := NewResultCache(4, time.Minute)

	_, ok := cache.Get(store.MethodSemantic, "q", 5)
	assert.False(t, ok)

	cache.Put(store.MethodSemantic, "q", 5, []store.BookRef{{BookID: 1}})
	got, ok := cache.Get(store.MethodSemantic, "q", 5)
	require.True(t, ok)
	assert.Equal(t, 1, got[0].BookID)

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}
