package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"book-agent-be/internal/pkg/logger"
	"book-agent-be/pkg/agent/rules"
	"book-agent-be/pkg/embedding"
	"book-agent-be/pkg/llm"
	"book-agent-be/pkg/store"
	"book-agent-be/pkg/vectorindex"
)

const (
	maxInternalResults = 10
	maxSurfacedResults = 8
	maxFallbackResults = 5
)

// Request carries everything a strategy execution needs.
type Request struct {
	Query     string
	Strategy  store.Strategy
	LastShown []store.BookRef
	Lang      string
}

// Engine runs the per-strategy retrieval paths over the catalog. All
// retrieval entry points degrade rather than fail: an erroring path
// contributes an empty result set.
type Engine struct {
	catalog  *Catalog
	embedder embedding.Provider
	index    vectorindex.Index
	refiner  *llm.QueryRefiner
	cache    *ResultCache
	rules    *rules.Rules
	logger   logger.ILogger
}

func NewEngine(catalog *Catalog, embedder embedding.Provider, index vectorindex.Index, refiner *llm.QueryRefiner, cache *ResultCache, r *rules.Rules, log logger.ILogger) *Engine {
	if r == nil {
		r = rules.Default()
	}
	return &Engine{
		catalog:  catalog,
		embedder: embedder,
		index:    index,
		refiner:  refiner,
		cache:    cache,
		rules:    r,
		logger:   log,
	}
}

// CacheStats exposes the result-cache counters for the stats endpoint.
func (e *Engine) CacheStats() Stats {
	return e.cache.Stats()
}

// Execute dispatches on the retrieval strategy. Any panic inside a strategy
// degrades to the fallback path; Execute never returns an error.
func (e *Engine) Execute(ctx context.Context, req Request) (results []store.BookRef) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("search", "strategy execution panicked, degrading to fallback", map[string]interface{}{
				"strategy": string(req.Strategy),
				"panic":    r,
			})
			results = e.fallback(ctx, req.Query)
		}
	}()

	switch req.Strategy {
	case store.StrategyUsePreviousOnly:
		return capResults(req.LastShown, maxSurfacedResults)
	case store.StrategySimilarToPrevious:
		return e.similarToPrevious(ctx, req.LastShown)
	case store.StrategyContextBoosted:
		return e.newSearch(ctx, boostQuery(req.Query, req.LastShown))
	case store.StrategyFallback:
		return e.fallback(ctx, req.Query)
	default:
		return e.newSearch(ctx, req.Query)
	}
}

// newSearch refines the query, fans out semantic and textual retrieval
// concurrently, then merges.
func (e *Engine) newSearch(ctx context.Context, query string) []store.BookRef {
	refined := e.refiner.Refine(ctx, query)
	searchQuery := refined.NormalizedQuery
	if refined.SearchIntent == "comics" && len(refined.Synonyms) > 0 {
		searchQuery = strings.TrimSpace(searchQuery + " " + strings.Join(refined.Synonyms, " "))
	}

	var (
		wg       sync.WaitGroup
		semantic []store.BookRef
		textual  []store.BookRef
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		semantic = e.SearchSemantic(ctx, searchQuery, maxInternalResults)
	}()
	go func() {
		defer wg.Done()
		textual = e.SearchTextual(searchQuery, maxInternalResults)
	}()
	wg.Wait()

	merged := mergeDedupe(maxInternalResults, semantic, textual)
	if refined.SearchIntent == "comics" {
		merged = boostComicTitles(merged, boostKeywords(refined))
	}
	return capResults(merged, maxSurfacedResults)
}

// boostKeywords picks the terms that drive the comics title boost: the
// refinement's extracted keywords, falling back to the query's own terms.
func boostKeywords(refined llm.Refinement) []string {
	keywords := make([]string, 0, len(refined.Keywords))
	for _, k := range refined.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return queryTerms(refined.NormalizedQuery)
	}
	return keywords
}

// similarToPrevious anchors on the top shown books and searches semantically
// for neighbours of each.
func (e *Engine) similarToPrevious(ctx context.Context, lastShown []store.BookRef) []store.BookRef {
	anchors := lastShown
	if len(anchors) > 2 {
		anchors = anchors[:2]
	}
	var all [][]store.BookRef
	for _, anchor := range anchors {
		q := strings.TrimSpace(anchor.Title + " " + anchor.FirstAuthor())
		hits := e.SearchSemantic(ctx, q, 4)
		// drop the anchor itself when it comes back as its own neighbour
		filtered := make([]store.BookRef, 0, len(hits))
		for _, h := range hits {
			if h.BookID != anchor.BookID {
				filtered = append(filtered, h)
			}
		}
		all = append(all, filtered)
	}
	return capResults(mergeDedupe(maxSurfacedResults, all...), maxSurfacedResults)
}

func (e *Engine) fallback(ctx context.Context, query string) []store.BookRef {
	return capResults(e.SearchSemantic(ctx, query, maxFallbackResults), maxFallbackResults)
}

// SearchSemantic embeds the query and maps nearest neighbours back to
// catalog rows. similarity = 1 / (1 + distance).
func (e *Engine) SearchSemantic(ctx context.Context, query string, limit int) []store.BookRef {
	if cached, ok := e.cache.Get(store.MethodSemantic, query, limit); ok {
		return cached
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("search", "embedding failed, semantic path returns empty", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return nil
	}

	hits, err := e.index.Search(ctx, vector, 2*limit)
	if err != nil {
		e.logger.Warn("search", "vector index query failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	results := make([]store.BookRef, 0, limit)
	for _, hit := range hits {
		book, ok := e.catalog.ByID(hit.ID)
		if !ok {
			continue
		}
		results = append(results, book.Ref(store.MethodSemantic, 1/(1+hit.Distance)))
		if len(results) == limit {
			break
		}
	}

	e.cache.Put(store.MethodSemantic, query, limit, results)
	return results
}

// SearchTextual scores catalog rows by weighted field matches: title x3,
// description x2, author x2, genre x1, characters x1.5. Scores are
// divided by 5 and clamped to [0,1].
func (e *Engine) SearchTextual(query string, limit int) []store.BookRef {
	if cached, ok := e.cache.Get(store.MethodTextual, query, limit); ok {
		return cached
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil
	}

	type scored struct {
		book  Book
		score float64
	}
	var matches []scored
	for _, book := range e.catalog.All() {
		title := strings.ToLower(book.Title)
		desc := strings.ToLower(book.Description)
		authors := strings.ToLower(strings.Join(book.Authors, " "))
		genres := strings.ToLower(strings.Join(book.Genres, " "))
		characters := strings.ToLower(strings.Join(book.Characters, " "))

		var total float64
		for _, term := range terms {
			if strings.Contains(title, term) {
				total += 3
			}
			if strings.Contains(desc, term) {
				total += 2
			}
			if strings.Contains(authors, term) {
				total += 2
			}
			if strings.Contains(genres, term) {
				total += 1
			}
			if characters != "" && strings.Contains(characters, term) {
				total += 1.5
			}
		}
		if total == 0 {
			continue
		}
		score := math.Min(total/5, 1)
		matches = append(matches, scored{book: book, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if limit < len(matches) {
		matches = matches[:limit]
	}

	results := make([]store.BookRef, len(matches))
	for i, m := range matches {
		results[i] = m.book.Ref(store.MethodTextual, m.score)
	}

	e.cache.Put(store.MethodTextual, query, limit, results)
	return results
}

// SearchByGenre matches the genre and its synonyms against catalog genre
// tags, rating-ordered.
func (e *Engine) SearchByGenre(genre string, limit int) []store.BookRef {
	wanted := e.expandGenre(genre)
	if cached, ok := e.cache.Get(store.MethodGenre, strings.Join(wanted, ","), limit); ok {
		return cached
	}

	var matched []Book
	for _, book := range e.catalog.All() {
		if genreMatches(book.Genres, wanted) {
			matched = append(matched, book)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Rating > matched[j].Rating })
	if limit < len(matched) {
		matched = matched[:limit]
	}

	results := make([]store.BookRef, len(matched))
	for i, b := range matched {
		results[i] = b.Ref(store.MethodGenre, b.Rating/5)
	}
	e.cache.Put(store.MethodGenre, strings.Join(wanted, ","), limit, results)
	return results
}

// SearchByAuthor matches the author name against the catalog author lists.
func (e *Engine) SearchByAuthor(author string, limit int) []store.BookRef {
	needle := strings.ToLower(strings.TrimSpace(author))
	if needle == "" {
		return nil
	}
	if cached, ok := e.cache.Get(store.MethodAuthor, needle, limit); ok {
		return cached
	}

	var matched []Book
	for _, book := range e.catalog.All() {
		for _, a := range book.Authors {
			if strings.Contains(strings.ToLower(a), needle) {
				matched = append(matched, book)
				break
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Rating > matched[j].Rating })
	if limit < len(matched) {
		matched = matched[:limit]
	}

	results := make([]store.BookRef, len(matched))
	for i, b := range matched {
		results[i] = b.Ref(store.MethodAuthor, b.Rating/5)
	}
	e.cache.Put(store.MethodAuthor, needle, limit, results)
	return results
}

// SearchByPopularity returns the highest rated books, ties broken by
// rating count.
func (e *Engine) SearchByPopularity(limit int) []store.BookRef {
	if cached, ok := e.cache.Get(store.MethodPopularity, "", limit); ok {
		return cached
	}

	books := append([]Book(nil), e.catalog.All()...)
	sort.SliceStable(books, func(i, j int) bool {
		if books[i].Rating != books[j].Rating {
			return books[i].Rating > books[j].Rating
		}
		return books[i].NumRatings > books[j].NumRatings
	})
	if limit < len(books) {
		books = books[:limit]
	}

	results := make([]store.BookRef, len(books))
	for i, b := range books {
		results[i] = b.Ref(store.MethodPopularity, b.Rating/5)
	}
	e.cache.Put(store.MethodPopularity, "", limit, results)
	return results
}

// BookByID looks up one catalog row directly.
func (e *Engine) BookByID(id int) (store.BookRef, bool) {
	book, ok := e.catalog.ByID(id)
	if !ok {
		return store.BookRef{}, false
	}
	return book.Ref(store.MethodIDLookup, 1), true
}

// SearchSpecificTitle finds catalog rows whose title matches the candidate:
// exact 1.0, candidate-in-title 0.8, title-in-candidate 0.6.
func (e *Engine) SearchSpecificTitle(title string, limit int) []store.BookRef {
	needle := strings.ToLower(strings.TrimSpace(title))
	if needle == "" {
		return nil
	}

	type scored struct {
		book  Book
		score float64
	}
	var matches []scored
	for _, book := range e.catalog.All() {
		t := strings.ToLower(book.Title)
		switch {
		case t == needle:
			matches = append(matches, scored{book, 1})
		case strings.Contains(t, needle):
			matches = append(matches, scored{book, 0.8})
		case strings.Contains(needle, t):
			matches = append(matches, scored{book, 0.6})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if limit < len(matches) {
		matches = matches[:limit]
	}

	results := make([]store.BookRef, len(matches))
	for i, m := range matches {
		results[i] = m.book.Ref(store.MethodTextual, m.score)
	}
	return results
}

func (e *Engine) expandGenre(genre string) []string {
	g := strings.ToLower(strings.TrimSpace(genre))
	seen := map[string]bool{g: true}
	wanted := []string{g}
	for canonical, synonyms := range e.rules.GenreSynonyms {
		group := append([]string{canonical}, synonyms...)
		inGroup := false
		for _, s := range group {
			if strings.ToLower(s) == g {
				inGroup = true
				break
			}
		}
		if !inGroup {
			continue
		}
		for _, s := range group {
			s = strings.ToLower(s)
			if !seen[s] {
				seen[s] = true
				wanted = append(wanted, s)
			}
		}
	}
	return wanted
}

func genreMatches(bookGenres, wanted []string) bool {
	for _, bg := range bookGenres {
		bg = strings.ToLower(bg)
		for _, w := range wanted {
			if strings.Contains(bg, w) {
				return true
			}
		}
	}
	return false
}

// boostQuery enriches the query with keywords from the top previously
// shown books: first 3 title words, first author's first 2 tokens, top 2
// genres. Deduplicated, at most 5 extra terms.
func boostQuery(query string, lastShown []store.BookRef) string {
	anchors := lastShown
	if len(anchors) > 2 {
		anchors = anchors[:2]
	}

	seen := make(map[string]bool)
	for _, t := range queryTerms(query) {
		seen[t] = true
	}

	var extras []string
	add := func(words []string, max int) {
		for i, w := range words {
			if i == max || len(extras) == 5 {
				return
			}
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" || seen[w] {
				continue
			}
			seen[w] = true
			extras = append(extras, w)
		}
	}

	for _, book := range anchors {
		add(strings.Fields(book.Title), 3)
		add(strings.Fields(book.FirstAuthor()), 2)
		add(book.Genres, 2)
	}

	if len(extras) == 0 {
		return query
	}
	return query + " " + strings.Join(extras, " ")
}

// mergeDedupe concatenates result lists, keeps the FIRST occurrence of each
// book (by id, falling back to normalized title), orders by score
// descending and caps at limit.
func mergeDedupe(limit int, lists ...[]store.BookRef) []store.BookRef {
	seenID := make(map[int]bool)
	seenTitle := make(map[string]bool)

	var merged []store.BookRef
	for _, list := range lists {
		for _, b := range list {
			if b.BookID != 0 {
				if seenID[b.BookID] {
					continue
				}
				seenID[b.BookID] = true
			} else {
				key := normalizeTitle(b.Title)
				if seenTitle[key] {
					continue
				}
				seenTitle[key] = true
			}
			merged = append(merged, b)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SimilarityScore > merged[j].SimilarityScore
	})
	return capResults(merged, limit)
}

// boostComicTitles floats books with a query keyword in the title to the
// front, keeping score order within each group.
func boostComicTitles(results []store.BookRef, keywords []string) []store.BookRef {
	matches := func(title string) bool {
		t := strings.ToLower(title)
		for _, kw := range keywords {
			if strings.Contains(t, kw) {
				return true
			}
		}
		return false
	}
	boosted := make([]store.BookRef, 0, len(results))
	var rest []store.BookRef
	for _, b := range results {
		if matches(b.Title) {
			boosted = append(boosted, b)
		} else {
			rest = append(rest, b)
		}
	}
	return append(boosted, rest...)
}

func capResults(results []store.BookRef, limit int) []store.BookRef {
	if limit >= 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()")
		if len([]rune(f)) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
