package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-agent-be/pkg/llm"
	"book-agent-be/pkg/memory"
	"book-agent-be/pkg/resolver"
	"book-agent-be/pkg/search"
	"book-agent-be/pkg/store"
	"book-agent-be/pkg/vectorindex"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type mapKV struct {
	data map[string]string
}

func (m *mapKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", memory.ErrNotFound
	}
	return v, nil
}

func (m *mapKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mapKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mapKV) Keys(_ context.Context, _ string) ([]string, error) {
	var keys []string
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

type offlineLLM struct{}

func (offlineLLM) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	return "", errors.New("model offline")
}

func (offlineLLM) Generate(context.Context, string, ...llm.Option) (string, error) {
	return "", errors.New("model offline")
}

type fixedEmbedder struct {
	vec []float64
	err error
}

func (f fixedEmbedder) Embed(context.Context, string) ([]float64, error) {
	return f.vec, f.err
}

func newTestAgent(t *testing.T) (*Agent, *memory.ContextStore) {
	return newTestAgentWithEmbedder(t, fixedEmbedder{vec: []float64{1, 0}})
}

func newTestAgentWithEmbedder(t *testing.T, embedder fixedEmbedder) (*Agent, *memory.ContextStore) {
	t.Helper()

	catalog := search.NewCatalog([]search.Book{
		{ID: 1, Title: "Python Crash Course", Authors: []string{"Eric Matthes"},
			Genres: []string{"tecnologia"}, Rating: 4.5, NumRatings: 9000,
			Description: "a hands-on introduction to python programming"},
		{ID: 2, Title: "Fluent Python", Authors: []string{"Luciano Ramalho"},
			Genres: []string{"tecnologia"}, Rating: 4.7, NumRatings: 4000,
			Description: "clear and effective python for experienced developers"},
		{ID: 3, Title: "Six of Crows", Authors: []string{"Leigh Bardugo"},
			Genres: []string{"fantasia"}, Rating: 4.6, NumRatings: 50000,
			Description: "a crew of outcasts attempts an impossible heist"},
	})

	index := vectorindex.NewMemoryIndex(2)
	require.NoError(t, index.Add(1, []float64{1, 0}))
	require.NoError(t, index.Add(2, []float64{0.9, 0.1}))
	require.NoError(t, index.Add(3, []float64{0, 1}))

	log := nopLogger{}
	mem := memory.NewContextStore(&mapKV{data: make(map[string]string)}, log, time.Hour, 10)

	refiner := llm.NewQueryRefiner(offlineLLM{})
	responder := llm.NewResponseGenerator(offlineLLM{})
	engine := search.NewEngine(catalog, embedder, index,
		refiner, search.NewResultCache(64, time.Minute), nil, log)
	res := resolver.NewResolver(resolver.NewParser(nil), catalog, log)

	a := NewAgent(mem, NewAnalyzer(nil), engine, res, responder, nil, log, 10)
	return a, mem
}

func TestProcessMessageRecommendationFlow(t *testing.T) {
	a, mem := newTestAgent(t)
	ctx := context.Background()

	result := a.ProcessMessage(ctx, "s1", "recommend python programming books", "en")

	assert.Equal(t, store.IntentGeneral, result.Intent)
	assert.Equal(t, store.StrategyNewSearch, result.Strategy)
	require.NotEmpty(t, result.Books)
	assert.Equal(t, len(result.Books), result.BooksFound)
	assert.False(t, result.NoResults)
	assert.NotEmpty(t, result.Response)

	// both turns persisted, assistant message carries at most 3 books
	session := mem.GetOrCreate(ctx, "s1")
	require.Len(t, session.History, 2)
	assert.Equal(t, store.RoleUser, session.History[0].Role)
	assert.Equal(t, store.RoleAssistant, session.History[1].Role)
	assert.LessOrEqual(t, len(session.History[1].Books), 3)
	assert.NotEmpty(t, session.LastShownBooks)
	assert.NotEmpty(t, session.DiscussedBookIDs)
}

func TestProcessMessageClosing(t *testing.T) {
	a, mem := newTestAgent(t)
	ctx := context.Background()

	result := a.ProcessMessage(ctx, "s1", "thanks, goodbye!", "en")

	assert.Equal(t, store.IntentClosing, result.Intent)
	assert.Empty(t, result.Books)
	assert.Contains(t, result.Response, "Happy reading")

	session := mem.GetOrCreate(ctx, "s1")
	assert.Len(t, session.History, 2)
}

func TestProcessMessageClosingPortuguese(t *testing.T) {
	a, _ := newTestAgent(t)

	result := a.ProcessMessage(context.Background(), "s1", "obrigado, tchau!", "pt")
	assert.Equal(t, store.IntentClosing, result.Intent)
	assert.Contains(t, result.Response, "Boa leitura")
}

func TestProcessMessageBookReferenceOverridesIntent(t *testing.T) {
	a, _ := newTestAgent(t)
	ctx := context.Background()

	result := a.ProcessMessage(ctx, "s1", `tell me about "Six of Crows"`, "en")

	assert.Equal(t, store.IntentBookChat, result.Intent)
	assert.Equal(t, store.StrategyUsePreviousOnly, result.Strategy)
	require.Len(t, result.Books, 1)
	assert.Equal(t, 3, result.Books[0].BookID)
	assert.Contains(t, result.Response, "Six of Crows")
}

func TestProcessMessageAskingAboutPreviousServesLastShown(t *testing.T) {
	a, mem := newTestAgent(t)
	ctx := context.Background()

	shown := []store.BookRef{
		{BookID: 1, Title: "Python Crash Course"},
		{BookID: 2, Title: "Fluent Python"},
	}
	mem.AddMessage(ctx, "s1", store.RoleUser, "recommend python programming books", nil, store.IntentGeneral)
	mem.AddMessage(ctx, "s1", store.RoleAssistant, "here you go", shown, "")

	result := a.ProcessMessage(ctx, "s1", "which of the books that you recommended is best for beginners?", "en")

	assert.Equal(t, store.StrategyUsePreviousOnly, result.Strategy)
	require.Len(t, result.Books, 2)
	assert.Equal(t, 1, result.Books[0].BookID)
}

func TestProcessMessageAuthorPath(t *testing.T) {
	a, _ := newTestAgent(t)

	result := a.ProcessMessage(context.Background(), "s1", "do you have books by leigh bardugo?", "en")

	assert.Equal(t, store.IntentAuthor, result.Intent)
	require.NotEmpty(t, result.Books)
	assert.Equal(t, 3, result.Books[0].BookID)
	assert.True(t, strings.Contains(result.Response, "Six of Crows"))
}

func TestProcessMessageNoResultsSignal(t *testing.T) {
	a, _ := newTestAgentWithEmbedder(t, fixedEmbedder{err: errors.New("model offline")})

	result := a.ProcessMessage(context.Background(), "fresh", "zzz qqq xxx", "en")

	assert.True(t, result.NoResults)
	assert.Empty(t, result.Books)
	assert.NotEmpty(t, result.Response)
}

func TestProcessMessageEmptyResultsFallBackToLastShown(t *testing.T) {
	a, mem := newTestAgentWithEmbedder(t, fixedEmbedder{err: errors.New("model offline")})
	ctx := context.Background()

	shown := []store.BookRef{{BookID: 3, Title: "Six of Crows"}}
	mem.AddMessage(ctx, "s1", store.RoleAssistant, "earlier recs", shown, "")

	result := a.ProcessMessage(ctx, "s1", "zzz qqq xxx", "en")

	assert.False(t, result.NoResults)
	assert.Equal(t, store.StrategyUsePreviousOnly, result.Strategy)
	require.Len(t, result.Books, 1)
	assert.Equal(t, 3, result.Books[0].BookID)
}
