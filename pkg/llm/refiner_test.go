package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"book-agent-be/pkg/store"
)

type stubProvider struct {
	reply string
	err   error
}

func (s stubProvider) Chat(context.Context, []Message, ...Option) (string, error) {
	return s.reply, s.err
}

func (s stubProvider) Generate(context.Context, string, ...Option) (string, error) {
	return s.reply, s.err
}

func TestRefineParsesFencedJSON(t *testing.T) {
	r := NewQueryRefiner(stubProvider{reply: "```json\n" +
		`{"normalized_query":"python programming","synonyms":["coding in python"],"keywords":["python"],"search_intent":"theme"}` +
		"\n```"})

	got := r.Refine(context.Background(), "pyhton programing")
	assert.Equal(t, "python programming", got.NormalizedQuery)
	assert.Equal(t, []string{"coding in python"}, got.Synonyms)
	assert.Equal(t, "theme", got.SearchIntent)
}

func TestRefineFallsBackOnProviderError(t *testing.T) {
	r := NewQueryRefiner(stubProvider{err: errors.New("model offline")})

	got := r.Refine(context.Background(), "raw query")
	assert.Equal(t, "raw query", got.NormalizedQuery)
	assert.Equal(t, "general", got.SearchIntent)
}

func TestRefineFallsBackOnGarbageOutput(t *testing.T) {
	r := NewQueryRefiner(stubProvider{reply: "sorry, I can't do JSON today"})

	got := r.Refine(context.Background(), "raw query")
	assert.Equal(t, "raw query", got.NormalizedQuery)
}

func TestRefineNilRefinerPassesThrough(t *testing.T) {
	var r *QueryRefiner

	got := r.Refine(context.Background(), "anything")
	assert.Equal(t, "anything", got.NormalizedQuery)
	assert.Equal(t, "general", got.SearchIntent)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in))
	}
}

func TestRecommendFallbackLists(t *testing.T) {
	g := NewResponseGenerator(stubProvider{err: errors.New("model offline")})

	books := []store.BookRef{
		{Title: "Dune", Authors: []string{"Frank Herbert"}, Rating: 4.2},
		{Title: "Hyperion", Authors: []string{"Dan Simmons"}},
	}
	reply := g.Recommend(context.Background(), "sci-fi please", "First interaction with the user.", books)
	assert.Contains(t, reply, `"Dune" by Frank Herbert`)
	assert.Contains(t, reply, `"Hyperion" by Dan Simmons`)
}

func TestRecommendFallbackEmpty(t *testing.T) {
	g := NewResponseGenerator(stubProvider{err: errors.New("down")})

	reply := g.Recommend(context.Background(), "anything", "", nil)
	assert.Contains(t, reply, "couldn't find anything")
}

func TestChatFallbackUsesBookFacts(t *testing.T) {
	g := NewResponseGenerator(stubProvider{err: errors.New("down")})

	book := store.BookRef{Title: "Dune", Authors: []string{"Frank Herbert"}, Description: "a desert planet"}
	reply := g.Chat(context.Background(), "what is it about?", "", book)
	assert.Contains(t, reply, "Dune")
	assert.Contains(t, reply, "desert planet")
}
