package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Refinement is the structured result of query refinement: the cleaned-up
// query plus expansion material for the retrieval engine.
type Refinement struct {
	NormalizedQuery string   `json:"normalized_query"`
	Synonyms        []string `json:"synonyms"`
	Keywords        []string `json:"keywords"`
	SearchIntent    string   `json:"search_intent"`
}

// QueryRefiner rewrites noisy user queries (typos, slang, mixed language)
// into a normalized form before retrieval. Errors never propagate: any
// failure yields a passthrough refinement of the raw query.
type QueryRefiner struct {
	provider LLMProvider
}

func NewQueryRefiner(provider LLMProvider) *QueryRefiner {
	return &QueryRefiner{provider: provider}
}

const refinePromptTemplate = `You normalize book search queries. Given the user query below, respond with ONLY a JSON object, no prose, with these fields:
- "normalized_query": the query with typos fixed and filler words removed
- "synonyms": up to 3 alternative phrasings
- "keywords": the key search terms
- "search_intent": one of "book_title", "genre", "author", "theme", "comics", "general"

User query: %q`

// Refine normalizes a query through the LLM. The zero-value fallback keeps
// the original query and a "general" intent.
func (r *QueryRefiner) Refine(ctx context.Context, query string) Refinement {
	fallback := Refinement{NormalizedQuery: query, SearchIntent: "general"}
	if r == nil || r.provider == nil {
		return fallback
	}

	raw, err := r.provider.Generate(ctx, fmt.Sprintf(refinePromptTemplate, query),
		WithTemperature(0.1), WithMaxTokens(300))
	if err != nil {
		return fallback
	}

	var refined Refinement
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &refined); err != nil {
		return fallback
	}
	if strings.TrimSpace(refined.NormalizedQuery) == "" {
		refined.NormalizedQuery = query
	}
	if refined.SearchIntent == "" {
		refined.SearchIntent = "general"
	}
	return refined
}

// stripCodeFence removes a surrounding ```json ... ``` block that chat
// models like to wrap JSON answers in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
