package llm

import (
	"context"
	"fmt"
	"strings"

	"book-agent-be/pkg/store"
)

// ResponseGenerator turns retrieval results into the assistant's reply.
// When the LLM is unavailable it falls back to a deterministic listing so
// the request path never fails on generation.
type ResponseGenerator struct {
	provider LLMProvider
}

func NewResponseGenerator(provider LLMProvider) *ResponseGenerator {
	return &ResponseGenerator{provider: provider}
}

const recommendPromptTemplate = `You are a friendly book recommendation assistant.

Conversation so far:
%s

The user just said: %q

Recommend the books below, in order. Mention each title and author, one short
sentence each on why it fits. Keep the whole reply under 120 words and answer
in the language of the user's message.

Books:
%s`

// Recommend composes a reply presenting books for the user's message.
// conversationContext is the short textual summary from the context store.
func (g *ResponseGenerator) Recommend(ctx context.Context, message, conversationContext string, books []store.BookRef) string {
	if g != nil && g.provider != nil {
		reply, err := g.provider.Generate(ctx,
			fmt.Sprintf(recommendPromptTemplate, conversationContext, message, formatBooks(books)),
			WithTemperature(0.7), WithMaxTokens(400))
		if err == nil && strings.TrimSpace(reply) != "" {
			return strings.TrimSpace(reply)
		}
	}
	return fallbackRecommendation(books)
}

// Chat answers a question about a specific book the user referred to.
func (g *ResponseGenerator) Chat(ctx context.Context, message, conversationContext string, book store.BookRef) string {
	if g != nil && g.provider != nil {
		prompt := fmt.Sprintf(`You are a friendly book recommendation assistant.

Conversation so far:
%s

The user asked about the book %q by %s. Book description: %s

Their message: %q

Answer helpfully in the language of the user's message, under 100 words.`,
			conversationContext, book.Title, book.FirstAuthor(), book.Description, message)

		reply, err := g.provider.Generate(ctx, prompt, WithTemperature(0.7), WithMaxTokens(350))
		if err == nil && strings.TrimSpace(reply) != "" {
			return strings.TrimSpace(reply)
		}
	}
	return fmt.Sprintf("%q by %s: %s", book.Title, book.FirstAuthor(), truncate(book.Description, 200))
}

func fallbackRecommendation(books []store.BookRef) string {
	if len(books) == 0 {
		return "I couldn't find anything matching that. Could you tell me a bit more about what you're looking for?"
	}
	var b strings.Builder
	b.WriteString("Here are some books you might enjoy:\n")
	for i, book := range books {
		fmt.Fprintf(&b, "%d. %q by %s", i+1, book.Title, book.FirstAuthor())
		if book.Rating > 0 {
			fmt.Fprintf(&b, " (%.1f★)", book.Rating)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatBooks(books []store.BookRef) string {
	var b strings.Builder
	for i, book := range books {
		fmt.Fprintf(&b, "%d. %q by %s — %s\n", i+1, book.Title, book.FirstAuthor(), truncate(book.Description, 150))
	}
	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
