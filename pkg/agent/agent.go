package agent

import (
	"context"
	"strings"
	"time"

	"book-agent-be/internal/pkg/logger"
	"book-agent-be/pkg/events"
	"book-agent-be/pkg/llm"
	"book-agent-be/pkg/memory"
	"book-agent-be/pkg/resolver"
	"book-agent-be/pkg/search"
	"book-agent-be/pkg/store"
)

// Result is the outcome of processing one user turn.
type Result struct {
	Response       string          `json:"response"`
	Intent         store.Intent    `json:"intent"`
	Strategy       store.Strategy  `json:"strategy,omitempty"`
	Books          []store.BookRef `json:"books,omitempty"`
	BooksFound     int             `json:"books_found"`
	NoResults      bool            `json:"no_results,omitempty"`
	ProcessingTime float64         `json:"processing_time_seconds"`
	Analysis       ContextAnalysis `json:"analysis"`
}

// maximum books persisted on the assistant message; the full result list
// still goes to the caller.
const maxPersistedBooks = 3

// Agent orchestrates one conversational turn: session memory, intent and
// context analysis, strategy selection, retrieval and response generation.
type Agent struct {
	memory    *memory.ContextStore
	analyzer  *Analyzer
	engine    *search.Engine
	resolver  *resolver.Resolver
	responder *llm.ResponseGenerator
	publisher *events.Publisher
	logger    logger.ILogger

	maxContextMessages int
	now                func() time.Time
}

func NewAgent(
	mem *memory.ContextStore,
	analyzer *Analyzer,
	engine *search.Engine,
	res *resolver.Resolver,
	responder *llm.ResponseGenerator,
	publisher *events.Publisher,
	log logger.ILogger,
	maxContextMessages int,
) *Agent {
	return &Agent{
		memory:             mem,
		analyzer:           analyzer,
		engine:             engine,
		resolver:           res,
		responder:          responder,
		publisher:          publisher,
		logger:             log,
		maxContextMessages: maxContextMessages,
		now:                time.Now,
	}
}

// ProcessMessage runs the full pipeline for one user message. It never
// returns an error for retrieval or generation problems; those degrade to
// fallback behavior inside the pipeline.
func (a *Agent) ProcessMessage(ctx context.Context, sessionID, message, lang string) Result {
	started := a.now()
	session := a.memory.GetOrCreate(ctx, sessionID)
	lastShown := session.LastShownBooks

	intent := a.analyzer.AnalyzeIntent(message)

	// A resolvable book reference overrides the keyword intent: the user is
	// talking about one specific book, not asking for new recommendations.
	if resolution := a.resolver.Detect(message, lang, lastShown); resolution.State == resolver.StateBookResolved {
		return a.bookChatTurn(ctx, sessionID, message, lang, resolution, started)
	}

	if intent == store.IntentClosing {
		return a.closingTurn(ctx, sessionID, message, lang, started)
	}

	if intent == store.IntentAuthor {
		if result, ok := a.authorTurn(ctx, sessionID, message, lang, started); ok {
			return result
		}
		// no author name extractable, continue through the normal flow
	}

	analysis := a.analyzer.AnalyzeContext(message, session.History, lastShown, lang)
	strategy := a.analyzer.DetermineStrategy(message, intent, analysis, lastShown, lang)

	books := a.engine.Execute(ctx, search.Request{
		Query:     message,
		Strategy:  strategy,
		LastShown: lastShown,
		Lang:      lang,
	})

	noResults := false
	if len(books) == 0 {
		if len(lastShown) > 0 {
			books = lastShown
			strategy = store.StrategyUsePreviousOnly
		} else {
			noResults = true
		}
	}

	response := a.responder.Recommend(ctx, message,
		a.memory.ConversationContext(ctx, sessionID, a.maxContextMessages), books)

	a.persistTurn(ctx, sessionID, message, response, intent, books)
	a.publish(sessionID, message, intent, strategy, books)

	a.logger.Info("agent", "turn processed", map[string]interface{}{
		"session_id": sessionID,
		"intent":     string(intent),
		"strategy":   string(strategy),
		"books":      len(books),
	})

	return Result{
		Response:       response,
		Intent:         intent,
		Strategy:       strategy,
		Books:          books,
		BooksFound:     len(books),
		NoResults:      noResults,
		ProcessingTime: a.now().Sub(started).Seconds(),
		Analysis:       analysis,
	}
}

// bookChatTurn answers a question about one resolved book, no retrieval.
func (a *Agent) bookChatTurn(ctx context.Context, sessionID, message, lang string, resolution resolver.Resolution, started time.Time) Result {
	response := a.responder.Chat(ctx, message,
		a.memory.ConversationContext(ctx, sessionID, a.maxContextMessages), resolution.Book)

	books := []store.BookRef{resolution.Book}
	a.persistTurn(ctx, sessionID, message, response, store.IntentBookChat, books)

	return Result{
		Response:       response,
		Intent:         store.IntentBookChat,
		Strategy:       store.StrategyUsePreviousOnly,
		Books:          books,
		BooksFound:     1,
		ProcessingTime: a.now().Sub(started).Seconds(),
	}
}

func (a *Agent) closingTurn(ctx context.Context, sessionID, message, lang string, started time.Time) Result {
	response := "Happy reading! Come back whenever you want another recommendation."
	if lang == "pt" {
		response = "Boa leitura! Volte quando quiser outra recomendação."
	}
	a.persistTurn(ctx, sessionID, message, response, store.IntentClosing, nil)

	return Result{
		Response:       response,
		Intent:         store.IntentClosing,
		ProcessingTime: a.now().Sub(started).Seconds(),
	}
}

// authorTurn serves "books by X" directly from the author index.
func (a *Agent) authorTurn(ctx context.Context, sessionID, message, lang string, started time.Time) (Result, bool) {
	author := a.analyzer.ExtractAuthor(message)
	if author == "" {
		return Result{}, false
	}

	books := a.engine.SearchByAuthor(author, 8)
	if len(books) == 0 {
		return Result{}, false
	}

	response := a.responder.Recommend(ctx, message,
		a.memory.ConversationContext(ctx, sessionID, a.maxContextMessages), books)

	a.persistTurn(ctx, sessionID, message, response, store.IntentAuthor, books)
	a.publish(sessionID, message, store.IntentAuthor, store.StrategyNewSearch, books)

	return Result{
		Response:       response,
		Intent:         store.IntentAuthor,
		Strategy:       store.StrategyNewSearch,
		Books:          books,
		BooksFound:     len(books),
		ProcessingTime: a.now().Sub(started).Seconds(),
	}, true
}

func (a *Agent) persistTurn(ctx context.Context, sessionID, userMessage, response string, intent store.Intent, books []store.BookRef) {
	a.memory.AddMessage(ctx, sessionID, store.RoleUser, userMessage, nil, intent)

	persisted := books
	if len(persisted) > maxPersistedBooks {
		persisted = persisted[:maxPersistedBooks]
	}
	a.memory.AddMessage(ctx, sessionID, store.RoleAssistant, response, persisted, "")
}

func (a *Agent) publish(sessionID, query string, intent store.Intent, strategy store.Strategy, books []store.BookRef) {
	if a.publisher == nil || len(books) == 0 {
		return
	}
	ids := make([]int, 0, len(books))
	for _, b := range books {
		if b.BookID != 0 {
			ids = append(ids, b.BookID)
		}
	}
	evt := events.RecommendationServed{
		SessionID:  sessionID,
		Intent:     string(intent),
		Strategy:   string(strategy),
		Query:      strings.TrimSpace(query),
		BookIDs:    ids,
		OccurredAt: a.now(),
	}
	if err := a.publisher.Publish(evt); err != nil {
		a.logger.Warn("agent", "event publish failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
