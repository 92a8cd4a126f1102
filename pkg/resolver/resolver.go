package resolver

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"book-agent-be/internal/pkg/logger"
	"book-agent-be/pkg/search"
	"book-agent-be/pkg/store"
)

// Terminal resolution states.
const (
	StateNoReference  = "no_reference"
	StateBookResolved = "book_resolved"
	StateNotFound     = "not_found"
)

const acceptThreshold = 0.3

// Resolution is the outcome of resolving one parsed reference.
type Resolution struct {
	State string
	Book  store.BookRef
	Score float64
}

// Resolver matches parsed references against session memory and the
// catalog. Last-shown books always win over catalog fuzzy matches.
type Resolver struct {
	parser  *Parser
	catalog *search.Catalog
	logger  logger.ILogger
}

func NewResolver(parser *Parser, catalog *search.Catalog, log logger.ILogger) *Resolver {
	return &Resolver{parser: parser, catalog: catalog, logger: log}
}

// Detect parses the message and resolves the reference in one step.
func (r *Resolver) Detect(message, lang string, lastShown []store.BookRef) Resolution {
	ref := r.parser.Parse(message, lang)
	return r.Resolve(ref, lastShown)
}

// DetectAll parses and resolves every reference in the message, dropping
// the ones that do not resolve.
func (r *Resolver) DetectAll(message, lang string, lastShown []store.BookRef) []Resolution {
	var resolved []Resolution
	for _, ref := range r.parser.DetectAll(message, lang) {
		if res := r.Resolve(ref, lastShown); res.State == StateBookResolved {
			resolved = append(resolved, res)
		}
	}
	return resolved
}

// Resolve matches a parsed reference: last-shown books first (exact id,
// then bidirectional title containment), then catalog fuzzy matching.
func (r *Resolver) Resolve(ref Reference, lastShown []store.BookRef) Resolution {
	switch ref.Kind {
	case RefID:
		return r.resolveID(ref.ID, lastShown)
	case RefTitle:
		return r.resolveTitle(ref.Title, lastShown)
	default:
		return Resolution{State: StateNoReference}
	}
}

func (r *Resolver) resolveID(id int, lastShown []store.BookRef) Resolution {
	for _, b := range lastShown {
		if b.BookID == id {
			return Resolution{State: StateBookResolved, Book: b, Score: 1}
		}
	}
	if book, ok := r.catalog.ByID(id); ok {
		return Resolution{State: StateBookResolved, Book: book.Ref(store.MethodIDLookup, 1), Score: 1}
	}
	return Resolution{State: StateNotFound}
}

func (r *Resolver) resolveTitle(title string, lastShown []store.BookRef) Resolution {
	needle := strings.ToLower(strings.TrimSpace(title))

	for _, b := range lastShown {
		shown := strings.ToLower(b.Title)
		if shown == needle || strings.Contains(shown, needle) || strings.Contains(needle, shown) {
			return Resolution{State: StateBookResolved, Book: b, Score: 1}
		}
	}

	var (
		best      search.Book
		bestScore float64
	)
	for _, book := range r.catalog.All() {
		score := TitleScore(needle, strings.ToLower(book.Title))
		if score > bestScore {
			best = book
			bestScore = score
		}
	}

	if bestScore <= acceptThreshold {
		if r.logger != nil {
			r.logger.Debug("resolver", "no catalog match above threshold", map[string]interface{}{
				"title":      title,
				"best_score": bestScore,
			})
		}
		return Resolution{State: StateNotFound}
	}
	return Resolution{State: StateBookResolved, Book: best.Ref(store.MethodIDLookup, bestScore), Score: bestScore}
}

// TitleScore rates how well a candidate matches a catalog title, both
// lowercase. Exact match 1.0; containment 0.9; otherwise shared-token
// ratio with an order bonus, capped at 0.8; for short strings an
// edit-distance ratio scaled by 0.7 can win instead.
func TitleScore(candidate, title string) float64 {
	if candidate == "" || title == "" {
		return 0
	}
	if candidate == title {
		return 1
	}
	if strings.Contains(title, candidate) || strings.Contains(candidate, title) {
		return 0.9
	}

	score := tokenOverlapScore(candidate, title)

	if len([]rune(candidate)) <= 25 && len([]rune(title)) <= 25 {
		if edit := editRatio(candidate, title) * 0.7; edit > score {
			score = edit
		}
	}
	return score
}

// tokenOverlapScore is the shared-token ratio plus a small bonus when the
// shared tokens appear in the same relative order, capped at 0.8.
func tokenOverlapScore(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	posB := make(map[string]int, len(tokensB))
	for i, t := range tokensB {
		if _, ok := posB[t]; !ok {
			posB[t] = i
		}
	}

	shared := 0
	inOrder := true
	lastPos := -1
	for _, t := range tokensA {
		pos, ok := posB[t]
		if !ok {
			continue
		}
		shared++
		if pos < lastPos {
			inOrder = false
		}
		lastPos = pos
	}
	if shared == 0 {
		return 0
	}

	maxLen := len(tokensA)
	if len(tokensB) > maxLen {
		maxLen = len(tokensB)
	}
	score := float64(shared) / float64(maxLen)
	if inOrder && shared > 1 {
		score += 0.1
	}
	if score > 0.8 {
		score = 0.8
	}
	return score
}

func editRatio(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}
