package agent

import (
	"strings"

	"book-agent-be/pkg/agent/rules"
	"book-agent-be/pkg/store"

	"github.com/agnivade/levenshtein"
)

// ContextAnalysis is the derived view of how the current message relates to
// recent history. Recomputed per request, never persisted.
type ContextAnalysis struct {
	IsContinuation      bool    `json:"is_continuation"`
	TopicShift          bool    `json:"topic_shift"`
	AskingAboutPrevious bool    `json:"asking_about_previous"`
	SimilarityScore     float64 `json:"similarity_score"`
	PreviousTopic       string  `json:"previous_topic,omitempty"`
	CurrentTopic        string  `json:"current_topic,omitempty"`
}

// Analyzer classifies message intent and compares messages against recent
// history using the rule tables.
type Analyzer struct {
	rules *rules.Rules
}

func NewAnalyzer(r *rules.Rules) *Analyzer {
	if r == nil {
		r = rules.Default()
	}
	return &Analyzer{rules: r}
}

// AnalyzeIntent runs the prioritized rule cascade, first match wins.
// The evaluation order is part of the contract:
//  1. career/leadership keywords
//  2. genre keyword AND recommendation-request keyword
//  3. author keyword or known author name
//  4. recommendation-request keyword
//  5. closing keyword without a request keyword
//  6. default social
func (a *Analyzer) AnalyzeIntent(message string) store.Intent {
	m := strings.ToLower(strings.TrimSpace(message))

	if containsAny(m, a.rules.CareerKeywords) {
		return store.IntentCareerGrowth
	}

	hasGenre := containsAny(m, a.rules.GenreKeywords)
	hasRequest := containsAny(m, a.rules.RequestKeywords)
	if hasGenre && hasRequest {
		return store.IntentGeneral
	}

	if containsAny(m, a.rules.AuthorKeywords) || containsAny(m, a.rules.KnownAuthors) {
		return store.IntentAuthor
	}

	if hasRequest {
		return store.IntentGeneral
	}

	if containsAny(m, a.rules.ClosingKeywords) && !hasRequest {
		return store.IntentClosing
	}

	return store.IntentSocial
}

// DetectTopic returns the first matching topic from the ordered table, or
// "general" when nothing matches.
func (a *Analyzer) DetectTopic(text string) string {
	t := strings.ToLower(text)
	for _, topic := range a.rules.Topics {
		if containsAny(t, topic.Keywords) {
			return topic.Name
		}
	}
	return "general"
}

// AnalyzeContext compares the message against the conversation so far.
func (a *Analyzer) AnalyzeContext(message string, history []store.Message, lastShown []store.BookRef, lang string) ContextAnalysis {
	analysis := ContextAnalysis{}
	if len(history) == 0 {
		return analysis
	}

	m := strings.ToLower(message)
	lex := a.rules.Lang(lang)
	analysis.AskingAboutPrevious = containsAny(m, lex.ReferringBack)

	analysis.CurrentTopic = a.DetectTopic(message)

	var lastUser string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == store.RoleUser {
			lastUser = history[i].Content
			break
		}
	}

	if lastUser != "" {
		analysis.PreviousTopic = a.DetectTopic(lastUser)
		if analysis.CurrentTopic != "" && analysis.PreviousTopic != "" {
			analysis.TopicShift = analysis.CurrentTopic != analysis.PreviousTopic
			analysis.SimilarityScore = SimilarityRatio(m, strings.ToLower(lastUser))
		}
	}

	analysis.IsContinuation = !analysis.TopicShift &&
		!analysis.AskingAboutPrevious &&
		analysis.SimilarityScore > 0.3

	return analysis
}

// ExtractAuthor pulls an author name out of an author-intent message:
// a known author name when one appears, otherwise the words following a
// "books by"/"livros de" marker.
func (a *Analyzer) ExtractAuthor(message string) string {
	m := strings.ToLower(message)
	for _, author := range a.rules.KnownAuthors {
		if strings.Contains(m, author) {
			return author
		}
	}

	for _, marker := range []string{"livros de ", "obras de ", "books by ", "livros da ", "livros do "} {
		i := strings.Index(m, marker)
		if i < 0 {
			continue
		}
		rest := strings.TrimSpace(m[i+len(marker):])
		words := strings.Fields(rest)
		if len(words) == 0 {
			continue
		}
		if len(words) > 4 {
			words = words[:4]
		}
		return strings.Trim(strings.Join(words, " "), ".,!?\"'")
	}
	return ""
}

// SimilarityRatio is a normalized edit-distance ratio in [0,1]; 1 means the
// strings are identical.
func SimilarityRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
