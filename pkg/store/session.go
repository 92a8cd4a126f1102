package store

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Intent is the coarse classification of what a user message wants.
type Intent string

const (
	IntentCareerGrowth Intent = "career_growth"
	IntentGeneral      Intent = "general"
	IntentAuthor       Intent = "author"
	IntentGenre        Intent = "genre"
	IntentPopularity   Intent = "popularity"
	IntentClosing      Intent = "closing"
	IntentSocial       Intent = "social"
	IntentBookChat     Intent = "book_conversation"
)

// Strategy is the retrieval approach chosen for the current turn.
type Strategy string

const (
	StrategyNewSearch         Strategy = "new_search"
	StrategyContextBoosted    Strategy = "context_boosted"
	StrategySimilarToPrevious Strategy = "similar_to_previous"
	StrategyUsePreviousOnly   Strategy = "use_previous_only"
	StrategyFallback          Strategy = "fallback"
)

// Message is one conversation turn. Immutable once appended; history is
// append-only until truncation.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Intent    Intent    `json:"intent,omitempty"`
	Books     []BookRef `json:"books,omitempty"`
}

// Session is the durable, TTL-bounded conversational memory for one
// conversation id. The context store exclusively owns these records.
type Session struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	LastActivity     time.Time `json:"last_activity"`
	History          []Message `json:"history"`
	LastShownBooks   []BookRef `json:"last_shown_books,omitempty"`
	DiscussedBookIDs []int     `json:"discussed_book_ids,omitempty"`
}

// NewSession builds an empty session record.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Append adds a message and drops the oldest entries beyond maxMessages.
func (s *Session) Append(msg Message, maxMessages int) {
	s.History = append(s.History, msg)
	if maxMessages > 0 && len(s.History) > maxMessages {
		s.History = s.History[len(s.History)-maxMessages:]
	}
}

// MarkDiscussed unions book ids into the discussed set.
func (s *Session) MarkDiscussed(books []BookRef) {
	seen := make(map[int]bool, len(s.DiscussedBookIDs))
	for _, id := range s.DiscussedBookIDs {
		seen[id] = true
	}
	for _, b := range books {
		if b.BookID != 0 && !seen[b.BookID] {
			s.DiscussedBookIDs = append(s.DiscussedBookIDs, b.BookID)
			seen[b.BookID] = true
		}
	}
}

// Clone returns a deep copy of the session. Callers that hand sessions
// across goroutines copy instead of sharing the slices.
func (s *Session) Clone() *Session {
	out := *s
	out.History = append([]Message(nil), s.History...)
	for i := range out.History {
		out.History[i].Books = append([]BookRef(nil), s.History[i].Books...)
	}
	out.LastShownBooks = append([]BookRef(nil), s.LastShownBooks...)
	out.DiscussedBookIDs = append([]int(nil), s.DiscussedBookIDs...)
	return &out
}

// LastUserMessage returns the content of the most recent user turn, or "".
func (s *Session) LastUserMessage() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleUser {
			return s.History[i].Content
		}
	}
	return ""
}
