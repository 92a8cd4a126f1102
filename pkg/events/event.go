package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "RECOMMENDATION_SERVED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const TypeRecommendationServed = "RECOMMENDATION_SERVED"

// RecommendationServed is emitted after every turn that surfaced books.
type RecommendationServed struct {
	SessionID  string    `json:"session_id"`
	Intent     string    `json:"intent"`
	Strategy   string    `json:"strategy"`
	Query      string    `json:"query"`
	BookIDs    []int     `json:"book_ids"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e RecommendationServed) EventType() string {
	return TypeRecommendationServed
}

func (e RecommendationServed) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id": e.SessionID,
		"intent":     e.Intent,
		"strategy":   e.Strategy,
		"query":      e.Query,
		"book_ids":   e.BookIDs,
	}
}

func (e RecommendationServed) Timestamp() time.Time {
	return e.OccurredAt
}
