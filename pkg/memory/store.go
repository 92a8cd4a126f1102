// Package memory implements the durable, TTL-bounded per-session
// conversational memory: history, last shown books and the discussed-book
// set. Records live in a key-value backend (one JSON blob per session key,
// TTL reset on every read); when the backend is unreachable the store
// degrades to an in-process ephemeral cache instead of failing the request.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"book-agent-be/internal/pkg/logger"
	"book-agent-be/pkg/store"

	gocache "github.com/patrickmn/go-cache"
)

const keyPrefix = "conversation:"

// ContextStore owns Session records. All operations are best-effort against
// the KV backend; none of them surfaces a backend error to the caller.
type ContextStore struct {
	kv          KV
	fallback    *gocache.Cache
	logger      logger.ILogger
	ttl         time.Duration
	maxMessages int
	now         func() time.Time
}

// NewContextStore builds a store with the given session TTL and history
// bound. Expiry is lazy: the backend drops expired keys and the next access
// creates a fresh session.
func NewContextStore(kv KV, log logger.ILogger, ttl time.Duration, maxMessages int) *ContextStore {
	return &ContextStore{
		kv:          kv,
		fallback:    gocache.New(ttl, 10*time.Minute),
		logger:      log,
		ttl:         ttl,
		maxMessages: maxMessages,
		now:         time.Now,
	}
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

// GetOrCreate returns the live session for the id, refreshing its activity
// timestamp and TTL, or a brand new one when none exists. It never fails the
// caller: on backend errors it serves an ephemeral in-process session.
func (c *ContextStore) GetOrCreate(ctx context.Context, sessionID string) *store.Session {
	raw, err := c.kv.Get(ctx, sessionKey(sessionID))
	switch {
	case err == nil:
		var session store.Session
		if jsonErr := json.Unmarshal([]byte(raw), &session); jsonErr != nil {
			c.logger.Warn("memory", "corrupt session record, recreating", map[string]interface{}{
				"session_id": sessionID, "error": jsonErr.Error(),
			})
			session = *store.NewSession(sessionID, c.now())
		}
		session.LastActivity = c.now()
		c.persist(ctx, &session)
		return &session

	case err == ErrNotFound:
		session := store.NewSession(sessionID, c.now())
		c.persist(ctx, session)
		return session

	default:
		// Backend unreachable: degrade to statelessness rather than erroring.
		c.logger.Warn("memory", "session backend unavailable, using ephemeral session", map[string]interface{}{
			"session_id": sessionID, "error": err.Error(),
		})
		if x, found := c.fallback.Get(sessionID); found {
			// hand out a copy: the cached record is shared across turns
			session := x.(*store.Session).Clone()
			session.LastActivity = c.now()
			return session
		}
		session := store.NewSession(sessionID, c.now())
		c.fallback.Set(sessionID, session.Clone(), gocache.DefaultExpiration)
		return session
	}
}

// AddMessage appends one turn to the session and persists the whole record
// as a single write. When books is non-empty it becomes the new
// last-shown set and its ids join the discussed set.
func (c *ContextStore) AddMessage(ctx context.Context, sessionID, role, content string, books []store.BookRef, intent store.Intent) {
	session := c.GetOrCreate(ctx, sessionID)

	msg := store.Message{
		Timestamp: c.now(),
		Role:      role,
		Content:   content,
		Intent:    intent,
	}
	if len(books) > 0 {
		msg.Books = books
		session.LastShownBooks = books
		session.MarkDiscussed(books)
	}

	session.Append(msg, c.maxMessages)
	session.LastActivity = c.now()
	c.persist(ctx, session)
}

// LastShownBooks returns the books from the most recent recommendation turn,
// or nil when the session has none.
func (c *ContextStore) LastShownBooks(ctx context.Context, sessionID string) []store.BookRef {
	return c.GetOrCreate(ctx, sessionID).LastShownBooks
}

// BookFromLastShown looks a book up in the last-shown set by id first, then
// by case-insensitive title containment.
func (c *ContextStore) BookFromLastShown(ctx context.Context, sessionID string, bookID int, title string) *store.BookRef {
	books := c.LastShownBooks(ctx, sessionID)
	if len(books) == 0 {
		return nil
	}

	if bookID != 0 {
		for i := range books {
			if books[i].BookID == bookID {
				return &books[i]
			}
		}
	}

	if title != "" {
		t := strings.ToLower(title)
		for i := range books {
			bt := strings.ToLower(books[i].Title)
			if strings.Contains(bt, t) || strings.Contains(t, bt) {
				return &books[i]
			}
		}
	}

	return nil
}

// ConversationContext renders a short history summary for prompt injection.
func (c *ContextStore) ConversationContext(ctx context.Context, sessionID string, maxMessages int) string {
	session := c.GetOrCreate(ctx, sessionID)
	if len(session.History) == 0 {
		return "First interaction with the user."
	}

	recent := session.History
	if maxMessages > 0 && len(recent) > maxMessages {
		recent = recent[len(recent)-maxMessages:]
	}

	lines := []string{"CONVERSATION CONTEXT (use it to keep continuity):"}
	for _, msg := range recent {
		role := "User"
		if msg.Role == store.RoleAssistant {
			role = "Assistant"
		}
		content := msg.Content
		if runes := []rune(content); len(runes) > 200 {
			content = string(runes[:200])
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", role, content))
	}
	if n := len(session.DiscussedBookIDs); n > 0 {
		lines = append(lines, fmt.Sprintf("- Books already discussed: %d", n))
	}
	if len(session.LastShownBooks) > 0 {
		lines = append(lines, "- The assistant already made recommendations recently.")
	}

	return strings.Join(lines, "\n")
}

// Clear deletes one session record.
func (c *ContextStore) Clear(ctx context.Context, sessionID string) error {
	c.fallback.Delete(sessionID)
	return c.kv.Del(ctx, sessionKey(sessionID))
}

// ClearAll deletes every session record and returns how many were removed.
// Destructive: the API boundary requires an operator confirmation token
// before calling this.
func (c *ContextStore) ClearAll(ctx context.Context) (int, error) {
	keys, err := c.kv.Keys(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("list session keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.kv.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("delete session keys: %w", err)
	}
	c.fallback.Flush()
	return len(keys), nil
}

func (c *ContextStore) persist(ctx context.Context, session *store.Session) {
	payload, err := json.Marshal(session)
	if err != nil {
		c.logger.Error("memory", "marshal session", map[string]interface{}{
			"session_id": session.ID, "error": err.Error(),
		})
		return
	}

	if err := c.kv.Set(ctx, sessionKey(session.ID), string(payload), c.ttl); err != nil {
		c.logger.Warn("memory", "persist session failed, keeping ephemeral copy", map[string]interface{}{
			"session_id": session.ID, "error": err.Error(),
		})
		c.fallback.Set(session.ID, session.Clone(), gocache.DefaultExpiration)
	}
}
