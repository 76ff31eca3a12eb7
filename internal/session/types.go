package session

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session has expired.
	ErrSessionExpired = errors.New("session expired")
)

const (
	// HistoryWindow is how many trailing messages are handed to the
	// reasoning engine as conversation context.
	HistoryWindow = 6

	// HistoryTruncateAt caps each message's contribution to that context.
	HistoryTruncateAt = 300
)

// Session carries conversation continuity for one user across queries.
type Session struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	ExpiresAt time.Time              `json:"expires_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	History   []Message              `json:"history"`

	// LastAgents holds the specialists invoked for the previous query,
	// used to route follow-up questions without re-asking the router.
	LastAgents []string `json:"last_agents,omitempty"`
}

// Message is one entry in the session history.
type Message struct {
	ID        string                 `json:"id"`
	Role      string                 `json:"role"` // "user" or "assistant"
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// clone returns a copy whose History and LastAgents are safe to mutate
// while concurrent readers still hold the original pointer from the
// manager's cache.
func (s *Session) clone() *Session {
	cp := *s
	cp.History = append([]Message(nil), s.History...)
	cp.LastAgents = append([]string(nil), s.LastAgents...)
	return &cp
}

// IsExpired checks whether the session is past its TTL.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// GetContextValue retrieves a value from the session context.
func (s *Session) GetContextValue(key string) (interface{}, bool) {
	if s.Context == nil {
		return nil, false
	}
	val, ok := s.Context[key]
	return val, ok
}

// SetContextValue sets a value in the session context.
func (s *Session) SetContextValue(key string, value interface{}) {
	if s.Context == nil {
		s.Context = make(map[string]interface{})
	}
	s.Context[key] = value
	s.UpdatedAt = time.Now()
}

// RecentHistory returns the most recent count messages.
func (s *Session) RecentHistory(count int) []Message {
	if len(s.History) <= count {
		return s.History
	}
	return s.History[len(s.History)-count:]
}

// HistoryContext renders the trailing window of the conversation as
// role-prefixed lines for a reasoning prompt. Long messages are cut at
// HistoryTruncateAt characters.
func (s *Session) HistoryContext() string {
	recent := s.RecentHistory(HistoryWindow)
	if len(recent) == 0 {
		return ""
	}

	var b strings.Builder
	for _, msg := range recent {
		content := msg.Content
		if len(content) > HistoryTruncateAt {
			content = content[:HistoryTruncateAt] + "..."
		}
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
