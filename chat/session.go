// Package chat implements the conversation engine: session state, the tool
// registry and the streaming orchestration loop.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskflow/assistant/llm"
)

// Session represents a conversation between one user and the assistant.
// Sessions live in memory only and expire after a period of inactivity.
type Session struct {
	SessionID    string
	UserID       string
	CreatedAt    time.Time
	LastActivity time.Time

	mu       sync.Mutex
	messages []llm.ChatMessage
	keep     int
}

// Append adds a message to the conversation history and refreshes the
// activity timestamp. Once the history exceeds the cap, the oldest
// non-system messages are dropped; the leading system prompt always stays.
func (s *Session) Append(msg llm.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	s.LastActivity = time.Now()

	if len(s.messages) > s.keep+1 {
		trimmed := make([]llm.ChatMessage, 0, s.keep+1)
		trimmed = append(trimmed, s.messages[0])
		trimmed = append(trimmed, s.messages[len(s.messages)-s.keep:]...)
		s.messages = trimmed
	}
}

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []llm.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]llm.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) expired(ttl time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.LastActivity.Add(ttl))
}

// SessionStore owns all conversation sessions for the process. It is safe
// for concurrent use; appends to a single session are serialized by the
// session's own lock.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl          time.Duration
	keep         int
	systemPrompt string
}

// NewSessionStore creates a session store. keep is the number of recent
// messages retained after the system prompt; ttl is the inactivity window
// after which a session is collected.
func NewSessionStore(ttl time.Duration, keep int, systemPrompt string) *SessionStore {
	return &SessionStore{
		sessions:     make(map[string]*Session),
		ttl:          ttl,
		keep:         keep,
		systemPrompt: systemPrompt,
	}
}

// GetOrCreate returns the session with the given id if it exists, belongs to
// userID and has not expired. Otherwise a fresh session is allocated; a
// stale or foreign session id is ignored silently. Expired sessions are
// swept opportunistically on every call.
func (s *SessionStore) GetOrCreate(userID, sessionID string) *Session {
	s.Sweep()

	if sessionID != "" {
		s.mu.RLock()
		session, ok := s.sessions[sessionID]
		s.mu.RUnlock()
		if ok && session.UserID == userID && !session.expired(s.ttl, time.Now()) {
			return session
		}
	}

	now := time.Now()
	session := &Session{
		SessionID:    uuid.New().String(),
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		keep:         s.keep,
		messages: []llm.ChatMessage{
			{Role: "system", Content: s.systemPrompt},
		},
	}

	s.mu.Lock()
	s.sessions[session.SessionID] = session
	s.mu.Unlock()

	return session
}

// Get returns a session by id scoped to its owner, or nil if it does not
// exist, has expired, or belongs to another user.
func (s *SessionStore) Get(userID, sessionID string) *Session {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || session.UserID != userID || session.expired(s.ttl, time.Now()) {
		return nil
	}
	return session
}

// Delete removes a session. A foreign or unknown session id reports false.
func (s *SessionStore) Delete(userID, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// Sweep removes all expired sessions.
func (s *SessionStore) Sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.expired(s.ttl, now) {
			delete(s.sessions, id)
		}
	}
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
