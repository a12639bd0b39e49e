package services

import (
	"sync"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
)

// DefaultMemoryWindow is the number of turns kept per session.
const DefaultMemoryWindow = 5

// SessionMemory holds bounded conversation history keyed by session ID.
// Each session keeps the most recent window of turns; older turns are
// evicted FIFO. Sessions are created lazily on first use and removed
// only by an explicit Clear.
//
// The sessions map and each session's turn list are guarded separately
// so concurrent requests on different sessions never contend, while
// read-then-append within one session stays atomic.
type SessionMemory struct {
	mu       sync.RWMutex
	window   int
	sessions map[string]*session
}

type session struct {
	mu    sync.Mutex
	turns []domain.Turn
}

// NewSessionMemory creates a session store keeping window turns per
// session. A non-positive window falls back to the default.
func NewSessionMemory(window int) *SessionMemory {
	if window <= 0 {
		window = DefaultMemoryWindow
	}
	return &SessionMemory{
		window:   window,
		sessions: make(map[string]*session),
	}
}

// Window returns the configured turn window.
func (m *SessionMemory) Window() int {
	return m.window
}

// Load returns the session's turns, oldest first. An unknown session
// yields an empty history; it is not created.
func (m *SessionMemory) Load(sessionID string) []domain.Turn {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// AppendTurn records one completed exchange, creating the session if
// needed and evicting the oldest turn once the window is exceeded.
func (m *SessionMemory) AppendTurn(sessionID, userText, assistantText string) {
	s := m.getOrCreate(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, domain.Turn{
		UserText:      userText,
		AssistantText: assistantText,
	})
	if len(s.turns) > m.window {
		s.turns = s.turns[len(s.turns)-m.window:]
	}
}

// Clear removes a session entirely. Returns true if it existed.
func (m *SessionMemory) Clear(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok
}

// ActiveSessions returns the number of live sessions.
func (m *SessionMemory) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *SessionMemory) getOrCreate(sessionID string) *session {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[sessionID]; ok {
		return s
	}
	s = &session{}
	m.sessions[sessionID] = s
	return s
}
