package memory

import (
	"sync"

	"listenlab/internal/session"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Controller
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.Controller),
	}
}

func (s *SessionStore) Put(sessionID string, ctrl *session.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = ctrl
}

func (s *SessionStore) Get(sessionID string) (*session.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctrl, ok := s.sessions[sessionID]
	return ctrl, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
