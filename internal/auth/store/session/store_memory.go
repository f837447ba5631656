// Package session persists editor sessions behind auth.SessionStore. Redis
// is used when configured so sessions survive restarts; the in-memory store
// backs development and tests.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pitchroom/internal/auth"
	"pitchroom/pkg/platform/sentinel"
)

// InMemory keeps sessions in a map and lazily drops expired entries.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[string]auth.Session)}
}

func (s *InMemory) Save(_ context.Context, session auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *InMemory) Find(_ context.Context, id string) (auth.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return auth.Session{}, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
	}
	if session.Expired(time.Now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return auth.Session{}, fmt.Errorf("session %s: %w", id, sentinel.ErrExpired)
	}
	return session, nil
}

func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
