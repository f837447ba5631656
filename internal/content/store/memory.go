package store

import (
	"context"
	"fmt"
	"sync"

	"pitchroom/internal/content/models"
	"pitchroom/pkg/platform/sentinel"
)

// InMemory keeps documents in a map. It backs unit tests and favors
// clarity over performance.
type InMemory struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[string]models.Document)}
}

func (s *InMemory) Read(_ context.Context, logical string) (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[logical]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", logical, sentinel.ErrNotFound)
	}
	return doc.Clone(), nil
}

func (s *InMemory) Write(_ context.Context, logical string, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[logical] = doc.Clone()
	return nil
}

func (s *InMemory) Exists(_ context.Context, logical string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[logical]
	return ok, nil
}
