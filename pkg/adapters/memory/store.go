package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/trivium/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	state *domain.WorkflowState
	mu    sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Save persists a copy of the state.
func (s *Store) Save(ctx context.Context, state *domain.WorkflowState) error {
	copied := state.Clone()
	copied.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = copied
	return nil
}

// Load retrieves a copy of the state so callers can't mutate the store through the pointer.
func (s *Store) Load(ctx context.Context) (*domain.WorkflowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, domain.ErrStateNotFound
	}
	return s.state.Clone(), nil
}
