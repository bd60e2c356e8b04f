package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/trivium/pkg/domain"
)

// Store implements ports.StateStore using a single JSON file.
type Store struct {
	Path string
}

// New creates a new Store writing to path.
// If path is empty, it defaults to ".trivium/state.json".
func New(path string) *Store {
	if path == "" {
		path = filepath.Join(".trivium", "state.json")
	}
	return &Store{Path: path}
}

// Save replaces the state file atomically.
func (s *Store) Save(ctx context.Context, state *domain.WorkflowState) error {
	copied := state.Clone()
	copied.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(copied, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := writeAtomic(s.Path, data); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Load reads the state file.
func (s *Store) Load(ctx context.Context) (*domain.WorkflowState, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	state := domain.NewWorkflowState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if state.CompletedBatches == nil {
		state.CompletedBatches = []string{}
	}
	return state, nil
}
