package ports

import (
	"context"

	"github.com/aretw0/trivium/pkg/domain"
)

// StateStore persists the process-wide WorkflowState.
// Load and Save are its only operations; implementations replace the whole record on Save.
type StateStore interface {
	// Load retrieves the persisted state.
	// Returns domain.ErrStateNotFound if nothing has been saved yet.
	Load(ctx context.Context) (*domain.WorkflowState, error)

	// Save replaces the persisted state.
	Save(ctx context.Context, state *domain.WorkflowState) error
}

// ArtifactStore holds batch artifacts addressed by slash-separated relative paths
// (e.g. "drafts/ch1_p1/round_1/review_codex.json").
type ArtifactStore interface {
	// Exists reports whether an artifact is present.
	Exists(ctx context.Context, path string) (bool, error)

	// Read returns the artifact content.
	// Returns domain.ErrArtifactNotFound if it does not exist.
	Read(ctx context.Context, path string) (string, error)

	// Write creates or replaces an artifact.
	Write(ctx context.Context, path string, content string) error

	// List returns the names of the artifacts directly under dir, sorted.
	// A missing dir yields an empty list.
	List(ctx context.Context, dir string) ([]string, error)
}

// OutputDocument is the cumulative document assembled from accepted batches.
type OutputDocument interface {
	// Read returns the current document text (empty if nothing was appended yet).
	Read(ctx context.Context) (string, error)

	// Append adds text for batchID exactly once.
	// It returns false without modifying the document when the batch was already appended.
	Append(ctx context.Context, batchID, text string) (bool, error)

	// Contains reports whether batchID has been appended.
	Contains(ctx context.Context, batchID string) (bool, error)
}
