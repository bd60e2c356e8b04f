package ports

import (
	"context"

	"github.com/aretw0/trivium/pkg/domain"
)

// Gateway invokes an external collaborator.
// Implementations must honour ctx (and call.Timeout) and must report every failure,
// including timeouts and unknown agents, through Result rather than panicking.
type Gateway interface {
	Invoke(ctx context.Context, call domain.Call) domain.Result
}

// DocumentSource provides read-only reference documents keyed by name.
type DocumentSource interface {
	// Read returns the document text, or "" with a nil error when it does not exist.
	Read(ctx context.Context, name string) (string, error)
}
