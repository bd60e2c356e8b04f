package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/trivium/pkg/domain"
)

// Output implements ports.OutputDocument in memory.
type Output struct {
	text    string
	batches []string
	mu      sync.RWMutex
}

// NewOutput creates an empty document.
func NewOutput() *Output {
	return &Output{}
}

// Read returns the document text.
func (o *Output) Read(ctx context.Context) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.text, nil
}

// Append adds text once per batch.
func (o *Output) Append(ctx context.Context, batchID, text string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if slices.Contains(o.batches, batchID) {
		return false, nil
	}
	o.text = domain.AppendParagraph(o.text, text)
	o.batches = append(o.batches, batchID)
	return true, nil
}

// Contains reports whether the batch was appended.
func (o *Output) Contains(ctx context.Context, batchID string) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Contains(o.batches, batchID), nil
}
