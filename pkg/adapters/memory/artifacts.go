package memory

import (
	"context"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/trivium/pkg/domain"
)

// Artifacts implements ports.ArtifactStore over a map.
// It is the content-addressable double used to test step guards without disk I/O.
type Artifacts struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewArtifacts creates an empty artifact store.
func NewArtifacts() *Artifacts {
	return &Artifacts{data: make(map[string]string)}
}

func clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// Exists reports whether the artifact is present.
func (a *Artifacts) Exists(ctx context.Context, p string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.data[clean(p)]
	return ok, nil
}

// Read returns the artifact content.
func (a *Artifacts) Read(ctx context.Context, p string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.data[clean(p)]
	if !ok {
		return "", domain.ErrArtifactNotFound
	}
	return v, nil
}

// Write stores the artifact.
func (a *Artifacts) Write(ctx context.Context, p string, content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[clean(p)] = content
	return nil
}

// Delete removes an artifact. Tests use it to simulate interrupted runs.
func (a *Artifacts) Delete(p string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.data, clean(p))
}

// List returns the sorted names directly under dir.
func (a *Artifacts) List(ctx context.Context, dir string) ([]string, error) {
	prefix := clean(dir) + "/"
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make(map[string]struct{})
	for k := range a.data {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rest, "/")
		names[name] = struct{}{}
	}
	return slices.Sorted(maps.Keys(names)), nil
}

// Snapshot returns a copy of every stored artifact.
func (a *Artifacts) Snapshot() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return maps.Clone(a.data)
}
