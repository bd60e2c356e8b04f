package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/trivium/pkg/domain"
)

// Artifacts implements ports.ArtifactStore on a workspace directory.
type Artifacts struct {
	Root string
}

// NewArtifacts creates an artifact store rooted at root.
func NewArtifacts(root string) *Artifacts {
	return &Artifacts{Root: root}
}

func (a *Artifacts) resolve(p string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(p))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact path escapes workspace: %s", p)
	}
	return filepath.Join(a.Root, rel), nil
}

// Exists reports whether the artifact file is present.
func (a *Artifacts) Exists(ctx context.Context, p string) (bool, error) {
	full, err := a.resolve(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return !info.IsDir(), nil
}

// Read returns the artifact content.
func (a *Artifacts) Read(ctx context.Context, p string) (string, error) {
	full, err := a.resolve(p)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.ErrArtifactNotFound
		}
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	return string(data), nil
}

// Write replaces the artifact atomically, so a crash never leaves a half-written
// file that a later run would mistake for a completed step.
func (a *Artifacts) Write(ctx context.Context, p string, content string) error {
	full, err := a.resolve(p)
	if err != nil {
		return err
	}
	return writeAtomic(full, []byte(content))
}

// List returns the sorted entries directly under dir, skipping temp files.
func (a *Artifacts) List(ctx context.Context, dir string) ([]string, error) {
	full, err := a.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "tmp-") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
