package loam

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
)

// DocumentMetadata is the optional frontmatter of a reference document.
// Name lets a file publish itself under a different document name.
type DocumentMetadata struct {
	Name  string `json:"name" mapstructure:"name"`
	Title string `json:"title" mapstructure:"title"`
}

// Documents adapts a Loam repository to ports.DocumentSource.
// Frontmatter is stripped; only the trimmed document body is returned.
type Documents struct {
	Repo *loam.TypedRepository[DocumentMetadata]
}

// New creates a new Loam document source.
func New(repo *loam.TypedRepository[DocumentMetadata]) *Documents {
	return &Documents{Repo: repo}
}

// Open initializes a read-only Loam repository at dir.
func Open(dir string) (*Documents, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// The engine only reads reference material; ReadOnly avoids Loam's dev-mode sandbox.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[DocumentMetadata](repo)), nil
}

// Read returns the body of the document called name, or "" when none matches.
// A document matches on its frontmatter name or on its ID with the extension stripped.
func (d *Documents) Read(ctx context.Context, name string) (string, error) {
	docs, err := d.Repo.List(ctx)
	if err != nil {
		return "", fmt.Errorf("loam list failed: %w", err)
	}

	for _, doc := range docs {
		if doc.Data.Name == name {
			return strings.TrimSpace(doc.Content), nil
		}
	}
	for _, doc := range docs {
		id := trimExtension(doc.ID)
		if id == name || path.Base(id) == name {
			return strings.TrimSpace(doc.Content), nil
		}
	}
	return "", nil
}

func trimExtension(id string) string {
	id = filepath.ToSlash(id)
	return strings.TrimSuffix(id, path.Ext(id))
}
