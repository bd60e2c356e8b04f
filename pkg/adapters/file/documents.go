package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Documents implements ports.DocumentSource over one or more directories.
// A name resolves to the first existing "<dir>/<name>" or "<dir>/<name>.md".
type Documents struct {
	Dirs []string
}

// NewDocuments creates a source searching dirs in order.
func NewDocuments(dirs ...string) *Documents {
	return &Documents{Dirs: dirs}
}

// Read returns the document text, or "" when no directory holds it.
func (d *Documents) Read(ctx context.Context, name string) (string, error) {
	for _, dir := range d.Dirs {
		for _, candidate := range []string{name, name + ".md"} {
			data, err := os.ReadFile(filepath.Join(dir, candidate))
			if err == nil {
				return string(data), nil
			}
			if !os.IsNotExist(err) && !isDirErr(filepath.Join(dir, candidate)) {
				return "", fmt.Errorf("failed to read document %s: %w", name, err)
			}
		}
	}
	return "", nil
}

func isDirErr(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
