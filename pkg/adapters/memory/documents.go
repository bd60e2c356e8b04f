package memory

import "context"

// Documents implements ports.DocumentSource using an in-memory map.
type Documents struct {
	docs map[string]string
}

// NewDocuments creates a source from name/content pairs.
func NewDocuments(docs map[string]string) *Documents {
	copied := make(map[string]string, len(docs))
	for k, v := range docs {
		copied[k] = v
	}
	return &Documents{docs: copied}
}

// Read returns the document, or "" when absent.
func (d *Documents) Read(ctx context.Context, name string) (string, error) {
	return d.docs[name], nil
}
