package trivium

import (
	"context"

	"github.com/aretw0/trivium/pkg/ports"
)

type chainDocuments []ports.DocumentSource

// ChainDocuments combines document sources. Read returns the first non-empty document,
// so earlier sources shadow later ones.
func ChainDocuments(sources ...ports.DocumentSource) ports.DocumentSource {
	return chainDocuments(sources)
}

func (c chainDocuments) Read(ctx context.Context, name string) (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		text, err := src.Read(ctx, name)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	return "", nil
}
