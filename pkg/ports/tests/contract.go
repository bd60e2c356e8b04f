package tests

import (
	"context"
	"testing"

	"github.com/aretw0/trivium/pkg/ports"
)

// DocumentSourceContractTest is a reusable test suite that verifies if an adapter complies with ports.DocumentSource.
// setupData maps document names to the text the source is expected to return for them.
func DocumentSourceContractTest(t *testing.T, source ports.DocumentSource, setupData map[string]string) {
	t.Helper()
	ctx := context.Background()

	t.Run("Read_Success", func(t *testing.T) {
		for name, expected := range setupData {
			content, err := source.Read(ctx, name)
			if err != nil {
				t.Fatalf("unexpected error reading %s: %v", name, err)
			}
			if content != expected {
				t.Errorf("content mismatch for %s. got %q, want %q", name, content, expected)
			}
		}
	})

	t.Run("Read_Missing", func(t *testing.T) {
		content, err := source.Read(ctx, "non-existent-document")
		if err != nil {
			t.Fatalf("missing documents must not error, got %v", err)
		}
		if content != "" {
			t.Errorf("expected empty content for missing document, got %q", content)
		}
	})
}
