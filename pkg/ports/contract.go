package ports

import (
	"context"
	"testing"

	"github.com/aretw0/trivium/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract verifies that a StateStore implementation adheres to the interface contract.
// The store must be empty when handed over.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()

	t.Run("Load Before Save", func(t *testing.T) {
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewWorkflowState()
		state.InitCompleted = true
		require.NoError(t, state.Begin(domain.NewBatchRef(1, 2, "explain the cache")))
		state.Progress(domain.StepReviewing, 2)
		state.MarkCompleted("ch1_p1")

		require.NoError(t, store.Save(ctx, state), "Save should not return error")

		loaded, err := store.Load(ctx)
		require.NoError(t, err, "Load should not return error")
		assert.True(t, loaded.InitCompleted)
		require.NotNil(t, loaded.CurrentBatch)
		assert.Equal(t, "ch1_p2", loaded.CurrentBatch.BatchID)
		assert.Equal(t, "explain the cache", loaded.CurrentBatch.Instruction)
		assert.Equal(t, domain.StepReviewing, loaded.CurrentBatch.Step)
		assert.Equal(t, 2, loaded.CurrentBatch.Round)
		assert.Equal(t, []string{"ch1_p1"}, loaded.CompletedBatches)
	})

	t.Run("Save Replaces Whole Record", func(t *testing.T) {
		state := domain.NewWorkflowState()
		state.MarkCompleted("ch1_p1")
		state.MarkCompleted("ch1_p2")
		require.NoError(t, store.Save(ctx, state))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, loaded.CurrentBatch)
		assert.False(t, loaded.InitCompleted)
		assert.Equal(t, []string{"ch1_p1", "ch1_p2"}, loaded.CompletedBatches)
	})

	t.Run("Loaded State Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		loaded.MarkCompleted("ch9_p9")

		again, err := store.Load(ctx)
		require.NoError(t, err)
		assert.False(t, again.IsCompleted("ch9_p9"))
	})
}

// RunArtifactStoreContract verifies that an ArtifactStore implementation adheres to the interface contract.
func RunArtifactStoreContract(t *testing.T, store ArtifactStore) {
	ctx := context.Background()

	t.Run("Missing Artifact", func(t *testing.T) {
		ok, err := store.Exists(ctx, "drafts/ch1_p1/draft_codex.md")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = store.Read(ctx, "drafts/ch1_p1/draft_codex.md")
		assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	})

	t.Run("Write Read Overwrite", func(t *testing.T) {
		p := "drafts/ch1_p1/round_1/review_codex.json"
		require.NoError(t, store.Write(ctx, p, `{"issues": []}`))

		ok, err := store.Exists(ctx, p)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.Read(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, `{"issues": []}`, got)

		require.NoError(t, store.Write(ctx, p, "v2"))
		got, err = store.Read(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "v2", got)
	})

	t.Run("Empty Content Still Exists", func(t *testing.T) {
		p := "drafts/ch1_p1/draft_gemini.md"
		require.NoError(t, store.Write(ctx, p, ""))
		ok, err := store.Exists(ctx, p)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "drafts/ch2_p1/b.md", "b"))
		require.NoError(t, store.Write(ctx, "drafts/ch2_p1/a.md", "a"))
		require.NoError(t, store.Write(ctx, "drafts/ch2_p1/round_1/x.json", "{}"))

		names, err := store.List(ctx, "drafts/ch2_p1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.md", "b.md", "round_1"}, names)

		empty, err := store.List(ctx, "drafts/none")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

// RunOutputDocumentContract verifies that an OutputDocument implementation adheres to the interface contract.
// The document must be empty when handed over.
func RunOutputDocumentContract(t *testing.T, doc OutputDocument) {
	ctx := context.Background()

	text, err := doc.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, text)

	appended, err := doc.Append(ctx, "ch1_p1", "First paragraph.")
	require.NoError(t, err)
	assert.True(t, appended)

	appended, err = doc.Append(ctx, "ch1_p1", "First paragraph.")
	require.NoError(t, err)
	assert.False(t, appended, "second append of the same batch must be a no-op")

	appended, err = doc.Append(ctx, "ch1_p2", "Second paragraph.")
	require.NoError(t, err)
	assert.True(t, appended)

	text, err = doc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.\n", text)

	ok, err := doc.Contains(ctx, "ch1_p2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = doc.Contains(ctx, "ch3_p1")
	require.NoError(t, err)
	assert.False(t, ok)

	// A batch whose text matches the end of the document is still written.
	appended, err = doc.Append(ctx, "ch1_p3", "Second paragraph.")
	require.NoError(t, err)
	assert.True(t, appended)

	text, err = doc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.\n\nSecond paragraph.\n", text)
}
