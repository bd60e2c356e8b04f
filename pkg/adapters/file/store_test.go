package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/ports"
	"github.com/aretw0/trivium/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, New(filepath.Join(t.TempDir(), ".trivium", "state.json")))
}

func TestFileArtifacts_Contract(t *testing.T) {
	ports.RunArtifactStoreContract(t, NewArtifacts(t.TempDir()))
}

func TestFileOutput_Contract(t *testing.T) {
	dir := t.TempDir()
	ports.RunOutputDocumentContract(t, NewOutput(filepath.Join(dir, "paper.md"), filepath.Join(dir, ".trivium", "ledger.json")))
}

func TestFileDocuments_Contract(t *testing.T) {
	dir := t.TempDir()
	foundation := filepath.Join(dir, "foundation")
	require.NoError(t, os.MkdirAll(foundation, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(foundation, "flow_document.md"), []byte("# Flow"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("plain"), 0644))

	src := NewDocuments(foundation, dir)
	tests.DocumentSourceContractTest(t, src, map[string]string{
		"flow_document": "# Flow",
		"notes.txt":     "plain",
	})

	// A directory named like a document is not a document.
	text, err := src.Read(context.Background(), "foundation")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestFileStore_SaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "state.json"))
	ctx := context.Background()

	state := domain.NewWorkflowState()
	state.InitCompleted = true
	require.NoError(t, store.Save(ctx, state))
	require.NoError(t, store.Save(ctx, state))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files must be left behind")
	assert.Equal(t, "state.json", entries[0].Name())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestFileStore_CorruptFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0644))

	_, err := New(p).Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrStateNotFound)
}

func TestFileArtifacts_RejectsEscape(t *testing.T) {
	a := NewArtifacts(t.TempDir())
	err := a.Write(context.Background(), "../outside.md", "x")
	assert.Error(t, err)
}

func TestFileOutput_AppendsParagraphMatchingDocumentEnd(t *testing.T) {
	dir := t.TempDir()
	out := NewOutput(filepath.Join(dir, "paper.md"), filepath.Join(dir, "ledger.json"))
	ctx := context.Background()

	_, err := out.Append(ctx, "ch1_p1", "The engine retries. Results follow.")
	require.NoError(t, err)
	appended, err := out.Append(ctx, "ch1_p2", "Results follow.")
	require.NoError(t, err)
	assert.True(t, appended)

	text, err := out.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The engine retries. Results follow.\n\nResults follow.\n", text)
}

func TestFileOutput_ConfirmsPendingAppendAfterCrash(t *testing.T) {
	dir := t.TempDir()
	docPath, ledgerPath := filepath.Join(dir, "paper.md"), filepath.Join(dir, "ledger.json")
	out := NewOutput(docPath, ledgerPath)
	ctx := context.Background()

	// The document was replaced but the ledger still lists the batch as pending.
	doc := "Intro.\n\nThe cache is warmed first.\n"
	require.NoError(t, os.WriteFile(docPath, []byte(doc), 0644))
	require.NoError(t, out.saveLedger(&ledger{
		Batches: []string{"ch1_p1"},
		Pending: &pendingEntry{BatchID: "ch1_p2", DocHash: docHash(doc)},
	}))

	appended, err := out.Append(ctx, "ch1_p2", "The cache is warmed first.")
	require.NoError(t, err)
	assert.True(t, appended)

	text, err := out.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, text, "paragraph is not written twice")

	l, err := out.loadLedger()
	require.NoError(t, err)
	assert.Equal(t, []string{"ch1_p1", "ch1_p2"}, l.Batches)
	assert.Nil(t, l.Pending)
}

func TestFileOutput_DropsPendingAppendThatNeverLanded(t *testing.T) {
	dir := t.TempDir()
	docPath, ledgerPath := filepath.Join(dir, "paper.md"), filepath.Join(dir, "ledger.json")
	out := NewOutput(docPath, ledgerPath)
	ctx := context.Background()

	// The crash happened before the document was replaced.
	require.NoError(t, os.WriteFile(docPath, []byte("Intro.\n"), 0644))
	require.NoError(t, out.saveLedger(&ledger{
		Batches: []string{},
		Pending: &pendingEntry{BatchID: "ch1_p2", DocHash: docHash("Intro.\n\nLost paragraph.\n")},
	}))

	appended, err := out.Append(ctx, "ch1_p2", "Lost paragraph.")
	require.NoError(t, err)
	assert.True(t, appended)

	text, err := out.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Intro.\n\nLost paragraph.\n", text)

	ok, err := out.Contains(ctx, "ch1_p2")
	require.NoError(t, err)
	assert.True(t, ok)
}
