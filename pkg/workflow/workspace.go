package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/ports"
)

// Workspace addresses the artifacts of one batch and answers, per step,
// whether that step already ran. Presence of an artifact is the checkpoint.
type Workspace struct {
	store ports.ArtifactStore
	dir   string
}

// NewWorkspace returns the workspace for a batch, rooted at drafts/<batchID>.
func NewWorkspace(store ports.ArtifactStore, batchID string) *Workspace {
	return &Workspace{store: store, dir: path.Join("drafts", batchID)}
}

// Dir returns the batch directory relative to the artifact root.
func (w *Workspace) Dir() string { return w.dir }

func (w *Workspace) DraftPath(agent string) string { return path.Join(w.dir, "draft_"+agent+".md") }
func (w *Workspace) MergedPath() string            { return path.Join(w.dir, "merged_draft.md") }
func (w *Workspace) NotesPath() string             { return path.Join(w.dir, "synthesis_notes.md") }

func (w *Workspace) RoundDir(round int) string {
	return path.Join(w.dir, fmt.Sprintf("round_%d", round))
}

func (w *Workspace) ReviewPath(round int, key string) string {
	return path.Join(w.RoundDir(round), "review_"+key+".json")
}

func (w *Workspace) IssuesPath(round int) string       { return path.Join(w.RoundDir(round), "issues.json") }
func (w *Workspace) IssuesReportPath(round int) string { return path.Join(w.RoundDir(round), "issues.md") }

func (w *Workspace) ValidationPath(round int, agent string) string {
	return path.Join(w.RoundDir(round), "validation_"+agent+".json")
}

func (w *Workspace) TallyPath(round int) string { return path.Join(w.RoundDir(round), "tally.json") }

func (w *Workspace) RevisedContentPath(round int) string {
	return path.Join(w.RoundDir(round), "revised_content.md")
}

func (w *Workspace) RevisedDraftPath(round int) string {
	return path.Join(w.RoundDir(round), "revised_draft.md")
}

func (w *Workspace) RevisionLogPath(round int) string {
	return path.Join(w.RoundDir(round), "revision_log.md")
}

func (w *Workspace) VotedDraftPath(round int) string {
	return path.Join(w.RoundDir(round), "voted_draft.md")
}

func (w *Workspace) VerdictPath(round int, agent string) string {
	return path.Join(w.RoundDir(round), "verdict_"+agent+".json")
}

// DraftsDone reports whether every drafter has a persisted draft.
func (w *Workspace) DraftsDone(ctx context.Context, drafters []string) (bool, error) {
	return w.all(ctx, mapPaths(drafters, w.DraftPath))
}

// SynthesisDone reports whether the merged draft exists.
func (w *Workspace) SynthesisDone(ctx context.Context) (bool, error) {
	return w.store.Exists(ctx, w.MergedPath())
}

// ReviewDone reports whether every reviewer of the round has a persisted review.
func (w *Workspace) ReviewDone(ctx context.Context, round int, reviewers []Reviewer) (bool, error) {
	paths := make([]string, len(reviewers))
	for i, r := range reviewers {
		paths[i] = w.ReviewPath(round, r.Key())
	}
	return w.all(ctx, paths)
}

// ValidationDone reports whether every validator of the round has a persisted validation.
func (w *Workspace) ValidationDone(ctx context.Context, round int, validators []string) (bool, error) {
	return w.all(ctx, mapPaths(validators, func(a string) string { return w.ValidationPath(round, a) }))
}

// RevisionDone reports whether the round's polished draft exists.
func (w *Workspace) RevisionDone(ctx context.Context, round int) (bool, error) {
	return w.store.Exists(ctx, w.RevisedDraftPath(round))
}

// VerdictsDone reports whether every voter of the round has a persisted verdict.
func (w *Workspace) VerdictsDone(ctx context.Context, round int, voters []string) (bool, error) {
	return w.all(ctx, mapPaths(voters, func(a string) string { return w.VerdictPath(round, a) }))
}

func (w *Workspace) all(ctx context.Context, paths []string) (bool, error) {
	if len(paths) == 0 {
		return false, nil
	}
	for _, p := range paths {
		ok, err := w.store.Exists(ctx, p)
		if err != nil {
			return false, fmt.Errorf("failed to check artifact %s: %w", p, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// ReadText returns an artifact, or "" when it does not exist.
func (w *Workspace) ReadText(ctx context.Context, p string) (string, error) {
	s, err := w.store.Read(ctx, p)
	if errors.Is(err, domain.ErrArtifactNotFound) {
		return "", nil
	}
	return s, err
}

// WriteText persists a text artifact.
func (w *Workspace) WriteText(ctx context.Context, p, content string) error {
	if err := w.store.Write(ctx, p, content); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", p, err)
	}
	return nil
}

// WriteJSON persists v as indented JSON.
func (w *Workspace) WriteJSON(ctx context.Context, p string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact %s: %w", p, err)
	}
	return w.WriteText(ctx, p, string(data)+"\n")
}

func mapPaths(names []string, fn func(string) string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fn(n)
	}
	return out
}
