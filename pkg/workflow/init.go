package workflow

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/trivium/internal/prompts"
	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/ports"
)

// FoundationDir holds the shared understanding documents produced by Init.
const FoundationDir = "foundation"

var initFocus = []string{
	"algorithm and logic-level details.",
	"architecture and data-flow level details.",
	"error handling, persistence and concurrency details.",
}

// initPromptDir keeps init prompt files in the workspace rather than in the analysed code base.
func (o *Orchestrator) initPromptDir() string {
	return filepath.Join(o.workDir, FoundationDir, "_prompts")
}

// UnderstandingPath is the artifact holding one agent's analysis of the code base.
func UnderstandingPath(agent string) string {
	return path.Join(FoundationDir, "understanding_"+agent+".md")
}

// FlowDocumentPath is the artifact holding the merged flow document.
func FlowDocumentPath() string {
	return path.Join(FoundationDir, FlowDocument+".md")
}

// Init bootstraps the flow document every batch depends on.
// Each drafter analyses codeDir concurrently with its own focus, then the synthesizer
// merges the analyses. Both steps are skipped when their artifacts exist.
func (o *Orchestrator) Init(ctx context.Context, state *domain.WorkflowState, codeDir string) (*domain.WorkflowState, error) {
	if state == nil {
		state = domain.NewWorkflowState()
	}
	st := state.Clone()
	ws := &Workspace{store: o.artifacts, dir: FoundationDir}
	ref := domain.BatchRef{BatchID: "init"}

	done, err := ws.all(ctx, []string{FlowDocumentPath()})
	if err != nil {
		return st, err
	}
	if done {
		o.logger.Info("Flow document already present, skipping analysis")
		st.InitCompleted = true
		return st, o.save(ctx, st)
	}

	agents := o.roles.Drafters
	tasks := make([]task, len(agents))
	for i, agent := range agents {
		prompt, err := o.render(prompts.InitUnderstanding, map[string]string{
			"code_dir": codeDir,
			"focus":    initFocus[i%len(initFocus)],
		})
		if err != nil {
			return st, err
		}
		call := o.call(ref, agent, "init", prompt)
		call.WorkDir = codeDir
		call.PromptDir = o.initPromptDir()
		tasks[i] = task{path: UnderstandingPath(agent), call: call}
	}

	understandings, err := gather(ctx, o, ws, tasks, false, textCodec())
	if err != nil {
		return st, err
	}

	var sections []string
	for i, u := range understandings {
		if u != "" {
			sections = append(sections, fmt.Sprintf("## Analysis by %s\n\n%s", agents[i], u))
		}
	}
	if len(sections) == 0 {
		return st, fmt.Errorf("%w: no collaborator produced an analysis of %s", domain.ErrEmptyDraft, codeDir)
	}
	joined := strings.Join(sections, "\n\n")

	prompt, err := o.render(prompts.InitFlow, map[string]string{
		"code_dir":       codeDir,
		"understandings": joined,
	})
	if err != nil {
		return st, err
	}
	call := o.call(ref, o.roles.Synthesizer, "flow", prompt)
	call.WorkDir = codeDir
	call.PromptDir = o.initPromptDir()
	flow, err := o.invoke(ctx, call)
	if err != nil {
		return st, err
	}
	if flow == "" {
		o.logger.Warn("Flow synthesis produced no text, keeping the individual analyses")
		flow = joined
	}

	if err := ws.WriteText(ctx, FlowDocumentPath(), flow); err != nil {
		return st, err
	}
	st.InitCompleted = true
	return st, o.save(ctx, st)
}

// foundationDocs reads reference documents from the foundation directory of an artifact store.
type foundationDocs struct {
	store ports.ArtifactStore
}

// FoundationDocuments exposes the artifacts written by Init as a DocumentSource.
func FoundationDocuments(store ports.ArtifactStore) ports.DocumentSource {
	return foundationDocs{store: store}
}

func (d foundationDocs) Read(ctx context.Context, name string) (string, error) {
	s, err := d.store.Read(ctx, path.Join(FoundationDir, strings.TrimSuffix(name, ".md")+".md"))
	if errors.Is(err, domain.ErrArtifactNotFound) {
		return "", nil
	}
	return s, err
}
