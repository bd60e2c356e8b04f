package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/trivium/internal/logging"
	"github.com/aretw0/trivium/internal/prompts"
	"github.com/aretw0/trivium/pkg/adapters/memory"
	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/gateway"
	"github.com/aretw0/trivium/pkg/ports"
)

// Reference document names read through the DocumentSource.
const (
	FlowDocument = "flow_document"
	StyleGuide   = "write_paper_skill"
)

// Templates resolves prompt templates by name.
type Templates interface {
	Template(name string) (string, error)
}

// Orchestrator runs batches. It processes one batch at a time and is not safe
// for concurrent Run calls on the same state; callers serialize through a session guard.
type Orchestrator struct {
	dispatcher *gateway.Dispatcher
	artifacts  ports.ArtifactStore
	output     ports.OutputDocument
	docs       ports.DocumentSource
	templates  Templates
	store      ports.StateStore
	roles      Roles
	maxRounds  int
	policy     domain.ConsensusPolicy
	threshold  int
	workDir    string
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithArtifacts sets the store holding batch workspaces.
func WithArtifacts(s ports.ArtifactStore) Option {
	return func(o *Orchestrator) { o.artifacts = s }
}

// WithOutput sets the cumulative output document.
func WithOutput(d ports.OutputDocument) Option {
	return func(o *Orchestrator) { o.output = d }
}

// WithDocuments sets the source of reference documents (flow document, style guide).
// Defaults to the foundation directory of the artifact store.
func WithDocuments(d ports.DocumentSource) Option {
	return func(o *Orchestrator) { o.docs = d }
}

// WithTemplates sets the prompt template source.
func WithTemplates(t Templates) Option {
	return func(o *Orchestrator) { o.templates = t }
}

// WithStateStore sets where the WorkflowState is saved after every transition.
func WithStateStore(s ports.StateStore) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithMaxRounds bounds the round loop (default 3).
func WithMaxRounds(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

// WithPolicy sets the consensus policy (default strict).
func WithPolicy(p domain.ConsensusPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithAcceptThreshold sets how many validator accepts retain an issue (default 2).
func WithAcceptThreshold(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.threshold = n
		}
	}
}

// WithWorkDir sets the working directory handed to collaborators.
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) { o.workDir = dir }
}

// WithLifecycleHooks registers step and round observability hooks.
// Agent hooks belong to the gateway.Dispatcher.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) { o.hooks = hooks }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates an Orchestrator. Stores default to in-memory implementations and
// templates to the built-in library.
func New(dispatcher *gateway.Dispatcher, roles Roles, opts ...Option) (*Orchestrator, error) {
	if dispatcher == nil {
		return nil, errors.New("workflow: dispatcher is required")
	}
	if err := roles.Validate(); err != nil {
		return nil, fmt.Errorf("workflow: invalid roles: %w", err)
	}

	o := &Orchestrator{
		dispatcher: dispatcher,
		roles:      roles,
		maxRounds:  domain.DefaultMaxRounds,
		policy:     domain.PolicyStrict,
		threshold:  domain.DefaultAcceptThreshold,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if n := len(o.roles.Validators); o.threshold > n {
		o.logger.Warn("Accept threshold exceeds the number of validators, lowering it",
			"threshold", o.threshold, "validators", n)
		o.threshold = n
	}

	if o.artifacts == nil {
		o.artifacts = memory.NewArtifacts()
	}
	if o.output == nil {
		o.output = memory.NewOutput()
	}
	if o.docs == nil {
		o.docs = FoundationDocuments(o.artifacts)
	}
	if o.templates == nil {
		o.templates = prompts.NewLibrary("")
	}
	if o.store == nil {
		o.store = memory.NewStore()
	}
	return o, nil
}

// Roles returns the configured role assignment.
func (o *Orchestrator) Roles() Roles { return o.roles }

// MaxRounds returns the round bound.
func (o *Orchestrator) MaxRounds() int { return o.maxRounds }

// Run drives the batch described by ref to consensus or exhaustion.
//
// The given state is not mutated; the returned state reflects every transition and has
// already been saved. Exhaustion is reported through the outcome, not as an error, and
// leaves the batch as the state's CurrentBatch for manual follow-up.
func (o *Orchestrator) Run(ctx context.Context, state *domain.WorkflowState, ref domain.BatchRef) (*domain.WorkflowState, domain.BatchOutcome, error) {
	if state == nil {
		state = domain.NewWorkflowState()
	}
	st := state.Clone()
	outcome := domain.BatchOutcome{BatchID: ref.BatchID}
	logger := o.logger.With("batch_id", ref.BatchID)

	if st.IsCompleted(ref.BatchID) {
		logger.Info("Batch already completed, nothing to do")
		if st.CurrentBatch != nil && st.CurrentBatch.BatchID == ref.BatchID {
			st.CurrentBatch = nil
			if err := o.save(ctx, st); err != nil {
				return st, outcome, err
			}
		}
		outcome.Status = domain.StatusAlreadyCompleted
		return st, outcome, nil
	}

	if err := st.Begin(ref); err != nil {
		return state, outcome, err
	}
	ref = *st.CurrentBatch

	ws := NewWorkspace(o.artifacts, ref.BatchID)

	bundle, err := o.loadContext(ctx, ref)
	if err != nil {
		return st, outcome, err
	}
	if err := o.advance(ctx, st, domain.StepContextLoaded, 0); err != nil {
		return st, outcome, err
	}

	drafts, err := o.draft(ctx, ws, ref, bundle)
	if err != nil {
		return st, outcome, err
	}
	if err := o.advance(ctx, st, domain.StepDrafted, 0); err != nil {
		return st, outcome, err
	}

	merged, err := o.synthesize(ctx, ws, ref, bundle, drafts)
	if err != nil {
		return st, outcome, err
	}
	if err := o.advance(ctx, st, domain.StepSynthesized, 0); err != nil {
		return st, outcome, err
	}

	current := merged
	var last roundResult
	// Once a round is executed again, later rounds descend from its new draft and
	// none of their persisted artifacts can be reused.
	rerun := false
	for round := 1; round <= o.maxRounds; round++ {
		fresh := rerun

		done := false
		if !rerun {
			done, err = ws.VerdictsDone(ctx, round, o.roles.Voters)
			if err != nil {
				return st, outcome, err
			}
		}
		if done {
			memo, err := o.replayRound(ctx, ws, ref, round, current)
			if err != nil {
				return st, outcome, err
			}
			if memo.Decision.Passed {
				return o.complete(ctx, st, ref, round, memo.Draft)
			}
			logger.Info("Round was rejected in a previous run, executing it again", "round", round)
			fresh, rerun = true, true
		}

		last, err = o.runRound(ctx, st, ws, ref, bundle, round, current, fresh)
		if err != nil {
			return st, outcome, err
		}
		if last.Decision.Passed {
			return o.complete(ctx, st, ref, round, last.Draft)
		}
		current = last.Draft
		logger.Info("Consensus not reached",
			"round", round,
			"approvals", last.Decision.Approvals,
			"rejections", last.Decision.Rejections,
		)
	}

	if err := o.advance(ctx, st, domain.StepExhausted, o.maxRounds); err != nil {
		return st, outcome, err
	}
	logger.Warn("Max rounds exhausted, batch left for manual review",
		"rounds", o.maxRounds,
		"remaining_issues", len(last.Decision.Remaining),
	)

	outcome.Status = domain.StatusMaxRoundsExhausted
	outcome.Rounds = o.maxRounds
	outcome.FinalText = current
	outcome.Remaining = last.Decision.Remaining
	return st, outcome, nil
}

// complete appends the accepted text exactly once and closes the batch.
func (o *Orchestrator) complete(ctx context.Context, st *domain.WorkflowState, ref domain.BatchRef, round int, text string) (*domain.WorkflowState, domain.BatchOutcome, error) {
	outcome := domain.BatchOutcome{BatchID: ref.BatchID}

	appended, err := o.output.Append(ctx, ref.BatchID, text)
	if err != nil {
		return st, outcome, fmt.Errorf("failed to append %s to output document: %w", ref.BatchID, err)
	}
	if !appended {
		o.logger.Info("Batch text already present in output document", "batch_id", ref.BatchID)
	}

	o.enter(ctx, ref.BatchID, domain.StepConsensus, round)
	st.Progress(domain.StepConsensus, round)
	st.MarkCompleted(ref.BatchID)
	st.CurrentBatch = nil
	if err := o.save(ctx, st); err != nil {
		return st, outcome, err
	}
	o.leave(ctx, ref.BatchID, domain.StepConsensus, round, false)

	o.logger.Info("Consensus reached", "batch_id", ref.BatchID, "round", round)

	outcome.Status = domain.StatusConsensusReached
	outcome.Rounds = round
	outcome.FinalText = text
	outcome.Remaining = []domain.RemainingIssue{}
	return st, outcome, nil
}

// advance records a transition and persists the state.
func (o *Orchestrator) advance(ctx context.Context, st *domain.WorkflowState, step domain.Step, round int) error {
	st.Progress(step, round)
	return o.save(ctx, st)
}

func (o *Orchestrator) save(ctx context.Context, st *domain.WorkflowState) error {
	if err := o.store.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to save workflow state: %w", err)
	}
	return nil
}

func (o *Orchestrator) enter(ctx context.Context, batchID string, step domain.Step, round int) {
	if o.hooks.OnStepEnter == nil {
		return
	}
	o.hooks.OnStepEnter(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepEnter, BatchID: batchID},
		Step:      step,
		Round:     round,
	})
}

func (o *Orchestrator) leave(ctx context.Context, batchID string, step domain.Step, round int, skipped bool) {
	if o.hooks.OnStepLeave == nil {
		return
	}
	o.hooks.OnStepLeave(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepLeave, BatchID: batchID},
		Step:      step,
		Round:     round,
		Skipped:   skipped,
	})
}

func (o *Orchestrator) call(ref domain.BatchRef, agent, label, prompt string) domain.Call {
	return domain.Call{
		BatchID: ref.BatchID,
		Agent:   agent,
		Prompt:  prompt,
		WorkDir: o.workDir,
		Label:   label,
	}
}

func (o *Orchestrator) render(name string, vars map[string]string) (string, error) {
	tpl, err := o.templates.Template(name)
	if err != nil {
		return "", err
	}
	return prompts.Render(tpl, vars), nil
}
