package trivium

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/aretw0/trivium/internal/logging"
	"github.com/aretw0/trivium/pkg/adapters/file"
	"github.com/aretw0/trivium/pkg/adapters/process"
	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/gateway"
	"github.com/aretw0/trivium/pkg/observability"
	"github.com/aretw0/trivium/pkg/ports"
	"github.com/aretw0/trivium/pkg/session"
	"github.com/aretw0/trivium/pkg/workflow"
)

// Default file layout inside a workspace.
const (
	AgentsFile = "agents.yaml"
	OutputFile = "paper.md"
	StateDir   = ".trivium"
	StateFile  = "state.json"
	LedgerFile = "paper.ledger.json"
)

// Engine is the high-level entry point of the library.
// It serializes every state-changing operation through a session.Guard, so one Engine
// (or several sharing a distributed locker) can safely be driven from many goroutines.
type Engine struct {
	workspace    string
	orchestrator *workflow.Orchestrator
	guard        *session.Guard
	artifacts    ports.ArtifactStore
	output       ports.OutputDocument
	metrics      *observability.Metrics
	logger       *slog.Logger

	// collected by options, consumed by New
	gateway      ports.Gateway
	agentsFile   string
	roles        *workflow.Roles
	store        ports.StateStore
	docs         []ports.DocumentSource
	templates    workflow.Templates
	locker       ports.DistributedLocker
	lockTTL      time.Duration
	agentTimeout time.Duration
	flowOpts     []workflow.Option
	hooks        domain.LifecycleHooks
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithGateway sets the collaborator gateway, bypassing the agents.yaml registry.
func WithGateway(gw ports.Gateway) Option {
	return func(e *Engine) { e.gateway = gw }
}

// WithAgentsFile reads the agent registry from path instead of workspace/agents.yaml.
func WithAgentsFile(path string) Option {
	return func(e *Engine) { e.agentsFile = path }
}

// WithRoles assigns collaborators to pipeline roles.
// Without it, roles are derived from the agent registry order.
func WithRoles(roles workflow.Roles) Option {
	return func(e *Engine) { e.roles = &roles }
}

// WithStateStore sets where the WorkflowState is persisted.
func WithStateStore(s ports.StateStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithArtifacts sets the store holding batch workspaces.
func WithArtifacts(s ports.ArtifactStore) Option {
	return func(e *Engine) { e.artifacts = s }
}

// WithOutput sets the cumulative output document.
func WithOutput(d ports.OutputDocument) Option {
	return func(e *Engine) { e.output = d }
}

// WithDocuments adds reference document sources. They are consulted in order,
// after the workspace foundation directory.
func WithDocuments(sources ...ports.DocumentSource) Option {
	return func(e *Engine) { e.docs = append(e.docs, sources...) }
}

// WithTemplates overrides the prompt template source.
func WithTemplates(t workflow.Templates) Option {
	return func(e *Engine) { e.templates = t }
}

// WithLocker enables distributed locking of the workflow state.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithLockTTL sets the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.lockTTL = ttl }
}

// WithAgentTimeout bounds every collaborator call.
func WithAgentTimeout(d time.Duration) Option {
	return func(e *Engine) { e.agentTimeout = d }
}

// WithMaxRounds bounds the debate loop of a batch.
func WithMaxRounds(n int) Option {
	return func(e *Engine) { e.flowOpts = append(e.flowOpts, workflow.WithMaxRounds(n)) }
}

// WithPolicy sets how final verdicts are combined.
func WithPolicy(p domain.ConsensusPolicy) Option {
	return func(e *Engine) { e.flowOpts = append(e.flowOpts, workflow.WithPolicy(p)) }
}

// WithAcceptThreshold sets how many validator accepts an issue needs.
func WithAcceptThreshold(n int) Option {
	return func(e *Engine) { e.flowOpts = append(e.flowOpts, workflow.WithAcceptThreshold(n)) }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = e.hooks.Merge(hooks) }
}

// WithMetrics records Prometheus metrics for every step, call, round and batch.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New initializes an Engine rooted at workspace.
// Stores not provided through options are file-backed under workspace, and the
// gateway defaults to the process runner configured by workspace/agents.yaml.
// workspace may be empty only when the gateway, the roles and every store are injected.
func New(workspace string, opts ...Option) (*Engine, error) {
	e := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	if workspace != "" {
		abs, err := filepath.Abs(workspace)
		if err != nil {
			return nil, fmt.Errorf("invalid workspace path: %w", err)
		}
		e.workspace = abs
	}
	needsDisk := e.gateway == nil || e.roles == nil || e.store == nil || e.artifacts == nil || e.output == nil
	if needsDisk && e.workspace == "" {
		return nil, errors.New("workspace is required unless the gateway, roles and every store are provided")
	}

	roles, err := e.resolveGateway()
	if err != nil {
		return nil, err
	}

	if e.store == nil {
		e.store = file.New(filepath.Join(e.workspace, StateDir, StateFile))
	}
	if e.artifacts == nil {
		e.artifacts = file.NewArtifacts(e.workspace)
	}
	if e.output == nil {
		e.output = file.NewOutput(
			filepath.Join(e.workspace, OutputFile),
			filepath.Join(e.workspace, StateDir, LedgerFile),
		)
	}

	hooks := e.hooks
	if e.metrics != nil {
		hooks = hooks.Merge(e.metrics.Hooks())
	}

	dispatcher := gateway.New(e.gateway,
		gateway.WithTimeout(e.agentTimeout),
		gateway.WithLifecycleHooks(hooks),
		gateway.WithLogger(e.logger),
	)

	flowOpts := []workflow.Option{
		workflow.WithArtifacts(e.artifacts),
		workflow.WithOutput(e.output),
		workflow.WithDocuments(ChainDocuments(append([]ports.DocumentSource{workflow.FoundationDocuments(e.artifacts)}, e.docs...)...)),
		workflow.WithStateStore(e.store),
		workflow.WithWorkDir(e.workspace),
		workflow.WithLifecycleHooks(hooks),
		workflow.WithLogger(e.logger),
	}
	if e.templates != nil {
		flowOpts = append(flowOpts, workflow.WithTemplates(e.templates))
	}
	e.orchestrator, err = workflow.New(dispatcher, roles, append(flowOpts, e.flowOpts...)...)
	if err != nil {
		return nil, err
	}

	guardOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		guardOpts = append(guardOpts, session.WithLocker(e.locker), session.WithLockTTL(e.lockTTL))
	}
	e.guard = session.NewGuard(e.store, guardOpts...)
	return e, nil
}

// resolveGateway loads the agent registry when the gateway or the roles were not
// injected, and derives the default roles from its order.
func (e *Engine) resolveGateway() (workflow.Roles, error) {
	if e.gateway != nil && e.roles != nil {
		return *e.roles, nil
	}

	if e.agentsFile == "" {
		e.agentsFile = filepath.Join(e.workspace, AgentsFile)
	}
	agents, err := process.LoadAgentList(e.agentsFile)
	if err != nil {
		return workflow.Roles{}, err
	}
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Name)
	}
	if e.gateway == nil {
		runner := process.NewRunner(process.WithBaseDir(e.workspace))
		for _, a := range agents {
			runner.Register(a)
		}
		e.gateway = runner
	}

	if e.roles != nil {
		return *e.roles, nil
	}
	if len(names) == 0 {
		return workflow.Roles{}, fmt.Errorf("no agents configured: add them to %s or pass WithRoles", AgentsFile)
	}
	return workflow.DefaultRoles(names), nil
}

// Workspace returns the absolute workspace path ("" for fully injected engines).
func (e *Engine) Workspace() string { return e.workspace }

// Roles returns the active role assignment.
func (e *Engine) Roles() workflow.Roles { return e.orchestrator.Roles() }

// Init analyses the code base at codeDir and writes the flow document.
// It is a no-op when the flow document already exists.
func (e *Engine) Init(ctx context.Context, codeDir string) error {
	return e.guard.Update(ctx, func(ctx context.Context, st *domain.WorkflowState) (*domain.WorkflowState, error) {
		return e.orchestrator.Init(ctx, st, codeDir)
	})
}

// Write runs the batch for chapter/paragraph until consensus or exhaustion.
// Writing a batch that is already pending continues it; its original instruction wins.
func (e *Engine) Write(ctx context.Context, chapter, paragraph int, instruction string) (domain.BatchOutcome, error) {
	if chapter < 1 || paragraph < 1 {
		return domain.BatchOutcome{}, fmt.Errorf("chapter and paragraph must be positive, got %d and %d", chapter, paragraph)
	}
	ref := domain.NewBatchRef(chapter, paragraph, instruction)
	return e.run(ctx, func(*domain.WorkflowState) (domain.BatchRef, error) { return ref, nil })
}

// Resume continues the pending batch recorded in the workflow state.
// Returns domain.ErrNoPendingBatch when there is nothing to resume.
func (e *Engine) Resume(ctx context.Context) (domain.BatchOutcome, error) {
	return e.run(ctx, func(st *domain.WorkflowState) (domain.BatchRef, error) {
		if st.CurrentBatch == nil {
			return domain.BatchRef{}, domain.ErrNoPendingBatch
		}
		return *st.CurrentBatch, nil
	})
}

func (e *Engine) run(ctx context.Context, pick func(*domain.WorkflowState) (domain.BatchRef, error)) (domain.BatchOutcome, error) {
	var outcome domain.BatchOutcome
	err := e.guard.Update(ctx, func(ctx context.Context, st *domain.WorkflowState) (*domain.WorkflowState, error) {
		ref, err := pick(st)
		if err != nil {
			return nil, err
		}
		e.logger.Info("Running batch", "batch_id", ref.BatchID, "instruction", ref.Instruction)

		next, out, err := e.orchestrator.Run(ctx, st, ref)
		outcome = out
		if errors.Is(err, domain.ErrReferenceMissing) && !st.InitCompleted {
			err = fmt.Errorf("%w: %w", domain.ErrInitRequired, err)
		}
		return next, err
	})
	if err != nil {
		return outcome, err
	}
	if e.metrics != nil {
		e.metrics.RecordOutcome(outcome)
	}
	return outcome, nil
}

// Status summarizes the persisted workflow state.
type Status struct {
	Workspace        string           `json:"workspace,omitempty"`
	InitCompleted    bool             `json:"init_completed"`
	CurrentBatch     *domain.BatchRef `json:"current_batch,omitempty"`
	CompletedBatches []string         `json:"completed_batches"`
	UpdatedAt        time.Time        `json:"updated_at,omitzero"`
	Agents           []string         `json:"agents"`
	MaxRounds        int              `json:"max_rounds"`
}

// Status reads the workflow state without taking the lock.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	st, err := e.guard.Load(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Workspace:        e.workspace,
		InitCompleted:    st.InitCompleted,
		CurrentBatch:     st.CurrentBatch,
		CompletedBatches: st.CompletedBatches,
		UpdatedAt:        st.UpdatedAt,
		Agents:           e.orchestrator.Roles().Agents(),
		MaxRounds:        e.orchestrator.MaxRounds(),
	}, nil
}

// Reset abandons the pending batch and returns it (nil when none was pending).
// Its artifacts are kept; writing the same batch again reuses them.
func (e *Engine) Reset(ctx context.Context) (*domain.BatchRef, error) {
	var abandoned *domain.BatchRef
	err := e.guard.Update(ctx, func(ctx context.Context, st *domain.WorkflowState) (*domain.WorkflowState, error) {
		if st.CurrentBatch == nil {
			return nil, nil
		}
		abandoned = st.CurrentBatch
		st.CurrentBatch = nil
		e.logger.Warn("Pending batch abandoned", "batch_id", abandoned.BatchID, "step", abandoned.Step)
		return st, nil
	})
	return abandoned, err
}

// Output returns the cumulative output document.
func (e *Engine) Output(ctx context.Context) (string, error) {
	return e.output.Read(ctx)
}

// BatchArtifacts lists every artifact of a batch workspace, round directories included,
// as paths relative to the batch directory.
func (e *Engine) BatchArtifacts(ctx context.Context, batchID string) ([]string, error) {
	ws := workflow.NewWorkspace(e.artifacts, batchID)
	return e.walk(ctx, ws.Dir(), "")
}

func (e *Engine) walk(ctx context.Context, root, rel string) ([]string, error) {
	names, err := e.artifacts.List(ctx, path.Join(root, rel))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range names {
		p := path.Join(rel, name)
		if path.Ext(name) != "" {
			out = append(out, p)
			continue
		}
		children, err := e.walk(ctx, root, p)
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
	}
	return out, nil
}

// Artifact reads one artifact of a batch workspace.
func (e *Engine) Artifact(ctx context.Context, batchID, name string) (string, error) {
	ws := workflow.NewWorkspace(e.artifacts, batchID)
	clean := path.Clean("/" + name)[1:]
	if clean == "" {
		return "", fmt.Errorf("%w: empty name", domain.ErrArtifactNotFound)
	}
	return e.artifacts.Read(ctx, path.Join(ws.Dir(), clean))
}

// Metrics returns the metrics collector, or nil when metrics are disabled.
func (e *Engine) Metrics() *observability.Metrics { return e.metrics }
