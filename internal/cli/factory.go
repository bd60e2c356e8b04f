package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/trivium"
	"github.com/aretw0/trivium/internal/config"
	"github.com/aretw0/trivium/internal/prompts"
	httpAdapter "github.com/aretw0/trivium/pkg/adapters/http"
	"github.com/aretw0/trivium/pkg/adapters/loam"
	"github.com/aretw0/trivium/pkg/adapters/memory"
	"github.com/aretw0/trivium/pkg/adapters/process"
	"github.com/aretw0/trivium/pkg/adapters/redis"
	"github.com/aretw0/trivium/pkg/observability"
)

// Stack is an Engine together with the resources wired around it.
type Stack struct {
	Engine  *trivium.Engine
	Metrics *observability.Metrics
	Streams *httpAdapter.StreamManager
	closers []func() error
}

// Close releases backend connections.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// BuildEngine wires an Engine from configuration: the agent registry and its process
// runner, the state backend and lock, reference documents, templates and metrics.
func BuildEngine(cfg *config.Config, logger *slog.Logger, extra ...trivium.Option) (*Stack, error) {
	agentsFile := cfg.Resolve(cfg.Paths.AgentsFile)
	agents, err := process.LoadAgentList(agentsFile)
	if err != nil {
		return nil, err
	}
	runner := process.NewRunner(process.WithBaseDir(cfg.Paths.Workspace))
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		runner.Register(a)
		names = append(names, a.Name)
	}
	if len(names) == 0 && len(cfg.Roles.Agents()) == 0 {
		return nil, fmt.Errorf("no agents configured in %s", agentsFile)
	}

	stack := &Stack{Streams: httpAdapter.NewStreamManager()}
	opts := []trivium.Option{
		trivium.WithGateway(runner),
		trivium.WithRoles(cfg.ResolveRoles(names)),
		trivium.WithLogger(logger),
		trivium.WithMaxRounds(cfg.Workflow.MaxRounds),
		trivium.WithPolicy(cfg.Policy()),
		trivium.WithAcceptThreshold(cfg.Workflow.AcceptThreshold),
		trivium.WithAgentTimeout(cfg.Workflow.AgentTimeout.Duration()),
		trivium.WithTemplates(prompts.NewLibrary(cfg.Resolve(cfg.Paths.Templates))),
		trivium.WithLifecycleHooks(observability.LogHooks(logger)),
		trivium.WithLifecycleHooks(stack.Streams.Hooks()),
	}

	switch cfg.State.Backend {
	case config.BackendMemory:
		opts = append(opts, trivium.WithStateStore(memory.NewStore()))
	case config.BackendRedis:
		var storeOpts []redis.Option
		if cfg.State.RedisPrefix != "" {
			storeOpts = append(storeOpts, redis.WithPrefix(cfg.State.RedisPrefix))
		}
		store := redis.New(cfg.State.RedisAddr, cfg.State.RedisPassword, cfg.State.RedisDB, storeOpts...)
		stack.closers = append(stack.closers, store.Close)
		opts = append(opts, trivium.WithStateStore(store))
		if cfg.State.LockEnabled {
			opts = append(opts,
				trivium.WithLocker(redis.NewLocker(store.Client(), store.Prefix())),
				trivium.WithLockTTL(cfg.State.LockTTL.Duration()),
			)
		}
	}
	if cfg.State.LockEnabled && cfg.State.Backend != config.BackendRedis {
		logger.Warn("Distributed lock requires the redis backend, using the in-process lock only",
			"backend", cfg.State.Backend)
	}

	if cfg.Paths.References != "" {
		docs, err := loam.Open(cfg.Resolve(cfg.Paths.References))
		if err != nil {
			_ = stack.Close()
			return nil, fmt.Errorf("failed to open reference repository: %w", err)
		}
		opts = append(opts, trivium.WithDocuments(docs))
	}

	if cfg.Metrics.Enabled {
		stack.Metrics = observability.NewMetrics()
		opts = append(opts, trivium.WithMetrics(stack.Metrics))
	}

	eng, err := trivium.New(cfg.Paths.Workspace, append(opts, extra...)...)
	if err != nil {
		_ = stack.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	stack.Engine = eng
	return stack, nil
}

// HTTPHandler returns the read-only status API for the stack, with live events and,
// when enabled, /metrics.
func (s *Stack) HTTPHandler(logger *slog.Logger) http.Handler {
	opts := []httpAdapter.HandlerOption{
		httpAdapter.WithStreams(s.Streams),
		httpAdapter.WithLogger(logger),
	}
	if s.Metrics != nil {
		opts = append(opts, httpAdapter.WithMetricsHandler(s.Metrics.Handler()))
	}
	return httpAdapter.NewHandler(s.Engine, opts...)
}
