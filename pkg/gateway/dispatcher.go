// Package gateway wraps a ports.Gateway with the engine's calling discipline:
// default timeouts, lifecycle hooks, failure degradation and bounded fan-out.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/trivium/internal/logging"
	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/ports"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a collaborator call when neither the call nor the dispatcher sets one.
const DefaultTimeout = 10 * time.Minute

// Dispatcher invokes collaborators through a Gateway.
type Dispatcher struct {
	gateway ports.Gateway
	timeout time.Duration
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithLifecycleHooks registers observability hooks for agent calls.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(disp *Dispatcher) {
		disp.hooks = hooks
	}
}

// WithLogger sets the logger used for degraded calls.
func WithLogger(logger *slog.Logger) Option {
	return func(disp *Dispatcher) {
		disp.logger = logger
	}
}

// New creates a Dispatcher over gw.
func New(gw ports.Gateway, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		gateway: gw,
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Invoke performs one call. A failed call is logged and degraded to an empty,
// unsuccessful result; it never aborts the caller.
func (d *Dispatcher) Invoke(ctx context.Context, call domain.Call) domain.Result {
	if call.Timeout <= 0 {
		call.Timeout = d.timeout
	}

	if d.hooks.OnAgentCall != nil {
		d.hooks.OnAgentCall(ctx, &domain.AgentEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventAgentCall, BatchID: call.BatchID},
			Agent:     call.Agent,
			Label:     call.Label,
		})
	}

	start := time.Now()
	res := d.gateway.Invoke(ctx, call)
	res.Agent = call.Agent
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}

	if !res.Success {
		d.logger.Warn("Agent call failed, continuing without its contribution",
			"batch_id", call.BatchID,
			"agent", call.Agent,
			"label", call.Label,
			"err", res.Error,
		)
		res.Text = ""
	}

	if d.hooks.OnAgentReturn != nil {
		d.hooks.OnAgentReturn(ctx, &domain.AgentEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventAgentReturn, BatchID: call.BatchID},
			Agent:     call.Agent,
			Label:     call.Label,
			Duration:  res.Duration,
			IsError:   !res.Success,
			Error:     res.Error,
		})
	}
	return res
}

// Dispatch runs independent calls concurrently, one worker per call, and waits for all of them.
// Results are returned in call order.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []domain.Call) []domain.Result {
	results := make([]domain.Result, len(calls))
	if len(calls) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(len(calls))
	for i, call := range calls {
		g.Go(func() error {
			results[i] = d.Invoke(ctx, call)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	return results
}
