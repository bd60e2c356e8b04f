package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/trivium/pkg/domain"
)

// Responder produces the scripted answer for a call.
type Responder func(call domain.Call) domain.Result

// ScriptedGateway implements ports.Gateway with deterministic, per-agent responders.
// Every call is recorded so tests can assert on call counts.
type ScriptedGateway struct {
	mu        sync.Mutex
	responder map[string]Responder
	calls     []domain.Call
}

// NewScriptedGateway creates a gateway with no responders; unknown agents fail.
func NewScriptedGateway() *ScriptedGateway {
	return &ScriptedGateway{responder: make(map[string]Responder)}
}

// On registers the responder for an agent.
func (g *ScriptedGateway) On(agent string, fn Responder) *ScriptedGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responder[agent] = fn
	return g
}

// Invoke records the call and answers it.
func (g *ScriptedGateway) Invoke(ctx context.Context, call domain.Call) domain.Result {
	g.mu.Lock()
	g.calls = append(g.calls, call)
	fn, ok := g.responder[call.Agent]
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.Failed(call.Agent, err.Error())
	}
	if !ok {
		return domain.Failed(call.Agent, fmt.Sprintf("%v: %s", domain.ErrUnknownAgent, call.Agent))
	}
	res := fn(call)
	res.Agent = call.Agent
	return res
}

// Calls returns the recorded calls in arrival order.
func (g *ScriptedGateway) Calls() []domain.Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.calls)
}

// CallCount returns the number of recorded calls, optionally filtered by label.
func (g *ScriptedGateway) CallCount(labels ...string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(labels) == 0 {
		return len(g.calls)
	}
	n := 0
	for _, c := range g.calls {
		if slices.Contains(labels, c.Label) {
			n++
		}
	}
	return n
}

// Reply is a convenience Responder returning a fixed successful text.
func Reply(text string) Responder {
	return func(domain.Call) domain.Result {
		return domain.Result{Success: true, Text: text}
	}
}
