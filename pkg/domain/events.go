package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter     EventType = "step_enter"
	EventStepLeave     EventType = "step_leave"
	EventAgentCall     EventType = "agent_call"
	EventAgentReturn   EventType = "agent_return"
	EventRoundComplete EventType = "round_complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	BatchID   string    `json:"batch_id"`
}

// StepEvent represents entry or exit from a pipeline step.
type StepEvent struct {
	EventBase
	Step    Step `json:"step"`
	Round   int  `json:"round,omitempty"`
	Skipped bool `json:"skipped,omitempty"`
}

// AgentEvent represents a collaborator invocation.
type AgentEvent struct {
	EventBase
	Agent    string        `json:"agent"`
	Label    string        `json:"label"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// RoundEvent is emitted once voting for a round has been evaluated.
type RoundEvent struct {
	EventBase
	Round     int  `json:"round"`
	Issues    int  `json:"issues"`
	Accepted  int  `json:"accepted"`
	Passed    bool `json:"passed"`
	Memoized  bool `json:"memoized,omitempty"`
	Approvals int  `json:"approvals"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter     func(context.Context, *StepEvent)
	OnStepLeave     func(context.Context, *StepEvent)
	OnAgentCall     func(context.Context, *AgentEvent)
	OnAgentReturn   func(context.Context, *AgentEvent)
	OnRoundComplete func(context.Context, *RoundEvent)
}

// Merge combines two hook sets; both callbacks fire when both are set.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepEnter:     chain(h.OnStepEnter, other.OnStepEnter),
		OnStepLeave:     chain(h.OnStepLeave, other.OnStepLeave),
		OnAgentCall:     chain(h.OnAgentCall, other.OnAgentCall),
		OnAgentReturn:   chain(h.OnAgentReturn, other.OnAgentReturn),
		OnRoundComplete: chain(h.OnRoundComplete, other.OnRoundComplete),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
