package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/trivium/pkg/domain"
)

// Event is one lifecycle event serialized for SSE clients.
type Event struct {
	Type domain.EventType
	Data []byte
}

// StreamManager fans lifecycle events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- Event]struct{} // batch ID ("" = all) -> set of channels
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- Event]struct{}),
	}
}

// Subscribe registers a channel for batchID's events, or for every event when batchID is "".
// The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(batchID string) (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 32)
	if _, ok := sm.subscribers[batchID]; !ok {
		sm.subscribers[batchID] = make(map[chan<- Event]struct{})
	}
	sm.subscribers[batchID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[batchID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, batchID)
				}
			}
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, subs := range sm.subscribers {
		n += len(subs)
	}
	return n
}

// Broadcast delivers an event to the batch's subscribers and to the global ones.
// Slow clients lose events rather than stall the engine.
func (sm *StreamManager) Broadcast(batchID string, ev Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	keys := []string{""}
	if batchID != "" {
		keys = append(keys, batchID)
	}
	for _, key := range keys {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- ev:
			default:
				slog.Warn("SSE: client buffer full, dropping event", "batch_id", batchID, "type", ev.Type)
			}
		}
	}
}

func (sm *StreamManager) publish(batchID string, typ domain.EventType, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("SSE: event encode failed", "type", typ, "err", err)
		return
	}
	sm.Broadcast(batchID, Event{Type: typ, Data: data})
}

// Hooks returns lifecycle hooks that publish every engine event.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			sm.publish(e.BatchID, e.Type, e)
		},
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			sm.publish(e.BatchID, e.Type, e)
		},
		OnAgentCall: func(_ context.Context, e *domain.AgentEvent) {
			sm.publish(e.BatchID, e.Type, e)
		},
		OnAgentReturn: func(_ context.Context, e *domain.AgentEvent) {
			sm.publish(e.BatchID, e.Type, e)
		},
		OnRoundComplete: func(_ context.Context, e *domain.RoundEvent) {
			sm.publish(e.BatchID, e.Type, e)
		},
	}
}
