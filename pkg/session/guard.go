package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/trivium/internal/logging"
	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/ports"
)

// WorkflowKey is the lock key protecting the WorkflowState and the output document.
const WorkflowKey = "workflow"

// DefaultLockTTL bounds how long a crashed holder can keep the distributed lock.
const DefaultLockTTL = 30 * time.Minute

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Guard orchestrates state access, ensuring a single writer.
// It uses reference counting to garbage collect unused locks.
type Guard struct {
	store ports.StateStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the Guard.
type Option func(*Guard)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(g *Guard) {
		g.locker = locker
	}
}

// WithLockTTL sets the distributed lock TTL. It should exceed the longest batch run.
func WithLockTTL(ttl time.Duration) Option {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithLogger configures a logger for the Guard.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// NewGuard creates a Guard over the given state store.
func NewGuard(store ports.StateStore, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		locks:  make(map[string]*lockEntry),
		ttl:    DefaultLockTTL,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (g *Guard) acquire(key string) *lockEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.locks[key]
	if !exists {
		entry = &lockEntry{}
		g.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (g *Guard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(g.locks, key)
	}
}

// WithLock executes fn while holding the lock for key.
func (g *Guard) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := g.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		g.release(key)
	}()

	if g.locker != nil {
		unlock, err := g.locker.Lock(ctx, key, g.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The run context may already be cancelled; release on a fresh one.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				g.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Load returns the persisted state, or a fresh default state on first run.
// It does not take the lock; use Update for read-modify-write.
func (g *Guard) Load(ctx context.Context) (*domain.WorkflowState, error) {
	state, err := g.store.Load(ctx)
	if errors.Is(err, domain.ErrStateNotFound) {
		return domain.NewWorkflowState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow state: %w", err)
	}
	return state, nil
}

// Update loads the state under the workflow lock, applies fn and saves its result.
// A nil state returned by fn skips the save.
func (g *Guard) Update(ctx context.Context, fn func(context.Context, *domain.WorkflowState) (*domain.WorkflowState, error)) error {
	return g.WithLock(ctx, WorkflowKey, func(ctx context.Context) error {
		state, err := g.Load(ctx)
		if err != nil {
			return err
		}
		next, fnErr := fn(ctx, state)
		if next != nil {
			if err := g.store.Save(ctx, next); err != nil {
				return errors.Join(fnErr, fmt.Errorf("failed to save workflow state: %w", err))
			}
		}
		return fnErr
	})
}

// Store returns the underlying state store.
func (g *Guard) Store() ports.StateStore {
	return g.store
}
