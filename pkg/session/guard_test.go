package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/trivium/pkg/adapters/memory"
	"github.com/aretw0/trivium/pkg/adapters/redis"
	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke lost updates if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s *SlowStore) Save(ctx context.Context, state *domain.WorkflowState) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, state)
}

func (s *SlowStore) Load(ctx context.Context) (*domain.WorkflowState, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx)
}

func markAll(t *testing.T, guards []*session.Guard, n int) {
	t.Helper()
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := guards[i%len(guards)]
			err := g.Update(context.Background(), func(_ context.Context, st *domain.WorkflowState) (*domain.WorkflowState, error) {
				st.MarkCompleted(fmt.Sprintf("ch1_p%d", i))
				return st, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestGuard_SerializesUpdates(t *testing.T) {
	store := &SlowStore{Store: memory.NewStore()}
	guard := session.NewGuard(store)

	markAll(t, []*session.Guard{guard}, 10)

	st, err := guard.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, st.CompletedBatches, 10, "no update may be lost")
}

func TestGuard_DistributedLockAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	stateStore := redis.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = stateStore.Close() })

	store := &SlowStore{Store: memory.NewStore()}
	// Two guards share the state but not their in-process mutexes, as two processes would.
	a := session.NewGuard(store, session.WithLocker(redis.NewLocker(stateStore.Client(), stateStore.Prefix())))
	b := session.NewGuard(store, session.WithLocker(redis.NewLocker(stateStore.Client(), stateStore.Prefix())))

	markAll(t, []*session.Guard{a, b}, 6)

	st, err := a.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, st.CompletedBatches, 6)
	assert.False(t, mr.Exists(stateStore.Prefix()+"lock:"+session.WorkflowKey), "lock released")
}

func TestGuard_LoadDefaultsOnFirstRun(t *testing.T) {
	st, err := session.NewGuard(memory.NewStore()).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, st.InitCompleted)
	assert.Empty(t, st.CompletedBatches)
}

func TestGuard_UpdateSavesPartialStateOnError(t *testing.T) {
	store := memory.NewStore()
	guard := session.NewGuard(store)
	boom := errors.New("boom")

	err := guard.Update(context.Background(), func(_ context.Context, st *domain.WorkflowState) (*domain.WorkflowState, error) {
		st.InitCompleted = true
		return st, boom
	})
	require.ErrorIs(t, err, boom)

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, st.InitCompleted)
}

func TestGuard_UpdateNilSkipsSave(t *testing.T) {
	store := memory.NewStore()
	err := session.NewGuard(store).Update(context.Background(), func(context.Context, *domain.WorkflowState) (*domain.WorkflowState, error) {
		return nil, nil
	})
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}
