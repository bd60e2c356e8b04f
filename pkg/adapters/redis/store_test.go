package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/trivium/pkg/adapters/redis"
	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunStateStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_PrefixIsolatesWorkspaces(t *testing.T) {
	mr, client := newClient(t)
	ctx := context.Background()

	paperA := redis.NewFromClient(client, redis.WithPrefix("trivium:paper-a:"))
	paperB := redis.NewFromClient(client, redis.WithPrefix("trivium:paper-b:"))

	state := domain.NewWorkflowState()
	state.MarkCompleted("ch1_p1")
	require.NoError(t, paperA.Save(ctx, state))

	assert.True(t, mr.Exists("trivium:paper-a:state"))

	_, err := paperB.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrStateNotFound)

	loaded, err := paperA.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ch1_p1"}, loaded.CompletedBatches)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := newClient(t)
	require.NoError(t, mr.Set(redis.DefaultPrefix+"state", "{broken"))

	_, err := redis.NewFromClient(client).Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrStateNotFound)
}
