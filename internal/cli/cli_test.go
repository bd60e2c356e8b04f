package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/trivium/internal/config"
	"github.com/aretw0/trivium/internal/logging"
	"github.com/aretw0/trivium/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agentsYAML = `agents:
  - name: claude
    command: claude
  - name: codex
    command: codex
  - name: gemini
    command: gemini
`

func workspace(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agents.yaml"), []byte(agentsYAML), 0o644))
	cfg, err := config.Load(filepath.Join(dir, config.DefaultFile))
	require.NoError(t, err)
	return cfg
}

func TestBuildEngine_FileBackend(t *testing.T) {
	cfg := workspace(t)
	cfg.Metrics.Enabled = true

	stack, err := BuildEngine(cfg, logging.NewNop())
	require.NoError(t, err)
	defer stack.Close()

	roles := stack.Engine.Roles()
	assert.Equal(t, "claude", roles.Primary)
	assert.Equal(t, []string{"codex", "gemini"}, roles.Voters)
	assert.NotNil(t, stack.Metrics)

	status, err := stack.Engine.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.Workflow.MaxRounds, status.MaxRounds)
	assert.False(t, status.InitCompleted)
}

func TestBuildEngine_ConfiguredRoles(t *testing.T) {
	cfg := workspace(t)
	cfg.State.Backend = config.BackendMemory
	cfg.Roles.Primary = "gemini"
	cfg.Roles.Drafters = []string{"gemini", "codex"}
	cfg.Roles.Synthesizer = "gemini"
	cfg.Roles.Reviser = "gemini"
	cfg.Roles.Polisher = "gemini"
	cfg.Roles.Reviewers = []workflow.Reviewer{{Agent: "codex", Dimension: workflow.DimensionCodeConsistency}}
	cfg.Roles.Validators = []string{"codex"}
	cfg.Roles.Voters = []string{"codex"}

	stack, err := BuildEngine(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "gemini", stack.Engine.Roles().Primary)
	assert.Nil(t, stack.Metrics)
}

func TestBuildEngine_RedisBackendWithLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := workspace(t)
	cfg.State.Backend = config.BackendRedis
	cfg.State.RedisAddr = mr.Addr()
	cfg.State.RedisPrefix = "test:"
	cfg.State.LockEnabled = true

	stack, err := BuildEngine(cfg, logging.NewNop())
	require.NoError(t, err)
	defer stack.Close()

	ctx := context.Background()
	abandoned, err := stack.Engine.Reset(ctx)
	require.NoError(t, err)
	assert.Nil(t, abandoned)

	// The lock is released after the update.
	assert.False(t, mr.Exists("test:lock:workflow"))
}

func TestBuildEngine_NoAgents(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), config.DefaultFile))
	require.NoError(t, err)

	_, err = BuildEngine(cfg, logging.NewNop())
	assert.ErrorContains(t, err, "no agents configured")
}

func TestServe(t *testing.T) {
	cfg := workspace(t)
	cfg.Metrics.Enabled = true
	stack, err := BuildEngine(cfg, logging.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", stack.HTTPHandler(logging.NewNop()), logging.NewNop(), ready)
	}()

	var addr string
	select {
	case addr = <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/status")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"max_rounds":3`)

	resp, err = http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * ShutdownTimeout):
		t.Fatal("server did not stop")
	}
}
