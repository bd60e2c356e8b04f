package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

const validRoles = `roles:
  primary: claude
  drafters: [claude, codex, gemini]
  synthesizer: claude
  reviewers:
    - agent: codex
      dimension: code_consistency
  validators: [codex, gemini]
  reviser: claude
  polisher: claude
  voters: [codex, gemini]
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workflow.MaxRounds)
	assert.Equal(t, domain.PolicyStrict, cfg.Policy())
	assert.Equal(t, 10*time.Minute, cfg.Workflow.AgentTimeout.Duration())
	assert.Equal(t, 2, cfg.Workflow.AcceptThreshold)
	assert.Equal(t, BackendFile, cfg.State.Backend)
	assert.Equal(t, "agents.yaml", cfg.Paths.AgentsFile)
	assert.Equal(t, 30*time.Minute, cfg.State.LockTTL.Duration())
}

func TestLoad_File(t *testing.T) {
	p := writeConfig(t, `
workflow:
  max_rounds: 5
  consensus_mode: majority
  agent_timeout: 90s
  accept_threshold: 1
roles:
  primary: claude
  drafters: [claude, codex]
  synthesizer: claude
  reviewers:
    - agent: codex
      dimension: code_consistency
    - agent: claude
      dimension: security
      template: review_security
  validators: [codex]
  reviser: claude
  polisher: claude
  voters: [codex]
state:
  backend: redis
  redis_addr: redis:6379
  lock_enabled: true
`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Workflow.MaxRounds)
	assert.Equal(t, domain.PolicyMajority, cfg.Policy())
	assert.Equal(t, 90*time.Second, cfg.Workflow.AgentTimeout.Duration())
	assert.Equal(t, filepath.Dir(p), cfg.Paths.Workspace)
	assert.Equal(t, "redis:6379", cfg.State.RedisAddr)
	assert.True(t, cfg.State.LockEnabled)

	require.Len(t, cfg.Roles.Reviewers, 2)
	assert.Equal(t, "review_security", cfg.Roles.Reviewers[1].TemplateName())
	assert.Equal(t, cfg.Roles, cfg.ResolveRoles([]string{"other"}), "configured roles win over the registry")
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := writeConfig(t, "workflow:\n  max_rounds: 5\n")
	t.Setenv("TRIVIUM_WORKFLOW_MAX_ROUNDS", "7")
	t.Setenv("TRIVIUM_STATE_BACKEND", "memory")
	t.Setenv("TRIVIUM_WORKFLOW_AGENT_TIMEOUT", "2m")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Workflow.MaxRounds)
	assert.Equal(t, BackendMemory, cfg.State.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Workflow.AgentTimeout.Duration())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"backend", "state:\n  backend: s3\n", "state.backend"},
		{"rounds", "workflow:\n  max_rounds: -1\n", "workflow.max_rounds"},
		{"duration", "workflow:\n  agent_timeout: soon\n", "unmarshal"},
		{"roles", "roles:\n  primary: claude\n", "roles.drafters is required"},
		{"threshold", "workflow:\n  accept_threshold: 3\n" + validRoles, "workflow.accept_threshold (3) exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_ThresholdWithinValidators(t *testing.T) {
	cfg, err := Load(writeConfig(t, "workflow:\n  accept_threshold: 2\n"+validRoles))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workflow.AcceptThreshold)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "workflow.max_rounds", envKey("TRIVIUM_WORKFLOW_MAX_ROUNDS"))
	assert.Equal(t, "state.redis_addr", envKey("TRIVIUM_STATE_REDIS_ADDR"))
	assert.Equal(t, "debug", envKey("TRIVIUM_DEBUG"))
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ws", DefaultFile)
	require.NoError(t, WriteDefault(p, Default()))
	assert.Error(t, WriteDefault(p, Default()), "existing file is never overwritten")

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "agent_timeout: 10m0s")

	cfg, err := Load(p)
	require.NoError(t, err)
	want := Default()
	want.Paths.Workspace = filepath.Dir(p)
	assert.Equal(t, want, cfg)
}

func TestConfig_ResolveRolesFromRegistry(t *testing.T) {
	cfg := Default()
	roles := cfg.ResolveRoles([]string{"claude", "codex", "gemini"})
	assert.Equal(t, workflow.DefaultRoles([]string{"claude", "codex", "gemini"}), roles)
}

func TestConfig_Resolve(t *testing.T) {
	cfg := Default()
	cfg.Paths.Workspace = "/ws"
	assert.Equal(t, filepath.Join("/ws", "agents.yaml"), cfg.Resolve("agents.yaml"))
	assert.Equal(t, "/abs/agents.yaml", cfg.Resolve("/abs/agents.yaml"))
	assert.Empty(t, cfg.Resolve(""))
}
