package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/trivium/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestRunner_Invoke(t *testing.T) {
	skipOnWindows(t)
	workDir := t.TempDir()

	runner := NewRunner(WithBaseDir(workDir), WithGracePeriod(200*time.Millisecond))
	runner.Register(AgentConfig{Name: "echo", Command: "sh", Args: []string{"-c", `printf '%s' "$1"`, "_", "{prompt}"}, Prompt: PromptArg})
	runner.Register(AgentConfig{Name: "reader", Command: "sh", Args: []string{"-c", `cat "$1"`, "_", "{prompt_file}"}, Prompt: PromptArg})
	runner.Register(AgentConfig{Name: "meta", Command: "sh", Args: []string{"-c", `printf '%s' "$1"`, "_", "{prompt}"}})
	runner.Register(AgentConfig{Name: "stdin", Command: "cat", Prompt: PromptStdin})
	runner.Register(AgentConfig{Name: "pwd", Command: "sh", Args: []string{"-c", "pwd"}, Prompt: PromptArg})
	runner.Register(AgentConfig{
		Name:        "proxy",
		Command:     "sh",
		Args:        []string{"-c", `printf '%s' "$HTTPS_PROXY"`},
		Environment: map[string]string{"HTTPS_PROXY": "${TRIVIUM_TEST_PROXY}"},
		Prompt:      PromptArg,
	})
	runner.Register(AgentConfig{Name: "bridge_ok", Command: "sh", Args: []string{"-c", `echo '{"success": true, "agent_messages": "  bridged text "}'`}, Prompt: PromptArg})
	runner.Register(AgentConfig{Name: "bridge_list", Command: "sh", Args: []string{"-c", `echo '{"success": true, "agent_messages": ["a", "b"]}'`}, Prompt: PromptArg})
	runner.Register(AgentConfig{Name: "bridge_fail", Command: "sh", Args: []string{"-c", `echo '{"success": false, "error": "quota exceeded"}'`}, Prompt: PromptArg})
	runner.Register(AgentConfig{Name: "cli_result", Command: "sh", Args: []string{"-c", `echo '{"type": "result", "subtype": "success", "is_error": false, "result": " The paragraph. ", "session_id": "abc"}'`}, Prompt: PromptArg})
	runner.Register(AgentConfig{Name: "cli_error", Command: "sh", Args: []string{"-c", `echo '{"type": "result", "subtype": "error_during_execution", "is_error": true, "result": "rate limited"}'`}, Prompt: PromptArg})
	runner.Register(AgentConfig{Name: "json_reply", Command: "sh", Args: []string{"-c", `echo '{"verdict": "approve"}'`}, Prompt: PromptArg})
	runner.Register(AgentConfig{Name: "crashy", Command: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}, Prompt: PromptArg})
	runner.Register(AgentConfig{Name: "slow", Command: "sh", Args: []string{"-c", "exec sleep 5"}, Prompt: PromptArg})

	ctx := context.Background()

	t.Run("Substitutes Prompt Argument", func(t *testing.T) {
		res := runner.Invoke(ctx, domain.Call{Agent: "echo", Prompt: "write {chapter} now"})
		assert.True(t, res.Success, res.Error)
		assert.Equal(t, "echo", res.Agent)
		assert.Equal(t, "write {chapter} now", res.Text)
		assert.Greater(t, res.Duration, time.Duration(0))
	})

	t.Run("Prompt File Placeholder", func(t *testing.T) {
		res := runner.Invoke(ctx, domain.Call{Agent: "reader", Prompt: "long prompt body", Label: "review:code"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "long prompt body", res.Text)

		entries, err := os.ReadDir(filepath.Join(workDir, PromptDir))
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		assert.True(t, strings.HasPrefix(entries[0].Name(), "reader_review_code_"))
	})

	t.Run("File Mode Passes Meta Prompt", func(t *testing.T) {
		res := runner.Invoke(ctx, domain.Call{Agent: "meta", Prompt: "the real task"})
		require.True(t, res.Success, res.Error)
		assert.True(t, strings.HasPrefix(res.Text, "Read the file at "))
		assert.Contains(t, res.Text, PromptDir)
	})

	t.Run("Stdin Mode", func(t *testing.T) {
		res := runner.Invoke(ctx, domain.Call{Agent: "stdin", Prompt: "via stdin"})
		assert.True(t, res.Success, res.Error)
		assert.Equal(t, "via stdin", res.Text)
	})

	t.Run("Call WorkDir Overrides Base", func(t *testing.T) {
		other := t.TempDir()
		res := runner.Invoke(ctx, domain.Call{Agent: "pwd", WorkDir: other})
		require.True(t, res.Success, res.Error)
		want, err := filepath.EvalSymlinks(other)
		require.NoError(t, err)
		got, err := filepath.EvalSymlinks(res.Text)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("Expands Agent Environment", func(t *testing.T) {
		t.Setenv("TRIVIUM_TEST_PROXY", "http://proxy:3128")
		res := runner.Invoke(ctx, domain.Call{Agent: "proxy"})
		assert.True(t, res.Success, res.Error)
		assert.Equal(t, "http://proxy:3128", res.Text)
	})

	t.Run("Bridge Envelope", func(t *testing.T) {
		res := runner.Invoke(ctx, domain.Call{Agent: "bridge_ok"})
		assert.True(t, res.Success)
		assert.Equal(t, "bridged text", res.Text)

		res = runner.Invoke(ctx, domain.Call{Agent: "bridge_list"})
		assert.True(t, res.Success)
		assert.Equal(t, "a\nb", res.Text)

		res = runner.Invoke(ctx, domain.Call{Agent: "bridge_fail"})
		assert.False(t, res.Success)
		assert.Equal(t, "quota exceeded", res.Error)
	})

	t.Run("CLI Result Envelope", func(t *testing.T) {
		res := runner.Invoke(ctx, domain.Call{Agent: "cli_result"})
		assert.True(t, res.Success, res.Error)
		assert.Equal(t, "The paragraph.", res.Text)

		res = runner.Invoke(ctx, domain.Call{Agent: "cli_error"})
		assert.False(t, res.Success)
		assert.Equal(t, "rate limited", res.Error)
	})

	t.Run("Prompt Dir Overrides Work Dir", func(t *testing.T) {
		codeDir, promptDir := t.TempDir(), filepath.Join(t.TempDir(), "foundation", PromptDir)
		res := runner.Invoke(ctx, domain.Call{Agent: "reader", Prompt: "analyse", WorkDir: codeDir, PromptDir: promptDir, Label: "init"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "analyse", res.Text)

		entries, err := os.ReadDir(promptDir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		_, err = os.Stat(filepath.Join(codeDir, PromptDir))
		assert.True(t, os.IsNotExist(err), "code directory stays untouched")
	})

	t.Run("Plain JSON Is Not An Envelope", func(t *testing.T) {
		res := runner.Invoke(ctx, domain.Call{Agent: "json_reply"})
		assert.True(t, res.Success)
		assert.Equal(t, `{"verdict": "approve"}`, res.Text)
	})

	t.Run("Non Zero Exit Is A Result", func(t *testing.T) {
		res := runner.Invoke(ctx, domain.Call{Agent: "crashy"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "exit status 3")
		assert.Contains(t, res.Error, "boom")
	})

	t.Run("Timeout Is A Result", func(t *testing.T) {
		start := time.Now()
		res := runner.Invoke(ctx, domain.Call{Agent: "slow", Timeout: 100 * time.Millisecond})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "timed out")
		assert.Less(t, time.Since(start), 3*time.Second)
	})

	t.Run("Unregistered Agent", func(t *testing.T) {
		res := runner.Invoke(ctx, domain.Call{Agent: "hacker_script"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "not registered")
	})
}

func TestLoadAgents(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAML", func(t *testing.T) {
		p := filepath.Join(dir, "agents.yaml")
		require.NoError(t, os.WriteFile(p, []byte(`
agents:
  - name: codex
    command: codex
    args: ["exec", "{prompt}"]
    env:
      HTTPS_PROXY: "${HTTPS_PROXY}"
  - name: gemini
    command: gemini
    args: ["-p", "{prompt}"]
    prompt: arg
  - command: orphan
`), 0644))

		agents, err := LoadAgents(p)
		require.NoError(t, err)
		require.Len(t, agents, 2)
		assert.Equal(t, PromptFile, agents["codex"].Prompt)
		assert.Equal(t, PromptArg, agents["gemini"].Prompt)
		assert.Equal(t, "${HTTPS_PROXY}", agents["codex"].Environment["HTTPS_PROXY"])
	})

	t.Run("JSON", func(t *testing.T) {
		p := filepath.Join(dir, "agents.json")
		require.NoError(t, os.WriteFile(p, []byte(`{"agents": [{"name": "claude", "command": "claude", "args": ["-p", "{prompt}"], "prompt": "stdin"}]}`), 0644))

		agents, err := LoadAgents(p)
		require.NoError(t, err)
		assert.Equal(t, PromptStdin, agents["claude"].Prompt)
	})

	t.Run("Missing File", func(t *testing.T) {
		agents, err := LoadAgents(filepath.Join(dir, "nope.yaml"))
		require.NoError(t, err)
		assert.Empty(t, agents)
	})

	t.Run("Invalid Prompt Mode", func(t *testing.T) {
		p := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(p, []byte("agents:\n  - name: x\n    command: x\n    prompt: telepathy\n"), 0644))
		_, err := LoadAgents(p)
		assert.ErrorContains(t, err, "unknown prompt mode")
	})

	t.Run("Order And Duplicates", func(t *testing.T) {
		p := filepath.Join(dir, "order.yaml")
		require.NoError(t, os.WriteFile(p, []byte("agents:\n  - name: zed\n    command: z\n  - name: alpha\n    command: a\n"), 0644))
		list, err := LoadAgentList(p)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "zed", list[0].Name)

		dup := filepath.Join(dir, "dup.yaml")
		require.NoError(t, os.WriteFile(dup, []byte("agents:\n  - name: a\n    command: a\n  - name: a\n    command: b\n"), 0644))
		_, err = LoadAgentList(dup)
		assert.ErrorContains(t, err, "defined twice")
	})
}
