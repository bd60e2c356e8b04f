package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/trivium/pkg/domain"
	"github.com/google/uuid"
)

// PromptDir is the directory, relative to the working directory, where prompt files are written.
const PromptDir = "_prompts"

const metaPrompt = "Read the file at %s for your complete task instructions. Follow them exactly and produce only the requested output."

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Runner implements ports.Gateway by executing local collaborator processes.
// It follows a Strict Registry pattern (Allow-Listing): only configured agents can run.
type Runner struct {
	registry map[string]AgentConfig
	baseDir  string
	grace    time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(agents map[string]AgentConfig) RunnerOption {
	return func(r *Runner) {
		for _, a := range agents {
			r.Register(a)
		}
	}
}

// WithBaseDir sets the working directory used when a call does not name one.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithGracePeriod sets how long an interrupted process may take to exit before it is killed.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.grace = d
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]AgentConfig),
		grace:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted collaborator to the allow-list.
func (r *Runner) Register(cfg AgentConfig) {
	if cfg.Prompt == "" {
		cfg.Prompt = PromptFile
	}
	r.registry[cfg.Name] = cfg
}

// Agents returns the registered agent names, sorted.
func (r *Runner) Agents() []string {
	return slices.Sorted(maps.Keys(r.registry))
}

// Invoke runs the collaborator and waits for it, bounded by call.Timeout and ctx.
// Every failure (unknown agent, timeout, non-zero exit, failed envelope) is reported in the Result.
func (r *Runner) Invoke(ctx context.Context, call domain.Call) domain.Result {
	start := time.Now()
	res := r.invoke(ctx, call)
	res.Agent = call.Agent
	res.Duration = time.Since(start)
	return res
}

func (r *Runner) invoke(ctx context.Context, call domain.Call) domain.Result {
	agent, ok := r.registry[call.Agent]
	if !ok {
		return domain.Failed(call.Agent, fmt.Sprintf("%v: %s", domain.ErrUnknownAgent, call.Agent))
	}

	if call.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, call.Timeout)
		defer cancel()
	}

	workDir := call.WorkDir
	if workDir == "" {
		workDir = r.baseDir
	}

	promptArg := call.Prompt
	promptFile := ""
	if agent.Prompt == PromptFile || containsPlaceholder(agent.Args, "{prompt_file}") {
		var err error
		promptFile, err = writePromptFile(workDir, call)
		if err != nil {
			return domain.Failed(call.Agent, err.Error())
		}
		if agent.Prompt == PromptFile {
			promptArg = fmt.Sprintf(metaPrompt, promptFile)
		}
	}

	replacer := strings.NewReplacer(
		"{prompt}", promptArg,
		"{prompt_file}", promptFile,
		"{workdir}", workDir,
	)
	args := make([]string, len(agent.Args))
	for i, a := range agent.Args {
		args[i] = replacer.Replace(a)
	}

	cmd := exec.CommandContext(ctx, agent.Command, args...)
	cmd.Dir = workDir
	cmd.Env = cmd.Environ()
	for k, v := range agent.Environment {
		// Values may reference the parent environment, e.g. "${HTTPS_PROXY}".
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	if agent.Prompt == PromptStdin {
		cmd.Stdin = strings.NewReader(call.Prompt)
	}

	// Interrupt first so CLIs can clean up; Kill after the grace period.
	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.grace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return domain.Failed(call.Agent, fmt.Sprintf("timed out after %s", call.Timeout))
		}
		return domain.Failed(call.Agent, ctxErr.Error())
	}
	if err != nil {
		return domain.Failed(call.Agent, fmt.Sprintf("execution failed: %v. Stderr: %s", err, strings.TrimSpace(stderr.String())))
	}

	return decodeOutput(stdout.String())
}

// envelope is the JSON shape emitted by bridge scripts wrapping agent CLIs, or by CLIs
// with a JSON output mode such as `claude -p --output-format json`.
type envelope struct {
	Success       *bool           `json:"success"`
	AgentMessages json.RawMessage `json:"agent_messages"`
	Error         string          `json:"error"`

	Type    string  `json:"type"`
	Result  *string `json:"result"`
	IsError bool    `json:"is_error"`
}

// decodeOutput unwraps a bridge or CLI result envelope when stdout is one, otherwise
// returns stdout verbatim.
func decodeOutput(stdout string) domain.Result {
	trimmed := strings.TrimSpace(stdout)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return domain.Result{Success: true, Text: trimmed}
	}

	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return domain.Result{Success: true, Text: trimmed}
	}
	switch {
	case env.Success != nil:
		if !*env.Success {
			return domain.Result{Success: false, Error: orReason(env.Error)}
		}
		return domain.Result{Success: true, Text: messages(env.AgentMessages)}
	case env.Type == "result" && env.Result != nil:
		if env.IsError {
			return domain.Result{Success: false, Error: orReason(strings.TrimSpace(*env.Result))}
		}
		return domain.Result{Success: true, Text: strings.TrimSpace(*env.Result)}
	}
	return domain.Result{Success: true, Text: trimmed}
}

func orReason(s string) string {
	if s == "" {
		return "agent reported failure"
	}
	return s
}

func messages(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, "\n"))
	}
	return ""
}

func containsPlaceholder(args []string, p string) bool {
	for _, a := range args {
		if strings.Contains(a, p) {
			return true
		}
	}
	return false
}

func writePromptFile(workDir string, call domain.Call) (string, error) {
	dir := call.PromptDir
	if dir == "" {
		dir = filepath.Join(workDir, PromptDir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create prompt dir: %w", err)
	}
	label := unsafeChars.ReplaceAllString(call.Label, "_")
	if label == "" {
		label = "prompt"
	}
	name := fmt.Sprintf("%s_%s_%s.md", unsafeChars.ReplaceAllString(call.Agent, "_"), label, uuid.NewString()[:8])
	p, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve prompt path: %w", err)
	}
	if err := os.WriteFile(p, []byte(call.Prompt), 0644); err != nil {
		return "", fmt.Errorf("failed to write prompt file: %w", err)
	}
	return p, nil
}
