package domain

import "time"

// Call is a single request to an external collaborator.
type Call struct {
	BatchID string        `json:"batch_id,omitempty"`
	Agent   string        `json:"agent"`
	Prompt  string        `json:"-"`
	WorkDir string        `json:"work_dir,omitempty"`
	// PromptDir is where file-mode prompts are written. Empty means "_prompts" under WorkDir.
	PromptDir string        `json:"prompt_dir,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
	// Label names the artifact this call feeds (e.g. "draft", "review"), used in logs and metrics.
	Label string `json:"label,omitempty"`
}

// Result is the tagged outcome of a Call. Failures are values, never Go errors.
type Result struct {
	Agent    string        `json:"agent"`
	Success  bool          `json:"success"`
	Text     string        `json:"text,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Failed builds a failure result for the given agent.
func Failed(agent, reason string) Result {
	return Result{Agent: agent, Success: false, Error: reason}
}
