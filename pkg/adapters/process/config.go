package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompt delivery modes.
const (
	// PromptArg substitutes the prompt text into the {prompt} argument placeholder.
	PromptArg = "arg"
	// PromptFile writes the prompt to a file and passes a short instruction pointing at it.
	// Long prompts routinely exceed command-line length limits, so this is the default.
	PromptFile = "file"
	// PromptStdin writes the prompt to the process standard input.
	PromptStdin = "stdin"
)

// AgentConfig represents the configuration of an external collaborator process.
type AgentConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// Prompt selects how the prompt reaches the process: arg, file (default) or stdin.
	Prompt string `yaml:"prompt" json:"prompt"`
}

// ConfigFile represents the structure of agents.yaml
type ConfigFile struct {
	Agents []AgentConfig `yaml:"agents" json:"agents"`
}

// LoadAgents reads a configuration file (YAML or JSON) and returns a map of agent names to configs.
// A missing file yields an empty registry.
func LoadAgents(path string) (map[string]AgentConfig, error) {
	list, err := LoadAgentList(path)
	if err != nil {
		return nil, err
	}
	agents := make(map[string]AgentConfig, len(list))
	for _, a := range list {
		agents[a.Name] = a
	}
	return agents, nil
}

// LoadAgentList is LoadAgents preserving file order. The first agent is the default primary.
func LoadAgentList(path string) ([]AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []AgentConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read agents config: %w", err)
	}

	var cfg ConfigFile
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse agents.json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse agents.yaml: %w", err)
		}
	}

	agents := make([]AgentConfig, 0, len(cfg.Agents))
	seen := make(map[string]bool)
	for _, a := range cfg.Agents {
		if a.Name == "" {
			continue
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("agent %q is defined twice", a.Name)
		}
		seen[a.Name] = true
		if a.Command == "" {
			return nil, fmt.Errorf("agent %q has no command", a.Name)
		}
		switch a.Prompt {
		case "":
			a.Prompt = PromptFile
		case PromptArg, PromptFile, PromptStdin:
		default:
			return nil, fmt.Errorf("agent %q: unknown prompt mode %q", a.Name, a.Prompt)
		}
		agents = append(agents, a)
	}
	return agents, nil
}
