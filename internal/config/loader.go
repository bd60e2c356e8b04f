// Package config loads trivium configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/workflow"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment variables that override the file.
const EnvPrefix = "TRIVIUM_"

// DefaultFile is the configuration file looked up in the workspace.
const DefaultFile = "trivium.yaml"

// State backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const maxConfigFileSize = 1024 * 1024

// Load reads configuration from path, then overrides it with environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (TRIVIUM_WORKFLOW_MAX_ROUNDS, TRIVIUM_STATE_REDIS_ADDR, ...)
//  2. YAML config file
//  3. Defaults
//
// A missing file is not an error. Environment variables map by splitting on the first
// underscore after the prefix:
//
//	TRIVIUM_WORKFLOW_MAX_ROUNDS -> workflow.max_rounds
//	TRIVIUM_ROLES_VOTERS=codex,gemini -> roles.voters
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg, path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps TRIVIUM_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// applyDefaults fills missing values. The workspace defaults to the config file's directory.
func applyDefaults(cfg *Config, path string) {
	if cfg.Workflow.MaxRounds == 0 {
		cfg.Workflow.MaxRounds = domain.DefaultMaxRounds
	}
	if cfg.Workflow.ConsensusMode == "" {
		cfg.Workflow.ConsensusMode = string(domain.PolicyStrict)
	}
	if cfg.Workflow.AgentTimeout == 0 {
		cfg.Workflow.AgentTimeout = Duration(10 * time.Minute)
	}
	if cfg.Workflow.AcceptThreshold == 0 {
		cfg.Workflow.AcceptThreshold = domain.DefaultAcceptThreshold
	}

	if cfg.Paths.Workspace == "" {
		cfg.Paths.Workspace = "."
		if path != "" {
			cfg.Paths.Workspace = filepath.Dir(path)
		}
	}
	if cfg.Paths.AgentsFile == "" {
		cfg.Paths.AgentsFile = "agents.yaml"
	}

	if cfg.State.Backend == "" {
		cfg.State.Backend = BackendFile
	}
	if cfg.State.RedisAddr == "" {
		cfg.State.RedisAddr = "localhost:6379"
	}
	if cfg.State.LockTTL == 0 {
		cfg.State.LockTTL = Duration(30 * time.Minute)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks the configuration for values the engine cannot run with.
// Empty roles are valid: they are derived from the agent registry.
func (c *Config) Validate() error {
	var errs []error
	if c.Workflow.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("workflow.max_rounds must be at least 1, got %d", c.Workflow.MaxRounds))
	}
	if c.Workflow.AcceptThreshold < 1 {
		errs = append(errs, fmt.Errorf("workflow.accept_threshold must be at least 1, got %d", c.Workflow.AcceptThreshold))
	}
	if c.Workflow.AgentTimeout <= 0 {
		errs = append(errs, errors.New("workflow.agent_timeout must be positive"))
	}
	switch c.State.Backend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("state.backend must be file, redis or memory, got %q", c.State.Backend))
	}
	if len(c.Roles.Agents()) > 0 {
		if err := c.Roles.Validate(); err != nil {
			errs = append(errs, err)
		}
		if n := len(c.Roles.Validators); n > 0 && c.Workflow.AcceptThreshold > n {
			errs = append(errs, fmt.Errorf("workflow.accept_threshold (%d) exceeds the number of roles.validators (%d): no issue could ever be accepted",
				c.Workflow.AcceptThreshold, n))
		}
	}
	return errors.Join(errs...)
}

// Policy returns the configured consensus policy.
func (c *Config) Policy() domain.ConsensusPolicy {
	return domain.ParsePolicy(c.Workflow.ConsensusMode)
}

// Resolve returns p relative to the workspace unless it is absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.Workspace, p)
}

// ResolveRoles returns the configured roles, or roles derived from the agents in registry order.
func (c *Config) ResolveRoles(agents []string) workflow.Roles {
	if len(c.Roles.Agents()) > 0 {
		return c.Roles
	}
	return workflow.DefaultRoles(agents)
}

// Default returns the configuration written by `trivium init`.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg, "")
	return cfg
}

// WriteDefault writes cfg as YAML to path, refusing to overwrite an existing file.
func WriteDefault(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	out := *cfg
	// The workspace is implied by the file location.
	out.Paths.Workspace = ""
	data, err := yamlv3.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
