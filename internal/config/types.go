package config

import (
	"encoding/json"
	"time"

	"github.com/aretw0/trivium/pkg/workflow"
)

// Duration wraps time.Duration for text unmarshaling (YAML, env vars).
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// MarshalJSON renders the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the complete trivium configuration.
type Config struct {
	Workflow WorkflowConfig `koanf:"workflow" yaml:"workflow" json:"workflow"`
	Roles    workflow.Roles `koanf:"roles" yaml:"roles,omitempty" json:"roles"`
	Paths    PathsConfig    `koanf:"paths" yaml:"paths" json:"paths"`
	State    StateConfig    `koanf:"state" yaml:"state" json:"state"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics" json:"metrics"`
	Server   ServerConfig   `koanf:"server" yaml:"server" json:"server"`
	Log      LogConfig      `koanf:"log" yaml:"log" json:"log"`
}

// WorkflowConfig bounds and tunes the consensus loop.
type WorkflowConfig struct {
	MaxRounds       int      `koanf:"max_rounds" yaml:"max_rounds" json:"max_rounds"`
	ConsensusMode   string   `koanf:"consensus_mode" yaml:"consensus_mode" json:"consensus_mode"`
	AgentTimeout    Duration `koanf:"agent_timeout" yaml:"agent_timeout" json:"agent_timeout"`
	AcceptThreshold int      `koanf:"accept_threshold" yaml:"accept_threshold" json:"accept_threshold"`
}

// PathsConfig locates the workspace and its inputs.
// Relative paths resolve against the workspace, except Workspace itself.
type PathsConfig struct {
	Workspace  string `koanf:"workspace" yaml:"workspace" json:"workspace"`
	Templates  string `koanf:"templates" yaml:"templates,omitempty" json:"templates,omitempty"`
	AgentsFile string `koanf:"agents_file" yaml:"agents_file" json:"agents_file"`
	// References is an optional loam repository of extra reference documents.
	References string `koanf:"references" yaml:"references,omitempty" json:"references,omitempty"`
}

// StateConfig selects the WorkflowState backend.
type StateConfig struct {
	Backend       string   `koanf:"backend" yaml:"backend" json:"backend"`
	RedisAddr     string   `koanf:"redis_addr" yaml:"redis_addr,omitempty" json:"redis_addr,omitempty"`
	RedisPassword string   `koanf:"redis_password" yaml:"redis_password,omitempty" json:"-"`
	RedisDB       int      `koanf:"redis_db" yaml:"redis_db,omitempty" json:"redis_db,omitempty"`
	RedisPrefix   string   `koanf:"redis_prefix" yaml:"redis_prefix,omitempty" json:"redis_prefix,omitempty"`
	LockEnabled   bool     `koanf:"lock_enabled" yaml:"lock_enabled" json:"lock_enabled"`
	LockTTL       Duration `koanf:"lock_ttl" yaml:"lock_ttl" json:"lock_ttl"`
}

// MetricsConfig toggles Prometheus collection.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled" json:"enabled"`
}

// ServerConfig configures the read-only status API.
type ServerConfig struct {
	Addr string `koanf:"addr" yaml:"addr" json:"addr"`
}

// LogConfig sets the log level (debug, info, warn, error).
type LogConfig struct {
	Level string `koanf:"level" yaml:"level" json:"level"`
}
