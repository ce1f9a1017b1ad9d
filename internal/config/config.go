// Package config loads and validates the toolkit configuration from
// <home>/config.yaml with .env overrides. A resolved Config is passed down
// explicitly; packages never consult hidden globals.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oddrun/sidekick/internal/retry"
)

// Config represents the toolkit configuration
type Config struct {
	// Home is the toolkit state directory. Resolved, absolute.
	Home string `yaml:"home,omitempty"`

	// Path is the file this configuration was loaded from. Set by Load, not
	// by YAML, so consumers can revalidate the same file later.
	Path string `yaml:"-"`

	State      StateConfig      `yaml:"state"`
	Statusline StatuslineConfig `yaml:"statusline"`
	Hooks      HooksConfig      `yaml:"hooks"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Nightshift NightshiftConfig `yaml:"nightshift"`
	Skills     SkillsConfig     `yaml:"skills"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StateConfig tunes the transactional state store shared by all components.
type StateConfig struct {
	LockTimeout   Duration          `yaml:"lock_timeout,omitempty"`
	RetryMode     retry.BackoffMode `yaml:"retry_mode,omitempty"`
	RetryInitial  Duration          `yaml:"retry_initial,omitempty"`
	RetryMax      Duration          `yaml:"retry_max,omitempty"`
	RetryAttempts int               `yaml:"retry_attempts,omitempty"`
	Durable       bool              `yaml:"durable,omitempty"`
}

// StatuslineConfig controls statusline rendering.
type StatuslineConfig struct {
	// ReadTimeout bounds each locked read; keep it well under a second so a
	// contended state file degrades a segment instead of stalling the UI.
	ReadTimeout Duration `yaml:"read_timeout,omitempty"`
	// Staleness is how old progress data may be before it is hidden.
	Staleness Duration `yaml:"staleness,omitempty"`
	Segments  []string `yaml:"segments,omitempty"`
	Plain     bool     `yaml:"plain,omitempty"`
}

// HooksConfig controls hook handler behavior.
type HooksConfig struct {
	// StdinTimeout bounds how long a hook waits for the host to deliver its
	// JSON payload.
	StdinTimeout Duration `yaml:"stdin_timeout,omitempty"`
	// DenyTools lists tool-name patterns PreToolUse refuses.
	DenyTools []string `yaml:"deny_tools,omitempty"`
	// ReceiptsFile names the audit receipt state file, relative to home.
	ReceiptsFile string `yaml:"receipts_file,omitempty"`
	// MaxReceipts caps the receipts ring before compaction.
	MaxReceipts int `yaml:"max_receipts,omitempty"`
}

// SessionsConfig locates session transcripts and the index database.
type SessionsConfig struct {
	TranscriptDir string `yaml:"transcript_dir,omitempty"`
	IndexFile     string `yaml:"index_file,omitempty"` // relative to home
}

// NightshiftConfig declares scheduled background tasks.
type NightshiftConfig struct {
	Tasks []TaskConfig `yaml:"tasks,omitempty"`
	// MetricsAddr, when set, serves prometheus metrics in daemon mode.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
	// WatchConfig reloads the daemon when config.yaml changes.
	WatchConfig bool `yaml:"watch_config,omitempty"`
}

// TaskConfig is one scheduled task.
type TaskConfig struct {
	Name     string   `yaml:"name"`
	Every    Duration `yaml:"every,omitempty"`
	Cron     string   `yaml:"cron,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty"`
}

// SkillsConfig groups per-skill settings.
type SkillsConfig struct {
	Shots ShotsConfig `yaml:"shots"`
}

// ShotsConfig configures the screenshot manager.
type ShotsConfig struct {
	Dir       string   `yaml:"dir,omitempty"`
	Retention Duration `yaml:"retention,omitempty"`
}

// LoggingConfig controls the debug log.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug|info|warn|error
	// File is the debug log path, relative to home. Hooks must keep stdout
	// clean for the host protocol, so diagnostics go here.
	File string `yaml:"file,omitempty"`
}

// Load reads, defaults, and validates configuration. A missing config file
// is not an error: every component has workable defaults.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			// Expand ${VAR} references so secrets can live in .env.
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.Path = configPath
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that defaults cannot repair.
func (c *Config) Validate() error {
	if c.State.LockTimeout <= 0 {
		return fmt.Errorf("state.lock_timeout must be positive")
	}
	if c.State.RetryAttempts < 0 {
		return fmt.Errorf("state.retry_attempts cannot be negative")
	}
	if c.Statusline.ReadTimeout <= 0 {
		return fmt.Errorf("statusline.read_timeout must be positive")
	}
	if c.Hooks.MaxReceipts <= 0 {
		return fmt.Errorf("hooks.max_receipts must be positive")
	}
	for _, task := range c.Nightshift.Tasks {
		if task.Name == "" {
			return fmt.Errorf("nightshift task without a name")
		}
		if task.Every <= 0 && task.Cron == "" {
			return fmt.Errorf("nightshift task %q needs either every or cron", task.Name)
		}
	}
	return nil
}

// RetryPolicy builds the lock-contention retry policy from config.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.NewPolicy(c.State.RetryMode, c.State.RetryInitial.Std(), c.State.RetryMax.Std(), c.State.RetryAttempts)
}

// StatePath resolves a state file name against the toolkit home.
func (c *Config) StatePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Home, name)
}

// DefaultConfigPath returns <home>/config.yaml for the default home.
func DefaultConfigPath() string {
	return filepath.Join(DefaultHome(), "config.yaml")
}

// DefaultHome resolves the toolkit home directory: $SIDEKICK_HOME if set,
// otherwise ~/.sidekick.
func DefaultHome() string {
	if h := os.Getenv("SIDEKICK_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sidekick"
	}
	return filepath.Join(home, ".sidekick")
}
