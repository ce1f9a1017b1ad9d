package config

import (
	"path/filepath"
	"time"
)

// applyDefaults fills every zero field with a workable value so a missing
// config file still yields a usable toolkit.
func applyDefaults(cfg *Config) {
	if cfg.Home == "" {
		cfg.Home = DefaultHome()
	}

	if cfg.State.LockTimeout == 0 {
		cfg.State.LockTimeout = Duration(2 * time.Second)
	}
	if cfg.State.RetryAttempts == 0 {
		cfg.State.RetryAttempts = 3
	}

	if cfg.Statusline.ReadTimeout == 0 {
		cfg.Statusline.ReadTimeout = Duration(200 * time.Millisecond)
	}
	if cfg.Statusline.Staleness == 0 {
		cfg.Statusline.Staleness = Duration(5 * time.Minute)
	}
	if len(cfg.Statusline.Segments) == 0 {
		cfg.Statusline.Segments = []string{"session", "progress", "git", "nightshift"}
	}

	if cfg.Hooks.StdinTimeout == 0 {
		cfg.Hooks.StdinTimeout = Duration(5 * time.Second)
	}
	if cfg.Hooks.ReceiptsFile == "" {
		cfg.Hooks.ReceiptsFile = "receipts.json"
	}
	if cfg.Hooks.MaxReceipts == 0 {
		cfg.Hooks.MaxReceipts = 500
	}

	if cfg.Sessions.TranscriptDir == "" {
		cfg.Sessions.TranscriptDir = filepath.Join(cfg.Home, "transcripts")
	}
	if cfg.Sessions.IndexFile == "" {
		cfg.Sessions.IndexFile = "sessions.db"
	}

	if cfg.Skills.Shots.Dir == "" {
		cfg.Skills.Shots.Dir = filepath.Join(cfg.Home, "screenshots")
	}
	if cfg.Skills.Shots.Retention == 0 {
		cfg.Skills.Shots.Retention = Duration(14 * 24 * time.Hour)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join("logs", "sidekick.log")
	}
}
