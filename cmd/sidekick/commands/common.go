package commands

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/oddrun/sidekick/internal/config"
	"github.com/oddrun/sidekick/internal/observability"
	"github.com/oddrun/sidekick/internal/sessions"
	"github.com/oddrun/sidekick/internal/txstate"
)

// Global carries the shared state every subcommand needs.
type Global struct {
	Cfg        *config.Config
	Store      *txstate.Store
	ConfigPath string
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default <home>/config.yaml)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Hook       HookCmd       `cmd:"" hidden:"" help:"Handle one lifecycle hook event (stdin JSON protocol)"`
	Statusline StatuslineCmd `cmd:"" help:"Render the status line"`
	Sessions   SessionsCmd   `cmd:"" help:"Inspect and repair the session index"`
	Git        GitCmd        `cmd:"" help:"Git helpers"`
	Nightshift NightshiftCmd `cmd:"" help:"Background maintenance tasks"`
	Skill      SkillCmd      `cmd:"" help:"Task-specific skill tools"`
}

// Setup loads configuration, points logging at the debug file, and builds
// the shared state store. Diagnostics must never land on stdout: several
// commands speak a JSON or line protocol with the host there.
func Setup(cli *CLI) (*Global, func(), error) {
	configPath := cli.Config
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, func() {}, err
	}

	level := observability.ParseLevel(cfg.Logging.Level)
	if cli.Verbose {
		level = slog.LevelDebug
	}
	closeLog, err := observability.SetupLogger(cfg.StatePath(cfg.Logging.File), level)
	if err != nil {
		return nil, func() {}, err
	}

	store := txstate.New(
		txstate.WithBaseDir(cfg.Home),
		txstate.WithLockTimeout(cfg.State.LockTimeout.Std()),
		txstate.WithRetryPolicy(cfg.RetryPolicy()),
		txstate.WithDurableWrites(cfg.State.Durable),
	)

	return &Global{Cfg: cfg, Store: store, ConfigPath: configPath}, closeLog, nil
}

// openIndex opens the SQLite session index at its configured location.
func (g *Global) openIndex() (*sessions.Index, error) {
	return sessions.Open(g.Cfg.StatePath(g.Cfg.Sessions.IndexFile))
}
