package commands

import (
	"fmt"
	"os"

	"github.com/oddrun/sidekick/internal/statusline"
)

// StatuslineCmd renders the status line for the host's status bar.
type StatuslineCmd struct {
	Plain bool   `help:"Disable color output"`
	Dir   string `help:"Repository directory for the git segment" default:"."`
}

//nolint:forbidigo // stdout is the statusline protocol surface
func (cmd *StatuslineCmd) Run(g *Global) error {
	cfg := g.Cfg.Statusline
	if cmd.Plain {
		cfg.Plain = true
	}
	dir := cmd.Dir
	if dir == "." {
		if cwd, err := os.Getwd(); err == nil {
			dir = cwd
		}
	}

	if line := statusline.New(g.Store, cfg, dir).Render(); line != "" {
		fmt.Println(line)
	}
	return nil
}
