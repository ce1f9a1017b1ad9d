package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/oddrun/sidekick/internal/errors"
	"github.com/oddrun/sidekick/internal/hooks"
)

// HookCmd implements the hidden 'hook' command the host runtime invokes.
type HookCmd struct {
	Event string `arg:"" help:"Hook event name as registered with the host"`
}

func (cmd *HookCmd) Run(g *Global) error {
	in, err := hooks.DecodeInput(os.Stdin, g.Cfg.Hooks.StdinTimeout.Std())
	if err != nil {
		return errors.HookInputError(cmd.Event, err)
	}
	if in.HookEventName == "" {
		in.HookEventName = cmd.Event
	}

	// A broken session index degrades the hook, it must not block the host.
	var recorder hooks.SessionRecorder
	index, err := g.openIndex()
	if err != nil {
		slog.Warn("Session index unavailable", "error", err)
	} else {
		defer index.Close() //nolint:errcheck
		recorder = index
	}

	handler := hooks.NewHandler(g.Cfg, g.Store, recorder)
	out, err := handler.Handle(context.Background(), in)
	if err != nil {
		return errors.HookInputError(in.HookEventName, err)
	}
	if out == nil {
		out = &hooks.Output{}
	}
	return json.NewEncoder(os.Stdout).Encode(out)
}
