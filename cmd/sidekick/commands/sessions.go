package commands

import (
	"context"
	"fmt"
	"time"
)

// SessionsCmd groups session index operations.
type SessionsCmd struct {
	Repair SessionsRepairCmd `cmd:"" help:"Rebuild the session index from transcript files"`
	List   SessionsListCmd   `cmd:"" help:"List indexed sessions, most recent first"`
}

// SessionsRepairCmd rescans the transcript directory and reconciles the index.
type SessionsRepairCmd struct{}

//nolint:forbidigo // report output belongs on stdout
func (cmd *SessionsRepairCmd) Run(g *Global) error {
	index, err := g.openIndex()
	if err != nil {
		return err
	}
	defer index.Close() //nolint:errcheck

	report, err := index.Repair(context.Background(), g.Cfg.Sessions.TranscriptDir)
	if err != nil {
		return err
	}
	fmt.Printf("scanned %d transcripts: %d added, %d updated, %d pruned (%d corrupt lines skipped)\n",
		report.Scanned, report.Added, report.Updated, report.Pruned, report.CorruptLines)
	return nil
}

// SessionsListCmd prints the current index.
type SessionsListCmd struct {
	Limit int `short:"n" help:"Show at most this many sessions" default:"20"`
}

//nolint:forbidigo // listing output belongs on stdout
func (cmd *SessionsListCmd) Run(g *Global) error {
	index, err := g.openIndex()
	if err != nil {
		return err
	}
	defer index.Close() //nolint:errcheck

	list, err := index.List(context.Background())
	if err != nil {
		return err
	}
	if cmd.Limit > 0 && len(list) > cmd.Limit {
		list = list[:cmd.Limit]
	}

	for _, s := range list {
		id := s.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Printf("%s  %5d events  last active %s  %s\n",
			id, s.Events, s.LastActiveAt.Local().Format(time.DateTime), s.TranscriptPath)
	}
	return nil
}
