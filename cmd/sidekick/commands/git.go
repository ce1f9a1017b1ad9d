package commands

import (
	"fmt"

	"github.com/oddrun/sidekick/internal/gitops"
)

// GitCmd groups git helpers.
type GitCmd struct {
	PRSummary PRSummaryCmd `cmd:"" name:"prsummary" help:"Summarize base..head as a PR description skeleton"`
}

// PRSummaryCmd aggregates branch commits for a pull request description.
type PRSummaryCmd struct {
	Base string `help:"Base revision" default:"main"`
	Head string `help:"Head revision" default:"HEAD"`
	Dir  string `help:"Repository directory" default:"."`
}

//nolint:forbidigo // the summary is the command's output
func (cmd *PRSummaryCmd) Run(_ *Global) error {
	summary, err := gitops.AggregateBranch(cmd.Dir, cmd.Base, cmd.Head)
	if err != nil {
		return err
	}
	fmt.Print(summary.Markdown())
	return nil
}
