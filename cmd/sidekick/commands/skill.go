package commands

import (
	"fmt"
	"time"

	"github.com/oddrun/sidekick/internal/skills"
	"github.com/oddrun/sidekick/internal/skills/docker"
	"github.com/oddrun/sidekick/internal/skills/docs"
	"github.com/oddrun/sidekick/internal/skills/shots"
)

// SkillCmd groups the task-specific tools.
type SkillCmd struct {
	Docker  SkillDockerCmd  `cmd:"" help:"Generate docker-compose.yaml and Dockerfile for a service"`
	Docs    SkillDocsCmd    `cmd:"" help:"Markdown conversion and link audits"`
	Shots   SkillShotsCmd   `cmd:"" help:"Screenshot library management"`
	Install SkillInstallCmd `cmd:"" help:"Install bundled SKILL.md descriptors"`
}

// SkillDockerCmd generates container configuration.
type SkillDockerCmd struct {
	Name    string            `required:"" help:"Service name"`
	Runtime string            `help:"Service runtime (go, node, python)" default:"go"`
	Port    []int             `help:"Ports to expose (host:container 1:1)"`
	Volume  []string          `help:"Volume mounts in host:container form"`
	Env     map[string]string `help:"Environment variables"`
	Dir     string            `help:"Output directory" default:"."`
	Force   bool              `help:"Overwrite existing files"`
}

func (cmd *SkillDockerCmd) Run(_ *Global) error {
	return docker.Generate(cmd.Dir, docker.Service{
		Name:    cmd.Name,
		Runtime: cmd.Runtime,
		Ports:   cmd.Port,
		Volumes: cmd.Volume,
		Env:     cmd.Env,
	}, cmd.Force)
}

// SkillDocsCmd groups document conversion operations.
type SkillDocsCmd struct {
	Convert SkillDocsConvertCmd `cmd:"" help:"Convert markdown to a standalone HTML page"`
	Links   SkillDocsLinksCmd   `cmd:"" help:"Report outbound links in a markdown document"`
}

type SkillDocsConvertCmd struct {
	Source string `arg:"" help:"Markdown file to convert"`
	Output string `short:"o" help:"Output path (default: source with .html extension)"`
}

//nolint:forbidigo // result path is the command's output
func (cmd *SkillDocsConvertCmd) Run(_ *Global) error {
	out, err := docs.ConvertFile(cmd.Source, cmd.Output)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

type SkillDocsLinksCmd struct {
	Source string `arg:"" help:"Markdown file to audit"`
}

//nolint:forbidigo // report is the command's output
func (cmd *SkillDocsLinksCmd) Run(_ *Global) error {
	page, _, err := docs.ConvertFromPath(cmd.Source)
	if err != nil {
		return err
	}
	report, err := docs.ExtractLinks(page)
	if err != nil {
		return err
	}

	for _, l := range report.Links {
		kind := "internal"
		if l.External {
			kind = "external"
		}
		fmt.Printf("%-8s %s\n", kind, l.URL)
	}
	fmt.Printf("%d links (%d external, %d internal)\n", len(report.Links), report.External, report.Internal)
	return nil
}

// SkillShotsCmd groups screenshot library operations.
type SkillShotsCmd struct {
	Import SkillShotsImportCmd `cmd:"" help:"Copy a capture into the library (dedupes identical content)"`
	List   SkillShotsListCmd   `cmd:"" help:"List the inventory, newest first"`
	Prune  SkillShotsPruneCmd  `cmd:"" help:"Remove captures older than the retention window"`
}

func (g *Global) shotsLibrary() *shots.Library {
	return shots.NewLibrary(g.Store, g.Cfg.Skills.Shots.Dir)
}

type SkillShotsImportCmd struct {
	File string `arg:"" help:"Screenshot file to import"`
}

//nolint:forbidigo // result belongs on stdout
func (cmd *SkillShotsImportCmd) Run(g *Global) error {
	entry, imported, err := g.shotsLibrary().Import(cmd.File)
	if err != nil {
		return err
	}
	if imported {
		fmt.Printf("imported %s as %s\n", cmd.File, entry.File)
	} else {
		fmt.Printf("duplicate of %s, skipped\n", entry.File)
	}
	return nil
}

type SkillShotsListCmd struct{}

//nolint:forbidigo // listing belongs on stdout
func (cmd *SkillShotsListCmd) Run(g *Global) error {
	entries, err := g.shotsLibrary().List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %8d bytes  %s\n", e.ImportedAt.Local().Format(time.DateTime), e.Size, e.File)
	}
	return nil
}

type SkillShotsPruneCmd struct {
	Retention time.Duration `help:"Override the configured retention window"`
}

//nolint:forbidigo // result belongs on stdout
func (cmd *SkillShotsPruneCmd) Run(g *Global) error {
	retention := g.Cfg.Skills.Shots.Retention.Std()
	if cmd.Retention > 0 {
		retention = cmd.Retention
	}
	removed, err := g.shotsLibrary().Prune(retention)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d captures\n", removed)
	return nil
}

// SkillInstallCmd materializes the embedded SKILL.md descriptors.
type SkillInstallCmd struct {
	Dir string `arg:"" optional:"" help:"Target skill directory (default <home>/skills)"`
}

func (cmd *SkillInstallCmd) Run(g *Global) error {
	dir := cmd.Dir
	if dir == "" {
		dir = g.Cfg.StatePath("skills")
	}
	return skills.EnsureAll(dir)
}
