// Package statusline renders a one-line status summary for the host's
// status bar. Every data source is read through short-timeout locked reads;
// a contended or stale source drops its segment instead of blocking the
// render, because the host redraws the line on a tight cadence.
package statusline

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-git/go-git/v5"

	"github.com/oddrun/sidekick/internal/config"
	"github.com/oddrun/sidekick/internal/hooks"
	"github.com/oddrun/sidekick/internal/nightshift"
	"github.com/oddrun/sidekick/internal/progress"
	"github.com/oddrun/sidekick/internal/txstate"
)

var defaultSegments = []string{"session", "progress", "git", "nightshift"}

var (
	sessionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	progressStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#98C379"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	gitStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C678DD"))
	nightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
)

// Renderer assembles the statusline from shared state files and the
// repository under the current working directory.
type Renderer struct {
	store   *txstate.Store
	cfg     config.StatuslineConfig
	repoDir string
	now     func() time.Time
}

// New creates a renderer. repoDir is where the git segment looks for a
// repository (usually the host's cwd).
func New(store *txstate.Store, cfg config.StatuslineConfig, repoDir string) *Renderer {
	return &Renderer{store: store, cfg: cfg, repoDir: repoDir, now: time.Now}
}

// Render produces the full line. Missing or degraded segments are simply
// omitted; an empty string means nothing worth showing.
func (r *Renderer) Render() string {
	names := r.cfg.Segments
	if len(names) == 0 {
		names = defaultSegments
	}

	var parts []string
	for _, name := range names {
		if text, ok := r.segment(name); ok {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return ""
	}

	sep := " | "
	if !r.cfg.Plain {
		sep = separatorStyle.Render(" │ ")
	}
	return strings.Join(parts, sep)
}

func (r *Renderer) segment(name string) (string, bool) {
	switch name {
	case "session":
		return r.sessionSegment()
	case "progress":
		return r.progressSegment()
	case "git":
		return r.gitSegment()
	case "nightshift":
		return r.nightshiftSegment()
	default:
		return "", false
	}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.cfg.Plain {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) sessionSegment() (string, bool) {
	state, err := txstate.ReadTimeout(r.store, hooks.SessionStateFile, hooks.SessionState{}, r.cfg.ReadTimeout.Std())
	if err != nil || !state.Active || state.SessionID == "" {
		return "", false
	}
	id := state.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return r.style(sessionStyle, "◉ "+id), true
}

func (r *Renderer) progressSegment() (string, bool) {
	tracker := progress.NewTracker(r.store, progress.StateFile)
	snap, err := tracker.Snapshot(r.cfg.ReadTimeout.Std(), r.cfg.Staleness.Std())
	if err != nil || snap.Stale || snap.Phase == "" {
		return "", false
	}
	if snap.Failed {
		text := "✗ " + snap.Phase
		if snap.Message != "" {
			text += ": " + snap.Message
		}
		return r.style(failedStyle, text), true
	}
	if snap.Total > 0 {
		return r.style(progressStyle, fmt.Sprintf("%s %d/%d %s",
			snap.Phase, snap.Iteration, snap.Total, bar(snap.Iteration, snap.Total))), true
	}
	return r.style(progressStyle, fmt.Sprintf("%s (%d)", snap.Phase, snap.Iteration)), true
}

const barWidth = 10

func bar(iteration, total int) string {
	filled := iteration * barWidth / total
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▮", filled) + strings.Repeat("▯", barWidth-filled)
}

func (r *Renderer) gitSegment() (string, bool) {
	repo, err := git.PlainOpenWithOptions(r.repoDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	head, err := repo.Head()
	if err != nil {
		return "", false
	}
	name := head.Hash().String()[:8]
	if head.Name().IsBranch() {
		name = head.Name().Short()
	}
	return r.style(gitStyle, "⎇ "+name), true
}

func (r *Renderer) nightshiftSegment() (string, bool) {
	state, err := txstate.ReadTimeout(r.store, nightshift.RunStateFile, nightshift.RunState{}, r.cfg.ReadTimeout.Std())
	if err != nil || len(state.Tasks) == 0 {
		return "", false
	}

	var lastName string
	var last nightshift.TaskRun
	for name, run := range state.Tasks {
		if run.LastFinishedAt.After(last.LastFinishedAt) {
			lastName, last = name, run
		}
	}
	if lastName == "" {
		return "", false
	}

	text := fmt.Sprintf("☾ %s %s %s", lastName, last.LastOutcome, ageString(r.now().Sub(last.LastFinishedAt)))
	if last.LastOutcome == "failed" {
		return r.style(failedStyle, text), true
	}
	return r.style(nightStyle, text), true
}

func ageString(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
