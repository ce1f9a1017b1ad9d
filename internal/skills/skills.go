// Package skills bundles the task-specific tools the assistant invokes on
// demand, together with their SKILL.md descriptors. The descriptors are
// embedded so `skill install` can materialize them into the host's skill
// directory without a network fetch.
package skills

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// Slug identifies a bundled skill by its canonical folder name.
type Slug string

const (
	Docker Slug = "docker"
	Docs   Slug = "docs"
	Shots  Slug = "shots"
)

// All lists the bundled skills in display order.
var All = []Slug{Docker, Docs, Shots}

//go:embed library/*/SKILL.md
var bundled embed.FS

// Ensure writes the requested skill descriptor into baseDir and returns the
// on-disk path.
func Ensure(baseDir string, slug Slug) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("skills: base directory is empty")
	}
	data, err := bundled.ReadFile(path.Join("library", string(slug), "SKILL.md"))
	if err != nil {
		return "", fmt.Errorf("skill %s is not bundled: %w", slug, err)
	}
	targetDir := filepath.Join(baseDir, string(slug))
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to prepare skill directory %s: %w", targetDir, err)
	}
	targetPath := filepath.Join(targetDir, "SKILL.md")
	if err := os.WriteFile(targetPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write skill %s: %w", slug, err)
	}
	return targetPath, nil
}

// EnsureAll installs every bundled skill descriptor under baseDir.
func EnsureAll(baseDir string) error {
	for _, slug := range All {
		if _, err := Ensure(baseDir, slug); err != nil {
			return err
		}
	}
	return nil
}
