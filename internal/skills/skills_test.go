package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureWritesDescriptor(t *testing.T) {
	dir := t.TempDir()
	path, err := Ensure(dir, Docker)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "docker", "SKILL.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: docker")
}

func TestEnsureUnknownSkill(t *testing.T) {
	_, err := Ensure(t.TempDir(), Slug("nope"))
	require.Error(t, err)
}

func TestEnsureEmptyBaseDir(t *testing.T) {
	_, err := Ensure("", Docker)
	require.Error(t, err)
}

func TestEnsureAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnsureAll(dir))
	for _, slug := range All {
		_, err := os.Stat(filepath.Join(dir, string(slug), "SKILL.md"))
		assert.NoError(t, err, "skill %s", slug)
	}
}
