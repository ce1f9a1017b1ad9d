package docs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# Release Notes

Some *formatted* text with a [link](https://example.com/page) and a
[local one](./other.md).

| a | b |
|---|---|
| 1 | 2 |
`

func TestConvertRendersGFM(t *testing.T) {
	page, title, err := Convert([]byte(sample), "release-notes.md")
	require.NoError(t, err)

	assert.Equal(t, "Release Notes", title)
	out := string(page)
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "<title>Release Notes</title>")
	assert.Contains(t, out, "<em>formatted</em>")
	// Tables come from the GFM extension, not core CommonMark.
	assert.Contains(t, out, "<table>")
}

func TestConvertFileDerivesOutputPath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(src, []byte(sample), 0o644))

	out, err := ConvertFile(src, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "notes.html"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>Release Notes</title>")
}

func TestConvertFileMissingSource(t *testing.T) {
	_, err := ConvertFile(filepath.Join(t.TempDir(), "missing.md"), "")
	require.Error(t, err)
}

func TestTitleFallback(t *testing.T) {
	assert.Equal(t, "Release Notes", Title([]byte("no headings here"), "release-notes.md"))
	assert.Equal(t, "My Doc", Title([]byte(""), "my_doc.md"))
	assert.Equal(t, "Untitled", Title([]byte(""), ""))
	// A heading wins over the file name.
	assert.Equal(t, "Actual", Title([]byte("intro\n\n# Actual\n"), "other.md"))
}

func TestExtractLinksClassifies(t *testing.T) {
	page, _, err := Convert([]byte(sample), "sample.md")
	require.NoError(t, err)

	report, err := ExtractLinks(page)
	require.NoError(t, err)

	require.Len(t, report.Links, 2)
	assert.Equal(t, "https://example.com/page", report.Links[0].URL)
	assert.Equal(t, "link", report.Links[0].Text)
	assert.True(t, report.Links[0].External)
	assert.Equal(t, "./other.md", report.Links[1].URL)
	assert.False(t, report.Links[1].External)
	assert.Equal(t, 1, report.External)
	assert.Equal(t, 1, report.Internal)
}

func TestExtractLinksSkipsFragments(t *testing.T) {
	report, err := ExtractLinks([]byte(`<p><a href="#top">top</a><img src="shot.png" alt="shot"></p>`))
	require.NoError(t, err)
	require.Len(t, report.Links, 1)
	assert.Equal(t, "shot.png", report.Links[0].URL)
	assert.Equal(t, "shot", report.Links[0].Text)
}
