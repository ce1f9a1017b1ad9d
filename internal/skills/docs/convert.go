// Package docs converts markdown documents to standalone HTML pages and
// audits their outbound links.
package docs

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/oddrun/sidekick/internal/errors"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .Title }}</title>
<style>
body { max-width: 48rem; margin: 2rem auto; padding: 0 1rem; font-family: system-ui, sans-serif; line-height: 1.6; }
pre { background: #f5f5f5; padding: 1rem; overflow-x: auto; }
code { font-family: ui-monospace, monospace; }
</style>
</head>
<body>
{{ .Body }}
</body>
</html>
`))

// Convert renders markdown source into a standalone HTML page. name seeds
// the title fallback when the document has no heading.
func Convert(source []byte, name string) (page []byte, title string, err error) {
	var body bytes.Buffer
	if err := md.Convert(source, &body); err != nil {
		return nil, "", errors.SkillError("docs", "render markdown", err)
	}

	title = Title(source, name)
	var out bytes.Buffer
	err = pageTemplate.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(body.String())})
	if err != nil {
		return nil, "", errors.SkillError("docs", "render page", err)
	}
	return out.Bytes(), title, nil
}

// ConvertFromPath reads and renders srcPath without writing anything.
func ConvertFromPath(srcPath string) ([]byte, string, error) {
	source, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, "", errors.SkillError("docs", fmt.Sprintf("read %s", srcPath), err)
	}
	return Convert(source, filepath.Base(srcPath))
}

// ConvertFile converts srcPath and writes the page to dstPath. An empty
// dstPath derives the output name from the source (extension swapped for
// .html). Returns the output path.
func ConvertFile(srcPath, dstPath string) (string, error) {
	page, _, err := ConvertFromPath(srcPath)
	if err != nil {
		return "", err
	}
	if dstPath == "" {
		dstPath = strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + ".html"
	}
	if err := os.WriteFile(dstPath, page, 0o644); err != nil {
		return "", errors.SkillError("docs", fmt.Sprintf("write %s", dstPath), err)
	}
	return dstPath, nil
}

var titleCaser = cases.Title(language.English)

// Title returns the first top-level heading, or a title-cased version of
// the file name when the document has none.
func Title(source []byte, fallback string) string {
	for _, line := range strings.Split(string(source), "\n") {
		trimmed := strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(trimmed, "# "); ok {
			return strings.TrimSpace(after)
		}
	}

	name := strings.TrimSuffix(fallback, filepath.Ext(fallback))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	name = strings.TrimSpace(name)
	if name == "" {
		return "Untitled"
	}
	return titleCaser.String(name)
}
