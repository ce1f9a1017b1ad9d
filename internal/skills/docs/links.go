package docs

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/oddrun/sidekick/internal/errors"
)

// Link is one outbound reference found in a rendered document.
type Link struct {
	URL      string
	Text     string
	External bool
}

// Report summarizes a link audit.
type Report struct {
	Links    []Link
	External int
	Internal int
}

// ExtractLinks walks rendered HTML and collects anchor and image
// references. Fragment-only links are skipped.
func ExtractLinks(page []byte) (*Report, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, errors.SkillError("docs", "parse HTML", err)
	}

	report := &Report{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				if href := attrValue(n, "href"); href != "" && !strings.HasPrefix(href, "#") {
					report.add(Link{URL: href, Text: nodeText(n), External: isExternal(href)})
				}
			case "img":
				if src := attrValue(n, "src"); src != "" {
					report.add(Link{URL: src, Text: attrValue(n, "alt"), External: isExternal(src)})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return report, nil
}

func (r *Report) add(l Link) {
	r.Links = append(r.Links, l)
	if l.External {
		r.External++
	} else {
		r.Internal++
	}
}

func isExternal(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "//")
}

func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
