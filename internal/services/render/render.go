package render

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// videoHosts maps the hosts we recognise as workout videos to a provider name
var videoHosts = map[string]string{
	"youtube.com": "youtube",
	"youtu.be":    "youtube",
	"vimeo.com":   "vimeo",
}

// Recommendation is a workout video the assistant linked to
type Recommendation struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

// Renderer turns assistant replies into HTML. Raw HTML in replies is never
// passed through.
type Renderer struct {
	md goldmark.Markdown
}

func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithASTTransformers(util.Prioritized(externalLinks{}, 100)),
			),
		),
	}
}

// Markdown renders text to HTML. Links open in a new tab.
func (r *Renderer) Markdown(content string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Recommendation returns the first video link in content, or nil.
func (r *Renderer) Recommendation(content string) *Recommendation {
	source := []byte(content)
	doc := r.md.Parser().Parse(text.NewReader(source))

	var found *Recommendation
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		var link, title string
		switch node := n.(type) {
		case *ast.Link:
			link = string(node.Destination)
			title = plainText(node, source)
		case *ast.AutoLink:
			link = string(node.URL(source))
		default:
			return ast.WalkContinue, nil
		}

		provider, ok := videoProvider(link)
		if !ok {
			return ast.WalkSkipChildren, nil
		}
		if title == "" {
			title = link
		}
		found = &Recommendation{Title: title, URL: link, Provider: provider}
		return ast.WalkStop, nil
	})
	return found
}

func videoProvider(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	provider, ok := videoHosts[host]
	return provider, ok
}

func plainText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := child.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
				if t.SoftLineBreak() {
					buf.WriteByte(' ')
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// externalLinks marks every link to open in a new browsing context
type externalLinks struct{}

func (externalLinks) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Link, *ast.AutoLink:
			n.SetAttributeString("target", []byte("_blank"))
			n.SetAttributeString("rel", []byte("noopener noreferrer"))
		}
		return ast.WalkContinue, nil
	})
}
