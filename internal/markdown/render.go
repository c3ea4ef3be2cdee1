// internal/markdown/render.go
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Renderer converts a markdown body to HTML.
type Renderer interface {
	Render(ctx context.Context, source []byte) (template.HTML, error)
}

// Options mirror the switches of the markdown collaborator.
type Options struct {
	// GFM enables GitHub flavoured markdown (tables, strikethrough, autolinks, task lists).
	GFM bool
	// Anchors gives every heading an id attribute.
	Anchors bool
	// Unsafe disables HTML sanitization of the rendered output.
	Unsafe bool
}

// Goldmark is the goldmark backed Renderer.
type Goldmark struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// New builds a Goldmark renderer. Fenced code blocks go through hl when it
// is not nil.
func New(opts Options, hl Highlighter) *Goldmark {
	extensions := []goldmark.Extender{extension.Footnote}
	if opts.GFM {
		extensions = append(extensions, extension.GFM)
	}

	parserOptions := []parser.Option{
		parser.WithASTTransformers(
			util.Prioritized(newMDLinkTransformer(), 100),
		),
	}
	if opts.Anchors {
		parserOptions = append(parserOptions, parser.WithAutoHeadingID())
	}

	rendererOptions := []renderer.Option{html.WithUnsafe()}
	if hl != nil {
		rendererOptions = append(rendererOptions, renderer.WithNodeRenderers(
			util.Prioritized(&codeBlockRenderer{highlighter: hl}, 100),
		))
	}

	g := &Goldmark{
		md: goldmark.New(
			goldmark.WithExtensions(extensions...),
			goldmark.WithParserOptions(parserOptions...),
			goldmark.WithRendererOptions(rendererOptions...),
		),
	}
	if !opts.Unsafe {
		g.sanitizer = newSanitizer()
	}
	return g
}

// Render converts source to HTML. The context is checked before the work
// starts so a cancelled build does not render further documents.
func (g *Goldmark) Render(ctx context.Context, source []byte) (template.HTML, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var htmlBuffer bytes.Buffer
	if err := g.md.Convert(source, &htmlBuffer); err != nil {
		return "", fmt.Errorf("failed to render markdown with goldmark: %w", err)
	}

	if g.sanitizer != nil {
		return template.HTML(g.sanitizer.SanitizeBytes(htmlBuffer.Bytes())), nil
	}
	return template.HTML(htmlBuffer.String()), nil
}

// newSanitizer keeps user generated content markup plus the class attributes
// emitted by the highlighter.
func newSanitizer() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()
	return policy
}
