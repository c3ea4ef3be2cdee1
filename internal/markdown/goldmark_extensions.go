// internal/markdown/goldmark_extensions.go
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// mdLinkTransformer rewrites relative links to markdown sources so they point
// at the generated .html files.
type mdLinkTransformer struct{}

func newMDLinkTransformer() parser.ASTTransformer {
	return &mdLinkTransformer{}
}

func (t *mdLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		link.Destination = rewriteMDLink(link.Destination)
		return ast.WalkContinue, nil
	})
}

// rewriteMDLink swaps a trailing .md for .html, keeping any fragment.
// Absolute URLs are left alone.
func rewriteMDLink(dest []byte) []byte {
	if bytes.Contains(dest, []byte("://")) || bytes.HasPrefix(dest, []byte("mailto:")) {
		return dest
	}
	target, fragment := dest, []byte(nil)
	if i := bytes.IndexByte(dest, '#'); i >= 0 {
		target, fragment = dest[:i], dest[i:]
	}
	if !bytes.HasSuffix(target, []byte(".md")) {
		return dest
	}
	out := make([]byte, 0, len(dest)+2)
	out = append(out, bytes.TrimSuffix(target, []byte(".md"))...)
	out = append(out, ".html"...)
	return append(out, fragment...)
}

// codeBlockRenderer hands fenced code blocks to a Highlighter.
type codeBlockRenderer struct {
	highlighter Highlighter
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	block := node.(*ast.FencedCodeBlock)
	lang := string(block.Language(source))

	var code bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		code.Write(line.Value(source))
	}

	highlighted, err := r.highlighter.Highlight(code.String(), lang)
	if err != nil {
		return ast.WalkStop, fmt.Errorf("failed to highlight %q code block: %w", lang, err)
	}
	_, _ = w.WriteString(highlighted)
	return ast.WalkSkipChildren, nil
}
