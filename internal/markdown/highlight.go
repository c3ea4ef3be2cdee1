package markdown

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter turns a fenced code block into HTML.
type Highlighter interface {
	Highlight(code, lang string) (string, error)
}

// Chroma highlights code with chroma, emitting class based markup so the
// colours come from a stylesheet (see CSS).
type Chroma struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewChroma returns a Chroma highlighter. Unknown style names fall back to
// chroma's default style.
func NewChroma(style string) *Chroma {
	return &Chroma{
		style:     styles.Get(style),
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.TabWidth(2)),
	}
}

func (c *Chroma) Highlight(code, lang string) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := c.formatter.Format(&b, c.style, iterator); err != nil {
		return "", err
	}
	return b.String(), nil
}

// CSS returns the stylesheet matching the highlighter's style.
func (c *Chroma) CSS() (string, error) {
	var b strings.Builder
	if err := c.formatter.WriteCSS(&b, c.style); err != nil {
		return "", err
	}
	return b.String(), nil
}
