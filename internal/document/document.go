// internal/document/document.go
package document

import (
	"errors"
	"fmt"
	"html/template"
	"time"
)

var (
	// ErrMalformedMetadata indicates the leading bytes of a source file match
	// neither metadata encoding, or the metadata block does not parse.
	ErrMalformedMetadata = errors.New("metadata is formatted incorrectly")

	// ErrEmptyDocument indicates nothing meaningful is left once the metadata
	// has been stripped.
	ErrEmptyDocument = errors.New("document is blank, add some content to it or delete it")
)

// ParseError ties a parse failure to the source file it came from.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Document is one source content unit. Markdown holds the raw body until the
// document is rendered; after SetContent only Content is populated.
type Document struct {
	Metadata map[string]any
	Date     time.Time
	Markdown string
	Content  template.HTML
	URL      string
	Source   string
}

// Get returns a metadata value, or nil when the key is absent.
func (d *Document) Get(key string) any {
	return d.Metadata[key]
}

// Title returns the title metadata as a string.
func (d *Document) Title() string {
	if s, ok := d.Metadata["title"].(string); ok {
		return s
	}
	return ""
}

// SetContent attaches rendered HTML and drops the raw body.
func (d *Document) SetContent(html template.HTML) {
	d.Content = html
	d.Markdown = ""
}
