// internal/document/parse.go
package document

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// yamlDelimiter separates the preamble, the metadata block and the body.
const yamlDelimiter = "----"

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse turns the raw text of a source file into a Document with Metadata,
// Date and Markdown populated. The encoding is picked from the first
// non-whitespace characters: a `{...}` header or a `----` delimited block.
func Parse(path string, raw []byte) (*Document, error) {
	text := string(raw)
	lead := strings.TrimLeftFunc(text, unicode.IsSpace)

	var (
		meta map[string]any
		body string
		err  error
	)
	switch {
	case strings.HasPrefix(lead, "{"):
		meta, body, err = parseLiteralHeader(lead)
	case strings.HasPrefix(lead, yamlDelimiter):
		meta, body, err = parseDelimited(text)
	default:
		err = fmt.Errorf("%w: expected a {...} header or a %s block", ErrMalformedMetadata, yamlDelimiter)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	date, err := coerceDate(meta)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	if utf8.RuneCountInString(body) <= 1 {
		return nil, &ParseError{Path: path, Err: ErrEmptyDocument}
	}

	return &Document{
		Metadata: meta,
		Date:     date,
		Markdown: body,
		Source:   path,
	}, nil
}

// parseLiteralHeader reads the first balanced {...} block as a flow mapping.
// YAML flow syntax accepts JSON as well as unquoted keys.
func parseLiteralHeader(text string) (map[string]any, string, error) {
	end, err := matchingBrace(text)
	if err != nil {
		return nil, "", err
	}
	meta, err := parseMetadata(text[:end+1])
	if err != nil {
		return nil, "", err
	}
	return meta, text[end+1:], nil
}

func parseDelimited(text string) (map[string]any, string, error) {
	sections := strings.Split(text, yamlDelimiter)
	if len(sections) < 3 {
		return nil, "", fmt.Errorf("%w: closing %s delimiter is missing", ErrMalformedMetadata, yamlDelimiter)
	}
	meta, err := parseMetadata(sections[1])
	if err != nil {
		return nil, "", err
	}
	return meta, strings.Join(sections[2:], yamlDelimiter), nil
}

func parseMetadata(block string) (map[string]any, error) {
	var meta map[string]any
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta, nil
}

// matchingBrace returns the index of the brace closing the one at text[0].
// Braces inside quoted strings do not count. A quote only opens a string
// where a flow value or key can start, so apostrophes in plain scalars such
// as {title: Don't panic} are ordinary characters.
func matchingBrace(text string) (int, error) {
	depth := 0
	var quote, prev byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch {
			case quote == '"' && c == '\\':
				i++
			case quote == '\'' && c == '\'' && i+1 < len(text) && text[i+1] == '\'':
				i++
			case c == quote:
				quote = 0
				prev = c
			}
			continue
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '"', '\'':
			if opensString(prev) {
				quote = c
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
		prev = c
	}
	return -1, fmt.Errorf("%w: unbalanced braces in metadata header", ErrMalformedMetadata)
}

func opensString(prev byte) bool {
	switch prev {
	case '{', '[', ',', ':':
		return true
	}
	return false
}

// coerceDate normalises meta["date"] to a time.Time in place.
func coerceDate(meta map[string]any) (time.Time, error) {
	v, ok := meta["date"]
	if !ok || v == nil {
		return time.Time{}, nil
	}
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				meta["date"] = t
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot read date %v, use YYYY-MM-DD or RFC 3339", ErrMalformedMetadata, v)
}
