// internal/destination/destination.go
package destination

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"folio/internal/document"
)

var (
	// ErrMissingURLSegment indicates the url template names a metadata key the
	// document does not define.
	ErrMissingURLSegment = errors.New("required url attribute not found in metadata")

	// ErrInvalidListPagePath indicates the pagination list page lies outside
	// the page source directory.
	ErrInvalidListPagePath = errors.New("the list page must be within the page source directory")
)

var (
	dynamicSegment = regexp.MustCompile(`:([A-Za-z0-9_]+)`)
	unsafeChars    = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// Slug replaces every character outside [a-zA-Z0-9] with a hyphen.
func Slug(s string) string {
	return unsafeChars.ReplaceAllString(s, "-")
}

// Resolve maps a document onto its output file below dest. Each `:key` marker
// in urlTemplate is replaced by the slug of the document's metadata value.
func Resolve(dest, urlTemplate string, doc *document.Document) (string, error) {
	var missing string
	resolved := dynamicSegment.ReplaceAllStringFunc(urlTemplate, func(marker string) string {
		key := marker[1:]
		v, ok := doc.Metadata[key]
		if !ok || v == nil {
			if missing == "" {
				missing = key
			}
			return marker
		}
		return Slug(stringify(v))
	})
	if missing != "" {
		return "", fmt.Errorf("%w: %q in %s", ErrMissingURLSegment, missing, doc.Source)
	}
	return filepath.Join(dest, filepath.FromSlash(resolved)+".html"), nil
}

// Relative returns p as a slash separated URL path rooted at dest.
func Relative(dest, p string) string {
	rel, err := filepath.Rel(dest, p)
	if err != nil {
		rel = p
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "/"
	}
	return "/" + strings.TrimPrefix(rel, "/")
}

// DocumentURL returns p relative to dest in slash form, without a leading
// slash: public/blog/a.html becomes blog/a.html.
func DocumentURL(dest, p string) string {
	return strings.TrimPrefix(Relative(dest, p), "/")
}

// DirURL returns the URL of the directory holding p, with a trailing slash.
func DirURL(dest, p string) string {
	u := Relative(dest, filepath.Dir(p))
	if u == "/" {
		return u
	}
	return u + "/"
}

// Within reports whether p lies inside root.
func Within(root, p string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ListPage returns the output file of the n-th (0-based) paginated list page.
// Without a page source the pages live at dest/index.html and
// dest/page/<n>/index.html. With one, they mirror the list page template's
// position inside pageSrc.
func ListPage(dest, pageSrc, listPage string, n int) (string, error) {
	if pageSrc == "" {
		if n == 0 {
			return filepath.Join(dest, "index.html"), nil
		}
		return filepath.Join(dest, "page", strconv.Itoa(n), "index.html"), nil
	}

	if !Within(pageSrc, listPage) {
		return "", fmt.Errorf("%w: %s is not inside %s", ErrInvalidListPagePath, listPage, pageSrc)
	}
	rel, err := filepath.Rel(filepath.Clean(pageSrc), filepath.Clean(listPage))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidListPagePath, err)
	}
	root := filepath.Join(dest, rel)
	if n == 0 {
		return strings.TrimSuffix(root, filepath.Ext(root)) + ".html", nil
	}
	return filepath.Join(filepath.Dir(root), "page", strconv.Itoa(n), "index.html"), nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format("2006-01-02")
	default:
		return fmt.Sprint(val)
	}
}
