package builder

import (
	"fmt"
	"path/filepath"
	"strings"

	"folio/internal/fsutil"
	"folio/internal/logfields"
	"folio/internal/templates"
)

// generatePages renders every template under the page source directory
// except the paginated list page, partials (leading underscore) and, when a
// template engine filter is set, files of other extensions.
func (b *build) generatePages(tctx templates.Context) (int, error) {
	pageSrc := b.task.Options.PageSrc
	var listPage string
	if p := b.task.Options.Pagination; p != nil {
		listPage = filepath.Clean(p.ListPage)
	}
	filter := strings.TrimPrefix(b.task.Options.TemplateEngine, ".")

	count := 0
	err := fsutil.WalkFiles(pageSrc, func(path, rel string) error {
		name := filepath.Base(path)
		ext := filepath.Ext(name)
		switch {
		case strings.HasPrefix(name, "_"):
			return nil
		case filepath.Clean(path) == listPage:
			return nil
		case filter != "" && !strings.EqualFold(ext, "."+filter):
			return nil
		}

		tmpl, err := b.opts.Engines.CompileFile(path)
		if err != nil {
			return err
		}
		relHTML := strings.TrimSuffix(rel, ext) + ".html"
		dest := filepath.Join(b.task.Dest, relHTML)
		out, err := tmpl.Render(tctx.View(map[string]any{
			"currentPage": strings.TrimSuffix(name, ext),
			"baseHref":    fsutil.BaseHref(filepath.ToSlash(relHTML)),
		}))
		if err != nil {
			return fmt.Errorf("failed to render page %s: %w", path, err)
		}
		if err := fsutil.WriteFile(dest, out); err != nil {
			return err
		}
		b.log.Info("Created page", logfields.Path(dest))
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to generate pages from %s: %w", pageSrc, err)
	}
	return count, nil
}
