package builder

import (
	"fmt"
	"path/filepath"

	"folio/internal/destination"
	"folio/internal/document"
	"folio/internal/fsutil"
	"folio/internal/logfields"
	"folio/internal/templates"
)

// PageLink is one entry of the navigation handed to list pages.
type PageLink struct {
	URL         string
	CurrentPage bool
}

// Partition splits posts into consecutive groups of size; the last group may
// be shorter. No posts means no groups.
func Partition(posts []*document.Document, size int) [][]*document.Document {
	if size < 1 {
		return nil
	}
	var groups [][]*document.Document
	for start := 0; start < len(posts); start += size {
		end := min(start+size, len(posts))
		groups = append(groups, posts[start:end])
	}
	return groups
}

// Navigation returns a copy of links with only the entry at current flagged.
func Navigation(links []PageLink, current int) []PageLink {
	nav := make([]PageLink, len(links))
	copy(nav, links)
	nav[current].CurrentPage = true
	return nav
}

func (b *build) paginate(tctx templates.Context) (int, error) {
	p := b.task.Options.Pagination
	groups := Partition(tctx.Posts(), p.PostsPerPage)
	if len(groups) == 0 {
		return 0, nil
	}

	dests := make([]string, len(groups))
	links := make([]PageLink, len(groups))
	for i := range groups {
		dest, err := destination.ListPage(b.task.Dest, b.task.Options.PageSrc, p.ListPage, i)
		if err != nil {
			return 0, err
		}
		dests[i] = dest
		links[i] = PageLink{URL: destination.DirURL(b.task.Dest, dest)}
	}

	tmpl, err := b.opts.Engines.CompileFile(p.ListPage)
	if err != nil {
		return 0, err
	}

	for i, group := range groups {
		rel, err := filepath.Rel(b.task.Dest, dests[i])
		if err != nil {
			return i, err
		}
		out, err := tmpl.Render(tctx.View(map[string]any{
			"pages":      Navigation(links, i),
			"posts":      group,
			"pageNumber": i,
			"baseHref":   fsutil.BaseHref(filepath.ToSlash(rel)),
		}))
		if err != nil {
			return i, fmt.Errorf("failed to render list page %d with %s: %w", i, p.ListPage, err)
		}
		if err := fsutil.WriteFile(dests[i], out); err != nil {
			return i, err
		}
		b.log.Info("Created list page", logfields.Path(dests[i]))
	}
	return len(groups), nil
}
