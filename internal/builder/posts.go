package builder

import (
	"fmt"
	"sort"

	"folio/internal/destination"
	"folio/internal/document"
	"folio/internal/fsutil"
	"folio/internal/logfields"
	"folio/internal/templates"
)

// SortByDate orders documents newest first. Documents with equal dates keep
// their relative order.
func SortByDate(posts []*document.Document) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date.After(posts[j].Date)
	})
}

// resolvePosts sorts the collection and assigns every document its URL,
// returning the output file of each document in the same order.
func (b *build) resolvePosts(posts []*document.Document) ([]string, error) {
	SortByDate(posts)
	dests := make([]string, len(posts))
	for i, post := range posts {
		dest, err := destination.Resolve(b.task.Dest, b.task.URL, post)
		if err != nil {
			return nil, err
		}
		dests[i] = dest
		post.URL = destination.DocumentURL(b.task.Dest, dest)
	}
	return dests, nil
}

func (b *build) generatePosts(tctx templates.Context, layout templates.Renderer, dests []string) (int, error) {
	for i, post := range tctx.Posts() {
		out, err := layout.Render(tctx.View(map[string]any{
			"post":     post,
			"baseHref": fsutil.BaseHref(post.URL),
		}))
		if err != nil {
			return i, fmt.Errorf("failed to render %s with %s: %w", post.Source, b.task.Layout, err)
		}
		if err := fsutil.WriteFile(dests[i], out); err != nil {
			return i, err
		}
		b.log.Info("Created post", logfields.Path(dests[i]))
	}
	return len(tctx.Posts()), nil
}
