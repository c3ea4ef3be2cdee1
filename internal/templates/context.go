package templates

import "folio/internal/document"

// Context is the data shared by every render of a build. It is never
// modified; each render gets its own view.
type Context struct {
	posts []*document.Document
	data  any
}

// NewContext captures the document collection and the injected data.
func NewContext(posts []*document.Document, data any) Context {
	return Context{posts: posts, data: data}
}

// Posts returns the full document collection.
func (c Context) Posts() []*document.Document {
	return c.posts
}

// View returns a fresh map with posts and data plus the per-render extras.
// Extras win over the shared keys.
func (c Context) View(extra map[string]any) map[string]any {
	view := make(map[string]any, len(extra)+2)
	view["posts"] = c.posts
	view["data"] = c.data
	for k, v := range extra {
		view[k] = v
	}
	return view
}
