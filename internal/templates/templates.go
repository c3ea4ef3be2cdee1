package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnknownEngine indicates no engine is registered for a template's extension.
var ErrUnknownEngine = errors.New("no template engine registered for extension")

// CompileOptions are handed to an Engine with each template.
type CompileOptions struct {
	// Filename is the template's source path; engines use it for naming and
	// to resolve partials or includes next to it.
	Filename string
}

// Engine compiles template text into a Renderer.
type Engine interface {
	Compile(text string, opts CompileOptions) (Renderer, error)
}

// Renderer applies a compiled template to a view.
type Renderer interface {
	Render(view map[string]any) (string, error)
}

// Registry maps file extensions to engines.
type Registry struct {
	engines map[string]Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// DefaultRegistry knows Go's html/template and the Django syntax of pongo2.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(HTMLEngine{}, ".html", ".gohtml", ".tmpl")
	r.Register(PongoEngine{}, ".django", ".pongo", ".j2")
	return r
}

// Register binds e to each extension, with or without the leading dot.
func (r *Registry) Register(e Engine, exts ...string) {
	for _, ext := range exts {
		r.engines[normalizeExt(ext)] = e
	}
}

// Lookup returns the engine for the extension of filename.
func (r *Registry) Lookup(filename string) (Engine, error) {
	ext := normalizeExt(filepath.Ext(filename))
	if e, ok := r.engines[ext]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w %q (%s), known: %s", ErrUnknownEngine, ext, filename, strings.Join(r.Extensions(), ", "))
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.engines))
	for ext := range r.engines {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// CompileFile reads and compiles the template at path with the engine picked
// by its extension.
func (r *Registry) CompileFile(path string) (Renderer, error) {
	engine, err := r.Lookup(path)
	if err != nil {
		return nil, err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read template %s: %w", path, err)
	}
	renderer, err := engine.Compile(string(text), CompileOptions{Filename: path})
	if err != nil {
		return nil, fmt.Errorf("failed to compile template %s: %w", path, err)
	}
	return renderer, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
