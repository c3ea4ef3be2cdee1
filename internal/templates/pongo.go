package templates

import (
	"path/filepath"

	"github.com/flosch/pongo2/v6"
)

func init() {
	pongo2.RegisterFilter("titleize", func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		return pongo2.AsValue(Titleize(in.String())), nil
	})
}

// PongoEngine compiles Django syntax templates with pongo2. Includes and
// extends resolve relative to the template's directory.
type PongoEngine struct{}

func (PongoEngine) Compile(text string, opts CompileOptions) (Renderer, error) {
	set := pongo2.DefaultSet
	if opts.Filename != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(filepath.Dir(opts.Filename))
		if err != nil {
			return nil, err
		}
		set = pongo2.NewSet(opts.Filename, loader)
	}
	tpl, err := set.FromString(text)
	if err != nil {
		return nil, err
	}
	return pongoRenderer{tpl: tpl}, nil
}

type pongoRenderer struct {
	tpl *pongo2.Template
}

func (r pongoRenderer) Render(view map[string]any) (string, error) {
	return r.tpl.Execute(pongo2.Context(view))
}
