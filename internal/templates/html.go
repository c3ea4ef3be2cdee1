package templates

import (
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"folio/internal/destination"
)

// funcs are available to every html/template.
var funcs = template.FuncMap{
	"date": func(layout string, t time.Time) string {
		return t.Format(layout)
	},
	"slug":     destination.Slug,
	"title":    Titleize,
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
}

var wordSeparators = strings.NewReplacer("-", " ", "_", " ")

// Titleize turns a file name like "about-us" into "About Us".
func Titleize(s string) string {
	return cases.Title(language.English).String(wordSeparators.Replace(s))
}

// HTMLEngine compiles Go html/template files. Files beginning with an
// underscore next to the template, with the same extension, are parsed as
// partials and can be called with {{ template "_name.html" . }}.
type HTMLEngine struct {
	Funcs template.FuncMap
}

func (e HTMLEngine) Compile(text string, opts CompileOptions) (Renderer, error) {
	name := "template"
	if opts.Filename != "" {
		name = filepath.Base(opts.Filename)
	}
	tmpl, err := template.New(name).Funcs(funcs).Funcs(e.Funcs).Parse(text)
	if err != nil {
		return nil, err
	}

	if opts.Filename != "" && !strings.HasPrefix(name, "_") {
		ext := filepath.Ext(opts.Filename)
		partials, err := filepath.Glob(filepath.Join(filepath.Dir(opts.Filename), "_*"+ext))
		if err != nil {
			return nil, err
		}
		if len(partials) > 0 {
			if tmpl, err = tmpl.ParseFiles(partials...); err != nil {
				return nil, err
			}
		}
	}
	return htmlRenderer{tmpl: tmpl}, nil
}

type htmlRenderer struct {
	tmpl *template.Template
}

func (r htmlRenderer) Render(view map[string]any) (string, error) {
	var b strings.Builder
	if err := r.tmpl.Execute(&b, view); err != nil {
		return "", err
	}
	return b.String(), nil
}
