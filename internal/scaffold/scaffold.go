// internal/scaffold/scaffold.go
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"folio/internal/config"
	"folio/internal/destination"
	"folio/internal/fsutil"
)

// ErrExists indicates a scaffold would overwrite an existing file.
var ErrExists = errors.New("file already exists")

// CreateNewSite writes a starter site into root: a folio.yaml with one blog
// task, its layout and pages, a first post and the injected data file. It
// returns the files written.
func CreateNewSite(root string) ([]string, error) {
	if _, err := os.Stat(filepath.Join(root, config.DefaultFile)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, filepath.Join(root, config.DefaultFile))
	}

	files := []struct{ path, content string }{
		{config.DefaultFile, siteConfigContent},
		{"layouts/post.html", layoutPostContent},
		{"layouts/_head.html", layoutHeadContent},
		{"pages/index.html", pageIndexContent},
		{"pages/about.html", pageAboutContent},
		{"posts/hello-world.md", helloWorldContent},
		{"data/site.json", siteDataContent},
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f.path))
		if err := fsutil.WriteFile(p, f.content); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}

var archetype = template.Must(template.New("archetype").Parse(archetypeContent))

// CreateNewPost writes a post titled title into src, named after
// the slug of the title. Existing files are never overwritten.
func CreateNewPost(src, title string, now time.Time) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.New("a post needs a title")
	}
	name := strings.ToLower(strings.Trim(destination.Slug(title), "-"))
	if name == "" {
		name = now.Format("20060102-150405")
	}
	p := filepath.Join(src, name+".md")
	if _, err := os.Stat(p); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, p)
	}

	var out bytes.Buffer
	err := archetype.Execute(&out, struct {
		Title string
		Date  string
	}{
		Title: title,
		Date:  now.Format("2006-01-02"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute archetype template: %w", err)
	}
	if err := fsutil.WriteFile(p, out.String()); err != nil {
		return "", err
	}
	return p, nil
}

const siteConfigContent = `# Paths are relative to this file.
concurrency: 0
tasks:
  blog:
    src: posts
    dest: public
    url: blog/:title
    layout: layouts/post.html
    options:
      data: data/site.json
      pageSrc: pages
      templateEngine: html
      pagination:
        postsPerPage: 5
        listPage: pages/index.html
      markdown:
        codeStyle: github
`

const archetypeContent = `----
title: {{ printf "%q" .Title }}
date: {{ .Date }}
----
Write something meaningful here.
`

const helloWorldContent = `----
title: Hello World
date: 2024-01-01
tags: [intro]
----
Welcome to your new site. Posts live in ` + "`posts/`" + ` and are rendered with
` + "`layouts/post.html`" + `.

~~~go
package main

func main() {
	println("hello")
}
~~~

Read more [about this site](about.md).
`

const siteDataContent = `{
  "title": "My Folio",
  "description": "A new site built with folio."
}
`

const layoutHeadContent = `<head>
  <meta charset="utf-8">
  <base href="{{ .baseHref }}">
  <title>{{ if .post }}{{ .post.Title }} | {{ end }}{{ .data.title }}</title>
  <meta name="description" content="{{ .data.description }}">
</head>`

const layoutPostContent = `<!DOCTYPE html>
<html>
{{ template "_head.html" . }}
<body>
  <article>
    <h1>{{ .post.Title }}</h1>
    <time>{{ date "January 2, 2006" .post.Date }}</time>
    {{ .post.Content }}
  </article>
  <footer><a href="index.html">home</a></footer>
</body>
</html>
`

const pageIndexContent = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{ .data.title }}</title></head>
<body>
  <h1>{{ .data.title }}</h1>
  <ul>
  {{ range .posts }}
    <li><a href="{{ $.baseHref }}{{ .URL }}">{{ .Title }}</a></li>
  {{ end }}
  </ul>
  <nav>
  {{ range $i, $p := .pages }}
    {{ if $p.CurrentPage }}<strong>{{ $i }}</strong>{{ else }}<a href="{{ $p.URL }}">{{ $i }}</a>{{ end }}
  {{ end }}
  </nav>
</body>
</html>
`

const pageAboutContent = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{ title .currentPage }} | {{ .data.title }}</title></head>
<body>
  <h1>{{ title .currentPage }}</h1>
  <p>{{ .data.description }} There are {{ len .posts }} posts.</p>
</body>
</html>
`
