package builder

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/config"
	"folio/internal/destination"
	"folio/internal/document"
	"folio/internal/markdown"
	"folio/internal/templates"
)

// recordingEngine captures every view it is asked to render.
type recordingEngine struct {
	mu    sync.Mutex
	views []map[string]any
}

func (e *recordingEngine) Compile(string, templates.CompileOptions) (templates.Renderer, error) {
	return e, nil
}

func (e *recordingEngine) Render(view map[string]any) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.views = append(e.views, view)
	return "rendered", nil
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(b)
}

func quietOptions(engines *templates.Registry) Options {
	return Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Engines: engines,
	}
}

func post(title, date string) string {
	return fmt.Sprintf("{\"title\": %q, \"date\": %q}\nBody of %s.\n", title, date, title)
}

// sevenPosts returns posts dated 2020-01-01 .. 2020-01-07 named "Post 1".."Post 7".
func sevenPosts() map[string]string {
	files := map[string]string{}
	for i := 1; i <= 7; i++ {
		files[fmt.Sprintf("posts/p%d.md", i)] = post(fmt.Sprintf("Post %d", i), fmt.Sprintf("2020-01-0%d", i))
	}
	return files
}

func TestBuild_FullSite(t *testing.T) {
	root := t.TempDir()
	files := sevenPosts()
	files["posts/_draft.md"] = post("Draft", "2020-02-01")
	files["posts/.hidden.md"] = post("Hidden", "2020-02-01")
	files["layouts/post.html"] = `<h1>{{ .post.Title }}</h1>{{ .post.Content }}<p>{{ .data.site }}</p><base href="{{ .baseHref }}">` +
		`<ul>{{ range .posts }}<li>{{ .URL }}</li>{{ end }}</ul>`
	files["pages/index.html"] = `{{ range .pages }}{{ if .CurrentPage }}[{{ .URL }}]{{ else }}{{ .URL }}{{ end }} {{ end }}|` +
		`{{ range .posts }}{{ .Title }};{{ end }}`
	files["pages/about.html"] = `<p>{{ .currentPage }} {{ len .posts }} {{ .data.site }}</p>`
	files["pages/team/people.html"] = `<p>{{ .currentPage }}</p><a href="{{ .baseHref }}">up</a>`
	files["pages/_header.html"] = `never rendered on its own`
	files["pages/.notes.html"] = `hidden`
	files["data/site.json"] = `{"site": "My Site"}`
	writeFiles(t, root, files)

	dest := filepath.Join(root, "public")
	task := config.Task{
		Name:   "blog",
		Src:    filepath.Join(root, "posts"),
		Dest:   dest,
		URL:    "blog/:title",
		Layout: filepath.Join(root, "layouts", "post.html"),
		Options: config.TaskOptions{
			Data:    filepath.Join(root, "data", "site.json"),
			PageSrc: filepath.Join(root, "pages"),
			Pagination: &config.Pagination{
				PostsPerPage: 3,
				ListPage:     filepath.Join(root, "pages", "index.html"),
			},
		},
	}

	res, err := Build(context.Background(), task, quietOptions(nil))
	require.NoError(t, err)
	assert.Equal(t, Result{Posts: 7, Pages: 2, ListPages: 3}, res)

	newest := readFile(t, filepath.Join(dest, "blog", "Post-7.html"))
	assert.Contains(t, newest, "<h1>Post 7</h1>")
	assert.Contains(t, newest, "Body of Post 7.")
	assert.Contains(t, newest, "<p>My Site</p>")
	assert.Contains(t, newest, `<base href="../">`)
	assert.Contains(t, newest, "<li>blog/Post-7.html</li><li>blog/Post-6.html</li>")
	assert.NotContains(t, newest, "Draft")

	assert.Equal(t, "<p>about 7 My Site</p>", readFile(t, filepath.Join(dest, "about.html")))
	assert.Equal(t, `<p>people</p><a href="../">up</a>`, readFile(t, filepath.Join(dest, "team", "people.html")))
	assert.NoFileExists(t, filepath.Join(dest, "_header.html"))
	assert.NoFileExists(t, filepath.Join(dest, ".notes.html"))

	assert.Equal(t, "[/] /page/1/ /page/2/ |Post 7;Post 6;Post 5;", readFile(t, filepath.Join(dest, "index.html")))
	assert.Equal(t, "/ [/page/1/] /page/2/ |Post 4;Post 3;Post 2;", readFile(t, filepath.Join(dest, "page", "1", "index.html")))
	assert.Equal(t, "/ /page/1/ [/page/2/] |Post 1;", readFile(t, filepath.Join(dest, "page", "2", "index.html")))
}

func TestBuild_GenerationSeesEveryEligibleDocument(t *testing.T) {
	root := t.TempDir()
	files := sevenPosts()
	files["posts/nested/deep.md"] = post("Deep", "2019-01-01")
	files["posts/_draft.md"] = post("Draft", "2019-01-01")
	files["posts/_drafts/old.md"] = post("Old", "2019-01-01")
	files["posts/.swp"] = "junk"
	files["layouts/post.rec"] = ""
	writeFiles(t, root, files)

	rec := &recordingEngine{}
	engines := templates.DefaultRegistry()
	engines.Register(rec, ".rec")

	task := config.Task{
		Src:    filepath.Join(root, "posts"),
		Dest:   filepath.Join(root, "public"),
		URL:    ":title",
		Layout: filepath.Join(root, "layouts", "post.rec"),
	}
	opts := quietOptions(engines)
	opts.Concurrency = 3

	res, err := Build(context.Background(), task, opts)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Posts)

	require.Len(t, rec.views, 8)
	for _, view := range rec.views {
		posts := view["posts"].([]*document.Document)
		require.Len(t, posts, 8)
		for _, p := range posts {
			assert.NotEmpty(t, p.Content)
			assert.Empty(t, p.Markdown)
			assert.NotEmpty(t, p.URL)
		}
	}
}

func TestBuild_SortsNewestFirst(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"posts/a.md":       post("A", "2021-01-01"),
		"posts/b.md":       post("B", "2023-01-01"),
		"posts/c.md":       post("C", "2022-01-01"),
		"layouts/post.rec": "",
	})
	rec := &recordingEngine{}
	engines := templates.NewRegistry()
	engines.Register(rec, ".rec")

	_, err := Build(context.Background(), config.Task{
		Src:    filepath.Join(root, "posts"),
		Dest:   filepath.Join(root, "public"),
		URL:    ":title",
		Layout: filepath.Join(root, "layouts", "post.rec"),
	}, quietOptions(engines))
	require.NoError(t, err)

	require.Len(t, rec.views, 3)
	var order, urls []string
	for _, view := range rec.views {
		doc := view["post"].(*document.Document)
		order = append(order, doc.Title())
		urls = append(urls, doc.URL)
	}
	assert.Equal(t, []string{"B", "C", "A"}, order)
	assert.Equal(t, []string{"B.html", "C.html", "A.html"}, urls)
}

func TestBuild_PaginationFlagsOnlyCurrentPage(t *testing.T) {
	root := t.TempDir()
	files := sevenPosts()
	files["layouts/post.rec"] = ""
	files["layouts/list.rec"] = ""
	writeFiles(t, root, files)

	layoutRec := &recordingEngine{}
	listRec := &recordingEngine{}
	engines := templates.NewRegistry()
	engines.Register(layoutRec, ".rec")
	engines.Register(listRec, ".list")
	listPage := filepath.Join(root, "layouts", "index.list")
	writeFiles(t, root, map[string]string{"layouts/index.list": ""})

	dest := filepath.Join(root, "public")
	res, err := Build(context.Background(), config.Task{
		Src:    filepath.Join(root, "posts"),
		Dest:   dest,
		URL:    ":title",
		Layout: filepath.Join(root, "layouts", "post.rec"),
		Options: config.TaskOptions{
			Pagination: &config.Pagination{PostsPerPage: 3, ListPage: listPage},
		},
	}, quietOptions(engines))
	require.NoError(t, err)
	assert.Equal(t, 3, res.ListPages)

	assert.FileExists(t, filepath.Join(dest, "index.html"))
	assert.FileExists(t, filepath.Join(dest, "page", "1", "index.html"))
	assert.FileExists(t, filepath.Join(dest, "page", "2", "index.html"))

	require.Len(t, listRec.views, 3)
	var sizes []int
	for i, view := range listRec.views {
		sizes = append(sizes, len(view["posts"].([]*document.Document)))
		assert.Equal(t, i, view["pageNumber"])

		nav := view["pages"].([]PageLink)
		require.Len(t, nav, 3)
		assert.Equal(t, []string{"/", "/page/1/", "/page/2/"}, []string{nav[0].URL, nav[1].URL, nav[2].URL})
		for j, link := range nav {
			assert.Equal(t, i == j, link.CurrentPage, "render %d entry %d", i, j)
		}
	}
	assert.Equal(t, []int{3, 3, 1}, sizes)
}

func TestBuild_NoDocumentsWritesNoListPages(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"layouts/post.html": "x",
		"layouts/list.html": "y",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "posts"), 0755))

	res, err := Build(context.Background(), config.Task{
		Src:    filepath.Join(root, "posts"),
		Dest:   filepath.Join(root, "public"),
		URL:    ":title",
		Layout: filepath.Join(root, "layouts", "post.html"),
		Options: config.TaskOptions{
			Pagination: &config.Pagination{PostsPerPage: 2, ListPage: filepath.Join(root, "layouts", "list.html")},
		},
	}, quietOptions(nil))
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.NoFileExists(t, filepath.Join(root, "public", "index.html"))
}

func TestBuild_FatalErrorsWriteNothing(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		mutate func(*config.Task, string)
		want   error
	}{
		{
			name:  "empty document",
			files: map[string]string{"posts/empty.md": "{}"},
			want:  document.ErrEmptyDocument,
		},
		{
			name:  "malformed metadata",
			files: map[string]string{"posts/bad.md": "no metadata here"},
			want:  document.ErrMalformedMetadata,
		},
		{
			name:  "missing url segment",
			files: map[string]string{"posts/untitled.md": "{\"date\": \"2020-01-01\"}\nBody"},
			want:  destination.ErrMissingURLSegment,
		},
		{
			name:  "invalid data json",
			files: map[string]string{"data.json": "{not json"},
			mutate: func(task *config.Task, root string) {
				task.Options.Data = filepath.Join(root, "data.json")
			},
			want: ErrInjectedData,
		},
		{
			name: "missing data file",
			mutate: func(task *config.Task, root string) {
				task.Options.Data = filepath.Join(root, "nope.json")
			},
			want: ErrInjectedData,
		},
		{
			name:  "unknown layout engine",
			files: map[string]string{"layouts/post.jade": "h1= post.title"},
			mutate: func(task *config.Task, root string) {
				task.Layout = filepath.Join(root, "layouts", "post.jade")
			},
			want: templates.ErrUnknownEngine,
		},
		{
			name: "list page outside page source",
			mutate: func(task *config.Task, root string) {
				task.Options.PageSrc = filepath.Join(root, "pages")
				task.Options.Pagination = &config.Pagination{PostsPerPage: 2, ListPage: filepath.Join(root, "layouts", "post.html")}
			},
			want: destination.ErrInvalidListPagePath,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			files := map[string]string{
				"posts/good.md":     post("Good", "2020-01-01"),
				"posts/other.md":    post("Other", "2020-01-02"),
				"layouts/post.html": "{{ .post.Content }}",
			}
			for k, v := range tt.files {
				files[k] = v
			}
			writeFiles(t, root, files)

			task := config.Task{
				Src:    filepath.Join(root, "posts"),
				Dest:   filepath.Join(root, "public"),
				URL:    ":title",
				Layout: filepath.Join(root, "layouts", "post.html"),
			}
			if tt.mutate != nil {
				tt.mutate(&task, root)
			}

			_, err := Build(context.Background(), task, quietOptions(nil))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.NoDirExists(t, filepath.Join(root, "public"))
		})
	}
}

func TestBuild_ErrorNamesOffendingFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"posts/empty.md":    "{}",
		"layouts/post.html": "x",
	})
	_, err := Build(context.Background(), config.Task{
		Src:    filepath.Join(root, "posts"),
		Dest:   filepath.Join(root, "public"),
		URL:    ":title",
		Layout: filepath.Join(root, "layouts", "post.html"),
	}, quietOptions(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), filepath.Join(root, "posts", "empty.md"))
}

// blockingRenderer fails on bodies containing FAIL and otherwise waits until
// the build is cancelled.
type blockingRenderer struct{}

func (blockingRenderer) Render(ctx context.Context, source []byte) (template.HTML, error) {
	if strings.Contains(string(source), "FAIL") {
		return "", errors.New("renderer exploded")
	}
	<-ctx.Done()
	return "late", nil
}

func TestBuild_FailureIgnoresLateCompletions(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"posts/a.md":        post("A", "2020-01-01"),
		"posts/b.md":        post("B", "2020-01-02"),
		"posts/c.md":        "{\"title\": \"C\"}\nFAIL here",
		"layouts/post.html": "{{ .post.Content }}",
	})
	opts := quietOptions(nil)
	opts.Renderer = blockingRenderer{}
	opts.Concurrency = 3

	_, err := Build(context.Background(), config.Task{
		Src:    filepath.Join(root, "posts"),
		Dest:   filepath.Join(root, "public"),
		URL:    ":title",
		Layout: filepath.Join(root, "layouts", "post.html"),
	}, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderer exploded")
	assert.NoDirExists(t, filepath.Join(root, "public"))
}

func TestBuild_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"posts/a.md":        post("A", "2020-01-01"),
		"layouts/post.html": "x",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, config.Task{
		Src:    filepath.Join(root, "posts"),
		Dest:   filepath.Join(root, "public"),
		URL:    ":title",
		Layout: filepath.Join(root, "layouts", "post.html"),
	}, quietOptions(nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_TemplateEngineFilter(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"posts/a.md":        post("A", "2020-01-01"),
		"layouts/post.html": "x",
		"pages/about.html":  "about",
		"pages/contact.j2":  "contact {{ currentPage }}",
		"pages/robots.txt":  "User-agent: *",
	})
	task := config.Task{
		Src:    filepath.Join(root, "posts"),
		Dest:   filepath.Join(root, "public"),
		URL:    ":title",
		Layout: filepath.Join(root, "layouts", "post.html"),
		Options: config.TaskOptions{
			PageSrc:        filepath.Join(root, "pages"),
			TemplateEngine: "j2",
		},
	}

	res, err := Build(context.Background(), task, quietOptions(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "contact contact", readFile(t, filepath.Join(root, "public", "contact.html")))
	assert.NoFileExists(t, filepath.Join(root, "public", "about.html"))

	task.Options.TemplateEngine = ""
	_, err = Build(context.Background(), task, quietOptions(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, templates.ErrUnknownEngine), "got %v", err)
}

func TestBuild_CleanDestination(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"posts/a.md":        post("A", "2020-01-01"),
		"layouts/post.html": "{{ .post.Title }}",
		"public/stale.html": "old",
	})
	opts := quietOptions(nil)
	opts.CleanDestination = true

	_, err := Build(context.Background(), config.Task{
		Src:    filepath.Join(root, "posts"),
		Dest:   filepath.Join(root, "public"),
		URL:    ":title",
		Layout: filepath.Join(root, "layouts", "post.html"),
	}, opts)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, "public", "stale.html"))
	assert.Equal(t, "A", readFile(t, filepath.Join(root, "public", "A.html")))
}

func TestBuild_CleanRefusesDestinationHoldingInputs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"posts/a.md":        post("A", "2020-01-01"),
		"layouts/post.html": "{{ .post.Title }}",
		"pages/about.html":  "about",
	})
	opts := quietOptions(nil)
	opts.CleanDestination = true

	_, err := Build(context.Background(), config.Task{
		Src:    filepath.Join(root, "posts"),
		Dest:   root,
		URL:    ":title",
		Layout: filepath.Join(root, "layouts", "post.html"),
		Options: config.TaskOptions{
			PageSrc: filepath.Join(root, "pages"),
		},
	}, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidTask)

	assert.FileExists(t, filepath.Join(root, "posts", "a.md"))
	assert.FileExists(t, filepath.Join(root, "layouts", "post.html"))
	assert.FileExists(t, filepath.Join(root, "pages", "about.html"))
	assert.NoFileExists(t, filepath.Join(root, "A.html"))
}

func TestBuild_HighlightsFencedCode(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"posts/code.md":     "----\ntitle: Code\n----\n~~~go\npackage main\n~~~\n",
		"layouts/post.html": "{{ .post.Content }}",
	})
	opts := quietOptions(nil)
	opts.Renderer = markdown.New(markdown.Options{GFM: true, Anchors: true}, markdown.NewChroma("monokai"))

	_, err := Build(context.Background(), config.Task{
		Src:    filepath.Join(root, "posts"),
		Dest:   filepath.Join(root, "public"),
		URL:    ":title",
		Layout: filepath.Join(root, "layouts", "post.html"),
	}, opts)
	require.NoError(t, err)
	assert.Contains(t, readFile(t, filepath.Join(root, "public", "Code.html")), `class="chroma"`)
}

func TestPartition(t *testing.T) {
	posts := make([]*document.Document, 7)
	for i := range posts {
		posts[i] = &document.Document{}
	}
	groups := Partition(posts, 3)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 3)
	assert.Len(t, groups[1], 3)
	assert.Len(t, groups[2], 1)
	assert.Same(t, posts[6], groups[2][0])

	assert.Empty(t, Partition(nil, 3))
	assert.Len(t, Partition(posts, 7), 1)
	assert.Nil(t, Partition(posts, 0))
}

func TestNavigation_DoesNotTouchBaseLinks(t *testing.T) {
	links := []PageLink{{URL: "/"}, {URL: "/page/1/"}, {URL: "/page/2/"}}
	before := append([]PageLink(nil), links...)

	nav := Navigation(links, 1)
	assert.Equal(t, []PageLink{{URL: "/"}, {URL: "/page/1/", CurrentPage: true}, {URL: "/page/2/"}}, nav)
	assert.Equal(t, before, links)
}
