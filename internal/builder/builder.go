// internal/builder/builder.go
package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"folio/internal/config"
	"folio/internal/document"
	"folio/internal/fsutil"
	"folio/internal/logfields"
	"folio/internal/markdown"
	"folio/internal/templates"
)

// ErrInjectedData indicates the configured data file is unreadable or not valid JSON.
var ErrInjectedData = errors.New("could not load template data")

type Options struct {
	Logger *slog.Logger
	// Concurrency bounds the documents parsed and rendered at once. Zero
	// means GOMAXPROCS.
	Concurrency int
	Renderer    markdown.Renderer
	Engines     *templates.Registry
	// CleanDestination empties the destination once every document has been
	// parsed, before anything is written.
	CleanDestination bool
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.GOMAXPROCS(0)
	}
	if o.Renderer == nil {
		o.Renderer = markdown.New(markdown.Options{GFM: true, Anchors: true}, markdown.NewChroma(""))
	}
	if o.Engines == nil {
		o.Engines = templates.DefaultRegistry()
	}
	return o
}

// Result counts the files a build wrote.
type Result struct {
	Posts     int
	Pages     int
	ListPages int
}

type build struct {
	task config.Task
	opts Options
	log  *slog.Logger
}

// Build runs one task: every eligible document under task.Src is parsed and
// rendered, and only once all of them are ready are posts, pages and list
// pages generated. The first error stops the build and nothing further is
// written.
func Build(ctx context.Context, task config.Task, opts Options) (Result, error) {
	if err := task.Validate(); err != nil {
		return Result{}, err
	}
	if opts.CleanDestination {
		if err := task.ValidateClean(); err != nil {
			return Result{}, err
		}
	}
	opts = opts.withDefaults()
	b := &build{
		task: task,
		opts: opts,
		log:  opts.Logger.With(logfields.Task(task.Name)),
	}

	start := time.Now()
	posts, err := b.collect(ctx)
	if err != nil {
		return Result{}, err
	}
	b.log.Debug("Documents ready", logfields.Count(len(posts)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))

	return b.generate(posts)
}

// collect parses and renders every eligible source file concurrently.
// group.Wait is the only point where the collection becomes visible, so
// generation starts once and only with the complete set.
func (b *build) collect(ctx context.Context) ([]*document.Document, error) {
	files, err := fsutil.Discover(b.task.Src)
	if err != nil {
		return nil, fmt.Errorf("failed to discover documents in %s: %w", b.task.Src, err)
	}
	b.log.Debug("Discovered documents", logfields.Path(b.task.Src), logfields.Count(len(files)))

	posts := make([]*document.Document, len(files))
	group, groupctx := errgroup.WithContext(ctx)
	group.SetLimit(b.opts.Concurrency)
	for i, path := range files {
		i, path := i, path
		group.Go(func() error {
			if err := groupctx.Err(); err != nil {
				return err
			}
			doc, err := b.process(groupctx, path)
			if err != nil {
				return err
			}
			// A task finishing after another one failed must not commit.
			if err := groupctx.Err(); err != nil {
				return err
			}
			posts[i] = doc
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (b *build) process(ctx context.Context, path string) (*document.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	doc, err := document.Parse(path, raw)
	if err != nil {
		return nil, err
	}
	content, err := b.opts.Renderer.Render(ctx, []byte(doc.Markdown))
	if err != nil {
		return nil, fmt.Errorf("failed to render markdown for %s: %w", path, err)
	}
	doc.SetContent(content)
	b.log.Debug("Parsed document", logfields.Path(path))
	return doc, nil
}

func (b *build) generate(posts []*document.Document) (Result, error) {
	var res Result

	data, err := loadData(b.task.Options.Data)
	if err != nil {
		return res, err
	}

	// URLs must be known for every document before the first render since
	// templates link across documents.
	dests, err := b.resolvePosts(posts)
	if err != nil {
		return res, err
	}
	layout, err := b.opts.Engines.CompileFile(b.task.Layout)
	if err != nil {
		return res, err
	}

	if b.opts.CleanDestination {
		b.log.Info("Cleaning destination directory", logfields.Path(b.task.Dest))
		if err := fsutil.CleanDir(b.task.Dest); err != nil {
			return res, fmt.Errorf("failed to clean %s: %w", b.task.Dest, err)
		}
	}

	tctx := templates.NewContext(posts, data)
	if res.Posts, err = b.generatePosts(tctx, layout, dests); err != nil {
		return res, err
	}
	if b.task.Options.PageSrc != "" {
		if res.Pages, err = b.generatePages(tctx); err != nil {
			return res, err
		}
	}
	if b.task.Options.Pagination != nil {
		if res.ListPages, err = b.paginate(tctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

func loadData(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInjectedData, err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %w when parsing %s", ErrInjectedData, err, path)
	}
	return data, nil
}
