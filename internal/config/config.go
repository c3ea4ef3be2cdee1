// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"folio/internal/destination"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "folio.yaml"

// ErrInvalidTask indicates a task is missing required settings or does not exist.
var ErrInvalidTask = errors.New("invalid task configuration")

// File holds the configuration from the folio.yaml file. The `mapstructure`
// tags map file keys to struct fields.
type File struct {
	// Concurrency bounds how many documents are parsed and rendered at once.
	// Zero means one per CPU.
	Concurrency int             `mapstructure:"concurrency"`
	Tasks       map[string]Task `mapstructure:"tasks"`
}

// Task describes one page generation run.
type Task struct {
	Name    string      `mapstructure:"-"`
	Src     string      `mapstructure:"src"`
	Dest    string      `mapstructure:"dest"`
	URL     string      `mapstructure:"url"`
	Layout  string      `mapstructure:"layout"`
	Options TaskOptions `mapstructure:"options"`
}

type TaskOptions struct {
	// Data is a JSON file exposed to every template as `data`.
	Data           string          `mapstructure:"data"`
	PageSrc        string          `mapstructure:"pageSrc"`
	TemplateEngine string          `mapstructure:"templateEngine"`
	Pagination     *Pagination     `mapstructure:"pagination"`
	Markdown       MarkdownOptions `mapstructure:"markdown"`
}

type Pagination struct {
	PostsPerPage int    `mapstructure:"postsPerPage"`
	ListPage     string `mapstructure:"listPage"`
}

// MarkdownOptions default to GitHub flavoured markdown with heading anchors
// and sanitized output.
type MarkdownOptions struct {
	GFM       *bool  `mapstructure:"gfm"`
	Anchors   *bool  `mapstructure:"anchors"`
	Unsafe    bool   `mapstructure:"unsafe"`
	CodeStyle string `mapstructure:"codeStyle"`
}

func (m MarkdownOptions) GFMEnabled() bool     { return m.GFM == nil || *m.GFM }
func (m MarkdownOptions) AnchorsEnabled() bool { return m.Anchors == nil || *m.Anchors }

// Load reads the configuration file at path, or folio.yaml in the working
// directory when path is empty. FOLIO_* environment variables override
// top-level keys.
func Load(path string) (File, error) {
	v := viper.New()
	v.SetDefault("concurrency", 0)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("FOLIO")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return File{}, fmt.Errorf("could not read config file: %w", err)
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return File{}, fmt.Errorf("could not parse config file %s: %w", v.ConfigFileUsed(), err)
	}
	for name, task := range f.Tasks {
		task.Name = name
		f.Tasks[name] = task
	}
	return f, nil
}

// Names returns the task names in sorted order.
func (f File) Names() []string {
	names := make([]string, 0, len(f.Tasks))
	for name := range f.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the named tasks, or every task sorted by name when names is
// empty. Each task is validated.
func (f File) Select(names []string) ([]Task, error) {
	if len(names) == 0 {
		names = f.Names()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no tasks configured", ErrInvalidTask)
	}
	tasks := make([]Task, 0, len(names))
	for _, name := range names {
		task, ok := f.Tasks[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown task %q (have %s)", ErrInvalidTask, name, strings.Join(f.Names(), ", "))
		}
		if err := task.Validate(); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Validate checks the settings a build cannot run without.
func (t Task) Validate() error {
	var missing []string
	for key, value := range map[string]string{"src": t.Src, "dest": t.Dest, "url": t.URL, "layout": t.Layout} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: task %q is missing %s", ErrInvalidTask, t.Name, strings.Join(missing, ", "))
	}

	if p := t.Options.Pagination; p != nil {
		if p.PostsPerPage < 1 {
			return fmt.Errorf("%w: task %q needs pagination.postsPerPage of at least 1", ErrInvalidTask, t.Name)
		}
		if p.ListPage == "" {
			return fmt.Errorf("%w: task %q needs pagination.listPage", ErrInvalidTask, t.Name)
		}
		if t.Options.PageSrc != "" && !destination.Within(t.Options.PageSrc, p.ListPage) {
			return fmt.Errorf("task %q: %w: %s is not inside %s", t.Name, destination.ErrInvalidListPagePath, p.ListPage, t.Options.PageSrc)
		}
	}
	return nil
}

// Rebase returns a copy of t with every relative path joined onto dir.
func (t Task) Rebase(dir string) Task {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	t.Src = join(t.Src)
	t.Dest = join(t.Dest)
	t.Layout = join(t.Layout)
	t.Options.Data = join(t.Options.Data)
	t.Options.PageSrc = join(t.Options.PageSrc)
	if p := t.Options.Pagination; p != nil {
		rebased := *p
		rebased.ListPage = join(p.ListPage)
		t.Options.Pagination = &rebased
	}
	return t
}

// ValidateClean refuses a destination that is, or contains, one of the
// task's inputs, since cleaning it would delete them.
func (t Task) ValidateClean() error {
	dest, err := filepath.Abs(t.Dest)
	if err != nil {
		return fmt.Errorf("%w: task %q dest %s: %w", ErrInvalidTask, t.Name, t.Dest, err)
	}
	inputs := []struct{ key, path string }{
		{"src", t.Src},
		{"layout", t.Layout},
		{"options.data", t.Options.Data},
		{"options.pageSrc", t.Options.PageSrc},
	}
	if p := t.Options.Pagination; p != nil {
		inputs = append(inputs, struct{ key, path string }{"options.pagination.listPage", p.ListPage})
	}
	for _, in := range inputs {
		if in.path == "" {
			continue
		}
		p, err := filepath.Abs(in.path)
		if err != nil {
			return fmt.Errorf("%w: task %q %s %s: %w", ErrInvalidTask, t.Name, in.key, in.path, err)
		}
		if p == dest || destination.Within(dest, p) {
			return fmt.Errorf("%w: task %q cannot clean %s, it holds %s %s", ErrInvalidTask, t.Name, t.Dest, in.key, in.path)
		}
	}
	return nil
}
