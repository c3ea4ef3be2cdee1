package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"folio/internal/builder"
	"folio/internal/config"
	"folio/internal/logfields"
	"folio/internal/markdown"
)

func newBuildCmd(flags *rootFlags) *cobra.Command {
	var clean bool
	cmd := &cobra.Command{
		Use:   "build [task...]",
		Short: "Generate the pages of the named tasks, or of every task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), slog.Default(), flags.config, args, clean)
		},
	}
	cmd.Flags().BoolVar(&clean, "clean", false, "empty each task's destination before writing")
	return cmd
}

// runBuild runs the selected tasks one after another and stops at the first
// failure.
func runBuild(ctx context.Context, log *slog.Logger, cfgPath string, names []string, clean bool) error {
	f, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	tasks, err := f.Select(names)
	if err != nil {
		return err
	}
	base := "."
	if cfgPath != "" {
		base = filepath.Dir(cfgPath)
	}

	for _, task := range tasks {
		task = task.Rebase(base)
		m := task.Options.Markdown
		renderer := markdown.New(markdown.Options{
			GFM:     m.GFMEnabled(),
			Anchors: m.AnchorsEnabled(),
			Unsafe:  m.Unsafe,
		}, markdown.NewChroma(m.CodeStyle))

		log.Info("Running task", logfields.Task(task.Name), logfields.Path(task.Src))
		res, err := builder.Build(ctx, task, builder.Options{
			Logger:           log,
			Concurrency:      f.Concurrency,
			Renderer:         renderer,
			CleanDestination: clean,
		})
		if err != nil {
			return fmt.Errorf("task %s failed: %w", task.Name, err)
		}
		log.Info("Task complete", logfields.Task(task.Name),
			slog.Int("posts", res.Posts), slog.Int("pages", res.Pages), slog.Int("list_pages", res.ListPages))
	}
	return nil
}
