package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/config"
	"folio/internal/logfields"
	"folio/internal/scaffold"
)

func newNewCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new site or post",
	}

	site := &cobra.Command{
		Use:   "site <dir>",
		Short: "Scaffold a new site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := scaffold.CreateNewSite(args[0])
			if err != nil {
				return err
			}
			for _, f := range files {
				slog.Info("Created", logfields.Path(f))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Site scaffolded. You can now:\n  cd %s\n  folio build\n", args[0])
			return nil
		},
	}

	var taskName string
	post := &cobra.Command{
		Use:   "post <title>",
		Short: "Create a new post in a task's source directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.Load(flags.config)
			if err != nil {
				return err
			}
			var names []string
			if taskName != "" {
				names = []string{taskName}
			}
			tasks, err := f.Select(names)
			if err != nil {
				return err
			}
			if len(tasks) > 1 {
				return fmt.Errorf("%w: several tasks configured, pick one with --task (%s)",
					config.ErrInvalidTask, strings.Join(f.Names(), ", "))
			}
			base := "."
			if flags.config != "" {
				base = filepath.Dir(flags.config)
			}
			task := tasks[0].Rebase(base)

			p, err := scaffold.CreateNewPost(task.Src, strings.Join(args, " "), time.Now())
			if err != nil {
				return err
			}
			slog.Info("Created", logfields.Task(task.Name), logfields.Path(p))
			return nil
		},
	}
	post.Flags().StringVar(&taskName, "task", "", "task whose source directory receives the post")

	cmd.AddCommand(site, post)
	return cmd
}
