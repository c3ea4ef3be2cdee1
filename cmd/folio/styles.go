package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"folio/internal/markdown"
)

func newStylesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "styles [style]",
		Short: "Print the stylesheet for highlighted code blocks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			style := ""
			if len(args) == 1 {
				style = args[0]
			}
			css, err := markdown.NewChroma(style).CSS()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), css)
			return err
		},
	}
}
