package main

import (
	"github.com/spf13/cobra"

	"github.com/aatumaykin/ssrworker/internal/views"
)

// viewsCmd lists the views executors can build
var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "List available view names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeOutput(cmd.OutOrStdout(), views.NewRegistry(false).Names())
	},
}
