package main

import (
	"github.com/spf13/cobra"

	"github.com/aatumaykin/ssrworker/internal/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Display the version, build time, git commit and Go version of ssrworker.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeOutput(cmd.OutOrStdout(), version.Get())
	},
}
