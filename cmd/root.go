package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the tasksync application
var rootCmd = &cobra.Command{
	Use:   "tasksync",
	Short: "Synchronizes task lists from external providers",
	Long: `tasksync keeps a local task list in sync with external task providers
such as Google Tasks and Microsoft To Do.

It can run as:
  - A long-running sync service with an HTTP API (serve)
  - A one-shot reconciliation from the command line (sync)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "tasksync version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
