package commands

import (
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "todoassistant",
	Short: "A personal task tracker with a chat assistant",
	Long: `todoassistant serves a JSON API and an optional Telegram bot for managing todos.
Tasks can be created, completed and listed directly or by chatting with an AI assistant
that calls the same operations on your behalf.`,
	SilenceUsage: true,
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}
