// Package commands implements the sdbusd CLI: serve, init, and version.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time by main.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "sdbusd",
	Short: "sdbusd - a standalone D-Bus object-tree dispatch engine",
	Long: `sdbusd hosts an object tree on a D-Bus connection: it registers
vtables, resolves method calls against the tree's access policy, and emits
PropertiesChanged/InterfacesAdded/InterfacesRemoved signals on behalf of
whatever application wires objects into it.

Use "sdbusd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, for tests.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./sdbusd.yaml, /etc/sdbusd, or ~/.config/sdbusd)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string {
	return cfgFile
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
