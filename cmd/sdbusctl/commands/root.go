// Package commands implements the sdbusctl CLI: login, tree, vtables,
// and revoke-capability.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/sdbus/internal/cli/output"
)

var (
	// Version information injected at build time by main.
	Version = "dev"
	Commit  = "none"

	outputFormat string
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "sdbusctl",
	Short: "sdbusctl - operator CLI for a running sdbusd instance",
	Long: `sdbusctl talks to sdbusd's admin debug HTTP surface: it lists the
object tree and the vtables registered at a path, and manages the
capability policy file that governs bus access control.

Use "sdbusctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(vtablesCmd)
	rootCmd.AddCommand(revokeCapabilityCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// printer builds an output.Printer from the global --output/--no-color flags.
func printer() (*output.Printer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(os.Stdout, format, !noColor), nil
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
