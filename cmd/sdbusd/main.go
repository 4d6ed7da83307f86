// Command sdbusd runs the object-tree dispatch engine as a standalone bus
// client: it connects to a D-Bus transport, builds an Engine from the
// configured wire/credentials/validation adapters, and serves method calls
// until signalled to stop.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/sdbus/cmd/sdbusd/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
