// Command sdbusctl is the operator CLI for a running sdbusd instance: it
// talks to the admin debug HTTP surface (internal/adminapi) to list the
// registered object tree and vtables, and edits the on-disk capability
// policy that governs access control.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/sdbus/cmd/sdbusctl/commands"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.Version = version
	commands.Commit = commit

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
