package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/sdbus/internal/cli/credentials"
)

// treeEntry mirrors internal/adminapi's unexported treeEntry JSON shape.
type treeEntry struct {
	Path             string   `json:"path"`
	Interfaces       []string `json:"interfaces"`
	HasObjectManager bool     `json:"has_object_manager"`
	CallbackCount    int      `json:"callback_count"`
	EnumeratorCount  int      `json:"enumerator_count"`
	ChildCount       int      `json:"child_count"`
}

type treeEntries []treeEntry

func (t treeEntries) Headers() []string {
	return []string{"PATH", "INTERFACES", "OBJMGR", "CALLBACKS", "ENUMERATORS", "CHILDREN"}
}

func (t treeEntries) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		rows = append(rows, []string{
			e.Path,
			strings.Join(e.Interfaces, ","),
			strconv.FormatBool(e.HasObjectManager),
			strconv.Itoa(e.CallbackCount),
			strconv.Itoa(e.EnumeratorCount),
			strconv.Itoa(e.ChildCount),
		})
	}
	return rows
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "List every object path registered on the running engine",
	RunE:  runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	client, err := newAdminClient(store)
	if err != nil {
		return err
	}

	var entries treeEntries
	if err := client.getJSON(context.Background(), "/debug/tree", &entries); err != nil {
		return fmt.Errorf("fetch tree: %w", err)
	}

	p, err := printer()
	if err != nil {
		return err
	}
	return p.Print(entries)
}
