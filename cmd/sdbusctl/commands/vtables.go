package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/sdbus/internal/cli/credentials"
)

// vtableEntryView and vtableView mirror internal/adminapi's unexported
// JSON projections of busobj.VtableEntry and busobj.NodeVtable.
type vtableEntryView struct {
	Kind            string `json:"kind"`
	Member          string `json:"member,omitempty"`
	InSignature     string `json:"in_signature,omitempty"`
	ResultSignature string `json:"result_signature,omitempty"`
	Signature       string `json:"signature,omitempty"`
	Flags           uint32 `json:"flags"`
}

type vtableView struct {
	Interface  string            `json:"interface"`
	IsFallback bool              `json:"is_fallback"`
	Entries    []vtableEntryView `json:"entries"`
}

type vtableViews []vtableView

func (v vtableViews) Headers() []string {
	return []string{"INTERFACE", "FALLBACK", "KIND", "MEMBER", "SIGNATURE", "FLAGS"}
}

func (v vtableViews) Rows() [][]string {
	var rows [][]string
	for _, vt := range v {
		for _, e := range vt.Entries {
			sig := e.Signature
			if sig == "" {
				sig = e.InSignature + " -> " + e.ResultSignature
			}
			rows = append(rows, []string{
				vt.Interface,
				strconv.FormatBool(vt.IsFallback),
				e.Kind,
				e.Member,
				sig,
				strconv.FormatUint(uint64(e.Flags), 10),
			})
		}
	}
	return rows
}

var vtablesCmd = &cobra.Command{
	Use:   "vtables <object-path>",
	Short: "List the vtables registered at an object path",
	Args:  cobra.ExactArgs(1),
	RunE:  runVtables,
}

func runVtables(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	client, err := newAdminClient(store)
	if err != nil {
		return err
	}

	var views vtableViews
	if err := client.getJSON(context.Background(), "/debug/vtables"+args[0], &views); err != nil {
		return fmt.Errorf("fetch vtables for %s: %w", args[0], err)
	}

	p, err := printer()
	if err != nil {
		return err
	}
	return p.Print(views)
}
