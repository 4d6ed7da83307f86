package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/sdbus/internal/cli/prompt"
	"github.com/marmos91/sdbus/internal/config"
)

var (
	revokePolicyFile string
	revokeForce      bool
)

var revokeCapabilityCmd = &cobra.Command{
	Use:   "revoke-capability <path-prefix>",
	Short: "Remove a capability rule from the on-disk policy file",
	Long: `revoke-capability deletes the rule matching path-prefix from the
capability policy file. sdbusd's PolicyWatcher picks up the change on its
next fsnotify event if watch_for_changes is enabled; otherwise the daemon
must be restarted.

This edits the file directly; it does not require an admin login, since
the policy file itself is the operator's access control.`,
	Args: cobra.ExactArgs(1),
	RunE: runRevokeCapability,
}

func init() {
	revokeCapabilityCmd.Flags().StringVar(&revokePolicyFile, "policy-file", "/etc/sdbusd/capabilities.yaml", "path to the capability policy file")
	revokeCapabilityCmd.Flags().BoolVarP(&revokeForce, "force", "f", false, "skip the confirmation prompt")
}

func runRevokeCapability(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	policy, err := config.LoadCapabilityPolicy(revokePolicyFile)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	kept := make([]config.CapabilityRule, 0, len(policy.Rules))
	var removed []config.CapabilityRule
	for _, rule := range policy.Rules {
		if rule.PathPrefix == prefix {
			removed = append(removed, rule)
			continue
		}
		kept = append(kept, rule)
	}

	if len(removed) == 0 {
		return fmt.Errorf("no rule found for path prefix %q", prefix)
	}

	for _, rule := range removed {
		fmt.Printf("This will remove: path_prefix=%s capability=%d\n", rule.PathPrefix, rule.Capability)
	}

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Revoke %d rule(s) for %s?", len(removed), prefix), revokeForce)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("Aborted.")
			return nil
		}
		return err
	}
	if !ok {
		fmt.Println("Aborted.")
		return nil
	}

	policy.Rules = kept
	data, err := yaml.Marshal(policy)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	if err := os.WriteFile(revokePolicyFile, data, 0644); err != nil {
		return fmt.Errorf("write policy: %w", err)
	}

	fmt.Printf("Removed %d rule(s) for %s from %s\n", len(removed), prefix, revokePolicyFile)
	return nil
}
