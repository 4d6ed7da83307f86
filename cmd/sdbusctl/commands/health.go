package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/marmos91/sdbus/internal/cli/credentials"
	"github.com/marmos91/sdbus/internal/cli/health"
	"github.com/marmos91/sdbus/internal/cli/timeutil"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check liveness of the admin API on the current context",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	ctx, err := store.GetCurrentContext()
	if err != nil {
		return err
	}

	client := &http.Client{}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ctx.ServerURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("sdbusd admin API at %s: unhealthy (status %d)\n", ctx.ServerURL, resp.StatusCode)
		return nil
	}

	var body health.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		fmt.Printf("sdbusd admin API at %s: ok (unparsed response)\n", ctx.ServerURL)
		return nil
	}

	fmt.Printf("sdbusd admin API at %s: %s\n", ctx.ServerURL, body.Status)
	if !ctx.ExpiresAt.IsZero() {
		fmt.Printf("  token expires: %s\n", timeutil.FormatTime(ctx.ExpiresAt.Format("2006-01-02T15:04:05Z07:00")))
	}
	return nil
}
