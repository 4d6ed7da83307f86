package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/sdbus/internal/adminapi"
	"github.com/marmos91/sdbus/internal/cli/credentials"
)

var (
	loginServerURL  string
	loginOperator   string
	loginSigningKey string
	loginTTL        time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Mint an admin bearer token and store it for subsequent commands",
	Long: `login mints a bearer token against the admin surface's shared HMAC
signing key and saves it to the local credentials store, the same signing
key sdbusd was started with (admin.jwt_signing_key in its configuration).

Example:
  sdbusctl login --server http://127.0.0.1:8787 --operator alice --signing-key "$SDBUSD_ADMIN_JWT_SIGNING_KEY"`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginServerURL, "server", "http://127.0.0.1:8787", "sdbusd admin API base URL")
	loginCmd.Flags().StringVar(&loginOperator, "operator", "", "operator name embedded in the token's subject claim")
	loginCmd.Flags().StringVar(&loginSigningKey, "signing-key", "", "admin API's HMAC signing key (admin.jwt_signing_key)")
	loginCmd.Flags().DurationVar(&loginTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = loginCmd.MarkFlagRequired("operator")
	_ = loginCmd.MarkFlagRequired("signing-key")
}

func runLogin(cmd *cobra.Command, args []string) error {
	tokens, err := adminapi.NewTokenService(loginSigningKey, loginTTL)
	if err != nil {
		return fmt.Errorf("build token service: %w", err)
	}

	token, expiresAt, err := tokens.IssueToken(loginOperator)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("open credentials store: %w", err)
	}

	name := credentials.GenerateContextName(loginServerURL)
	if err := store.SetContext(name, &credentials.Context{
		ServerURL:   loginServerURL,
		Username:    loginOperator,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}); err != nil {
		return fmt.Errorf("save context: %w", err)
	}
	if err := store.UseContext(name); err != nil {
		return fmt.Errorf("set current context: %w", err)
	}

	fmt.Printf("Logged in as %s against %s (token expires %s)\n", loginOperator, loginServerURL, expiresAt.Local().Format(time.RFC1123))
	return nil
}
