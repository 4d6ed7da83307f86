package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/sdbus/internal/cli/credentials"
)

// adminClient is a thin HTTP client for sdbusd's admin debug surface,
// authenticating with the bearer token from the active credentials
// context (internal/cli/credentials).
type adminClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// newAdminClient resolves the active context from store and builds a
// client for it. Returns credentials.ErrNoCurrentContext if no context is
// selected and credentials.ErrNotLoggedIn if its token is missing or
// expired, prompting the operator to run `sdbusctl login` first.
func newAdminClient(store *credentials.Store) (*adminClient, error) {
	ctx, err := store.GetCurrentContext()
	if err != nil {
		return nil, err
	}
	if ctx.AccessToken == "" || ctx.IsExpired() {
		return nil, credentials.ErrNotLoggedIn
	}
	return &adminClient{
		baseURL: ctx.ServerURL,
		token:   ctx.AccessToken,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *adminClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
