// Package hosting manages the remote GitHub side of tracked repositories:
// authentication per configured account, idempotent repository creation,
// and deletion.
package hosting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/2003nayan/automated-github-push/internal/config"
	"github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"
)

// Client talks to the GitHub API on behalf of one or more accounts.
// API clients and tokens are cached per account username.
type Client struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*github.Client
}

// NewClient creates a hosting client.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger:  logger,
		clients: make(map[string]*github.Client),
	}
}

// apiFor returns the cached authenticated API client for the account,
// resolving a token on first use.
func (c *Client) apiFor(ctx context.Context, account config.Account) (*github.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if api, ok := c.clients[account.Username]; ok {
		return api, nil
	}

	token, source, err := ResolveToken(account)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("resolved github token",
		"account", account.Username,
		"source", string(source))

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	api := github.NewClient(tc)

	c.clients[account.Username] = api
	return api, nil
}

// IsAuthenticated reports whether the account's credentials are usable.
func (c *Client) IsAuthenticated(ctx context.Context, account config.Account) bool {
	api, err := c.apiFor(ctx, account)
	if err != nil {
		c.logger.Error("no credentials for account",
			"account", account.Username, "error", err)
		return false
	}

	if _, _, err := api.Users.Get(ctx, ""); err != nil {
		c.logger.Error("github authentication failed",
			"account", account.Username, "error", err)
		return false
	}

	return true
}

// EnsureRepoExists creates the repository on GitHub if it does not already
// exist and returns its clone URL. A pre-existing repository of the same
// name is treated as success.
func (c *Client) EnsureRepoExists(ctx context.Context, name, description string, account config.Account) (string, error) {
	api, err := c.apiFor(ctx, account)
	if err != nil {
		return "", err
	}

	owner := account.Owner()

	existing, resp, err := api.Repositories.Get(ctx, owner, name)
	if err == nil {
		c.logger.Debug("repository already exists on github",
			"repo", name, "owner", owner)
		return existing.GetCloneURL(), nil
	}
	if !isNotFound(resp, err) {
		return "", fmt.Errorf("hosting: check %s/%s: %w", owner, name, err)
	}

	org := ""
	if account.CreateOrgRepos && account.Organization != "" {
		org = account.Organization
	}

	created, _, err := api.Repositories.Create(ctx, org, &github.Repository{
		Name:        github.Ptr(name),
		Description: github.Ptr(description),
		Private:     github.Ptr(account.DefaultVisibility != "public"),
		AutoInit:    github.Ptr(false),
	})
	if err != nil {
		return "", fmt.Errorf("hosting: create %s/%s: %w", owner, name, err)
	}

	c.logger.Info("created github repository",
		"repo", name, "owner", owner, "url", created.GetHTMLURL())

	return created.GetCloneURL(), nil
}

// DeleteRepo deletes the repository from GitHub. The token needs the
// delete_repo scope.
func (c *Client) DeleteRepo(ctx context.Context, name string, account config.Account) error {
	api, err := c.apiFor(ctx, account)
	if err != nil {
		return err
	}

	owner := account.Owner()
	c.logger.Warn("deleting github repository", "repo", name, "owner", owner)

	if _, err := api.Repositories.Delete(ctx, owner, name); err != nil {
		return fmt.Errorf("hosting: delete %s/%s: %w", owner, name, err)
	}

	return nil
}

func isNotFound(resp *github.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}

	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) &&
		ghErr.Response != nil &&
		ghErr.Response.StatusCode == http.StatusNotFound
}
