package hosting

import (
	"fmt"
	"os"

	"github.com/2003nayan/automated-github-push/internal/config"
	"github.com/cli/go-gh/v2/pkg/auth"
)

// TokenSource indicates where a token was found
type TokenSource string

const (
	TokenSourceAccountEnv TokenSource = "account-env"
	TokenSourceEnvGitHub  TokenSource = "GITHUB_TOKEN"
	TokenSourceEnvGH      TokenSource = "GH_TOKEN"
	TokenSourceGHCLI      TokenSource = "gh-cli"
	TokenSourceNone       TokenSource = "none"
)

const defaultHost = "github.com"

// ResolveToken attempts to find a GitHub token for the account.
// Priority order:
//  1. The account's configured token_env_var
//  2. GITHUB_TOKEN environment variable
//  3. GH_TOKEN environment variable
//  4. gh CLI stored credentials (when use_gh_cli is enabled)
func ResolveToken(account config.Account) (string, TokenSource, error) {
	if account.TokenEnvVar != "" {
		if token := os.Getenv(account.TokenEnvVar); token != "" {
			return token, TokenSourceAccountEnv, nil
		}
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, TokenSourceEnvGitHub, nil
	}

	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token, TokenSourceEnvGH, nil
	}

	if account.UseGHCLI {
		if token, _ := auth.TokenForHost(defaultHost); token != "" {
			return token, TokenSourceGHCLI, nil
		}
	}

	return "", TokenSourceNone, fmt.Errorf(`hosting: no GitHub token found for %s

Provide a token via one of:
  * token_env_var in the account config
  * gh auth login             (with use_gh_cli enabled)
  * GITHUB_TOKEN env var

Create a token at: https://github.com/settings/tokens`, account.Username)
}
