// Package gitops wraps the git CLI for the backup engine. It follows the
// command-builder pattern: every operation constructs an *exec.Cmd against
// the discovered git binary and classifies failures as *GitError.
package gitops

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CommitInfo describes the most recent commit of a repository.
type CommitInfo struct {
	Hash    string
	Subject string
	When    time.Time
}

// Client executes git operations against local working copies.
type Client struct {
	// GitPath is the git executable; discovered from PATH by NewClient
	GitPath string

	// CommitMessage formats the auto-backup commit subject; the single
	// %s verb receives an RFC3339 timestamp
	CommitMessage string
}

// NewClient creates a git client, locating the git binary on PATH.
func NewClient() (*Client, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("gitops: git executable not found: %w", err)
	}

	return &Client{
		GitPath:       gitPath,
		CommitMessage: "Auto-backup: %s",
	}, nil
}

// command builds a git command rooted at dir.
// Note: do not set Stdout/Stderr if you plan to use CombinedOutput()
func (c *Client) command(ctx context.Context, dir string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.GitPath, args...)
	cmd.Dir = dir
	return cmd
}

func (c *Client) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := c.command(ctx, dir, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", NewGitError(args, string(output), err)
	}
	return strings.TrimSpace(string(output)), nil
}

// IsRepository reports whether dir is inside a git working copy.
func (c *Client) IsRepository(ctx context.Context, dir string) bool {
	return c.command(ctx, dir, "rev-parse", "--git-dir").Run() == nil
}

// HasRemote reports whether the repository at dir has any remote configured.
func (c *Client) HasRemote(ctx context.Context, dir string) bool {
	out, err := c.run(ctx, dir, "remote")
	return err == nil && out != ""
}

// RemoteURL returns the URL of the origin remote.
func (c *Client) RemoteURL(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		return "", fmt.Errorf("gitops: get remote url: %w", err)
	}
	return out, nil
}

// AddRemote configures url as the origin remote of dir.
func (c *Client) AddRemote(ctx context.Context, dir, url string) error {
	if _, err := c.run(ctx, dir, "remote", "add", "origin", url); err != nil {
		if IsAlreadyExists(err) {
			_, err = c.run(ctx, dir, "remote", "set-url", "origin", url)
		}
		if err != nil {
			return fmt.Errorf("gitops: add remote: %w", err)
		}
	}
	return nil
}

// SetLocalIdentity writes user.name and user.email into the repository's
// local config so commits are attributed to the owning account.
func (c *Client) SetLocalIdentity(ctx context.Context, dir, username, email string) error {
	if _, err := c.run(ctx, dir, "config", "user.name", username); err != nil {
		return fmt.Errorf("gitops: set user.name: %w", err)
	}
	if _, err := c.run(ctx, dir, "config", "user.email", email); err != nil {
		return fmt.Errorf("gitops: set user.email: %w", err)
	}
	return nil
}

// Init initializes a repository at dir on the given branch with the
// identity configured before the first commit, then stages and commits
// everything present.
func (c *Client) Init(ctx context.Context, dir, branch, username, email string) error {
	if _, err := c.run(ctx, dir, "init", "-b", branch); err != nil {
		return fmt.Errorf("gitops: init: %w", err)
	}

	if err := c.SetLocalIdentity(ctx, dir, username, email); err != nil {
		return err
	}

	if _, err := c.run(ctx, dir, "add", "-A"); err != nil {
		return fmt.Errorf("gitops: stage initial files: %w", err)
	}

	msg := fmt.Sprintf("Initial commit: %s", time.Now().Format(time.RFC3339))
	if _, err := c.run(ctx, dir, "commit", "-m", msg); err != nil {
		if IsNothingToCommit(err) {
			// Empty folder; an empty commit keeps the push from failing
			_, err = c.run(ctx, dir, "commit", "--allow-empty", "-m", msg)
		}
		if err != nil {
			return fmt.Errorf("gitops: initial commit: %w", err)
		}
	}

	return nil
}

// HasPendingChanges reports whether dir has uncommitted modifications.
func (c *Client) HasPendingChanges(ctx context.Context, dir string) (bool, error) {
	out, err := c.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("gitops: status: %w", err)
	}
	return out != "", nil
}

// CurrentBranch returns the checked-out branch name.
func (c *Client) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("gitops: current branch: %w", err)
	}
	return out, nil
}

// Sync commits pending changes, reconciles with the remote, and pushes.
// A pull failure (no upstream yet, unreachable remote) does not abort the
// push attempt.
func (c *Client) Sync(ctx context.Context, dir string) error {
	if _, err := c.run(ctx, dir, "add", "-A"); err != nil {
		return fmt.Errorf("gitops: stage: %w", err)
	}

	msg := fmt.Sprintf(c.CommitMessage, time.Now().Format(time.RFC3339))
	if _, err := c.run(ctx, dir, "commit", "-m", msg); err != nil && !IsNothingToCommit(err) {
		return fmt.Errorf("gitops: commit: %w", err)
	}

	if _, err := c.run(ctx, dir, "pull", "--rebase", "--autostash"); err != nil && !IsNoUpstream(err) && !IsRefNotFound(err) {
		if IsConflict(err) {
			return fmt.Errorf("gitops: pull: %w", err)
		}
	}

	return c.Push(ctx, dir)
}

// Push pushes the current branch, setting the upstream on first push.
func (c *Client) Push(ctx context.Context, dir string) error {
	if _, err := c.run(ctx, dir, "push"); err != nil {
		if !IsNoUpstream(err) {
			return fmt.Errorf("gitops: push: %w", err)
		}

		branch, berr := c.CurrentBranch(ctx, dir)
		if berr != nil {
			return berr
		}
		if _, err := c.run(ctx, dir, "push", "-u", "origin", branch); err != nil {
			return fmt.Errorf("gitops: push: %w", err)
		}
	}
	return nil
}

// LastCommitInfo returns the most recent commit of dir, or nil when the
// repository has no commits yet.
func (c *Client) LastCommitInfo(ctx context.Context, dir string) (*CommitInfo, error) {
	out, err := c.run(ctx, dir, "log", "-1", "--format=%H%x00%ct%x00%s")
	if err != nil {
		if IsNoCommits(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("gitops: last commit: %w", err)
	}

	parts := strings.SplitN(out, "\x00", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("gitops: unexpected log output %q", out)
	}

	epoch, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("gitops: parse commit time: %w", err)
	}

	return &CommitInfo{
		Hash:    parts[0],
		Subject: parts[2],
		When:    time.Unix(epoch, 0),
	}, nil
}

// CommitCount returns the number of commits reachable from HEAD.
func (c *Client) CommitCount(ctx context.Context, dir string) (int, error) {
	out, err := c.run(ctx, dir, "rev-list", "--count", "HEAD")
	if err != nil {
		if IsNoCommits(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("gitops: commit count: %w", err)
	}

	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("gitops: parse commit count %q: %w", out, err)
	}
	return n, nil
}
