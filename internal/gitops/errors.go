package gitops

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Common error messages from git
const (
	errMsgNotRepository   = "not a git repository"
	errMsgNoUpstream      = "no upstream branch"
	errMsgNoConfigured    = "has no upstream branch"
	errMsgNoTracking      = "no tracking information"
	errMsgAuthFailed      = "authentication failed"
	errMsgPermission      = "permission denied"
	errMsgRefNotFound     = "couldn't find remote ref"
	errMsgConflict        = "conflict"
	errMsgAlreadyExists   = "already exists"
	errMsgNothingToCommit = "nothing to commit"
	errMsgNoCommitsYet    = "does not have any commits yet"
	errMsgUnknownRevision = "unknown revision"
)

// GitError represents a git command failure with captured stderr.
type GitError struct {
	ExitCode int
	Args     []string
	Stderr   string
	err      error
}

func (e *GitError) Error() string {
	if e.Stderr == "" {
		return fmt.Errorf("git command failed: %w", e.err).Error()
	}
	return fmt.Sprintf("git command failed: %s", strings.TrimSpace(e.Stderr))
}

func (e *GitError) Unwrap() error {
	return e.err
}

// NewGitError creates a GitError from command output and error.
func NewGitError(args []string, stderr string, err error) *GitError {
	exitCode := -1

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	return &GitError{
		ExitCode: exitCode,
		Args:     args,
		Stderr:   stderr,
		err:      err,
	}
}

// IsNotRepository checks if the error indicates not a git repository.
func IsNotRepository(err error) bool {
	return containsError(err, errMsgNotRepository)
}

// IsAuthRequired checks if the error indicates authentication is required.
func IsAuthRequired(err error) bool {
	return containsError(err, errMsgAuthFailed) || containsError(err, errMsgPermission)
}

// IsNoUpstream checks if the error indicates no upstream branch configured.
func IsNoUpstream(err error) bool {
	return containsError(err, errMsgNoUpstream) || containsError(err, errMsgNoConfigured) || containsError(err, errMsgNoTracking)
}

// IsRefNotFound checks if the error indicates a ref was not found.
func IsRefNotFound(err error) bool {
	return containsError(err, errMsgRefNotFound)
}

// IsConflict checks if the error indicates a merge conflict.
func IsConflict(err error) bool {
	return containsError(err, errMsgConflict)
}

// IsAlreadyExists checks if the error indicates something already exists.
func IsAlreadyExists(err error) bool {
	return containsError(err, errMsgAlreadyExists)
}

// IsNothingToCommit checks if the error indicates nothing to commit.
func IsNothingToCommit(err error) bool {
	return containsError(err, errMsgNothingToCommit)
}

// IsNoCommits checks if the error indicates the repository has no commits.
func IsNoCommits(err error) bool {
	return containsError(err, errMsgNoCommitsYet) || containsError(err, errMsgUnknownRevision)
}

// containsError checks if the error contains a specific message.
func containsError(err error, msg string) bool {
	if err == nil {
		return false
	}

	var gitErr *GitError
	if errors.As(err, &gitErr) {
		return strings.Contains(strings.ToLower(gitErr.Stderr), msg)
	}

	return strings.Contains(strings.ToLower(err.Error()), msg)
}
