// Package repo provides local git plumbing for the agent's collaborators.
//
// Information Hiding:
// - Repository path resolution hidden behind the service
// - git binary invocation and error shaping internalized
package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/soham-vohra/git-history-agent/model"
)

// GitError reports a failed git invocation, carrying the command and its
// stderr so callers can surface a useful message.
type GitError struct {
	Args   []string
	Stderr string
	Err    error
}

// Error implements the error interface.
func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s failed", strings.Join(e.Args, " "))
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil && e.Stderr == "" {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *GitError) Unwrap() error { return e.Err }

// IsGitError reports whether err is a git invocation failure.
func IsGitError(err error) bool {
	var ge *GitError
	return errors.As(err, &ge)
}

// Service answers code and history questions against locally checked-out
// repositories under a single root directory. Repositories are laid out as
// <root>/<repo_name>; cloning them there is outside this service's job.
type Service struct {
	root string
	prs  PRSource
}

// NewService creates a repo service rooted at the given directory.
// An empty root defaults to ./repos.
func NewService(root string) *Service {
	if root == "" {
		root = "repos"
	}
	return &Service{root: root}
}

// Root returns the configured repositories root.
func (s *Service) Root() string { return s.root }

// repoPath resolves the on-disk path for a block's repository.
func (s *Service) repoPath(ref model.BlockRef) (string, error) {
	path := filepath.Join(s.root, ref.RepoName)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("repository %q not found under %s: %w", ref.RepoName, s.root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repository path %s is not a directory", path)
	}
	return path, nil
}

// runGit executes a git command in the given repository and returns stdout.
func (s *Service) runGit(ctx context.Context, repoPath string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &GitError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// fileAtRef reads a file's lines as of the given ref.
func (s *Service) fileAtRef(ctx context.Context, repoPath string, ref model.BlockRef) ([]string, error) {
	out, err := s.runGit(ctx, repoPath, "show", ref.Ref+":"+ref.Path)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// splitLines splits command output into lines without a trailing empty
// element for output that ends in a newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
