package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/goplus/ccpm/internal/run"
)

// VCS defines the interface for version control operations.
type VCS interface {
	// Clone checks out ref (a tag or branch) of remote into dir as a
	// shallow checkout with submodules. dir must be empty or absent.
	Clone(ctx context.Context, remote, ref, dir string) error

	// Tags returns all tags from the remote repository.
	Tags(ctx context.Context, remote string) ([]string, error)
}

// gitVCS implements VCS using the git executable.
type gitVCS struct {
	git    string
	runner run.Runner
}

// GitOption configures gitVCS.
type GitOption func(*gitVCS)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitVCS) {
		g.git = path
	}
}

// WithRunner sets the runner used for clones.
func WithRunner(r run.Runner) GitOption {
	return func(g *gitVCS) {
		g.runner = r
	}
}

// NewGitVCS creates a new git VCS instance.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{git: "git", runner: run.Default}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gitVCS) Clone(ctx context.Context, remote, ref, dir string) error {
	return g.runner.Run(ctx, run.Cmd{
		Name: g.git,
		Args: cloneArgs(remote, ref, dir),
		Env:  []string{"GIT_TERMINAL_PROMPT=0"},
	})
}

func cloneArgs(remote, ref, dir string) []string {
	return []string{
		"clone",
		"--recurse-submodules",
		"--shallow-submodules",
		"--depth", "1",
		"--branch", ref,
		remote,
		dir,
	}
}

func (g *gitVCS) Tags(ctx context.Context, remote string) ([]string, error) {
	output, err := g.output(ctx, "", "ls-remote", "--tags", "--refs", remote)
	if err != nil {
		return nil, fmt.Errorf("list remote tags: %w", err)
	}
	return parseTags(output), nil
}

// parseTags extracts tag names from "git ls-remote --tags" output.
func parseTags(output string) []string {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil
	}

	var tags []string
	for _, line := range strings.Split(output, "\n") {
		// format: <hash>\trefs/tags/<tag>
		parts := strings.Split(strings.TrimSpace(line), "\t")
		if len(parts) == 2 {
			tag := strings.TrimPrefix(parts[1], "refs/tags/")
			tags = append(tags, strings.TrimSuffix(tag, "^{}"))
		}
	}
	return tags
}

func (g *gitVCS) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.git, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
