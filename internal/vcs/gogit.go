package vcs

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// goGitVCS implements VCS in process with go-git. It needs no git
// executable, at the cost of go-git's narrower protocol support.
type goGitVCS struct {
	progress io.Writer
}

// NewGoGitVCS creates a VCS backed by go-git. Clone progress is written
// to progress when it is not nil.
func NewGoGitVCS(progress io.Writer) VCS {
	return &goGitVCS{progress: progress}
}

// Clone tries ref as a tag first and falls back to a branch of the same
// name, like "git clone --branch" does.
func (g *goGitVCS) Clone(ctx context.Context, remote, ref, dir string) error {
	err := g.clone(ctx, remote, plumbing.NewTagReferenceName(ref), dir)
	if err == nil {
		return nil
	}
	if rmErr := os.RemoveAll(dir); rmErr != nil {
		return fmt.Errorf("clone %s at %s: %w", remote, ref, err)
	}
	if branchErr := g.clone(ctx, remote, plumbing.NewBranchReferenceName(ref), dir); branchErr == nil {
		return nil
	}
	return fmt.Errorf("clone %s at %s: %w", remote, ref, err)
}

func (g *goGitVCS) clone(ctx context.Context, remote string, ref plumbing.ReferenceName, dir string) error {
	opts := &git.CloneOptions{
		URL:               remote,
		ReferenceName:     ref,
		SingleBranch:      true,
		Depth:             1,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
		ShallowSubmodules: true,
	}
	if g.progress != nil {
		opts.Progress = g.progress
	}
	_, err := git.PlainCloneContext(ctx, dir, false, opts)
	return err
}

func (g *goGitVCS) Tags(ctx context.Context, remote string) ([]string, error) {
	rem := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{remote},
	})
	refs, err := rem.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list remote tags: %w", err)
	}

	seen := make(map[string]bool)
	var tags []string
	for _, ref := range refs {
		if !ref.Name().IsTag() {
			continue
		}
		tag := ref.Name().Short()
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags, nil
}
