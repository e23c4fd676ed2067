package internal

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/goplus/ccpm/internal/config"
	"github.com/goplus/ccpm/internal/env"
	"github.com/goplus/ccpm/internal/vcs"
	"github.com/goplus/ccpm/pkgs/mod/module"
)

var tagsLimit int

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List remote tags of each dependency",
	Long: `Tags lists the newest tags of every repository in ccpm.toml, marking the one
that is declared. Nothing is changed; pick a tag and edit ccpm.toml yourself.`,
	Args: cobra.NoArgs,
	RunE: runTags,
}

func init() {
	tagsCmd.Flags().IntVarP(&tagsLimit, "limit", "n", 10, "Maximum number of tags per dependency, 0 for all")
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	if err := env.LoadDotEnv(root); err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	v, err := newVCS(cfg.Settings.VCS, nil)
	if err != nil {
		return err
	}
	return listTags(cmd.Context(), v, cfg.Dependencies, cmd.OutOrStdout())
}

func listTags(ctx context.Context, v vcs.VCS, deps []module.Dependency, w io.Writer) error {
	for _, dep := range deps {
		if dep.Repo == "" {
			continue
		}
		name, err := module.ProjectName(dep.Repo)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", dep.Repo, err)
			continue
		}
		tags, err := v.Tags(ctx, dep.Repo)
		if err != nil {
			return fmt.Errorf("%s: %w", dep.Repo, err)
		}
		sortTags(tags)
		if tagsLimit > 0 && len(tags) > tagsLimit {
			tags = tags[:tagsLimit]
		}

		fmt.Fprintf(w, "%s (%s)\n", name, dep.Repo)
		for _, tag := range tags {
			mark := " "
			if tag == dep.Tag {
				mark = "*"
			}
			fmt.Fprintf(w, "  %s %s\n", mark, tag)
		}
		if dep.Tag != "" && !slices.Contains(tags, dep.Tag) {
			fmt.Fprintf(w, "  * %s (declared)\n", dep.Tag)
		}
	}
	return nil
}

// sortTags orders tags newest first. Tags are compared as semantic
// versions, with or without a leading "v"; others follow in reverse
// lexical order.
func sortTags(tags []string) {
	slices.SortStableFunc(tags, func(a, b string) int {
		if c := semver.Compare(canonical(b), canonical(a)); c != 0 {
			return c
		}
		return strings.Compare(b, a)
	})
}

func canonical(tag string) string {
	if semver.IsValid(tag) {
		return tag
	}
	if v := "v" + tag; semver.IsValid(v) {
		return v
	}
	return ""
}
