// Package config loads ccpm.toml, the list of dependencies a project
// declares.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/goplus/ccpm/internal/build"
	"github.com/goplus/ccpm/pkgs/mod/module"
)

// FileName is the configuration file looked up in the project root.
const FileName = "ccpm.toml"

// ErrMissingConfiguration is returned when there is no ccpm.toml or it
// declares no dependencies.
var ErrMissingConfiguration = errors.New("missing configuration")

// Supported values of Settings.VCS.
const (
	VCSGit   = "git"
	VCSGoGit = "go-git"
)

// Settings is the optional [settings] table.
type Settings struct {
	Jobs           int      `toml:"jobs"`
	VCS            string   `toml:"vcs"`
	Configurations []string `toml:"configurations"`
	Generator      string   `toml:"generator"`
	Toolchain      string   `toml:"toolchain"` // relative to the project root
}

// GitPackage is one [[git]] entry.
type GitPackage struct {
	RepoURL string   `toml:"repo_url"`
	Tag     string   `toml:"tag"`
	Defines []string `toml:"defines"`
	Package string   `toml:"package"`
}

type file struct {
	Settings Settings     `toml:"settings"`
	Git      []GitPackage `toml:"git"`
}

// Config is a loaded ccpm.toml.
type Config struct {
	Root         string // project root
	Path         string // path of ccpm.toml
	Settings     Settings
	Dependencies []module.Dependency

	// Undecoded lists keys present in the file that ccpm does not know.
	Undecoded []string
}

// Load reads <root>/ccpm.toml. Entries missing repo_url or tag are kept;
// the pipeline skips them with a warning.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	var f file
	md, err := toml.DecodeFile(path, &f)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found", ErrMissingConfiguration, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(f.Git) == 0 {
		return nil, fmt.Errorf("%w: %s declares no [[git]] dependencies", ErrMissingConfiguration, path)
	}
	if err := f.Settings.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg := &Config{Root: root, Path: path, Settings: f.Settings}
	for _, g := range f.Git {
		cfg.Dependencies = append(cfg.Dependencies, module.Dependency{
			Repo:    g.RepoURL,
			Tag:     g.Tag,
			Defines: g.Defines,
			Package: g.Package,
		})
	}
	for _, key := range md.Undecoded() {
		cfg.Undecoded = append(cfg.Undecoded, key.String())
	}
	return cfg, nil
}

func (s *Settings) validate() error {
	if s.Jobs < 0 {
		return fmt.Errorf("settings.jobs must not be negative, got %d", s.Jobs)
	}
	switch s.VCS {
	case "", VCSGit, VCSGoGit:
	default:
		return fmt.Errorf("settings.vcs: unknown backend %q (want %q or %q)", s.VCS, VCSGit, VCSGoGit)
	}
	seen := make(map[string]bool)
	for _, c := range s.Configurations {
		if !slices.Contains(build.DefaultConfigurations, build.Configuration(c)) {
			return fmt.Errorf("settings.configurations: unknown configuration %q", c)
		}
		if seen[c] {
			return fmt.Errorf("settings.configurations: %q listed twice", c)
		}
		seen[c] = true
	}
	return nil
}

// BuildConfigurations returns the configured build types, defaulting to
// Debug then Release.
func (s *Settings) BuildConfigurations() []build.Configuration {
	if len(s.Configurations) == 0 {
		return build.DefaultConfigurations
	}
	cfgs := make([]build.Configuration, len(s.Configurations))
	for i, c := range s.Configurations {
		cfgs[i] = build.Configuration(c)
	}
	return cfgs
}

// BuildToolchain returns the generator and toolchain file shared by the
// dependencies and the project build.
func (s *Settings) BuildToolchain(root string) build.Toolchain {
	tc := build.Toolchain{Generator: s.Generator, File: s.Toolchain}
	if tc.File != "" && !filepath.IsAbs(tc.File) {
		tc.File = filepath.Join(root, tc.File)
	}
	return tc
}

// Template is written by "ccpm init".
const Template = `# ccpm dependencies. Run "ccpm install" after editing.

[settings]
jobs = 16
vcs = "git"
# generator = "Ninja"
# toolchain = "cmake/toolchain.cmake"

# [[git]]
# repo_url = "https://github.com/fmtlib/fmt.git"
# tag = "11.0.2"
# defines = ["FMT_TEST=OFF", "FMT_DOC=OFF"]
# package = "fmt"

[[git]]
repo_url = "https://github.com/glfw/glfw.git"
tag = "3.4"
defines = ["GLFW_BUILD_EXAMPLES=OFF", "GLFW_BUILD_TESTS=OFF", "GLFW_BUILD_DOCS=OFF"]
package = "glfw3"
`
