package build

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goplus/ccpm/pkgs/mod/module"
)

// Configuration is a CMake build type.
type Configuration string

const (
	Debug   Configuration = "Debug"
	Release Configuration = "Release"
)

// DefaultConfigurations are built for every dependency, in this order.
var DefaultConfigurations = []Configuration{Debug, Release}

// ErrInvalidTag is returned for tags that cannot name a directory.
var ErrInvalidTag = errors.New("invalid tag")

// tagPath maps a tag to its source directory relative to the project
// directory. Slash-separated tags nest. The first element may not start
// with "." or "__", which hold completion records and build trees.
func tagPath(tag string) (string, error) {
	local, err := module.EscapePath(tag)
	if err != nil || filepath.ToSlash(local) != tag {
		return "", fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	first, _, _ := strings.Cut(tag, "/")
	if strings.HasPrefix(first, ".") || strings.HasPrefix(first, "__") {
		return "", fmt.Errorf("%w: %q clashes with cache bookkeeping", ErrInvalidTag, tag)
	}
	return local, nil
}

// tagsOverlap reports whether the source directory of one tag contains
// the other's, as with "release" and "release/1.2".
func tagsOverlap(a, b string) bool {
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// Layout holds the on-disk locations of one dependency.
//
//	<download>/
//	  <project>/
//	    .cache.json          # completion records
//	    <tag>/               # SourceDir, shared by all option sets
//	    __<digest>/<cfg>/    # BuildDir per configuration
//
// Tags containing "/" nest below the project directory.
//	<install>/
//	  <project>/<cfg>/       # InstallDir per configuration
type Layout struct {
	Project    string
	Digest     string
	ProjectDir string
	SourceDir  string
	BuildDir   string
	InstallDir string
}

// NewLayout computes the layout of dep under the given roots.
func NewLayout(downloadRoot, installRoot string, dep module.Dependency, tc Toolchain) (*Layout, error) {
	project, err := module.ProjectName(dep.Repo)
	if err != nil {
		return nil, err
	}
	tag, err := tagPath(dep.Tag)
	if err != nil {
		return nil, err
	}
	digest := tc.Key(CacheKey(dep.Repo, dep.Tag, dep.Defines))
	projectDir := filepath.Join(downloadRoot, project)
	return &Layout{
		Project:    project,
		Digest:     digest,
		ProjectDir: projectDir,
		SourceDir:  filepath.Join(projectDir, tag),
		BuildDir:   filepath.Join(projectDir, "__"+digest),
		InstallDir: filepath.Join(installRoot, project),
	}, nil
}

// BuildDirOf returns the build tree of cfg.
func (l *Layout) BuildDirOf(cfg Configuration) string {
	return filepath.Join(l.BuildDir, string(cfg))
}

// InstallDirOf returns the install prefix of cfg.
func (l *Layout) InstallDirOf(cfg Configuration) string {
	return filepath.Join(l.InstallDir, string(cfg))
}
