// Package module defines the module.Dependency type along with support code.
package module

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrMalformedLocator is returned when a repository locator is neither a
// URL nor an SCP-like "host:path" address.
var ErrMalformedLocator = errors.New("malformed repository locator")

// A Dependency represents one requested git-hosted package at one tag with
// one ordered set of CMake defines.
type Dependency struct {
	Repo    string   // Repository locator, URL or SCP-like ("git@host:org/repo.git")
	Tag     string   // Tag or branch to check out
	Defines []string // "KEY=VALUE" cache entries, order is significant
	Package string   // Optional find_package name
}

func (d Dependency) String() string {
	return d.Repo + "@" + d.Tag
}

// urlSchemes lists the locator prefixes that are parsed as URLs. Everything
// else is split on its first colon.
var urlSchemes = []string{"http://", "https://", "ssh://", "git://", "git+ssh://", "file://"}

// ProjectName returns the name of the project a repository locator points
// to: the last path segment with any ".git" suffix removed.
//
//	https://github.com/glfw/glfw.git  -> glfw
//	git@github.com:glfw/glfw.git      -> glfw
func ProjectName(locator string) (string, error) {
	var path string
	if hasURLScheme(locator) {
		u, err := url.Parse(locator)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrMalformedLocator, locator, err)
		}
		path = strings.TrimLeft(u.Path, "/")
	} else {
		_, rest, ok := strings.Cut(locator, ":")
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrMalformedLocator, locator)
		}
		path = rest
	}
	path = strings.TrimRight(path, "/")
	path = strings.TrimSuffix(path, ".git")

	name := path[strings.LastIndex(path, "/")+1:]
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q has no project name", ErrMalformedLocator, locator)
	}
	if _, err := EscapePath(name); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedLocator, locator, err)
	}
	return name, nil
}

func hasURLScheme(locator string) bool {
	lower := strings.ToLower(locator)
	for _, scheme := range urlSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

// EscapePath returns the escaped form of the given path as a valid
// file system path. It fails if the path is absolute, empty or escapes
// its parent.
func EscapePath(path string) (escaped string, err error) {
	return filepath.Localize(path)
}
