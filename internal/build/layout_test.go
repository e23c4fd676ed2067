package build

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/goplus/ccpm/pkgs/mod/module"
)

func TestTagPath(t *testing.T) {
	valid := []string{"v1.2.0", "3.4", "release/1.2", "json/v3.11", "a.b/c", "x__y"}
	for _, tag := range valid {
		got, err := tagPath(tag)
		if err != nil {
			t.Errorf("tagPath(%q): %v", tag, err)
			continue
		}
		if want := filepath.FromSlash(tag); got != want {
			t.Errorf("tagPath(%q) = %q, want %q", tag, got, want)
		}
	}

	invalid := []string{"", ".", "..", "../x", "a/../b", "/abs", "a//b", "a/", ".cache.json", ".lock", ".hidden/v1", "__abc", "__abc/Debug"}
	for _, tag := range invalid {
		if _, err := tagPath(tag); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("tagPath(%q) error = %v, want ErrInvalidTag", tag, err)
		}
	}
}

func TestTagsOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"release", "release/1.2", true},
		{"release/1.2", "release", true},
		{"release/1.2", "release/1.2/rc", true},
		{"release", "release-1.2", false},
		{"release/1.2", "release/1.3", false},
		{"v1", "v1", false},
	}
	for _, tt := range tests {
		if got := tagsOverlap(tt.a, tt.b); got != tt.want {
			t.Errorf("tagsOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNewLayoutNestedTag(t *testing.T) {
	dep := module.Dependency{Repo: "git@example.com:org/json.git", Tag: "json/v3.11"}
	l, err := NewLayout("/dl", "/proj/.ccpm", dep, Toolchain{})
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/dl", "json", "json", "v3.11"); l.SourceDir != want {
		t.Errorf("SourceDir = %q, want %q", l.SourceDir, want)
	}
	if want := filepath.Join("/dl", "json", "__"+CacheKey(dep.Repo, dep.Tag, nil)); l.BuildDir != want {
		t.Errorf("BuildDir = %q, want %q", l.BuildDir, want)
	}
}
