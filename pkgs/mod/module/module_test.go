package module

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"
)

func TestProjectName(t *testing.T) {
	tests := []struct {
		locator string
		want    string
	}{
		{"https://example.com/org/libfoo.git", "libfoo"},
		{"https://example.com/org/libfoo", "libfoo"},
		{"http://example.com/org/libfoo.git", "libfoo"},
		{"https://example.com/org/libfoo.git/", "libfoo"},
		{"HTTPS://example.com/org/libfoo.git", "libfoo"},
		{"git@example.com:org/libfoo.git", "libfoo"},
		{"git@example.com:org/libfoo", "libfoo"},
		{"example.com:libfoo.git", "libfoo"},
		{"ssh://git@example.com:2222/org/libfoo.git", "libfoo"},
		{"git://example.com/org/group/libfoo.git", "libfoo"},
		{"file:///srv/git/libfoo.git", "libfoo"},
		{"https://github.com/glfw/glfw.git", "glfw"},
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			got, err := ProjectName(tt.locator)
			if err != nil {
				t.Fatalf("ProjectName(%q) error = %v", tt.locator, err)
			}
			if got != tt.want {
				t.Errorf("ProjectName(%q) = %q, want %q", tt.locator, got, tt.want)
			}
		})
	}
}

func TestProjectNameSameAcrossForms(t *testing.T) {
	forms := []string{
		"https://github.com/org/libfoo.git",
		"https://github.com/org/libfoo",
		"git@github.com:org/libfoo.git",
		"git@github.com:org/libfoo",
		"ssh://git@github.com/org/libfoo.git",
	}
	want, err := ProjectName(forms[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range forms[1:] {
		got, err := ProjectName(f)
		if err != nil {
			t.Fatalf("ProjectName(%q) error = %v", f, err)
		}
		if got != want {
			t.Errorf("ProjectName(%q) = %q, want %q", f, got, want)
		}
	}
}

func TestProjectNameMalformed(t *testing.T) {
	for _, locator := range []string{
		"",
		"libfoo",
		"org/libfoo.git",
		"host:",
		"https://example.com/",
		"https://example.com/org/..",
		"host:.git",
	} {
		t.Run(locator, func(t *testing.T) {
			_, err := ProjectName(locator)
			if !errors.Is(err, ErrMalformedLocator) {
				t.Errorf("ProjectName(%q) error = %v, want ErrMalformedLocator", locator, err)
			}
		})
	}
}

func TestDependencyString(t *testing.T) {
	d := Dependency{Repo: "https://example.com/org/libfoo.git", Tag: "v1.2.0"}
	if got, want := d.String(), "https://example.com/org/libfoo.git@v1.2.0"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		wantEscaped string
		wantErr     bool
	}{
		{
			name:        "simple tag",
			path:        "v1.2.0",
			wantEscaped: "v1.2.0",
		},
		{
			name:        "nested tag",
			path:        "release/1.0",
			wantEscaped: filepath.Join("release", "1.0"),
		},
		{
			name:    "empty string",
			path:    "",
			wantErr: true,
		},
		{
			name:    "parent escape",
			path:    "../v1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			escaped, err := EscapePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("EscapePath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if escaped != tt.wantEscaped {
				t.Errorf("EscapePath() = %v, want %v", escaped, tt.wantEscaped)
			}
		})
	}
}

func TestEscapePath_Invalid(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("absolute path test only applies to windows")
	}

	_, err := EscapePath("C:\\absolute\\path")
	if err == nil {
		t.Error("EscapePath() expected error for absolute path on windows")
	}
}
