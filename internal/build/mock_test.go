package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/ccpm/internal/run"
	"github.com/goplus/ccpm/pkgs/buildsys"
)

// fakeVCS implements vcs.VCS by writing a marker file instead of cloning.
type fakeVCS struct {
	clones []string // "remote@ref"
	fail   error    // returned after a partial checkout when set
}

func (f *fakeVCS) Clone(ctx context.Context, remote, ref, dir string) error {
	f.clones = append(f.clones, remote+"@"+ref)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if f.fail != nil {
		os.WriteFile(filepath.Join(dir, "partial"), nil, 0o644)
		return f.fail
	}
	return os.WriteFile(filepath.Join(dir, "CMakeLists.txt"), []byte("project(fake)\n"), 0o644)
}

func (f *fakeVCS) Tags(ctx context.Context, remote string) ([]string, error) {
	return []string{"v1.0.0", "v1.2.0"}, nil
}

// fakeBuild records every step of every build system it creates.
type fakeBuild struct {
	opts      []buildsys.Options
	configure []string // build dirs
	build     []string
	install   []string // install dirs
	defines   [][]string
	fail      map[string]error // step name -> error
}

func (f *fakeBuild) factory(opts buildsys.Options) buildsys.BuildSystem {
	f.opts = append(f.opts, opts)
	return &fakeBuildSystem{f: f, opts: opts}
}

type fakeBuildSystem struct {
	f    *fakeBuild
	opts buildsys.Options
}

func (s *fakeBuildSystem) Configure(ctx context.Context, args ...string) error {
	s.f.configure = append(s.f.configure, s.opts.BuildDir)
	s.f.defines = append(s.f.defines, args)
	os.WriteFile(filepath.Join(s.opts.BuildDir, "CMakeCache.txt"), []byte(strings.Join(args, "\n")), 0o644)
	return s.f.fail["configure"]
}

func (s *fakeBuildSystem) Build(ctx context.Context, args ...string) error {
	s.f.build = append(s.f.build, s.opts.BuildDir)
	if err := s.f.fail["build"]; err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.opts.BuildDir, "libfake.a"), nil, 0o644)
}

func (s *fakeBuildSystem) Install(ctx context.Context, args ...string) error {
	s.f.install = append(s.f.install, s.opts.InstallDir)
	if err := s.f.fail["install"]; err != nil {
		return err
	}
	lib := filepath.Join(s.opts.InstallDir, "lib")
	if err := os.MkdirAll(lib, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(lib, "libfake.a"), nil, 0o644)
}

func (s *fakeBuildSystem) OutputDir() string {
	return s.opts.InstallDir
}

func exitError(name string, code int) error {
	return &run.ExitError{Name: name, Code: code}
}
