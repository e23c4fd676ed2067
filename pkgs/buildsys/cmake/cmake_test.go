package cmake

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/goplus/ccpm/internal/run"
	"github.com/goplus/ccpm/pkgs/buildsys"
)

type recordRunner struct {
	cmds []run.Cmd
}

func (r *recordRunner) Run(ctx context.Context, c run.Cmd) error {
	r.cmds = append(r.cmds, c)
	return nil
}

func TestCommandArgs(t *testing.T) {
	r := &recordRunner{}
	bs := NewFromOptions(buildsys.Options{
		SourceDir:  "/dl/libfoo/v1.2.0",
		BuildDir:   "/dl/libfoo/__abc/Debug",
		InstallDir: "/proj/.ccpm/libfoo/Debug",
		BuildType:  "Debug",
		Jobs:       16,
		Quiet:      true,
		Runner:     r,
	})
	ctx := context.Background()

	if err := bs.Configure(ctx, "-DFOO_SHARED=ON", "-DBAR=1"); err != nil {
		t.Fatal(err)
	}
	if err := bs.Build(ctx); err != nil {
		t.Fatal(err)
	}
	if err := bs.Install(ctx); err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"-S", "/dl/libfoo/v1.2.0", "-B", "/dl/libfoo/__abc/Debug", "-DCMAKE_BUILD_TYPE:STRING=Debug", "-DFOO_SHARED=ON", "-DBAR=1"},
		{"--build", "/dl/libfoo/__abc/Debug", "--config", "Debug", "-j", "16"},
		{"--install", "/dl/libfoo/__abc/Debug", "--config", "Debug", "--prefix", "/proj/.ccpm/libfoo/Debug"},
	}
	if len(r.cmds) != len(want) {
		t.Fatalf("got %d commands, want %d", len(r.cmds), len(want))
	}
	for i, c := range r.cmds {
		if c.Name != "cmake" {
			t.Errorf("cmd %d: Name = %q, want cmake", i, c.Name)
		}
		if !reflect.DeepEqual(c.Args, want[i]) {
			t.Errorf("cmd %d: Args = %q, want %q", i, c.Args, want[i])
		}
	}
	if r.cmds[0].Quiet || r.cmds[1].Quiet || !r.cmds[2].Quiet {
		t.Errorf("only install should be quiet: %v %v %v", r.cmds[0].Quiet, r.cmds[1].Quiet, r.cmds[2].Quiet)
	}
}

func TestFactoryGeneratorToolchain(t *testing.T) {
	r := &recordRunner{}
	bs := NewFromOptions(buildsys.Options{
		SourceDir: "src",
		BuildDir:  "out",
		BuildType: "Release",
		Generator: "Ninja",
		Toolchain: "/opt/tc/arm.cmake",
		Runner:    r,
	})
	if err := bs.Configure(context.Background(), "-DFOO=1"); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"-S", "src", "-B", "out", "-G", "Ninja",
		"-DCMAKE_BUILD_TYPE:STRING=Release",
		"-DCMAKE_TOOLCHAIN_FILE:STRING=/opt/tc/arm.cmake",
		"-DFOO=1",
	}
	if len(r.cmds) != 1 || !reflect.DeepEqual(r.cmds[0].Args, want) {
		t.Fatalf("configure = %+v, want args %q", r.cmds, want)
	}
}

func TestDefinesArgsSorted(t *testing.T) {
	c := New("src", "", "").
		Define("ZED", "z").
		DefineBool("ENABLE", true).
		DefineBool("DISABLE", false).
		Generator("Ninja").
		Toolchain("tc.cmake")

	got := c.configureArgs(nil)
	want := []string{
		"-S", "src", "-B", "build", "-G", "Ninja",
		"-DCMAKE_TOOLCHAIN_FILE:STRING=tc.cmake",
		"-DDISABLE:BOOL=OFF",
		"-DENABLE:BOOL=ON",
		"-DZED:STRING=z",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("configureArgs() = %q, want %q", got, want)
	}
	if got := c.buildArgs(nil); !reflect.DeepEqual(got, []string{"--build", "build"}) {
		t.Errorf("buildArgs() without jobs = %q", got)
	}
}

func TestOutputDirPrefersInstall(t *testing.T) {
	c := New("src", "", "")
	if got := c.OutputDir(); got != "build" {
		t.Fatalf("default OutputDir = %q, want %q", got, "build")
	}
	c = New("src", "out", "custom-install")
	if got := c.OutputDir(); got != "custom-install" {
		t.Fatalf("OutputDir with install dir = %q, want %q", got, "custom-install")
	}
}

func TestConfigureBuildInstallE2E(t *testing.T) {
	if _, err := exec.LookPath("cmake"); err != nil {
		t.Skip("cmake not found in PATH")
	}

	tmp := t.TempDir()
	installDir := filepath.Join(tmp, "install")
	buildDir := filepath.Join(tmp, "build")
	sourceDir, err := filepath.Abs(filepath.Join("testdata", "project"))
	if err != nil {
		t.Fatal(err)
	}

	c := New(sourceDir, buildDir, installDir).
		BuildType("Release").
		Jobs(2).
		Quiet(true).
		WithRunner(&run.Exec{Stdout: &strings.Builder{}, Stderr: &strings.Builder{}})
	c.Define("FOO", "BAR")
	c.DefineBool("ENABLE", true)
	c.DefineBool("DISABLE", false)

	ctx := context.Background()
	if err := c.Configure(ctx, "-DDUMMY_EXTRA=ON"); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := c.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := c.Install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}

	if runtime.GOOS != "windows" {
		wantLib := filepath.Join(installDir, "lib", "libdummy.a")
		if _, err := os.Stat(wantLib); err != nil {
			t.Fatalf("installed lib missing: %v", err)
		}
	}
	wantHeader := filepath.Join(installDir, "include", "dummy.h")
	if _, err := os.Stat(wantHeader); err != nil {
		t.Fatalf("installed header missing: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(buildDir, "CMakeCache.txt"))
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	content := string(data)
	for _, snippet := range []string{
		"FOO:STRING=BAR",
		"ENABLE:BOOL=ON",
		"DISABLE:BOOL=OFF",
		"DUMMY_EXTRA:",
		"CMAKE_BUILD_TYPE:STRING=Release",
	} {
		if !strings.Contains(content, snippet) {
			t.Fatalf("cache missing %q", snippet)
		}
	}
}

func TestConfigureFailureExitCode(t *testing.T) {
	if _, err := exec.LookPath("cmake"); err != nil {
		t.Skip("cmake not found in PATH")
	}

	tmp := t.TempDir()
	c := New(filepath.Join(tmp, "no-such-source"), filepath.Join(tmp, "build"), "").
		WithRunner(&run.Exec{Stdout: &strings.Builder{}, Stderr: &strings.Builder{}})
	err := c.Configure(context.Background())
	if code, ok := run.ExitCode(err); !ok || code == 0 {
		t.Fatalf("Configure error = %v, want a non-zero exit code", err)
	}
}
