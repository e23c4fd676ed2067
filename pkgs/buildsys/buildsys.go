// Package buildsys describes the build-system collaborator the pipeline
// drives for each dependency and configuration.
package buildsys

import (
	"context"

	"github.com/goplus/ccpm/internal/run"
)

// BuildSystem captures the three independent steps of a native build. Each
// step fails with a *run.ExitError when the underlying tool exits non-zero.
type BuildSystem interface {
	// Lifecycle.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
	Install(ctx context.Context, args ...string) error

	// Where artifacts land.
	OutputDir() string
}

// Options describes one configuration of one source tree.
type Options struct {
	SourceDir  string
	BuildDir   string
	InstallDir string
	BuildType  string // "Debug" or "Release"
	Generator  string // empty for the tool's default
	Toolchain  string // toolchain file, empty for the host toolchain
	Jobs       int    // parallel compile jobs, 0 leaves it to the tool
	Quiet      bool   // silence install output
	Runner     run.Runner
}

// Factory creates a BuildSystem for opts.
type Factory func(opts Options) BuildSystem
