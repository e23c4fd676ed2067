package cmake

import (
	"context"
	"sort"
	"strconv"

	"github.com/goplus/ccpm/internal/run"
	"github.com/goplus/ccpm/pkgs/buildsys"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake wraps common CMake build steps with chainable configuration.
type CMake struct {
	SourceDir  string
	buildDir   string
	installDir string
	generator  string
	buildType  string
	toolchain  string
	jobs       int
	quiet      bool
	Defines    map[string]defineValue
	runner     run.Runner
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New creates a new CMake helper building sourceDir into buildDir and
// installing into installDir.
func New(sourceDir, buildDir, installDir string) *CMake {
	return &CMake{
		SourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		Defines:    map[string]defineValue{},
		runner:     run.Default,
	}
}

// NewFromOptions is a buildsys.Factory.
func NewFromOptions(opts buildsys.Options) buildsys.BuildSystem {
	c := New(opts.SourceDir, opts.BuildDir, opts.InstallDir).
		BuildType(opts.BuildType).
		Generator(opts.Generator).
		Toolchain(opts.Toolchain).
		Jobs(opts.Jobs).
		Quiet(opts.Quiet)
	if opts.Runner != nil {
		c.WithRunner(opts.Runner)
	}
	return c
}

func (c *CMake) WithRunner(r run.Runner) *CMake {
	c.runner = r
	return c
}

func (c *CMake) Generator(name string) *CMake {
	c.generator = name
	return c
}

func (c *CMake) BuildType(name string) *CMake {
	c.buildType = name
	return c
}

func (c *CMake) Toolchain(path string) *CMake {
	c.toolchain = path
	return c
}

func (c *CMake) Jobs(n int) *CMake {
	c.jobs = n
	return c
}

// Quiet discards the stdout of the install step.
func (c *CMake) Quiet(quiet bool) *CMake {
	c.quiet = quiet
	return c
}

func (c *CMake) Define(key, value string) *CMake {
	if c.Defines == nil {
		c.Defines = map[string]defineValue{}
	}
	c.Defines[key] = defineValue{value: value, typeName: "STRING"}
	return c
}

func (c *CMake) DefineBool(key string, value bool) *CMake {
	if c.Defines == nil {
		c.Defines = map[string]defineValue{}
	}
	if value {
		c.Defines[key] = defineValue{value: "ON", typeName: "BOOL"}
		return c
	}
	c.Defines[key] = defineValue{value: "OFF", typeName: "BOOL"}
	return c
}

// Configure runs "cmake -S <src> -B <build>". args follow the typed
// defines verbatim, so raw "-DKEY=VALUE" arguments keep their order.
func (c *CMake) Configure(ctx context.Context, args ...string) error {
	return c.run(ctx, c.configureArgs(args), false)
}

func (c *CMake) configureArgs(args []string) []string {
	cmakeArgs := []string{"-S", c.SourceDir, "-B", c.dir()}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.toolchain != "" {
		c.Define("CMAKE_TOOLCHAIN_FILE", c.toolchain)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	return append(cmakeArgs, args...)
}

// Build runs "cmake --build". args are passed through verbatim.
func (c *CMake) Build(ctx context.Context, args ...string) error {
	return c.run(ctx, c.buildArgs(args), false)
}

func (c *CMake) buildArgs(args []string) []string {
	cmdArgs := []string{"--build", c.dir()}
	if c.buildType != "" {
		cmdArgs = append(cmdArgs, "--config", c.buildType)
	}
	if c.jobs > 0 {
		cmdArgs = append(cmdArgs, "-j", strconv.Itoa(c.jobs))
	}
	return append(cmdArgs, args...)
}

// Install runs "cmake --install" into the install prefix.
func (c *CMake) Install(ctx context.Context, args ...string) error {
	return c.run(ctx, c.installArgs(args), c.quiet)
}

func (c *CMake) installArgs(args []string) []string {
	cmdArgs := []string{"--install", c.dir()}
	if c.buildType != "" {
		cmdArgs = append(cmdArgs, "--config", c.buildType)
	}
	if c.installDir != "" {
		cmdArgs = append(cmdArgs, "--prefix", c.installDir)
	}
	return append(cmdArgs, args...)
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (c *CMake) OutputDir() string {
	if c.installDir != "" {
		return c.installDir
	}
	return c.dir()
}

func (c *CMake) dir() string {
	if c.buildDir == "" {
		return "build"
	}
	return c.buildDir
}

func (c *CMake) definesArgs() []string {
	if len(c.Defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Defines))
	for k := range c.Defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := c.Defines[k]
		if def.typeName != "" {
			args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
			continue
		}
		args = append(args, "-D"+k+"="+def.value)
	}
	return args
}

func (c *CMake) run(ctx context.Context, args []string, quiet bool) error {
	return c.runner.Run(ctx, run.Cmd{Name: "cmake", Args: args, Quiet: quiet})
}
