package internal

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/goplus/ccpm/internal/build"
	"github.com/goplus/ccpm/internal/config"
	"github.com/goplus/ccpm/internal/env"
	"github.com/goplus/ccpm/pkgs/buildsys/cmake"
)

var (
	buildRelease         bool
	buildJobs            int
	buildCompileCommands bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the current project",
	Long: `Build configures and builds the project's own CMakeLists.txt into build/,
in Debug unless --release is given. Run "ccpm install" first so that
.ccpm/ccpm.cmake exists.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&buildRelease, "release", "r", false, "Build in Release instead of Debug")
	buildCmd.Flags().BoolVar(&buildCompileCommands, "compile-commands", true, "Export compile_commands.json for editors")
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", 0, "Parallel compile jobs (default $CCPM_JOBS, settings.jobs or 16)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	if err := env.LoadDotEnv(root); err != nil {
		return err
	}
	var settings config.Settings
	cfg, err := config.Load(root)
	switch {
	case err == nil:
		settings = cfg.Settings
	case !errors.Is(err, config.ErrMissingConfiguration):
		return err
	}
	jobs, err := resolveJobs(cmd.Flags().Changed("jobs"), buildJobs, settings.Jobs)
	if err != nil {
		return err
	}
	if err := requireTools("cmake"); err != nil {
		return err
	}

	buildType := build.Debug
	if buildRelease {
		buildType = build.Release
	}
	buildDir := projectBuildDir(root)
	fmt.Fprintf(cmd.OutOrStdout(), "[CCPM] :: Building current project (%s) in %s\n", buildType, buildDir)

	c := projectCMake(root, buildType, jobs, settings.BuildToolchain(root))
	if err := c.Configure(cmd.Context()); err != nil {
		return err
	}
	return c.Build(cmd.Context())
}

// projectCMake configures the project build with the generator and
// toolchain its dependencies were built with.
func projectCMake(root string, buildType build.Configuration, jobs int, tc build.Toolchain) *cmake.CMake {
	return cmake.New(root, projectBuildDir(root), "").
		BuildType(string(buildType)).
		Generator(tc.Generator).
		Toolchain(tc.File).
		Jobs(jobs).
		DefineBool("CMAKE_EXPORT_COMPILE_COMMANDS", buildCompileCommands)
}

func projectBuildDir(root string) string {
	return filepath.Join(root, "build")
}
