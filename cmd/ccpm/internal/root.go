package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goplus/ccpm/internal/run"
)

var (
	projectPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "ccpm",
	Short: "ccpm is a dependency cache for CMake projects",
	Long: `ccpm clones, builds and installs the git-hosted CMake dependencies declared
in ccpm.toml, once per repository, tag and option set, and writes
.ccpm/ccpm.cmake for the consuming project to include.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(cmd.ErrOrStderr(), verbose))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectPath, "path", "p", ".", "Project root containing ccpm.toml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// Execute runs the root command and returns the process exit code. A
// failing git or cmake makes ccpm exit with the same code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := run.ExitCode(err); ok {
		return code
	}
	return 1
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func projectRoot() (string, error) {
	root, err := filepath.Abs(projectPath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", root)
	}
	return root, nil
}

var lookPath = exec.LookPath

// requireTools fails unless every named executable is on PATH.
func requireTools(names ...string) error {
	for _, name := range names {
		if _, err := lookPath(name); err != nil {
			return fmt.Errorf("%s is required but was not found in PATH: %w", name, err)
		}
	}
	return nil
}
