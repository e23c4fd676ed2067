package internal

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goplus/ccpm/internal/build"
	"github.com/goplus/ccpm/internal/config"
	"github.com/goplus/ccpm/internal/env"
	"github.com/goplus/ccpm/internal/logfields"
	"github.com/goplus/ccpm/internal/manifest"
	"github.com/goplus/ccpm/internal/metrics"
	"github.com/goplus/ccpm/internal/vcs"
)

var (
	installJobs        int
	installMetricsFile string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Fetch, build and install the dependencies in ccpm.toml",
	Long: `Install clones each dependency declared in ccpm.toml, builds it in Debug and
Release, installs it under .ccpm/ and writes .ccpm/ccpm.cmake.

Clones and builds are cached in ~/.ccpm (or $CCPM_HOME) and reused until the
repository, tag or defines of a dependency change.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().IntVarP(&installJobs, "jobs", "j", 0, "Parallel compile jobs (default $CCPM_JOBS, settings.jobs or 16)")
	installCmd.Flags().StringVar(&installMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	if err := env.LoadDotEnv(root); err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	for _, key := range cfg.Undecoded {
		slog.Warn("unknown key in "+config.FileName, slog.String("key", key))
	}

	jobs, err := resolveJobs(cmd.Flags().Changed("jobs"), installJobs, cfg.Settings.Jobs)
	if err != nil {
		return err
	}
	downloadDir, err := env.DownloadDir()
	if err != nil {
		return err
	}
	v, err := newVCS(cfg.Settings.VCS, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := requireTools("cmake"); err != nil {
		return err
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if installMetricsFile != "" {
		prom := metrics.NewPrometheusRecorder(nil)
		rec = prom
		defer func() {
			if werr := prom.WriteTextfile(installMetricsFile); werr != nil {
				slog.Error("write metrics", logfields.Path(installMetricsFile), logfields.Error(werr))
			}
		}()
	}

	out := cmd.OutOrStdout()
	builder := build.NewBuilder(build.Options{
		DownloadDir:    downloadDir,
		InstallDir:     env.InstallDir(root),
		Jobs:           jobs,
		Configurations: cfg.Settings.BuildConfigurations(),
		Toolchain:      cfg.Settings.BuildToolchain(root),
		VCS:            v,
		Recorder:       rec,
		Logger:         slog.Default(),
		Stdout:         out,
		Verbose:        verbose,
	})
	report, err := builder.Build(cmd.Context(), cfg.Dependencies)
	if err != nil {
		return err
	}

	path := env.ManifestPath(root)
	if err := manifest.Emit(report.Results, root, path); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	printSummary(out, report, path)
	return nil
}

func printSummary(w io.Writer, report *build.Report, manifestPath string) {
	fmt.Fprintf(w, "\n[CCPM] :: Installed %d dependencies into %s\n", len(report.Results), manifestPath)
	for _, s := range report.Skipped {
		fmt.Fprintf(w, "[CCPM] :: Skipped #%d %s: %v\n", s.Index+1, s.Dependency, s.Err)
	}
}

// resolveJobs picks the compile parallelism: --jobs, then $CCPM_JOBS, then
// settings.jobs, then build.DefaultJobs.
func resolveJobs(flagSet bool, flagJobs, settingsJobs int) (int, error) {
	if flagSet {
		if flagJobs <= 0 {
			return 0, fmt.Errorf("--jobs must be positive, got %d", flagJobs)
		}
		return flagJobs, nil
	}
	envJobs, err := env.Jobs()
	if err != nil {
		return 0, err
	}
	if envJobs > 0 {
		return envJobs, nil
	}
	if settingsJobs > 0 {
		return settingsJobs, nil
	}
	return build.DefaultJobs, nil
}

func newVCS(backend string, progress io.Writer) (vcs.VCS, error) {
	switch backend {
	case config.VCSGoGit:
		if !verbose {
			progress = nil
		}
		return vcs.NewGoGitVCS(progress), nil
	default:
		if err := requireTools("git"); err != nil {
			return nil, err
		}
		return vcs.NewGitVCS(), nil
	}
}
