package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goplus/ccpm/internal/build/lockedfile"
	"github.com/goplus/ccpm/internal/logfields"
	"github.com/goplus/ccpm/internal/metrics"
	"github.com/goplus/ccpm/internal/run"
	"github.com/goplus/ccpm/internal/vcs"
	"github.com/goplus/ccpm/pkgs/buildsys"
	"github.com/goplus/ccpm/pkgs/buildsys/cmake"
	"github.com/goplus/ccpm/pkgs/mod/module"
)

// DefaultJobs is the compile parallelism used when none is configured.
const DefaultJobs = 16

// ErrMissingField is reported for declarations without a repository or tag.
var ErrMissingField = errors.New("missing required field")

// Options configures a Builder.
type Options struct {
	DownloadDir    string // user-global clone and build cache
	InstallDir     string // per-project install root
	Jobs           int
	Configurations []Configuration
	Toolchain      Toolchain // applied to every dependency, part of the build digest

	VCS            vcs.VCS
	NewBuildSystem buildsys.Factory
	Runner         run.Runner // passed to build systems, nil for run.Default

	Recorder metrics.Recorder
	Logger   *slog.Logger
	Stdout   io.Writer // progress lines
	Verbose  bool      // show install output
}

// Builder runs the fetch, compile and install stages for a list of
// dependencies. It is not safe for concurrent use; concurrent processes are
// serialized by a lock file in the download directory.
type Builder struct {
	opts Options
	log  *slog.Logger
	rec  metrics.Recorder
	out  io.Writer
}

func NewBuilder(opts Options) *Builder {
	if opts.Jobs <= 0 {
		opts.Jobs = DefaultJobs
	}
	if len(opts.Configurations) == 0 {
		opts.Configurations = DefaultConfigurations
	}
	if opts.VCS == nil {
		opts.VCS = vcs.NewGitVCS()
	}
	if opts.NewBuildSystem == nil {
		opts.NewBuildSystem = cmake.NewFromOptions
	}
	b := &Builder{opts: opts, log: opts.Logger, rec: opts.Recorder, out: opts.Stdout}
	if b.log == nil {
		b.log = slog.Default()
	}
	if b.rec == nil {
		b.rec = metrics.NoopRecorder{}
	}
	if b.out == nil {
		b.out = os.Stdout
	}
	return b
}

// Result describes one processed declaration.
type Result struct {
	Dependency     module.Dependency
	Project        string
	Digest         string
	InstallDir     string
	Configurations []Configuration
}

// Skipped describes a declaration that was not processed.
type Skipped struct {
	Index      int
	Dependency module.Dependency
	Err        error
}

// Report is the outcome of Build. Results are in declaration order.
type Report struct {
	Results []Result
	Skipped []Skipped
}

// Build processes deps in order. Declarations that are incomplete or
// malformed are skipped and listed in the report; any stage failure aborts
// the run and is returned along with the results gathered so far.
func (b *Builder) Build(ctx context.Context, deps []module.Dependency) (*Report, error) {
	unlock, err := lockedfile.MutexAt(filepath.Join(b.opts.DownloadDir, ".lock")).Lock()
	if err != nil {
		return nil, fmt.Errorf("lock download directory: %w", err)
	}
	defer unlock()

	report := &Report{}
	projects := make(map[string]module.Dependency)
	for i, dep := range deps {
		layout, err := b.plan(dep)
		if err != nil {
			b.skip(report, i, dep, err)
			continue
		}
		if prev, ok := projects[layout.Project]; ok {
			b.log.Warn("dependencies share an install directory",
				logfields.Project(layout.Project),
				slog.String("first", prev.String()),
				slog.String("second", dep.String()))
		}
		projects[layout.Project] = dep

		res, err := b.process(ctx, dep, layout)
		if err != nil {
			return report, fmt.Errorf("%s: %w", dep, err)
		}
		report.Results = append(report.Results, *res)
	}
	return report, nil
}

func (b *Builder) plan(dep module.Dependency) (*Layout, error) {
	var missing []string
	if dep.Repo == "" {
		missing = append(missing, "repo_url")
	}
	if dep.Tag == "" {
		missing = append(missing, "tag")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return NewLayout(b.opts.DownloadDir, b.opts.InstallDir, dep, b.opts.Toolchain)
}

func (b *Builder) skip(report *Report, i int, dep module.Dependency, err error) {
	report.Skipped = append(report.Skipped, Skipped{Index: i, Dependency: dep, Err: err})
	attrs := []any{logfields.Index(i), logfields.Repository(dep.Repo), logfields.Tag(dep.Tag), logfields.Error(err)}
	switch {
	case errors.Is(err, ErrMissingField):
		b.rec.IncSkippedDependency("missing_field")
		b.log.Warn("skipping incomplete dependency", attrs...)
	case errors.Is(err, module.ErrMalformedLocator):
		b.rec.IncSkippedDependency("malformed_locator")
		b.log.Error("skipping dependency with malformed locator", attrs...)
	default:
		b.rec.IncSkippedDependency("invalid_tag")
		b.log.Error("skipping invalid dependency", attrs...)
	}
}

func (b *Builder) process(ctx context.Context, dep module.Dependency, l *Layout) (*Result, error) {
	fmt.Fprintf(b.out, "\n[CCPM] :: %s/%s : %s\n", l.Project, dep.Tag, strings.Join(dep.Defines, " "))
	log := b.log.With(logfields.Project(l.Project))
	log.Debug("processing dependency", logfields.Tag(dep.Tag), logfields.Digest(l.Digest))

	cache, err := loadCache(l.ProjectDir)
	if errors.Is(err, errCorruptCache) {
		log.Warn("discarding unreadable completion records", logfields.Path(l.ProjectDir), logfields.Error(err))
		cache, err = &buildCache{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load completion records: %w", err)
	}

	if err := os.RemoveAll(l.InstallDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(l.InstallDir, 0o755); err != nil {
		return nil, err
	}

	if _, err := b.stage(log, metrics.StageFetch, func() (bool, error) {
		return b.fetch(ctx, dep, l, cache)
	}); err != nil {
		return nil, err
	}

	for _, cfg := range b.opts.Configurations {
		bs := b.buildSystem(l, cfg)
		cfgLog := log.With(logfields.Config(string(cfg)))
		if _, err := b.stage(cfgLog, metrics.StageCompile, func() (bool, error) {
			return b.compile(ctx, dep, l, cfg, bs, cache)
		}); err != nil {
			return nil, err
		}
		if _, err := b.stage(cfgLog, metrics.StageInstall, func() (bool, error) {
			return false, b.install(ctx, l, cfg, bs)
		}); err != nil {
			return nil, err
		}
	}

	return &Result{
		Dependency:     dep,
		Project:        l.Project,
		Digest:         l.Digest,
		InstallDir:     l.InstallDir,
		Configurations: b.opts.Configurations,
	}, nil
}

// stage times fn, records its outcome and logs it to log.
func (b *Builder) stage(log *slog.Logger, name string, fn func() (hit bool, err error)) (bool, error) {
	start := time.Now()
	hit, err := fn()
	elapsed := time.Since(start)
	b.rec.ObserveStageDuration(name, elapsed)

	result := metrics.ResultRun
	switch {
	case err != nil:
		result = metrics.ResultFailed
	case hit:
		result = metrics.ResultHit
	}
	b.rec.IncStageResult(name, result)
	log.Debug("stage finished",
		logfields.Stage(name),
		slog.String("result", string(result)),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return hit, err
}

func (b *Builder) buildSystem(l *Layout, cfg Configuration) buildsys.BuildSystem {
	return b.opts.NewBuildSystem(buildsys.Options{
		SourceDir:  l.SourceDir,
		BuildDir:   l.BuildDirOf(cfg),
		InstallDir: l.InstallDirOf(cfg),
		BuildType:  string(cfg),
		Generator:  b.opts.Toolchain.Generator,
		Toolchain:  b.opts.Toolchain.File,
		Jobs:       b.opts.Jobs,
		Quiet:      !b.opts.Verbose,
		Runner:     b.opts.Runner,
	})
}

// fetch makes sure the source tree of dep exists. It is a hit when the
// clone was recorded as complete for the same repository and the
// directory still has content.
func (b *Builder) fetch(ctx context.Context, dep module.Dependency, l *Layout, cache *buildCache) (bool, error) {
	key := sourceKey(dep.Tag)
	if entry, ok := cache.get(key); ok && nonEmptyDir(l.SourceDir) {
		if entry.Repo == dep.Repo {
			b.log.Debug("source cached", logfields.Project(l.Project), logfields.Path(l.SourceDir))
			return true, nil
		}
		b.log.Warn("cached source was cloned from another repository",
			logfields.Project(l.Project), logfields.Tag(dep.Tag),
			slog.String("cached", entry.Repo), logfields.Repository(dep.Repo))
	}
	if err := b.evictOverlapping(l, cache, dep.Tag); err != nil {
		return false, err
	}
	if err := b.invalidate(l, cache, key, l.SourceDir); err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(l.SourceDir), 0o755); err != nil {
		return false, err
	}

	fmt.Fprintf(b.out, "[+] Cloning repository %s at tag %s into %s\n", dep.Repo, dep.Tag, l.SourceDir)
	if err := b.opts.VCS.Clone(ctx, dep.Repo, dep.Tag, l.SourceDir); err != nil {
		return false, fmt.Errorf("clone: %w", err)
	}
	return false, b.complete(l, cache, key, dep)
}

// compile configures and builds one configuration into its own build tree.
func (b *Builder) compile(ctx context.Context, dep module.Dependency, l *Layout, cfg Configuration, bs buildsys.BuildSystem, cache *buildCache) (bool, error) {
	key := buildKey(l.Digest, cfg)
	dir := l.BuildDirOf(cfg)
	if _, ok := cache.get(key); ok && nonEmptyDir(dir) {
		fmt.Fprintf(b.out, "[+] Using cached build for :: %s\n", cfg)
		return true, nil
	}
	if err := b.invalidate(l, cache, key, dir); err != nil {
		return false, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}

	fmt.Fprintf(b.out, "[+] Building for :: %s\n", cfg)
	defines := make([]string, len(dep.Defines))
	for i, d := range dep.Defines {
		defines[i] = "-D" + d
	}
	fmt.Fprintln(b.out, "[++] Running configure step")
	if err := bs.Configure(ctx, defines...); err != nil {
		return false, fmt.Errorf("configure %s: %w", cfg, err)
	}
	fmt.Fprintln(b.out, "[++] Running build step")
	if err := bs.Build(ctx); err != nil {
		return false, fmt.Errorf("build %s: %w", cfg, err)
	}
	return false, b.complete(l, cache, key, dep)
}

// install always runs: the install directory was cleared when processing
// of the dependency began.
func (b *Builder) install(ctx context.Context, l *Layout, cfg Configuration, bs buildsys.BuildSystem) error {
	fmt.Fprintf(b.out, "[+] Installing for :: %s\n", cfg)
	if err := bs.Install(ctx); err != nil {
		return fmt.Errorf("install %s: %w", cfg, err)
	}
	b.log.Debug("installed", logfields.Project(l.Project), logfields.Config(string(cfg)), logfields.Path(bs.OutputDir()))
	return nil
}

// invalidate drops the record for key and wipes whatever a failed earlier
// attempt left in dir.
func (b *Builder) invalidate(l *Layout, cache *buildCache, key, dir string) error {
	if _, ok := cache.get(key); ok {
		cache.delete(key)
		if err := saveCache(l.ProjectDir, cache); err != nil {
			return err
		}
	}
	if nonEmptyDir(dir) {
		b.log.Info("removing incomplete output", logfields.Project(l.Project), logfields.Path(dir))
	}
	return os.RemoveAll(dir)
}

// evictOverlapping drops the sources of other tags whose directory
// contains or lies inside the one of tag.
func (b *Builder) evictOverlapping(l *Layout, cache *buildCache, tag string) error {
	var evicted bool
	for key := range cache.Cache {
		other, ok := strings.CutPrefix(key, sourcePrefix)
		if !ok || !tagsOverlap(tag, other) {
			continue
		}
		b.log.Info("evicting overlapping source", logfields.Project(l.Project), logfields.Tag(other))
		cache.delete(key)
		evicted = true
		if err := os.RemoveAll(filepath.Join(l.ProjectDir, filepath.FromSlash(other))); err != nil {
			return err
		}
	}
	if !evicted {
		return nil
	}
	return saveCache(l.ProjectDir, cache)
}

func (b *Builder) complete(l *Layout, cache *buildCache, key string, dep module.Dependency) error {
	cache.set(key, &buildEntry{
		Repo:      dep.Repo,
		Tag:       dep.Tag,
		Defines:   dep.Defines,
		BuildTime: time.Now(),
	})
	if err := saveCache(l.ProjectDir, cache); err != nil {
		return fmt.Errorf("save completion record: %w", err)
	}
	return nil
}
