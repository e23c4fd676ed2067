// Package metrics records pipeline stage outcomes. Components receive a
// Recorder and default to NoopRecorder; ccpm install swaps in a
// PrometheusRecorder when --metrics-file is given.
package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultHit    ResultLabel = "hit"    // completion record found, stage skipped
	ResultRun    ResultLabel = "run"    // stage executed successfully
	ResultFailed ResultLabel = "failed" // stage executed and failed
)

// Stage names.
const (
	StageFetch   = "fetch"
	StageCompile = "compile"
	StageInstall = "install"
)

// Recorder defines observability hooks for the dependency pipeline.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncSkippedDependency(reason string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncSkippedDependency(string)                {}
