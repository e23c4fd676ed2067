// Package env resolves the ccpm directories and environment overrides.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// HomeEnv overrides the download root.
	HomeEnv = "CCPM_HOME"
	// JobsEnv overrides the compile parallelism.
	JobsEnv = "CCPM_JOBS"

	dirName      = ".ccpm"
	manifestName = "ccpm.cmake"
)

// DownloadDir returns the user-global clone and build cache: $CCPM_HOME,
// or ~/.ccpm.
func DownloadDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(HomeEnv)); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName), nil
}

// InstallDir returns the per-project install root.
func InstallDir(projectRoot string) string {
	return filepath.Join(projectRoot, dirName)
}

// ManifestPath returns where the CMake include file is written.
func ManifestPath(projectRoot string) string {
	return filepath.Join(InstallDir(projectRoot), manifestName)
}

// Jobs returns the parallelism set by CCPM_JOBS, or 0 when it is unset.
func Jobs() (int, error) {
	v := strings.TrimSpace(os.Getenv(JobsEnv))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s=%q: want a positive integer", JobsEnv, v)
	}
	return n, nil
}

// LoadDotEnv loads <projectRoot>/.env if present. Variables already set
// in the environment win.
func LoadDotEnv(projectRoot string) error {
	err := godotenv.Load(filepath.Join(projectRoot, ".env"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
