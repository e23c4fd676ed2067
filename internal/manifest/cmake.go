// Package manifest writes the CMake include file that points a consuming
// project at the installed dependencies.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/goplus/ccpm/internal/build"
)

// Placeholder replaces the project root in emitted paths.
const Placeholder = "${CMAKE_SOURCE_DIR}"

const cmakeTemplate = `# Generated by ccpm. DO NOT EDIT.

string(TOLOWER "${CMAKE_BUILD_TYPE}" CCPM_BUILD_TYPE_LOWER)
if(CCPM_BUILD_TYPE_LOWER STREQUAL "debug")
    set(CCPM_BUILD_ID Debug)
else()
    set(CCPM_BUILD_ID Release)
endif()

# Add to prefix path
{{- range .Entries}}

# {{.Name}}
{{- range .Paths}}
list(APPEND CCPM_PREFIX_PATH_{{.Config}} "{{.Path}}")
{{- end}}
{{- end}}

list(APPEND CMAKE_PREFIX_PATH ${CCPM_PREFIX_PATH_${CCPM_BUILD_ID}})
{{- if .Packages}}

# Find packages
{{- range .Packages}}
find_package({{.}} REQUIRED)
{{- end}}
{{- end}}
`

var tmpl = template.Must(template.New("ccpm.cmake").Parse(cmakeTemplate))

type entry struct {
	Name  string
	Paths []prefixPath
}

type prefixPath struct {
	Config string
	Path   string
}

type manifestData struct {
	Entries  []entry
	Packages []string
}

// Emit overwrites outputPath with one prefix-path registration per result
// and configuration, in result order. Paths under projectRoot are written
// relative to ${CMAKE_SOURCE_DIR}. Nothing is checked on disk.
func Emit(results []build.Result, projectRoot, outputPath string) error {
	data := manifestData{}
	seen := make(map[string]bool)
	for _, res := range results {
		e := entry{Name: res.Dependency.String()}
		base := relativize(res.InstallDir, projectRoot)
		for _, cfg := range res.Configurations {
			e.Paths = append(e.Paths, prefixPath{Config: string(cfg), Path: base + "/" + string(cfg)})
		}
		data.Entries = append(data.Entries, e)
		if pkg := res.Dependency.Package; pkg != "" && !seen[pkg] {
			seen[pkg] = true
			data.Packages = append(data.Packages, pkg)
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(outputPath), err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, buf.Bytes(), 0o644)
}

// relativize rewrites path with projectRoot replaced by Placeholder when
// path lies inside projectRoot, and quotes it for a CMake string.
func relativize(path, projectRoot string) string {
	path = filepath.Clean(path)
	if projectRoot != "" {
		root := filepath.Clean(projectRoot)
		if path == root {
			return Placeholder
		}
		prefix := root
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			return Placeholder + "/" + escape(filepath.ToSlash(rest))
		}
	}
	return escape(filepath.ToSlash(path))
}

var cmakeEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`)

func escape(s string) string {
	return cmakeEscaper.Replace(s)
}
