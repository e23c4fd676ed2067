// Command ccpm fetches, builds and caches the CMake dependencies declared
// in ccpm.toml.
package main

import (
	"os"

	"github.com/goplus/ccpm/cmd/ccpm/internal"
)

func main() {
	os.Exit(internal.Execute())
}
