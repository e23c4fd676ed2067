package build

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// CacheKey returns the hex BLAKE3-256 digest of locator, tag and defines.
// Each field is NUL-terminated, so ("a", "b_c") and ("a_b", "c") differ.
// The define order is part of the key: reordering defines yields a new
// build directory even when the resulting build would be identical.
func CacheKey(locator, tag string, defines []string) string {
	h := blake3.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(locator)
	write(tag)
	for _, d := range defines {
		write(d)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Toolchain names the CMake generator and toolchain file applied to every
// dependency. Both shape the configured build tree, so a non-zero
// Toolchain is folded into the build directory digest.
type Toolchain struct {
	Generator string // "-G" argument, empty for the CMake default
	File      string // CMAKE_TOOLCHAIN_FILE, absolute
}

// Key derives the build digest of base under tc. The zero Toolchain
// leaves base unchanged, so existing caches stay valid.
func (tc Toolchain) Key(base string) string {
	if tc == (Toolchain{}) {
		return base
	}
	h := blake3.New()
	for _, s := range []string{base, tc.Generator, tc.File} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
