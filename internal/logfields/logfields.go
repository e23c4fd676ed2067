package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyProject    = "project"
	KeyRepo       = "repository"
	KeyTag        = "tag"
	KeyStage      = "stage"
	KeyConfig     = "config"
	KeyDigest     = "digest"
	KeyPath       = "path"
	KeyIndex      = "index"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func Project(name string) slog.Attr   { return slog.String(KeyProject, name) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Tag(tag string) slog.Attr        { return slog.String(KeyTag, tag) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Config(cfg string) slog.Attr     { return slog.String(KeyConfig, cfg) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Index(i int) slog.Attr           { return slog.Int(KeyIndex, i) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Digest logs the first 12 characters of a cache key.
func Digest(d string) slog.Attr {
	if len(d) > 12 {
		d = d[:12]
	}
	return slog.String(KeyDigest, d)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
