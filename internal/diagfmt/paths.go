package diagfmt

import (
	"path/filepath"

	"kernlower/internal/diag"
)

func formatPath(path string, mode PathMode) string {
	if path == "" {
		return path
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	case PathModeBasename:
		return filepath.Base(path)
	}
	return path
}

func withPath(loc diag.Location, mode PathMode) diag.Location {
	loc.File = formatPath(loc.File, mode)
	return loc
}
