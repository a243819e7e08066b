package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/inkvault/internal/errors"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolveFiles expands user-provided paths, directories and globs into a
// de-duplicated list of regular files to import. Relative patterns are
// resolved against baseDir. Directories contribute their direct regular
// files only.
func ResolveFiles(patterns []string, baseDir string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}

	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, baseDir)
		if err != nil {
			return nil, err
		}
		for _, f := range resolved {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}
	return files, nil
}

func resolvePattern(pattern, baseDir string) ([]string, error) {
	absPattern := pattern
	if !filepath.IsAbs(pattern) {
		absPattern = filepath.Join(baseDir, pattern)
	}

	info, err := os.Stat(absPattern)
	if err == nil && info.IsDir() {
		return filesInDir(absPattern)
	}

	if strings.ContainsAny(pattern, "*?[{") {
		matches, err := doublestar.FilepathGlob(absPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		var regular []string
		for _, m := range matches {
			if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
				regular = append(regular, m)
			}
		}
		return regular, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrNoFilesFound, pattern)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", pattern)
	}
	return []string{absPattern}, nil
}

func filesInDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, kerrors.Op(kerrors.OpRead, dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
