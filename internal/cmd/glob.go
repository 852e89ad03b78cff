package cmd

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/automeetsslide/decksidecar/internal/logging"
)

const globMeta = "*?[{"

// expandSourceFiles expands --source-file glob patterns into file paths.
// Plain paths and patterns that match nothing are kept as given, so the job
// reports them as missing instead of dropping them silently. Matches of one
// pattern are sorted; pattern order is kept.
func expandSourceFiles(patterns []string, logger *logging.Logger) []string {
	var files []string
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, globMeta) {
			files = append(files, pattern)
			continue
		}

		matches, err := matchFiles(pattern)
		if err != nil {
			logger.Warn("invalid source-file pattern", "pattern", pattern, "error", err.Error())
			files = append(files, pattern)
			continue
		}
		if len(matches) == 0 {
			logger.Warn("source-file pattern matched nothing", "pattern", pattern)
			files = append(files, pattern)
			continue
		}
		logger.Debug("expanded source-file pattern", "pattern", pattern, "matches", len(matches))
		files = append(files, matches...)
	}
	return files
}

// matchFiles walks the static prefix of pattern and returns regular files
// matching it. "*" stays within one path segment and "**" crosses segments.
func matchFiles(pattern string) ([]string, error) {
	pattern = filepath.Clean(pattern)
	g, err := glob.Compile(pattern, filepath.Separator)
	if err != nil {
		return nil, err
	}

	root := staticRoot(pattern)

	var matches []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped, not fatal
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && g.Match(path) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}

// staticRoot returns the directory part of pattern before its first
// wildcard, or "." for a relative pattern that starts with one.
func staticRoot(pattern string) string {
	i := strings.IndexAny(pattern, globMeta)
	if i < 0 {
		return filepath.Dir(pattern)
	}
	j := strings.LastIndexByte(pattern[:i], filepath.Separator)
	switch {
	case j < 0:
		return "."
	case j == 0:
		return string(filepath.Separator)
	default:
		return pattern[:j]
	}
}
