package build

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolveSources expands the declared source patterns relative to the
// project root into concrete file paths. Literal declarations pass
// through as-is; glob patterns (doublestar syntax) expand to their
// matches, sorted within each pattern so the result is deterministic.
// Declaration order is preserved across patterns and duplicates keep
// their first position. Implicit inputs (such as the project config
// file) are appended last; empty entries are dropped.
//
// A literal source that does not exist, or a pattern that matches
// nothing, is an error: a build cannot be proven fresh against inputs
// that cannot be statted.
func ResolveSources(root string, patterns []string, implicit ...string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no sources declared")
	}

	seen := make(map[string]bool)
	var resolved []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			resolved = append(resolved, path)
		}
	}

	fsys := os.DirFS(root)
	for _, pattern := range patterns {
		if !isGlob(pattern) {
			path := filepath.Join(root, pattern)
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("declared source %s: %w", pattern, err)
			}
			add(path)
			continue
		}

		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern))
		if err != nil {
			return nil, fmt.Errorf("source pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("source pattern %q matched no files", pattern)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(filepath.Join(root, filepath.FromSlash(m)))
		}
	}

	for _, path := range implicit {
		if path != "" {
			add(path)
		}
	}

	return resolved, nil
}

// isGlob reports whether the pattern contains glob metacharacters.
func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
