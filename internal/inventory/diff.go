package inventory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/charmsmith/charmsmith/pkg/util"
)

// ChangedEntries returns the names of entries whose digests differ
// between two runs, including entries only present on one side.
func ChangedEntries(previous, current map[string]string) []string {
	seen := make(map[string]bool)
	var changed []string
	for name, digest := range current {
		seen[name] = true
		if previous[name] != digest {
			changed = append(changed, name)
		}
	}
	for name := range previous {
		if !seen[name] {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// DiffBundles renders a unified diff of every entry that differs
// between two bundles. Identical bundles produce an empty string.
func DiffBundles(old, new Bundle) (string, error) {
	names := make(map[string]bool)
	for name := range old {
		names[name] = true
	}
	for name := range new {
		names[name] = true
	}

	var out strings.Builder
	for _, name := range util.SortedKeys(names) {
		before, after := old[name], new[name]
		if before == after {
			continue
		}

		ud := difflib.UnifiedDiff{
			A:        difflib.SplitLines(before),
			B:        difflib.SplitLines(after),
			FromFile: "previous/" + name,
			ToFile:   "current/" + name,
			Context:  3,
		}
		text, err := difflib.GetUnifiedDiffString(ud)
		if err != nil {
			return "", fmt.Errorf("failed to diff %s: %w", name, err)
		}
		out.WriteString(text)
	}

	return out.String(), nil
}
