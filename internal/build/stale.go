package build

import (
	"fmt"
	"os"
	"time"
)

// IsStale reports whether the manifest must be regenerated against the
// given inputs. A missing manifest is always stale. A missing input is
// an error. The comparison is strict: an input with exactly the
// manifest's timestamp does not make the target stale.
func IsStale(manifestPath string, inputs []string) (bool, error) {
	manifest, err := os.Stat(manifestPath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat manifest: %w", err)
	}

	manifestTime := manifest.ModTime()
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return false, fmt.Errorf("stat source %s: %w", input, err)
		}
		if staleAgainst(manifestTime, info.ModTime()) {
			return true, nil
		}
	}
	return false, nil
}

// StaleSources returns the inputs strictly newer than the manifest, in
// input order. When the manifest is missing every input is returned.
func StaleSources(manifestPath string, inputs []string) ([]string, error) {
	manifest, err := os.Stat(manifestPath)
	if os.IsNotExist(err) {
		out := make([]string, len(inputs))
		copy(out, inputs)
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat manifest: %w", err)
	}

	manifestTime := manifest.ModTime()
	var stale []string
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("stat source %s: %w", input, err)
		}
		if staleAgainst(manifestTime, info.ModTime()) {
			stale = append(stale, input)
		}
	}
	return stale, nil
}

// staleAgainst is the timestamp decision itself: an input invalidates
// the manifest only when it is strictly newer.
func staleAgainst(manifest, input time.Time) bool {
	return input.After(manifest)
}
