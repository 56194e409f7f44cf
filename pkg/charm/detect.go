package charm

import (
	"os"
	"path/filepath"
)

// Framework identifies how a charm project is put together.
type Framework string

const (
	// FrameworkReactive is a charms.reactive layered charm
	// (layer.yaml plus a reactive/ handler directory).
	FrameworkReactive Framework = "reactive"

	// FrameworkOperator is an operator-framework charm
	// (src/charm.py or a dispatch script).
	FrameworkOperator Framework = "operator"

	// FrameworkHooks is a classic charm with bare hook scripts.
	FrameworkHooks Framework = "hooks"

	// FrameworkUnknown means no recognizable charm layout was found.
	FrameworkUnknown Framework = "unknown"
)

// DetectFramework inspects a project root and reports the charm
// framework it uses. Detection is deterministic: it looks only at the
// presence of well-known files, never at file contents.
func DetectFramework(root string) Framework {
	if fileExists(filepath.Join(root, LayerFileName)) && dirExists(filepath.Join(root, "reactive")) {
		return FrameworkReactive
	}
	if fileExists(filepath.Join(root, "src", "charm.py")) || fileExists(filepath.Join(root, "dispatch")) {
		return FrameworkOperator
	}
	if dirExists(filepath.Join(root, "hooks")) {
		return FrameworkHooks
	}
	return FrameworkUnknown
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
