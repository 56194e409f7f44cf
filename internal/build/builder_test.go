package build_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/charmsmith/charmsmith/internal/build"
)

// fakeRunner records invocations and optionally simulates the external
// tool's behavior.
type fakeRunner struct {
	calls [][]string
	dirs  []string
	onRun func(argv []string) error
}

func (f *fakeRunner) Run(_ context.Context, dir string, argv ...string) error {
	f.calls = append(f.calls, argv)
	f.dirs = append(f.dirs, dir)
	if f.onRun != nil {
		return f.onRun(argv)
	}
	return nil
}

func (f *fakeRunner) Output(_ context.Context, dir string, argv ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, argv)
	f.dirs = append(f.dirs, dir)
	if f.onRun != nil {
		return nil, nil, f.onRun(argv)
	}
	return nil, nil, nil
}

// setupProject creates a minimal reactive charm layout and returns the
// project root and its resolved sources, all with a known base mtime.
func setupProject(t *testing.T) (string, []string, time.Time) {
	t.Helper()
	root := t.TempDir()

	files := []string{"layer.yaml", "metadata.yaml", "reactive/inventory.py"}
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	var sources []string
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("# source"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, base, base); err != nil {
			t.Fatal(err)
		}
		sources = append(sources, path)
	}
	return root, sources, base
}

func newTarget(root string) build.Target {
	return build.Target{Name: "inventory", Series: "focal", BuildRoot: root}
}

// writeManifest creates the build manifest with the given mtime.
func writeManifest(t *testing.T, target build.Target, mtime time.Time) {
	t.Helper()
	path := target.ManifestPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("built"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func newBuilder(t *testing.T, root string, fake *fakeRunner) *build.Builder {
	t.Helper()
	b, err := build.New(root, build.WithCharmPath("charm"), build.WithRunner(fake))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

func TestEnsureBuilt_MissingManifestBuildsOnce(t *testing.T) {
	root, sources, _ := setupProject(t)
	target := newTarget(root)

	fake := &fakeRunner{onRun: func([]string) error {
		writeManifest(t, target, time.Now())
		return nil
	}}
	b := newBuilder(t, root, fake)

	built, err := b.EnsureBuilt(context.Background(), target, sources)
	if err != nil {
		t.Fatalf("EnsureBuilt() error = %v", err)
	}
	if !built {
		t.Error("EnsureBuilt() = false, want true for missing manifest")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("build tool invoked %d times, want exactly 1", len(fake.calls))
	}
}

func TestEnsureBuilt_FreshManifestIsNoOp(t *testing.T) {
	root, sources, base := setupProject(t)
	target := newTarget(root)
	writeManifest(t, target, base.Add(time.Minute))

	fake := &fakeRunner{}
	b := newBuilder(t, root, fake)

	built, err := b.EnsureBuilt(context.Background(), target, sources)
	if err != nil {
		t.Fatalf("EnsureBuilt() error = %v", err)
	}
	if built {
		t.Error("EnsureBuilt() = true, want false for fresh manifest")
	}
	if len(fake.calls) != 0 {
		t.Errorf("build tool invoked %d times, want 0", len(fake.calls))
	}
}

func TestEnsureBuilt_TouchedSourceRebuildsOnce(t *testing.T) {
	root, sources, base := setupProject(t)
	target := newTarget(root)
	writeManifest(t, target, base.Add(time.Minute))

	// Touch one source past the manifest
	touched := sources[2]
	newer := base.Add(2 * time.Minute)
	if err := os.Chtimes(touched, newer, newer); err != nil {
		t.Fatal(err)
	}

	fake := &fakeRunner{onRun: func([]string) error {
		writeManifest(t, target, newer.Add(time.Minute))
		return nil
	}}
	b := newBuilder(t, root, fake)

	built, err := b.EnsureBuilt(context.Background(), target, sources)
	if err != nil {
		t.Fatalf("EnsureBuilt() error = %v", err)
	}
	if !built {
		t.Error("EnsureBuilt() = false, want true after touching a source")
	}
	if len(fake.calls) != 1 {
		t.Errorf("build tool invoked %d times, want exactly 1", len(fake.calls))
	}

	// A second call sees the refreshed manifest and does nothing
	built, err = b.EnsureBuilt(context.Background(), target, sources)
	if err != nil {
		t.Fatalf("second EnsureBuilt() error = %v", err)
	}
	if built || len(fake.calls) != 1 {
		t.Errorf("second EnsureBuilt() rebuilt (built=%v, calls=%d), want no-op", built, len(fake.calls))
	}
}

func TestEnsureBuilt_CleanInvalidatesUnconditionally(t *testing.T) {
	root, sources, base := setupProject(t)
	target := newTarget(root)
	writeManifest(t, target, base.Add(time.Minute))

	fake := &fakeRunner{onRun: func([]string) error {
		writeManifest(t, target, time.Now())
		return nil
	}}
	b := newBuilder(t, root, fake)

	if err := build.Clean(target); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	built, err := b.EnsureBuilt(context.Background(), target, sources)
	if err != nil {
		t.Fatalf("EnsureBuilt() after Clean error = %v", err)
	}
	if !built {
		t.Error("EnsureBuilt() after Clean = false, want true")
	}
	if len(fake.calls) != 1 {
		t.Errorf("build tool invoked %d times after clean, want exactly 1", len(fake.calls))
	}
}

func TestEnsureBuilt_BuildToolArgv(t *testing.T) {
	root, sources, _ := setupProject(t)
	target := newTarget(root)

	fake := &fakeRunner{onRun: func([]string) error {
		writeManifest(t, target, time.Now())
		return nil
	}}
	b := newBuilder(t, root, fake)

	if _, err := b.EnsureBuilt(context.Background(), target, sources); err != nil {
		t.Fatalf("EnsureBuilt() error = %v", err)
	}

	want := []string{"charm", "build", "-s", "focal", "-n", "inventory", "-o", root}
	if !slices.Equal(fake.calls[0], want) {
		t.Errorf("argv = %v, want %v", fake.calls[0], want)
	}
	if fake.dirs[0] != root {
		t.Errorf("working dir = %q, want project root %q", fake.dirs[0], root)
	}
}

func TestEnsureBuilt_BuildFailure(t *testing.T) {
	root, sources, _ := setupProject(t)
	target := newTarget(root)

	// The tool leaves a partial output directory behind before failing
	partial := filepath.Join(target.OutputDir(), "partial.txt")
	fake := &fakeRunner{onRun: func([]string) error {
		if err := os.MkdirAll(filepath.Dir(partial), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(partial, []byte("incomplete"), 0o644); err != nil {
			return err
		}
		return errors.New("exit status 200")
	}}
	b := newBuilder(t, root, fake)

	_, err := b.EnsureBuilt(context.Background(), target, sources)
	if !errors.Is(err, build.ErrBuildFailed) {
		t.Fatalf("EnsureBuilt() error = %v, want ErrBuildFailed", err)
	}

	// No cleanup on failure: partial artifacts stay for inspection
	if _, statErr := os.Stat(partial); statErr != nil {
		t.Errorf("partial output should survive a failed build: %v", statErr)
	}
}

func TestEnsureBuilt_ToolProducesNoManifest(t *testing.T) {
	root, sources, _ := setupProject(t)
	target := newTarget(root)

	// Tool exits zero but never writes the manifest
	fake := &fakeRunner{}
	b := newBuilder(t, root, fake)

	_, err := b.EnsureBuilt(context.Background(), target, sources)
	if !errors.Is(err, build.ErrBuildFailed) {
		t.Errorf("EnsureBuilt() error = %v, want ErrBuildFailed for missing manifest", err)
	}
}

func TestEnsureBuilt_NoSources(t *testing.T) {
	root, _, _ := setupProject(t)
	b := newBuilder(t, root, &fakeRunner{})

	if _, err := b.EnsureBuilt(context.Background(), newTarget(root), nil); err == nil {
		t.Error("EnsureBuilt() with no sources should fail")
	}
}

func TestEnsureBuilt_MissingSource(t *testing.T) {
	root, sources, _ := setupProject(t)
	target := newTarget(root)

	sources = append(sources, filepath.Join(root, "does-not-exist.yaml"))
	fake := &fakeRunner{}
	b := newBuilder(t, root, fake)

	if _, err := b.EnsureBuilt(context.Background(), target, sources); err == nil {
		t.Error("EnsureBuilt() with a missing source should fail")
	}
	if len(fake.calls) != 0 {
		t.Errorf("build tool invoked %d times for unstattable input, want 0", len(fake.calls))
	}
}

func TestClean_AbsentOutputDir(t *testing.T) {
	root, _, _ := setupProject(t)

	if err := build.Clean(newTarget(root)); err != nil {
		t.Errorf("Clean() on absent output dir = %v, want nil", err)
	}
}

func TestClean_RemovesOutputTree(t *testing.T) {
	root, _, _ := setupProject(t)
	target := newTarget(root)
	writeManifest(t, target, time.Now())

	if err := build.Clean(target); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if _, err := os.Stat(target.OutputDir()); !os.IsNotExist(err) {
		t.Errorf("output dir should be gone after Clean, stat err = %v", err)
	}
}
