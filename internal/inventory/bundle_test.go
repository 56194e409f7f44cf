package inventory

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestBundleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DataFileName)

	b := Bundle{
		"lscpu.txt": "cpu info\n",
		"lscpu.err": "",
	}
	if err := b.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := ReadBundle(path)
	if err != nil {
		t.Fatalf("ReadBundle() error = %v", err)
	}
	if len(got) != len(b) {
		t.Fatalf("got %d entries, want %d", len(got), len(b))
	}
	for name, contents := range b {
		if got[name] != contents {
			t.Errorf("got[%q] = %q, want %q", name, got[name], contents)
		}
	}
}

func TestBundleWriteCreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", DataFileName)
	if err := (Bundle{"a.txt": "a"}).WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := ReadBundle(path); err != nil {
		t.Fatalf("ReadBundle() error = %v", err)
	}
}

func TestReadBundleMissing(t *testing.T) {
	if _, err := ReadBundle(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("ReadBundle() on missing file succeeded, want error")
	}
}

func TestBundleDigests(t *testing.T) {
	b := Bundle{"a.txt": "hello", "b.txt": "hello", "c.txt": "world"}
	digests := b.Digests()

	if digests["a.txt"] != digests["b.txt"] {
		t.Error("identical contents produced different digests")
	}
	if digests["a.txt"] == digests["c.txt"] {
		t.Error("different contents produced the same digest")
	}
	for name, digest := range digests {
		if len(digest) != 16 {
			t.Errorf("digest for %s = %q, want 16 hex characters", name, digest)
		}
	}
}

func TestBundleNamesSorted(t *testing.T) {
	b := Bundle{"z.txt": "", "a.txt": "", "m.err": ""}
	names := b.Names()
	want := []string{"a.txt", "m.err", "z.txt"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
}

func TestBundleSize(t *testing.T) {
	b := Bundle{"a.txt": "12345", "b.txt": "678"}
	if got := b.Size(); got != 8 {
		t.Errorf("Size() = %d, want 8", got)
	}
}

func TestChangedEntries(t *testing.T) {
	tests := []struct {
		name     string
		previous map[string]string
		current  map[string]string
		want     []string
	}{
		{
			name:     "first run counts everything",
			previous: nil,
			current:  map[string]string{"a.txt": "1", "b.txt": "2"},
			want:     []string{"a.txt", "b.txt"},
		},
		{
			name:     "no changes",
			previous: map[string]string{"a.txt": "1"},
			current:  map[string]string{"a.txt": "1"},
			want:     nil,
		},
		{
			name:     "changed digest",
			previous: map[string]string{"a.txt": "1", "b.txt": "2"},
			current:  map[string]string{"a.txt": "9", "b.txt": "2"},
			want:     []string{"a.txt"},
		},
		{
			name:     "removed entry counts",
			previous: map[string]string{"a.txt": "1", "b.txt": "2"},
			current:  map[string]string{"a.txt": "1"},
			want:     []string{"b.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChangedEntries(tt.previous, tt.current)
			if len(got) != len(tt.want) {
				t.Fatalf("ChangedEntries() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("ChangedEntries() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestDiffBundles(t *testing.T) {
	old := Bundle{"lscpu.txt": "model A\nstable\n", "lsmod.txt": "same\n"}
	new := Bundle{"lscpu.txt": "model B\nstable\n", "lsmod.txt": "same\n"}

	diff, err := DiffBundles(old, new)
	if err != nil {
		t.Fatalf("DiffBundles() error = %v", err)
	}
	if !strings.Contains(diff, "-model A") || !strings.Contains(diff, "+model B") {
		t.Errorf("diff missing changed lines:\n%s", diff)
	}
	if !strings.Contains(diff, "previous/lscpu.txt") || !strings.Contains(diff, "current/lscpu.txt") {
		t.Errorf("diff missing file headers:\n%s", diff)
	}
	if strings.Contains(diff, "lsmod.txt") {
		t.Errorf("diff mentions unchanged entry:\n%s", diff)
	}
}

func TestDiffBundlesIdentical(t *testing.T) {
	b := Bundle{"a.txt": "same\n"}
	diff, err := DiffBundles(b, b)
	if err != nil {
		t.Fatalf("DiffBundles() error = %v", err)
	}
	if diff != "" {
		t.Errorf("DiffBundles() = %q, want empty", diff)
	}
}
