package state_test

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/charmsmith/charmsmith/internal/state"
)

func openStore(t *testing.T) *state.Store {
	t.Helper()
	s, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFlags(t *testing.T) {
	s := openStore(t)

	has, err := s.HasFlag("collecting")
	if err != nil {
		t.Fatalf("HasFlag() error = %v", err)
	}
	if has {
		t.Error("HasFlag() = true for never-set flag")
	}

	if err := s.SetFlag("collecting"); err != nil {
		t.Fatalf("SetFlag() error = %v", err)
	}
	// Setting twice is a no-op
	if err := s.SetFlag("collecting"); err != nil {
		t.Fatalf("SetFlag() twice error = %v", err)
	}
	if err := s.SetFlag("submitting"); err != nil {
		t.Fatalf("SetFlag() error = %v", err)
	}

	has, err = s.HasFlag("collecting")
	if err != nil {
		t.Fatalf("HasFlag() error = %v", err)
	}
	if !has {
		t.Error("HasFlag() = false for set flag")
	}

	flags, err := s.Flags()
	if err != nil {
		t.Fatalf("Flags() error = %v", err)
	}
	if !slices.Equal(flags, []string{"collecting", "submitting"}) {
		t.Errorf("Flags() = %v, want sorted [collecting submitting]", flags)
	}

	if err := s.ClearFlag("collecting"); err != nil {
		t.Fatalf("ClearFlag() error = %v", err)
	}
	// Clearing an unset flag is a no-op
	if err := s.ClearFlag("collecting"); err != nil {
		t.Fatalf("ClearFlag() twice error = %v", err)
	}

	has, err = s.HasFlag("collecting")
	if err != nil {
		t.Fatalf("HasFlag() error = %v", err)
	}
	if has {
		t.Error("HasFlag() = true after ClearFlag")
	}
}

func TestKV(t *testing.T) {
	s := openStore(t)

	type runInfo struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}

	if err := s.Put("last-run", runInfo{ID: "abc", Count: 3}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var got runInfo
	found, err := s.Get("last-run", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Get() found = false for stored key")
	}
	if got.ID != "abc" || got.Count != 3 {
		t.Errorf("Get() = %+v, want {abc 3}", got)
	}

	// Replace
	if err := s.Put("last-run", runInfo{ID: "def", Count: 4}); err != nil {
		t.Fatalf("Put() replace error = %v", err)
	}
	if _, err := s.Get("last-run", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != "def" {
		t.Errorf("Get() after replace = %+v, want ID def", got)
	}

	if err := s.Delete("last-run"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	found, err = s.Get("last-run", &got)
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if found {
		t.Error("Get() found = true after Delete")
	}
}

func TestSavedConfig(t *testing.T) {
	s := openStore(t)

	_, found, err := s.SavedConfig()
	if err != nil {
		t.Fatalf("SavedConfig() error = %v", err)
	}
	if found {
		t.Error("SavedConfig() found = true before any save")
	}

	cfg := map[string]any{"submit_url": "https://inventory.example.com/submit"}
	if err := s.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	saved, found, err := s.SavedConfig()
	if err != nil {
		t.Fatalf("SavedConfig() error = %v", err)
	}
	if !found {
		t.Fatal("SavedConfig() found = false after save")
	}
	if saved["submit_url"] != "https://inventory.example.com/submit" {
		t.Errorf("saved config = %v", saved)
	}
}

func TestPackages(t *testing.T) {
	s := openStore(t)

	if err := s.RecordPackages([]string{"pciutils", "dmidecode"}); err != nil {
		t.Fatalf("RecordPackages() error = %v", err)
	}
	// Recording again keeps the original entry
	if err := s.RecordPackages([]string{"dmidecode", "nvme-cli"}); err != nil {
		t.Fatalf("RecordPackages() again error = %v", err)
	}

	got, err := s.RecordedPackages()
	if err != nil {
		t.Fatalf("RecordedPackages() error = %v", err)
	}
	want := []string{"dmidecode", "nvme-cli", "pciutils"}
	if !slices.Equal(got, want) {
		t.Errorf("RecordedPackages() = %v, want %v", got, want)
	}

	if err := s.UnrecordPackages(); err != nil {
		t.Fatalf("UnrecordPackages() error = %v", err)
	}
	got, err = s.RecordedPackages()
	if err != nil {
		t.Fatalf("RecordedPackages() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("RecordedPackages() = %v after unrecord, want empty", got)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := state.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.SetFlag("collected"); err != nil {
		t.Fatalf("SetFlag() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2, err := state.Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s2.Close()

	has, err := s2.HasFlag("collected")
	if err != nil {
		t.Fatalf("HasFlag() error = %v", err)
	}
	if !has {
		t.Error("flag should persist across reopen")
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.db")
	s, err := state.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s.Close()
}
