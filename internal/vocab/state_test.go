package vocab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	st, err := NewStateFile(filepath.Join(t.TempDir(), "state.json")).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(DefaultState(), st); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefaultsMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte(`{"index": 42, "paused": true}`), 0644); err != nil {
		t.Fatal(err)
	}
	st, err := NewStateFile(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := State{Index: 42, BatchSize: 10, Paused: true, Hour: 9, Minute: 0}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCorruptFileIsBackedUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "progress_state.json")
	if err := os.WriteFile(path, []byte(`{"index": `), 0644); err != nil {
		t.Fatal(err)
	}

	st, err := NewStateFile(path).Load()
	if err == nil {
		t.Fatal("expected parse error")
	}
	if diff := cmp.Diff(DefaultState(), st); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	backup, err := os.ReadFile(filepath.Join(dir, "progress_state.json.bak"))
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if string(backup) != `{"index": ` {
		t.Errorf("backup = %q", backup)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sf := NewStateFile(filepath.Join(dir, "nested", "state.json"))
	want := State{Index: 7, BatchSize: 3, Paused: true, Hour: 21, Minute: 15}

	if err := sf.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := sf.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "nested"))
	if len(entries) != 1 {
		t.Errorf("leftover files: %v", entries)
	}
}
