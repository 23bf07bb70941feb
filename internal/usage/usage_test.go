package usage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "usage.json")
	tr := NewTracker(path)

	tr.Add("whisper-1", 2.5)
	tr.Add("whisper-1", 1.5)
	tr.Add("gpt-4o-mini", 0)

	reloaded := NewTracker(path).Snapshot()
	w := reloaded.Models["whisper-1"]
	if w == nil || w.Requests != 2 || w.AudioSeconds != 4 {
		t.Errorf("unexpected whisper usage %+v", w)
	}
	if c := reloaded.Models["gpt-4o-mini"]; c == nil || c.Requests != 1 || c.AudioSeconds != 0 {
		t.Errorf("unexpected chat usage %+v", c)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(filepath.Join(t.TempDir(), "usage.json"))
	tr.Add("m", 1)

	snap := tr.Snapshot()
	snap.Models["m"].Requests = 99

	if got := tr.Snapshot().Models["m"].Requests; got != 1 {
		t.Errorf("snapshot mutation leaked, got %d", got)
	}
}

func TestCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	tr := NewTracker(path)
	if n := len(tr.Snapshot().Models); n != 0 {
		t.Errorf("expected empty usage, got %d models", n)
	}
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.json")
	tr := NewTracker(path)
	tr.Add("m", 3)

	if err := tr.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if n := len(NewTracker(path).Snapshot().Models); n != 0 {
		t.Errorf("expected empty usage after reset, got %d", n)
	}
}
