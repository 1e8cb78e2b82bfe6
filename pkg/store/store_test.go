package store

import (
	"os"
	"path/filepath"
	"testing"

	"mover-go/pkg/coordinate"
	"mover-go/pkg/transform"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, path
}

func TestAxesMappingRoundTrip(t *testing.T) {
	s, path := newTestStore(t)

	mapping := coordinate.AxesMapping{
		{Axis: coordinate.AxisY, Direction: coordinate.Negative},
		{Axis: coordinate.AxisX, Direction: coordinate.Positive},
		{Axis: coordinate.AxisZ, Direction: coordinate.Positive},
	}
	if err := s.SaveAxesMapping("stage-1", mapping); err != nil {
		t.Fatalf("SaveAxesMapping: %v", err)
	}

	// Reopen from disk.
	s2, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok, err := s2.LoadAxesMapping("stage-1")
	if err != nil {
		t.Fatalf("LoadAxesMapping: %v", err)
	}
	if !ok {
		t.Fatal("mapping not found after reopen")
	}
	if got != mapping {
		t.Errorf("mapping = %v, want %v", got, mapping)
	}
}

func TestLoadAxesMappingMissing(t *testing.T) {
	s, _ := newTestStore(t)
	_, ok, err := s.LoadAxesMapping("unknown")
	if err != nil {
		t.Fatalf("LoadAxesMapping: %v", err)
	}
	if ok {
		t.Fatal("expected no mapping for unknown stage")
	}
}

func TestClearAxesMapping(t *testing.T) {
	s, _ := newTestStore(t)
	s.SaveAxesMapping("stage-1", coordinate.DefaultAxesMapping())
	if err := s.ClearAxesMapping("stage-1"); err != nil {
		t.Fatalf("ClearAxesMapping: %v", err)
	}
	if _, ok, _ := s.LoadAxesMapping("stage-1"); ok {
		t.Fatal("mapping still present after clear")
	}
}

func TestPairingsRestoredOnlyForMatchingChip(t *testing.T) {
	s, path := newTestStore(t)

	pairings := []transform.Pairing{
		{Stage: coordinate.StageCoordinate{X: 1}, Chip: coordinate.ChipCoordinate{X: 10}},
		{Stage: coordinate.StageCoordinate{Y: 2}, Chip: coordinate.ChipCoordinate{Y: 20}},
	}
	if err := s.SavePairings("stage-1", "chip-A", pairings); err != nil {
		t.Fatalf("SavePairings: %v", err)
	}

	s2, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	if _, ok := s2.LoadPairings("stage-1", "chip-B"); ok {
		t.Fatal("pairings restored for the wrong chip")
	}
	got, ok := s2.LoadPairings("stage-1", "chip-A")
	if !ok {
		t.Fatal("pairings not restored for the matching chip")
	}
	if len(got) != 2 || got[0] != pairings[0] || got[1] != pairings[1] {
		t.Errorf("pairings = %v, want %v", got, pairings)
	}
}

func TestSavePairingsEmptyClears(t *testing.T) {
	s, _ := newTestStore(t)
	s.SavePairings("stage-1", "chip-A", []transform.Pairing{
		{Stage: coordinate.StageCoordinate{X: 1}, Chip: coordinate.ChipCoordinate{X: 1}},
	})
	if err := s.SavePairings("stage-1", "chip-A", nil); err != nil {
		t.Fatalf("SavePairings: %v", err)
	}
	if _, ok := s.LoadPairings("stage-1", "chip-A"); ok {
		t.Fatal("pairings still present after clearing save")
	}
}

func TestNewCreatesDirectoryOnFlush(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := New(filepath.Join(dir, DefaultFileName))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SaveAxesMapping("stage-1", coordinate.DefaultAxesMapping()); err != nil {
		t.Fatalf("SaveAxesMapping: %v", err)
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Fatalf("calibration file not written: %v", err)
	}
}

func TestNewRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("expected parse error for corrupt file")
	}
}
