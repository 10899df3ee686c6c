package jsonrepair

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRepairFileIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	if err := os.WriteFile(path, []byte(`[{"id":1}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	strategy, err := RepairFile(path)
	if err != nil {
		t.Fatalf("RepairFile: %v", err)
	}
	if strategy != StrategyIntact {
		t.Errorf("strategy = %s, want intact", strategy)
	}
	if _, err := os.Stat(path + ".corrupted"); !os.IsNotExist(err) {
		t.Error("intact file must not produce evidence")
	}
}

func TestRepairFilePreservesEvidence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.json")
	original := []byte(`[{"id":1},{"id":2},{"id":3,"ti`)
	if err := os.WriteFile(path, original, 0o644); err != nil {
		t.Fatal(err)
	}

	strategy, err := RepairFile(path)
	if err != nil {
		t.Fatalf("RepairFile: %v", err)
	}
	if strategy == StrategyIntact {
		t.Fatal("expected a surgical repair")
	}

	evidence, err := os.ReadFile(path + ".corrupted")
	if err != nil {
		t.Fatalf("evidence missing: %v", err)
	}
	if string(evidence) != string(original) {
		t.Error("evidence must be the untouched original bytes")
	}

	repaired, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(repaired) == string(original) {
		t.Error("live file must hold the repaired text")
	}
}

func TestRepairFileEvidenceNeverClobbered(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.json")
	first := []byte(`[{"id":1},{"id":2},{"id":3,"ti`)
	if err := os.WriteFile(path, first, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := RepairFile(path); err != nil {
		t.Fatal(err)
	}

	// A second partial write corrupts the file again.
	second := []byte(`[{"id":1},{"id":2},{"id":4},{"id":5,"ca`)
	if err := os.WriteFile(path, second, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := RepairFile(path); err != nil {
		t.Fatal(err)
	}

	ev1, err := os.ReadFile(path + ".corrupted")
	if err != nil {
		t.Fatal(err)
	}
	if string(ev1) != string(first) {
		t.Error("earlier evidence must survive a later repair")
	}
	if _, err := os.ReadFile(path + ".corrupted.1"); err != nil {
		t.Errorf("second evidence file missing: %v", err)
	}
}

func TestRepairFileUnrepairable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	garbage := []byte("not json at all")
	if err := os.WriteFile(path, garbage, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := RepairFile(path)
	if !errors.Is(err, ErrUnrepairable) {
		t.Fatalf("err = %v, want ErrUnrepairable", err)
	}

	// The source must be left exactly as it was.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(garbage) {
		t.Error("unrepairable file must not be mutated")
	}
}
