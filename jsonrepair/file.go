package jsonrepair

import (
	"fmt"
	"os"
)

// ErrUnrepairable is returned by RepairFile when every strategy in the
// chain is exhausted. The file on disk is left exactly as it was.
var ErrUnrepairable = fmt.Errorf("jsonrepair: all repair strategies exhausted")

// RepairFile runs the repair chain over the file at path. An intact file
// is left alone. When a repair strategy fires, the original bytes are
// first preserved under a sibling ".corrupted" name and only then is the
// live file overwritten with the repaired text. Repair is destructive to
// the live file but never to evidence.
func RepairFile(path string, opts ...Option) (Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("jsonrepair: read %s: %w", path, err)
	}

	out, ok := Repair(data, opts...)
	if !ok {
		return 0, ErrUnrepairable
	}
	if out.Strategy == StrategyIntact {
		return StrategyIntact, nil
	}

	if err := os.WriteFile(evidencePath(path), data, 0o644); err != nil {
		return 0, fmt.Errorf("jsonrepair: preserve evidence for %s: %w", path, err)
	}
	if err := os.WriteFile(path, out.Data, 0o644); err != nil {
		return 0, fmt.Errorf("jsonrepair: write repaired %s: %w", path, err)
	}
	return out.Strategy, nil
}

// evidencePath returns a sibling name for the untouched original. Earlier
// evidence is never clobbered: a numeric suffix is added until the name
// is free.
func evidencePath(path string) string {
	cand := path + ".corrupted"
	for i := 1; ; i++ {
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
		cand = fmt.Sprintf("%s.corrupted.%d", path, i)
	}
}
