package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// importPiracyCase maps one per-case hijack file, either legacy shape.
// The case row is insert-if-absent: a locally cached repair must never
// overwrite fields already derived from a live source of truth. History
// events are append-only by (case, type, amount, timestamp).
func importPiracyCase(tx *sql.Tx, caseID int64, data []byte) (Stats, error) {
	doc, err := ParsePiracyCase(data)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	var vesselID int64
	var status string
	var ransom float64
	if doc.CaseDetails != nil {
		vesselID = doc.CaseDetails.VesselID
		status = doc.CaseDetails.Status
		ransom = doc.CaseDetails.Ransom
	}
	resolved := 0
	if doc.Resolved {
		resolved = 1
	}

	res, err := tx.Exec(`
		INSERT OR IGNORE INTO piracy_cases
			(case_id, vessel_id, status, ransom, resolved, resolution)
		VALUES (?, ?, ?, ?, ?, ?)`,
		caseID, vesselID, status, ransom, resolved, doc.Resolution)
	if err != nil {
		return Stats{}, fmt.Errorf("store: insert piracy case %d: %w", caseID, err)
	}
	stats.count(res)

	for _, e := range doc.History {
		res, err := tx.Exec(`
			INSERT OR IGNORE INTO piracy_events (case_id, type, amount, timestamp)
			VALUES (?, ?, ?, ?)`,
			caseID, e.Type, e.Amount, e.Timestamp)
		if err != nil {
			return Stats{}, fmt.Errorf("store: insert piracy event for case %d: %w", caseID, err)
		}
		stats.count(res)
	}
	return stats, nil
}

// importVesselProfile maps one per-vessel appearance file. Latest
// snapshot wins entirely; the raw document rides along so fields this
// schema does not model yet are not lost.
func importVesselProfile(tx *sql.Tx, vesselID int64, data []byte) (Stats, error) {
	var p VesselProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return Stats{}, fmt.Errorf("%w: vessel profile: %v", ErrUnexpectedShape, err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO vessel_profiles
			(vessel_id, hull, livery, flag, capacity, speed, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		vesselID, p.Hull, p.Livery, p.Flag, p.Capacity, p.Speed, string(data)); err != nil {
		return Stats{}, fmt.Errorf("store: replace vessel profile %d: %w", vesselID, err)
	}
	return Stats{Replaced: 1}, nil
}
