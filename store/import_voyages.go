package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// importVoyages maps a trip-fragment file of any of the four legacy
// variants. Rows are keyed (vessel_id, timestamp); each variant carries a
// disjoint subset of fields for the same key, so the upsert sets a column
// to the incoming value only when the fragment supplies one and keeps the
// stored value otherwise. A later import never overwrites a populated
// column with a null.
func importVoyages(tx *sql.Tx, data []byte) (Stats, error) {
	var fragments map[string]VoyageFragment
	if err := json.Unmarshal(data, &fragments); err != nil {
		return Stats{}, fmt.Errorf("%w: trip fragments: %v", ErrUnexpectedShape, err)
	}

	var stats Stats
	for key, frag := range fragments {
		vk, err := ParseVoyageKey(key)
		if err != nil {
			return Stats{}, err
		}

		var exists bool
		err = tx.QueryRow(`
			SELECT 1 FROM voyages WHERE vessel_id = ? AND timestamp = ?`,
			vk.VesselID, vk.Timestamp).Scan(&exists)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return Stats{}, fmt.Errorf("store: probe voyage %s: %w", key, err)
		}

		_, err = tx.Exec(`
			INSERT INTO voyages
				(vessel_id, timestamp, origin, destination, cargo, income,
				 harbor_fee, contribution, departed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (vessel_id, timestamp) DO UPDATE SET
				origin       = COALESCE(excluded.origin, origin),
				destination  = COALESCE(excluded.destination, destination),
				cargo        = COALESCE(excluded.cargo, cargo),
				income       = COALESCE(excluded.income, income),
				harbor_fee   = COALESCE(excluded.harbor_fee, harbor_fee),
				contribution = COALESCE(excluded.contribution, contribution),
				departed_at  = COALESCE(excluded.departed_at, departed_at)`,
			vk.VesselID, vk.Timestamp,
			frag.Origin, frag.Destination, frag.Cargo, frag.Income,
			frag.HarborFee, frag.Contribution, frag.DepartedAt)
		if err != nil {
			return Stats{}, fmt.Errorf("store: upsert voyage %s: %w", key, err)
		}

		if exists {
			stats.Merged++
		} else {
			stats.Inserted++
		}
	}
	return stats, nil
}
