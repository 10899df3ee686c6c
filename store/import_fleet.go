package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
)

// importFleetHistory maps the singleton vessel-history snapshot. Vessel
// metadata, route risk and sync progress are snapshots (latest wins
// entirely, insert-or-replace); the departure log is append-only by
// (vessel, departure time).
func importFleetHistory(tx *sql.Tx, data []byte) (Stats, error) {
	var snap FleetSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Stats{}, fmt.Errorf("%w: fleet snapshot: %v", ErrUnexpectedShape, err)
	}
	if snap.Vessels == nil && snap.Departures == nil && snap.RouteRisk == nil && snap.SyncProgress == nil {
		// Parsed, but carries none of the expected top-level keys.
		return Stats{}, fmt.Errorf("%w: fleet snapshot without known keys", ErrUnexpectedShape)
	}

	var stats Stats
	for key, v := range snap.Vessels {
		vid, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return Stats{}, fmt.Errorf("store: fleet vessel key %q: %w", key, err)
		}
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO vessels (vessel_id, name, type, capacity, speed)
			VALUES (?, ?, ?, ?, ?)`,
			vid, v.Name, v.Type, v.Capacity, v.Speed); err != nil {
			return Stats{}, fmt.Errorf("store: replace vessel %d: %w", vid, err)
		}
		stats.Replaced++
	}

	for _, d := range snap.Departures {
		res, err := tx.Exec(`
			INSERT OR IGNORE INTO departures (vessel_id, departed_at, destination)
			VALUES (?, ?, ?)`,
			d.VesselID, d.DepartedAt, d.Destination)
		if err != nil {
			return Stats{}, fmt.Errorf("store: insert departure %d/%d: %w", d.VesselID, d.DepartedAt, err)
		}
		stats.count(res)
	}

	for route, risk := range snap.RouteRisk {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO route_risk (route, risk) VALUES (?, ?)`,
			route, risk); err != nil {
			return Stats{}, fmt.Errorf("store: replace route risk %q: %w", route, err)
		}
		stats.Replaced++
	}

	for key, v := range snap.SyncProgress {
		raw, err := json.Marshal(v)
		if err != nil {
			return Stats{}, fmt.Errorf("store: encode sync progress %q: %w", key, err)
		}
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO sync_progress (key, value) VALUES (?, ?)`,
			key, string(raw)); err != nil {
			return Stats{}, fmt.Errorf("store: replace sync progress %q: %w", key, err)
		}
		stats.Replaced++
	}

	return stats, nil
}
