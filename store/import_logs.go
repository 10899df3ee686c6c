package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// The append-only logs (transactions, audit events, lookup entries,
// processed-message ids) all import the same way: insert-if-absent by
// primary key, so replaying a file is always safe.

func importTransactions(tx *sql.Tx, data []byte) (Stats, error) {
	var entries []Transaction
	if err := json.Unmarshal(data, &entries); err != nil {
		return Stats{}, fmt.Errorf("%w: transaction log: %v", ErrUnexpectedShape, err)
	}

	var stats Stats
	for _, e := range entries {
		res, err := tx.Exec(`
			INSERT OR IGNORE INTO transactions (id, time, context, cash)
			VALUES (?, ?, ?, ?)`,
			e.ID, e.Time, e.Context, e.Cash)
		if err != nil {
			return Stats{}, fmt.Errorf("store: insert transaction %d: %w", e.ID, err)
		}
		stats.count(res)
	}
	return stats, nil
}

func importAuditLog(tx *sql.Tx, data []byte) (Stats, error) {
	var entries []AuditEvent
	if err := json.Unmarshal(data, &entries); err != nil {
		return Stats{}, fmt.Errorf("%w: audit log: %v", ErrUnexpectedShape, err)
	}

	var stats Stats
	for _, e := range entries {
		res, err := tx.Exec(`
			INSERT OR IGNORE INTO audit_events (id, timestamp, autopilot, status, summary, details)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.Timestamp, e.Autopilot, e.Status, e.Summary, e.Details)
		if err != nil {
			return Stats{}, fmt.Errorf("store: insert audit event %d: %w", e.ID, err)
		}
		stats.count(res)
	}
	return stats, nil
}

func importLookupIndex(tx *sql.Tx, data []byte) (Stats, error) {
	var entries []LookupEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return Stats{}, fmt.Errorf("%w: lookup index: %v", ErrUnexpectedShape, err)
	}

	var stats Stats
	for _, e := range entries {
		res, err := tx.Exec(`
			INSERT OR IGNORE INTO lookup_entries
				(id, transaction_id, audit_id, vessel_id, cash, type, category)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.TransactionID, e.AuditID, e.VesselID, e.Cash, e.Type, e.Category)
		if err != nil {
			return Stats{}, fmt.Errorf("store: insert lookup entry %d: %w", e.ID, err)
		}
		stats.count(res)
	}
	return stats, nil
}

func importProcessedMessages(tx *sql.Tx, data []byte) (Stats, error) {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return Stats{}, fmt.Errorf("%w: processed-message list: %v", ErrUnexpectedShape, err)
	}

	var stats Stats
	for _, id := range ids {
		res, err := tx.Exec(
			`INSERT OR IGNORE INTO processed_messages (message_id) VALUES (?)`, id)
		if err != nil {
			return Stats{}, fmt.Errorf("store: insert processed message %s: %w", id, err)
		}
		stats.count(res)
	}
	return stats, nil
}

// count folds an OR-IGNORE result into stats: one affected row is an
// insert, zero means the row already existed.
func (st *Stats) count(res sql.Result) {
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		st.Skipped++
		return
	}
	st.Inserted++
}
