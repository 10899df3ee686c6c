package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the version every step list below converges to. It is
// recorded in the meta table on every open.
const SchemaVersion = 2

// schemaStep is one ordered, idempotently tracked schema change. Steps
// are applied exactly once per tenant store, recorded in schema_version;
// a step that already ran is never re-executed, so no statement here
// needs to tolerate "column already exists".
type schemaStep struct {
	version int
	name    string
	stmts   []string
}

var schemaSteps = []schemaStep{
	{
		version: 1,
		name:    "base_tables",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS meta (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS transactions (
				id      INTEGER PRIMARY KEY,
				time    TEXT,
				context TEXT,
				cash    REAL
			)`,
			`CREATE TABLE IF NOT EXISTS audit_events (
				id        INTEGER PRIMARY KEY,
				timestamp TEXT,
				autopilot TEXT,
				status    TEXT,
				summary   TEXT,
				details   TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS vessels (
				vessel_id INTEGER PRIMARY KEY,
				name      TEXT,
				type      TEXT,
				capacity  INTEGER,
				speed     REAL
			)`,
			`CREATE TABLE IF NOT EXISTS departures (
				vessel_id   INTEGER NOT NULL,
				departed_at INTEGER NOT NULL,
				destination TEXT,
				PRIMARY KEY (vessel_id, departed_at)
			)`,
			`CREATE TABLE IF NOT EXISTS route_risk (
				route TEXT PRIMARY KEY,
				risk  REAL NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sync_progress (
				key   TEXT PRIMARY KEY,
				value TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS lookup_entries (
				id             INTEGER PRIMARY KEY,
				transaction_id INTEGER,
				audit_id       INTEGER,
				vessel_id      INTEGER,
				cash           REAL,
				type           TEXT,
				category       TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS voyages (
				vessel_id    INTEGER NOT NULL,
				timestamp    INTEGER NOT NULL,
				origin       TEXT,
				destination  TEXT,
				cargo        TEXT,
				income       REAL,
				harbor_fee   REAL,
				contribution REAL,
				departed_at  TEXT,
				PRIMARY KEY (vessel_id, timestamp)
			)`,
			`CREATE TABLE IF NOT EXISTS chats (
				chat_id  TEXT PRIMARY KEY,
				metadata TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS chat_messages (
				chat_id    TEXT NOT NULL,
				message_id TEXT NOT NULL,
				sender     TEXT,
				body       TEXT,
				sent_at    INTEGER,
				PRIMARY KEY (chat_id, message_id)
			)`,
			`CREATE TABLE IF NOT EXISTS processed_messages (
				message_id TEXT PRIMARY KEY
			)`,
			`CREATE TABLE IF NOT EXISTS piracy_cases (
				case_id    INTEGER PRIMARY KEY,
				vessel_id  INTEGER,
				status     TEXT,
				ransom     REAL,
				resolved   INTEGER NOT NULL DEFAULT 0,
				resolution TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS piracy_events (
				case_id    INTEGER NOT NULL,
				type       TEXT NOT NULL,
				amount     REAL NOT NULL,
				timestamp  INTEGER NOT NULL,
				PRIMARY KEY (case_id, type, amount, timestamp)
			)`,
			`CREATE TABLE IF NOT EXISTS vessel_profiles (
				vessel_id INTEGER PRIMARY KEY,
				hull      TEXT,
				livery    TEXT,
				flag      TEXT,
				capacity  INTEGER,
				speed     REAL,
				data      TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS migration_runs (
				run_id         TEXT PRIMARY KEY,
				started_at     TEXT NOT NULL,
				finished_at    TEXT,
				files_total    INTEGER NOT NULL DEFAULT 0,
				files_imported INTEGER NOT NULL DEFAULT 0,
				files_failed   INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(chat_id)`,
			`CREATE INDEX IF NOT EXISTS idx_piracy_events_case ON piracy_events(case_id)`,
		},
	},
	{
		// Early builds keyed voyages on departure time only; the origin
		// harbor was added once the fee variant started carrying it.
		version: 2,
		name:    "voyage_origin_harbor",
		stmts: []string{
			`ALTER TABLE voyages ADD COLUMN origin_harbor_id INTEGER`,
			`CREATE INDEX IF NOT EXISTS idx_voyages_vessel ON voyages(vessel_id)`,
		},
	},
}

// applySchema brings db to the current schema version. Pending steps run
// inside one transaction each and are recorded in schema_version, so a
// crash mid-step leaves the store re-runnable.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("store: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}

	for _, step := range schemaSteps {
		if step.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("store: begin schema step %d: %w", step.version, err)
		}
		if err := runStep(tx, step); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: schema step %d (%s): %w", step.version, step.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit schema step %d: %w", step.version, err)
		}
	}

	_, err := db.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprint(SchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("store: record schema version: %w", err)
	}
	return nil
}

func runStep(tx *sql.Tx, step schemaStep) error {
	for _, stmt := range step.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	_, err := tx.Exec(
		`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		step.version, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}
