// Package store owns the normalized per-tenant databases the migration
// engine imports into: schema definition as ordered version-tracked
// steps, a caller-owned registry of lazily opened tenant handles, and one
// importer per legacy entity kind, each running inside a single
// transaction per source file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/marinerlabs/seastore/dbopen"
	"github.com/marinerlabs/seastore/legacypath"
)

// metaMigrationComplete is the per-tenant completion marker. It is a
// cache, not a guarantee: the orchestrator re-verifies file presence on
// every run regardless.
const metaMigrationComplete = "json_migration_complete"

// Store is one tenant's normalized database.
type Store struct {
	tenantID string
	db       *sql.DB
}

// Open opens (or creates) the tenant store at path and brings its schema
// to the current version.
func Open(path, tenantID string) (*Store, error) {
	db, err := dbopen.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open tenant %s: %w", tenantID, err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{tenantID: tenantID, db: db}, nil
}

// DB exposes the underlying handle for read paths built on top of the
// store.
func (s *Store) DB() *sql.DB { return s.db }

// TenantID returns the tenant this store belongs to.
func (s *Store) TenantID() string { return s.tenantID }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// MigrationComplete reports whether the completion marker is set.
func (s *Store) MigrationComplete(ctx context.Context) (bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, metaMigrationComplete).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: read completion marker: %w", err)
	}
	return v == "true", nil
}

// MarkMigrationComplete sets the completion marker.
func (s *Store) MarkMigrationComplete(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, 'true')`, metaMigrationComplete)
	if err != nil {
		return fmt.Errorf("store: set completion marker: %w", err)
	}
	return nil
}

// RunRecord summarises one orchestrated migration run over this tenant.
type RunRecord struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	FilesTotal    int
	FilesImported int
	FilesFailed   int
}

// RecordRun appends a migration run to the tenant's run history.
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO migration_runs
			(run_id, started_at, finished_at, files_total, files_imported, files_failed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.StartedAt.UTC().Format(time.RFC3339),
		rec.FinishedAt.UTC().Format(time.RFC3339),
		rec.FilesTotal, rec.FilesImported, rec.FilesFailed,
	)
	if err != nil {
		return fmt.Errorf("store: record run %s: %w", rec.RunID, err)
	}
	return nil
}

// Stats counts the row-level effect of importing one file.
type Stats struct {
	Inserted int // new rows
	Replaced int // snapshot rows overwritten (latest wins)
	Merged   int // trip rows merged field-by-field
	Skipped  int // rows already present, left untouched
}

// Total returns the number of rows the import touched.
func (st Stats) Total() int { return st.Inserted + st.Replaced + st.Merged }

// ImportFile maps one parsed snapshot into rows, inside one transaction.
// A document that is valid JSON but not the shape its kind requires
// returns ErrUnexpectedShape (zero rows written); any other error means
// the transaction was rolled back in full.
func (s *Store) ImportFile(ctx context.Context, f legacypath.File, data []byte) (Stats, error) {
	var stats Stats
	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		stats, err = importInTx(tx, f, data)
		return err
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func importInTx(tx *sql.Tx, f legacypath.File, data []byte) (Stats, error) {
	switch f.Kind {
	case legacypath.KindTransactions:
		return importTransactions(tx, data)
	case legacypath.KindAuditLog:
		return importAuditLog(tx, data)
	case legacypath.KindFleetHistory:
		return importFleetHistory(tx, data)
	case legacypath.KindLookupIndex:
		return importLookupIndex(tx, data)
	case legacypath.KindVoyages, legacypath.KindVoyageFees,
		legacypath.KindVoyageContributions, legacypath.KindVoyageDepartures:
		return importVoyages(tx, data)
	case legacypath.KindChats:
		return importChats(tx, data)
	case legacypath.KindProcessedMessages:
		return importProcessedMessages(tx, data)
	case legacypath.KindPiracyCase:
		return importPiracyCase(tx, f.CaseID, data)
	case legacypath.KindVesselProfile:
		return importVesselProfile(tx, f.VesselID, data)
	}
	return Stats{}, fmt.Errorf("store: no importer for kind %s", f.Kind)
}

// Registry is a caller-owned cache of per-tenant store handles, lazily
// populated and never evicted except by CloseAll. Hosts and tests each
// hold their own registry instead of sharing process-wide state.
type Registry struct {
	dir string

	mu     sync.Mutex
	stores map[string]*Store
	closed bool
}

// NewRegistry creates a registry that places tenant stores under dir as
// tenant_<id>.db.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, stores: make(map[string]*Store)}
}

// Path returns the store path for a tenant id.
func (r *Registry) Path(tenantID string) string {
	return filepath.Join(r.dir, "tenant_"+tenantID+".db")
}

// Get returns the tenant's store, opening it on first use.
func (r *Registry) Get(tenantID string) (*Store, error) {
	if !legacypath.ValidTenantID(tenantID) {
		return nil, fmt.Errorf("store: invalid tenant id %q", tenantID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("store: registry is closed")
	}
	if s, ok := r.stores[tenantID]; ok {
		return s, nil
	}
	s, err := Open(r.Path(tenantID), tenantID)
	if err != nil {
		return nil, err
	}
	r.stores[tenantID] = s
	return s, nil
}

// CloseAll closes every open handle. Idempotent; the registry rejects
// further Get calls afterwards.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var firstErr error
	for id, s := range r.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("store: close tenant %s: %w", id, err)
		}
	}
	r.stores = nil
	return firstErr
}
