// Package migrate orchestrates the per-tenant recovery of legacy JSON
// snapshots into normalized tenant stores: fast-path skip check, repair
// pass, discovery, per-file import-then-archive, completion marker. No
// error from one file or one tenant ever aborts processing of the
// others; the public surface fails only for host-level misconfiguration.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/marinerlabs/seastore/archive"
	"github.com/marinerlabs/seastore/idgen"
	"github.com/marinerlabs/seastore/jsonrepair"
	"github.com/marinerlabs/seastore/legacypath"
	"github.com/marinerlabs/seastore/store"
)

// containerKeys are the known top-level container keys per document
// family, used by the repair chain's container-key strategy.
var containerKeys = map[legacypath.Kind][]string{
	legacypath.KindFleetHistory: {"departures", "vessels"},
	legacypath.KindChats:        {"messages"},
	legacypath.KindPiracyCase:   {"history"},
}

// Engine is the migration orchestrator. One Engine serves all tenants;
// per-tenant work is single-threaded relative to that tenant's store.
type Engine struct {
	cfg      *Config
	resolver *legacypath.Resolver
	registry *store.Registry
	archiver *archive.Archiver
	logger   *slog.Logger
	newRunID idgen.Generator

	ownRegistry bool
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithRegistry injects a caller-owned store registry. The caller is then
// responsible for closing it; Engine.Close leaves it open.
func WithRegistry(r *store.Registry) Option {
	return func(e *Engine) { e.registry = r; e.ownRegistry = false }
}

// WithRunIDGenerator sets the generator for migration run ids.
func WithRunIDGenerator(gen idgen.Generator) Option {
	return func(e *Engine) { e.newRunID = gen }
}

// New creates an Engine over cfg.
func New(cfg *Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("migrate: config: %w", err)
	}
	e := &Engine{
		cfg:         cfg,
		resolver:    legacypath.NewResolver(cfg.DataRoot, cfg.LegacyRoots...),
		archiver:    archive.New(cfg.DataRoot),
		logger:      slog.Default(),
		newRunID:    idgen.Prefixed("run_", idgen.Default),
		ownRegistry: true,
	}
	for _, o := range opts {
		o(e)
	}
	if e.registry == nil {
		e.registry = store.NewRegistry(cfg.StoreDir)
	}
	return e, nil
}

// Close closes every store handle the engine opened. Idempotent. An
// injected registry (WithRegistry) is left to its owner.
func (e *Engine) Close() error {
	if !e.ownRegistry {
		return nil
	}
	return e.registry.CloseAll()
}

// MigrateTenant runs the full state machine for one tenant. It returns
// an error only for host-level problems (invalid tenant id, inaccessible
// store); data-quality problems are reported per file in the Result.
func (e *Engine) MigrateTenant(ctx context.Context, tenantID string) (*Result, error) {
	st, err := e.registry.Get(tenantID)
	if err != nil {
		return nil, err
	}

	files, err := e.resolver.Discover(tenantID)
	if err != nil {
		return nil, err
	}

	// Fast path: the marker is a cache, trustworthy only together with
	// "no outstanding source files remain".
	complete, err := st.MigrationComplete(ctx)
	if err != nil {
		return nil, err
	}
	if complete && len(files) == 0 {
		e.logger.Debug("migration fast path", "tenant", tenantID)
		return &Result{TenantID: tenantID, Skipped: true}, nil
	}

	res := &Result{TenantID: tenantID, RunID: e.newRunID()}
	started := time.Now()

	// Repair pass over the discovered set, then import file by file.
	repairs := e.repairPass(files)
	for _, f := range files {
		fr := e.importFile(ctx, st, f, repairs[f.Path])
		if fr.OK {
			res.Imported++
		} else {
			res.Failed++
		}
		res.Files = append(res.Files, fr)
	}

	// The marker is set unconditionally once the import pass finishes:
	// a failed file stays on disk, and its presence, not the marker,
	// drives re-entry on the next run.
	if err := st.MarkMigrationComplete(ctx); err != nil {
		return nil, err
	}

	rec := store.RunRecord{
		RunID:         res.RunID,
		StartedAt:     started,
		FinishedAt:    time.Now(),
		FilesTotal:    len(files),
		FilesImported: res.Imported,
		FilesFailed:   res.Failed,
	}
	if err := st.RecordRun(ctx, rec); err != nil {
		e.logger.Warn("record migration run", "tenant", tenantID, "err", err)
	}

	e.logger.Info("tenant migration finished",
		"tenant", tenantID, "run", res.RunID,
		"files", len(files), "imported", res.Imported, "failed", res.Failed)
	return res, nil
}

// repairOutcome is the repair pass verdict for one path.
type repairOutcome struct {
	strategy jsonrepair.Strategy
	err      error
}

// repairPass repairs each discovered file in place, preserving evidence
// for anything actually rewritten. Unrepairable files are recorded so the
// import pass can skip them without touching the source.
func (e *Engine) repairPass(files []legacypath.File) map[string]repairOutcome {
	out := make(map[string]repairOutcome, len(files))
	for _, f := range files {
		var opts []jsonrepair.Option
		if keys := containerKeys[f.Kind]; keys != nil {
			opts = append(opts, jsonrepair.WithContainerKeys(keys...))
		}
		strategy, err := jsonrepair.RepairFile(f.Path, opts...)
		out[f.Path] = repairOutcome{strategy: strategy, err: err}
		if err != nil {
			e.logger.Warn("snapshot unrepairable", "path", f.Path, "err", err)
		} else if strategy != jsonrepair.StrategyIntact {
			// Recovery may have dropped trailing data; surface that the
			// file was surgically repaired.
			e.logger.Warn("snapshot repaired",
				"path", f.Path, "strategy", strategy.String())
		}
	}
	return out
}

// importFile runs import-then-archive for one file. Repair exhaustion
// and import rollback leave the file in place as a hard failure; an
// unexpected document shape is a zero-effect no-op; a failed archive
// move after a committed import is only a warning.
func (e *Engine) importFile(ctx context.Context, st *store.Store, f legacypath.File, rep repairOutcome) FileResult {
	fr := FileResult{Kind: f.Kind.String(), Path: f.Path}
	if rep.err == nil && rep.strategy != jsonrepair.StrategyIntact {
		fr.RepairStrategy = rep.strategy.String()
	}

	if rep.err != nil {
		fr.Err = fmt.Sprintf("repair: %v", rep.err)
		return fr
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		fr.Err = fmt.Sprintf("read: %v", err)
		return fr
	}

	stats, err := st.ImportFile(ctx, f, data)
	switch {
	case errors.Is(err, store.ErrUnexpectedShape):
		fr.OK = true
		fr.Warning = err.Error()
		e.logger.Warn("unexpected snapshot shape", "path", f.Path, "kind", fr.Kind)
	case err != nil:
		fr.Err = fmt.Sprintf("import: %v", err)
		e.logger.Warn("import rolled back", "path", f.Path, "kind", fr.Kind, "err", err)
		return fr
	default:
		fr.OK = true
		fr.Stats = stats
		e.logger.Debug("file imported",
			"path", f.Path, "kind", fr.Kind, "rows", stats.Total())
	}

	if err := e.archiver.Move(f.Path, f.Category); err != nil {
		// Store state is committed and correct; the file will simply be
		// re-imported harmlessly next run.
		fr.Warning = fmt.Sprintf("archive: %v", err)
		e.logger.Warn("archive move failed", "path", f.Path, "err", err)
	}
	return fr
}

// MigrateAll fans out over every tenant with any discoverable file. A
// single tenant's unexpected error is recorded without aborting the
// batch.
func (e *Engine) MigrateAll(ctx context.Context) (*BatchResult, error) {
	tenants, err := e.resolver.Tenants()
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{}
	for _, id := range tenants {
		res, err := e.MigrateTenant(ctx, id)
		if err != nil {
			batch.Failed++
			batch.Failures = append(batch.Failures, TenantFailure{TenantID: id, Err: err.Error()})
			e.logger.Error("tenant migration failed", "tenant", id, "err", err)
			continue
		}
		if res.Skipped {
			batch.Skipped++
		} else {
			batch.Migrated++
		}
		batch.Results = append(batch.Results, res)
	}

	e.logger.Info("batch migration finished",
		"tenants", len(tenants),
		"migrated", batch.Migrated, "skipped", batch.Skipped, "failed", batch.Failed)
	return batch, nil
}
