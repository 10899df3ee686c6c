package migrate

import "github.com/marinerlabs/seastore/store"

// FileResult reports the outcome of one source file within a run.
type FileResult struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
	// OK means the file's transaction committed (possibly with zero
	// effect) and the file was eligible for archiving.
	OK    bool        `json:"ok"`
	Stats store.Stats `json:"stats"`
	// Err is set when OK is false: repair exhausted or import rolled
	// back. The file stays in place and is retried on the next run.
	Err string `json:"err,omitempty"`
	// Warning is non-fatal: unexpected document shape (zero-effect
	// no-op) or a failed archive move after a committed import.
	Warning string `json:"warning,omitempty"`
	// RepairStrategy names the repair step that fired, empty for files
	// that parsed as-is.
	RepairStrategy string `json:"repair_strategy,omitempty"`
}

// Result reports one tenant's migration run.
type Result struct {
	TenantID string `json:"tenant_id"`
	RunID    string `json:"run_id,omitempty"`
	// Skipped means the fast path fired: completion marker set and no
	// outstanding source files.
	Skipped  bool         `json:"skipped"`
	Files    []FileResult `json:"files,omitempty"`
	Imported int          `json:"imported"`
	Failed   int          `json:"failed"`
}

// TenantFailure is a tenant whose run aborted with an unexpected error.
type TenantFailure struct {
	TenantID string `json:"tenant_id"`
	Err      string `json:"err"`
}

// BatchResult aggregates a fan-out run across all tenants.
type BatchResult struct {
	Migrated int             `json:"migrated"`
	Skipped  int             `json:"skipped"`
	Failed   int             `json:"failed"`
	Results  []*Result       `json:"results,omitempty"`
	Failures []TenantFailure `json:"failures,omitempty"`
}
