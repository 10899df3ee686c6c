// Package legacypath enumerates legacy snapshot files for a tenant across
// every on-disk layout generation the proxy ever wrote. Matching is
// strictly typed: a file is either recognised as one of the known snapshot
// kinds with validated ids, or it is not a candidate at all. Nothing
// stringly shaped (path-traversal names, stray ids, foreign files) gets
// past the resolver.
package legacypath

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Kind classifies a snapshot file by logical entity type.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransactions
	KindAuditLog
	KindFleetHistory
	KindLookupIndex
	KindVoyages
	KindVoyageFees
	KindVoyageContributions
	KindVoyageDepartures
	KindPiracyCase
	KindVesselProfile
	KindChats
	KindProcessedMessages
)

var kindNames = map[Kind]string{
	KindTransactions:        "transactions",
	KindAuditLog:            "audit_log",
	KindFleetHistory:        "fleet_history",
	KindLookupIndex:         "lookup_index",
	KindVoyages:             "voyages",
	KindVoyageFees:          "voyage_fees",
	KindVoyageContributions: "voyage_contributions",
	KindVoyageDepartures:    "voyage_departures",
	KindPiracyCase:          "piracy_case",
	KindVesselProfile:       "vessel_profile",
	KindChats:               "chats",
	KindProcessedMessages:   "processed_messages",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// singletonKinds maps each one-file-per-tenant kind to its category folder
// and filename suffix: <category>/<tenant>-<suffix>.json.
var singletonKinds = []struct {
	kind     Kind
	category string
	suffix   string
}{
	{KindTransactions, "transactions", "transactions"},
	{KindAuditLog, "audit_logs", "audit"},
	{KindFleetHistory, "fleet_history", "fleet"},
	{KindLookupIndex, "analytics", "analytics"},
	{KindVoyages, "voyages", "voyages"},
	{KindVoyageFees, "voyage_fees", "fees"},
	{KindVoyageContributions, "voyage_contributions", "contributions"},
	{KindVoyageDepartures, "voyage_departures", "departures"},
	{KindChats, "chats", "chats"},
	{KindProcessedMessages, "processed_messages", "processed"},
}

const (
	piracyCategory  = "piracy_cases"
	profileCategory = "vessel_profiles"
)

// File is one discovered snapshot: its kind, absolute path, and the
// category folder it was found under (preserved by the archiver for
// provenance). CaseID and VesselID are set only for the per-entity kinds.
type File struct {
	Kind     Kind
	Path     string
	Category string
	CaseID   int64
	VesselID int64
}

// tenantIDPattern is the only accepted tenant id shape. Matches the
// numeric user ids the upstream service assigns.
var tenantIDPattern = regexp.MustCompile(`^[0-9]+$`)

// ValidTenantID reports whether id is a well-formed tenant id.
func ValidTenantID(id string) bool {
	return tenantIDPattern.MatchString(id)
}

// Resolver knows the current data root and every legacy root a previous
// version of the app may have written snapshots under.
type Resolver struct {
	roots []string // current root first, then legacy roots
}

// NewResolver builds a resolver over the current root plus any legacy
// roots, searched in that order.
func NewResolver(currentRoot string, legacyRoots ...string) *Resolver {
	roots := append([]string{currentRoot}, legacyRoots...)
	return &Resolver{roots: roots}
}

// Discover returns every snapshot file belonging to tenantID across all
// known roots. The tenant id is validated and regexp-escaped before any
// pattern is built from it.
func (r *Resolver) Discover(tenantID string) ([]File, error) {
	if !ValidTenantID(tenantID) {
		return nil, fmt.Errorf("legacypath: invalid tenant id %q", tenantID)
	}

	var files []File
	for _, root := range r.roots {
		for _, sk := range singletonKinds {
			path := filepath.Join(root, sk.category, tenantID+"-"+sk.suffix+".json")
			if fileExists(path) {
				files = append(files, File{Kind: sk.kind, Path: path, Category: sk.category})
			}
		}

		cases, err := matchPerEntity(root, piracyCategory, tenantID, '-')
		if err != nil {
			return nil, err
		}
		for _, m := range cases {
			files = append(files, File{
				Kind: KindPiracyCase, Path: m.path, Category: piracyCategory, CaseID: m.id,
			})
		}

		profiles, err := matchPerEntity(root, profileCategory, tenantID, '_')
		if err != nil {
			return nil, err
		}
		for _, m := range profiles {
			files = append(files, File{
				Kind: KindVesselProfile, Path: m.path, Category: profileCategory, VesselID: m.id,
			})
		}
	}
	return files, nil
}

// Tenants returns the sorted union of tenant ids that own at least one
// discoverable snapshot in any root. Filenames that do not structurally
// match a known pattern are ignored.
func (r *Resolver) Tenants() ([]string, error) {
	seen := map[string]bool{}
	namePat := regexp.MustCompile(`^([0-9]+)[-_].+\.json$`)

	for _, root := range r.roots {
		for _, cat := range Categories() {
			entries, err := os.ReadDir(filepath.Join(root, cat))
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, fmt.Errorf("legacypath: read %s: %w", filepath.Join(root, cat), err)
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				if m := namePat.FindStringSubmatch(e.Name()); m != nil {
					seen[m[1]] = true
				}
			}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type entityMatch struct {
	path string
	id   int64
}

// matchPerEntity scans one category folder for files named
// <tenant><sep><entityID>.json where entityID is digits only. The tenant
// id is escaped before being embedded in the pattern.
func matchPerEntity(root, category, tenantID string, sep byte) ([]entityMatch, error) {
	dir := filepath.Join(root, category)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("legacypath: read %s: %w", dir, err)
	}

	pat, err := regexp.Compile(`^` + regexp.QuoteMeta(tenantID) + regexp.QuoteMeta(string(sep)) + `([0-9]+)\.json$`)
	if err != nil {
		return nil, fmt.Errorf("legacypath: pattern for tenant %s: %w", tenantID, err)
	}

	var out []entityMatch
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pat.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, entityMatch{path: filepath.Join(dir, e.Name()), id: id})
	}
	return out, nil
}

// Categories lists every category folder name the resolver knows about.
// The archiver mirrors these under the archive tree.
func Categories() []string {
	out := make([]string, 0, len(singletonKinds)+2)
	for _, sk := range singletonKinds {
		out = append(out, sk.category)
	}
	out = append(out, piracyCategory, profileCategory)
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
