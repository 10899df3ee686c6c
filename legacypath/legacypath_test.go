package legacypath

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func kinds(files []File) map[Kind]int {
	out := map[Kind]int{}
	for _, f := range files {
		out[f.Kind]++
	}
	return out
}

func TestDiscoverSingletons(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "transactions", "42-transactions.json"))
	writeFile(t, filepath.Join(root, "audit_logs", "42-audit.json"))
	writeFile(t, filepath.Join(root, "fleet_history", "42-fleet.json"))
	writeFile(t, filepath.Join(root, "analytics", "42-analytics.json"))
	writeFile(t, filepath.Join(root, "chats", "42-chats.json"))
	// Another tenant's files must not match.
	writeFile(t, filepath.Join(root, "transactions", "43-transactions.json"))

	r := NewResolver(root)
	files, err := r.Discover("42")
	if err != nil {
		t.Fatal(err)
	}
	got := kinds(files)
	for _, want := range []Kind{KindTransactions, KindAuditLog, KindFleetHistory, KindLookupIndex, KindChats} {
		if got[want] != 1 {
			t.Errorf("kind %s: got %d files, want 1", want, got[want])
		}
	}
	if len(files) != 5 {
		t.Errorf("got %d files, want 5", len(files))
	}
}

func TestDiscoverPerEntity(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "piracy_cases", "42-7.json"))
	writeFile(t, filepath.Join(root, "piracy_cases", "42-19.json"))
	writeFile(t, filepath.Join(root, "vessel_profiles", "42_5.json"))
	// Malformed ids and traversal-shaped names must be rejected.
	writeFile(t, filepath.Join(root, "piracy_cases", "42-abc.json"))
	writeFile(t, filepath.Join(root, "piracy_cases", "42-..json"))
	writeFile(t, filepath.Join(root, "vessel_profiles", "42_5x.json"))

	r := NewResolver(root)
	files, err := r.Discover("42")
	if err != nil {
		t.Fatal(err)
	}

	var caseIDs []int64
	var vesselIDs []int64
	for _, f := range files {
		switch f.Kind {
		case KindPiracyCase:
			caseIDs = append(caseIDs, f.CaseID)
		case KindVesselProfile:
			vesselIDs = append(vesselIDs, f.VesselID)
		}
	}
	if len(caseIDs) != 2 {
		t.Errorf("got case ids %v, want exactly 7 and 19", caseIDs)
	}
	if len(vesselIDs) != 1 || vesselIDs[0] != 5 {
		t.Errorf("got vessel ids %v, want [5]", vesselIDs)
	}
}

func TestDiscoverLegacyRoots(t *testing.T) {
	current := t.TempDir()
	legacy := t.TempDir()
	writeFile(t, filepath.Join(current, "transactions", "42-transactions.json"))
	writeFile(t, filepath.Join(legacy, "voyages", "42-voyages.json"))
	writeFile(t, filepath.Join(legacy, "voyage_fees", "42-fees.json"))

	r := NewResolver(current, legacy)
	files, err := r.Discover("42")
	if err != nil {
		t.Fatal(err)
	}
	got := kinds(files)
	if got[KindTransactions] != 1 || got[KindVoyages] != 1 || got[KindVoyageFees] != 1 {
		t.Errorf("legacy roots not searched: %v", got)
	}
}

func TestDiscoverRejectsBadTenantID(t *testing.T) {
	r := NewResolver(t.TempDir())
	for _, id := range []string{"", "abc", "4 2", "42/.."} {
		if _, err := r.Discover(id); err == nil {
			t.Errorf("Discover(%q) accepted a malformed tenant id", id)
		}
	}
}

func TestTenants(t *testing.T) {
	current := t.TempDir()
	legacy := t.TempDir()
	writeFile(t, filepath.Join(current, "transactions", "42-transactions.json"))
	writeFile(t, filepath.Join(current, "vessel_profiles", "77_3.json"))
	writeFile(t, filepath.Join(legacy, "chats", "42-chats.json"))
	writeFile(t, filepath.Join(legacy, "audit_logs", "99-audit.json"))
	// Not a snapshot name.
	writeFile(t, filepath.Join(current, "transactions", "readme.json"))

	r := NewResolver(current, legacy)
	tenants, err := r.Tenants()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"42", "77", "99"}
	if len(tenants) != len(want) {
		t.Fatalf("tenants = %v, want %v", tenants, want)
	}
	for i := range want {
		if tenants[i] != want[i] {
			t.Fatalf("tenants = %v, want %v", tenants, want)
		}
	}
}
