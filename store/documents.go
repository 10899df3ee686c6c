package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnexpectedShape is returned when a document parses as JSON but does
// not have the shape its declared kind requires. The caller treats the
// file as a zero-effect no-op, not a failure.
var ErrUnexpectedShape = fmt.Errorf("store: document shape does not match its kind")

// Transaction is one entry of the legacy transaction log.
type Transaction struct {
	ID      int64   `json:"id"`
	Time    string  `json:"time"`
	Context string  `json:"context"`
	Cash    float64 `json:"cash"`
}

// AuditEvent is one entry of the legacy autopilot audit log.
type AuditEvent struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Autopilot string `json:"autopilot"`
	Status    string `json:"status"`
	Summary   string `json:"summary"`
	Details   string `json:"details"`
}

// FleetSnapshot is the singleton vessel-history document: vessel metadata
// keyed by vessel id, the departure log, per-route risk, and the
// sync-progress bookkeeping map.
type FleetSnapshot struct {
	Vessels      map[string]VesselMeta `json:"vessels"`
	Departures   []Departure           `json:"departures"`
	RouteRisk    map[string]float64    `json:"route_risk"`
	SyncProgress map[string]any        `json:"sync_progress"`
}

// VesselMeta is the per-vessel metadata carried by a fleet snapshot.
type VesselMeta struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Capacity int64   `json:"capacity"`
	Speed    float64 `json:"speed"`
}

// Departure is one departure-log entry of a fleet snapshot.
type Departure struct {
	VesselID    int64  `json:"vessel_id"`
	DepartedAt  int64  `json:"departed_at"`
	Destination string `json:"destination"`
}

// LookupEntry is one entry of the unified lookup index, cross-referencing
// the transaction, audit and fleet logs by id.
type LookupEntry struct {
	ID            int64   `json:"id"`
	TransactionID *int64  `json:"transaction_id"`
	AuditID       *int64  `json:"audit_id"`
	VesselID      *int64  `json:"vessel_id"`
	Cash          float64 `json:"cash"`
	Type          string  `json:"type"`
	Category      string  `json:"category"`
}

// VoyageFragment is a partial trip record. The four legacy variants share
// this shape; each populates a disjoint subset of fields, so every field
// is a pointer and a nil means "this variant does not carry the field",
// never "clear the stored value".
type VoyageFragment struct {
	Origin       *string  `json:"origin"`
	Destination  *string  `json:"destination"`
	Cargo        *string  `json:"cargo"`
	Income       *float64 `json:"income"`
	HarborFee    *float64 `json:"harbor_fee"`
	Contribution *float64 `json:"contribution"`
	DepartedAt   *string  `json:"departed_at"`
}

// VoyageKey is the (vessel, timestamp) identity of a trip row, parsed
// from the legacy "<vesselId>_<timestamp>" map key.
type VoyageKey struct {
	VesselID  int64
	Timestamp int64
}

// ParseVoyageKey parses "<vesselId>_<timestamp>". Both halves must be
// integers; anything else is not a voyage key.
func ParseVoyageKey(key string) (VoyageKey, error) {
	left, right, found := strings.Cut(key, "_")
	if !found {
		return VoyageKey{}, fmt.Errorf("store: voyage key %q: missing separator", key)
	}
	vid, err := strconv.ParseInt(left, 10, 64)
	if err != nil {
		return VoyageKey{}, fmt.Errorf("store: voyage key %q: vessel id: %w", key, err)
	}
	ts, err := strconv.ParseInt(right, 10, 64)
	if err != nil {
		return VoyageKey{}, fmt.Errorf("store: voyage key %q: timestamp: %w", key, err)
	}
	return VoyageKey{VesselID: vid, Timestamp: ts}, nil
}

// ChatThread is one conversation of the messenger cache.
type ChatThread struct {
	Metadata map[string]any `json:"metadata"`
	Messages []ChatMessage  `json:"messages"`
}

// ChatMessage is one message of a cached conversation.
type ChatMessage struct {
	ID     string `json:"id"`
	Sender string `json:"sender"`
	Body   string `json:"body"`
	SentAt int64  `json:"sent_at"`
}

// PiracyEvent is one negotiation event of a hijack case. Events have no
// id of their own; their identity is (case, type, amount, timestamp).
type PiracyEvent struct {
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"`
}

// PiracyCaseDetails are the case-level fields of the newer per-case file
// shape.
type PiracyCaseDetails struct {
	VesselID int64   `json:"vessel_id"`
	Status   string  `json:"status"`
	Ransom   float64 `json:"ransom"`
}

// PiracyCaseDoc is the normalized form of a per-case hijack file. Both
// legacy shapes (bare event array, and object with case_details) reduce
// to this.
type PiracyCaseDoc struct {
	CaseDetails *PiracyCaseDetails `json:"case_details"`
	History     []PiracyEvent      `json:"history"`
	Resolved    bool               `json:"resolved"`
	Resolution  string             `json:"resolution"`
}

// ParsePiracyCase accepts both hijack-case file shapes: the old bare
// array of negotiation events and the new object with case_details plus
// history and resolution fields.
func ParsePiracyCase(data []byte) (PiracyCaseDoc, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []PiracyEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return PiracyCaseDoc{}, fmt.Errorf("%w: old-shape case file: %v", ErrUnexpectedShape, err)
		}
		return PiracyCaseDoc{History: events}, nil
	}
	var doc PiracyCaseDoc
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return PiracyCaseDoc{}, fmt.Errorf("%w: new-shape case file: %v", ErrUnexpectedShape, err)
	}
	return doc, nil
}

// VesselProfile is the per-vessel appearance document. The typed fields
// are the ones later subsystems query; the full document is additionally
// stored raw so nothing the proxy wrote is lost.
type VesselProfile struct {
	Hull     string  `json:"hull"`
	Livery   string  `json:"livery"`
	Flag     string  `json:"flag"`
	Capacity int64   `json:"capacity"`
	Speed    float64 `json:"speed"`
}
