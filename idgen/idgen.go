// Package idgen provides pluggable ID generation for migration run
// records. The strategy is a startup-time decision: constructors accept a
// Generator rather than minting ids themselves, which keeps run ids
// deterministic in tests.
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, so migration runs list in chronological order.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID,
// for type-scoped identifiers (e.g. "run_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the ecosystem-standard generator: UUIDv7.
var Default = UUIDv7()
