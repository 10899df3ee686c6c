// Package jsonrepair salvages JSON snapshot files damaged by partial
// writes. A repair is a best-effort string surgery: strip junk bytes,
// truncate at the last structurally complete element, and close the
// still-open containers. The engine never reports success with text that
// fails to parse, and it never touches the input slice.
package jsonrepair

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Strategy identifies which step of the repair chain produced the result.
type Strategy int

const (
	// StrategyIntact means the document parsed as-is.
	StrategyIntact Strategy = iota
	// StrategyControlBytes means stripping control bytes was enough.
	StrategyControlBytes
	// StrategyCloseToken means truncation at the last closing token plus a
	// bracket completion.
	StrategyCloseToken
	// StrategyContainerKey means truncation inside a known top-level
	// container, closed with the container's own closer.
	StrategyContainerKey
	// StrategySweep means the backward fixed-step sweep found a cut point.
	StrategySweep
)

func (s Strategy) String() string {
	switch s {
	case StrategyIntact:
		return "intact"
	case StrategyControlBytes:
		return "control_bytes"
	case StrategyCloseToken:
		return "close_token"
	case StrategyContainerKey:
		return "container_key"
	case StrategySweep:
		return "sweep"
	}
	return "unknown"
}

// Outcome is a successful repair: the parseable bytes and the strategy
// that produced them. Strategy != StrategyIntact means Data differs from
// the input and the caller must preserve the original as evidence before
// overwriting anything on disk.
type Outcome struct {
	Data     []byte
	Strategy Strategy
}

// Option customises the repair chain.
type Option func(*config)

type config struct {
	containerKeys []string
	sweepStep     int
}

// WithContainerKeys sets the known top-level container key names for the
// document family being repaired (step 4 of the chain). The keys are
// tried in order.
func WithContainerKeys(keys ...string) Option {
	return func(c *config) { c.containerKeys = append(c.containerKeys, keys...) }
}

// completions is the ordered set of closing-bracket sequences tried after
// each candidate truncation. Shorter completions first: the least surgery
// that yields a parseable document wins.
var completions = []string{"", "}", "]", "]}", "}]", "}}", "]}}"}

// closeTokens are the recognised end-of-element sequences searched for
// before the failure point. The cut retains only the closing brace or
// bracket itself, dropping trailing commas and newlines.
var closeTokens = []string{"},", "}\n", "}", "],", "]\n", "]"}

const defaultSweepStep = 64

// Repair runs the strategy chain over data and returns the first
// parseable result. ok is false when every strategy is exhausted; the
// caller must then leave the source file untouched.
func Repair(data []byte, opts ...Option) (Outcome, bool) {
	cfg := config{sweepStep: defaultSweepStep}
	for _, o := range opts {
		o(&cfg)
	}

	// Step 1: the common case is a file that is actually fine.
	fail, ok := parseCheck(data)
	if ok {
		return Outcome{Data: data, Strategy: StrategyIntact}, true
	}

	// Step 2: strip disallowed control bytes and retry. All later steps
	// operate on the cleaned bytes so a single repair fixes both problems.
	clean := stripControlBytes(data)
	if !bytes.Equal(clean, data) {
		if f, ok := parseCheck(clean); ok {
			return Outcome{Data: clean, Strategy: StrategyControlBytes}, true
		} else {
			fail = f
		}
	}

	// Step 3: truncate at the last recognised closing token before (or
	// just past) the failure point and try each completion.
	if out, ok := repairAtCloseToken(clean, fail); ok {
		return out, true
	}

	// Step 4: use a known top-level container key to find the last fully
	// closed element and append the closer matching the container shape.
	if out, ok := repairAtContainerKey(clean, fail, cfg.containerKeys); ok {
		return out, true
	}

	// Step 5: sweep backward from the failure offset in fixed steps.
	if out, ok := repairBySweep(clean, fail, cfg.sweepStep); ok {
		return out, true
	}

	return Outcome{}, false
}

// parseCheck reports whether data is a well-formed JSON document. On
// failure it returns the approximate byte offset of the first error, or
// len(data) when the decoder gives none (truncated input).
func parseCheck(data []byte) (failOffset int, ok bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return 0, false
	}
	var v any
	err := json.Unmarshal(data, &v)
	if err == nil {
		return 0, true
	}
	var syn *json.SyntaxError
	if errors.As(err, &syn) && syn.Offset > 0 {
		off := int(syn.Offset)
		if off > len(data) {
			off = len(data)
		}
		return off, false
	}
	return len(data), false
}

// stripControlBytes removes every byte below 0x20 except tab, CR and LF.
// Content above 0x1F, including multi-byte UTF-8, passes through intact.
func stripControlBytes(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if b < 0x20 && b != '\t' && b != '\r' && b != '\n' {
			continue
		}
		out = append(out, b)
	}
	return out
}

// repairAtCloseToken finds, for each recognised closing token, its last
// occurrence no later than slightly past the failure offset, truncates
// just after the closing character and tries each completion.
func repairAtCloseToken(data []byte, failOffset int) (Outcome, bool) {
	// "near the point of failure": tolerate tokens a little past the
	// reported offset, since the decoder may fail mid-token.
	limit := failOffset + 16
	if limit > len(data) {
		limit = len(data)
	}
	for _, tok := range closeTokens {
		idx := bytes.LastIndex(data[:limit], []byte(tok))
		if idx < 0 {
			continue
		}
		cut := idx + 1 // keep the '}' or ']' only
		for _, comp := range completions {
			if cand, ok := tryComplete(data[:cut], comp); ok {
				return Outcome{Data: cand, Strategy: StrategyCloseToken}, true
			}
		}
	}
	return Outcome{}, false
}

// repairAtContainerKey locates a known top-level container key, finds the
// last fully closed element inside it before the failure point, and
// appends the closer matching the container: "]}"  for an array-valued
// key, "}}" for a map-valued one.
func repairAtContainerKey(data []byte, failOffset int, keys []string) (Outcome, bool) {
	for _, key := range keys {
		quoted := []byte(`"` + key + `"`)
		keyIdx := bytes.Index(data, quoted)
		if keyIdx < 0 {
			continue
		}
		rest := data[keyIdx+len(quoted):]
		open := bytes.IndexAny(rest, "[{")
		if open < 0 {
			continue
		}
		openIdx := keyIdx + len(quoted) + open
		closer := "]}"
		if data[openIdx] == '{' {
			closer = "}}"
		}
		limit := failOffset
		if limit > len(data) {
			limit = len(data)
		}
		if limit <= openIdx {
			continue
		}
		// Last fully closed element before the failure point.
		elemEnd := bytes.LastIndexByte(data[openIdx:limit], '}')
		if elemEnd < 0 {
			continue
		}
		cut := openIdx + elemEnd + 1
		if cand, ok := tryComplete(data[:cut], closer); ok {
			return Outcome{Data: cand, Strategy: StrategyContainerKey}, true
		}
	}
	return Outcome{}, false
}

// repairBySweep walks backward from the failure offset in fixed-size
// steps, trying every completion at each cut. Last resort; accepts the
// first cut that parses.
func repairBySweep(data []byte, failOffset int, step int) (Outcome, bool) {
	if step <= 0 {
		step = defaultSweepStep
	}
	start := failOffset
	if start > len(data) {
		start = len(data)
	}
	for cut := start; cut > 0; cut -= step {
		for _, comp := range completions {
			if cand, ok := tryComplete(data[:cut], comp); ok {
				return Outcome{Data: cand, Strategy: StrategySweep}, true
			}
		}
	}
	return Outcome{}, false
}

// tryComplete appends completion to prefix and parses the result. The
// prefix is trimmed of trailing whitespace and commas first so a cut
// between elements still closes cleanly.
func tryComplete(prefix []byte, completion string) ([]byte, bool) {
	trimmed := bytes.TrimRight(prefix, " \t\r\n,")
	if len(trimmed) == 0 {
		return nil, false
	}
	cand := make([]byte, 0, len(trimmed)+len(completion))
	cand = append(cand, trimmed...)
	cand = append(cand, completion...)
	if json.Valid(cand) {
		return cand, true
	}
	return nil, false
}
