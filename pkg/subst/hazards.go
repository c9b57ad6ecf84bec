package subst

import (
	"bytes"
	"fmt"
)

// HazardKind names the way two rules interact.
type HazardKind string

const (
	// Retrigger: a later pattern occurs inside an earlier replacement. Only
	// matters in Chained mode, where the later rule would rewrite that output.
	Retrigger HazardKind = "retrigger"
	// Shadow: an earlier pattern occurs inside a later one, so the earlier rule
	// consumes bytes the later rule needed and the later rule can never match there.
	Shadow HazardKind = "shadow"
	// Nested: a later pattern occurs inside an earlier one. The earlier rule
	// wins where both match; the later one still fires elsewhere.
	Nested HazardKind = "nested"
	// Overlap: a suffix of one pattern is a prefix of the other, so the winner
	// at a shared boundary depends on table order.
	Overlap HazardKind = "overlap"
)

// Hazard is one order-dependent pair of rules, by index.
type Hazard struct {
	Kind    HazardKind
	Earlier int
	Later   int
}

func (h Hazard) String() string {
	return fmt.Sprintf("%s: rule #%d vs rule #%d", h.Kind, h.Earlier+1, h.Later+1)
}

// Hazards lists rule pairs whose combined effect depends on their order.
// Noop rules are ignored.
func Hazards(rules []Rule) []Hazard {
	var out []Hazard
	for i := range rules {
		if rules[i].IsNoop() {
			continue
		}
		for j := i + 1; j < len(rules); j++ {
			if rules[j].IsNoop() {
				continue
			}
			a, b := rules[i], rules[j]
			if bytes.Contains(a.Replacement, b.Pattern) {
				out = append(out, Hazard{Kind: Retrigger, Earlier: i, Later: j})
			}
			switch {
			case bytes.Contains(b.Pattern, a.Pattern):
				out = append(out, Hazard{Kind: Shadow, Earlier: i, Later: j})
			case bytes.Contains(a.Pattern, b.Pattern):
				out = append(out, Hazard{Kind: Nested, Earlier: i, Later: j})
			case edgeOverlap(a.Pattern, b.Pattern) || edgeOverlap(b.Pattern, a.Pattern):
				out = append(out, Hazard{Kind: Overlap, Earlier: i, Later: j})
			}
		}
	}
	return out
}

// edgeOverlap reports whether a proper suffix of x is a prefix of y.
func edgeOverlap(x, y []byte) bool {
	for k := 1; k < len(x) && k < len(y); k++ {
		if bytes.Equal(x[len(x)-k:], y[:k]) {
			return true
		}
	}
	return false
}
