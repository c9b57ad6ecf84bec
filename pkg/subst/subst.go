// Package subst applies ordered tables of exact byte-sequence substitutions.
//
// Rules run strictly in list order. Each rule makes one full left-to-right scan
// and replaces every non-overlapping occurrence of its pattern; bytes a rule has
// just written are never scanned again by that rule. Whether later rules may
// match inside earlier replacements is decided by the Mode.
package subst

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Rule replaces every occurrence of Pattern with Replacement.
type Rule struct {
	Name        string
	Pattern     []byte
	Replacement []byte
}

// IsNoop reports whether applying the rule could never change anything.
func (r Rule) IsNoop() bool {
	return len(r.Pattern) == 0 || bytes.Equal(r.Pattern, r.Replacement)
}

// label returns the rule name, or its position when unnamed.
func (r Rule) label(i int) string {
	if r.Name != "" {
		return r.Name
	}
	return "#" + strconv.Itoa(i+1)
}

// Mode decides whether later rules may match inside earlier replacements.
type Mode int

const (
	// Protected freezes replacement output: later rules see the rewritten
	// buffer but never match inside bytes an earlier rule produced.
	Protected Mode = iota
	// Chained is plain sequential replace-all: every rule rescans the whole
	// buffer, including earlier replacements.
	Chained
)

func (m Mode) String() string {
	if m == Chained {
		return "chained"
	}
	return "protected"
}

// ParseMode accepts "protected" (or empty) and "chained".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "protected":
		return Protected, nil
	case "chained":
		return Chained, nil
	default:
		return Protected, fmt.Errorf("unknown substitution mode %q", s)
	}
}

// Count is the number of replacements one rule made.
type Count struct {
	Rule  string
	Index int
	N     int
}

// Report summarizes one Apply pass.
type Report struct {
	Total  int
	Counts []Count // one entry per rule, in rule order

	// Left lists rules that still match the output outside frozen bytes,
	// i.e. what another pass in the same mode would rewrite. Only N > 0.
	Left []Count
}

// Remaining returns Left as a report of its own.
func (r Report) Remaining() Report {
	out := Report{Counts: r.Left}
	for _, c := range r.Left {
		out.Total += c.N
	}
	return out
}

// Changed lists only the rules that matched at least once.
func (r Report) Changed() []Count {
	var out []Count
	for _, c := range r.Counts {
		if c.N > 0 {
			out = append(out, c)
		}
	}
	return out
}

type options struct {
	mode Mode
}

// Option configures Apply.
type Option func(*options)

// WithMode selects Protected (default) or Chained evaluation.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// Apply rewrites data with rules and reports how many replacements each rule made.
// The input slice is not modified.
func Apply(data []byte, rules []Rule, opts ...Option) ([]byte, Report) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	rep := Report{Counts: make([]Count, len(rules))}
	for i, r := range rules {
		rep.Counts[i] = Count{Rule: r.label(i), Index: i}
	}

	if o.mode == Chained {
		out := append([]byte(nil), data...)
		for i, r := range rules {
			if r.IsNoop() {
				continue
			}
			n := bytes.Count(out, r.Pattern)
			if n == 0 {
				continue
			}
			out = bytes.ReplaceAll(out, r.Pattern, r.Replacement)
			rep.Counts[i].N = n
			rep.Total += n
		}
		rep.Left = leftover(rules, [][]byte{out})
		return out, rep
	}

	segs := []segment{{data: data}}
	for i, r := range rules {
		if r.IsNoop() {
			continue
		}
		var n int
		segs, n = replaceLive(segs, r)
		rep.Counts[i].N = n
		rep.Total += n
	}

	live := make([][]byte, 0, len(segs))
	for _, s := range segs {
		if !s.frozen {
			live = append(live, s.data)
		}
	}
	rep.Left = leftover(rules, live)
	return join(segs), rep
}

// leftover counts pattern occurrences inside the given runs. A match never
// spans two runs: frozen bytes sit between them.
func leftover(rules []Rule, runs [][]byte) []Count {
	var out []Count
	for i, r := range rules {
		if r.IsNoop() {
			continue
		}
		n := 0
		for _, run := range runs {
			n += bytes.Count(run, r.Pattern)
		}
		if n > 0 {
			out = append(out, Count{Rule: r.label(i), Index: i, N: n})
		}
	}
	return out
}

// CountMatches reports how often each rule would match, evaluated exactly as
// Apply would evaluate it, without returning the rewritten buffer.
func CountMatches(data []byte, rules []Rule, opts ...Option) Report {
	_, rep := Apply(data, rules, opts...)
	return rep
}

// Matches reports whether any non-noop pattern occurs in data as is.
func Matches(data []byte, rules []Rule) bool {
	for _, r := range rules {
		if !r.IsNoop() && bytes.Contains(data, r.Pattern) {
			return true
		}
	}
	return false
}

// Validation errors; Validate joins one per offending rule.
var (
	ErrEmptyPattern     = errors.New("empty pattern")
	ErrDuplicatePattern = errors.New("duplicate pattern")
)

// Validate rejects rules that can never be applied meaningfully: empty
// patterns and patterns repeated later in the list (the later copy would be dead).
func Validate(rules []Rule) error {
	var errs []error
	seen := make(map[string]int, len(rules))
	for i, r := range rules {
		if len(r.Pattern) == 0 {
			errs = append(errs, fmt.Errorf("rule %s: %w", r.label(i), ErrEmptyPattern))
			continue
		}
		if j, dup := seen[string(r.Pattern)]; dup {
			errs = append(errs, fmt.Errorf("rule %s repeats the pattern of rule %s: %w",
				r.label(i), rules[j].label(j), ErrDuplicatePattern))
			continue
		}
		seen[string(r.Pattern)] = i
	}
	return errors.Join(errs...)
}

// segment is a run of output bytes; frozen runs were written by a replacement.
type segment struct {
	data   []byte
	frozen bool
}

func replaceLive(segs []segment, r Rule) ([]segment, int) {
	out := make([]segment, 0, len(segs))
	total := 0

	for _, s := range segs {
		if s.frozen || !bytes.Contains(s.data, r.Pattern) {
			out = appendSeg(out, s)
			continue
		}
		rest := s.data
		for {
			idx := bytes.Index(rest, r.Pattern)
			if idx < 0 {
				break
			}
			out = appendSeg(out, segment{data: rest[:idx]})
			out = appendSeg(out, segment{data: r.Replacement, frozen: true})
			rest = rest[idx+len(r.Pattern):]
			total++
		}
		out = appendSeg(out, segment{data: rest})
	}
	return out, total
}

// appendSeg drops empty runs and merges adjacent live runs, so that text made
// adjacent by a deletion can still be matched by a later rule.
func appendSeg(segs []segment, s segment) []segment {
	if len(s.data) == 0 {
		return segs
	}
	if !s.frozen && len(segs) > 0 && !segs[len(segs)-1].frozen {
		last := &segs[len(segs)-1]
		merged := make([]byte, 0, len(last.data)+len(s.data))
		merged = append(merged, last.data...)
		merged = append(merged, s.data...)
		last.data = merged
		return segs
	}
	return append(segs, s)
}

func join(segs []segment) []byte {
	n := 0
	for _, s := range segs {
		n += len(s.data)
	}
	out := make([]byte, 0, n)
	for _, s := range segs {
		out = append(out, s.data...)
	}
	return out
}
