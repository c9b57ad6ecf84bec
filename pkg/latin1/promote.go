// Package latin1 upgrades stray Latin-1 bytes to UTF-8 without touching
// byte sequences that are already valid UTF-8.
package latin1

import (
	"errors"
	"fmt"
)

// Policy decides what happens to a stray byte that has no table entry.
// Policy decides what happens to a stray byte the table does not map.
type Policy int

const (
	Passthrough Policy = iota // keep the byte verbatim (best effort, nothing is lost)
	Reject                    // stop and report the byte
)

func (p Policy) String() string {
	switch p {
	case Reject:
		return "error"
	default:
		return "passthrough"
	}
}

// ParsePolicy accepts "passthrough" and "error" (plus "reject" as an alias).
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "passthrough":
		return Passthrough, nil
	case "error", "reject":
		return Reject, nil
	default:
		return Passthrough, fmt.Errorf("unknown unmapped-byte policy %q", s)
	}
}

// ErrUnmappedByte is matched by every *UnmappedByteError.
var ErrUnmappedByte = errors.New("unmapped Latin-1 byte")

// UnmappedByteError reports the first unmapped stray byte under Reject.
type UnmappedByteError struct {
	Offset int
	Byte   byte
}

func (e *UnmappedByteError) Error() string {
	return fmt.Sprintf("unmapped Latin-1 byte 0x%02X at offset %d", e.Byte, e.Offset)
}

func (e *UnmappedByteError) Is(target error) bool { return target == ErrUnmappedByte }

// Result is the output of one promoter pass.
type Result struct {
	Data     []byte
	Changed  int // stray bytes rewritten through the table
	Unmapped int // stray bytes kept verbatim
}

// Stats describes stray bytes without rewriting anything.
type Stats struct {
	Mappable int
	Unmapped int
	First    int // offset of the first stray byte, -1 when there is none
}

// Clean reports whether a promoter pass would leave data untouched.
func (s Stats) Clean() bool { return s.Mappable == 0 && s.Unmapped == 0 }

// Promoter rewrites stray Latin-1 bytes as UTF-8, leaving valid sequences alone.
type Promoter struct {
	table  Table
	policy Policy
}

// Option configures a Promoter.
type Option func(*Promoter)

// WithTable replaces the default Observed table.
func WithTable(t Table) Option {
	return func(p *Promoter) {
		if t != nil {
			p.table = t
		}
	}
}

// WithPolicy sets the unmapped-byte policy (Passthrough by default).
func WithPolicy(pol Policy) Option {
	return func(p *Promoter) { p.policy = pol }
}

// New returns a promoter using the Observed table and Passthrough unless overridden.
func New(opts ...Option) *Promoter {
	p := &Promoter{table: Observed(), policy: Passthrough}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Promoter) Table() Table   { return p.table }
func (p *Promoter) Policy() Policy { return p.policy }

var defaultPromoter = New()

// Promote runs the default promoter and returns the new buffer and the number
// of reinterpreted bytes. Unknown bytes pass through, so it never fails.
func Promote(data []byte) ([]byte, int) {
	res, _ := defaultPromoter.Promote(data)
	return res.Data, res.Changed
}

// Promote scans data once, left to right. Valid UTF-8 sequences are copied as
// they are; any other high byte is looked up in the table. The input is not modified.
func (p *Promoter) Promote(data []byte) (Result, error) {
	out := make([]byte, 0, len(data)+len(data)/8)
	var res Result

	for i := 0; i < len(data); {
		if n := seqLen(data, i); n > 0 {
			out = append(out, data[i:i+n]...)
			i += n
			continue
		}

		b := data[i]
		if repl, ok := p.table.Lookup(b); ok {
			out = append(out, repl...)
			res.Changed++
		} else {
			if p.policy == Reject {
				return Result{}, &UnmappedByteError{Offset: i, Byte: b}
			}
			out = append(out, b)
			res.Unmapped++
		}
		i++
	}

	res.Data = out
	return res, nil
}

// Inspect counts the stray bytes a Promote call would see.
func (p *Promoter) Inspect(data []byte) Stats {
	st := Stats{First: -1}
	for i := 0; i < len(data); {
		if n := seqLen(data, i); n > 0 {
			i += n
			continue
		}
		if st.First < 0 {
			st.First = i
		}
		if _, ok := p.table.Lookup(data[i]); ok {
			st.Mappable++
		} else {
			st.Unmapped++
		}
		i++
	}
	return st
}

// seqLen returns the length of the UTF-8 sequence starting at data[i], or 0
// when the byte there does not start one. Only lead and continuation byte
// ranges are checked; the window never looks more than 3 bytes ahead.
func seqLen(data []byte, i int) int {
	b := data[i]
	switch {
	case b < 0x80:
		return 1
	case b >= 0xC2 && b <= 0xDF:
		if conts(data, i+1, 1) {
			return 2
		}
	case b >= 0xE0 && b <= 0xEF:
		if conts(data, i+1, 2) {
			return 3
		}
	case b >= 0xF0 && b <= 0xF7:
		if conts(data, i+1, 3) {
			return 4
		}
	}
	return 0
}

func conts(data []byte, from, n int) bool {
	if from+n > len(data) {
		return false
	}
	for _, c := range data[from : from+n] {
		if c < 0x80 || c > 0xBF {
			return false
		}
	}
	return true
}
