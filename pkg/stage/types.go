// Package stage runs repair stages over a file's bytes. Every stage follows
// the same recipe: validate, maybe fix, maybe validate again.
package stage

import "context"

type Status string

const (
	Pass  Status = "PASS"
	Fixed Status = "FIXED"
	Warn  Status = "WARN"
	Fail  Status = "FAIL"
	Error Status = "ERROR"
)

type FixMode int

const (
	FixNone      FixMode = iota // never attempt fixes
	FixIfFailed                 // attempt fixes only on FAIL/ERROR
	FixIfNotPass                // attempt fixes on WARN/FAIL/ERROR
	FixAlways                   // attempt fixes for all stages that support it
)

type RunOptions struct {
	FixMode       FixMode // runner-level policy
	RerunAfterFix bool    // if true, validate again after a successful fix
}

// Result is the outcome of a single validation run.
type Result struct {
	Name    string
	Status  Status
	Message string
	Err     error // underlying cause of an ERROR, when there is one
}

// Tally is a per-label counter reported by a fix, e.g. one entry per rule.
type Tally struct {
	Label string
	Count int
}

// FixResult is the result of an automatic fix attempt.
type FixResult struct {
	Data      []byte  // new data after fix (may be identical to input)
	DidChange bool    // true if data was modified
	Changes   int     // number of individual repairs made
	Tally     []Tally // optional breakdown of Changes
	Note      string  // optional description of what was fixed
}

// Outcome combines validation with the state to hand to the next stage.
type Outcome struct {
	Result Result
	Final  FixResult
}

type ValidationResult struct {
	OK  bool
	Msg string
	Err error
}

type Artifact struct {
	Data []byte
	Path string
}

// Func is a single-stage runner.
type Func func(ctx context.Context, a Artifact, opts RunOptions) Outcome

type FixFunc func(ctx context.Context, a Artifact) (FixResult, error)

// ValidateFunc inspects the artifact and never modifies it.
type ValidateFunc func(ctx context.Context, a Artifact) ValidationResult

type Adapter struct {
	name     string
	priority int
	run      Func
}

// Option configures an Adapter.
type Option func(*Adapter)

type Stage interface {
	Name() string

	// Run validates and, depending on opts, may fix. It must always return
	// the data to propagate, even when unchanged.
	Run(ctx context.Context, a Artifact, opts RunOptions) Outcome

	// Priority determines execution order: lower values run earlier.
	Priority() int
}

// ErrNoFix is returned when a fixer is absent or intentionally disabled.
var ErrNoFix = &noFixError{}

type noFixError struct{}

func (e *noFixError) Error() string { return "no fix implemented for this stage" }

// Recipe is the standard "validate → maybe fix → maybe revalidate" pattern.
type Recipe struct {
	Name     string
	Validate ValidateFunc // required
	Fix      FixFunc      // optional

	PassMsg     string // message when validation passes
	FixedMsg    string // message when fix succeeded and re-validated
	AppliedMsg  string // message when fix applied without re-validation
	StillBadMsg string // prefix when fix applied but still invalid

	// Status when validation fails (FAIL if not set).
	FailAs Status

	// Status after a fix that changed data (FIXED if not set).
	StatusAfterFixed Status
}
