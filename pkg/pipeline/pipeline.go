// Package pipeline threads one file's bytes through an ordered list of stages.
package pipeline

import (
	"context"
	"fmt"

	"github.com/bodrovis/mojibake-repair-core/pkg/stage"
)

// Summary is the per-file report.
type Summary struct {
	Path  string
	Pass  int
	Fixed int
	Warn  int
	Fail  int
	Error int

	// Per-stage outcomes in execution order.
	Outcomes []stage.Outcome

	// Set when a stage returned ERROR; later stages did not run.
	Aborted    bool
	AbortStage string

	Changed   bool
	Changes   int // sum of FixResult.Changes
	FinalData []byte
}

// Process runs stages in the given order. Each stage sees the previous
// stage's Final data. A stage ERROR stops the pipeline and is returned as an
// error; FinalData then still holds the last good state, but callers must not
// write it back.
func Process(ctx context.Context, stages []stage.Stage, a stage.Artifact, opts stage.RunOptions) (Summary, error) {
	s := Summary{Path: a.Path, FinalData: a.Data}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			s.Aborted = true
			s.AbortStage = "context canceled"
			return s, err
		}

		out := st.Run(ctx, a, opts)
		count(&s, out)
		s.Outcomes = append(s.Outcomes, out)
		a = propagate(a, out, &s)

		if out.Result.Status == stage.Error {
			s.Aborted = true
			s.AbortStage = st.Name()
			return s, &StageError{Path: a.Path, Stage: st.Name(), Msg: out.Result.Message, Err: out.Result.Err}
		}
	}
	return s, nil
}

// StageError reports a stage that ended in ERROR.
type StageError struct {
	Path  string
	Stage string
	Msg   string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: stage %s: %s", e.Path, e.Stage, e.Msg)
}

func (e *StageError) Unwrap() error { return e.Err }

func count(s *Summary, out stage.Outcome) {
	switch out.Result.Status {
	case stage.Pass:
		s.Pass++
	case stage.Fixed:
		s.Fixed++
	case stage.Warn:
		s.Warn++
	case stage.Fail:
		s.Fail++
	case stage.Error:
		s.Error++
	}
}

// propagate applies a stage's Final to the running artifact and summary.
// A nil Final.Data keeps the current bytes.
func propagate(cur stage.Artifact, out stage.Outcome, s *Summary) stage.Artifact {
	final := out.Final
	if final.DidChange {
		s.Changed = true
		s.Changes += final.Changes
	}
	if final.Data != nil {
		cur.Data = final.Data
	}
	s.FinalData = cur.Data
	return cur
}

// Corrupt reports whether any stage still considers the data bad.
func (s Summary) Corrupt() bool { return s.Fail > 0 || s.Error > 0 }
