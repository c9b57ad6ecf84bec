package stage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
)

// NewAdapter builds an Adapter from a name and a run function.
func NewAdapter(name string, run Func, opts ...Option) (*Adapter, error) {
	if name == "" {
		return nil, fmt.Errorf("stage.NewAdapter: empty name")
	}
	if run == nil {
		return nil, fmt.Errorf("stage.NewAdapter: nil run func")
	}

	ad := &Adapter{
		name: name,
		// always ensure Result.Name is populated
		run: func(ctx context.Context, a Artifact, ro RunOptions) Outcome {
			if err := ctx.Err(); err != nil {
				return OutcomeError(name, err.Error(), a)
			}
			out := run(ctx, a, ro)
			if out.Result.Name == "" {
				out.Result.Name = name
			}
			return out
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ad)
		}
	}
	return ad, nil
}

var _ Stage = (*Adapter)(nil)

func (s *Adapter) Name() string  { return s.name }
func (s *Adapter) Priority() int { return s.priority }

func (s *Adapter) Run(ctx context.Context, a Artifact, opts RunOptions) Outcome {
	return s.run(ctx, a, opts)
}

// WithPriority sets execution order (lower values run earlier).
func WithPriority(p int) Option {
	return func(s *Adapter) { s.priority = p }
}

// WithRecover turns a panic in Run into an ERROR outcome carrying the
// panic location and stack. The input data is propagated unchanged.
func WithRecover() Option {
	return func(s *Adapter) {
		origRun := s.run
		s.run = func(ctx context.Context, a Artifact, ro RunOptions) (out Outcome) {
			defer func() {
				if r := recover(); r != nil {
					out = OutcomeError(s.name, "panic in stage run: "+describePanic(r, 2), a)
				}
			}()
			return origRun(ctx, a, ro)
		}
	}
}

// ShouldAttemptFix returns true if the runner policy allows fixing for st.
func ShouldAttemptFix(opts RunOptions, st Status) bool {
	switch opts.FixMode {
	case FixAlways:
		return true
	case FixIfNotPass:
		return st != Pass
	case FixIfFailed:
		return st == Fail || st == Error
	default:
		return false
	}
}

// PropagateAfterFix merges a FixResult into the input artifact.
func PropagateAfterFix(in Artifact, fr FixResult) (outData []byte, didChange bool) {
	outData = in.Data
	if fr.Data != nil && !bytes.Equal(fr.Data, in.Data) {
		outData = fr.Data
		didChange = true
	}
	if fr.DidChange {
		didChange = true
	}
	return
}

func OutcomePass(name, msg string, a Artifact) Outcome {
	return OutcomeKeep(Pass, name, msg, a, "")
}

func OutcomeFail(name, msg string, a Artifact) Outcome {
	return OutcomeKeep(Fail, name, msg, a, "")
}

func OutcomeError(name, msg string, a Artifact) Outcome {
	return OutcomeKeep(Error, name, msg, a, "")
}

func OutcomeWithFinal(st Status, name, msg string, final FixResult) Outcome {
	return Outcome{
		Result: Result{Name: name, Status: st, Message: msg},
		Final:  final,
	}
}

func OutcomeKeep(st Status, name, msg string, a Artifact, note string) Outcome {
	return Outcome{
		Result: Result{Name: name, Status: st, Message: msg},
		Final:  FixResult{Data: a.Data, Note: note},
	}
}

func recoverWrap(next FixFunc) FixFunc {
	if next == nil {
		return nil
	}
	return func(ctx context.Context, a Artifact) (fr FixResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in stage fix: %s", describePanic(r, 2))
			}
		}()
		return next(ctx, a)
	}
}

// describePanic renders the recovered value with the first non-runtime frame
// and the full stack.
func describePanic(r any, skip int) string {
	e := goerrors.Wrap(r, skip)
	var b strings.Builder
	b.WriteString(e.Error())
	for _, f := range e.StackFrames() {
		if f.Package != "runtime" && f.File != "" {
			fmt.Fprintf(&b, " (%s:%d)", f.File, f.LineNumber)
			break
		}
	}
	b.WriteString("\n")
	b.Write(e.Stack())
	return b.String()
}
