// Package runner drives the repair pipeline over a list of files: read the
// whole file, run the stages, write it back when something changed.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bodrovis/mojibake-repair-core/internal/fsx"
	"github.com/bodrovis/mojibake-repair-core/pkg/pipeline"
	"github.com/bodrovis/mojibake-repair-core/pkg/stage"
	log "github.com/sirupsen/logrus"
)

// ErrCorruptionLeft is reported when at least one file still fails a stage
// after the run (or, in check mode, when any corruption was found).
var ErrCorruptionLeft = errors.New("corruption left")

type Options struct {
	FixMode   stage.FixMode // stage.FixNone is check-only
	DryRun    bool          // repair in memory, never write
	KeepGoing bool          // continue with the next file after an error
}

type Runner struct {
	Stages  []stage.Stage
	Options Options
	Logger  *log.Entry

	// write is swapped in tests.
	write func(ctx context.Context, path string, data []byte, perm os.FileMode) error
}

func New(stages []stage.Stage, opts Options, logger *log.Entry) *Runner {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Runner{Stages: stages, Options: opts, Logger: logger, write: fsx.WriteFileAtomic}
}

type FileReport struct {
	Path    string
	Result  pipeline.Summary
	Written bool
	Err     error
}

type Summary struct {
	Files     []FileReport
	Changes   int // individual repairs across all files
	Changed   int // files whose data changed
	Rewritten int // files actually written back
	Corrupt   int // files some stage still reports as FAIL/ERROR
	Failed    int // files aborted by an error
}

// Err returns ErrCorruptionLeft when any file is still corrupt.
func (s Summary) Err() error {
	if s.Corrupt == 0 {
		return nil
	}
	return fmt.Errorf("%w in %d file(s)", ErrCorruptionLeft, s.Corrupt)
}

// Run processes paths sequentially, in order. Without KeepGoing the first
// error stops the run; with it, errors are joined and returned at the end.
// A file is never written when any of its stages ended in ERROR.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	var (
		sum  Summary
		errs []error
	)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		fr := r.file(ctx, p)
		sum.Files = append(sum.Files, fr)
		sum.Changes += fr.Result.Changes
		if fr.Result.Changed {
			sum.Changed++
		}
		if fr.Written {
			sum.Rewritten++
		}
		if fr.Result.Corrupt() {
			sum.Corrupt++
		}
		if fr.Err != nil {
			sum.Failed++
			if !r.Options.KeepGoing {
				r.logTotal(sum)
				return sum, fr.Err
			}
			errs = append(errs, fr.Err)
		}
	}

	r.logTotal(sum)
	return sum, errors.Join(errs...)
}

func (r *Runner) file(ctx context.Context, path string) FileReport {
	fr := FileReport{Path: path}
	l := r.Logger.WithField("file", path)

	info, err := os.Stat(path)
	if err != nil {
		fr.Err = err
		l.WithError(err).Error("cannot stat file")
		return fr
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fr.Err = err
		l.WithError(err).Error("cannot read file")
		return fr
	}

	opts := stage.RunOptions{FixMode: r.Options.FixMode, RerunAfterFix: true}
	res, err := pipeline.Process(ctx, r.Stages, stage.Artifact{Data: data, Path: path}, opts)
	fr.Result = res
	logOutcomes(l, res)
	if err != nil {
		fr.Err = err
		l.WithError(err).Error("file left untouched")
		return fr
	}

	if !res.Changed || r.Options.DryRun || r.Options.FixMode == stage.FixNone {
		if res.Changed {
			l.WithField("count", res.Changes).Info("dry run: not written")
		}
		return fr
	}
	if err := r.write(ctx, path, res.FinalData, info.Mode().Perm()); err != nil {
		fr.Err = err
		l.WithError(err).Error("cannot write file")
		return fr
	}
	fr.Written = true
	l.WithField("count", res.Changes).Info("file rewritten")
	return fr
}

func logOutcomes(l *log.Entry, res pipeline.Summary) {
	for _, o := range res.Outcomes {
		sl := l.WithFields(log.Fields{"stage": o.Result.Name, "status": string(o.Result.Status)})
		for _, t := range o.Final.Tally {
			if t.Count > 0 {
				sl.WithFields(log.Fields{"rule": t.Label, "count": t.Count}).Infof("replaced %d×", t.Count)
			}
		}
		switch o.Result.Status {
		case stage.Pass:
			sl.Debug(o.Result.Message)
		case stage.Fixed:
			sl.Info(o.Result.Message)
		case stage.Warn, stage.Fail:
			sl.Warn(o.Result.Message)
		case stage.Error:
			sl.Error(o.Result.Message)
		}
	}
}

func (r *Runner) logTotal(s Summary) {
	r.Logger.WithFields(log.Fields{
		"files":     len(s.Files),
		"changed":   s.Changed,
		"rewritten": s.Rewritten,
		"corrupt":   s.Corrupt,
		"failed":    s.Failed,
	}).Infof("total: %d change(s)", s.Changes)
}
