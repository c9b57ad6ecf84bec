// Package stagetest has shared helpers for stage unit tests.
package stagetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/bodrovis/mojibake-repair-core/pkg/stage"
)

// Build builds the single registered stage name with s, failing t on error.
func Build(t testing.TB, name string, s stage.Settings) stage.Stage {
	t.Helper()
	st, err := stage.Build([]string{name}, s)
	if err != nil {
		t.Fatalf("build %s: %v", name, err)
	}
	if len(st) != 1 {
		t.Fatalf("build %s: got %d stages", name, len(st))
	}
	return st[0]
}

// Run runs s over data with a background context.
func Run(s stage.Stage, data []byte, opts stage.RunOptions) stage.Outcome {
	return s.Run(context.Background(), stage.Artifact{Data: data, Path: "test.ts"}, opts)
}

// Fix is the option set the CLI uses in repair mode.
var Fix = stage.RunOptions{FixMode: stage.FixIfFailed, RerunAfterFix: true}

func Passf(name, format string, args ...any) stage.Result {
	return stage.Result{Name: name, Status: stage.Pass, Message: sprintf(format, args...)}
}

func Fixedf(name, format string, args ...any) stage.Result {
	return stage.Result{Name: name, Status: stage.Fixed, Message: sprintf(format, args...)}
}

func Warnf(name, format string, args ...any) stage.Result {
	return stage.Result{Name: name, Status: stage.Warn, Message: sprintf(format, args...)}
}

func Failf(name, format string, args ...any) stage.Result {
	return stage.Result{Name: name, Status: stage.Fail, Message: sprintf(format, args...)}
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
