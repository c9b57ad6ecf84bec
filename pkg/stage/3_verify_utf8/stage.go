package verify_utf8

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/bodrovis/mojibake-repair-core/pkg/stage"
)

const (
	stageName = "verify-utf8"
	priority  = 30
)

func init() {
	if _, err := stage.Register(stageName, New); err != nil {
		panic(stageName + " register: " + err.Error())
	}
}

// New builds the read-only stage that reports leftover invalid UTF-8.
// It has no fix: nothing earlier in the pipeline could repair those bytes.
func New(s stage.Settings) (stage.Stage, error) {
	failAs := stage.Warn
	if s.StrictOutput {
		failAs = stage.Fail
	}
	run := func(ctx context.Context, a stage.Artifact, opts stage.RunOptions) stage.Outcome {
		return stage.RunWithFix(ctx, a, opts, stage.Recipe{
			Name:     stageName,
			Validate: validateUTF8,
			PassMsg:  "output is valid UTF-8",
			FailAs:   failAs,
		})
	}
	return stage.NewAdapter(stageName, run, stage.WithPriority(priority))
}

// validateUTF8 reports the first invalid position, if any.
func validateUTF8(ctx context.Context, a stage.Artifact) stage.ValidationResult {
	data := a.Data
	if utf8.Valid(data) {
		return stage.ValidationResult{OK: true}
	}

	const checkEvery = 1 << 16 // periodically check ctx for large blobs
	next := 0
	for i := 0; i < len(data); {
		if i >= next {
			if err := ctx.Err(); err != nil {
				return stage.ValidationResult{Msg: "validation cancelled", Err: err}
			}
			next = i + checkEvery
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return stage.ValidationResult{
				Msg: fmt.Sprintf("invalid UTF-8 at byte %d of %d (0x%02X)", i, len(data), data[i]),
			}
		}
		i += size
	}
	return stage.ValidationResult{Msg: "invalid UTF-8"}
}
