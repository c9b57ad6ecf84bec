package diag

import (
	"context"
	"errors"
	"io/fs"

	"github.com/bodrovis/mojibake-repair-core/internal/config"
	"github.com/bodrovis/mojibake-repair-core/pkg/latin1"
	"github.com/bodrovis/mojibake-repair-core/pkg/runner"
	"github.com/bodrovis/mojibake-repair-core/pkg/stage"
	"github.com/bodrovis/mojibake-repair-core/pkg/subst"
	"github.com/bodrovis/mojibake-repair-core/pkg/tables"
	"github.com/bodrovis/mojibake-repair-core/pkg/targets"
)

// Code is a coarse error class for logs and exit codes.
type Code string

const (
	CodeOK       Code = "ok"
	CodeUnknown  Code = "unknown"
	CodeCorrupt  Code = "corrupt"
	CodeConfig   Code = "config"
	CodeIO       Code = "io"
	CodeUnmapped Code = "unmapped"
	CodeCancel   Code = "cancel"
)

// Exit codes of the mojifix command.
const (
	ExitOK       = 0
	ExitCorrupt  = 1 // corruption found in check mode, or left after repair
	ExitUsage    = 2
	ExitConfig   = 3
	ExitIO       = 4
	ExitUnmapped = 5
	ExitInternal = 10
	ExitCanceled = 130
)

// Classify maps err to a Code using sentinel errors and error types only.
func Classify(err error) Code {
	if err == nil {
		return CodeOK
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, latin1.ErrUnmappedByte):
		return CodeUnmapped
	case errors.Is(err, runner.ErrCorruptionLeft):
		return CodeCorrupt
	case errors.Is(err, config.ErrInvalid),
		errors.Is(err, tables.ErrInvalidTable),
		errors.Is(err, tables.ErrUnknownTable),
		errors.Is(err, stage.ErrUnknownStage),
		errors.Is(err, subst.ErrEmptyPattern),
		errors.Is(err, subst.ErrDuplicatePattern),
		errors.Is(err, targets.ErrNoTargets):
		return CodeConfig
	}
	var perr *fs.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// ExitCode maps a Code to the process exit status.
func ExitCode(c Code) int {
	switch c {
	case CodeOK:
		return ExitOK
	case CodeCorrupt:
		return ExitCorrupt
	case CodeConfig:
		return ExitConfig
	case CodeIO:
		return ExitIO
	case CodeUnmapped:
		return ExitUnmapped
	case CodeCancel:
		return ExitCanceled
	default:
		return ExitInternal
	}
}
