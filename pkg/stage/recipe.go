package stage

import (
	"context"
	"errors"
)

// RunWithFix executes a stage according to the given recipe.
func RunWithFix(ctx context.Context, a Artifact, opts RunOptions, r Recipe) Outcome {
	failAs := nzStatus(r.FailAs, Fail)

	if r.Name == "" {
		return OutcomeError("stage.RunWithFix", "recipe has empty Name", a)
	}
	if r.Validate == nil {
		return OutcomeError(r.Name, "recipe.Validate is nil", a)
	}
	if err := ctx.Err(); err != nil {
		return OutcomeError(r.Name, err.Error(), a)
	}

	res := r.Validate(ctx, a)
	if res.Err != nil {
		out := OutcomeError(r.Name, nz(res.Msg, "validation error: "+res.Err.Error()), a)
		out.Result.Err = res.Err
		return out
	}
	if res.OK {
		return OutcomePass(r.Name, nz(res.Msg, nz(r.PassMsg, "ok")), a)
	}

	if !ShouldAttemptFix(opts, failAs) || r.Fix == nil {
		return OutcomeKeep(failAs, r.Name, nz(res.Msg, "validation failed"), a, "")
	}

	if err := ctx.Err(); err != nil {
		return OutcomeKeep(failAs, r.Name, "cancelled before auto-fix: "+err.Error(), a, "")
	}

	fr, err := recoverWrap(r.Fix)(ctx, a)
	if err != nil {
		if errors.Is(err, ErrNoFix) {
			return OutcomeKeep(failAs, r.Name, nz(res.Msg, "validation failed (no auto-fix)"), a, fr.Note)
		}
		out := OutcomeError(r.Name, "failed to auto-fix: "+err.Error(), a)
		out.Result.Err = err
		return out
	}

	outData, changed := PropagateAfterFix(a, fr)
	final := FixResult{Data: outData, DidChange: changed, Changes: fr.Changes, Tally: fr.Tally, Note: fr.Note}
	fixedAs := nzStatus(r.StatusAfterFixed, Fixed)

	if opts.RerunAfterFix {
		if err := ctx.Err(); err != nil {
			return OutcomeWithFinal(Warn, r.Name, nz(r.AppliedMsg, "auto-fix applied (cancelled before revalidate)"), final)
		}
		after := r.Validate(ctx, Artifact{Data: outData, Path: a.Path})
		if after.Err != nil {
			out := OutcomeWithFinal(Error, r.Name, nz(after.Msg, "revalidation error: "+after.Err.Error()), final)
			out.Result.Err = after.Err
			return out
		}
		if after.OK {
			return OutcomeWithFinal(fixedAs, r.Name, nz(r.FixedMsg, "fixed"), final)
		}
		return OutcomeWithFinal(
			failAs,
			r.Name,
			nzPref(nz(r.StillBadMsg, "auto-fix attempted but still invalid"), after.Msg, ": "),
			final,
		)
	}

	if !changed {
		return OutcomeWithFinal(Warn, r.Name, "auto-fix attempted (no changes)", final)
	}
	return OutcomeWithFinal(fixedAs, r.Name, nz(r.AppliedMsg, "auto-fix applied"), final)
}

func nz(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func nzPref(prefix, rest, sep string) string {
	if rest == "" {
		return prefix
	}
	return prefix + sep + rest
}

func nzStatus(s, fallback Status) Status {
	if s != "" {
		return s
	}
	return fallback
}
