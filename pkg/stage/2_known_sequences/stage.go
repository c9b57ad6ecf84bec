package known_sequences

import (
	"context"
	"fmt"
	"strings"

	"github.com/bodrovis/mojibake-repair-core/pkg/stage"
	"github.com/bodrovis/mojibake-repair-core/pkg/subst"
)

const (
	stageName = "known-sequences"
	priority  = 20
)

func init() {
	if _, err := stage.Register(stageName, New); err != nil {
		panic(stageName + " register: " + err.Error())
	}
}

// New builds the stage that replaces known corrupted byte sequences.
func New(s stage.Settings) (stage.Stage, error) {
	if err := subst.Validate(s.Rules); err != nil {
		return nil, err
	}
	u := unit{rules: s.Rules, mode: s.Mode}
	return stage.NewAdapter(stageName, u.run, stage.WithPriority(priority), stage.WithRecover())
}

type unit struct {
	rules []subst.Rule
	mode  subst.Mode
}

func (u unit) run(ctx context.Context, a stage.Artifact, opts stage.RunOptions) stage.Outcome {
	// After a fix, only matches outside replacement output count: in protected
	// mode those bytes are final even when a later pattern occurs in them.
	var left *subst.Report
	validate := func(ctx context.Context, a stage.Artifact) stage.ValidationResult {
		if left != nil {
			return verdict(*left)
		}
		return u.validate(ctx, a)
	}
	fix := func(ctx context.Context, a stage.Artifact) (stage.FixResult, error) {
		fr, rep, err := u.fix(ctx, a)
		if err == nil {
			rem := rep.Remaining()
			left = &rem
		}
		return fr, err
	}

	return stage.RunWithFix(ctx, a, opts, stage.Recipe{
		Name:        stageName,
		Validate:    validate,
		Fix:         fix,
		PassMsg:     "no known corrupted sequences",
		FixedMsg:    "known corrupted sequences replaced",
		StillBadMsg: "known sequences remain",
	})
}

func (u unit) validate(_ context.Context, a stage.Artifact) stage.ValidationResult {
	if len(u.rules) == 0 {
		return stage.ValidationResult{OK: true, Msg: "no rules configured"}
	}
	return verdict(subst.CountMatches(a.Data, u.rules, subst.WithMode(u.mode)))
}

func verdict(rep subst.Report) stage.ValidationResult {
	if rep.Total == 0 {
		return stage.ValidationResult{OK: true}
	}
	return stage.ValidationResult{Msg: fmt.Sprintf("%d known corrupted sequence(s): %s", rep.Total, summarize(rep))}
}

func (u unit) fix(ctx context.Context, a stage.Artifact) (stage.FixResult, subst.Report, error) {
	if err := ctx.Err(); err != nil {
		return stage.FixResult{}, subst.Report{}, err
	}
	out, rep := subst.Apply(a.Data, u.rules, subst.WithMode(u.mode))

	changed := rep.Changed()
	tally := make([]stage.Tally, 0, len(changed))
	for _, c := range changed {
		tally = append(tally, stage.Tally{Label: c.Rule, Count: c.N})
	}
	return stage.FixResult{
		Data:      out,
		DidChange: rep.Total > 0,
		Changes:   rep.Total,
		Tally:     tally,
	}, rep, nil
}

// summarize lists at most a few matching rules for the validation message.
func summarize(rep subst.Report) string {
	const limit = 3
	changed := rep.Changed()
	parts := make([]string, 0, limit+1)
	for i, c := range changed {
		if i == limit {
			parts = append(parts, fmt.Sprintf("+%d more", len(changed)-limit))
			break
		}
		parts = append(parts, fmt.Sprintf("%s×%d", c.Rule, c.N))
	}
	return strings.Join(parts, ", ")
}
