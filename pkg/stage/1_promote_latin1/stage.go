package promote_latin1

import (
	"context"
	"fmt"

	"github.com/bodrovis/mojibake-repair-core/pkg/latin1"
	"github.com/bodrovis/mojibake-repair-core/pkg/stage"
)

const (
	stageName = "promote-latin1"
	priority  = 10
)

func init() {
	if _, err := stage.Register(stageName, New); err != nil {
		panic(stageName + " register: " + err.Error())
	}
}

// New builds the stage that rewrites stray Latin-1 bytes as UTF-8.
func New(s stage.Settings) (stage.Stage, error) {
	p := s.Promoter
	if p == nil {
		p = latin1.New()
	}
	u := unit{p: p}
	return stage.NewAdapter(stageName, u.run, stage.WithPriority(priority), stage.WithRecover())
}

type unit struct {
	p *latin1.Promoter
}

func (u unit) run(ctx context.Context, a stage.Artifact, opts stage.RunOptions) stage.Outcome {
	return stage.RunWithFix(ctx, a, opts, stage.Recipe{
		Name:        stageName,
		Validate:    u.validate,
		Fix:         u.fix,
		PassMsg:     "no stray Latin-1 bytes",
		FixedMsg:    "stray Latin-1 bytes promoted to UTF-8",
		StillBadMsg: "stray bytes remain after promotion",
	})
}

// validate fails when there is something the promoter would rewrite, or
// something it would refuse under the Reject policy.
func (u unit) validate(_ context.Context, a stage.Artifact) stage.ValidationResult {
	st := u.p.Inspect(a.Data)
	switch {
	case st.Mappable > 0:
		return stage.ValidationResult{Msg: fmt.Sprintf(
			"%d stray Latin-1 byte(s), first at offset %d", st.Mappable+st.Unmapped, st.First)}
	case st.Unmapped > 0 && u.p.Policy() == latin1.Reject:
		return stage.ValidationResult{Msg: fmt.Sprintf(
			"%d unmapped stray byte(s), first at offset %d", st.Unmapped, st.First)}
	case st.Unmapped > 0:
		return stage.ValidationResult{OK: true, Msg: fmt.Sprintf(
			"%d unmapped stray byte(s) left as is", st.Unmapped)}
	}
	return stage.ValidationResult{OK: true}
}

func (u unit) fix(ctx context.Context, a stage.Artifact) (stage.FixResult, error) {
	if err := ctx.Err(); err != nil {
		return stage.FixResult{}, err
	}
	res, err := u.p.Promote(a.Data)
	if err != nil {
		return stage.FixResult{}, err
	}
	fr := stage.FixResult{
		Data:      res.Data,
		DidChange: res.Changed > 0,
		Changes:   res.Changed,
		Tally:     []stage.Tally{{Label: "latin1", Count: res.Changed}},
	}
	if res.Unmapped > 0 {
		fr.Note = fmt.Sprintf("%d unmapped byte(s) kept", res.Unmapped)
	}
	return fr, nil
}
