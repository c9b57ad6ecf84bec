package stage_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/bodrovis/mojibake-repair-core/pkg/stage"
)

func mkStage(t *testing.T, name string, st stage.Status, opts ...stage.Option) stage.Stage {
	t.Helper()
	s, err := stage.NewAdapter(
		name,
		func(_ context.Context, a stage.Artifact, _ stage.RunOptions) stage.Outcome {
			return stage.OutcomeKeep(st, "", "msg", a, "")
		},
		opts...,
	)
	if err != nil {
		t.Fatalf("mkStage: %v", err)
	}
	return s
}

func factory(s stage.Stage) stage.Factory {
	return func(stage.Settings) (stage.Stage, error) { return s, nil }
}

func names(xs []stage.Stage) []string {
	out := make([]string, len(xs))
	for i, s := range xs {
		out[i] = s.Name()
	}
	return out
}

func TestNewAdapter_Validation(t *testing.T) {
	if _, err := stage.NewAdapter("", func(context.Context, stage.Artifact, stage.RunOptions) stage.Outcome { return stage.Outcome{} }); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, err := stage.NewAdapter("x", nil); err == nil {
		t.Fatalf("expected error for nil run")
	}
}

func TestAdapter_FillsNameAndHonorsCancel(t *testing.T) {
	s := mkStage(t, "named", stage.Pass)
	out := s.Run(context.Background(), stage.Artifact{Data: []byte("a")}, stage.RunOptions{})
	if out.Result.Name != "named" {
		t.Fatalf("Name = %q, want %q", out.Result.Name, "named")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out = s.Run(ctx, stage.Artifact{Data: []byte("a")}, stage.RunOptions{})
	if out.Result.Status != stage.Error {
		t.Fatalf("Status = %s, want %s", out.Result.Status, stage.Error)
	}
	if string(out.Final.Data) != "a" {
		t.Fatalf("Final.Data = %q, want input propagated", out.Final.Data)
	}
}

func TestWithRecover_PanicBecomesError(t *testing.T) {
	s, err := stage.NewAdapter("boom", func(context.Context, stage.Artifact, stage.RunOptions) stage.Outcome {
		panic("kaboom")
	}, stage.WithRecover())
	if err != nil {
		t.Fatal(err)
	}
	out := s.Run(context.Background(), stage.Artifact{Data: []byte("keep")}, stage.RunOptions{})
	if out.Result.Status != stage.Error {
		t.Fatalf("Status = %s, want %s", out.Result.Status, stage.Error)
	}
	if !strings.Contains(out.Result.Message, "kaboom") {
		t.Fatalf("Message = %q, want panic value", out.Result.Message)
	}
	if string(out.Final.Data) != "keep" {
		t.Fatalf("Final.Data = %q, want input propagated", out.Final.Data)
	}
}

func TestBuild_OrderAndDedupe(t *testing.T) {
	stage.Reset()
	t.Cleanup(stage.Reset)

	for _, s := range []stage.Stage{
		mkStage(t, "late", stage.Pass, stage.WithPriority(30)),
		mkStage(t, "b-early", stage.Pass, stage.WithPriority(10)),
		mkStage(t, "a-early", stage.Pass, stage.WithPriority(10)),
	} {
		if _, err := stage.Register(s.Name(), factory(s)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := stage.Build(nil, stage.Settings{})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a-early", "b-early", "late"}; !reflect.DeepEqual(names(got), want) {
		t.Fatalf("Build(nil) = %v, want %v", names(got), want)
	}

	got, err = stage.Build([]string{"LATE", "late", "b-early"}, stage.Settings{})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"b-early", "late"}; !reflect.DeepEqual(names(got), want) {
		t.Fatalf("Build(subset) = %v, want %v", names(got), want)
	}

	if _, err := stage.Build([]string{"nope"}, stage.Settings{}); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected unknown stage error, got %v", err)
	}
}

func TestBuild_FactoryError(t *testing.T) {
	stage.Reset()
	t.Cleanup(stage.Reset)

	sentinel := errors.New("bad settings")
	_, _ = stage.Register("broken", func(stage.Settings) (stage.Stage, error) { return nil, sentinel })
	if _, err := stage.Build([]string{"broken"}, stage.Settings{}); !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want %v", err, sentinel)
	}
}

func TestRegister_ReplaceCaseInsensitive(t *testing.T) {
	stage.Reset()
	t.Cleanup(stage.Reset)

	s := mkStage(t, "dup", stage.Pass)
	if replaced, _ := stage.Register("Dup", factory(s)); replaced {
		t.Fatalf("first register reported replaced")
	}
	if replaced, _ := stage.Register(" dup ", factory(s)); !replaced {
		t.Fatalf("second register did not report replaced")
	}
	if _, err := stage.Register("", factory(s)); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, err := stage.Register("x", nil); err == nil {
		t.Fatalf("expected error for nil factory")
	}
}

func TestShouldAttemptFix(t *testing.T) {
	cases := []struct {
		mode stage.FixMode
		st   stage.Status
		want bool
	}{
		{stage.FixNone, stage.Fail, false},
		{stage.FixIfFailed, stage.Fail, true},
		{stage.FixIfFailed, stage.Warn, false},
		{stage.FixIfNotPass, stage.Warn, true},
		{stage.FixIfNotPass, stage.Pass, false},
		{stage.FixAlways, stage.Pass, true},
	}
	for _, c := range cases {
		if got := stage.ShouldAttemptFix(stage.RunOptions{FixMode: c.mode}, c.st); got != c.want {
			t.Fatalf("ShouldAttemptFix(%v, %s) = %v, want %v", c.mode, c.st, got, c.want)
		}
	}
}
