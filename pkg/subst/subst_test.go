package subst

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creacionTriple = []byte("CREACI\xc3\x83\xc2\xa2\xe2\x82\xac\xc5\x93N")

func TestApply_Exactness(t *testing.T) {
	rules := []Rule{{Name: "creacion", Pattern: creacionTriple, Replacement: []byte("CREACION")}}

	var in []byte
	in = append(in, "// "...)
	in = append(in, creacionTriple...)
	in = append(in, " y luego "...)
	in = append(in, creacionTriple...)
	in = append(in, '\n')

	out, rep := Apply(in, rules)

	assert.Equal(t, 2, bytes.Count(out, []byte("CREACION")))
	assert.Zero(t, bytes.Count(out, creacionTriple))
	assert.Equal(t, 2, rep.Total)
	require.Len(t, rep.Counts, 1)
	assert.Equal(t, Count{Rule: "creacion", Index: 0, N: 2}, rep.Counts[0])
}

func TestApply_ListOrder(t *testing.T) {
	// "abc" is consumed by the first rule, so the second never sees "bc".
	rules := []Rule{
		{Pattern: []byte("abc"), Replacement: []byte("X")},
		{Pattern: []byte("bc"), Replacement: []byte("Y")},
	}
	out, rep := Apply([]byte("abc bc"), rules)
	assert.Equal(t, "X Y", string(out))
	assert.Equal(t, 1, rep.Counts[0].N)
	assert.Equal(t, 1, rep.Counts[1].N)

	// Reversed order gives a different answer; the contract is list order.
	out, _ = Apply([]byte("abc bc"), []Rule{rules[1], rules[0]})
	assert.Equal(t, "aY Y", string(out))
}

func TestApply_LaterRuleDoesNotRetriggerOnReplacement(t *testing.T) {
	// pattern 2 ("b") is a substring of replacement 1 ("xbx")
	rules := []Rule{
		{Pattern: []byte("a"), Replacement: []byte("xbx")},
		{Pattern: []byte("b"), Replacement: []byte("B")},
	}
	out, rep := Apply([]byte("a b"), rules)
	assert.Equal(t, "xbx B", string(out))
	assert.Equal(t, 1, rep.Counts[0].N)
	assert.Equal(t, 1, rep.Counts[1].N, "only the original b may be replaced")
	assert.Equal(t, 2, rep.Total)
}

func TestApply_ChainedRescansReplacements(t *testing.T) {
	rules := []Rule{
		{Pattern: []byte("a"), Replacement: []byte("xbx")},
		{Pattern: []byte("b"), Replacement: []byte("B")},
	}
	out, rep := Apply([]byte("a b"), rules, WithMode(Chained))
	assert.Equal(t, "xBx B", string(out))
	assert.Equal(t, 2, rep.Counts[1].N)
}

func TestApply_SelfContainingReplacementSinglePass(t *testing.T) {
	// the euro rule from the scripts: replacement contains the pattern
	for _, mode := range []Mode{Protected, Chained} {
		out, rep := Apply([]byte("a-a"), []Rule{{Pattern: []byte("a"), Replacement: []byte("aa")}}, WithMode(mode))
		assert.Equal(t, "aa-aa", string(out), "mode %s", mode)
		assert.Equal(t, 2, rep.Total, "mode %s", mode)
	}
}

func TestApply_LeftIgnoresFrozenBytes(t *testing.T) {
	rules := []Rule{
		{Name: "one", Pattern: []byte("ab"), Replacement: []byte("xy")},
		{Name: "two", Pattern: []byte("x"), Replacement: []byte("z")},
	}
	out, rep := Apply([]byte("ab"), rules)
	assert.Equal(t, "xy", string(out))
	assert.Empty(t, rep.Left)
	assert.Zero(t, rep.Remaining().Total)

	// a fresh scan of the output does see "x"
	assert.Equal(t, 1, CountMatches(out, rules).Total)

	_, rep = Apply([]byte("a-a"), []Rule{{Pattern: []byte("a"), Replacement: []byte("aa")}})
	assert.Empty(t, rep.Left)
}

func TestApply_LeftCountsLiveMatches(t *testing.T) {
	// deleting "b" makes "ac" adjacent after the "ac" rule already ran
	rules := []Rule{
		{Name: "ac", Pattern: []byte("ac"), Replacement: []byte("X")},
		{Name: "drop-b", Pattern: []byte("b"), Replacement: nil},
	}
	out, rep := Apply([]byte("abc"), rules)
	assert.Equal(t, "ac", string(out))
	assert.Equal(t, []Count{{Rule: "ac", Index: 0, N: 1}}, rep.Left)
	assert.Equal(t, 1, rep.Remaining().Total)

	// chained output is rescanned as a whole
	_, rep = Apply([]byte("a-a"), []Rule{{Pattern: []byte("a"), Replacement: []byte("aa")}}, WithMode(Chained))
	assert.Equal(t, []Count{{Rule: "#1", Index: 0, N: 4}}, rep.Left)
}

func TestApply_NonOverlapping(t *testing.T) {
	out, rep := Apply([]byte("aaaa a"), []Rule{{Pattern: []byte("aa"), Replacement: []byte("b")}})
	assert.Equal(t, "bb a", string(out))
	assert.Equal(t, 2, rep.Total)
}

func TestApply_NoopRule(t *testing.T) {
	in := []byte("m\xc3\xa1s qu\xc3\xa9")
	rules := []Rule{
		{Name: "mas", Pattern: []byte("m\xc3\xa1s"), Replacement: []byte("m\xc3\xa1s")},
		{Name: "empty", Pattern: nil, Replacement: []byte("zzz")},
	}
	out, rep := Apply(in, rules)
	assert.Equal(t, in, out)
	assert.Zero(t, rep.Total)
	assert.Empty(t, rep.Changed())
}

func TestApply_DeletionJoinsNeighbours(t *testing.T) {
	// dropping U+FFFD lets the next rule see "ab" as adjacent text
	rules := []Rule{
		{Pattern: []byte("\xef\xbf\xbd"), Replacement: nil},
		{Pattern: []byte("ab"), Replacement: []byte("AB")},
	}
	out, rep := Apply([]byte("a\xef\xbf\xbdb"), rules)
	assert.Equal(t, "AB", string(out))
	assert.Equal(t, 2, rep.Total)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := []byte("abc abc")
	orig := append([]byte(nil), in...)
	for _, mode := range []Mode{Protected, Chained} {
		_, _ = Apply(in, []Rule{{Pattern: []byte("b"), Replacement: []byte("BBB")}}, WithMode(mode))
		assert.Equal(t, orig, in)
	}
}

func TestApply_UnnamedRulesGetPositionLabels(t *testing.T) {
	_, rep := Apply([]byte("x"), []Rule{{Pattern: []byte("y")}, {Pattern: []byte("x"), Replacement: []byte("z")}})
	assert.Equal(t, "#1", rep.Counts[0].Rule)
	assert.Equal(t, "#2", rep.Counts[1].Rule)
	assert.Equal(t, []Count{{Rule: "#2", Index: 1, N: 1}}, rep.Changed())
}

func TestCountMatchesAndMatches(t *testing.T) {
	rules := []Rule{{Pattern: []byte("x"), Replacement: []byte("y")}}
	rep := CountMatches([]byte("xox"), rules)
	assert.Equal(t, 2, rep.Total)
	assert.True(t, Matches([]byte("xox"), rules))
	assert.False(t, Matches([]byte("ooo"), rules))
	assert.False(t, Matches([]byte("same"), []Rule{{Pattern: []byte("same"), Replacement: []byte("same")}}))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate([]Rule{{Pattern: []byte("a")}, {Pattern: []byte("b")}}))

	err := Validate([]Rule{
		{Name: "one", Pattern: []byte("a")},
		{Name: "two", Pattern: nil},
		{Name: "three", Pattern: []byte("a")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyPattern))
	assert.True(t, errors.Is(err, ErrDuplicatePattern))
	assert.Contains(t, err.Error(), "three")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("chained")
	require.NoError(t, err)
	assert.Equal(t, Chained, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Protected, m)

	_, err = ParseMode("loop")
	assert.Error(t, err)
}
