package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/bodrovis/mojibake-repair-core/internal/config"
	"github.com/bodrovis/mojibake-repair-core/pkg/latin1"
	"github.com/bodrovis/mojibake-repair-core/pkg/pipeline"
	"github.com/bodrovis/mojibake-repair-core/pkg/runner"
	"github.com/bodrovis/mojibake-repair-core/pkg/tables"
	"github.com/bodrovis/mojibake-repair-core/pkg/targets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger("debug", "json", &buf)
	require.NoError(t, err)
	l.WithField("file", "a.ts").Debug("hello")

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "hello", m["msg"])
	assert.Equal(t, "a.ts", m["file"])

	buf.Reset()
	l, err = NewLogger("", "", &buf)
	require.NoError(t, err)
	l.Debug("hidden")
	l.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = NewLogger("loud", "text", &buf)
	assert.Error(t, err)
	_, err = NewLogger("info", "xml", &buf)
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/here")
	unmapped := &pipeline.StageError{Stage: "promote-latin1", Err: &latin1.UnmappedByteError{Offset: 1, Byte: 0xFF}}

	cases := []struct {
		err  error
		want Code
		exit int
	}{
		{nil, CodeOK, ExitOK},
		{context.Canceled, CodeCancel, ExitCanceled},
		{fmt.Errorf("run: %w", unmapped), CodeUnmapped, ExitUnmapped},
		{runner.Summary{Corrupt: 2}.Err(), CodeCorrupt, ExitCorrupt},
		{fmt.Errorf("%w: x", config.ErrInvalid), CodeConfig, ExitConfig},
		{fmt.Errorf("%w: x", tables.ErrInvalidTable), CodeConfig, ExitConfig},
		{fmt.Errorf("%w: x", targets.ErrNoTargets), CodeConfig, ExitConfig},
		{statErr, CodeIO, ExitIO},
		{errors.Join(errors.New("a"), statErr), CodeIO, ExitIO},
		{errors.New("mystery"), CodeUnknown, ExitInternal},
	}
	for _, c := range cases {
		got := Classify(c.err)
		assert.Equal(t, c.want, got, "%v", c.err)
		assert.Equal(t, c.exit, ExitCode(got), "%v", c.err)
	}
}
