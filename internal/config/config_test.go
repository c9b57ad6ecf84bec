package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bodrovis/mojibake-repair-core/pkg/latin1"
	"github.com/bodrovis/mojibake-repair-core/pkg/stage"
	"github.com/bodrovis/mojibake-repair-core/pkg/subst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTargets(c Config, ts ...string) Config {
	c.Targets = ts
	return c
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "mojifix.yaml")
	doc := `
targets: [src/app]
tables: [emoji, spanish-double]
table_files: [extra.yaml]
latin1_table: cp1252
on_unmapped_byte: error
subst_mode: chained
dry_run: true
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(p, []byte(doc), 0o644))

	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app"}, cfg.Targets)
	assert.Equal(t, []string{"emoji", "spanish-double"}, cfg.Tables)
	assert.Equal(t, "cp1252", cfg.Latin1Table)
	assert.Equal(t, "error", cfg.OnUnmappedByte)
	assert.True(t, Bool(cfg.DryRun))
	assert.Nil(t, cfg.Check)
	assert.Equal(t, Logging{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("targetz: [x]\n"), 0o644))
	_, err := LoadFile(p)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	cfg, err := LoadFile(empty)
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestMerge(t *testing.T) {
	base := Defaults()
	over := Config{
		Targets:   []string{"a"},
		SubstMode: " chained ",
		DryRun:    ptr(true),
		Log:       Logging{Format: "json"},
	}
	got := Merge(base, over)
	assert.Equal(t, []string{"a"}, got.Targets)
	assert.Equal(t, "chained", got.SubstMode)
	assert.True(t, Bool(got.DryRun))
	assert.Equal(t, "info", got.Log.Level)
	assert.Equal(t, "json", got.Log.Format)
	assert.Equal(t, base.Tables, got.Tables)

	// explicit false wins over an earlier true
	got = Merge(got, Config{DryRun: ptr(false)})
	assert.False(t, Bool(got.DryRun))

	// merging does not alias the overlay's slices
	over.Targets[0] = "changed"
	assert.Equal(t, "a", got.Targets[0])
}

func TestEnvOverlay(t *testing.T) {
	env := []string{
		"PATH=/usr/bin",
		"MOJIFIX_TARGETS= src , public/index.html ,",
		"MOJIFIX_TABLES=emoji",
		"MOJIFIX_CHECK=true",
		"MOJIFIX_KEEP_GOING=",
		"MOJIFIX_LOG_LEVEL=warn",
		"MOJIFIX_UNKNOWN=1",
		"MOJIFIX_=x",
	}
	over, err := EnvOverlay(env)
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "public/index.html"}, over.Targets)
	assert.Equal(t, []string{"emoji"}, over.Tables)
	assert.True(t, Bool(over.Check))
	assert.Nil(t, over.KeepGoing)
	assert.Equal(t, "warn", over.Log.Level)

	_, err = EnvOverlay([]string{"MOJIFIX_DRY_RUN=maybe"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	ok := withTargets(Defaults(), "src")
	require.NoError(t, Validate(ok))

	cases := map[string]func(*Config){
		"no targets":     func(c *Config) { c.Targets = nil },
		"blank target":   func(c *Config) { c.Targets = []string{" "} },
		"policy":         func(c *Config) { c.OnUnmappedByte = "ignore" },
		"mode":           func(c *Config) { c.SubstMode = "loop" },
		"latin1 table":   func(c *Config) { c.Latin1Table = "utf-8" },
		"unknown table":  func(c *Config) { c.Tables = []string{"emoji", "klingon"} },
		"log level":      func(c *Config) { c.Log.Level = "loud" },
		"log format":     func(c *Config) { c.Log.Format = "xml" },
		"check + dryrun": func(c *Config) { c.Check, c.DryRun = ptr(true), ptr(true) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := withTargets(Defaults(), "src")
			mutate(&c)
			assert.ErrorIs(t, Validate(c), ErrInvalid)
		})
	}
}

func TestAssemble_Defaults(t *testing.T) {
	p, err := Assemble(withTargets(Defaults(), "src"))
	require.NoError(t, err)

	assert.Equal(t, "observed", p.Latin1Name)
	assert.Equal(t, latin1.Passthrough, p.Promoter.Policy())
	require.Len(t, p.Tables, 3)
	assert.NotEmpty(t, p.Rules)

	names := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{"promote-latin1", "known-sequences", "verify-utf8"}, names)
	assert.Equal(t, stage.FixIfFailed, p.Runner.FixMode)
}

func TestAssemble_CustomTablesAndCheck(t *testing.T) {
	dir := t.TempDir()
	extra := filepath.Join(dir, "extra.yaml")
	require.NoError(t, os.WriteFile(extra, []byte("rules:\n  - pattern: foo\n    replacement: bar\n"), 0o644))

	c := withTargets(Defaults(), "src")
	c.Tables = []string{"none"}
	c.TableFiles = []string{extra}
	c.Latin1Table = "windows-1252"
	c.OnUnmappedByte = "error"
	c.Stages = []string{"known-sequences"}
	c.Check = ptr(true)

	p, err := Assemble(c)
	require.NoError(t, err)
	assert.Equal(t, "windows-1252", p.Latin1Name)
	assert.Equal(t, latin1.Reject, p.Promoter.Policy())
	require.Len(t, p.Rules, 1)
	assert.Equal(t, "extra/#1", p.Rules[0].Name)
	require.Len(t, p.Stages, 1)
	assert.Equal(t, stage.FixNone, p.Runner.FixMode)
}

func TestAssemble_Errors(t *testing.T) {
	c := withTargets(Defaults(), "src")
	c.Stages = []string{"nope"}
	_, err := Assemble(c)
	assert.ErrorIs(t, err, stage.ErrUnknownStage)

	dir := t.TempDir()
	dup := filepath.Join(dir, "dup.yaml")
	// same pattern as the built-in emoji/check rule
	require.NoError(t, os.WriteFile(dup, []byte("rules:\n  - pattern_hex: c3a2c593e280a6\n    replacement: x\n"), 0o644))
	c = withTargets(Defaults(), "src")
	c.TableFiles = []string{dup}
	_, err = Assemble(c)
	assert.True(t, errors.Is(err, subst.ErrDuplicatePattern))
	assert.ErrorIs(t, err, ErrInvalid)
}
