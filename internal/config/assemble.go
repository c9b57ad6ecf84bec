package config

import (
	"fmt"
	"strings"

	"github.com/bodrovis/mojibake-repair-core/pkg/latin1"
	"github.com/bodrovis/mojibake-repair-core/pkg/runner"
	"github.com/bodrovis/mojibake-repair-core/pkg/stage"
	_ "github.com/bodrovis/mojibake-repair-core/pkg/stage/all"
	"github.com/bodrovis/mojibake-repair-core/pkg/subst"
	"github.com/bodrovis/mojibake-repair-core/pkg/tables"
	"github.com/bodrovis/mojibake-repair-core/pkg/targets"
	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
)

// noTables disables the built-in tables when given as the only table name.
const noTables = "none"

// Validate performs the static checks that need no file access.
func Validate(cfg Config) error {
	if len(cfg.Targets) == 0 {
		return fmt.Errorf("%w: no targets", ErrInvalid)
	}
	for _, t := range cfg.Targets {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: empty target", ErrInvalid)
		}
	}
	if _, err := latin1.ParsePolicy(cfg.OnUnmappedByte); err != nil {
		return fmt.Errorf("%w: on_unmapped_byte: %v", ErrInvalid, err)
	}
	if _, err := subst.ParseMode(cfg.SubstMode); err != nil {
		return fmt.Errorf("%w: subst_mode: %v", ErrInvalid, err)
	}
	if _, _, err := latin1.ByLabel(cfg.Latin1Table); err != nil {
		return fmt.Errorf("%w: latin1_table: %v", ErrInvalid, err)
	}
	for _, n := range builtinTables(cfg.Tables) {
		if _, ok := tables.Lookup(n); !ok {
			return fmt.Errorf("%w: unknown table %q (known: %s)", ErrInvalid, n, strings.Join(tables.Names(), ", "))
		}
	}
	if lvl := strings.TrimSpace(cfg.Log.Level); lvl != "" {
		if _, err := log.ParseLevel(lvl); err != nil {
			return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Format)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalid, cfg.Log.Format)
	}
	if Bool(cfg.Check) && Bool(cfg.DryRun) {
		return fmt.Errorf("%w: check and dry_run are mutually exclusive", ErrInvalid)
	}
	return nil
}

// Plan is a validated config turned into ready-to-run parts.
type Plan struct {
	Latin1Name string
	Promoter   *latin1.Promoter
	Tables     []tables.Table
	Rules      []subst.Rule
	Hazards    []subst.Hazard
	Stages     []stage.Stage
	Targets    targets.Options
	Runner     runner.Options
}

// Assemble validates cfg, loads table files and builds the stages.
func Assemble(cfg Config) (Plan, error) {
	var p Plan
	if err := Validate(cfg); err != nil {
		return p, err
	}

	table, name, err := latin1.ByLabel(cfg.Latin1Table)
	if err != nil {
		return p, fmt.Errorf("%w: latin1_table: %v", ErrInvalid, err)
	}
	policy, _ := latin1.ParsePolicy(cfg.OnUnmappedByte)
	mode, _ := subst.ParseMode(cfg.SubstMode)
	p.Latin1Name = name
	p.Promoter = latin1.New(latin1.WithTable(table), latin1.WithPolicy(policy))

	if p.Tables, err = tables.Resolve(builtinTables(cfg.Tables)...); err != nil {
		return p, err
	}
	for _, f := range cfg.TableFiles {
		path, err := homedir.Expand(f)
		if err != nil {
			return p, fmt.Errorf("%w: table file %s: %v", ErrInvalid, f, err)
		}
		t, err := tables.LoadFile(path)
		if err != nil {
			return p, err
		}
		p.Tables = append(p.Tables, t)
	}
	p.Rules = tables.Concat(p.Tables...)
	if err := subst.Validate(p.Rules); err != nil {
		return p, fmt.Errorf("%w: combined tables: %w", ErrInvalid, err)
	}
	p.Hazards = subst.Hazards(p.Rules)

	p.Stages, err = stage.Build(cfg.Stages, stage.Settings{
		Promoter:     p.Promoter,
		Rules:        p.Rules,
		Mode:         mode,
		StrictOutput: Bool(cfg.StrictOutput),
	})
	if err != nil {
		return p, err
	}

	p.Targets = targets.Options{Extensions: cloneStrings(cfg.Extensions), ExcludeDirs: cloneStrings(cfg.ExcludeDirs)}
	p.Runner = runner.Options{
		FixMode:   stage.FixIfFailed,
		DryRun:    Bool(cfg.DryRun),
		KeepGoing: Bool(cfg.KeepGoing),
	}
	if Bool(cfg.Check) {
		p.Runner.FixMode = stage.FixNone
	}
	return p, nil
}

func builtinTables(names []string) []string {
	if len(names) == 1 && strings.EqualFold(strings.TrimSpace(names[0]), noTables) {
		return nil
	}
	return names
}
