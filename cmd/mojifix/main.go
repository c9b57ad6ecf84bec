// Command mojifix repairs mojibake in source files: stray Latin-1 bytes inside
// UTF-8 text and known double/triple-encoded sequences.
//
//	mojifix [flags] <file|dir|glob>...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"

	cfgpkg "github.com/bodrovis/mojibake-repair-core/internal/config"
	"github.com/bodrovis/mojibake-repair-core/internal/diag"
	"github.com/bodrovis/mojibake-repair-core/pkg/runner"
	"github.com/bodrovis/mojibake-repair-core/pkg/stage"
	"github.com/bodrovis/mojibake-repair-core/pkg/subst"
	"github.com/bodrovis/mojibake-repair-core/pkg/tables"
	"github.com/bodrovis/mojibake-repair-core/pkg/targets"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
)

const defaultConfigFile = ".mojifix.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	config, envFile                  string
	check, dryRun, keepGoing, strict bool
	list                             bool
	tables, tableFiles, stages       string
	latin1, onUnmapped, mode         string
	ext, exclude                     string
	logLevel, logFormat              string
}

func parseFlags(args []string, stderr io.Writer) (flags, map[string]bool, []string, error) {
	var f flags
	fset := flag.NewFlagSet("mojifix", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.StringVar(&f.config, "config", "", "YAML config file (default ./"+defaultConfigFile+" if present)")
	fset.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before reading MOJIFIX_* variables")
	fset.BoolVar(&f.check, "check", false, "scan only; exit 1 when corruption is found")
	fset.BoolVar(&f.dryRun, "dry-run", false, "repair in memory, do not write files")
	fset.BoolVar(&f.keepGoing, "keep-going", false, "continue with the next file after an error")
	fset.BoolVar(&f.strict, "strict", false, "treat invalid UTF-8 left after repair as a failure")
	fset.BoolVar(&f.list, "list", false, "list built-in tables and stages, then exit")
	fset.StringVar(&f.tables, "tables", "", "comma-separated built-in tables in order, or \"none\"")
	fset.StringVar(&f.tableFiles, "table-files", "", "comma-separated YAML table files applied after -tables")
	fset.StringVar(&f.stages, "stages", "", "comma-separated stages to run (default all)")
	fset.StringVar(&f.latin1, "latin1", "", "stray byte table: observed or an encoding label such as latin1, cp1252")
	fset.StringVar(&f.onUnmapped, "on-unmapped", "", "stray byte without mapping: passthrough or error")
	fset.StringVar(&f.mode, "mode", "", "substitution mode: protected or chained")
	fset.StringVar(&f.ext, "ext", "", "comma-separated extensions scanned in directories")
	fset.StringVar(&f.exclude, "exclude", "", "comma-separated directory names skipped in directories")
	fset.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fset.StringVar(&f.logFormat, "log-format", "", "log format: text or json")
	if err := fset.Parse(args); err != nil {
		return f, nil, nil, err
	}

	set := map[string]bool{}
	fset.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, set, fset.Args(), nil
}

// overlay converts explicitly set flags into a config layer.
func (f flags) overlay(set map[string]bool, positional []string) cfgpkg.Config {
	var c cfgpkg.Config
	c.Targets = positional
	c.Tables = splitList(f.tables)
	c.TableFiles = splitList(f.tableFiles)
	c.Stages = splitList(f.stages)
	c.Extensions = splitList(f.ext)
	c.ExcludeDirs = splitList(f.exclude)
	c.Latin1Table = f.latin1
	c.OnUnmappedByte = f.onUnmapped
	c.SubstMode = f.mode
	c.Log = cfgpkg.Logging{Level: f.logLevel, Format: f.logFormat}

	boolFlag := func(name string, v bool) *bool {
		if !set[name] {
			return nil
		}
		return &v
	}
	c.Check = boolFlag("check", f.check)
	c.DryRun = boolFlag("dry-run", f.dryRun)
	c.KeepGoing = boolFlag("keep-going", f.keepGoing)
	c.StrictOutput = boolFlag("strict", f.strict)
	return c
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, set, positional, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return diag.ExitOK
		}
		return diag.ExitUsage
	}

	if f.list {
		listBuiltins(stdout)
		return diag.ExitOK
	}

	cfg, err := loadConfig(f, set, positional)
	if err != nil {
		fmt.Fprintf(stderr, "mojifix: %v\n", err)
		return diag.ExitCode(diag.Classify(err))
	}

	logger, err := diag.NewLogger(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "mojifix: %v\n", err)
		return diag.ExitConfig
	}
	fail := func(err error) int {
		code := diag.Classify(err)
		logger.WithField("code", string(code)).Error(err)
		return diag.ExitCode(code)
	}

	plan, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return fail(err)
	}
	logPlan(logger, cfg, plan)

	paths, err := targets.Resolve(ctx, cfg.Targets, plan.Targets)
	if err != nil {
		return fail(err)
	}

	r := runner.New(plan.Stages, plan.Runner, log.NewEntry(logger))
	sum, err := r.Run(ctx, paths)
	if err != nil {
		return fail(err)
	}
	if err := sum.Err(); err != nil {
		return fail(err)
	}
	return diag.ExitOK
}

// loadConfig layers defaults, the config file, .env plus environment, and flags.
func loadConfig(f flags, set map[string]bool, positional []string) (cfgpkg.Config, error) {
	if err := godotenv.Load(f.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfgpkg.Config{}, fmt.Errorf("%w: %s: %v", cfgpkg.ErrInvalid, f.envFile, err)
	}

	cfg := cfgpkg.Defaults()

	path := f.config
	if path == "" {
		path = os.Getenv("MOJIFIX_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		p, err := homedir.Expand(path)
		if err != nil {
			return cfgpkg.Config{}, fmt.Errorf("%w: config path: %v", cfgpkg.ErrInvalid, err)
		}
		fileCfg, err := cfgpkg.LoadFile(p)
		if err != nil {
			return cfgpkg.Config{}, err
		}
		cfg = cfgpkg.Merge(cfg, fileCfg)
	}

	envCfg, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfg = cfgpkg.Merge(cfg, envCfg)
	cfg = cfgpkg.Merge(cfg, f.overlay(set, positional))
	return cfg, cfgpkg.Validate(cfg)
}

func logPlan(logger *log.Logger, cfg cfgpkg.Config, plan cfgpkg.Plan) {
	names := make([]string, len(plan.Stages))
	for i, s := range plan.Stages {
		names[i] = s.Name()
	}
	logger.WithFields(log.Fields{
		"latin1": plan.Latin1Name,
		"policy": plan.Promoter.Policy().String(),
		"mode":   cfg.SubstMode,
		"rules":  len(plan.Rules),
		"stages": strings.Join(names, ","),
		"check":  cfgpkg.Bool(cfg.Check),
		"dryRun": cfgpkg.Bool(cfg.DryRun),
	}).Debug("plan")

	// Retrigger hazards only bite when later rules rescan replacements.
	mode, _ := subst.ParseMode(cfg.SubstMode)
	for _, h := range plan.Hazards {
		e := logger.WithFields(log.Fields{
			"earlier": plan.Rules[h.Earlier].Name,
			"later":   plan.Rules[h.Later].Name,
		})
		if mode == subst.Chained && h.Kind == subst.Retrigger {
			e.Warn(h.String())
		} else {
			e.Debug(h.String())
		}
	}
}

func listBuiltins(w io.Writer) {
	fmt.Fprintln(w, "tables:")
	for _, n := range tables.Names() {
		t, _ := tables.Lookup(n)
		fmt.Fprintf(w, "  %-18s %3d rules  %s\n", n, len(t.Rules), t.Description)
	}
	fmt.Fprintln(w, "stages:")
	for _, n := range stage.Names() {
		fmt.Fprintf(w, "  %s\n", n)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
