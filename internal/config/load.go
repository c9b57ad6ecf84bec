package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bodrovis/mojibake-repair-core/pkg/tables"
	"github.com/bodrovis/mojibake-repair-core/pkg/targets"
	"gopkg.in/yaml.v3"
)

// Defaults returns the settings the repair scripts effectively used.
func Defaults() Config {
	return Config{
		Extensions:     cloneStrings(targets.DefaultExtensions),
		ExcludeDirs:    cloneStrings(targets.DefaultExcludeDirs),
		Tables:         cloneStrings(tables.DefaultNames),
		Latin1Table:    "observed",
		OnUnmappedByte: "passthrough",
		SubstMode:      "protected",
		DryRun:         ptr(false),
		Check:          ptr(false),
		KeepGoing:      ptr(false),
		StrictOutput:   ptr(false),
		Log:            Logging{Level: "info", Format: "text"},
	}
}

// LoadFile parses a YAML config file, rejecting unknown keys. An empty file
// yields a zero Config.
func LoadFile(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return cfg, nil
}

// Merge overlays over onto base. Lists and strings replace when non-empty,
// flags replace when set.
func Merge(base, over Config) Config {
	out := base
	if len(over.Targets) > 0 {
		out.Targets = cloneStrings(over.Targets)
	}
	if len(over.Extensions) > 0 {
		out.Extensions = cloneStrings(over.Extensions)
	}
	if len(over.ExcludeDirs) > 0 {
		out.ExcludeDirs = cloneStrings(over.ExcludeDirs)
	}
	if len(over.Stages) > 0 {
		out.Stages = cloneStrings(over.Stages)
	}
	if len(over.Tables) > 0 {
		out.Tables = cloneStrings(over.Tables)
	}
	if len(over.TableFiles) > 0 {
		out.TableFiles = cloneStrings(over.TableFiles)
	}
	if s := strings.TrimSpace(over.Latin1Table); s != "" {
		out.Latin1Table = s
	}
	if s := strings.TrimSpace(over.OnUnmappedByte); s != "" {
		out.OnUnmappedByte = s
	}
	if s := strings.TrimSpace(over.SubstMode); s != "" {
		out.SubstMode = s
	}
	if over.DryRun != nil {
		out.DryRun = ptr(*over.DryRun)
	}
	if over.Check != nil {
		out.Check = ptr(*over.Check)
	}
	if over.KeepGoing != nil {
		out.KeepGoing = ptr(*over.KeepGoing)
	}
	if over.StrictOutput != nil {
		out.StrictOutput = ptr(*over.StrictOutput)
	}
	if s := strings.TrimSpace(over.Log.Level); s != "" {
		out.Log.Level = s
	}
	if s := strings.TrimSpace(over.Log.Format); s != "" {
		out.Log.Format = s
	}
	return out
}

const envPrefix = "MOJIFIX_"

// EnvOverlay builds a Config from MOJIFIX_* variables in environ. Lists are
// comma separated. Unknown MOJIFIX_ keys are ignored; malformed booleans are errors.
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(envPrefix) {
			continue
		}
		key, val := kv[len(envPrefix):eq], kv[eq+1:]

		var err error
		switch key {
		case "TARGETS":
			over.Targets = splitComma(val)
		case "EXTENSIONS":
			over.Extensions = splitComma(val)
		case "EXCLUDE_DIRS":
			over.ExcludeDirs = splitComma(val)
		case "STAGES":
			over.Stages = splitComma(val)
		case "TABLES":
			over.Tables = splitComma(val)
		case "TABLE_FILES":
			over.TableFiles = splitComma(val)
		case "LATIN1_TABLE":
			over.Latin1Table = strings.TrimSpace(val)
		case "ON_UNMAPPED_BYTE":
			over.OnUnmappedByte = strings.TrimSpace(val)
		case "SUBST_MODE":
			over.SubstMode = strings.TrimSpace(val)
		case "DRY_RUN":
			over.DryRun, err = parseBool(key, val)
		case "CHECK":
			over.Check, err = parseBool(key, val)
		case "KEEP_GOING":
			over.KeepGoing, err = parseBool(key, val)
		case "STRICT_OUTPUT":
			over.StrictOutput, err = parseBool(key, val)
		case "LOG_LEVEL":
			over.Log.Level = strings.TrimSpace(val)
		case "LOG_FORMAT":
			over.Log.Format = strings.TrimSpace(val)
		}
		if err != nil {
			return Config{}, err
		}
	}
	return over, nil
}

// parseBool treats an empty value as unset.
func parseBool(key, val string) (*bool, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalid, envPrefix, key, val)
	}
	return &b, nil
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
