// Package config layers mojifix settings: defaults, YAML file, MOJIFIX_*
// environment variables, then command-line flags.
package config

import "errors"

// ErrInvalid wraps every configuration problem.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Targets     []string `yaml:"targets"`
	Extensions  []string `yaml:"extensions"`
	ExcludeDirs []string `yaml:"exclude_dirs"`

	Stages     []string `yaml:"stages"`      // empty means every registered stage
	Tables     []string `yaml:"tables"`      // built-in table names, applied in order
	TableFiles []string `yaml:"table_files"` // YAML tables applied after Tables

	Latin1Table    string `yaml:"latin1_table"`     // "observed" or an encoding label
	OnUnmappedByte string `yaml:"on_unmapped_byte"` // passthrough | error
	SubstMode      string `yaml:"subst_mode"`       // protected | chained

	// Pointers so that an explicit false can override an earlier true.
	DryRun       *bool `yaml:"dry_run"`
	Check        *bool `yaml:"check"`
	KeepGoing    *bool `yaml:"keep_going"`
	StrictOutput *bool `yaml:"strict_output"`

	Log Logging `yaml:"log"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// Bool dereferences an optional flag.
func Bool(p *bool) bool { return p != nil && *p }

func ptr[T any](v T) *T { return &v }
