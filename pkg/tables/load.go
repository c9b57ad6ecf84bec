package tables

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodrovis/mojibake-repair-core/pkg/subst"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTable wraps every problem found while reading a table file.
var ErrInvalidTable = errors.New("invalid table")

type fileRule struct {
	Name           string  `yaml:"name"`
	Pattern        *string `yaml:"pattern"`
	PatternHex     *string `yaml:"pattern_hex"`
	Replacement    *string `yaml:"replacement"`
	ReplacementHex *string `yaml:"replacement_hex"`
}

type fileTable struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Rules       []fileRule `yaml:"rules"`
}

// LoadFile reads a YAML table. The table name defaults to the file's base
// name without extension.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read table %s: %w", path, err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t, err := Parse(data, base)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes one table document. Unknown keys are rejected.
//
//	name: calendar
//	rules:
//	  - name: creacion
//	    pattern_hex: "43 52 45 41 43 49 c3 83 e2 80 9c 4e"
//	    replacement: "CREACIÓN"
func Parse(data []byte, defaultName string) (Table, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var ft fileTable
	if err := dec.Decode(&ft); err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, fmt.Errorf("%w: empty document", ErrInvalidTable)
		}
		return Table{}, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	t := Table{Name: ft.Name, Description: ft.Description}
	if strings.TrimSpace(t.Name) == "" {
		t.Name = defaultName
	}
	if len(ft.Rules) == 0 {
		return Table{}, fmt.Errorf("%w %q: no rules", ErrInvalidTable, t.Name)
	}

	t.Rules = make([]subst.Rule, 0, len(ft.Rules))
	for i, fr := range ft.Rules {
		r, err := fr.rule()
		if err != nil {
			return Table{}, fmt.Errorf("%w %q: rule #%d: %v", ErrInvalidTable, t.Name, i+1, err)
		}
		t.Rules = append(t.Rules, r)
	}
	if err := subst.Validate(t.Rules); err != nil {
		return Table{}, fmt.Errorf("%w %q: %w", ErrInvalidTable, t.Name, err)
	}
	return t, nil
}

func (fr fileRule) rule() (subst.Rule, error) {
	pat, err := pick("pattern", fr.Pattern, fr.PatternHex, true)
	if err != nil {
		return subst.Rule{}, err
	}
	rep, err := pick("replacement", fr.Replacement, fr.ReplacementHex, false)
	if err != nil {
		return subst.Rule{}, err
	}
	return subst.Rule{Name: fr.Name, Pattern: pat, Replacement: rep}, nil
}

// pick returns the bytes of whichever of text / hex is set. An absent
// replacement means deletion.
func pick(field string, text, hexText *string, required bool) ([]byte, error) {
	switch {
	case text != nil && hexText != nil:
		return nil, fmt.Errorf("both %s and %s_hex set", field, field)
	case text != nil:
		return []byte(*text), nil
	case hexText != nil:
		b, err := decodeHex(*hexText)
		if err != nil {
			return nil, fmt.Errorf("%s_hex: %w", field, err)
		}
		return b, nil
	case required:
		return nil, fmt.Errorf("missing %s", field)
	default:
		return nil, nil
	}
}

// decodeHex accepts "c383c2b3", "c3 83 c2 b3" and "C3:83".
func decodeHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "\t", "", "\n", "").Replace(s)
	return hex.DecodeString(s)
}
