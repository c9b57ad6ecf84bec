// Package tables holds named substitution tables: the built-in ones
// transcribed from known corruptions, plus tables loaded from YAML files.
package tables

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bodrovis/mojibake-repair-core/pkg/subst"
)

// ErrUnknownTable is returned by Resolve for a name that is not registered.
var ErrUnknownTable = errors.New("unknown table")

// Table is a named, ordered list of substitution rules.
type Table struct {
	Name        string
	Description string
	Rules       []subst.Rule
}

// thread-safe in-memory registry: normalized name -> Table
var (
	mu     sync.RWMutex
	byName = map[string]Table{}
)

// Register adds or replaces a table.
// Returns replaced=true if a table with the same normalized name already existed.
func Register(t Table) (bool, error) {
	name := normalizeName(t.Name)
	if name == "" {
		return false, errors.New("tables.Register: empty name")
	}
	if err := subst.Validate(t.Rules); err != nil {
		return false, fmt.Errorf("tables.Register %s: %w", t.Name, err)
	}

	mu.Lock()
	_, existed := byName[name]
	byName[name] = t
	mu.Unlock()

	return existed, nil
}

// Lookup returns a registered table by its (case-insensitive) name.
func Lookup(name string) (Table, bool) {
	mu.RLock()
	t, ok := byName[normalizeName(name)]
	mu.RUnlock()
	return t, ok
}

// Names returns registered table names, sorted.
func Names() []string {
	mu.RLock()
	out := make([]string, 0, len(byName))
	for k := range byName {
		out = append(out, k)
	}
	mu.RUnlock()
	sort.Strings(out)
	return out
}

// Reset clears the registry.
func Reset() {
	mu.Lock()
	byName = map[string]Table{}
	mu.Unlock()
}

// Resolve looks up every name and fails on the first unknown one.
func Resolve(names ...string) ([]Table, error) {
	out := make([]Table, 0, len(names))
	for _, n := range names {
		t, ok := Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownTable, n, strings.Join(Names(), ", "))
		}
		out = append(out, t)
	}
	return out, nil
}

// DefaultNames is the table order used when the caller picks none.
// Longer emoji patterns go first so that the shorter letter rules cannot eat into them.
var DefaultNames = []string{"emoji", "spanish-triple", "spanish-double"}

// Default returns the default tables in order.
func Default() []Table {
	out, err := Resolve(DefaultNames...)
	if err != nil {
		panic("tables.Default: " + err.Error())
	}
	return out
}

// Concat flattens tables into one ordered rule list. Rule names get the
// table name as prefix so reports stay readable.
func Concat(ts ...Table) []subst.Rule {
	var n int
	for _, t := range ts {
		n += len(t.Rules)
	}
	out := make([]subst.Rule, 0, n)
	for _, t := range ts {
		for i, r := range t.Rules {
			name := r.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			if t.Name != "" {
				name = t.Name + "/" + name
			}
			out = append(out, subst.Rule{Name: name, Pattern: r.Pattern, Replacement: r.Replacement})
		}
	}
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func mustRegister(t Table) {
	if _, err := Register(t); err != nil {
		panic(err)
	}
}
