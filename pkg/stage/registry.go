package stage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bodrovis/mojibake-repair-core/pkg/latin1"
	"github.com/bodrovis/mojibake-repair-core/pkg/subst"
)

// Settings carries everything a stage factory may need. Zero values are
// usable: a nil Promoter means the default promoter, nil Rules means no
// substitutions.
type Settings struct {
	Promoter     *latin1.Promoter
	Rules        []subst.Rule
	Mode         subst.Mode
	StrictOutput bool // report leftover invalid UTF-8 as FAIL instead of WARN
}

// ErrUnknownStage is returned by Build for a name that is not registered.
var ErrUnknownStage = errors.New("unknown stage")

// Factory builds a configured stage.
type Factory func(Settings) (Stage, error)

// thread-safe in-memory registry: name -> Factory
var (
	mu     sync.RWMutex
	byName = map[string]Factory{}
)

// Register adds or replaces a stage factory.
// Returns replaced=true if a factory with the same normalized name already existed.
func Register(name string, f Factory) (bool, error) {
	if f == nil {
		return false, errors.New("stage.Register: nil factory")
	}
	name = normalizeName(name)
	if name == "" {
		return false, errors.New("stage.Register: empty name")
	}

	mu.Lock()
	_, existed := byName[name]
	byName[name] = f
	mu.Unlock()

	return existed, nil
}

// Names returns registered stage names, sorted.
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

// Build instantiates the named stages (all registered ones when names is
// empty) and returns them sorted by Priority asc, then Name asc.
func Build(names []string, s Settings) ([]Stage, error) {
	if len(names) == 0 {
		names = Names()
	}

	out := make([]Stage, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		key := normalizeName(n)
		if seen[key] {
			continue
		}
		seen[key] = true

		mu.RLock()
		f, ok := byName[key]
		mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownStage, n, strings.Join(Names(), ", "))
		}
		st, err := f(s)
		if err != nil {
			return nil, fmt.Errorf("build stage %s: %w", key, err)
		}
		out = append(out, st)
	}

	Sort(out)
	return out, nil
}

// Sort orders stages by Priority asc, then normalized Name asc.
func Sort(xs []Stage) {
	sort.SliceStable(xs, func(i, j int) bool {
		pi, pj := xs[i].Priority(), xs[j].Priority()
		if pi != pj {
			return pi < pj
		}
		return normalizeName(xs[i].Name()) < normalizeName(xs[j].Name())
	})
}

// Reset clears the registry.
func Reset() {
	mu.Lock()
	byName = map[string]Factory{}
	mu.Unlock()
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
