// Package targets turns caller-supplied paths, directories and globs into
// the ordered list of files to repair.
package targets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ErrNoTargets is returned when a pattern matches nothing.
var ErrNoTargets = errors.New("no matching files")

var (
	DefaultExtensions  = []string{".html", ".ts", ".scss", ".css"}
	DefaultExcludeDirs = []string{"node_modules", "dist", ".git", ".angular"}
)

type Options struct {
	// Extensions filters files found while walking directories. Files named
	// explicitly or matched by a glob are always included. Empty means all.
	Extensions []string
	// ExcludeDirs are directory base names skipped during the walk
	// (case-insensitive). They do not apply to an explicitly named root.
	ExcludeDirs []string
}

// DefaultOptions mirrors what the repair scripts scanned.
func DefaultOptions() Options {
	return Options{
		Extensions:  append([]string(nil), DefaultExtensions...),
		ExcludeDirs: append([]string(nil), DefaultExcludeDirs...),
	}
}

// Resolve expands every pattern and returns the de-duplicated, sorted list of
// regular files. Each pattern must produce at least one file.
func Resolve(ctx context.Context, patterns []string, opts Options) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: no targets given", ErrNoTargets)
	}

	r := resolver{
		exts:    toSet(opts.Extensions, normalizeExt),
		exclude: toSet(opts.ExcludeDirs, strings.ToLower),
		seen:    map[string]struct{}{},
	}
	for _, p := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.one(ctx, p)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoTargets, p)
		}
	}

	sort.Strings(r.out)
	return r.out, nil
}

type resolver struct {
	exts    map[string]struct{}
	exclude map[string]struct{}
	seen    map[string]struct{}
	out     []string
}

// one handles a single pattern and returns how many files it matched,
// counting files already added by an earlier pattern.
func (r *resolver) one(ctx context.Context, pattern string) (int, error) {
	p, err := homedir.Expand(strings.TrimSpace(pattern))
	if err != nil {
		return 0, fmt.Errorf("expand %s: %w", pattern, err)
	}

	if hasMeta(p) {
		matches, err := filepath.Glob(p)
		if err != nil {
			return 0, fmt.Errorf("glob %s: %w", pattern, err)
		}
		total := 0
		for _, m := range matches {
			n, err := r.path(ctx, m, true)
			if err != nil {
				return 0, err
			}
			total += n
		}
		return total, nil
	}
	return r.path(ctx, p, true)
}

func (r *resolver) path(ctx context.Context, p string, explicit bool) (int, error) {
	info, err := os.Stat(p)
	if err != nil {
		return 0, err
	}
	switch {
	case info.IsDir():
		return r.walk(ctx, p)
	case !info.Mode().IsRegular():
		return 0, nil
	case !explicit && !r.wantExt(p):
		return 0, nil
	}
	r.add(p)
	return 1, nil
}

// walk visits dir in stable lexical order. Directory symlinks are not followed.
func (r *resolver) walk(ctx context.Context, dir string) (int, error) {
	total := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && r.excluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !r.wantExt(path) {
			return nil
		}
		r.add(path)
		total++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", dir, err)
	}
	return total, nil
}

func (r *resolver) add(p string) {
	p = filepath.Clean(p)
	if _, dup := r.seen[p]; dup {
		return
	}
	r.seen[p] = struct{}{}
	r.out = append(r.out, p)
}

func (r *resolver) wantExt(p string) bool {
	if len(r.exts) == 0 {
		return true
	}
	_, ok := r.exts[strings.ToLower(filepath.Ext(p))]
	return ok
}

func (r *resolver) excluded(name string) bool {
	_, ok := r.exclude[strings.ToLower(name)]
	return ok
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, `*?[`)
}

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e != "" && !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

func toSet(xs []string, norm func(string) string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		if x = norm(x); x != "" {
			m[x] = struct{}{}
		}
	}
	return m
}
