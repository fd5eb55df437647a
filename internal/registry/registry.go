// Package registry discovers algorithm units on the search path, loads them
// and releases them at the end of a session.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/algos"
	"golang.org/x/sync/errgroup"
)

// ErrLoad marks a unit that was found but could not be opened.
var ErrLoad = errors.New("failed to load algorithm")

const builtinPrefix = "builtin:"

// Opener opens unit files with one extension.
type Opener interface {
	Ext() string
	Open(ctx context.Context, path string) (algo.Unit, error)
}

type Registry struct {
	paths    []string
	openers  []Opener
	builtins bool
	logger   *slog.Logger

	exeHash func() (string, error)
}

type Option func(*Registry)

// WithOpeners replaces the file openers.
func WithOpeners(openers ...Opener) Option {
	return func(r *Registry) { r.openers = openers }
}

// WithoutBuiltins hides the kernels compiled into the binary.
func WithoutBuiltins() Option {
	return func(r *Registry) { r.builtins = false }
}

// New creates a registry over paths, highest priority first. By default it
// opens Go plugins and knows the built-in kernels; wasm units need a
// WasmOpener passed through WithOpeners.
func New(paths []string, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		paths:    paths,
		openers:  []Opener{PluginOpener{}},
		builtins: true,
		logger:   logger,
	}
	r.exeHash = sync.OnceValues(executableHash)
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) Paths() []string { return r.paths }

func (r *Registry) opener(ext string) Opener {
	for _, o := range r.openers {
		if o.Ext() == ext {
			return o
		}
	}
	return nil
}

// Discover lists every unit on the search paths, then the built-in kernels.
// A name found on an earlier path hides later ones.
func (r *Registry) Discover() (*algo.Set, error) {
	set := algo.NewSet()
	for _, dir := range r.paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.logger.Warn("failed to scan algorithm path", "path", dir, "error", err)
			}
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := filepath.Ext(e.Name())
			if r.opener(ext) == nil {
				continue
			}
			a, err := algo.NewAlgorithm(strings.TrimSuffix(e.Name(), ext))
			if err != nil {
				r.logger.Warn("skipping algorithm unit", "file", filepath.Join(dir, e.Name()), "error", err)
				continue
			}
			if _, err := set.Add(a); err != nil {
				return nil, err
			}
		}
	}
	if r.builtins {
		for _, name := range algos.Names() {
			if _, err := set.AddName(name); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}

// Location is where a unit was found.
type Location struct {
	Path    string
	opener  Opener
	builtin algo.RawSearchFunc
}

func (l Location) Builtin() bool { return l.builtin != nil }

// Locate finds the unit backing name, honouring path priority.
func (r *Registry) Locate(name string) (Location, bool) {
	name = algo.Canonical(name)
	for _, dir := range r.paths {
		if loc, ok := r.findInDir(dir, name); ok {
			return loc, true
		}
	}
	if r.builtins {
		if fn, ok := algos.Lookup(name); ok {
			return Location{Path: builtinPrefix + name, builtin: fn}, true
		}
	}
	return Location{}, false
}

// findInDir matches unit file names case-insensitively, in opener order.
func (r *Registry) findInDir(dir, name string) (Location, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Location{}, false
	}
	for _, o := range r.openers {
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			base, ok := strings.CutSuffix(e.Name(), o.Ext())
			if ok && algo.Canonical(base) == name {
				return Location{Path: filepath.Join(dir, e.Name()), opener: o}, true
			}
		}
	}
	return Location{}, false
}

// Load opens every unloaded algorithm of set. Names without a unit are
// reported and stay unloaded; a unit that cannot be opened is an ErrLoad
// error.
func (r *Registry) Load(ctx context.Context, set *algo.Set) error {
	type target struct {
		a   *algo.Algorithm
		loc Location
	}
	var targets []target
	for _, a := range set.All() {
		if a.Loaded() {
			continue
		}
		loc, ok := r.Locate(a.Name)
		if !ok {
			r.logger.Warn("algorithm not found", "algorithm", a.Name)
			continue
		}
		targets = append(targets, target{a: a, loc: loc})
	}

	hashes := make([]string, len(targets))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, t := range targets {
		g.Go(func() error {
			var err error
			if t.loc.Builtin() {
				hashes[i], err = r.exeHash()
			} else {
				hashes[i], err = fileHash(t.loc.Path)
			}
			if err != nil {
				return fmt.Errorf("%w %s: %w", ErrLoad, t.a.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, t := range targets {
		var unit algo.Unit
		if t.loc.Builtin() {
			unit = algo.Native(t.loc.builtin)
		} else {
			var err error
			unit, err = t.loc.opener.Open(ctx, t.loc.Path)
			if err != nil {
				return fmt.Errorf("%w %s from %s: %w", ErrLoad, t.a.Name, t.loc.Path, err)
			}
		}
		t.a.Attach(unit, t.loc.Path, hashes[i])
		r.logger.Debug("loaded algorithm", "algorithm", t.a.Name, "path", t.loc.Path)
	}
	return nil
}

// Unload releases every loaded unit of set. It is safe to call on a
// partially loaded set and more than once.
func (r *Registry) Unload(set *algo.Set) error {
	var errs []error
	for _, a := range set.All() {
		if err := a.Detach(); err != nil {
			errs = append(errs, fmt.Errorf("failed to unload %s: %w", a.Name, err))
		}
	}
	return errors.Join(errs...)
}
