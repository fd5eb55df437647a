package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/records"
	"github.com/programme-lv/strbench/internal/registry"
	"github.com/urfave/cli/v3"
)

func selectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "algo",
			Aliases: []string{"a"},
			Usage:   "algorithms whose whole name matches `REGEX` (POSIX ERE, case-insensitive)",
		},
		&cli.BoolFlag{
			Name:  "all",
			Usage: "every algorithm on the search paths and every built-in",
		},
		&cli.BoolFlag{
			Name:  "selected",
			Usage: "the saved selection (default)",
		},
		&cli.StringFlag{
			Name:  "set",
			Usage: "a named set from the configuration",
		},
	}
}

// loaded is a loaded algorithm set together with what is needed to release
// it.
type loaded struct {
	set     *algo.Set
	records *records.TestRecords
	close   func()
}

func (s *session) newRegistry(ctx context.Context) (*registry.Registry, func(), error) {
	wasm, err := registry.NewWasmOpener(ctx)
	if err != nil {
		return nil, nil, err
	}
	reg := registry.New(s.cfg.AlgoPaths, s.logger,
		registry.WithOpeners(registry.PluginOpener{}, wasm))
	closeWasm := func() {
		if err := wasm.Close(context.Background()); err != nil {
			s.logger.Warn("failed to close wasm runtime", "error", err)
		}
	}
	return reg, closeWasm, nil
}

// chooseAlgorithms resolves the selection flags to a set of names.
func (s *session) chooseAlgorithms(cmd *cli.Command, reg *registry.Registry) (*algo.Set, error) {
	patterns := cmd.StringSlice("algo")
	sources := 0
	for _, given := range []bool{len(patterns) > 0, cmd.Bool("all"), cmd.Bool("selected"), cmd.String("set") != ""} {
		if given {
			sources++
		}
	}
	if sources > 1 {
		return nil, fmt.Errorf("--algo, --all, --selected and --set are mutually exclusive")
	}

	switch {
	case len(patterns) > 0:
		set, err := reg.Discover()
		if err != nil {
			return nil, err
		}
		if _, err := set.KeepMatching(patterns); err != nil {
			return nil, err
		}
		if set.Len() == 0 {
			return nil, fmt.Errorf("no algorithm matches %v", patterns)
		}
		return set, nil
	case cmd.Bool("all"):
		return reg.Discover()
	case cmd.String("set") != "":
		names, ok := s.cfg.Set(cmd.String("set"))
		if !ok {
			return nil, fmt.Errorf("unknown algorithm set %q", cmd.String("set"))
		}
		return algo.SetOf(names...)
	}

	set, err := records.LoadSelected(s.cfg.SelectedPath())
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("no algorithms selected, use \"select --add REGEX\", --algo or --all")
	}
	return set, nil
}

// loadAlgorithms chooses, loads and flags the algorithms of a session. The
// returned close func unloads them.
func (s *session) loadAlgorithms(ctx context.Context, cmd *cli.Command) (*loaded, error) {
	reg, closeWasm, err := s.newRegistry(ctx)
	if err != nil {
		return nil, err
	}
	set, err := s.chooseAlgorithms(cmd, reg)
	if err != nil {
		closeWasm()
		return nil, err
	}

	s.logger.Info("Loading algorithms...", "count", set.Len())
	release := func() {
		if err := reg.Unload(set); err != nil {
			s.logger.Warn("failed to unload algorithms", "error", err)
		}
		closeWasm()
	}
	if err := reg.Load(ctx, set); err != nil {
		release()
		if errors.Is(err, algo.ErrCapacity) {
			return nil, fmt.Errorf("algorithm capacity exceeded: %w", err)
		}
		return nil, err
	}

	recs, err := records.LoadTestRecords(s.cfg.TestRecordsPath())
	if err != nil {
		release()
		return nil, err
	}
	recs.Apply(set)
	s.logger.Info("Loaded algorithms", "loaded", len(set.Loaded()), "selected", set.Len())
	return &loaded{set: set, records: recs, close: release}, nil
}
