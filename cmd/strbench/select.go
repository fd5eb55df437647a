package main

import (
	"context"
	"fmt"

	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/records"
	"github.com/urfave/cli/v3"
)

func selectCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "select",
		Usage: "edit the saved algorithm selection",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "add", Usage: "add discovered algorithms matching `REGEX`"},
			&cli.StringSliceFlag{Name: "remove", Usage: "remove selected algorithms matching `REGEX`"},
			&cli.BoolFlag{Name: "clear", Usage: "empty the selection first"},
			&cli.BoolFlag{Name: "list", Aliases: []string{"l"}, Usage: "print the selection"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return s.editSelection(ctx, cmd)
		},
	}
}

func (s *session) editSelection(ctx context.Context, cmd *cli.Command) error {
	path := s.cfg.SelectedPath()
	sel, err := records.LoadSelected(path)
	if err != nil {
		return err
	}
	reg, closeWasm, err := s.newRegistry(ctx)
	if err != nil {
		return err
	}
	defer closeWasm()

	changed := false
	if cmd.Bool("clear") && sel.Len() > 0 {
		sel = algo.NewSet()
		changed = true
	}
	if adds := cmd.StringSlice("add"); len(adds) > 0 {
		found, err := reg.Discover()
		if err != nil {
			return err
		}
		if _, err := found.KeepMatching(adds); err != nil {
			return err
		}
		added, err := sel.Merge(found)
		if err != nil {
			return err
		}
		if len(added) == 0 {
			s.logger.Warn("no new algorithm matched", "patterns", adds)
		}
		for _, name := range added {
			s.logger.Info("Selected algorithm", "algorithm", name)
		}
		changed = changed || len(added) > 0
	}
	if removes := cmd.StringSlice("remove"); len(removes) > 0 {
		removed, err := sel.KeepNotMatching(removes)
		if err != nil {
			return err
		}
		for _, name := range removed.Names() {
			s.logger.Info("Deselected algorithm", "algorithm", name)
		}
		changed = changed || removed.Len() > 0
	}

	if changed {
		sel.SortByName()
		if err := records.SaveSelected(path, sel); err != nil {
			return err
		}
		s.logger.Info("Saved selection", "path", path, "count", sel.Len())
	}

	if cmd.Bool("list") || !changed {
		for _, name := range sel.Names() {
			loc, ok := reg.Locate(name)
			where := "not found"
			if ok {
				where = loc.Path
			}
			fmt.Printf("%-24s %s\n", name, where)
		}
	}
	return nil
}
