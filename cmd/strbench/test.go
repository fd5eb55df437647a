package main

import (
	"context"
	"fmt"
	"os"

	"github.com/programme-lv/strbench/api"
	"github.com/programme-lv/strbench/internal/algo"
	"github.com/programme-lv/strbench/internal/gatherer/termgath"
	"github.com/programme-lv/strbench/internal/harness"
	"github.com/programme-lv/strbench/internal/measure"
	"github.com/urfave/cli/v3"
)

func testCommand(s *session) *cli.Command {
	flags := append(selectionFlags(),
		&cli.BoolFlag{Name: "quick", Aliases: []string{"q"}, Usage: "test a reduced set of alphabet sizes on short texts"},
		&cli.BoolFlag{Name: "fail-only", Usage: "only report algorithms that failed"},
		&cli.BoolFlag{Name: "update", Aliases: []string{"u"}, Usage: "record algorithms that passed"},
		&cli.StringFlag{Name: "pin", Usage: "pin the measurement thread: off, last or a cpu number"},
		&cli.FloatFlag{Name: "hard-timeout", Usage: "wall-clock limit of one invocation in `MS`"},
		&cli.Uint64Flag{Name: "seed", Usage: "seed for random test texts (default time based)"},
	)
	return &cli.Command{
		Name:  "test",
		Usage: "check algorithms against a brute-force oracle",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return s.test(ctx, cmd)
		},
	}
}

func testResult(r harness.Report) api.TestResult {
	res := api.TestResult{
		Algorithm: r.Name,
		Hash:      r.Hash,
		Counted:   r.Counted,
		Skipped:   r.Skipped,
	}
	switch r.Status {
	case harness.Passed:
		res.Status = api.Passed
	case harness.Failed:
		res.Status = api.Failed
	default:
		res.Status = api.Untested
	}
	if r.Failure != nil {
		msg := r.Failure.String()
		res.Failure = &msg
	}
	if r.Killed {
		msg := "exceeded the hard timeout"
		if res.Failure != nil {
			msg = *res.Failure + ", " + msg
		}
		res.Failure = &msg
	}
	return res
}

func (s *session) test(ctx context.Context, cmd *cli.Command) error {
	mode := harness.Full
	if cmd.Bool("quick") {
		mode = harness.Quick
	}
	opts, err := s.driverOptions(cmd, 1, 0)
	if err != nil {
		return err
	}

	algs, err := s.loadAlgorithms(ctx, cmd)
	if err != nil {
		return err
	}
	defer algs.close()

	driver, err := measure.NewDriver(opts, s.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	h, err := harness.New(driver, mode, seed(cmd), s.logger)
	if err != nil {
		return err
	}
	s.logger.Info("Testing algorithms...", "mode", mode.String(), "count", algs.set.Len())
	reports, err := h.Run(ctx, algs.set.All(), func(r harness.Report) {
		s.logger.Debug("tested algorithm", "algorithm", r.Name, "status", r.Status.String())
	})
	if err != nil {
		return fmt.Errorf("failed to test algorithms: %w", err)
	}

	results := make([]api.TestResult, 0, len(reports))
	var passed []*algo.Algorithm
	for _, r := range reports {
		results = append(results, testResult(r))
		if r.Status == harness.Passed {
			passed = append(passed, algs.set.Get(r.Name))
		}
	}
	termgath.PrintTestResults(os.Stdout, results, cmd.Bool("fail-only"))

	if cmd.Bool("update") && len(passed) > 0 {
		if err := algs.records.Append(passed...); err != nil {
			return fmt.Errorf("failed to update test records: %w", err)
		}
		s.logger.Info("Updated test records", "passed", len(passed), "path", algs.records.Path())
	}
	return nil
}
