package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/programme-lv/strbench/internal/bench"
	"github.com/programme-lv/strbench/internal/cpu"
	"github.com/programme-lv/strbench/internal/filestore"
	"github.com/programme-lv/strbench/internal/gatherer"
	"github.com/programme-lv/strbench/internal/gatherer/natsgath"
	"github.com/programme-lv/strbench/internal/gatherer/respbuilder"
	"github.com/programme-lv/strbench/internal/gatherer/sqsgath"
	"github.com/programme-lv/strbench/internal/gatherer/termgath"
	"github.com/programme-lv/strbench/internal/measure"
	"github.com/programme-lv/strbench/internal/perf"
	"github.com/programme-lv/strbench/internal/s3downl"
	"github.com/programme-lv/strbench/internal/textgen"
	"github.com/urfave/cli/v3"
)

const (
	defaultMinLen = 2
	defaultMaxLen = 4096
	defaultStep   = 2
)

func runCommand(s *session) *cli.Command {
	flags := append(selectionFlags(),
		&cli.StringSliceFlag{Name: "text", Aliases: []string{"t"}, Usage: "text data: files, directories or S3 https URLs"},
		&cli.IntFlag{Name: "random", Usage: "random text over an alphabet of `SIGMA` symbols"},
		&cli.StringFlag{Name: "inline", Usage: "use the given string as text"},
		&cli.IntFlag{Name: "size", Usage: "maximum text size in bytes"},
		&cli.BoolFlag{Name: "fill", Usage: "repeat short data until the text has --size bytes"},
		&cli.IntFlag{Name: "min", Value: defaultMinLen, Usage: "shortest pattern length"},
		&cli.IntFlag{Name: "max", Value: defaultMaxLen, Usage: "longest pattern length"},
		&cli.IntFlag{Name: "step", Value: defaultStep, Usage: "pattern length step"},
		&cli.BoolFlag{Name: "mul", Value: true, Usage: "multiply the pattern length by --step instead of adding it"},
		&cli.StringFlag{Name: "pattern", Aliases: []string{"p"}, Usage: "search for this pattern instead of extracted ones"},
		&cli.IntFlag{Name: "runs", Aliases: []string{"r"}, Usage: "repetitions per cell"},
		&cli.FloatFlag{Name: "time-limit", Usage: "per-search time limit in `MS`, 0 disables it"},
		&cli.FloatFlag{Name: "hard-timeout", Usage: "wall-clock limit of one invocation in `MS` (default 10x time limit, at least 1s)"},
		&cli.StringFlag{Name: "pin", Usage: "pin the measurement thread: off, last or a cpu number"},
		&cli.StringFlag{Name: "counters", Usage: "hardware counters: l1, cache, branch, all, none or a bitmask"},
		&cli.IntFlag{Name: "precision", Usage: "decimals of printed times"},
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "free text stored with the results"},
		&cli.Uint64Flag{Name: "seed", Usage: "seed for random text and pattern positions (default time based)"},
		&cli.StringFlag{Name: "out", Usage: "results directory"},
		&cli.BoolFlag{Name: "compress", Usage: "write the report zstd-compressed"},
	)
	return &cli.Command{
		Name:  "run",
		Usage: "benchmark algorithms over a range of pattern lengths",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return s.run(ctx, cmd)
		},
	}
}

func intOr(cmd *cli.Command, name string, def int) int {
	if cmd.IsSet(name) {
		return cmd.Int(name)
	}
	return def
}

func stringOr(cmd *cli.Command, name string, def string) string {
	if cmd.IsSet(name) {
		return cmd.String(name)
	}
	return def
}

func floatOr(cmd *cli.Command, name string, def float64) float64 {
	if cmd.IsSet(name) {
		return cmd.Float(name)
	}
	return def
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func seed(cmd *cli.Command) uint64 {
	if cmd.IsSet("seed") {
		return cmd.Uint64("seed")
	}
	return uint64(time.Now().UnixNano())
}

func (s *session) driverOptions(cmd *cli.Command, runs int, timeLimitMs float64) (measure.Options, error) {
	pin, err := cpu.ParsePin(stringOr(cmd, "pin", s.cfg.Run.Pin))
	if err != nil {
		return measure.Options{}, err
	}
	return measure.Options{
		Runs:        runs,
		TimeLimit:   msDuration(timeLimitMs),
		HardTimeout: msDuration(cmd.Float("hard-timeout")),
		Pin:         pin,
	}, nil
}

func (s *session) textSource(cmd *cli.Command, seed uint64) (textgen.Source, error) {
	given := 0
	for _, name := range []string{"text", "random", "inline"} {
		if cmd.IsSet(name) {
			given++
		}
	}
	if given > 1 {
		return textgen.Source{}, fmt.Errorf("--text, --random and --inline are mutually exclusive")
	}
	switch {
	case cmd.IsSet("random"):
		return textgen.Source{Kind: textgen.FromRandom, Sigma: cmd.Int("random"), Seed: seed}, nil
	case cmd.IsSet("inline"):
		return textgen.Source{Kind: textgen.FromInline, Data: []byte(cmd.String("inline"))}, nil
	case cmd.IsSet("text"):
		return textgen.Source{Kind: textgen.FromFiles, Paths: cmd.StringSlice("text")}, nil
	}
	return textgen.Source{Kind: textgen.FromFiles, Paths: s.cfg.DataPaths}, nil
}

// newFetcher prepares the corpus cache when the source names remote data.
func (s *session) newFetcher(ctx context.Context, src textgen.Source) (textgen.Fetcher, error) {
	var urls []string
	for _, p := range src.Paths {
		if strings.HasPrefix(p, "https://") || strings.HasPrefix(p, "http://") {
			urls = append(urls, p)
		}
	}
	if len(urls) == 0 {
		return nil, nil
	}
	dl, err := s3downl.New(ctx, s.cfg.Publish.AwsRegion, s.logger)
	if err != nil {
		return nil, err
	}
	fs, err := filestore.New(filepath.Join(s.cfg.CacheDir, "corpus"), dl.Download, s.logger)
	if err != nil {
		return nil, err
	}
	fs.Prefetch(urls...)
	return fs, nil
}

// publishers returns the configured network gatherers and a func closing
// their connections. Publishing problems are never fatal.
func (s *session) publishers(ctx context.Context) ([]bench.Gatherer, func()) {
	var res []bench.Gatherer
	closeAll := func() {}
	pub := s.cfg.Publish
	if pub.NatsURL != "" {
		nc, err := natsgath.Connect(pub.NatsURL)
		if err != nil {
			s.logger.Warn("results will not be published to NATS", "error", err)
		} else {
			res = append(res, natsgath.New(nc, pub.NatsSubject, s.logger))
			closeAll = func() {
				if err := nc.Drain(); err != nil {
					s.logger.Warn("failed to drain NATS connection", "error", err)
				}
			}
		}
	}
	if pub.SqsQueueURL != "" {
		g, err := sqsgath.New(ctx, pub.SqsQueueURL, pub.AwsRegion, s.logger)
		if err != nil {
			s.logger.Warn("results will not be sent to SQS", "error", err)
		} else {
			res = append(res, g)
		}
	}
	return res, closeAll
}

func (s *session) run(ctx context.Context, cmd *cli.Command) error {
	runSeed := seed(cmd)
	opts, err := s.driverOptions(cmd, intOr(cmd, "runs", s.cfg.Run.Runs), floatOr(cmd, "time-limit", s.cfg.Run.TimeLimitMs))
	if err != nil {
		return err
	}
	opts.Counters, err = perf.ParseSelection(stringOr(cmd, "counters", s.cfg.Run.Counters))
	if err != nil {
		return err
	}
	plan := textgen.Plan{
		Min:      cmd.Int("min"),
		Max:      cmd.Int("max"),
		Step:     cmd.Int("step"),
		Multiply: cmd.Bool("mul"),
	}
	if plan.Min < 1 || plan.Max < plan.Min {
		return fmt.Errorf("invalid pattern length range %d..%d", plan.Min, plan.Max)
	}
	size := intOr(cmd, "size", s.cfg.Run.Size)
	fixed := []byte(cmd.String("pattern"))

	src, err := s.textSource(cmd, runSeed)
	if err != nil {
		return err
	}
	fetcher, err := s.newFetcher(ctx, src)
	if err != nil {
		return err
	}
	maxPatternLen := max(min(plan.Max, size), len(fixed))
	s.logger.Info("Building text...", "source", src.String(), "size", size)
	text, err := textgen.NewBuilder(s.cfg.DataPaths, fetcher, s.logger).Build(ctx, src, size, cmd.Bool("fill"), maxPatternLen)
	if err != nil {
		return fmt.Errorf("failed to build text: %w", err)
	}
	s.logger.Info("Built text", "bytes", text.Len())

	algs, err := s.loadAlgorithms(ctx, cmd)
	if err != nil {
		return err
	}
	defer algs.close()
	if len(algs.set.Loaded()) == 0 {
		return fmt.Errorf("none of the selected algorithms could be loaded")
	}

	driver, err := measure.NewDriver(opts, s.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	report := respbuilder.New()
	gatherers := gatherer.Multi{termgath.New(os.Stdout, intOr(cmd, "precision", s.cfg.Run.Precision)), report}
	remote, closeRemote := s.publishers(ctx)
	defer closeRemote()
	gatherers = append(gatherers, remote...)

	runner := bench.NewRunner(driver, gatherers, s.logger)
	runErr := runner.Run(ctx, algs.set.Loaded(), text, bench.Config{
		Plan:        plan,
		Pattern:     fixed,
		Seed:        runSeed,
		Description: cmd.String("description"),
		TextSource:  src.String(),
	})
	if n := driver.Abandoned(); n > 0 {
		s.logger.Warn("measurement threads were abandoned after hard timeouts", "count", n)
	}

	if report.Finished() {
		path, err := report.WriteFile(stringOr(cmd, "out", s.cfg.ResultsDir), cmd.Bool("compress"))
		if err != nil {
			s.logger.Error("failed to save report", "error", err)
		} else {
			s.logger.Info("Saved report", "path", path)
		}
	}
	return runErr
}
