package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/programme-lv/strbench/internal/environment"
	"github.com/programme-lv/strbench/internal/logging"
	"github.com/urfave/cli/v3"
)

// session is the state shared by all subcommands, set up before any of them
// runs.
type session struct {
	cfg    *environment.Config
	logger *slog.Logger
}

func main() {
	s := &session{logger: logging.New(os.Stderr, false)}
	cmd := &cli.Command{
		Name:  environment.AppName,
		Usage: "benchmark and verify exact string matching algorithms",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug messages",
			},
		},
		Before: s.setup,
		Commands: []*cli.Command{
			runCommand(s),
			testCommand(s),
			selectCommand(s),
			configCommand(s),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Run(ctx, os.Args)
	stop()
	if err != nil {
		s.logger.Error("strbench failed", "error", err)
		os.Exit(1)
	}
}

func (s *session) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	s.logger = logging.New(os.Stderr, cmd.Bool("verbose"))
	cfg, err := environment.Load()
	if err != nil {
		return ctx, fmt.Errorf("failed to load configuration: %w", err)
	}
	s.cfg = cfg
	if src := cfg.Source(); src != "" {
		s.logger.Debug("loaded configuration", "path", src)
	}
	return ctx, nil
}

func configCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "print the effective configuration as TOML",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			data, err := s.cfg.Encode()
			if err != nil {
				return err
			}
			src := s.cfg.Source()
			if src == "" {
				src = "defaults"
			}
			fmt.Printf("# source: %s\n", src)
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}
