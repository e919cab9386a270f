package main

import (
	"context"
	"time"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
	"github.com/flanksource/fixturegate/gate"
	"github.com/flanksource/fixturegate/report"
	"github.com/flanksource/fixturegate/shutdown"
	"github.com/flanksource/fixturegate/testrunner"
)

type RunOptions struct {
	Filter     string        `json:"filter" flag:"filter" help:"Only run fixtures matching this glob, e.g. 'errors/**'"`
	Timeout    time.Duration `json:"timeout" flag:"timeout" help:"Timeout per fixture for configurations without their own"`
	Categories []string      `json:"-" args:"true"`
}

func (o RunOptions) GetName() string { return "run" }

func (o RunOptions) Help() api.Text {
	return clicky.Text(`Verify coverage, then run every registered fixture through the pipeline
configured for its category and compare the output with the golden file.

Golden files are never written; a missing golden fails the fixture.

EXAMPLES:
  # Run all categories
  fixturegate run

  # Run one directory with a shorter timeout
  fixturegate run diagnostics --filter 'errors/**' --timeout 10s`)
}

type RegenerateOptions struct {
	Filter     string        `json:"filter" flag:"filter" help:"Only regenerate fixtures matching this glob"`
	Timeout    time.Duration `json:"timeout" flag:"timeout" help:"Timeout per fixture for configurations without their own"`
	Categories []string      `json:"-" args:"true"`
}

func (o RegenerateOptions) GetName() string { return "regenerate" }

func (o RegenerateOptions) Help() api.Text {
	return clicky.Text(`Rewrite golden files from the current pipeline output.

Takes an exclusive lock on the category so it never overlaps with a verification run.

EXAMPLES:
  fixturegate regenerate diagnostics --filter 'errors/**'`)
}

func run(opts gate.RunOptions) (*report.Report, error) {
	g, err := loadGate()
	if err != nil {
		return nil, err
	}
	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	r, err := g.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	exitCode = r.ExitCode()
	return r, nil
}

func init() {
	clicky.AddCommand(rootCmd, RunOptions{}, func(opts RunOptions) (any, error) {
		return run(gate.RunOptions{
			Categories: opts.Categories,
			Filter:     opts.Filter,
			Timeout:    opts.Timeout,
			Mode:       testrunner.ModeVerify,
		})
	})
	clicky.AddCommand(rootCmd, RegenerateOptions{}, func(opts RegenerateOptions) (any, error) {
		return run(gate.RunOptions{
			Categories: opts.Categories,
			Filter:     opts.Filter,
			Timeout:    opts.Timeout,
			Mode:       testrunner.ModeRegenerate,
		})
	})
}
