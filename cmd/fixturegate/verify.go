package main

import (
	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
)

type VerifyOptions struct {
	Categories []string `json:"-" args:"true"`
}

func (o VerifyOptions) GetName() string { return "verify" }

func (o VerifyOptions) Help() api.Text {
	return clicky.Text(`Check that every fixture has a generated test or a suppression.

Scans each category root, compares the fixtures with the registry written by the
test generator and reports per suite node:
  missing   fixtures with neither a generated test nor a suppression
  stale     suppressions for fixtures that no longer exist
  orphaned  generated tests for fixtures that no longer exist

Exits non-zero on any discrepancy.

EXAMPLES:
  # Verify every category in .fixturegate.yaml
  fixturegate verify

  # Verify a single category as JSON
  fixturegate verify diagnostics --format json`)
}

func init() {
	clicky.AddCommand(rootCmd, VerifyOptions{}, func(opts VerifyOptions) (any, error) {
		g, err := loadGate()
		if err != nil {
			return nil, err
		}
		r, err := g.Verify(opts.Categories...)
		if err != nil {
			return nil, err
		}
		exitCode = r.ExitCode()
		return r, nil
	})
}
