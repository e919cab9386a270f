// Package gate checks fixture categories end to end: it scans each fixture tree,
// verifies it against the generated registry and optionally runs every registered
// fixture through the pipeline resolved for the category's tuple.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/flanksource/commons/logger"
	"github.com/flanksource/fixturegate/config"
	"github.com/flanksource/fixturegate/configurator"
	"github.com/flanksource/fixturegate/coverage"
	"github.com/flanksource/fixturegate/fixtures"
	"github.com/flanksource/fixturegate/golden"
	"github.com/flanksource/fixturegate/pipeline"
	"github.com/flanksource/fixturegate/report"
	"github.com/flanksource/fixturegate/testrunner"
)

// Category is a scanned fixture tree with its registry.
type Category struct {
	config.Category
	Suite    *fixtures.SuiteNode
	Fixtures []fixtures.Fixture
	Registry *coverage.Registry
}

// Gate is built once per invocation from the merged configuration.
type Gate struct {
	Config    config.Config
	Pipelines *pipeline.Registry
}

func New(cfg config.Config) *Gate {
	return &Gate{Config: cfg, Pipelines: pipeline.DefaultRegistry}
}

// Scan reads the fixture tree and the registry of a category.
func Scan(cat config.Category) (*Category, error) {
	patterns, err := cat.ScanPatterns()
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", cat.Name, err)
	}
	list, err := fixtures.Scan(fixtures.ScanOptions{
		Root:           cat.RootPath(),
		Include:        patterns.Include,
		Exclude:        patterns.Exclude,
		SkipDirs:       cat.SkipDirs,
		FollowSymlinks: cat.FollowSymlinks,
	})
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", cat.Name, err)
	}

	out := &Category{
		Category: cat,
		Suite:    fixtures.BuildSuite(cat.Name, cat.RootPath(), list, cat.Suppressions),
		Fixtures: list,
	}
	if location := cat.RegistryPath(); location != "" {
		if out.Registry, err = coverage.Load(location); err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Name, err)
		}
	} else {
		logger.Warnf("category %s has no registry, every fixture is reported missing", cat.Name)
	}
	logger.V(1).Infof("%s: %d fixtures, %d registered", cat.Name, len(list), out.Registry.Len())
	return out, nil
}

// Coverage verifies every suite node of the category.
func (c *Category) Coverage() coverage.SuiteReport {
	return coverage.VerifySuite(c.Suite, c.Registry, coverage.Policy{AllowOrphaned: c.AllowOrphaned})
}

// List scans the selected categories without verifying them.
func (g *Gate) List(names ...string) ([]*Category, error) {
	cats, err := g.Config.Select(names...)
	if err != nil {
		return nil, err
	}
	var out []*Category
	for _, cat := range cats {
		scanned, err := Scan(cat)
		if err != nil {
			return nil, err
		}
		out = append(out, scanned)
	}
	return out, nil
}

// Verify checks coverage only. A *fixtures.ScanError aborts the whole verification;
// other category errors, such as an unreadable registry, are reported with the
// category and do not stop the others.
func (g *Gate) Verify(names ...string) (*report.Report, error) {
	cats, err := g.Config.Select(names...)
	if err != nil {
		return nil, err
	}
	r := &report.Report{}
	for _, cat := range cats {
		out, _, err := verify(cat)
		if err != nil {
			return nil, err
		}
		r.Categories = append(r.Categories, out)
	}
	return r, nil
}

func verify(cat config.Category) (report.CategoryReport, *Category, error) {
	out := report.CategoryReport{Name: cat.Name}
	scanned, err := Scan(cat)
	var scanErr *fixtures.ScanError
	if errors.As(err, &scanErr) {
		return out, nil, err
	}
	if err != nil {
		out.Error = err.Error()
		return out, nil, nil
	}
	suite := scanned.Coverage()
	out.Fixtures = len(scanned.Fixtures)
	out.Coverage = &suite
	return out, scanned, nil
}

// RunOptions select what is run and how.
type RunOptions struct {
	Categories []string
	// Filter is a doublestar pattern over fixture identifiers
	Filter string
	// Timeout replaces the category timeout for configurations without their own
	Timeout time.Duration
	Mode    testrunner.Mode
}

// Run verifies coverage and runs every registered fixture of the selected categories.
// Every category is scanned before any pipeline runs, so a *fixtures.ScanError aborts
// the run without results. A cancelled ctx stops the run; the report then holds only
// completed results.
func (g *Gate) Run(ctx context.Context, opts RunOptions) (*report.Report, error) {
	if opts.Filter != "" && !doublestar.ValidatePattern(opts.Filter) {
		return nil, fmt.Errorf("invalid filter %q", opts.Filter)
	}
	cats, err := g.Config.Select(opts.Categories...)
	if err != nil {
		return nil, err
	}
	resolver, err := configurator.FromConfig(g.Config.Configurations)
	if err != nil {
		return nil, err
	}

	outs := make([]report.CategoryReport, 0, len(cats))
	scans := make([]*Category, 0, len(cats))
	for _, cat := range cats {
		out, scanned, err := verify(cat)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
		scans = append(scans, scanned)
	}

	r := &report.Report{}
	for i, out := range outs {
		if ctx.Err() != nil {
			break
		}
		if scanned := scans[i]; scanned != nil {
			results, err := g.run(ctx, scanned, resolver, opts)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				out.Error = err.Error()
			}
			if err == nil || ctx.Err() != nil {
				sum := results.Sum()
				out.Results = results
				out.Summary = &sum
			}
		}
		r.Categories = append(r.Categories, out)
	}
	r.Cancelled = ctx.Err() != nil
	return r, nil
}

func (g *Gate) run(ctx context.Context, cat *Category, resolver *configurator.Resolver, opts RunOptions) (testrunner.Results, error) {
	tuple, err := configurator.ParseTuple(cat.Tuple)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", cat.Name, err)
	}

	runner := testrunner.NewRunner(g.Pipelines, opts.Mode)
	runner.Timeout = cat.TimeoutDuration()
	if opts.Timeout > 0 {
		runner.Timeout = opts.Timeout
	}

	batch := &testrunner.Batch{
		Runner:   runner,
		Resolver: resolver,
		Lock:     golden.NewLock(cat.RootPath()),
	}
	return batch.Run(ctx, cat.Name, Jobs(cat, tuple, opts.Filter))
}

// Jobs selects the fixtures of a category that have a generated test, optionally
// narrowed by a doublestar filter.
func Jobs(c *Category, tuple configurator.Tuple, filter string) []testrunner.Job {
	var jobs []testrunner.Job
	for _, f := range c.Fixtures {
		if !c.Registry.Has(f.Path) {
			continue
		}
		if filter != "" {
			if ok, _ := doublestar.Match(filter, f.Path); !ok {
				continue
			}
		}
		jobs = append(jobs, testrunner.Job{Fixture: f, Tuple: tuple})
	}
	return jobs
}
