package testrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/fixturegate/configurator"
	"github.com/flanksource/fixturegate/fixtures"
	"github.com/flanksource/fixturegate/golden"
	"github.com/flanksource/fixturegate/pipeline"
)

// Mode decides whether goldens are compared or rewritten.
type Mode string

const (
	ModeVerify     Mode = "verify"
	ModeRegenerate Mode = "regenerate"
)

const DefaultTimeout = 60 * time.Second

// Runner runs a single fixture through its configuration's pipeline and compares the
// output with the golden file. It holds no per-fixture state and is safe for
// concurrent use.
type Runner struct {
	Pipelines *pipeline.Registry
	Mode      Mode
	// Timeout applies when the configuration has none
	Timeout time.Duration

	rules pipeline.SkipRules
}

func NewRunner(pipelines *pipeline.Registry, mode Mode) *Runner {
	if pipelines == nil {
		pipelines = pipeline.DefaultRegistry
	}
	if mode == "" {
		mode = ModeVerify
	}
	return &Runner{Pipelines: pipelines, Mode: mode, Timeout: DefaultTimeout}
}

type analysis struct {
	out pipeline.Output
	err error
}

// Run produces exactly one Result; it never returns an error for a fixture-local
// failure.
func (r *Runner) Run(ctx context.Context, f fixtures.Fixture, cfg configurator.Configuration) Result {
	start := time.Now()
	res := r.run(ctx, f, cfg)
	res.Duration = time.Since(start)
	logger.V(3).Infof("%s %s: %s", f.Path, cfg.Tuple, res.Outcome)
	return res
}

func (r *Runner) run(ctx context.Context, f fixtures.Fixture, cfg configurator.Configuration) Result {
	res := Result{Fixture: f, Tuple: cfg.Tuple}

	content, err := f.Load()
	if err != nil {
		return res.withError(OutcomePipelineError, &PipelineError{Fixture: f.Path, Pipeline: cfg.Pipeline, Err: err})
	}
	directives := fixtures.ParseDirectives(content)

	rule, err := r.rules.Get(cfg.SkipIf)
	if err != nil {
		return res.withError(OutcomeConfigError, err)
	}
	skip, err := rule.Skip(directives, cfg.Tuple.AsMap())
	if err != nil {
		return res.withError(OutcomeConfigError, err)
	}
	if skip {
		res.Outcome = OutcomeSkipped
		return res
	}

	p, err := r.Pipelines.Get(cfg.Pipeline)
	if err != nil {
		return res.withError(OutcomeConfigError, err)
	}

	out, err := r.analyze(ctx, p, pipeline.Input{
		Fixture:       f,
		Content:       content,
		Directives:    directives,
		Configuration: cfg,
	}, r.timeout(cfg))
	if err != nil {
		return res.withError(OutcomePipelineError, &PipelineError{Fixture: f.Path, Pipeline: p.Name(), Err: err})
	}

	actual, err := pipeline.Decode(out.Format, out.Raw)
	if err != nil {
		return res.withError(OutcomePipelineError, &PipelineError{Fixture: f.Path, Pipeline: p.Name(), Err: err})
	}

	if r.Mode == ModeRegenerate {
		return r.regenerate(res, f, cfg, actual)
	}

	path, ok := golden.Find(f.AbsPath(), cfg.GoldenSuffixes)
	if !ok {
		res.Outcome = OutcomeGoldenMissing
		res.Golden = relative(f, golden.Path(f.AbsPath(), firstOr(cfg.GoldenSuffixes, "")))
		return res
	}
	res.Golden = relative(f, path)

	expected, err := os.ReadFile(path)
	if err != nil {
		return res.withError(OutcomeFail, fmt.Errorf("failed to read golden %s: %w", path, err))
	}
	want, err := pipeline.Decode(actual.Format, expected)
	if err != nil {
		return res.withError(OutcomeFail, fmt.Errorf("invalid golden %s: %w", path, err))
	}
	diff := golden.CompareDocuments(want, actual)
	if diff.Empty() {
		res.Outcome = OutcomePass
		return res
	}
	res.Outcome = OutcomeFail
	res.Diff = &diff
	return res
}

func (r *Runner) regenerate(res Result, f fixtures.Fixture, cfg configurator.Configuration, actual pipeline.Document) Result {
	target, err := golden.Target(f.AbsPath(), cfg.GoldenSuffixes)
	if err != nil {
		return res.withError(OutcomeConfigError, err)
	}
	res.Golden = relative(f, target)
	if existing, err := os.ReadFile(target); err == nil {
		if want, err := pipeline.Decode(actual.Format, existing); err == nil && golden.CompareDocuments(want, actual).Empty() {
			res.Outcome = OutcomePass
			return res
		}
	}
	if err := golden.Write(target, []byte(actual.Text)); err != nil {
		return res.withError(OutcomeFail, err)
	}
	res.Outcome = OutcomeUpdated
	return res
}

// analyze bounds the pipeline by timeout even when it ignores its context. A panic
// inside the pipeline is returned as an error.
func (r *Runner) analyze(ctx context.Context, p pipeline.Pipeline, in pipeline.Input, timeout time.Duration) (pipeline.Output, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan analysis, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				done <- analysis{err: fmt.Errorf("panic: %v", v)}
			}
		}()
		out, err := p.Analyze(runCtx, in)
		done <- analysis{out: out, err: err}
	}()

	var a analysis
	select {
	case a = <-done:
	case <-runCtx.Done():
		a.err = runCtx.Err()
	}

	if a.err != nil && errors.Is(a.err, context.DeadlineExceeded) && ctx.Err() == nil {
		return a.out, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return a.out, a.err
}

func (r *Runner) timeout(cfg configurator.Configuration) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

// relative returns p relative to the fixture root, slash separated.
func relative(f fixtures.Fixture, p string) string {
	if rel, err := filepath.Rel(f.Root, p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}

func firstOr(list []string, def string) string {
	if len(list) == 0 {
		return def
	}
	return list[0]
}
