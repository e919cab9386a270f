package testrunner

import (
	"context"
	"fmt"
	"sync"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/task"
	commonsCtx "github.com/flanksource/commons/context"
	"github.com/flanksource/commons/logger"
	"github.com/flanksource/fixturegate/configurator"
	"github.com/flanksource/fixturegate/fixtures"
	"github.com/flanksource/fixturegate/golden"
)

// Job is one fixture to run under the configuration resolved for Tuple.
type Job struct {
	Fixture fixtures.Fixture
	Tuple   configurator.Tuple
}

// Batch runs jobs in parallel, each isolated from the others.
type Batch struct {
	Runner   *Runner
	Resolver *configurator.Resolver
	// Lock is taken shared for verification and exclusive for regeneration
	Lock *golden.Lock
}

// Run executes every job and returns the results of the jobs that completed. When
// ctx is cancelled, jobs that had not finished are absent from the results and
// ctx.Err() is returned.
func (b *Batch) Run(ctx context.Context, name string, jobs []Job) (Results, error) {
	if b.Lock != nil {
		acquire := b.Lock.RLock
		if b.Runner.Mode == ModeRegenerate {
			acquire = b.Lock.Lock
		}
		unlock, err := acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	var (
		mu      sync.Mutex
		results Results
	)
	record := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		results = append(results, r)
	}

	group := task.StartGroup[Result](name)
	for _, job := range jobs {
		cfg, err := b.Resolver.Resolve(job.Tuple)
		if err != nil {
			// an unresolved tuple fails this fixture only
			record(Result{Fixture: job.Fixture, Tuple: job.Tuple}.withError(OutcomeConfigError, err))
			continue
		}

		job := job
		timeout := b.Runner.timeout(cfg)
		group.Add(fmt.Sprintf("%s %s", job.Fixture.Path, job.Tuple), func(_ commonsCtx.Context, t *task.Task) (Result, error) {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			res := b.Runner.Run(ctx, job.Fixture, cfg)
			record(res)
			if res.Outcome.Failed() {
				t.Failed()
			} else {
				t.Success()
			}
			return res, nil
		}, clicky.WithTaskTimeout(2*timeout))
	}

	if wait := group.WaitFor(); wait.Error != nil {
		logger.V(2).Infof("%s: %v", name, wait.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	results.Sort()
	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}
