package testrunner

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
	"github.com/flanksource/clicky/api/icons"
	"github.com/flanksource/fixturegate/configurator"
	"github.com/flanksource/fixturegate/fixtures"
	"github.com/flanksource/fixturegate/golden"
)

// Outcome of running one fixture under one configuration.
type Outcome string

const (
	OutcomePass          Outcome = "pass"
	OutcomeFail          Outcome = "fail"
	OutcomeGoldenMissing Outcome = "golden-missing"
	OutcomePipelineError Outcome = "pipeline-error"
	OutcomeConfigError   Outcome = "config-error"
	OutcomeSkipped       Outcome = "skipped"
	// OutcomeUpdated is only produced when regenerating goldens
	OutcomeUpdated Outcome = "updated"
)

// Failed is true for every outcome that fails the run.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeFail, OutcomeGoldenMissing, OutcomePipelineError, OutcomeConfigError:
		return true
	}
	return false
}

func (o Outcome) Pretty() api.Text {
	switch o {
	case OutcomePass:
		return clicky.Text("").Add(icons.Pass).Append(" pass", "text-green-500")
	case OutcomeUpdated:
		return clicky.Text("").Add(icons.Check).Append(" updated", "text-blue-500")
	case OutcomeSkipped:
		return clicky.Text("").Add(icons.Skip).Append(" skipped", "text-gray-500")
	case OutcomeGoldenMissing:
		return clicky.Text("").Add(icons.Fail).Append(" golden missing", "text-orange-500")
	default:
		return clicky.Text("").Add(icons.Fail).Append(" "+string(o), "text-red-500")
	}
}

// ErrTimeout is the cause of a PipelineError when a fixture exceeds its timeout.
var ErrTimeout = errors.New("pipeline timed out")

// PipelineError means the analysis pipeline itself failed for a fixture: it crashed,
// timed out or produced unreadable output. It never affects other fixtures.
type PipelineError struct {
	Fixture  string
	Pipeline string
	Err      error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s failed for %s: %v", e.Pipeline, e.Fixture, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one fixture run. Durations are kept out of the JSON form
// so that reports are reproducible.
type Result struct {
	Fixture  fixtures.Fixture   `json:"fixture"`
	Tuple    configurator.Tuple `json:"tuple"`
	Outcome  Outcome            `json:"outcome"`
	Golden   string             `json:"golden,omitempty"`
	Diff     *golden.Diff       `json:"diff,omitempty"`
	Error    string             `json:"error,omitempty"`
	Err      error              `json:"-"`
	Duration time.Duration      `json:"-"`
}

func (r Result) withError(outcome Outcome, err error) Result {
	r.Outcome = outcome
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func (r Result) Pretty() api.Text {
	t := r.Outcome.Pretty().Space().Append(r.Fixture.Path, "font-medium").Space().Append(r.Tuple.String(), "text-muted")
	if r.Duration > 0 {
		t = t.Space().Append(r.Duration.Round(time.Millisecond).String(), "text-gray-400")
	}
	if r.Error != "" {
		t = t.NewLine().Append("  "+r.Error, "text-red-500")
	}
	if r.Diff != nil && !r.Diff.Empty() {
		t = t.NewLine().Append(r.Diff.Pretty())
	}
	return t
}

// Results are ordered by fixture path, then tuple.
type Results []Result

func (rs Results) Sort() {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Fixture.Path != rs[j].Fixture.Path {
			return rs[i].Fixture.Path < rs[j].Fixture.Path
		}
		return rs[i].Tuple.String() < rs[j].Tuple.String()
	})
}

func (rs Results) Failed() Results {
	var out Results
	for _, r := range rs {
		if r.Outcome.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// Summary counts results per outcome.
type Summary struct {
	Total         int `json:"total"`
	Passed        int `json:"passed"`
	Failed        int `json:"failed,omitempty"`
	GoldenMissing int `json:"goldenMissing,omitempty"`
	PipelineError int `json:"pipelineError,omitempty"`
	ConfigError   int `json:"configError,omitempty"`
	Skipped       int `json:"skipped,omitempty"`
	Updated       int `json:"updated,omitempty"`
}

func (rs Results) Sum() Summary {
	s := Summary{Total: len(rs)}
	for _, r := range rs {
		switch r.Outcome {
		case OutcomePass:
			s.Passed++
		case OutcomeFail:
			s.Failed++
		case OutcomeGoldenMissing:
			s.GoldenMissing++
		case OutcomePipelineError:
			s.PipelineError++
		case OutcomeConfigError:
			s.ConfigError++
		case OutcomeSkipped:
			s.Skipped++
		case OutcomeUpdated:
			s.Updated++
		}
	}
	return s
}

// Failures is the number of results that fail the run.
func (s Summary) Failures() int {
	return s.Failed + s.GoldenMissing + s.PipelineError + s.ConfigError
}

func (s Summary) Pretty() api.Text {
	t := clicky.Text(fmt.Sprintf("%d passed", s.Passed), "text-green-500")
	add := func(n int, label, style string) {
		if n > 0 {
			t = t.Append(", ", "text-muted").Append(fmt.Sprintf("%d %s", n, label), style)
		}
	}
	add(s.Failed, "failed", "text-red-500")
	add(s.GoldenMissing, "golden missing", "text-orange-500")
	add(s.PipelineError, "pipeline errors", "text-red-500")
	add(s.ConfigError, "config errors", "text-red-500")
	add(s.Skipped, "skipped", "text-gray-500")
	add(s.Updated, "updated", "text-blue-500")
	return t.Append(fmt.Sprintf(" of %d", s.Total), "text-muted")
}
