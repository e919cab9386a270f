package report

import (
	"fmt"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
	"github.com/flanksource/clicky/api/icons"
	"github.com/flanksource/fixturegate/coverage"
	"github.com/flanksource/fixturegate/testrunner"
	"github.com/samber/lo"
)

// CategoryReport is the outcome of one fixture category: its coverage per suite node
// and, when fixtures were run, one result per fixture.
type CategoryReport struct {
	Name     string                `json:"name"`
	Fixtures int                   `json:"fixtures"`
	Coverage *coverage.SuiteReport `json:"coverage,omitempty"`
	Results  testrunner.Results    `json:"results,omitempty"`
	Summary  *testrunner.Summary   `json:"summary,omitempty"`
	// Error is set when the category could not be scanned or its registry loaded
	Error string `json:"error,omitempty"`
}

// Discrepancies counts the coverage entries that fail under the category policy.
func (c CategoryReport) Discrepancies() int {
	if c.Coverage == nil {
		return 0
	}
	n := 0
	for _, node := range c.Coverage.Failing() {
		n += len(node.Missing) + len(node.Stale)
		if !c.Coverage.Policy.AllowOrphaned {
			n += len(node.Orphaned)
		}
	}
	return n
}

// Failures counts the fixture results that fail the run.
func (c CategoryReport) Failures() int {
	if c.Summary == nil {
		return 0
	}
	return c.Summary.Failures()
}

func (c CategoryReport) OK() bool {
	return c.Error == "" && c.Discrepancies() == 0 && c.Failures() == 0
}

func (c CategoryReport) Pretty() api.Text {
	t := clicky.Text("")
	if c.OK() {
		t = t.Add(icons.Pass)
	} else {
		t = t.Add(icons.Fail)
	}
	t = t.Space().Append(c.Name, "font-bold").Space().Append(fmt.Sprintf("%d fixtures", c.Fixtures), "text-muted")
	if c.Error != "" {
		return t.NewLine().Append("  "+c.Error, "text-red-500")
	}
	if c.Coverage != nil {
		t = t.NewLine().Append(c.Coverage.Pretty())
	}
	if c.Summary != nil {
		for _, r := range c.Results {
			if r.Outcome.Failed() || r.Outcome == testrunner.OutcomeUpdated {
				t = t.NewLine().Append(r.Pretty())
			}
		}
		t = t.NewLine().Append(c.Summary.Pretty())
	}
	return t
}

// Report covers every selected category.
type Report struct {
	Categories []CategoryReport `json:"categories"`
	// Cancelled reports were interrupted; results of unfinished fixtures are absent
	Cancelled bool `json:"cancelled,omitempty"`
}

func (r Report) Discrepancies() int {
	return lo.SumBy(r.Categories, func(c CategoryReport) int { return c.Discrepancies() })
}

func (r Report) Failures() int {
	return lo.SumBy(r.Categories, func(c CategoryReport) int { return c.Failures() })
}

// OK is true only with zero discrepancies, zero failures and no category errors.
func (r Report) OK() bool {
	if r.Cancelled {
		return false
	}
	return lo.EveryBy(r.Categories, func(c CategoryReport) bool { return c.OK() })
}

// ExitCode is 0 when the report is OK and 1 otherwise.
func (r Report) ExitCode() int {
	if r.OK() {
		return 0
	}
	return 1
}

func (r Report) Pretty() api.Text {
	t := clicky.Text("")
	for i, c := range r.Categories {
		if i > 0 {
			t = t.NewLine()
		}
		t = t.Append(c.Pretty()).NewLine()
	}
	if r.Cancelled {
		t = t.Append("cancelled, unfinished fixtures are not reported", "text-yellow-500").NewLine()
	}
	if r.OK() {
		return t.Append(fmt.Sprintf("%d categories verified", len(r.Categories)), "text-green-500 font-bold")
	}
	return t.Append(fmt.Sprintf("%d discrepancies, %d failures", r.Discrepancies(), r.Failures()), "text-red-500 font-bold")
}
