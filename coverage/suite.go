package coverage

import (
	"fmt"
	"path"
	"sort"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
	"github.com/flanksource/commons/logger"
	"github.com/flanksource/fixturegate/fixtures"
	"github.com/samber/lo"
)

// NodeReport is the verification result of a single suite node.
type NodeReport struct {
	Name  string `json:"name"`
	Dir   string `json:"dir"`
	Suite string `json:"suite"`
	// Detached reports have no suite node: registry entries or suppressions in a
	// directory that holds no fixtures.
	Detached bool `json:"detached,omitempty"`
	Fixtures int  `json:"fixtures"`
	Report
}

// SuiteReport holds one NodeReport per suite node in pre-order, followed by the
// detached reports sorted by directory.
type SuiteReport struct {
	Name   string       `json:"name"`
	Policy Policy       `json:"policy"`
	Nodes  []NodeReport `json:"nodes"`
}

// VerifySuite verifies every node of the tree against the registry entries and
// suppressions of its own directory.
func VerifySuite(root *fixtures.SuiteNode, registry *Registry, policy Policy) SuiteReport {
	byDir := registry.ByDir()
	out := SuiteReport{Name: root.Name, Policy: policy}

	root.Walk(func(node *fixtures.SuiteNode) {
		keys := byDir[node.Dir]
		delete(byDir, node.Dir)
		r := verify(fixtures.Paths(node.Fixtures), keys, node.Suppressed)
		out.Nodes = append(out.Nodes, NodeReport{
			Name:     node.Name,
			Dir:      node.Dir,
			Suite:    node.SuitePath(),
			Fixtures: len(node.Fixtures),
			Report:   r,
		})
		if !r.OK() {
			logger.V(2).Infof("%s: %d missing, %d stale, %d orphaned", node.SuitePath(), len(r.Missing), len(r.Stale), len(r.Orphaned))
		}
	})

	dirs := lo.Uniq(append(lo.Keys(byDir), lo.Keys(root.UnmatchedSuppressions)...))
	sort.Strings(dirs)
	for _, dir := range dirs {
		r := verify(nil, byDir[dir], root.UnmatchedSuppressions[dir])
		out.Nodes = append(out.Nodes, NodeReport{
			Name:     path.Base(dir),
			Dir:      dir,
			Suite:    root.Name + " > " + dir,
			Detached: true,
			Report:   r,
		})
	}
	return out
}

// Aggregate merges all node reports.
func (s SuiteReport) Aggregate() Report {
	var total Report
	for _, n := range s.Nodes {
		total = total.Merge(n.Report)
	}
	return total
}

// OK is true when no node has a discrepancy that fails under the policy.
func (s SuiteReport) OK() bool {
	for _, n := range s.Nodes {
		if !n.Passes(s.Policy) {
			return false
		}
	}
	return true
}

// Failing returns the reports of nodes that fail under the policy.
func (s SuiteReport) Failing() []NodeReport {
	return lo.Filter(s.Nodes, func(n NodeReport, _ int) bool { return !n.Passes(s.Policy) })
}

func (n NodeReport) Pretty() api.Text {
	t := clicky.Text(n.Suite, "font-bold")
	if n.Detached {
		t = t.Space().Append("(no fixtures)", "text-muted")
	} else {
		t = t.Space().Append(fmt.Sprintf("(%d fixtures)", n.Fixtures), "text-muted")
	}
	if n.OK() {
		return t
	}
	return t.NewLine().Append(n.Report.Pretty())
}

func (s SuiteReport) Pretty() api.Text {
	agg := s.Aggregate()
	t := clicky.Text(s.Name, "text-blue-600 font-bold").Space()
	if s.OK() {
		t = t.Append(fmt.Sprintf("covered (%d nodes)", len(s.Nodes)), "text-green-500")
		if len(agg.Orphaned) > 0 {
			t = t.Space().Append(fmt.Sprintf("%d orphaned allowed", len(agg.Orphaned)), "text-yellow-500")
		}
		return t
	}
	t = t.Append(fmt.Sprintf("%d missing, %d stale, %d orphaned", len(agg.Missing), len(agg.Stale), len(agg.Orphaned)), "text-red-500")
	for _, n := range s.Nodes {
		if n.OK() {
			continue
		}
		t = t.NewLine().Append(n.Pretty())
	}
	return t
}
