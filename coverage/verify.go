package coverage

import (
	"fmt"
	"path"
	"sort"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
	"github.com/samber/lo"
)

// Policy controls which discrepancies fail a run.
type Policy struct {
	// AllowOrphaned reports registry entries without a fixture as warnings
	AllowOrphaned bool `json:"allowOrphaned,omitempty"`
}

// Report lists the discrepancies between a fixture set, the generated registry and
// the suppression list. Every list is sorted.
type Report struct {
	// Missing fixtures have neither a generated test nor a suppression
	Missing []string `json:"missing,omitempty"`
	// Stale suppressions name fixtures that no longer exist
	Stale []string `json:"stale,omitempty"`
	// Orphaned registry entries name fixtures that no longer exist
	Orphaned []string `json:"orphaned,omitempty"`
}

// Verify computes
//
//	missing  = fixtures - registry - suppressed
//	stale    = suppressed - fixtures
//	orphaned = registry - fixtures
func Verify(fixtureSet []string, registry *Registry, suppressed []string) Report {
	return verify(fixtureSet, registry.Keys(), suppressed)
}

func verify(fixtureSet, keys, suppressed []string) Report {
	fixtureSet = clean(fixtureSet)
	keys = clean(keys)
	suppressed = clean(suppressed)

	covered := lo.Union(keys, suppressed)
	missing, _ := lo.Difference(fixtureSet, covered)
	stale, _ := lo.Difference(suppressed, fixtureSet)
	orphaned, _ := lo.Difference(keys, fixtureSet)

	return Report{
		Missing:  sorted(missing),
		Stale:    sorted(stale),
		Orphaned: sorted(orphaned),
	}
}

func clean(ids []string) []string {
	return lo.Uniq(lo.Map(ids, func(id string, _ int) string { return path.Clean(id) }))
}

func sorted(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	return ids
}

// OK is true when there is no discrepancy of any kind.
func (r Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Stale) == 0 && len(r.Orphaned) == 0
}

// Passes applies the policy: orphaned entries only fail when not allowed.
func (r Report) Passes(policy Policy) bool {
	if len(r.Missing) > 0 || len(r.Stale) > 0 {
		return false
	}
	return policy.AllowOrphaned || len(r.Orphaned) == 0
}

// Count is the total number of discrepancies.
func (r Report) Count() int {
	return len(r.Missing) + len(r.Stale) + len(r.Orphaned)
}

// Merge concatenates two reports and re-sorts.
func (r Report) Merge(other Report) Report {
	return Report{
		Missing:  sorted(append(append([]string{}, r.Missing...), other.Missing...)),
		Stale:    sorted(append(append([]string{}, r.Stale...), other.Stale...)),
		Orphaned: sorted(append(append([]string{}, r.Orphaned...), other.Orphaned...)),
	}
}

func (r Report) Pretty() api.Text {
	if r.OK() {
		return clicky.Text("no discrepancies", "text-green-500")
	}
	t := clicky.Text("")
	t = appendList(t, "missing", r.Missing, "text-red-500")
	t = appendList(t, "stale suppression", r.Stale, "text-yellow-600")
	t = appendList(t, "orphaned", r.Orphaned, "text-orange-500")
	return t
}

func appendList(t api.Text, label string, ids []string, style string) api.Text {
	for _, id := range ids {
		if !t.IsEmpty() {
			t = t.NewLine()
		}
		t = t.Append(fmt.Sprintf("%-18s", label), style).Append(id, "")
	}
	return t
}
