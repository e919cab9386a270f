package coverage_test

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/flanksource/fixturegate/coverage"
	"github.com/flanksource/fixturegate/fixtures"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func fixtureList(ids ...string) []fixtures.Fixture {
	var out []fixtures.Fixture
	for _, id := range ids {
		out = append(out, fixtures.NewFixture("/data", id))
	}
	return out
}

func registry(ids ...string) *coverage.Registry {
	flags := map[string]bool{}
	for _, id := range ids {
		flags[id] = true
	}
	return coverage.NewRegistry(flags)
}

var _ = Describe("Verify", func() {
	It("reports a fixture without a generated test as missing", func() {
		r := coverage.Verify([]string{"a.src", "b.src"}, registry("a.src"), nil)
		Expect(r.Missing).To(Equal([]string{"b.src"}))
		Expect(r.Stale).To(BeEmpty())
		Expect(r.Orphaned).To(BeEmpty())
		Expect(r.OK()).To(BeFalse())
	})

	It("reports a registry entry without a fixture as orphaned", func() {
		r := coverage.Verify([]string{"a.src"}, registry("a.src", "c.src"), nil)
		Expect(r.Orphaned).To(Equal([]string{"c.src"}))
		Expect(r.Missing).To(BeEmpty())
		Expect(r.OK()).To(BeFalse())
		Expect(r.Passes(coverage.Policy{})).To(BeFalse())
		Expect(r.Passes(coverage.Policy{AllowOrphaned: true})).To(BeTrue())
	})

	It("excludes suppressed fixtures from missing", func() {
		r := coverage.Verify([]string{"a.src", "b.src"}, registry("a.src"), []string{"b.src"})
		Expect(r.OK()).To(BeTrue())
	})

	It("reports suppressions that match no fixture as stale", func() {
		r := coverage.Verify([]string{"a.src"}, registry("a.src"), []string{"gone.src"})
		Expect(r.Stale).To(Equal([]string{"gone.src"}))
		Expect(r.OK()).To(BeFalse())
	})

	It("ignores entries that are not generated", func() {
		reg := coverage.NewRegistry(map[string]bool{"a.src": true, "b.src": false})
		Expect(reg.Keys()).To(Equal([]string{"a.src"}))
		r := coverage.Verify([]string{"a.src"}, reg, nil)
		Expect(r.OK()).To(BeTrue())
	})

	It("treats a nil registry as empty", func() {
		r := coverage.Verify([]string{"a.src"}, nil, nil)
		Expect(r.Missing).To(Equal([]string{"a.src"}))
	})

	It("sorts every list", func() {
		r := coverage.Verify([]string{"z", "m", "a"}, registry("q", "b"), []string{"y", "x"})
		Expect(r.Missing).To(Equal([]string{"a", "m", "z"}))
		Expect(r.Stale).To(Equal([]string{"x", "y"}))
		Expect(r.Orphaned).To(Equal([]string{"b", "q"}))
	})

	DescribeTable("completeness: every fixture is covered, suppressed or missing",
		func(fixtureSet, keys, suppressed []string) {
			r := coverage.Verify(fixtureSet, registry(keys...), suppressed)
			for _, id := range fixtureSet {
				covered := registry(keys...).Has(id)
				isSuppressed := false
				for _, s := range suppressed {
					if s == id {
						isSuppressed = true
					}
				}
				if !covered && !isSuppressed {
					Expect(r.Missing).To(ContainElement(id))
				} else {
					Expect(r.Missing).NotTo(ContainElement(id))
				}
			}
		},
		Entry("empty", nil, nil, nil),
		Entry("all covered", []string{"a", "b"}, []string{"a", "b"}, nil),
		Entry("mixed", []string{"a", "b", "c", "d"}, []string{"a"}, []string{"c"}),
		Entry("nested", []string{"x/a", "x/b", "y/c"}, []string{"x/a"}, []string{"y/c"}),
	)
})

var _ = Describe("VerifySuite", func() {
	var list []fixtures.Fixture

	BeforeEach(func() {
		list = fixtureList("a.src", "b.src", "errors/e1.src", "errors/e2.src")
	})

	It("verifies each node independently", func() {
		suite := fixtures.BuildSuite("root", "/data", list, nil)
		report := coverage.VerifySuite(suite, registry("a.src", "b.src", "errors/e1.src", "errors/e2.src"), coverage.Policy{})

		Expect(report.Nodes).To(HaveLen(2))
		Expect(report.Nodes[0].Dir).To(Equal("."))
		Expect(report.Nodes[1].Dir).To(Equal("errors"))
		Expect(report.Nodes[0].OK()).To(BeTrue())
		Expect(report.Nodes[1].OK()).To(BeTrue())
		Expect(report.OK()).To(BeTrue())
	})

	It("fails only the node that lost coverage", func() {
		suite := fixtures.BuildSuite("root", "/data", list, nil)
		report := coverage.VerifySuite(suite, registry("a.src", "b.src", "errors/e1.src"), coverage.Policy{})

		Expect(report.Nodes[0].OK()).To(BeTrue())
		Expect(report.Nodes[1].Missing).To(Equal([]string{"errors/e2.src"}))
		Expect(report.OK()).To(BeFalse())
		Expect(report.Failing()).To(HaveLen(1))
		Expect(report.Failing()[0].Dir).To(Equal("errors"))
	})

	It("scopes suppressions to their directory", func() {
		suite := fixtures.BuildSuite("root", "/data", list, []string{"errors/e2.src"})
		report := coverage.VerifySuite(suite, registry("a.src", "b.src", "errors/e1.src"), coverage.Policy{})
		Expect(report.OK()).To(BeTrue())
	})

	It("reports registry entries in directories without fixtures as detached", func() {
		suite := fixtures.BuildSuite("root", "/data", list, []string{"removed/old.src"})
		report := coverage.VerifySuite(suite, registry("a.src", "b.src", "errors/e1.src", "errors/e2.src", "gone/x.src"), coverage.Policy{})

		Expect(report.Nodes).To(HaveLen(4))
		Expect(report.Nodes[2].Detached).To(BeTrue())
		Expect(report.Nodes[2].Dir).To(Equal("gone"))
		Expect(report.Nodes[2].Orphaned).To(Equal([]string{"gone/x.src"}))
		Expect(report.Nodes[3].Dir).To(Equal("removed"))
		Expect(report.Nodes[3].Stale).To(Equal([]string{"removed/old.src"}))
		Expect(report.OK()).To(BeFalse())
	})

	It("demotes orphaned entries under AllowOrphaned", func() {
		suite := fixtures.BuildSuite("root", "/data", fixtureList("a.src"), nil)
		report := coverage.VerifySuite(suite, registry("a.src", "c.src"), coverage.Policy{AllowOrphaned: true})
		Expect(report.Aggregate().Orphaned).To(Equal([]string{"c.src"}))
		Expect(report.OK()).To(BeTrue())
	})

	It("aggregates to the same result as a flat verification", func() {
		reg := registry("a.src", "errors/e1.src", "gone/x.src")
		suppressed := []string{"b.src", "removed/old.src"}
		suite := fixtures.BuildSuite("root", "/data", list, suppressed)

		flat := coverage.Verify(fixtures.Paths(list), reg, suppressed)
		Expect(coverage.VerifySuite(suite, reg, coverage.Policy{}).Aggregate()).To(Equal(flat))
	})

	It("is idempotent", func() {
		reg := registry("a.src", "errors/e1.src", "gone/x.src")
		first, err := json.Marshal(coverage.VerifySuite(fixtures.BuildSuite("root", "/data", list, []string{"b.src"}), reg, coverage.Policy{}))
		Expect(err).NotTo(HaveOccurred())
		second, err := json.Marshal(coverage.VerifySuite(fixtures.BuildSuite("root", "/data", list, []string{"b.src"}), reg, coverage.Policy{}))
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})
})

var _ = Describe("LoadRegistry", func() {
	write := func(content string) string {
		file := filepath.Join(GinkgoT().TempDir(), "registry.yaml")
		Expect(os.WriteFile(file, []byte(content), 0o644)).To(Succeed())
		return file
	}

	It("reads the generator manifest", func() {
		reg, err := coverage.LoadRegistry(write(`
category: diagnostics
entries:
  - id: errors/objectWithTypeArgsAsExpression.kt
    test: TestErrors/TestObjectWithTypeArgsAsExpression
    generated: true
  - id: errors/pending.kt
    generated: false
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(reg.Category).To(Equal("diagnostics"))
		Expect(reg.Keys()).To(Equal([]string{"errors/objectWithTypeArgsAsExpression.kt"}))
		entry, ok := reg.Entry("errors/objectWithTypeArgsAsExpression.kt")
		Expect(ok).To(BeTrue())
		Expect(entry.Test).To(Equal("TestErrors/TestObjectWithTypeArgsAsExpression"))
	})

	It("reads JSON manifests", func() {
		reg, err := coverage.LoadRegistry(write(`{"entries": [{"id": "a.kt", "generated": true}]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(reg.Keys()).To(Equal([]string{"a.kt"}))
	})

	It("rejects duplicate entries", func() {
		_, err := coverage.LoadRegistry(write("entries:\n  - {id: a.kt, generated: true}\n  - {id: ./a.kt, generated: true}\n"))
		Expect(err).To(MatchError(ContainSubstring("duplicate entry a.kt")))
	})

	It("rejects entries without id", func() {
		_, err := coverage.LoadRegistry(write("entries:\n  - {generated: true}\n"))
		Expect(err).To(HaveOccurred())
	})

	It("fails on a missing file", func() {
		_, err := coverage.LoadRegistry(filepath.Join(GinkgoT().TempDir(), "nope.yaml"))
		Expect(err).To(HaveOccurred())
	})
})
