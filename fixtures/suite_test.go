package fixtures_test

import (
	"github.com/flanksource/fixturegate/fixtures"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func list(ids ...string) []fixtures.Fixture {
	var out []fixtures.Fixture
	for _, id := range ids {
		out = append(out, fixtures.NewFixture("/data", id))
	}
	return out
}

var _ = Describe("BuildSuite", func() {
	It("creates one node per directory", func() {
		suite := fixtures.BuildSuite("diagnostics", "/data", list(
			"a.kt", "errors/x.kt", "errors/b.kt", "syntax/deep/y.kt",
		), nil)

		var dirs []string
		suite.Walk(func(n *fixtures.SuiteNode) { dirs = append(dirs, n.Dir) })
		Expect(dirs).To(Equal([]string{".", "errors", "syntax", "syntax/deep"}))

		errs := suite.Find("errors")
		Expect(errs).NotTo(BeNil())
		Expect(fixtures.Paths(errs.Fixtures)).To(Equal([]string{"errors/b.kt", "errors/x.kt"}))
		Expect(errs.Parent).To(BeIdenticalTo(suite))
		Expect(errs.Depth()).To(Equal(1))
		Expect(errs.SuitePath()).To(Equal("diagnostics > errors"))

		syntax := suite.Find("syntax")
		Expect(syntax.Fixtures).To(BeEmpty())
		Expect(syntax.Children).To(HaveLen(1))
	})

	It("places every fixture in exactly one node", func() {
		in := list("a.kt", "b.kt", "errors/x.kt", "errors/nested/y.kt", "other/z.kt")
		suite := fixtures.BuildSuite("root", "/data", in, nil)

		Expect(fixtures.Paths(suite.All())).To(ConsistOf(fixtures.Paths(in)))
		Expect(suite.All()).To(HaveLen(len(in)))
		Expect(fixtures.Paths(suite.Find("errors").All())).To(ConsistOf("errors/x.kt", "errors/nested/y.kt"))
	})

	It("scopes suppressions by directory", func() {
		suite := fixtures.BuildSuite("root", "/data", list("a.kt", "errors/x.kt"), []string{
			"errors/x.kt", "a.kt", "gone/old.kt",
		})
		Expect(suite.Suppressed).To(Equal([]string{"a.kt"}))
		Expect(suite.Find("errors").Suppressed).To(Equal([]string{"errors/x.kt"}))
		Expect(suite.UnmatchedSuppressions).To(HaveKeyWithValue("gone", []string{"gone/old.kt"}))
	})

	It("builds an empty root for an empty tree", func() {
		suite := fixtures.BuildSuite("root", "/data", nil, nil)
		Expect(suite.Dir).To(Equal("."))
		Expect(suite.Children).To(BeEmpty())
		Expect(suite.All()).To(BeEmpty())
	})

	It("exposes a tree for rendering", func() {
		suite := fixtures.BuildSuite("root", "/data", list("a.kt", "errors/x.kt"), []string{"a.kt"})
		children := suite.Tree().GetChildren()
		Expect(children).To(HaveLen(2))
		Expect(children[0].Pretty().String()).To(ContainSubstring("TestA"))
		Expect(children[0].Pretty().String()).To(ContainSubstring("suppressed"))
		Expect(suite.Find("errors").TestName()).To(Equal("TestErrors"))
	})
})

var _ = Describe("Fixture", func() {
	It("derives identifiers", func() {
		f := fixtures.NewFixture("/data", "errors/anonympuseObjectInInvalidPosition.kt")
		Expect(f.Dir()).To(Equal("errors"))
		Expect(f.Name()).To(Equal("anonympuseObjectInInvalidPosition.kt"))
		Expect(f.TestName()).To(Equal("TestAnonympuseObjectInInvalidPosition"))
		Expect(f.QualifiedTestName()).To(Equal("TestErrors/TestAnonympuseObjectInInvalidPosition"))
		Expect(f.AbsPath()).To(Equal("/data/errors/anonympuseObjectInInvalidPosition.kt"))
	})

	It("uses . for fixtures at the root", func() {
		f := fixtures.NewFixture("/data", "./a.kt")
		Expect(f.Path).To(Equal("a.kt"))
		Expect(f.Dir()).To(Equal("."))
		Expect(f.QualifiedTestName()).To(Equal("TestA"))
	})

	DescribeTable("Identifier",
		func(in, out string) {
			Expect(fixtures.Identifier(in)).To(Equal(out))
		},
		Entry("camel case", "objectWithTypeArgs", "ObjectWithTypeArgs"),
		Entry("dashes", "when-expression", "When_expression"),
		Entry("leading digit", "1stTry", "_1stTry"),
		Entry("empty", "", "_"),
	)

	DescribeTable("StripExtension",
		func(in, out string) {
			Expect(fixtures.StripExtension(in)).To(Equal(out))
		},
		Entry("single", "a.kt", "a"),
		Entry("flavoured", "a.fir.kt", "a"),
		Entry("none", "README", "README"),
		Entry("dotfile", ".hidden", ".hidden"),
	)
})

var _ = Describe("ParseDirectives", func() {
	It("reads leading comment directives across blank lines", func() {
		d := fixtures.ParseDirectives([]byte(`// IGNORE_FIR
// LANGUAGE: +ContextReceivers
// LANGUAGE: -Inline

// WITH_STDLIB
fun main() {}
`))
		Expect(d.Has("IGNORE_FIR")).To(BeTrue())
		Expect(d["IGNORE_FIR"]).To(BeEmpty())
		Expect(d["LANGUAGE"]).To(Equal("+ContextReceivers,-Inline"))
		Expect(d.Has("WITH_STDLIB")).To(BeTrue())
	})

	It("stops at the first code line", func() {
		d := fixtures.ParseDirectives([]byte("package a\n// IGNORE_FIR\n"))
		Expect(d).To(BeEmpty())
	})

	It("ignores lower case comments", func() {
		d := fixtures.ParseDirectives([]byte("// just a comment\n"))
		Expect(d).To(BeEmpty())
	})
})
