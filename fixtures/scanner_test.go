package fixtures_test

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"

	"github.com/flanksource/fixturegate/fixtures"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func touch(root string, files ...string) {
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		Expect(os.MkdirAll(filepath.Dir(p), 0o755)).To(Succeed())
		Expect(os.WriteFile(p, []byte("fun main() {}\n"), 0o644)).To(Succeed())
	}
}

var _ = Describe("Scan", func() {
	var root string
	kt := regexp.MustCompile(`^(.+)\.kt$`)
	fir := regexp.MustCompile(`^(.+)\.fir\.kts?$`)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		touch(root,
			"b.kt",
			"a.kt",
			"a.txt",
			"a.fir.kt",
			"errors/objectWithTypeArgsAsExpression.kt",
			"errors/objectWithTypeArgsAsExpression.txt",
			"errors/nested/deep.kt",
			"tmp/scratch.kt",
		)
	})

	It("returns matching files ordered by relative path", func() {
		list, err := fixtures.Scan(fixtures.ScanOptions{Root: root, Include: kt, Exclude: fir})
		Expect(err).NotTo(HaveOccurred())
		Expect(fixtures.Paths(list)).To(Equal([]string{
			"a.kt",
			"b.kt",
			"errors/nested/deep.kt",
			"errors/objectWithTypeArgsAsExpression.kt",
			"tmp/scratch.kt",
		}))
		Expect(list[0].Root).To(Equal(root))
	})

	It("counts stricter variants in their own category", func() {
		list, err := fixtures.Scan(fixtures.ScanOptions{Root: root, Include: fir})
		Expect(err).NotTo(HaveOccurred())
		Expect(fixtures.Paths(list)).To(Equal([]string{"a.fir.kt"}))
	})

	It("skips directories matching SkipDirs", func() {
		list, err := fixtures.Scan(fixtures.ScanOptions{Root: root, Include: kt, Exclude: fir, SkipDirs: []string{"tmp", "**/nested"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(fixtures.Paths(list)).To(Equal([]string{"a.kt", "b.kt", "errors/objectWithTypeArgsAsExpression.kt"}))
	})

	It("is stable across runs", func() {
		first, err := fixtures.Scan(fixtures.ScanOptions{Root: root, Include: kt})
		Expect(err).NotTo(HaveOccurred())
		second, err := fixtures.Scan(fixtures.ScanOptions{Root: root, Include: kt})
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("fails when the root does not exist", func() {
		_, err := fixtures.Scan(fixtures.ScanOptions{Root: filepath.Join(root, "missing"), Include: kt})
		var scanErr *fixtures.ScanError
		Expect(errors.As(err, &scanErr)).To(BeTrue())
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})

	It("fails when the root is a file", func() {
		_, err := fixtures.Scan(fixtures.ScanOptions{Root: filepath.Join(root, "a.kt"), Include: kt})
		Expect(err).To(MatchError(ContainSubstring("not a directory")))
	})

	It("fails without a root", func() {
		_, err := fixtures.Scan(fixtures.ScanOptions{Include: kt})
		Expect(err).To(HaveOccurred())
	})

	Context("with symlinks", func() {
		BeforeEach(func() {
			Expect(os.Symlink(filepath.Join(root, "errors"), filepath.Join(root, "linked"))).To(Succeed())
		})

		It("does not traverse symlinked directories by default", func() {
			list, err := fixtures.Scan(fixtures.ScanOptions{Root: root, Include: kt, Exclude: fir})
			Expect(err).NotTo(HaveOccurred())
			Expect(fixtures.Paths(list)).NotTo(ContainElement(HavePrefix("linked/")))
		})

		It("follows symlinked directories when asked", func() {
			list, err := fixtures.Scan(fixtures.ScanOptions{Root: root, Include: kt, Exclude: fir, FollowSymlinks: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(fixtures.Paths(list)).To(ContainElement("linked/objectWithTypeArgsAsExpression.kt"))
		})

		It("reports a cycle", func() {
			Expect(os.Symlink(root, filepath.Join(root, "errors", "loop"))).To(Succeed())
			_, err := fixtures.Scan(fixtures.ScanOptions{Root: root, Include: kt, FollowSymlinks: true})
			Expect(errors.Is(err, fixtures.ErrSymlinkCycle)).To(BeTrue())
		})

		It("skips dangling symlinks", func() {
			Expect(os.Symlink(filepath.Join(root, "nowhere.kt"), filepath.Join(root, "dangling.kt"))).To(Succeed())
			list, err := fixtures.Scan(fixtures.ScanOptions{Root: root, Include: kt, FollowSymlinks: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(fixtures.Paths(list)).NotTo(ContainElement("dangling.kt"))
		})
	})
})
