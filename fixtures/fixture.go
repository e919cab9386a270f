package fixtures

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
)

// Fixture is a single test-data file found under a category root.
// Path is the fixture identifier: slash separated and relative to Root.
type Fixture struct {
	Path string `json:"path"`
	Root string `json:"-"`
}

// NewFixture builds a fixture from a category root and a relative path in either
// slash or OS-specific form.
func NewFixture(root, rel string) Fixture {
	return Fixture{Root: root, Path: filepath.ToSlash(filepath.Clean(rel))}
}

// AbsPath returns the location of the fixture on disk.
func (f Fixture) AbsPath() string {
	return filepath.Join(f.Root, filepath.FromSlash(f.Path))
}

// Dir returns the slash separated directory of the fixture relative to the root,
// "." for fixtures directly under the root.
func (f Fixture) Dir() string {
	return path.Dir(f.Path)
}

// Name returns the file name of the fixture.
func (f Fixture) Name() string {
	return path.Base(f.Path)
}

// Load reads the fixture content. Content is not cached, the tree is read fresh on
// every run.
func (f Fixture) Load() ([]byte, error) {
	data, err := os.ReadFile(f.AbsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", f.Path, err)
	}
	return data, nil
}

// TestName is the identifier a generated test for this fixture is expected to carry.
func (f Fixture) TestName() string {
	return "Test" + Identifier(StripExtension(f.Name()))
}

// QualifiedTestName includes the names of the enclosing suite nodes, e.g.
// TestErrors/TestObjectWithTypeArgsAsExpression.
func (f Fixture) QualifiedTestName() string {
	dir := f.Dir()
	if dir == "." {
		return f.TestName()
	}
	var parts []string
	for _, segment := range strings.Split(dir, "/") {
		parts = append(parts, "Test"+Identifier(segment))
	}
	return strings.Join(append(parts, f.TestName()), "/")
}

func (f Fixture) String() string {
	return f.Path
}

func (f Fixture) Pretty() api.Text {
	return clicky.Text(f.Path, "text-blue-500").Space().Append(f.TestName(), "text-muted")
}

// Paths returns the identifiers of the given fixtures, preserving order.
func Paths(list []Fixture) []string {
	out := make([]string, 0, len(list))
	for _, f := range list {
		out = append(out, f.Path)
	}
	return out
}
