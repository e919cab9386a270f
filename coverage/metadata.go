package coverage

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// MetadataDirective marks a generated test function with the fixture it covers:
//
//	//fixturegate:fixture errors/objectWithTypeArgsAsExpression.kt
//	func TestObjectWithTypeArgsAsExpression(t *testing.T) {
const MetadataDirective = "//fixturegate:fixture "

// LoadTestMetadata builds a registry from the generated Go test files under dir by
// reading the MetadataDirective of each test function.
func LoadTestMetadata(dir string) (*Registry, error) {
	r := &Registry{entries: map[string]Entry{}}
	err := filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(file, "_test.go") {
			return err
		}

		fset := token.NewFileSet()
		node, err := parser.ParseFile(fset, file, nil, parser.ParseComments)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", file, err)
		}

		for _, decl := range node.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Doc == nil || !strings.HasPrefix(fn.Name.Name, "Test") {
				continue
			}
			for _, c := range fn.Doc.List {
				if !strings.HasPrefix(c.Text, MetadataDirective) {
					continue
				}
				id := path.Clean(strings.TrimSpace(strings.TrimPrefix(c.Text, MetadataDirective)))
				if existing, ok := r.entries[id]; ok {
					return fmt.Errorf("%s: fixture %s already covered by %s", fset.Position(fn.Pos()), id, existing.Test)
				}
				r.entries[id] = Entry{ID: id, Test: fn.Name.Name, Generated: true}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Load reads a registry from a manifest file, or from generated Go tests when
// location is a directory.
func Load(location string) (*Registry, error) {
	if info, err := os.Stat(location); err == nil && info.IsDir() {
		return LoadTestMetadata(location)
	}
	return LoadRegistry(location)
}
