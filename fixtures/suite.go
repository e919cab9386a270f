package fixtures

import (
	"fmt"
	"path"
	"sort"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
	"github.com/samber/lo"
)

// SuiteNode groups the fixtures of one directory. Children mirror sub-directories that
// contain fixtures, directly or further down.
type SuiteNode struct {
	Name       string       `json:"name"`
	Dir        string       `json:"dir"`
	Fixtures   []Fixture    `json:"fixtures,omitempty"`
	Children   []*SuiteNode `json:"children,omitempty"`
	Suppressed []string     `json:"suppressed,omitempty"`
	Parent     *SuiteNode   `json:"-"`

	// UnmatchedSuppressions is only set on the root: suppressions whose directory has
	// no suite node, keyed by directory.
	UnmatchedSuppressions map[string][]string `json:"unmatched_suppressions,omitempty"`
}

// BuildSuite partitions scanned fixtures by directory. suppressed holds fixture
// identifiers exempt from the missing check; each is scoped to the node of its directory.
func BuildSuite(name, root string, list []Fixture, suppressed []string) *SuiteNode {
	suite := &SuiteNode{Name: name, Dir: "."}
	nodes := map[string]*SuiteNode{".": suite}

	var ensure func(dir string) *SuiteNode
	ensure = func(dir string) *SuiteNode {
		if node, ok := nodes[dir]; ok {
			return node
		}
		parent := ensure(path.Dir(dir))
		node := &SuiteNode{Name: path.Base(dir), Dir: dir}
		parent.AddChild(node)
		nodes[dir] = node
		return node
	}

	for _, f := range list {
		if f.Root == "" {
			f.Root = root
		}
		node := ensure(f.Dir())
		node.Fixtures = append(node.Fixtures, f)
	}

	for _, id := range suppressed {
		id = path.Clean(id)
		dir := path.Dir(id)
		if node, ok := nodes[dir]; ok {
			node.Suppressed = append(node.Suppressed, id)
			continue
		}
		if suite.UnmatchedSuppressions == nil {
			suite.UnmatchedSuppressions = map[string][]string{}
		}
		suite.UnmatchedSuppressions[dir] = append(suite.UnmatchedSuppressions[dir], id)
	}

	suite.sort()
	return suite
}

func (n *SuiteNode) sort() {
	sort.Slice(n.Fixtures, func(i, j int) bool { return n.Fixtures[i].Path < n.Fixtures[j].Path })
	sort.Strings(n.Suppressed)
	sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Name < n.Children[j].Name })
	for _, child := range n.Children {
		child.sort()
	}
}

// AddChild adds a child node to this node
func (n *SuiteNode) AddChild(child *SuiteNode) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Walk visits the tree pre-order: a parent before its children, children by name.
func (n *SuiteNode) Walk(visitor func(node *SuiteNode)) {
	visitor(n)
	for _, child := range n.Children {
		child.Walk(visitor)
	}
}

// Find returns the node for a slash separated directory relative to the root.
func (n *SuiteNode) Find(dir string) *SuiteNode {
	var found *SuiteNode
	dir = path.Clean(dir)
	n.Walk(func(node *SuiteNode) {
		if found == nil && node.Dir == dir {
			found = node
		}
	})
	return found
}

// All returns every fixture in this subtree, in pre-order.
func (n *SuiteNode) All() []Fixture {
	var all []Fixture
	n.Walk(func(node *SuiteNode) {
		all = append(all, node.Fixtures...)
	})
	return all
}

// Depth is 0 for the root.
func (n *SuiteNode) Depth() int {
	if n.Parent == nil {
		return 0
	}
	return n.Parent.Depth() + 1
}

// TestName is the name of the generated group for this node.
func (n *SuiteNode) TestName() string {
	return "Test" + Identifier(n.Name)
}

// SuitePath returns the node names from the root, e.g. "diagnostics > errors".
func (n *SuiteNode) SuitePath() string {
	if n.Parent == nil {
		return n.Name
	}
	return n.Parent.SuitePath() + " > " + n.Name
}

func (n SuiteNode) Pretty() api.Text {
	t := clicky.Text("📂 ", "").Append(n.Name, "text-blue-600 font-bold")
	if n.Dir != "." {
		t = t.Space().Append(n.Dir, "text-muted")
	}
	total := len(n.All())
	t = t.Space().Append(fmt.Sprintf("(%d direct, %d total)", len(n.Fixtures), total), "text-gray-500")
	if len(n.Suppressed) > 0 {
		t = t.Space().Append(fmt.Sprintf("%d suppressed", len(n.Suppressed)), "text-yellow-500")
	}
	return t
}

// Tree returns this node as an api.TreeNode with fixtures as leaves.
func (n *SuiteNode) Tree() api.TreeNode {
	return n
}

func (n *SuiteNode) GetChildren() []api.TreeNode {
	nodes := make([]api.TreeNode, 0, len(n.Fixtures)+len(n.Children))
	for _, f := range n.Fixtures {
		nodes = append(nodes, fixtureLeaf{fixture: f, suppressed: lo.Contains(n.Suppressed, f.Path)})
	}
	for _, child := range n.Children {
		nodes = append(nodes, child)
	}
	return nodes
}

type fixtureLeaf struct {
	fixture    Fixture
	suppressed bool
}

func (l fixtureLeaf) Pretty() api.Text {
	t := clicky.Text("📄 ", "").Append(l.fixture.Name(), "").Space().Append(l.fixture.TestName(), "text-muted")
	if l.suppressed {
		t = t.Space().Append("(suppressed)", "text-yellow-500")
	}
	return t
}

func (l fixtureLeaf) GetChildren() []api.TreeNode {
	return nil
}
