package coverage

import (
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/goccy/go-yaml"
)

// Entry is one line of the generator manifest.
type Entry struct {
	ID        string `yaml:"id" json:"id"`
	Test      string `yaml:"test,omitempty" json:"test,omitempty"`
	Generated bool   `yaml:"generated" json:"generated"`
}

// Manifest is the file the test generator writes next to the generated suite.
type Manifest struct {
	Category string  `yaml:"category,omitempty" json:"category,omitempty"`
	Entries  []Entry `yaml:"entries" json:"entries"`
}

// Registry maps fixture identifiers to whether a generated test exists for them.
// It is read-only once built.
type Registry struct {
	Category string
	entries  map[string]Entry
}

// NewRegistry builds a registry from identifier to generated flag.
func NewRegistry(flags map[string]bool) *Registry {
	r := &Registry{entries: make(map[string]Entry, len(flags))}
	for id, generated := range flags {
		id = path.Clean(id)
		r.entries[id] = Entry{ID: id, Generated: generated}
	}
	return r
}

// LoadRegistry reads a generator manifest in YAML or JSON.
func LoadRegistry(file string) (*Registry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", file, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", file, err)
	}
	r, err := FromManifest(m)
	if err != nil {
		return nil, fmt.Errorf("invalid registry %s: %w", file, err)
	}
	return r, nil
}

// FromManifest rejects empty and duplicate identifiers.
func FromManifest(m Manifest) (*Registry, error) {
	r := &Registry{Category: m.Category, entries: make(map[string]Entry, len(m.Entries))}
	for i, e := range m.Entries {
		if e.ID == "" {
			return nil, fmt.Errorf("entry %d has no id", i)
		}
		e.ID = path.Clean(e.ID)
		if _, exists := r.entries[e.ID]; exists {
			return nil, fmt.Errorf("duplicate entry %s", e.ID)
		}
		r.entries[e.ID] = e
	}
	return r, nil
}

// Keys returns the identifiers that have a generated test, sorted.
func (r *Registry) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.entries))
	for id, e := range r.entries {
		if e.Generated {
			keys = append(keys, id)
		}
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether id has a generated test.
func (r *Registry) Has(id string) bool {
	if r == nil {
		return false
	}
	return r.entries[path.Clean(id)].Generated
}

func (r *Registry) Entry(id string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	e, ok := r.entries[path.Clean(id)]
	return e, ok
}

// ByDir groups Keys by the slash separated directory of each identifier.
func (r *Registry) ByDir() map[string][]string {
	out := map[string][]string{}
	for _, id := range r.Keys() {
		dir := path.Dir(id)
		out[dir] = append(out[dir], id)
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.Keys())
}
