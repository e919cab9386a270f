package pipeline

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages the pipelines available to configurations by name.
// It provides thread-safe access to registered pipelines.
type Registry struct {
	mu        sync.RWMutex
	pipelines map[string]Pipeline
}

// NewRegistry creates an empty pipeline registry
func NewRegistry() *Registry {
	return &Registry{
		pipelines: make(map[string]Pipeline),
	}
}

// Register adds a pipeline to the registry
func (r *Registry) Register(p Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if name == "" {
		return fmt.Errorf("pipeline has no name")
	}
	if _, exists := r.pipelines[name]; exists {
		return fmt.Errorf("pipeline '%s' already registered", name)
	}

	r.pipelines[name] = p
	return nil
}

// Get retrieves a pipeline by name
func (r *Registry) Get(name string) (Pipeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline '%s', registered: %v", name, r.namesLocked())
	}
	return p, nil
}

// Names lists registered pipelines alphabetically
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.pipelines))
	for name := range r.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in pipelines
var DefaultRegistry = NewRegistry()

// Register adds a pipeline to the default registry
func Register(p Pipeline) error {
	return DefaultRegistry.Register(p)
}

func init() {
	_ = Register(&Exec{})
}
