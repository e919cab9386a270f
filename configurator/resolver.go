package configurator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
	"github.com/samber/lo"
)

// ErrAmbiguousConfiguration means a tuple was registered twice. It is a startup error:
// a tuple must resolve to exactly one configuration.
var ErrAmbiguousConfiguration = errors.New("ambiguous configuration")

// UnresolvedConfigurationError is returned for a tuple with no registered factory.
// There is no default configuration.
type UnresolvedConfigurationError struct {
	Tuple Tuple
}

func (e *UnresolvedConfigurationError) Error() string {
	return fmt.Sprintf("no configuration registered for %s", e.Tuple)
}

// Factory creates the configuration for a tuple. It must be deterministic.
type Factory func(Tuple) Configuration

// Static returns a factory that yields copies of c with the tuple filled in.
func Static(c Configuration) Factory {
	c = c.Clone()
	return func(t Tuple) Configuration {
		out := c.Clone()
		out.Tuple = t
		return out
	}
}

// Builder collects factories. Build freezes them into a Resolver.
type Builder struct {
	factories map[Tuple]Factory
	errs      []error
}

func NewBuilder() *Builder {
	return &Builder{factories: map[Tuple]Factory{}}
}

// Register adds a factory for tuple. Registering the same tuple twice fails with
// ErrAmbiguousConfiguration, which is also reported again by Build.
func (b *Builder) Register(tuple Tuple, factory Factory) error {
	if err := tuple.Validate(); err != nil {
		b.errs = append(b.errs, err)
		return err
	}
	if factory == nil {
		err := fmt.Errorf("nil factory for %s", tuple)
		b.errs = append(b.errs, err)
		return err
	}
	if _, exists := b.factories[tuple]; exists {
		err := fmt.Errorf("%w: %s registered more than once", ErrAmbiguousConfiguration, tuple)
		b.errs = append(b.errs, err)
		return err
	}
	b.factories[tuple] = factory
	return nil
}

// Build returns an immutable resolver, or every registration error joined.
func (b *Builder) Build() (*Resolver, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	factories := make(map[Tuple]Factory, len(b.factories))
	for k, v := range b.factories {
		factories[k] = v
	}
	return &Resolver{factories: factories}, nil
}

// Resolver maps tuples to configurations. It has no mutating methods and is safe for
// concurrent use.
type Resolver struct {
	factories map[Tuple]Factory
}

// Resolve returns the configuration registered for tuple.
func (r *Resolver) Resolve(tuple Tuple) (Configuration, error) {
	factory, ok := r.factories[tuple]
	if !ok {
		return Configuration{}, &UnresolvedConfigurationError{Tuple: tuple}
	}
	c := factory(tuple)
	c.Tuple = tuple
	return c.Clone(), nil
}

// Tuples lists the registered tuples in string order.
func (r *Resolver) Tuples() []Tuple {
	tuples := lo.Keys(r.factories)
	sort.Slice(tuples, func(i, j int) bool { return tuples[i].String() < tuples[j].String() })
	return tuples
}

func (r Resolver) Pretty() api.Text {
	names := lo.Map(r.Tuples(), func(t Tuple, _ int) string { return t.String() })
	return clicky.Text("configurations: ", "text-muted").Append(clicky.CompactList(names))
}
