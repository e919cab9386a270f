package configurator

import (
	"errors"
	"fmt"

	"github.com/flanksource/fixturegate/config"
)

// FromConfig registers one static factory per declared configuration. Duplicate
// tuples in the same file surface as ErrAmbiguousConfiguration.
func FromConfig(entries []config.Configuration) (*Resolver, error) {
	b := NewBuilder()
	var errs []error
	for _, entry := range entries {
		tuple, err := ParseTuple(entry.Tuple)
		if err != nil {
			errs = append(errs, fmt.Errorf("configuration %s: %w", entry.Key(), err))
			continue
		}
		err = b.Register(tuple, Static(Configuration{
			Tuple:          tuple,
			Pipeline:       entry.Pipeline,
			Command:        entry.Command,
			Args:           entry.Args,
			Env:            entry.Env,
			Output:         entry.Output,
			GoldenSuffixes: entry.Golden,
			SkipIf:         entry.SkipIf,
			Timeout:        entry.TimeoutDuration(),
			ExitCodes:      entry.ExitCodes,
		}))
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return b.Build()
}
