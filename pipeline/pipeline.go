// Package pipeline runs a fixture through an analysis pipeline and decodes its output
// into a canonical form that can be compared with a golden file.
//
// Pipelines are looked up by the name a configuration carries, e.g. "exec", from a
// Registry. The built-in exec pipeline runs an external command; in-process
// pipelines are registered with NewFunc.
package pipeline

import (
	"context"

	"github.com/flanksource/fixturegate/configurator"
	"github.com/flanksource/fixturegate/fixtures"
)

// Input is everything a pipeline may look at. Pipelines must not read other files of
// the fixture tree or share state between fixtures.
type Input struct {
	Fixture       fixtures.Fixture
	Content       []byte
	Directives    fixtures.Directives
	Configuration configurator.Configuration
}

// TemplateData is exposed to command and argument templates.
func (in Input) TemplateData() map[string]any {
	data := map[string]any{
		"file":       in.Fixture.AbsPath(),
		"path":       in.Fixture.Path,
		"dir":        in.Fixture.Dir(),
		"name":       in.Fixture.Name(),
		"root":       in.Fixture.Root,
		"test":       in.Fixture.TestName(),
		"directives": in.Directives.AsMap(),
	}
	for k, v := range in.Configuration.Tuple.AsMap() {
		data[k] = v
	}
	return data
}

// Output is the raw result of a pipeline, decoded with Decode according to Format.
type Output struct {
	Raw      []byte `json:"-"`
	Format   string `json:"format"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exitCode,omitempty"`
}

// Pipeline analyses a single fixture.
type Pipeline interface {
	Name() string
	Analyze(ctx context.Context, in Input) (Output, error)
}

// Func adapts a function into a Pipeline.
type Func struct {
	name string
	fn   func(ctx context.Context, in Input) (Output, error)
}

func NewFunc(name string, fn func(ctx context.Context, in Input) (Output, error)) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string {
	return f.name
}

func (f *Func) Analyze(ctx context.Context, in Input) (Output, error) {
	out, err := f.fn(ctx, in)
	if err != nil {
		return out, err
	}
	if out.Format == "" {
		out.Format = in.Configuration.OutputFormat()
	}
	return out, nil
}
