package configurator

import (
	"maps"
	"slices"
	"time"

	"github.com/flanksource/clicky"
	"github.com/flanksource/clicky/api"
)

// Output formats understood by the pipeline decoder and the golden comparison.
const (
	OutputText        = "text"
	OutputJSON        = "json"
	OutputYAML        = "yaml"
	OutputDiagnostics = "diagnostics"
)

// Configuration is a concrete analysis pipeline variant for one Tuple.
type Configuration struct {
	Tuple Tuple `json:"tuple" yaml:"tuple"`
	// Pipeline is the name of the registered pipeline, e.g. "exec"
	Pipeline string `json:"pipeline" yaml:"pipeline"`
	// Command and Args are gomplate templates, see pipeline.Exec
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	// Output is one of text, json, yaml, diagnostics
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
	// GoldenSuffixes replace the fixture extension to locate the golden file,
	// the first existing one wins, e.g. [".fir.txt", ".txt"]
	GoldenSuffixes []string `json:"golden,omitempty" yaml:"golden,omitempty"`
	// SkipIf is a CEL expression over `directives` and `tuple`
	SkipIf  string        `json:"skipIf,omitempty" yaml:"skipIf,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// ExitCodes are the analyzer exit codes that still produce output
	ExitCodes []int `json:"exitCodes,omitempty" yaml:"exitCodes,omitempty"`
}

// DefaultExitCodes accept a clean exit and an exit reporting diagnostics.
var DefaultExitCodes = []int{0, 1}

// Clone returns a deep copy so that callers cannot mutate registered state.
func (c Configuration) Clone() Configuration {
	c.Args = slices.Clone(c.Args)
	c.GoldenSuffixes = slices.Clone(c.GoldenSuffixes)
	c.ExitCodes = slices.Clone(c.ExitCodes)
	if c.Env != nil {
		c.Env = maps.Clone(c.Env)
	}
	return c
}

// AcceptedExitCodes defaults to DefaultExitCodes.
func (c Configuration) AcceptedExitCodes() []int {
	if len(c.ExitCodes) == 0 {
		return DefaultExitCodes
	}
	return c.ExitCodes
}

// OutputFormat defaults to text.
func (c Configuration) OutputFormat() string {
	if c.Output == "" {
		return OutputText
	}
	return c.Output
}

func (c Configuration) Pretty() api.Text {
	t := clicky.Text(c.Tuple.String(), "text-blue-500").Space().Append(c.Pipeline, "font-bold")
	if c.Command != "" {
		t = t.Space().Append(c.Command, "text-muted")
	}
	if len(c.GoldenSuffixes) > 0 {
		t = t.Space().Append("golden: ", "text-muted").Append(clicky.CompactList(c.GoldenSuffixes))
	}
	return t
}
