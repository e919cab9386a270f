package pipeline

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// SkipRule is a compiled CEL expression deciding whether a fixture is skipped for a
// configuration, e.g.
//
//	"IGNORE_FIR" in directives && tuple.frontend == "Fir"
type SkipRule struct {
	Expression string
	program    cel.Program
}

var skipEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("directives", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("tuple", cel.MapType(cel.StringType, cel.StringType)),
		cel.StdLib(),
		ext.Strings(),
	)
})

// CompileSkipRule compiles expression; an empty expression never skips.
func CompileSkipRule(expression string) (*SkipRule, error) {
	rule := &SkipRule{Expression: expression}
	if expression == "" {
		return rule, nil
	}
	env, err := skipEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile skip rule %q: %w", expression, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("skip rule %q must return bool, got %v", expression, ast.OutputType())
	}
	rule.program, err = env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return rule, nil
}

// Skip evaluates the rule.
func (r *SkipRule) Skip(directives, tuple map[string]string) (bool, error) {
	if r == nil || r.program == nil {
		return false, nil
	}
	if directives == nil {
		directives = map[string]string{}
	}
	out, _, err := r.program.Eval(map[string]any{
		"directives": directives,
		"tuple":      tuple,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate skip rule %q: %w", r.Expression, err)
	}
	skip, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("skip rule %q returned %T", r.Expression, out.Value())
	}
	return skip, nil
}

// SkipRules caches compiled rules by expression.
type SkipRules struct {
	rules sync.Map
}

func (s *SkipRules) Get(expression string) (*SkipRule, error) {
	if r, ok := s.rules.Load(expression); ok {
		return r.(*SkipRule), nil
	}
	rule, err := CompileSkipRule(expression)
	if err != nil {
		return nil, err
	}
	actual, _ := s.rules.LoadOrStore(expression, rule)
	return actual.(*SkipRule), nil
}
