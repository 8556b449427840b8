// Package registry holds named formula definitions and evaluates them in
// dependency order.
//
// Declared dependencies only order evaluation and detect cycles: a formula
// still reads every column from the context it is evaluated against. The
// results of formulas evaluated earlier in a batch are layered over that
// context, so later formulas can read them by name.
//
// A Registry is not safe for concurrent use.
package registry

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/ast"
	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
)

// Definition is one named formula.
type Definition struct {
	Name         string   `yaml:"name" json:"name"`
	Expression   string   `yaml:"expression" json:"expression"`
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	ReturnType   string   `yaml:"return_type,omitempty" json:"return_type,omitempty"`
}

// Registry maps formula names to definitions.
type Registry struct {
	defs   map[string]*Definition
	parsed map[string]ast.Expression
	names  []string
	opts   []evaluator.Option
}

// New creates an empty registry. The options configure every evaluation
// the registry runs.
func New(opts ...evaluator.Option) *Registry {
	return &Registry{
		defs:   make(map[string]*Definition),
		parsed: make(map[string]ast.Expression),
		opts:   opts,
	}
}

// Define inserts a formula or replaces the existing one with that name.
// Dependencies may be written with or without braces.
func (r *Registry) Define(name, expression string, dependencies ...string) {
	r.DefineWithType(name, expression, "", dependencies...)
}

// DefineWithType is Define with a declared result type; results are cast
// to it after evaluation.
func (r *Registry) DefineWithType(name, expression, returnType string, dependencies ...string) {
	r.Add(Definition{Name: name, Expression: expression, Dependencies: dependencies, ReturnType: returnType})
}

// Add inserts or replaces def. A replaced formula keeps its position in
// Names.
func (r *Registry) Add(def Definition) {
	def.Dependencies = NormalizeDependencies(def.Dependencies)
	def.ReturnType = strings.ToLower(strings.TrimSpace(def.ReturnType))

	if _, exists := r.defs[def.Name]; !exists {
		r.names = append(r.names, def.Name)
	}
	r.defs[def.Name] = &def
	delete(r.parsed, def.Name)
}

// Remove deletes a formula. Removing an unknown name does nothing.
func (r *Registry) Remove(name string) {
	if _, exists := r.defs[name]; !exists {
		return
	}
	delete(r.defs, name)
	delete(r.parsed, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
}

// Get returns a copy of the named definition.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, false
	}
	out := *def
	out.Dependencies = append([]string(nil), def.Dependencies...)
	return out, true
}

// Names returns the formula names in definition order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of formulas.
func (r *Registry) Len() int {
	return len(r.names)
}

// Definitions returns copies of every definition in definition order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.names))
	for _, name := range r.names {
		def, _ := r.Get(name)
		out = append(out, def)
	}
	return out
}

// DependenciesOf returns the declared dependencies of a formula, or an
// empty list when it is not defined.
func (r *Registry) DependenciesOf(name string) []string {
	def, ok := r.defs[name]
	if !ok {
		return []string{}
	}
	return append([]string{}, def.Dependencies...)
}

// EvaluateAll evaluates every formula once against ctx. The first failure
// aborts the batch and no results are returned.
func (r *Registry) EvaluateAll(ctx evaluator.Context) (map[string]evaluator.Value, error) {
	b := r.newBatch(ctx, true)
	for _, name := range r.names {
		if err := b.visit(name); err != nil {
			return nil, err
		}
	}
	b.trace("[formula] evaluation order: %s", strings.Join(b.order, ", "))
	return b.results, nil
}

// Evaluate evaluates one formula, after the formulas it declares it
// depends on.
func (r *Registry) Evaluate(name string, ctx evaluator.Context) (evaluator.Value, error) {
	if _, ok := r.defs[name]; !ok {
		return nil, ferrors.New(ferrors.CodeUndefinedFormula, map[string]any{"Name": name})
	}
	b := r.newBatch(ctx, true)
	if err := b.visit(name); err != nil {
		return nil, err
	}
	return b.results[name], nil
}

// Order returns the formula names in an order where every formula comes
// after its declared dependencies.
func (r *Registry) Order() ([]string, error) {
	b := r.newBatch(nil, false)
	for _, name := range r.names {
		if err := b.visit(name); err != nil {
			return nil, err
		}
	}
	return b.order, nil
}

// parse returns the cached tree for a definition.
func (r *Registry) parse(def *Definition) (ast.Expression, error) {
	if expr, ok := r.parsed[def.Name]; ok {
		return expr, nil
	}
	expr, err := evaluator.Parse(lexer.Tokenize(def.Expression))
	if err != nil {
		return nil, err
	}
	r.parsed[def.Name] = expr
	return expr, nil
}

// NormalizeDependencies strips braces and blanks and removes duplicates,
// keeping first-seen order.
func NormalizeDependencies(deps []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(deps))
	for _, dep := range deps {
		dep = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(dep), "{"), "}"))
		if dep == "" || seen[dep] {
			continue
		}
		seen[dep] = true
		out = append(out, dep)
	}
	return out
}

// visit states
const (
	unvisited = iota
	visiting
	visited
)

// batch is one depth-first traversal over the registry.
type batch struct {
	r        *Registry
	env      *evaluator.Environment
	ctx      evaluator.Context
	evaluate bool

	state   map[string]int
	stack   []string
	order   []string
	results map[string]evaluator.Value
}

func (r *Registry) newBatch(ctx evaluator.Context, evaluate bool) *batch {
	return &batch{
		r:        r,
		env:      evaluator.NewEnvironment(r.opts...),
		ctx:      ctx.Clone(),
		evaluate: evaluate,
		state:    make(map[string]int, len(r.defs)),
		results:  make(map[string]evaluator.Value, len(r.defs)),
	}
}

func (b *batch) visit(name string) error {
	def, ok := b.r.defs[name]
	if !ok {
		// not a formula: a plain column read from the context
		return nil
	}

	switch b.state[name] {
	case visited:
		return nil
	case visiting:
		return b.cycleError(name)
	}

	b.state[name] = visiting
	b.stack = append(b.stack, name)

	for _, dep := range def.Dependencies {
		if err := b.visit(dep); err != nil {
			return err
		}
	}

	if b.evaluate {
		v, err := b.run(def)
		if err != nil {
			return err
		}
		b.results[name] = v
		b.ctx[name] = v
		b.trace("[formula] %s = %s", name, v.Inspect())
	}

	b.stack = b.stack[:len(b.stack)-1]
	b.state[name] = visited
	b.order = append(b.order, name)
	return nil
}

// run evaluates one definition against the layered context.
func (b *batch) run(def *Definition) (evaluator.Value, error) {
	expr, err := b.r.parse(def)
	if err != nil {
		return nil, attribute(err, def.Name)
	}

	v, err := b.env.Evaluate(expr, b.ctx)
	if err != nil {
		return nil, attribute(err, def.Name)
	}

	if def.ReturnType != "" {
		v, err = evaluator.CastResult(v, def.ReturnType)
		if err != nil {
			return nil, attribute(err, def.Name)
		}
	}
	return v, nil
}

// cycleError names the path from the first visit of name back to name.
func (b *batch) cycleError(name string) error {
	start := 0
	for i, n := range b.stack {
		if n == name {
			start = i
			break
		}
	}
	path := append(append([]string(nil), b.stack[start:]...), name)

	return ferrors.New(ferrors.CodeCircularDependency, map[string]any{
		"Path":  strings.Join(path, " -> "),
		"Names": path,
	}).WithFormula(name)
}

func (b *batch) trace(format string, a ...any) {
	b.env.Logger.LogLine(fmt.Sprintf(format, a...))
}

// attribute marks err as raised by the named formula.
func attribute(err error, name string) error {
	var ferr *ferrors.FormulaError
	if stderrors.As(err, &ferr) {
		return ferr.WithFormula(name)
	}
	return fmt.Errorf("%s: %w", name, err)
}
