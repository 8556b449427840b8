// Package formula provides a public API for embedding the formula engine:
// evaluating single formulas, validating and analyzing them, and running a
// registry of computed columns over a batch of rows.
package formula

import (
	"encoding/json"

	"github.com/jamsmac/data-parse-desk-sub000/config"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/analysis"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/registry"
)

// Engine evaluates formulas with a fixed set of evaluation settings and
// owns a registry of named formulas. An Engine is not safe for concurrent
// use.
type Engine struct {
	opts     []evaluator.Option
	registry *registry.Registry
	logger   Logger
}

// New creates an engine with an empty registry.
func New(opts ...evaluator.Option) *Engine {
	return &Engine{
		opts:     opts,
		registry: registry.New(opts...),
		logger:   NullLogger(),
	}
}

// FromConfig creates an engine from a loaded configuration. logger
// receives evaluation traces when the config enables tracing.
func FromConfig(cfg *config.Config, logger Logger) (*Engine, error) {
	opts, err := cfg.Engine.Options()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NullLogger()
	}
	if cfg.Logging.Trace {
		opts = append(opts, evaluator.WithLogger(logger))
	}

	e := New(opts...)
	e.logger = logger
	for _, def := range cfg.Formulas {
		e.registry.Add(def)
	}
	return e, nil
}

// Options returns the evaluation settings of the engine.
func (e *Engine) Options() []evaluator.Option {
	out := make([]evaluator.Option, len(e.opts))
	copy(out, e.opts)
	return out
}

// Logger returns the logger the engine reports to.
func (e *Engine) Logger() Logger {
	return e.logger
}

// Registry returns the engine's formula registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Eval evaluates source against ctx.
func (e *Engine) Eval(source string, ctx evaluator.Context) (evaluator.Value, error) {
	return evaluator.EvaluateFormula(source, ctx, e.opts...)
}

// EvalAs evaluates source and casts the result to returnType. An empty
// returnType leaves the result as is.
func (e *Engine) EvalAs(source string, ctx evaluator.Context, returnType string) (evaluator.Value, error) {
	v, err := e.Eval(source, ctx)
	if err != nil || returnType == "" {
		return v, err
	}
	return evaluator.CastResult(v, returnType)
}

// Validate checks source without evaluating it.
func (e *Engine) Validate(source string) analysis.Result {
	return analysis.Validate(source)
}

// References returns the columns source reads, in order of first use.
func (e *Engine) References(source string) []string {
	return analysis.ExtractColumnReferences(source)
}

// InferType evaluates source against sample and names the result type.
func (e *Engine) InferType(source string, sample evaluator.Context) string {
	return analysis.InferType(source, sample, e.opts...)
}

// RowResult holds the computed columns of one row of a batch. Err is set
// when any formula failed, in which case Values is nil.
type RowResult struct {
	Index  int
	Values map[string]evaluator.Value
	Err    error
}

// MarshalJSON renders the row with JSON-safe values.
func (r RowResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Index  int            `json:"index"`
		Values map[string]any `json:"values,omitempty"`
		Error  string         `json:"error,omitempty"`
	}{Index: r.Index}

	if r.Err != nil {
		out.Error = r.Err.Error()
	} else {
		out.Values = make(map[string]any, len(r.Values))
		for name, v := range r.Values {
			out.Values[name] = evaluator.ToJSONValue(v)
		}
	}
	return json.Marshal(out)
}

// EvaluateRows runs every registered formula over each row. Each row sees
// its position as _index, the batch size as _count and the whole batch as
// _rows. A failing row does not stop the batch; the returned count is the
// number of rows that failed.
func (e *Engine) EvaluateRows(rows []evaluator.Context) ([]RowResult, int) {
	results := make([]RowResult, len(rows))
	failed := 0

	for i, row := range rows {
		ctx := row.WithRowBatch(i, len(rows), rows)
		values, err := e.registry.EvaluateAll(ctx)
		results[i] = RowResult{Index: i, Values: values, Err: err}
		if err != nil {
			failed++
			e.logger.LogLine("[formula] row", i, "failed:", err)
		}
	}

	return results, failed
}
