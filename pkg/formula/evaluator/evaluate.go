package evaluator

import (
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/ast"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/parser"
)

// Evaluate parses tokens and evaluates the resulting formula against ctx.
// Calls to functions outside the library fail at parse time.
func Evaluate(tokens []lexer.Token, ctx Context, opts ...Option) (Value, error) {
	expr, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	return EvaluateAST(expr, ctx, opts...)
}

// EvaluateFormula tokenizes, parses and evaluates source against ctx.
func EvaluateFormula(source string, ctx Context, opts ...Option) (Value, error) {
	return Evaluate(lexer.Tokenize(source), ctx, opts...)
}

// EvaluateAST evaluates an already parsed formula against ctx.
func EvaluateAST(expr ast.Expression, ctx Context, opts ...Option) (Value, error) {
	return NewEnvironment(opts...).Evaluate(expr, ctx)
}

// Parse builds the expression tree for tokens, checking function names
// against the library.
func Parse(tokens []lexer.Token) (ast.Expression, error) {
	return parser.New(tokens, parser.WithFunctions(FunctionNames()...)).ParseFormula()
}

// Evaluate evaluates expr against ctx with this environment's settings.
func (env *Environment) Evaluate(expr ast.Expression, ctx Context) (Value, error) {
	result := Eval(expr, ctx, env)
	if errVal, ok := result.(*Error); ok {
		env.trace("%s => error: %s", expr.String(), errVal.Message)
		return nil, errVal.ToFormulaError()
	}
	env.trace("%s => %s", expr.String(), result.Inspect())
	return result, nil
}
