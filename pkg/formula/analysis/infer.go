package analysis

import (
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/ast"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
)

// InferType evaluates source against a sample record and names the result
// type: number, boolean, date or text. Any failure yields text.
func InferType(source string, sample evaluator.Context, opts ...evaluator.Option) string {
	v, err := evaluator.EvaluateFormula(source, sample, opts...)
	if err != nil {
		return evaluator.ResultText
	}
	return evaluator.TypeName(v)
}

// InferStaticType guesses the result type of a parsed formula from its
// shape alone. Column references have no known type; an expression whose
// type depends only on columns is reported as text.
func InferStaticType(expr ast.Expression) string {
	if t := staticType(expr); t != "" {
		return t
	}
	return evaluator.ResultText
}

// staticType returns "" when the type cannot be told without data.
func staticType(expr ast.Expression) string {
	switch node := expr.(type) {
	case *ast.NumberLiteral:
		return evaluator.ResultNumber
	case *ast.StringLiteral:
		return evaluator.ResultText
	case *ast.BooleanLiteral:
		return evaluator.ResultBoolean

	case *ast.PrefixExpression:
		if node.Operator == "!" {
			return evaluator.ResultBoolean
		}
		return evaluator.ResultNumber

	case *ast.InfixExpression:
		switch node.Operator {
		case "+":
			left, right := staticType(node.Left), staticType(node.Right)
			if left == evaluator.ResultText || right == evaluator.ResultText {
				return evaluator.ResultText
			}
			if left == "" || right == "" {
				return ""
			}
			return evaluator.ResultNumber
		case "-", "*", "/", "%", "^":
			return evaluator.ResultNumber
		default:
			return evaluator.ResultBoolean
		}

	case *ast.CallExpression:
		def, ok := evaluator.Lookup(node.Name)
		if !ok {
			return ""
		}
		if def.Returns != "any" {
			return def.Returns
		}
		// if(): both branches must agree
		if len(node.Arguments) == 3 {
			then, otherwise := staticType(node.Arguments[1]), staticType(node.Arguments[2])
			if then == otherwise {
				return then
			}
		}
	}
	return ""
}
