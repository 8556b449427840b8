// Package evaluator evaluates formula expression trees against a record.
//
// Evaluation is a tree walk over the AST produced by the parser. Runtime
// failures are carried as *Error values and converted to
// *errors.FormulaError by the exported entry points.
package evaluator

import (
	"math"
	"strings"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/ast"
	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
)

// Eval evaluates a node in the given context
func Eval(node ast.Expression, ctx Context, env *Environment) Value {
	switch node := node.(type) {
	case *ast.NumberLiteral:
		return &Number{Value: node.Value}

	case *ast.StringLiteral:
		return &Text{Value: node.Value}

	case *ast.BooleanLiteral:
		return nativeBoolToBooleanValue(node.Value)

	case *ast.ColumnRef:
		return evalColumnRef(node, ctx, env)

	case *ast.IndexExpression:
		left := Eval(node.Left, ctx, env)
		if isError(left) {
			return left
		}
		index := Eval(node.Index, ctx, env)
		if isError(index) {
			return index
		}
		return evalIndexExpression(left, index)

	case *ast.PrefixExpression:
		right := Eval(node.Right, ctx, env)
		if isError(right) {
			return right
		}
		return evalPrefixExpression(node.Operator, right)

	case *ast.InfixExpression:
		// Both operands are always evaluated: && and || do not short-circuit.
		left := Eval(node.Left, ctx, env)
		if isError(left) {
			return left
		}
		right := Eval(node.Right, ctx, env)
		if isError(right) {
			return right
		}
		return evalInfixExpression(node.Token, node.Operator, left, right, env)

	case *ast.CallExpression:
		return evalCallExpression(node, ctx, env)
	}

	return newStructuredErrorWithPos(ferrors.CodeUnexpectedToken, lexer.Token{}, map[string]any{"Token": "?"})
}

func evalColumnRef(node *ast.ColumnRef, ctx Context, env *Environment) Value {
	if v, ok := ctx.Get(node.Name); ok {
		return v
	}
	if env.StrictColumns {
		return newUnknownColumnError(node.Name, node.Token, ctx)
	}
	return NULL
}

// evalIndexExpression reads a field of a record or an element of a list.
// Anything else, or an index out of range, reads as null.
func evalIndexExpression(left, index Value) Value {
	switch left := left.(type) {
	case *Record:
		if v, ok := left.Fields[ToText(index)]; ok && v != nil {
			return v
		}
	case *Array:
		f := ToNumber(index)
		if f != math.Trunc(f) || f < 0 || f >= float64(len(left.Elements)) {
			return NULL
		}
		return left.Elements[int(f)]
	}
	return NULL
}

func evalPrefixExpression(operator string, right Value) Value {
	switch operator {
	case "!":
		return nativeBoolToBooleanValue(!IsTruthy(right))
	default: // "-"
		return &Number{Value: -ToNumber(right)}
	}
}

func evalInfixExpression(tok lexer.Token, operator string, left, right Value, env *Environment) Value {
	switch operator {
	case "+":
		if left.Type() == TEXT_VAL || right.Type() == TEXT_VAL {
			return &Text{Value: ToText(left) + ToText(right)}
		}
		return &Number{Value: ToNumber(left) + ToNumber(right)}
	case "-":
		return &Number{Value: ToNumber(left) - ToNumber(right)}
	case "*":
		return &Number{Value: ToNumber(left) * ToNumber(right)}
	case "/", "%":
		divisor := ToNumber(right)
		if divisor == 0 && env.StrictDivision {
			return newStructuredErrorWithPos(ferrors.CodeDivisionByZero, tok, nil)
		}
		if operator == "%" {
			return &Number{Value: math.Mod(ToNumber(left), divisor)}
		}
		return &Number{Value: ToNumber(left) / divisor}
	case "^":
		return &Number{Value: math.Pow(ToNumber(left), ToNumber(right))}
	case "==":
		return nativeBoolToBooleanValue(ValuesEqual(left, right))
	case "!=":
		return nativeBoolToBooleanValue(!ValuesEqual(left, right))
	case "<", "<=", ">", ">=":
		return nativeBoolToBooleanValue(compareValues(operator, left, right))
	case "&&":
		return nativeBoolToBooleanValue(IsTruthy(left) && IsTruthy(right))
	case "||":
		return nativeBoolToBooleanValue(IsTruthy(left) || IsTruthy(right))
	}

	return newStructuredErrorWithPos(ferrors.CodeUnexpectedToken, tok, map[string]any{"Token": operator})
}

// compareValues orders operands numerically. Two texts compare lexically
// unless both read as numbers, so "10" > "9". Comparisons involving NaN
// are false.
func compareValues(operator string, left, right Value) bool {
	if l, ok := left.(*Text); ok {
		if r, ok := right.(*Text); ok && !(numericText(l.Value) && numericText(r.Value)) {
			c := strings.Compare(l.Value, r.Value)
			switch operator {
			case "<":
				return c < 0
			case "<=":
				return c <= 0
			case ">":
				return c > 0
			default:
				return c >= 0
			}
		}
	}

	l, r := ToNumber(left), ToNumber(right)
	switch operator {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	default:
		return l >= r
	}
}

// numericText reports whether s is non-blank text that reads as a number.
func numericText(s string) bool {
	return strings.TrimSpace(s) != "" && !math.IsNaN(parseNumericText(s))
}

func evalCallExpression(node *ast.CallExpression, ctx Context, env *Environment) Value {
	def, ok := Lookup(node.Name)
	if !ok {
		return newUnknownFunctionError(node.Name, node.Token)
	}

	args := make([]Value, 0, len(node.Arguments))
	for _, argNode := range node.Arguments {
		arg := Eval(argNode, ctx, env)
		if isError(arg) {
			return arg
		}
		args = append(args, arg)
	}

	if env.StrictArity && !checkArity(def.Arity, len(args)) {
		return newArityError(def, len(args), node.Token)
	}

	return callFunction(env, def, args)
}
