package evaluator

import "math"

var numberParam = []Param{{Name: "number", Type: "number"}}
var numbersParam = []Param{{Name: "numbers", Type: "number", Variadic: true}}

var mathFunctions = []*FunctionDefinition{
	{
		Name: "abs", Category: CategoryMath, Returns: "number", Arity: "1", Params: numberParam,
		Description: "Returns the absolute value of a number",
		Examples:    []string{"abs(-5) => 5", "abs({price}) => absolute price"},
		Fn:          unaryMath(math.Abs),
	},
	{
		Name: "ceil", Category: CategoryMath, Returns: "number", Arity: "1", Params: numberParam,
		Description: "Rounds a number up to the nearest integer",
		Examples:    []string{"ceil(3.2) => 4"},
		Fn:          unaryMath(math.Ceil),
	},
	{
		Name: "floor", Category: CategoryMath, Returns: "number", Arity: "1", Params: numberParam,
		Description: "Rounds a number down to the nearest integer",
		Examples:    []string{"floor(3.9) => 3"},
		Fn:          unaryMath(math.Floor),
	},
	{
		Name: "round", Category: CategoryMath, Returns: "number", Arity: "1", Params: numberParam,
		Description: "Rounds a number to the nearest integer, halves toward +Infinity",
		Examples:    []string{"round(3.7) => 4", "round(2.5) => 3", "round(-2.5) => -2"},
		Fn:          unaryMath(roundHalfUp),
	},
	{
		Name: "sqrt", Category: CategoryMath, Returns: "number", Arity: "1", Params: numberParam,
		Description: "Returns the square root of a number",
		Examples:    []string{"sqrt(9) => 3"},
		Fn:          unaryMath(math.Sqrt),
	},
	{
		Name: "pow", Category: CategoryMath, Returns: "number", Arity: "2",
		Params:      []Param{{Name: "base", Type: "number"}, {Name: "exponent", Type: "number"}},
		Description: "Raises a number to a power",
		Examples:    []string{"pow(2, 3) => 8"},
		Fn: func(env *Environment, args []Value) Value {
			return &Number{Value: math.Pow(ToNumber(args[0]), ToNumber(args[1]))}
		},
	},
	{
		Name: "min", Category: CategoryMath, Returns: "number", Arity: "0+", Params: numbersParam,
		Description: "Returns the smallest argument; lists are flattened",
		Examples:    []string{"min(1, 2, 3) => 1"},
		Fn: func(env *Environment, args []Value) Value {
			result := math.Inf(1)
			for _, v := range flatten(args) {
				result = math.Min(result, ToNumber(v))
			}
			return &Number{Value: result}
		},
	},
	{
		Name: "max", Category: CategoryMath, Returns: "number", Arity: "0+", Params: numbersParam,
		Description: "Returns the largest argument; lists are flattened",
		Examples:    []string{"max(1, 2, 3) => 3"},
		Fn: func(env *Environment, args []Value) Value {
			result := math.Inf(-1)
			for _, v := range flatten(args) {
				result = math.Max(result, ToNumber(v))
			}
			return &Number{Value: result}
		},
	},
	{
		Name: "sum", Category: CategoryMath, Returns: "number", Arity: "0+", Params: numbersParam,
		Description: "Adds all arguments; lists are flattened",
		Examples:    []string{"sum(1, 2, 3) => 6", "sum({price}, {tax}) => total"},
		Fn: func(env *Environment, args []Value) Value {
			return &Number{Value: sumValues(flatten(args))}
		},
	},
	{
		Name: "avg", Category: CategoryMath, Returns: "number", Arity: "0+", Params: numbersParam,
		Description: "Returns the arithmetic mean of the arguments; lists are flattened",
		Examples:    []string{"avg(1, 2, 3) => 2"},
		Fn: func(env *Environment, args []Value) Value {
			values := flatten(args)
			return &Number{Value: sumValues(values) / float64(len(values))}
		},
	},
	{
		Name: "count", Category: CategoryMath, Returns: "number", Arity: "0+",
		Params:      []Param{{Name: "values", Type: "any", Variadic: true}},
		Description: "Counts the non-null arguments; lists are flattened",
		Examples:    []string{"count(1, null_col, 3) => 2", "count({line_items}) => number of items"},
		Fn: func(env *Environment, args []Value) Value {
			n := 0
			for _, v := range flatten(args) {
				if v.Type() != NULL_VAL {
					n++
				}
			}
			return &Number{Value: float64(n)}
		},
	},
}

func unaryMath(fn func(float64) float64) BuiltinFunction {
	return func(env *Environment, args []Value) Value {
		return &Number{Value: fn(ToNumber(args[0]))}
	}
}

// roundHalfUp rounds to the nearest integer with halves going up, so
// 2.5 becomes 3 and -2.5 becomes -2.
func roundHalfUp(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.Floor(x + 0.5)
}

func sumValues(values []Value) float64 {
	total := 0.0
	for _, v := range values {
		total += ToNumber(v)
	}
	return total
}

// flatten expands array arguments (recursively) into their elements.
func flatten(args []Value) []Value {
	out := make([]Value, 0, len(args))
	for _, arg := range args {
		if arr, ok := arg.(*Array); ok {
			out = append(out, flatten(arr.Elements)...)
			continue
		}
		out = append(out, arg)
	}
	return out
}
