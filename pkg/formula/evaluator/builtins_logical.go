package evaluator

var valueParam = []Param{{Name: "value", Type: "any"}}
var conditionsParam = []Param{{Name: "conditions", Type: "boolean", Variadic: true}}

var logicalFunctions = []*FunctionDefinition{
	{
		Name: "if", Category: CategoryLogical, Returns: "any", Arity: "3",
		Params: []Param{
			{Name: "condition", Type: "boolean"},
			{Name: "then", Type: "any"},
			{Name: "else", Type: "any"},
		},
		Description: "Returns then when the condition is truthy, otherwise else. Both branches are evaluated",
		Examples:    []string{`if({status} == "active", 1, 0)`, `IF({price} > 100, "expensive", "cheap")`},
		Fn: func(env *Environment, args []Value) Value {
			if IsTruthy(args[0]) {
				return args[1]
			}
			return args[2]
		},
	},
	{
		Name: "and", Category: CategoryLogical, Returns: "boolean", Arity: "0+", Params: conditionsParam,
		Description: "Returns true when every argument is truthy",
		Examples:    []string{"and({paid}, {shipped}) => true"},
		Fn: func(env *Environment, args []Value) Value {
			for _, arg := range args {
				if !IsTruthy(arg) {
					return FALSE
				}
			}
			return TRUE
		},
	},
	{
		Name: "or", Category: CategoryLogical, Returns: "boolean", Arity: "0+", Params: conditionsParam,
		Description: "Returns true when any argument is truthy",
		Examples:    []string{"or({overdue}, {flagged}) => true"},
		Fn: func(env *Environment, args []Value) Value {
			for _, arg := range args {
				if IsTruthy(arg) {
					return TRUE
				}
			}
			return FALSE
		},
	},
	{
		Name: "not", Category: CategoryLogical, Returns: "boolean", Arity: "1", Params: valueParam,
		Description: "Returns the boolean negation of a value's truthiness",
		Examples:    []string{"not({archived}) => true"},
		Fn: func(env *Environment, args []Value) Value {
			return nativeBoolToBooleanValue(!IsTruthy(args[0]))
		},
	},
	{
		Name: "isNull", Category: CategoryLogical, Returns: "boolean", Arity: "1", Params: valueParam,
		Description: "Returns true when the value is null or the column is missing",
		Examples:    []string{"isNull({deleted_at}) => true"},
		Fn: func(env *Environment, args []Value) Value {
			return nativeBoolToBooleanValue(args[0].Type() == NULL_VAL)
		},
	},
	{
		Name: "isEmpty", Category: CategoryLogical, Returns: "boolean", Arity: "1", Params: valueParam,
		Description: "Returns true for null, empty text and empty lists",
		Examples:    []string{`isEmpty({notes}) => true`},
		Fn: func(env *Environment, args []Value) Value {
			switch v := args[0].(type) {
			case *Null:
				return TRUE
			case *Text:
				return nativeBoolToBooleanValue(v.Value == "")
			case *Array:
				return nativeBoolToBooleanValue(len(v.Elements) == 0)
			}
			return FALSE
		},
	},
}
