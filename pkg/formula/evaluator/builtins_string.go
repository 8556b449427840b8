package evaluator

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

var stringParam = []Param{{Name: "string", Type: "string"}}

var stringFunctions = []*FunctionDefinition{
	{
		Name: "upper", Category: CategoryString, Returns: "text", Arity: "1", Params: stringParam,
		Description: "Converts text to upper case using the configured locale",
		Examples:    []string{`upper("hello") => "HELLO"`},
		Fn: func(env *Environment, args []Value) Value {
			return &Text{Value: cases.Upper(env.LanguageTag()).String(ToText(args[0]))}
		},
	},
	{
		Name: "lower", Category: CategoryString, Returns: "text", Arity: "1", Params: stringParam,
		Description: "Converts text to lower case using the configured locale",
		Examples:    []string{`lower("HELLO") => "hello"`},
		Fn: func(env *Environment, args []Value) Value {
			return &Text{Value: cases.Lower(env.LanguageTag()).String(ToText(args[0]))}
		},
	},
	{
		Name: "trim", Category: CategoryString, Returns: "text", Arity: "1", Params: stringParam,
		Description: "Removes leading and trailing whitespace",
		Examples:    []string{`trim("  hello  ") => "hello"`},
		Fn: func(env *Environment, args []Value) Value {
			return &Text{Value: strings.TrimSpace(ToText(args[0]))}
		},
	},
	{
		Name: "concat", Category: CategoryString, Returns: "text", Arity: "0+",
		Params:      []Param{{Name: "strings", Type: "string", Variadic: true}},
		Description: "Joins the text of all arguments",
		Examples:    []string{`concat("Hello", " ", "World") => "Hello World"`, `concat({first_name}, " ", {last_name})`},
		Fn: func(env *Environment, args []Value) Value {
			var sb strings.Builder
			for _, arg := range args {
				sb.WriteString(ToText(arg))
			}
			return &Text{Value: sb.String()}
		},
	},
	{
		Name: "substring", Category: CategoryString, Returns: "text", Arity: "2-3",
		Params: []Param{
			{Name: "string", Type: "string"},
			{Name: "start", Type: "number"},
			{Name: "end", Type: "number", Optional: true},
		},
		Description: "Returns the characters from start up to but not including end",
		Examples:    []string{`substring("hello", 0, 3) => "hel"`, `substring("hello", 3, 0) => "hel"`},
		Fn:          builtinSubstring,
	},
	{
		Name: "replace", Category: CategoryString, Returns: "text", Arity: "3",
		Params: []Param{
			{Name: "string", Type: "string"},
			{Name: "search", Type: "string"},
			{Name: "replacement", Type: "string"},
		},
		Description: "Replaces every match of a regular expression; an invalid pattern is matched literally",
		Examples:    []string{`replace("hello world", "world", "there") => "hello there"`, `replace("a1b22", "[0-9]+", "#") => "a#b#"`},
		Fn:          builtinReplace,
	},
	{
		Name: "length", Category: CategoryString, Returns: "text", Arity: "1", Params: stringParam,
		Description: "Returns the number of characters, as text",
		Examples:    []string{`length("hello") => "5"`},
		Fn: func(env *Environment, args []Value) Value {
			return &Text{Value: strconv.Itoa(utf8.RuneCountInString(ToText(args[0])))}
		},
	},
}

// builtinSubstring clamps both indices to the text, treats a missing end as
// the text length and swaps the indices when start is past end.
func builtinSubstring(env *Environment, args []Value) Value {
	runes := []rune(ToText(args[0]))
	n := len(runes)

	start := clampIndex(ToNumber(args[1]), n)
	end := n
	if args[2].Type() != NULL_VAL {
		end = clampIndex(ToNumber(args[2]), n)
	}
	if start > end {
		start, end = end, start
	}

	return &Text{Value: string(runes[start:end])}
}

func clampIndex(f float64, n int) int {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > float64(n) {
		return n
	}
	return int(f)
}

func builtinReplace(env *Environment, args []Value) Value {
	s := ToText(args[0])
	search := ToText(args[1])
	replacement := ToText(args[2])

	re, err := regexp.Compile(search)
	if err != nil {
		return &Text{Value: strings.ReplaceAll(s, search, replacement)}
	}
	return &Text{Value: re.ReplaceAllString(s, replacement)}
}
