// library.go - the function library formulas can call
//
// Every function is declared once with its implementation and the metadata
// used by describe and completion. Lookup is case-insensitive.

package evaluator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Function categories
const (
	CategoryMath    = "math"
	CategoryString  = "string"
	CategoryDate    = "date"
	CategoryLogical = "logical"
)

// Categories lists the function categories in display order.
var Categories = []string{CategoryMath, CategoryString, CategoryDate, CategoryLogical}

// BuiltinFunction is the signature of every library function. Missing
// arguments arrive as NULL.
type BuiltinFunction func(env *Environment, args []Value) Value

// Param describes one parameter of a library function.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
	Variadic bool   `json:"variadic,omitempty"`
}

// FunctionDefinition defines a single function with its implementation and metadata.
// This serves as the single source of truth for both dispatch and introspection.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Returns     string          `json:"returns"` // number, text, boolean, date or any
	Arity       string          `json:"arity"` // "0", "1", "1-2", "0+", etc.
	Params      []Param         `json:"params"`
	Description string          `json:"description"`
	Examples    []string        `json:"examples,omitempty"`
	Fn          BuiltinFunction `json:"-"`
}

// Signature renders the call shape, e.g. "substring(string, start, end?)".
func (d *FunctionDefinition) Signature() string {
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		switch {
		case p.Variadic:
			parts[i] = p.Name + "..."
		case p.Optional:
			parts[i] = p.Name + "?"
		default:
			parts[i] = p.Name
		}
	}
	return d.Name + "(" + strings.Join(parts, ", ") + ")"
}

// functions maps lower-cased names to definitions. Written only by init.
var functions map[string]*FunctionDefinition

func init() {
	functions = make(map[string]*FunctionDefinition)
	for _, group := range [][]*FunctionDefinition{mathFunctions, stringFunctions, dateFunctions, logicalFunctions} {
		for _, def := range group {
			functions[strings.ToLower(def.Name)] = def
		}
	}
}

// Lookup returns the function registered under name, ignoring case.
func Lookup(name string) (*FunctionDefinition, bool) {
	def, ok := functions[strings.ToLower(name)]
	return def, ok
}

// Functions returns all function definitions sorted by category, then name.
func Functions() []*FunctionDefinition {
	order := make(map[string]int, len(Categories))
	for i, c := range Categories {
		order[c] = i
	}

	defs := make([]*FunctionDefinition, 0, len(functions))
	for _, def := range functions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Category != defs[j].Category {
			return order[defs[i].Category] < order[defs[j].Category]
		}
		return strings.ToLower(defs[i].Name) < strings.ToLower(defs[j].Name)
	})
	return defs
}

// FunctionsInCategory returns the definitions of one category sorted by name.
func FunctionsInCategory(category string) []*FunctionDefinition {
	var defs []*FunctionDefinition
	for _, def := range Functions() {
		if def.Category == category {
			defs = append(defs, def)
		}
	}
	return defs
}

// FunctionNames returns the canonical spelling of every function name,
// sorted alphabetically.
func FunctionNames() []string {
	names := make([]string, 0, len(functions))
	for _, def := range functions {
		names = append(names, def.Name)
	}
	sort.Strings(names)
	return names
}

// availableGroups maps categories onto the group labels used by
// AvailableFunctions.
var availableGroups = map[string]string{
	CategoryMath:    "mathematical",
	CategoryString:  "string",
	CategoryDate:    "date",
	CategoryLogical: "logical",
}

// AvailableFunctions returns upper-cased function names grouped as
// mathematical, string, date and logical.
func AvailableFunctions() map[string][]string {
	out := make(map[string][]string, len(availableGroups))
	for _, def := range Functions() {
		group := availableGroups[def.Category]
		out[group] = append(out[group], strings.ToUpper(def.Name))
	}
	return out
}

// checkArity validates that the argument count matches the arity specification.
// Arity specs: "0", "1", "2", "0-1", "1-2", "0-2", "1+", "0+", "2+", etc.
func checkArity(spec string, got int) bool {
	spec = strings.TrimSpace(spec)

	// Exact match: "0", "1", "2", etc.
	if exact, err := strconv.Atoi(spec); err == nil {
		return got == exact
	}

	// Range: "0-1", "1-2", "0-2", etc.
	if minStr, maxStr, found := strings.Cut(spec, "-"); found {
		minVal, errMin := strconv.Atoi(minStr)
		maxVal, errMax := strconv.Atoi(maxStr)
		if errMin == nil && errMax == nil {
			return got >= minVal && got <= maxVal
		}
	}

	// Variadic: "1+", "0+", "2+", etc.
	if suffix, found := strings.CutSuffix(spec, "+"); found {
		minVal, err := strconv.Atoi(suffix)
		if err == nil {
			return got >= minVal
		}
	}

	// Unknown spec - be permissive
	return true
}

// describeArity turns an arity spec into words for error messages.
func describeArity(spec string) string {
	spec = strings.TrimSpace(spec)
	if minStr, maxStr, found := strings.Cut(spec, "-"); found {
		return fmt.Sprintf("%s to %s", minStr, maxStr)
	}
	if suffix, found := strings.CutSuffix(spec, "+"); found {
		return fmt.Sprintf("at least %s", suffix)
	}
	return spec
}

// callFunction applies a library function to evaluated arguments. Missing
// declared parameters are padded with NULL; extra arguments are passed
// through for variadic functions and otherwise ignored.
func callFunction(env *Environment, def *FunctionDefinition, args []Value) Value {
	if n := len(def.Params); n > 0 && !def.Params[n-1].Variadic {
		for len(args) < n {
			args = append(args, NULL)
		}
		args = args[:n]
	}
	return def.Fn(env, args)
}
