// Package help provides topic-based documentation for the formula language:
// functions, categories, operators, result types and error codes. It backs
// `formula describe` and the REPL's :describe command.
package help

import (
	"fmt"
	"sort"
	"strings"

	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
)

// TopicResult represents the help output for a topic
type TopicResult struct {
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Signature   string            `json:"signature,omitempty"`
	Category    string            `json:"category,omitempty"`
	Returns     string            `json:"returns,omitempty"`
	Arity       string            `json:"arity,omitempty"`
	Params      []evaluator.Param `json:"params,omitempty"`
	Examples    []string          `json:"examples,omitempty"`
	Functions   []FunctionEntry   `json:"functions,omitempty"`
	Operators   []OperatorInfo    `json:"operators,omitempty"`
	Types       []TypeInfo        `json:"types,omitempty"`
	Errors      []ErrorEntry      `json:"errors,omitempty"`
}

// FunctionEntry summarizes one function in a list
type FunctionEntry struct {
	Name        string `json:"name"`
	Signature   string `json:"signature"`
	Category    string `json:"category"`
	Returns     string `json:"returns"`
	Description string `json:"description"`
}

// OperatorInfo describes one operator
type OperatorInfo struct {
	Symbol      string `json:"symbol"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// TypeInfo describes one value type
type TypeInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorEntry describes one error code
type ErrorEntry struct {
	Code     string `json:"code"`
	Class    string `json:"class"`
	Template string `json:"template"`
}

// Operators lists the operators in precedence order, lowest first.
var Operators = []OperatorInfo{
	{"||  |", "logical", "Either side is truthy"},
	{"&&  &", "logical", "Both sides are truthy"},
	{"==  =", "comparison", "Equal (numbers, text, booleans and dates)"},
	{"!=", "comparison", "Not equal"},
	{"<  <=  >  >=", "comparison", "Ordering of numbers, text or dates"},
	{"+", "arithmetic", "Add numbers, or join when either side is text"},
	{"-", "arithmetic", "Subtract; also negation"},
	{"*", "arithmetic", "Multiply"},
	{"/", "arithmetic", "Divide; by zero gives Infinity or NaN unless strict"},
	{"%", "arithmetic", "Remainder"},
	{"^", "arithmetic", "Power, right associative"},
	{"!", "logical", "Negate truthiness"},
	{"[ ]", "access", "Element of a list or field of a record"},
	{"{name}", "access", "Column reference; names may contain spaces"},
}

// Types lists the value types a formula can see or produce.
var Types = []TypeInfo{
	{"number", "64-bit float; Infinity and NaN are values"},
	{"text", "Unicode text in single or double quotes"},
	{"boolean", "true or false"},
	{"date", "An instant, rendered as ISO 8601 UTC"},
	{"null", "A missing column or absent value"},
	{"list", "Relation and rollup values; aggregates flatten them"},
	{"record", "A row of a relation, read with [\"field\"]"},
}

var categoryDescriptions = map[string]string{
	evaluator.CategoryMath:    "Numeric functions and aggregates",
	evaluator.CategoryString:  "Text functions",
	evaluator.CategoryDate:    "Date construction, arithmetic and formatting",
	evaluator.CategoryLogical: "Conditionals and tests",
}

// DescribeTopic returns help information for the given topic.
// Topics can be: function names (any case), categories (math, string, date,
// logical), error codes (PARSE-0001) or the keywords functions, operators,
// types and errors.
func DescribeTopic(topic string) (*TopicResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("no topic specified (try: functions, operators, types, errors, math, sum)")
	}

	switch strings.ToLower(topic) {
	case "functions":
		return describeFunctions(), nil
	case "operators":
		return &TopicResult{Kind: "operator-list", Name: "operators", Operators: Operators}, nil
	case "types":
		return &TopicResult{Kind: "type-list", Name: "types", Types: Types}, nil
	case "errors":
		return describeErrors(), nil
	}

	if desc, ok := categoryDescriptions[strings.ToLower(topic)]; ok {
		category := strings.ToLower(topic)
		return &TopicResult{
			Kind:        "category",
			Name:        category,
			Description: desc,
			Functions:   entries(evaluator.FunctionsInCategory(category)),
		}, nil
	}

	if def, ok := evaluator.Lookup(topic); ok {
		return &TopicResult{
			Kind:        "function",
			Name:        def.Name,
			Description: def.Description,
			Signature:   def.Signature(),
			Category:    def.Category,
			Returns:     def.Returns,
			Arity:       def.Arity,
			Params:      def.Params,
			Examples:    def.Examples,
		}, nil
	}

	if def, ok := ferrors.ErrorCatalog[strings.ToUpper(topic)]; ok {
		return &TopicResult{
			Kind:   "error",
			Name:   strings.ToUpper(topic),
			Errors: []ErrorEntry{{Code: strings.ToUpper(topic), Class: string(def.Class), Template: def.Template}},
		}, nil
	}

	return nil, unknownTopicError(topic)
}

func entries(defs []*evaluator.FunctionDefinition) []FunctionEntry {
	out := make([]FunctionEntry, len(defs))
	for i, def := range defs {
		out[i] = FunctionEntry{
			Name:        def.Name,
			Signature:   def.Signature(),
			Category:    def.Category,
			Returns:     def.Returns,
			Description: def.Description,
		}
	}
	return out
}

// describeFunctions returns every function sorted by category, then name
func describeFunctions() *TopicResult {
	return &TopicResult{
		Kind:      "function-list",
		Name:      "functions",
		Functions: entries(evaluator.Functions()),
	}
}

// describeErrors returns the error catalog sorted by code
func describeErrors() *TopicResult {
	codes := errorCodes()
	errs := make([]ErrorEntry, len(codes))
	for i, code := range codes {
		def := ferrors.ErrorCatalog[code]
		errs[i] = ErrorEntry{Code: code, Class: string(def.Class), Template: def.Template}
	}
	return &TopicResult{Kind: "error-list", Name: "errors", Errors: errs}
}

func errorCodes() []string {
	codes := make([]string, 0, len(ferrors.ErrorCatalog))
	for code := range ferrors.ErrorCatalog {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// unknownTopicError generates a helpful error for unknown topics
func unknownTopicError(topic string) error {
	candidates := append([]string{"functions", "operators", "types", "errors"}, evaluator.Categories...)
	candidates = append(candidates, evaluator.FunctionNames()...)

	if suggestions := ferrors.FindTopMatches(topic, candidates, 3); len(suggestions) > 0 {
		return fmt.Errorf("unknown topic: %s\nDid you mean: %s?", topic, strings.Join(suggestions, ", "))
	}
	return fmt.Errorf("unknown topic: %s\nTry: functions, operators, types, errors, math, string, date, logical", topic)
}
