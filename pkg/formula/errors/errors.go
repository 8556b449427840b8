// Package errors provides structured error types for the formula engine.
//
// FormulaError is the single error type surfaced by the lexer, parser,
// evaluator and registry. Each error carries a catalog code so callers can
// branch on the failure kind without matching message text.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassParse     ErrorClass = "parse"     // Lexer/parser errors
	ClassType      ErrorClass = "type"      // Type or cast problems
	ClassArity     ErrorClass = "arity"     // Wrong argument count
	ClassUndefined ErrorClass = "undefined" // Unknown function, column or formula
	ClassOperator  ErrorClass = "operator"  // Invalid operations
	ClassState     ErrorClass = "state"     // Batch evaluation state (cycles)
)

// Catalog codes for the failure kinds the engine reports.
const (
	CodeLexError             = "LEX-0001"
	CodeExpectedToken        = "PARSE-0001"
	CodeUnexpectedToken      = "PARSE-0002"
	CodeUnexpectedEndOfInput = "PARSE-0003"
	CodeInvalidNumber        = "PARSE-0004"
	CodeEmptyFormula         = "PARSE-0005"
	CodeUnbalanced           = "PARSE-0006"
	CodeUnclosed             = "PARSE-0007"
	CodeAdjacentOperators    = "PARSE-0008"
	CodeUnterminatedString   = "PARSE-0009"
	CodeUnknownFunction      = "UNDEF-0001"
	CodeUnknownColumn        = "UNDEF-0002"
	CodeUndefinedFormula     = "UNDEF-0003"
	CodeArityMismatch        = "ARITY-0001"
	CodeMissingReturnType    = "TYPE-0001"
	CodeUnsupportedCast      = "TYPE-0002"
	CodeDivisionByZero       = "OP-0001"
	CodeCircularDependency   = "STATE-0001"
	CodeUnusedDependency     = "STATE-0002"
	CodeMissingDependency    = "STATE-0003"
)

// FormulaError represents any error from parsing or evaluating a formula.
type FormulaError struct {
	Class   ErrorClass     `json:"class"`              // Error category
	Code    string         `json:"code"`               // Error code (e.g., "PARSE-0002")
	Message string         `json:"message"`            // Human-readable message
	Hints   []string       `json:"hints,omitempty"`    // Suggestions for fixing
	Line    int            `json:"line"`               // 1-based line (0 if unknown)
	Column  int            `json:"column"`             // 1-based column (0 if unknown)
	Formula string         `json:"formula,omitempty"`  // Formula name (registry errors)
	Data    map[string]any `json:"data,omitempty"`     // Template variables
}

// Error implements the error interface.
func (e *FormulaError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *FormulaError) String() string {
	var sb strings.Builder

	if e.Formula != "" {
		sb.WriteString(e.Formula)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *FormulaError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassParse:
		sb.WriteString("Syntax error")
	default:
		sb.WriteString("Evaluation error")
	}

	if e.Formula != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.Formula)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Hint: ")
		} else {
			sb.WriteString("  or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *FormulaError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFormula returns a copy of the error attributed to a named formula.
func (e *FormulaError) WithFormula(name string) *FormulaError {
	copy := *e
	copy.Formula = name
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *FormulaError) WithPosition(line, column int) *FormulaError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// IsParseError returns true if this is a syntax error.
func (e *FormulaError) IsParseError() bool {
	return e.Class == ClassParse
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// Lexer (reserved: the lexer skips what it does not recognize)
	CodeLexError: {
		Class:    ClassParse,
		Template: "unrecognized character '{{.Char}}'",
	},

	// Parser
	CodeExpectedToken: {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	CodeUnexpectedToken: {
		Class:    ClassParse,
		Template: "unexpected token '{{.Token}}'",
	},
	CodeUnexpectedEndOfInput: {
		Class:    ClassParse,
		Template: "unexpected end of formula",
		Hints:    []string{"the formula stops before {{.Expected}} is complete"},
	},
	CodeInvalidNumber: {
		Class:    ClassParse,
		Template: "invalid number literal: {{.Literal}}",
	},
	CodeEmptyFormula: {
		Class:    ClassParse,
		Template: "formula is empty",
	},
	CodeUnbalanced: {
		Class:    ClassParse,
		Template: "unbalanced brackets: unexpected '{{.Token}}'",
	},
	CodeUnclosed: {
		Class:    ClassParse,
		Template: "unbalanced brackets: {{.Count}} left open",
		Hints:    []string{"add the missing ')' or ']'"},
	},
	CodeAdjacentOperators: {
		Class:    ClassParse,
		Template: "invalid operator sequence '{{.Operator}}{{.Operator}}'",
	},
	CodeUnterminatedString: {
		Class:    ClassParse,
		Template: "unterminated string literal",
		Hints:    []string{"close the string with {{.Quote}}"},
	},

	// Undefined names
	CodeUnknownFunction: {
		Class:    ClassUndefined,
		Template: "unknown function '{{.Name}}'",
	},
	CodeUnknownColumn: {
		Class:    ClassUndefined,
		Template: "column not found: {{.Name}}",
	},
	CodeUndefinedFormula: {
		Class:    ClassUndefined,
		Template: "formula '{{.Name}}' is not defined",
	},

	// Arity
	CodeArityMismatch: {
		Class:    ClassArity,
		Template: "{{.Function}}() expects {{.Expected}} argument(s), got {{.Got}}",
	},

	// Types
	CodeMissingReturnType: {
		Class:    ClassType,
		Template: "no return type specified",
		Hints:    []string{"supported types: number, text, boolean, date"},
	},
	CodeUnsupportedCast: {
		Class:    ClassType,
		Template: "cannot cast to unknown type '{{.Target}}'",
		Hints:    []string{"supported types: number, text, boolean, date"},
	},

	// Operators
	CodeDivisionByZero: {
		Class:    ClassOperator,
		Template: "division by zero",
	},

	// Batch state
	CodeCircularDependency: {
		Class:    ClassState,
		Template: "circular dependency detected: {{.Path}}",
	},
	CodeUnusedDependency: {
		Class:    ClassState,
		Template: "unused dependencies: {{.Names}}",
	},
	CodeMissingDependency: {
		Class:    ClassState,
		Template: "missing dependencies: {{.Names}}",
		Hints:    []string{"declare every column the formula reads"},
	},
}

// New creates a FormulaError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *FormulaError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &FormulaError{
			Class:   ClassType,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &FormulaError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a FormulaError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *FormulaError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *FormulaError {
	return &FormulaError{
		Class:   class,
		Message: message,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// CodeOf returns the catalog code of the first FormulaError in err's chain,
// or "" when err is not a FormulaError.
func CodeOf(err error) string {
	var ferr *FormulaError
	if stderrors.As(err, &ferr) {
		return ferr.Code
	}
	return ""
}

// Is reports whether err wraps a FormulaError with the given code.
func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// matchThreshold is the maximum edit distance worth suggesting for input.
// Short words (1-3): 1 edit, medium (4-6): 2 edits, longer: 3 edits.
func matchThreshold(input string) int {
	switch {
	case len(input) >= 7:
		return 3
	case len(input) >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Comparison is case-insensitive. Returns "" when nothing is close enough
// or when the input already matches exactly.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	if bestDistance <= 0 || bestDistance > matchThreshold(input) {
		return ""
	}

	return bestMatch
}

// FuzzyMatch represents a fuzzy match result with its distance.
type FuzzyMatch struct {
	Value    string
	Distance int
}

// FindTopMatches returns up to n candidates within the edit threshold,
// closest first.
func FindTopMatches(input string, candidates []string, n int) []string {
	if len(input) == 0 || len(candidates) == 0 || n <= 0 {
		return nil
	}

	inputLower := strings.ToLower(input)

	var matches []FuzzyMatch
	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if dist > 0 {
			matches = append(matches, FuzzyMatch{Value: candidate, Distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	threshold := matchThreshold(input)
	var result []string
	for i := 0; i < len(matches) && len(result) < n; i++ {
		if matches[i].Distance <= threshold {
			result = append(result, matches[i].Value)
		}
	}

	return result
}

// NewUnknownFunction creates an unknown function error with an optional
// "Did you mean?" hint drawn from the known function names.
func NewUnknownFunction(name string, known []string) *FormulaError {
	err := New(CodeUnknownFunction, map[string]any{"Name": name})
	if suggestion := FindClosestMatch(name, known); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	return err
}

// NewUnknownColumn creates a column-not-found error with an optional hint
// drawn from the columns present in the context.
func NewUnknownColumn(name string, columns []string) *FormulaError {
	err := New(CodeUnknownColumn, map[string]any{"Name": name})
	if suggestion := FindClosestMatch(name, columns); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	return err
}
