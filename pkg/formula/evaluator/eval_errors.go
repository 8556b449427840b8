// eval_errors.go - Error values for the formula evaluator
//
// Runtime failures travel through evaluation as *Error values and are
// converted to *errors.FormulaError at the package boundary.

package evaluator

import (
	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
)

// Error represents a runtime failure while evaluating a formula
type Error struct {
	Message string
	Line    int
	Column  int
	Class   ferrors.ErrorClass
	Code    string
	Hints   []string
	Data    map[string]any
}

func (e *Error) Type() ValueType { return ERROR_VAL }
func (e *Error) Inspect() string { return "ERROR: " + e.Message }

// ToFormulaError converts this Error to a FormulaError for structured error handling.
func (e *Error) ToFormulaError() *ferrors.FormulaError {
	return &ferrors.FormulaError{
		Class:   e.Class,
		Code:    e.Code,
		Message: e.Message,
		Hints:   e.Hints,
		Line:    e.Line,
		Column:  e.Column,
		Data:    e.Data,
	}
}

// fromFormulaError wraps a FormulaError as an evaluation value.
func fromFormulaError(ferr *ferrors.FormulaError) *Error {
	return &Error{
		Class:   ferr.Class,
		Code:    ferr.Code,
		Message: ferr.Message,
		Hints:   ferr.Hints,
		Line:    ferr.Line,
		Column:  ferr.Column,
		Data:    ferr.Data,
	}
}

// newStructuredErrorWithPos creates a structured error from the catalog,
// positioned at tok.
func newStructuredErrorWithPos(code string, tok lexer.Token, data map[string]any) *Error {
	err := fromFormulaError(ferrors.New(code, data))
	err.Line = tok.Line
	err.Column = tok.Column
	return err
}

// newUnknownFunctionError creates an unknown-function error with a
// "Did you mean?" hint over the library's names.
func newUnknownFunctionError(name string, tok lexer.Token) *Error {
	err := fromFormulaError(ferrors.NewUnknownFunction(name, FunctionNames()))
	err.Line = tok.Line
	err.Column = tok.Column
	return err
}

// newUnknownColumnError creates a column-not-found error with a hint over
// the columns present in ctx.
func newUnknownColumnError(name string, tok lexer.Token, ctx Context) *Error {
	err := fromFormulaError(ferrors.NewUnknownColumn(name, ctx.Columns()))
	err.Line = tok.Line
	err.Column = tok.Column
	return err
}

// newArityError creates an arity mismatch error for a function call.
func newArityError(def *FunctionDefinition, got int, tok lexer.Token) *Error {
	return newStructuredErrorWithPos(ferrors.CodeArityMismatch, tok, map[string]any{
		"Function": def.Name,
		"Expected": describeArity(def.Arity),
		"Got":      got,
	})
}

func isError(v Value) bool {
	if v != nil {
		return v.Type() == ERROR_VAL
	}
	return false
}
