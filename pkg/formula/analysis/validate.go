// Package analysis inspects formulas without evaluating them for effect:
// validation, column references, result types, dependency checks and
// syntax highlighting.
package analysis

import (
	stderrors "errors"

	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
)

// Result is the outcome of Validate.
type Result struct {
	Valid bool                  `json:"valid"`
	Error string                `json:"error,omitempty"`
	Err   *ferrors.FormulaError `json:"details,omitempty"`
}

// Validate reports whether source is a well-formed formula. A formula that
// validates also parses and evaluates without error against a context
// holding its column references.
func Validate(source string) Result {
	if err := Check(source); err != nil {
		return Result{Valid: false, Error: err.Error(), Err: err}
	}
	return Result{Valid: true}
}

// Check runs the validation passes in order and returns the first problem
// found, or nil.
func Check(source string) *ferrors.FormulaError {
	tokens := lexer.Tokenize(source)
	if len(tokens) == 0 {
		return ferrors.New(ferrors.CodeEmptyFormula, nil)
	}

	passes := []func([]lexer.Token) *ferrors.FormulaError{
		checkBrackets,
		checkFunctions,
		checkOperatorSequences,
		checkStrings,
	}
	for _, pass := range passes {
		if err := pass(tokens); err != nil {
			return err
		}
	}

	if _, err := evaluator.Parse(tokens); err != nil {
		return toFormulaError(err)
	}
	return nil
}

// checkBrackets tracks () and [] with one shared depth counter.
func checkBrackets(tokens []lexer.Token) *ferrors.FormulaError {
	var open []lexer.Token
	for _, tok := range tokens {
		switch tok.Type {
		case lexer.LPAREN, lexer.LBRACKET:
			open = append(open, tok)
		case lexer.RPAREN, lexer.RBRACKET:
			if len(open) == 0 {
				return ferrors.New(ferrors.CodeUnbalanced, map[string]any{"Token": tok.Literal}).
					WithPosition(tok.Line, tok.Column)
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		last := open[len(open)-1]
		return ferrors.New(ferrors.CodeUnclosed, map[string]any{"Count": len(open)}).
			WithPosition(last.Line, last.Column)
	}
	return nil
}

func checkFunctions(tokens []lexer.Token) *ferrors.FormulaError {
	for _, tok := range tokens {
		if tok.Type != lexer.FUNCTION {
			continue
		}
		if _, ok := evaluator.Lookup(tok.Literal); !ok {
			return ferrors.NewUnknownFunction(tok.Literal, evaluator.FunctionNames()).
				WithPosition(tok.Line, tok.Column)
		}
	}
	return nil
}

// checkOperatorSequences rejects ++ -- ** and // . Unary minus applied
// twice is rejected too.
func checkOperatorSequences(tokens []lexer.Token) *ferrors.FormulaError {
	for i := 1; i < len(tokens); i++ {
		prev, tok := tokens[i-1], tokens[i]
		if prev.Type != tok.Type {
			continue
		}
		switch tok.Type {
		case lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH:
			return ferrors.New(ferrors.CodeAdjacentOperators, map[string]any{"Operator": tok.Literal}).
				WithPosition(prev.Line, prev.Column)
		}
	}
	return nil
}

func checkStrings(tokens []lexer.Token) *ferrors.FormulaError {
	for _, tok := range tokens {
		if tok.Type == lexer.STRING && !tok.Terminated {
			return ferrors.New(ferrors.CodeUnterminatedString, map[string]any{"Quote": "a matching quote"}).
				WithPosition(tok.Line, tok.Column)
		}
	}
	return nil
}

// toFormulaError unwraps err into a FormulaError, wrapping foreign errors
// with their message.
func toFormulaError(err error) *ferrors.FormulaError {
	var ferr *ferrors.FormulaError
	if stderrors.As(err, &ferr) {
		return ferr
	}
	return ferrors.New("", map[string]any{"message": err.Error()})
}
