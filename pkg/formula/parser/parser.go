package parser

import (
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/ast"
	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
)

// Precedence levels for operators
const (
	_ int = iota
	LOWEST
	LOGIC_OR    // || or |
	LOGIC_AND   // && or &
	EQUALS      // == != =
	LESSGREATER // > or <
	SUM         // +
	PRODUCT     // * / %
	PREFIX      // -X or !X
	POWER       // ^ (right-associative, binds tighter than unary minus)
	INDEX       // column[index]
)

// precedences maps tokens to their precedence
var precedences = map[lexer.TokenType]int{
	lexer.OR:       LOGIC_OR,
	lexer.AND:      LOGIC_AND,
	lexer.EQ:       EQUALS,
	lexer.NOT_EQ:   EQUALS,
	lexer.ASSIGN:   EQUALS,
	lexer.LT:       LESSGREATER,
	lexer.GT:       LESSGREATER,
	lexer.LTE:      LESSGREATER,
	lexer.GTE:      LESSGREATER,
	lexer.PLUS:     SUM,
	lexer.MINUS:    SUM,
	lexer.SLASH:    PRODUCT,
	lexer.ASTERISK: PRODUCT,
	lexer.PERCENT:  PRODUCT,
	lexer.CARET:    POWER,
	lexer.LBRACKET: INDEX,
}

// canonicalOperators maps single-character aliases onto the operator they
// behave like.
var canonicalOperators = map[lexer.TokenType]string{
	lexer.ASSIGN: "==",
	lexer.AND:    "&&",
	lexer.OR:     "||",
}

// Parser builds an expression tree from a token stream
type Parser struct {
	tokens []lexer.Token
	pos    int // index of peekToken in tokens

	structuredErrors []*ferrors.FormulaError // only the first error is kept

	prevToken lexer.Token
	curToken  lexer.Token
	peekToken lexer.Token

	functions     map[string]bool // lower-cased known names; nil disables the check
	functionNames []string

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Option configures a Parser.
type Option func(*Parser)

// WithFunctions makes the parser reject calls to functions outside names.
// Matching is case-insensitive.
func WithFunctions(names ...string) Option {
	return func(p *Parser) {
		p.functions = make(map[string]bool, len(names))
		for _, name := range names {
			p.functions[strings.ToLower(name)] = true
		}
		p.functionNames = names
	}
}

// New creates a new parser over tokens
func New(tokens []lexer.Token, opts ...Option) *Parser {
	p := &Parser{
		tokens:    tokens,
		prevToken: lexer.Token{Type: lexer.ILLEGAL},
	}

	for _, opt := range opts {
		opt(p)
	}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseColumnRef)
	p.registerPrefix(lexer.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBoolean)
	p.registerPrefix(lexer.FALSE, p.parseBoolean)
	p.registerPrefix(lexer.FUNCTION, p.parseCallExpression)
	p.registerPrefix(lexer.BANG, p.parsePrefixExpression)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for tokenType := range precedences {
		p.registerInfix(tokenType, p.parseInfixExpression)
	}
	p.registerInfix(lexer.LBRACKET, p.parseIndexExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Parse tokenizes and parses a formula in one step.
func Parse(source string, opts ...Option) (ast.Expression, error) {
	return New(lexer.Tokenize(source), opts...).ParseFormula()
}

// Errors returns parser errors as strings (convenience method for tests).
// Prefer StructuredErrors() for production code.
func (p *Parser) Errors() []string {
	result := make([]string, len(p.structuredErrors))
	for i, err := range p.structuredErrors {
		result[i] = err.Error()
	}
	return result
}

// StructuredErrors returns parser errors as structured FormulaError objects.
func (p *Parser) StructuredErrors() []*ferrors.FormulaError {
	return p.structuredErrors
}

// addStructuredError adds a structured error from the catalog.
// Only the first error is recorded - subsequent errors are usually cascading noise.
func (p *Parser) addStructuredError(code string, tok lexer.Token, data map[string]any) {
	if len(p.structuredErrors) > 0 {
		return
	}
	p.structuredErrors = append(p.structuredErrors, ferrors.NewWithPosition(code, tok.Line, tok.Column, data))
}

// addError records a prebuilt error, keeping only the first.
func (p *Parser) addError(err *ferrors.FormulaError) {
	if len(p.structuredErrors) > 0 {
		return
	}
	p.structuredErrors = append(p.structuredErrors, err)
}

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// nextToken advances prevToken, curToken, and peekToken
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	p.peekToken = p.readToken()
}

// readToken returns the next token from the stream, or a synthetic EOF
// positioned just after the last real token.
func (p *Parser) readToken() lexer.Token {
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++
		return tok
	}
	eof := lexer.Token{Type: lexer.EOF, Line: 1, Column: 1}
	if n := len(p.tokens); n > 0 {
		last := p.tokens[n-1]
		eof.Pos = last.End
		eof.End = last.End
		eof.Line = last.Line
		eof.Column = last.Column + (last.End - last.Pos)
	}
	return eof
}

// ParseFormula parses one complete formula. Anything after the expression
// is an error.
func (p *Parser) ParseFormula() (ast.Expression, error) {
	if p.curTokenIs(lexer.EOF) {
		p.addStructuredError(ferrors.CodeUnexpectedEndOfInput, p.curToken, map[string]any{"Expected": "an expression"})
		return nil, p.structuredErrors[0]
	}

	expr := p.parseExpression(LOWEST)

	if len(p.structuredErrors) == 0 && !p.peekTokenIs(lexer.EOF) {
		p.addStructuredError(ferrors.CodeUnexpectedToken, p.peekToken, map[string]any{"Token": p.peekToken.Literal})
	}

	if len(p.structuredErrors) > 0 {
		return nil, p.structuredErrors[0]
	}
	return expr, nil
}

// parseExpression parses expressions using Pratt parsing
func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError()
		return nil
	}

	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()

		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) parseColumnRef() ast.Expression {
	return &ast.ColumnRef{
		Token: p.curToken,
		Name:  strings.Trim(p.curToken.Literal, "{}"),
	}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil && !stderrors.Is(err, strconv.ErrRange) {
		p.addStructuredError(ferrors.CodeInvalidNumber, p.curToken, map[string]any{"Literal": p.curToken.Literal})
		return nil
	}
	return &ast.NumberLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}

	p.nextToken()

	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Left:     left,
		Operator: p.curToken.Literal,
	}
	if op, ok := canonicalOperators[p.curToken.Type]; ok {
		expression.Operator = op
	}

	precedence := p.curPrecedence()
	if p.curTokenIs(lexer.CARET) {
		precedence-- // right-associative
	}
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()

	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}

	if !p.expectPeek(lexer.RPAREN, "')'") {
		return nil
	}

	return exp
}

// parseIndexExpression handles bracketed access on a column, chained as
// deep as needed. Indexing anything not rooted at a column is an error.
func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	if !indexable(left) {
		p.addStructuredError(ferrors.CodeUnexpectedToken, p.curToken, map[string]any{"Token": p.curToken.Literal})
		return nil
	}

	expression := &ast.IndexExpression{Token: p.curToken, Left: left}

	p.nextToken()
	expression.Index = p.parseExpression(LOWEST)
	if expression.Index == nil {
		return nil
	}

	if !p.expectPeek(lexer.RBRACKET, "']'") {
		return nil
	}

	return expression
}

func indexable(expr ast.Expression) bool {
	switch expr := expr.(type) {
	case *ast.ColumnRef:
		return true
	case *ast.IndexExpression:
		return indexable(expr.Left)
	}
	return false
}

func (p *Parser) parseCallExpression() ast.Expression {
	call := &ast.CallExpression{Token: p.curToken, Name: p.curToken.Literal}

	if p.functions != nil && !p.functions[strings.ToLower(call.Name)] {
		p.addError(ferrors.NewUnknownFunction(call.Name, p.functionNames).
			WithPosition(p.curToken.Line, p.curToken.Column))
		return nil
	}

	if !p.expectPeek(lexer.LPAREN, "'('") {
		return nil
	}

	args, ok := p.parseArguments()
	if !ok {
		return nil
	}
	call.Arguments = args

	return call
}

// parseArguments parses a comma-separated argument list up to the closing
// parenthesis. curToken is the opening parenthesis on entry.
func (p *Parser) parseArguments() ([]ast.Expression, bool) {
	args := []ast.Expression{}

	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return args, true
	}

	p.nextToken()
	arg := p.parseExpression(LOWEST)
	if arg == nil {
		return nil, false
	}
	args = append(args, arg)

	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken() // consume comma
		p.nextToken() // move to next argument
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
	}

	if !p.expectPeek(lexer.RPAREN, "')'") {
		return nil, false
	}

	return args, true
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t lexer.TokenType, name string) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(name)
	return false
}

func (p *Parser) peekError(expected string) {
	if p.peekTokenIs(lexer.EOF) {
		p.addStructuredError(ferrors.CodeUnexpectedEndOfInput, p.peekToken, map[string]any{"Expected": expected})
		return
	}
	p.addStructuredError(ferrors.CodeExpectedToken, p.peekToken, map[string]any{
		"Expected": expected,
		"Got":      p.peekToken.Literal,
	})
}

func (p *Parser) noPrefixParseFnError() {
	if p.curTokenIs(lexer.EOF) {
		p.addStructuredError(ferrors.CodeUnexpectedEndOfInput, p.curToken, map[string]any{"Expected": "an expression"})
		return
	}
	p.addStructuredError(ferrors.CodeUnexpectedToken, p.curToken, map[string]any{"Token": p.curToken.Literal})
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}
