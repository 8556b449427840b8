package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT    // price, tax_rate, {status}
	FUNCTION // sum, IF, formatDate (an identifier immediately followed by '(')
	NUMBER   // 42, 3.14
	STRING   // "text" or 'text'
	TRUE     // true
	FALSE    // false

	// Operators
	PLUS     // +
	MINUS    // -
	ASTERISK // *
	SLASH    // /
	PERCENT  // %
	CARET    // ^
	ASSIGN   // = (compares like ==)
	BANG     // !
	LT       // <
	GT       // >
	LTE      // <=
	GTE      // >=
	EQ       // ==
	NOT_EQ   // !=
	AND      // && or &
	OR       // || or |

	// Delimiters
	COMMA    // ,
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
)

// Kind is the coarse token classification used by tooling: every TokenType
// belongs to exactly one Kind.
type Kind string

const (
	KindNumber       Kind = "number"
	KindString       Kind = "string"
	KindBoolean      Kind = "boolean"
	KindIdentifier   Kind = "identifier"
	KindOperator     Kind = "operator"
	KindFunctionName Kind = "function"
	KindDelimiter    Kind = "delimiter"
	KindEOF          Kind = "eof"
)

// Token represents a single token
type Token struct {
	Type       TokenType
	Literal    string
	Pos        int  // byte offset of the first character
	End        int  // byte offset just past the last character
	Line       int  // 1-based
	Column     int  // 1-based
	Terminated bool // strings only: closing quote was found
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

// Kind classifies the token into one of the seven formula token kinds.
func (t Token) Kind() Kind {
	switch t.Type {
	case NUMBER:
		return KindNumber
	case STRING:
		return KindString
	case TRUE, FALSE:
		return KindBoolean
	case IDENT:
		return KindIdentifier
	case FUNCTION:
		return KindFunctionName
	case COMMA, LPAREN, RPAREN, LBRACKET, RBRACKET:
		return KindDelimiter
	case EOF, ILLEGAL:
		return KindEOF
	default:
		return KindOperator
	}
}

// NumberValue returns the numeric value of a NUMBER token.
func (t Token) NumberValue() (float64, error) {
	return strconv.ParseFloat(t.Literal, 64)
}

// BoolValue returns the value of a TRUE or FALSE token.
func (t Token) BoolValue() bool {
	return t.Type == TRUE
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	switch tt {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case IDENT:
		return "IDENT"
	case FUNCTION:
		return "FUNCTION"
	case NUMBER:
		return "NUMBER"
	case STRING:
		return "STRING"
	case TRUE:
		return "TRUE"
	case FALSE:
		return "FALSE"
	case PLUS:
		return "PLUS"
	case MINUS:
		return "MINUS"
	case ASTERISK:
		return "ASTERISK"
	case SLASH:
		return "SLASH"
	case PERCENT:
		return "PERCENT"
	case CARET:
		return "CARET"
	case ASSIGN:
		return "ASSIGN"
	case BANG:
		return "BANG"
	case LT:
		return "LT"
	case GT:
		return "GT"
	case LTE:
		return "LTE"
	case GTE:
		return "GTE"
	case EQ:
		return "EQ"
	case NOT_EQ:
		return "NOT_EQ"
	case AND:
		return "AND"
	case OR:
		return "OR"
	case COMMA:
		return "COMMA"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case LBRACKET:
		return "LBRACKET"
	case RBRACKET:
		return "RBRACKET"
	default:
		return "UNKNOWN"
	}
}

// Lexer scans a formula into tokens. Characters it does not recognize are
// skipped; their offsets are available from Skipped.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
	skipped      []int
}

// New creates a new lexer instance
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// Tokenize scans the whole source and returns its tokens, without the
// trailing EOF token.
func Tokenize(source string) []Token {
	l := New(source)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// Skipped returns the byte offsets of characters the lexer ignored so far.
func (l *Lexer) Skipped() []int {
	return l.skipped
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}

	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken scans the input and returns the next token
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespace()

		if l.position >= len(l.input) {
			return Token{Type: EOF, Pos: len(l.input), End: len(l.input), Line: l.line, Column: l.column + 1}
		}

		if tok, ok := l.scanToken(); ok {
			return tok
		}

		// Unrecognized character: record and move on
		l.skipped = append(l.skipped, l.position)
		l.readChar()
	}
}

// readBracedName reads {any text} as a column name, so names may hold
// spaces or operator characters. It consumes nothing and reports false when
// the brace is never closed or encloses only blanks.
func (l *Lexer) readBracedName() (string, bool) {
	end := strings.IndexByte(l.input[l.position+1:], '}')
	if end < 0 {
		return "", false
	}
	name := strings.TrimSpace(l.input[l.position+1 : l.position+1+end])
	if name == "" {
		return "", false
	}
	for i := 0; i < end+2; i++ {
		l.readChar()
	}
	return name, true
}

// scanToken scans one token starting at the current character. It reports
// false when the character starts no token.
func (l *Lexer) scanToken() (Token, bool) {
	start, line, col := l.position, l.line, l.column

	switch l.ch {
	case '=':
		return l.operator(ASSIGN, '=', EQ), true
	case '!':
		return l.operator(BANG, '=', NOT_EQ), true
	case '<':
		return l.operator(LT, '=', LTE), true
	case '>':
		return l.operator(GT, '=', GTE), true
	case '&':
		return l.operator(AND, '&', AND), true
	case '|':
		return l.operator(OR, '|', OR), true
	case '+':
		return l.single(PLUS), true
	case '-':
		return l.single(MINUS), true
	case '*':
		return l.single(ASTERISK), true
	case '/':
		return l.single(SLASH), true
	case '%':
		return l.single(PERCENT), true
	case '^':
		return l.single(CARET), true
	case ',':
		return l.single(COMMA), true
	case '(':
		return l.single(LPAREN), true
	case ')':
		return l.single(RPAREN), true
	case '[':
		return l.single(LBRACKET), true
	case ']':
		return l.single(RBRACKET), true
	case '{':
		name, ok := l.readBracedName()
		if !ok {
			return Token{}, false
		}
		return Token{Type: IDENT, Literal: name, Pos: start, End: l.position, Line: line, Column: col}, true
	case '"', '\'':
		literal, terminated := l.readString()
		return Token{Type: STRING, Literal: literal, Pos: start, End: l.position, Line: line, Column: col, Terminated: terminated}, true
	}

	if isDigit(l.ch) {
		literal := l.readNumber()
		return Token{Type: NUMBER, Literal: literal, Pos: start, End: l.position, Line: line, Column: col}, true
	}

	if isLetter(l.ch) {
		literal := l.readIdentifier()
		tok := Token{Type: IDENT, Literal: literal, Pos: start, End: l.position, Line: line, Column: col}
		switch {
		case l.nextSignificantChar() == '(':
			tok.Type = FUNCTION
		case literal == "true":
			tok.Type = TRUE
		case literal == "false":
			tok.Type = FALSE
		}
		return tok, true
	}

	return Token{}, false
}

// single emits a one-character token for the current character.
func (l *Lexer) single(tokenType TokenType) Token {
	tok := Token{Type: tokenType, Literal: string(l.ch), Pos: l.position, End: l.position + 1, Line: l.line, Column: l.column}
	l.readChar()
	return tok
}

// operator emits a one-character operator, extended to a two-character one
// when the next character is second.
func (l *Lexer) operator(oneChar TokenType, second byte, twoChar TokenType) Token {
	if l.peekChar() != second {
		return l.single(oneChar)
	}
	tok := Token{Type: twoChar, Literal: l.input[l.position : l.position+2], Pos: l.position, End: l.position + 2, Line: l.line, Column: l.column}
	l.readChar()
	l.readChar()
	return tok
}

// readIdentifier reads an identifier
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads digits with at most one decimal point
func (l *Lexer) readNumber() string {
	position := l.position
	seenDot := false
	for isDigit(l.ch) || (l.ch == '.' && !seenDot) {
		if l.ch == '.' {
			seenDot = true
		}
		l.readChar()
	}
	return l.input[position:l.position]
}

// readString reads a quoted literal. A backslash makes the following
// character literal. Returns the content and whether the closing quote was
// found; an unterminated string runs to the end of input.
func (l *Lexer) readString() (string, bool) {
	quote := l.ch
	var sb strings.Builder
	l.readChar() // skip opening quote

	for l.position < len(l.input) && l.ch != quote {
		if l.ch == '\\' && l.readPosition < len(l.input) {
			l.readChar()
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}

	if l.position >= len(l.input) {
		return sb.String(), false
	}

	l.readChar() // skip closing quote
	return sb.String(), true
}

// nextSignificantChar returns the next character after the current position
// that is neither whitespace nor unrecognized, without consuming anything.
func (l *Lexer) nextSignificantChar() byte {
	for i := l.position; i < len(l.input); i++ {
		ch := l.input[i]
		if isWhitespace(ch) || !startsToken(ch) {
			continue
		}
		return ch
	}
	return 0
}

func (l *Lexer) skipWhitespace() {
	for l.position < len(l.input) && isWhitespace(l.ch) {
		l.readChar()
	}
}

// startsToken reports whether ch can begin a token.
func startsToken(ch byte) bool {
	if isLetter(ch) || isDigit(ch) {
		return true
	}
	return strings.IndexByte(`=!<>&|+-*/%^,()[]"'`, ch) >= 0
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}
