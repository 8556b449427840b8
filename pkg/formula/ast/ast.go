package ast

import (
	"bytes"
	"strings"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
)

// Node represents any node in the AST
type Node interface {
	TokenLiteral() string
	String() string
}

// Expression represents expression nodes. A formula is a single expression.
type Expression interface {
	Node
	expressionNode()
}

// NumberLiteral represents numeric literals like 42 or 3.14
type NumberLiteral struct {
	Token lexer.Token
	Value float64
}

func (nl *NumberLiteral) expressionNode()      {}
func (nl *NumberLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NumberLiteral) String() string       { return nl.Token.Literal }

// StringLiteral represents quoted text literals
type StringLiteral struct {
	Token lexer.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return QuoteString(sl.Value) }

// BooleanLiteral represents true and false
type BooleanLiteral struct {
	Token lexer.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) String() string       { return bl.Token.Literal }

// ColumnRef represents a reference to a column of the evaluated record.
// Name never includes the optional {braces} wrapper.
type ColumnRef struct {
	Token lexer.Token // the IDENT token
	Name  string
}

func (cr *ColumnRef) expressionNode()      {}
func (cr *ColumnRef) TokenLiteral() string { return cr.Token.Literal }

// String wraps names that would not lex as a bare identifier in braces.
func (cr *ColumnRef) String() string {
	if plainName(cr.Name) {
		return cr.Name
	}
	return "{" + cr.Name + "}"
}

func plainName(name string) bool {
	if name == "" || name == "true" || name == "false" {
		return false
	}
	for i, ch := range name {
		switch {
		case ch == '_', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// IndexExpression represents bracketed access on a column, like items[0]
// or customer["name"]. Left is a *ColumnRef or another *IndexExpression,
// so _rows[0]["amount"] reads a field of a row.
type IndexExpression struct {
	Token lexer.Token // the '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) String() string {
	var out bytes.Buffer

	out.WriteString(ie.Left.String())
	out.WriteString("[")
	out.WriteString(ie.Index.String())
	out.WriteString("]")

	return out.String()
}

// PrefixExpression represents prefix expressions like '!x' or '-x'
type PrefixExpression struct {
	Token    lexer.Token // the prefix token, e.g. !
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(pe.Operator)
	out.WriteString(pe.Right.String())
	out.WriteString(")")

	return out.String()
}

// InfixExpression represents infix expressions like 'x + y'.
// Operator is normalized: '&' is stored as "&&", '|' as "||" and a
// single '=' as "==".
type InfixExpression struct {
	Token    lexer.Token // the operator token, e.g. +
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(ie.Left.String())
	out.WriteString(" " + ie.Operator + " ")
	out.WriteString(ie.Right.String())
	out.WriteString(")")

	return out.String()
}

// CallExpression represents function calls. Name keeps the spelling used
// in the formula; lookup is case-insensitive.
type CallExpression struct {
	Token     lexer.Token // the FUNCTION token
	Name      string
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) String() string {
	var out bytes.Buffer

	args := []string{}
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}

	out.WriteString(ce.Name)
	out.WriteString("(")
	out.WriteString(strings.Join(args, ", "))
	out.WriteString(")")

	return out.String()
}

// QuoteString renders s as a double-quoted literal the lexer reads back
// unchanged.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// Walk traverses the tree depth-first, calling fn for each node before its
// children. Children are skipped when fn returns false.
func Walk(node Expression, fn func(Expression) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *IndexExpression:
		Walk(n.Left, fn)
		Walk(n.Index, fn)
	case *PrefixExpression:
		Walk(n.Right, fn)
	case *InfixExpression:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *CallExpression:
		for _, arg := range n.Arguments {
			Walk(arg, fn)
		}
	}
}
