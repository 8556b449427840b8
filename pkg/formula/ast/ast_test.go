package ast

import (
	"testing"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
)

func TestString(t *testing.T) {
	expr := &InfixExpression{
		Token:    lexer.Token{Type: lexer.ASTERISK, Literal: "*"},
		Operator: "*",
		Left:     &ColumnRef{Token: lexer.Token{Type: lexer.IDENT, Literal: "price"}, Name: "price"},
		Right: &CallExpression{
			Token: lexer.Token{Type: lexer.FUNCTION, Literal: "round"},
			Name:  "round",
			Arguments: []Expression{
				&PrefixExpression{
					Token:    lexer.Token{Type: lexer.MINUS, Literal: "-"},
					Operator: "-",
					Right:    &NumberLiteral{Token: lexer.Token{Type: lexer.NUMBER, Literal: "2.5"}, Value: 2.5},
				},
				&StringLiteral{Token: lexer.Token{Type: lexer.STRING, Literal: `say "hi"`}, Value: `say "hi"`},
			},
		},
	}

	want := `(price * round((-2.5), "say \"hi\""))`
	if expr.String() != want {
		t.Errorf("expr.String() wrong. got=%q, want=%q", expr.String(), want)
	}
}

func TestIndexExpressionString(t *testing.T) {
	expr := &IndexExpression{
		Token: lexer.Token{Type: lexer.LBRACKET, Literal: "["},
		Left:  &ColumnRef{Name: "customer"},
		Index: &StringLiteral{Value: "name"},
	}
	if got := expr.String(); got != `customer["name"]` {
		t.Errorf("String() = %q, want %q", got, `customer["name"]`)
	}
}

func TestQuoteString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", `""`},
		{"plain", `"plain"`},
		{`a"b`, `"a\"b"`},
		{`a\b`, `"a\\b"`},
		{"it's", `"it's"`},
	}

	for _, tt := range tests {
		if got := QuoteString(tt.input); got != tt.expected {
			t.Errorf("QuoteString(%q) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestWalk(t *testing.T) {
	expr := &InfixExpression{
		Operator: "+",
		Left:     &ColumnRef{Name: "a"},
		Right: &CallExpression{
			Name: "max",
			Arguments: []Expression{
				&ColumnRef{Name: "b"},
				&IndexExpression{Left: &ColumnRef{Name: "c"}, Index: &NumberLiteral{Value: 0}},
			},
		},
	}

	var names []string
	Walk(expr, func(e Expression) bool {
		if ref, ok := e.(*ColumnRef); ok {
			names = append(names, ref.Name)
		}
		return true
	})

	want := []string{"a", "b", "c"}
	if len(names) != len(want) {
		t.Fatalf("visited %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	expr := &CallExpression{
		Name:      "sum",
		Arguments: []Expression{&ColumnRef{Name: "hidden"}},
	}

	visited := 0
	Walk(expr, func(e Expression) bool {
		visited++
		_, isCall := e.(*CallExpression)
		return !isCall
	})

	if visited != 1 {
		t.Errorf("visited %d nodes, want 1", visited)
	}
}

func TestDump(t *testing.T) {
	expr := &InfixExpression{
		Token:    lexer.Token{Type: lexer.PLUS, Literal: "+"},
		Operator: "+",
		Left: &IndexExpression{
			Token: lexer.Token{Type: lexer.LBRACKET, Literal: "["},
			Left:  &ColumnRef{Token: lexer.Token{Type: lexer.IDENT, Literal: "items"}, Name: "items"},
			Index: &NumberLiteral{Token: lexer.Token{Type: lexer.NUMBER, Literal: "0"}, Value: 0},
		},
		Right: &CallExpression{
			Token: lexer.Token{Type: lexer.FUNCTION, Literal: "len"},
			Name:  "length",
			Arguments: []Expression{
				&StringLiteral{Token: lexer.Token{Type: lexer.STRING, Literal: "ab"}, Value: "ab"},
				&BooleanLiteral{Token: lexer.Token{Type: lexer.TRUE, Literal: "true"}, Value: true},
			},
		},
	}

	want := `Infix +
  Index
    Column items
    Number 0
  Call length
    String "ab"
    Boolean true
`
	if got := Dump(expr); got != want {
		t.Errorf("Dump wrong.\ngot:\n%s\nwant:\n%s", got, want)
	}
}
