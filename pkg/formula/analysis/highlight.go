package analysis

import (
	"html"
	"strings"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
)

// Span kinds produced by Highlight.
const (
	SpanNumber   = "number"
	SpanString   = "string"
	SpanFunction = "function"
	SpanColumn   = "column"
	SpanOperator = "operator"
	SpanParen    = "paren"
	SpanText     = "text"
)

// Span is one highlighted region of a formula. Start and End are byte
// offsets into the source; Value is source[Start:End].
type Span struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Highlight splits source into spans covering every byte. A column written
// as {name} is one span including the braces. Whitespace runs and
// characters the lexer ignores become text spans.
func Highlight(source string) []Span {
	spans := []Span{}
	pos := 0

	for _, tok := range lexer.Tokenize(source) {
		start, end := tok.Pos, tok.End
		kind := spanKind(tok)

		spans = appendGap(spans, source, pos, start)
		spans = append(spans, Span{Kind: kind, Value: source[start:end], Start: start, End: end})
		pos = end
	}

	return appendGap(spans, source, pos, len(source))
}

func spanKind(tok lexer.Token) string {
	switch tok.Type {
	case lexer.NUMBER:
		return SpanNumber
	case lexer.STRING:
		return SpanString
	case lexer.FUNCTION:
		return SpanFunction
	case lexer.IDENT:
		return SpanColumn
	case lexer.LPAREN, lexer.RPAREN, lexer.LBRACKET, lexer.RBRACKET:
		return SpanParen
	case lexer.TRUE, lexer.FALSE, lexer.COMMA:
		return SpanText
	default:
		return SpanOperator
	}
}

// appendGap covers source[from:to] with text spans: one per whitespace run
// and one per other character.
func appendGap(spans []Span, source string, from, to int) []Span {
	for i := from; i < to; {
		j := i + 1
		if isSpace(source[i]) {
			for j < to && isSpace(source[j]) {
				j++
			}
		} else {
			for j < to && !isRuneStart(source[j]) {
				j++
			}
		}
		spans = append(spans, Span{Kind: SpanText, Value: source[i:j], Start: i, End: j})
		i = j
	}
	return spans
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// HighlightHTML renders source as HTML with one span per highlighted
// region, classed "formula-<kind>". Values are escaped.
func HighlightHTML(source string) string {
	var sb strings.Builder
	for _, span := range Highlight(source) {
		sb.WriteString(`<span class="formula-`)
		sb.WriteString(span.Kind)
		sb.WriteString(`">`)
		sb.WriteString(html.EscapeString(span.Value))
		sb.WriteString("</span>")
	}
	return sb.String()
}

// Suggest returns completions for the word ending at cursor. Inside an
// open brace it offers matching columns; otherwise it offers upper-cased
// function names, and when no word has been started also every column
// as {name}.
func Suggest(source string, cursor int, columns []string) []string {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(source) {
		cursor = len(source)
	}
	before := source[:cursor]

	start := len(before)
	for start > 0 && isWordByte(before[start-1]) {
		start--
	}
	for start < len(before) && isDigitByte(before[start]) {
		start++
	}
	word := strings.ToLower(before[start:])

	suggestions := []string{}

	if strings.LastIndexByte(before, '{') > strings.LastIndexByte(before, '}') {
		for _, col := range columns {
			if strings.HasPrefix(strings.ToLower(col), word) {
				suggestions = append(suggestions, col)
			}
		}
		return suggestions
	}

	for _, name := range evaluator.FunctionNames() {
		if strings.HasPrefix(strings.ToLower(name), word) {
			suggestions = append(suggestions, strings.ToUpper(name))
		}
	}
	if word == "" {
		for _, col := range columns {
			suggestions = append(suggestions, "{"+col+"}")
		}
	}
	return suggestions
}

func isWordByte(ch byte) bool {
	return ch == '_' || 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || isDigitByte(ch)
}

func isDigitByte(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
