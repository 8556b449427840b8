package evaluator

import (
	"math"
	"strings"
	"testing"
	"time"

	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/parser"
)

func testEval(t *testing.T, input string, ctx Context, opts ...Option) Value {
	t.Helper()
	v, err := EvaluateFormula(input, ctx, opts...)
	if err != nil {
		t.Fatalf("EvaluateFormula(%q) error: %v", input, err)
	}
	return v
}

func testNumber(t *testing.T, v Value, expected float64) {
	t.Helper()
	num, ok := v.(*Number)
	if !ok {
		t.Errorf("Expected NUMBER, got %s (%s)", v.Type(), v.Inspect())
		return
	}
	if math.IsNaN(expected) {
		if !math.IsNaN(num.Value) {
			t.Errorf("Expected NaN, got %v", num.Value)
		}
		return
	}
	if num.Value != expected {
		t.Errorf("Expected %v, got %v", expected, num.Value)
	}
}

func testText(t *testing.T, v Value, expected string) {
	t.Helper()
	text, ok := v.(*Text)
	if !ok {
		t.Errorf("Expected TEXT, got %s (%s)", v.Type(), v.Inspect())
		return
	}
	if text.Value != expected {
		t.Errorf("Expected %q, got %q", expected, text.Value)
	}
}

func testBoolean(t *testing.T, v Value, expected bool) {
	t.Helper()
	b, ok := v.(*Boolean)
	if !ok {
		t.Errorf("Expected BOOLEAN, got %s (%s)", v.Type(), v.Inspect())
		return
	}
	if b.Value != expected {
		t.Errorf("Expected %v, got %v", expected, b.Value)
	}
}

func testErrorCode(t *testing.T, input string, ctx Context, code string, opts ...Option) *ferrors.FormulaError {
	t.Helper()
	v, err := EvaluateFormula(input, ctx, opts...)
	if err == nil {
		t.Fatalf("EvaluateFormula(%q) = %s, want error %s", input, v.Inspect(), code)
	}
	if got := ferrors.CodeOf(err); got != code {
		t.Fatalf("EvaluateFormula(%q) error code = %q (%v), want %q", input, got, err, code)
	}
	return err.(*ferrors.FormulaError)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"5", 5},
		{"2.5", 2.5},
		{"2 + 3", 5},
		{"10 - 4", 6},
		{"3 * 4", 12},
		{"15 / 3", 5},
		{"10 / 4", 2.5},
		{"2 ^ 3", 8},
		{"10 % 3", 1},
		{"-10 % 3", -1},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"2 * 3 + 4 * 5", 26},
		{"20 - 10 - 5", 5},
		{"-2 ^ 2", -4},
		{"2 ^ 3 ^ 2", 512},
		{"-(3 + 4)", -7},
		{"--5", 5},
		{"1 / 0", math.Inf(1)},
		{"-1 / 0", math.Inf(-1)},
		{"true + 1", 2},
		{"missing + 1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			testNumber(t, testEval(t, tt.input, nil), tt.expected)
		})
	}

	testNumber(t, testEval(t, "0 / 0", nil), math.NaN())
	testNumber(t, testEval(t, "5 % 0", nil), math.NaN())
}

func TestConcatenation(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"a" + "b"`, "ab"},
		{`"a" + 1`, "a1"},
		{`1 + "2"`, "12"},
		{`"total: " + 2 * 3`, "total: 6"},
		{`"x" + true`, "xtrue"},
		{`"x" + missing`, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			testText(t, testEval(t, tt.input, nil), tt.expected)
		})
	}
}

func TestComparisonAndLogic(t *testing.T) {
	ctx := NewContext(map[string]any{"status": "active", "n": 5, "items": []any{1, 2}})

	tests := []struct {
		input    string
		expected bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 4", false},
		{"4 >= 5", false},
		{`"abc" < "abd"`, true},
		{`"10" < "9"`, false},
		{`"10" > "9"`, true},
		{`" 2 " < "10"`, true},
		{`"1e3" >= "999"`, true},
		{`"10" < "9a"`, true},
		{`"" < "1"`, true},
		{`"apple" < "banana"`, true},
		{`10 < "9"`, false},
		{`1 == 1`, true},
		{`1 = 1`, true},
		{`1 == "1"`, false},
		{`"a" != "b"`, true},
		{`status == "active"`, true},
		{`{status} == "inactive"`, false},
		{`true == true`, true},
		{`missing == missing`, true},
		{`0 / 0 == 0 / 0`, false},
		{`items == items`, true},
		{"true && false", false},
		{"true && 1", true},
		{"1 || 0", true},
		{"0 || \"\"", false},
		{"true & true", true},
		{"false | true", true},
		{"!0", true},
		{`!""`, true},
		{"!n", false},
		{"n > 3 && n < 10", true},
		{"n > 3 && n < 10 || false", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			testBoolean(t, testEval(t, tt.input, ctx), tt.expected)
		})
	}
}

func TestLogicalOperatorsDoNotShortCircuit(t *testing.T) {
	// The right side is evaluated even when the left side decides the result.
	_, err := EvaluateFormula("false && 1 / 0 > 0", nil, WithStrictDivision(true))
	if !ferrors.Is(err, ferrors.CodeDivisionByZero) {
		t.Errorf("expected division error from the right operand, got %v", err)
	}
}

func TestColumnReferences(t *testing.T) {
	ctx := NewContext(map[string]any{
		"price":    20,
		"quantity": 3,
		"tax_rate": 0.5,
		"items":    []any{10, 20, 30},
		"customer": map[string]any{"name": "Ada", "age": 36},
		"orders": []any{
			map[string]any{"amount": 30, "tags": []any{"new"}},
			map[string]any{"amount": 70},
		},
	})

	testNumber(t, testEval(t, "price * quantity", ctx), 60)
	testNumber(t, testEval(t, "{price} * {quantity}", ctx), 60)
	testNumber(t, testEval(t, "price * (1 + tax_rate)", ctx), 30)
	testNumber(t, testEval(t, "items[1]", ctx), 20)
	testNumber(t, testEval(t, "items[0] + items[2]", ctx), 40)
	testText(t, testEval(t, `customer["name"]`, ctx), "Ada")
	testNumber(t, testEval(t, `customer["age"] + 1`, ctx), 37)
	testNumber(t, testEval(t, `orders[0]["amount"] + {orders}[1]["amount"]`, ctx), 100)
	testText(t, testEval(t, `orders[0]["tags"][0]`, ctx), "new")

	spaced := NewContext(map[string]any{"unit price": 2.5, "qty": 4, "a-b": 1})
	testNumber(t, testEval(t, "{unit price} * 2", spaced), 5)
	testNumber(t, testEval(t, "{ unit price } * {qty} + {a-b}", spaced), 11)

	for _, input := range []string{"items[5]", "items[-1]", "items[1.5]", `customer["email"]`, "price[0]", "missing[0]", `orders[2]["amount"]`, `orders[1]["tags"][0]`} {
		if v := testEval(t, input, ctx); v != NULL {
			t.Errorf("%s = %s, want null", input, v.Inspect())
		}
	}
}

func TestMissingColumnIsNull(t *testing.T) {
	if v := testEval(t, "nothing", nil); v.Type() != NULL_VAL {
		t.Errorf("missing column = %s, want NULL", v.Type())
	}
}

func TestConcreteScenarios(t *testing.T) {
	testNumber(t, testEval(t, "price * quantity", NewContext(map[string]any{"price": 20, "quantity": 3})), 60)
	testNumber(t, testEval(t, `IF({status} == "active", 1, 0)`, NewContext(map[string]any{"status": "active"})), 1)
	testNumber(t, testEval(t, "YEAR(date)", NewContext(map[string]any{
		"date": time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	})), 2024)
	testNumber(t, testEval(t, "SUM({a}, {b}, {c}) * 2", NewContext(map[string]any{"a": 10, "b": 20, "c": 30})), 120)
}

func TestCaseInsensitiveDispatch(t *testing.T) {
	for _, input := range []string{"sum(1, 2)", "SUM(1, 2)", "Sum(1, 2)", "sUm(1, 2)"} {
		testNumber(t, testEval(t, input, nil), 3)
	}
	for _, input := range []string{`formatDate("2024-01-15", "YYYY")`, `FORMATDATE("2024-01-15", "YYYY")`, `formatdate("2024-01-15", "YYYY")`} {
		testText(t, testEval(t, input, nil), "2024")
	}
}

func TestEvaluationErrors(t *testing.T) {
	tests := []struct {
		input string
		code  string
	}{
		{"", ferrors.CodeUnexpectedEndOfInput},
		{"   ", ferrors.CodeUnexpectedEndOfInput},
		{"sum(1, 2", ferrors.CodeUnexpectedEndOfInput},
		{"1 +", ferrors.CodeUnexpectedEndOfInput},
		{"1 2", ferrors.CodeUnexpectedToken},
		{")", ferrors.CodeUnexpectedToken},
		{"unknownFn(1)", ferrors.CodeUnknownFunction},
		{"INVALID_FUNCTION()", ferrors.CodeUnknownFunction},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			testErrorCode(t, tt.input, nil, tt.code)
		})
	}
}

func TestUnknownFunctionHint(t *testing.T) {
	err := testErrorCode(t, "uper(name)", nil, ferrors.CodeUnknownFunction)
	if len(err.Hints) == 0 || !strings.Contains(err.Hints[0], "upper") {
		t.Errorf("hints = %v, want suggestion for upper", err.Hints)
	}
}

func TestEvaluateASTUnknownFunction(t *testing.T) {
	// A tree parsed without the library check still fails at evaluation.
	expr, err := parser.Parse("nope(1)")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = EvaluateAST(expr, nil)
	if !ferrors.Is(err, ferrors.CodeUnknownFunction) {
		t.Errorf("EvaluateAST error = %v, want UNDEF-0001", err)
	}
}

func TestEvaluateTokens(t *testing.T) {
	tokens := lexer.Tokenize("a * 2")
	v, err := Evaluate(tokens, NewContext(map[string]any{"a": 21}))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	testNumber(t, v, 42)
}

func TestStrictColumns(t *testing.T) {
	ctx := NewContext(map[string]any{"price": 10})
	err := testErrorCode(t, "pirce * 2", ctx, ferrors.CodeUnknownColumn, WithStrictColumns(true))
	if len(err.Hints) == 0 || !strings.Contains(err.Hints[0], "price") {
		t.Errorf("hints = %v, want suggestion for price", err.Hints)
	}
	if err.Line != 1 || err.Column != 1 {
		t.Errorf("position = %d:%d, want 1:1", err.Line, err.Column)
	}

	testNumber(t, testEval(t, "price * 2", ctx, WithStrictColumns(true)), 20)
}

func TestStrictArity(t *testing.T) {
	err := testErrorCode(t, `substring("a")`, nil, ferrors.CodeArityMismatch, WithStrictArity(true))
	if err.Message != "substring() expects 2 to 3 argument(s), got 1" {
		t.Errorf("message = %q", err.Message)
	}
	testErrorCode(t, "abs(1, 2)", nil, ferrors.CodeArityMismatch, WithStrictArity(true))
	testErrorCode(t, "now(1)", nil, ferrors.CodeArityMismatch, WithStrictArity(true))

	// Lenient by default: missing arguments are null, extras ignored.
	testNumber(t, testEval(t, "abs()", nil), 0)
	testNumber(t, testEval(t, "abs(-1, 2)", nil), 1)
	testNumber(t, testEval(t, "sum(1, 2, 3, 4)", nil, WithStrictArity(true)), 10)
}

func TestStrictDivision(t *testing.T) {
	testErrorCode(t, "1 / 0", nil, ferrors.CodeDivisionByZero, WithStrictDivision(true))
	testErrorCode(t, "5 % 0", nil, ferrors.CodeDivisionByZero, WithStrictDivision(true))
	testNumber(t, testEval(t, "1 / 2", nil, WithStrictDivision(true)), 0.5)
}

func TestIfIsEager(t *testing.T) {
	// Both branches are evaluated before if() runs.
	testErrorCode(t, "if(true, 1, 1 / 0)", nil, ferrors.CodeDivisionByZero, WithStrictDivision(true))
	testNumber(t, testEval(t, "if(true, 1, 1 / 0)", nil), 1)
}

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Log(values ...interface{}) {}
func (r *recordingLogger) LogLine(values ...interface{}) {
	for _, v := range values {
		r.lines = append(r.lines, v.(string))
	}
}

func TestLoggerReceivesTrace(t *testing.T) {
	logger := &recordingLogger{}
	testEval(t, "1 + 2", nil, WithLogger(logger))
	if len(logger.lines) != 1 || logger.lines[0] != "(1 + 2) => 3" {
		t.Errorf("trace = %v, want [(1 + 2) => 3]", logger.lines)
	}
}
