package formula

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamsmac/data-parse-desk-sub000/config"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
)

func TestEngineEval(t *testing.T) {
	e := New()
	ctx := evaluator.NewContext(map[string]any{"price": 100, "quantity": 2})

	tests := []struct {
		input    string
		expected string
	}{
		{"{price} * {quantity}", "200"},
		{"UPPER(\"abc\")", "ABC"},
		{"if({price} > 50, \"high\", \"low\")", "high"},
		{"{missing}", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := e.Eval(tt.input, ctx)
			if err != nil {
				t.Fatalf("Eval(%q) error: %v", tt.input, err)
			}
			if v.Inspect() != tt.expected {
				t.Errorf("Eval(%q) = %s, want %s", tt.input, v.Inspect(), tt.expected)
			}
		})
	}
}

func TestEngineEvalAs(t *testing.T) {
	e := New()

	v, err := e.EvalAs("\"42\"", nil, "number")
	if err != nil {
		t.Fatalf("EvalAs error: %v", err)
	}
	if n, ok := v.(*evaluator.Number); !ok || n.Value != 42 {
		t.Errorf("expected number 42, got %#v", v)
	}

	if _, err := e.EvalAs("1", nil, "money"); err == nil {
		t.Error("expected error for unknown return type")
	}
}

func TestEngineAnalysis(t *testing.T) {
	e := New()

	if res := e.Validate("sum({a}, {b})"); !res.Valid {
		t.Errorf("expected valid, got %s", res.Error)
	}
	if res := e.Validate("sum({a}"); res.Valid {
		t.Error("expected unbalanced formula to be invalid")
	}
	if got := strings.Join(e.References("{a} + {b} * {a}"), ","); got != "a,b" {
		t.Errorf("References = %s, want a,b", got)
	}
	sample := evaluator.NewContext(map[string]any{"name": "x"})
	if got := e.InferType("concat({name}, \"!\")", sample); got != "text" {
		t.Errorf("InferType = %s, want text", got)
	}
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
engine:
  strict_columns: true
logging:
  trace: true
formulas:
  - name: total1
    expression: "{price} * {quantity}"
    dependencies: [price, quantity]
  - name: total2
    expression: "{total1} + {tax}"
    dependencies: [total1, tax]
`), func(string) string { return "" })
	if err != nil {
		t.Fatalf("config.Parse error: %v", err)
	}

	logger := NewBufferedLogger()
	e, err := FromConfig(cfg, logger)
	if err != nil {
		t.Fatalf("FromConfig error: %v", err)
	}

	ctx := evaluator.NewContext(map[string]any{"price": 100, "quantity": 2, "tax": 10})
	results, err := e.Registry().EvaluateAll(ctx)
	if err != nil {
		t.Fatalf("EvaluateAll error: %v", err)
	}
	if got := results["total2"].Inspect(); got != "210" {
		t.Errorf("total2 = %s, want 210", got)
	}
	if !strings.Contains(logger.String(), "[formula] evaluation order: total1, total2") {
		t.Errorf("expected batch order in trace, got:\n%s", logger.String())
	}

	if _, err := e.Eval("{nope}", ctx); err == nil {
		t.Error("strict_columns should make a missing column an error")
	}
}

func TestEvaluateRows(t *testing.T) {
	e := New()
	e.Registry().Define("share", "{amount} / sum({_rows}[0][\"amount\"], {_rows}[1][\"amount\"])", "amount")
	e.Registry().Define("position", "{_index} + 1")
	e.Registry().Define("size", "{_count}")
	e.Registry().Define("last", "_rows[_count - 1][\"amount\"]")

	rows := []evaluator.Context{
		evaluator.NewContext(map[string]any{"amount": 30}),
		evaluator.NewContext(map[string]any{"amount": 70}),
	}

	results, failed := e.EvaluateRows(rows)
	if failed != 0 {
		t.Fatalf("expected no failures, got %d: %+v", failed, results)
	}
	if got := results[0].Values["share"].Inspect(); got != "0.3" {
		t.Errorf("row 0 share = %s, want 0.3", got)
	}
	if got := results[1].Values["position"].Inspect(); got != "2" {
		t.Errorf("row 1 position = %s, want 2", got)
	}
	if got := results[1].Values["size"].Inspect(); got != "2" {
		t.Errorf("row 1 size = %s, want 2", got)
	}
	if got := results[0].Values["last"].Inspect(); got != "70" {
		t.Errorf("row 0 last = %s, want 70", got)
	}
}

func TestEvaluateRowsKeepsGoing(t *testing.T) {
	e := New(evaluator.WithStrictDivision(true))
	e.logger = NewBufferedLogger()
	e.Registry().Define("ratio", "{a} / {b}", "a", "b")

	rows := []evaluator.Context{
		evaluator.NewContext(map[string]any{"a": 1, "b": 0}),
		evaluator.NewContext(map[string]any{"a": 6, "b": 3}),
	}

	results, failed := e.EvaluateRows(rows)
	if failed != 1 {
		t.Fatalf("expected 1 failure, got %d", failed)
	}
	if results[0].Err == nil || results[0].Values != nil {
		t.Errorf("row 0 should fail without values: %+v", results[0])
	}
	if got := results[1].Values["ratio"].Inspect(); got != "2" {
		t.Errorf("row 1 ratio = %s, want 2", got)
	}

	data, err := json.Marshal(results)
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}
	if !strings.Contains(string(data), `"values":{"ratio":2}`) || !strings.Contains(string(data), `"error":`) {
		t.Errorf("unexpected JSON: %s", data)
	}
	if lines := e.logger.(*BufferedLogger).Lines(); len(lines) != 1 || !strings.HasPrefix(lines[0], "[formula] row 0 failed:") {
		t.Errorf("expected failure logged, got %v", lines)
	}
}

func TestLoggers(t *testing.T) {
	var buf bytes.Buffer
	l := WriterLogger(&buf)
	l.Log("a", 1)
	l.LogLine(" b")
	if buf.String() != "a 1 b\n" {
		t.Errorf("WriterLogger wrote %q", buf.String())
	}

	bl := NewBufferedLogger()
	bl.Log("x")
	bl.LogLine("y")
	bl.Log("pending")
	if bl.String() != "xy\npending" {
		t.Errorf("BufferedLogger.String() = %q", bl.String())
	}
	bl.Reset()
	if len(bl.Lines()) != 0 || bl.String() != "" {
		t.Error("Reset should clear everything")
	}

	NullLogger().LogLine("ignored")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := JSONLogger(&buf).(*jsonLogger)
	l.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	l.Log("[formula]")
	l.LogLine(" total = 3")

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry.Timestamp != "2024-01-02T03:04:05Z" {
		t.Errorf("timestamp = %q", entry.Timestamp)
	}
	if entry.Message != "[formula] total = 3" {
		t.Errorf("message = %q", entry.Message)
	}
}

func TestLoggerFromConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer

	l, c, err := LoggerFromConfig(config.LoggingConfig{Format: "text", Output: "stdout"}, &stdout, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	l.LogLine("to stdout")
	c.Close()
	if stdout.String() != "to stdout\n" || stderr.Len() != 0 {
		t.Errorf("stdout=%q stderr=%q", stdout.String(), stderr.String())
	}

	l, _, _ = LoggerFromConfig(config.LoggingConfig{Format: "json", Output: "stderr"}, &stdout, &stderr)
	l.LogLine("to stderr")
	if !strings.Contains(stderr.String(), `"message":"to stderr"`) {
		t.Errorf("expected JSON on stderr, got %q", stderr.String())
	}

	stderr.Reset()
	l, _, _ = LoggerFromConfig(config.LoggingConfig{Quiet: true}, &stdout, &stderr)
	l.LogLine("dropped")
	if stderr.Len() != 0 {
		t.Error("quiet logger should discard output")
	}

	path := filepath.Join(t.TempDir(), "formula.log")
	l, c, err = LoggerFromConfig(config.LoggingConfig{Format: "text", Output: path}, &stdout, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	l.LogLine("to file")
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "to file\n" {
		t.Errorf("log file = %q, %v", data, err)
	}
}
