package help

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
)

// TestDescribeFunction tests function topic resolution
func TestDescribeFunction(t *testing.T) {
	tests := []struct {
		topic        string
		wantName     string
		wantCategory string
		wantReturns  string
	}{
		{"sum", "sum", "math", "number"},
		{"SUM", "sum", "math", "number"},
		{"Upper", "upper", "string", "text"},
		{"dateadd", "dateAdd", "date", "date"},
		{"if", "if", "logical", "any"},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			result, err := DescribeTopic(tt.topic)
			if err != nil {
				t.Fatalf("DescribeTopic(%q) returned error: %v", tt.topic, err)
			}
			if result.Kind != "function" {
				t.Errorf("Kind = %q, want 'function'", result.Kind)
			}
			if result.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", result.Name, tt.wantName)
			}
			if result.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", result.Category, tt.wantCategory)
			}
			if result.Returns != tt.wantReturns {
				t.Errorf("Returns = %q, want %q", result.Returns, tt.wantReturns)
			}
			if result.Description == "" {
				t.Error("expected a description")
			}
		})
	}
}

// TestDescribeKeywords tests the list topics
func TestDescribeKeywords(t *testing.T) {
	tests := []struct {
		topic    string
		wantKind string
		check    func(*TopicResult) bool
	}{
		{"functions", "function-list", func(r *TopicResult) bool { return len(r.Functions) == len(evaluator.FunctionNames()) }},
		{"Operators", "operator-list", func(r *TopicResult) bool { return len(r.Operators) == len(Operators) }},
		{"types", "type-list", func(r *TopicResult) bool { return len(r.Types) == len(Types) }},
		{"errors", "error-list", func(r *TopicResult) bool { return len(r.Errors) > 10 && r.Errors[0].Code < r.Errors[1].Code }},
		{"math", "category", func(r *TopicResult) bool {
			for _, f := range r.Functions {
				if f.Category != "math" {
					return false
				}
			}
			return len(r.Functions) > 0
		}},
		{"parse-0001", "error", func(r *TopicResult) bool { return len(r.Errors) == 1 && r.Errors[0].Code == "PARSE-0001" }},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			result, err := DescribeTopic(tt.topic)
			if err != nil {
				t.Fatalf("DescribeTopic(%q) returned error: %v", tt.topic, err)
			}
			if result.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", result.Kind, tt.wantKind)
			}
			if !tt.check(result) {
				t.Errorf("unexpected result for %q: %+v", tt.topic, result)
			}
		})
	}
}

// TestDescribeUnknown tests error messages for unknown topics
func TestDescribeUnknown(t *testing.T) {
	if _, err := DescribeTopic(""); err == nil || !strings.Contains(err.Error(), "no topic specified") {
		t.Errorf("expected no-topic error, got %v", err)
	}

	_, err := DescribeTopic("summ")
	if err == nil {
		t.Fatal("expected error for unknown topic")
	}
	if !strings.Contains(err.Error(), "unknown topic: summ") || !strings.Contains(err.Error(), "Did you mean: sum") {
		t.Errorf("expected suggestion for sum, got %v", err)
	}

	_, err = DescribeTopic("zzzzzzzzzzzz")
	if err == nil || !strings.Contains(err.Error(), "Try: functions") {
		t.Errorf("expected fallback hint, got %v", err)
	}
}

func TestFormatText(t *testing.T) {
	result, _ := DescribeTopic("substring")
	text := FormatText(result, 80)

	for _, want := range []string{
		"substring(string, start, end?) -> text",
		"Parameters:",
		"end     number, optional",
		"Category: string",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in:\n%s", want, text)
		}
	}

	list, _ := DescribeTopic("functions")
	text = FormatText(list, 80)
	for _, want := range []string{"Functions\n=========", "Math:", "Logical:", "sum(numbers...)"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in function list", want)
		}
	}
	if strings.Index(text, "Math:") > strings.Index(text, "String:") {
		t.Error("categories should keep library order")
	}

	ops, _ := DescribeTopic("operators")
	if text := FormatText(ops, 0); !strings.Contains(text, "^") {
		t.Errorf("operator list missing power:\n%s", text)
	}
}

func TestFormatJSON(t *testing.T) {
	result, _ := DescribeTopic("round")
	data, err := FormatJSON(result)
	if err != nil {
		t.Fatalf("FormatJSON error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["kind"] != "function" || decoded["name"] != "round" {
		t.Errorf("unexpected JSON: %s", data)
	}
	if _, ok := decoded["operators"]; ok {
		t.Error("empty fields should be omitted")
	}
}

func TestFormatMarkdownAndHTML(t *testing.T) {
	ops, _ := DescribeTopic("operators")
	md := FormatMarkdown(ops)
	if !strings.Contains(md, "| Operator | Kind | Description |") {
		t.Errorf("expected operator table:\n%s", md)
	}
	if !strings.Contains(md, `\|\|`) {
		t.Errorf("pipes in cells should be escaped:\n%s", md)
	}

	html, err := FormatHTML(ops)
	if err != nil {
		t.Fatalf("FormatHTML error: %v", err)
	}
	if !strings.Contains(html, "<table>") || !strings.Contains(html, `<h1 id="operators">Operators</h1>`) {
		t.Errorf("unexpected HTML:\n%s", html)
	}

	fn, _ := DescribeTopic("sum")
	html, err = FormatHTML(fn)
	if err != nil {
		t.Fatalf("FormatHTML error: %v", err)
	}
	if !strings.Contains(html, "<code>sum(numbers...)</code>") {
		t.Errorf("expected signature in HTML:\n%s", html)
	}
}

func TestWrap(t *testing.T) {
	got := wrap("one two three four", 9)
	if got != "one two\nthree\nfour" {
		t.Errorf("wrap = %q", got)
	}
	if wrap("", 10) != "" {
		t.Error("empty text should wrap to empty")
	}
}
