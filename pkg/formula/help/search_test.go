package help

import (
	"testing"
)

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{"simple query", "round number", `"round"* AND "number"*`},
		{"quoted phrase", `"nearest integer"`, `"nearest integer"`},
		{"negation", "date -format", `"date"* NOT "format"*`},
		{"leading negation", "-format date", `"date"* NOT "format"*`},
		{"only negation", "-date", ""},
		{"empty query", "", ""},
		{"whitespace only", "   ", ""},
		{"operator characters", "a:b", `"a:b"*`},
		{"embedded quote", `it"s`, `"it"* AND "s"`},
		{"unclosed quote", `"division by`, `"division by"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeQuery(tt.query); got != tt.expected {
				t.Errorf("SanitizeQuery(%q) = %q, want %q", tt.query, got, tt.expected)
			}
		})
	}
}

func TestSplitCamel(t *testing.T) {
	tests := map[string]string{
		"dateDiff":   "date diff",
		"formatDate": "format date",
		"sum":        "sum",
		"isNull":     "is null",
	}
	for in, want := range tests {
		if got := splitCamel(in); got != want {
			t.Errorf("splitCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearch(t *testing.T) {
	idx, err := NewIndex(DefaultWeights())
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	tests := []struct {
		name      string
		query     string
		wantFirst string
		wantKind  string
	}{
		{"function by name", "round", "round", "function"},
		{"camel case word", "diff", "dateDiff", "function"},
		{"error code text", `"division by zero"`, "OP-0001", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := idx.Search(tt.query, 5)
			if err != nil {
				t.Fatalf("Search(%q): %v", tt.query, err)
			}
			if len(results) == 0 {
				t.Fatalf("Search(%q) found nothing", tt.query)
			}
			if results[0].Name != tt.wantFirst || results[0].Kind != tt.wantKind {
				t.Errorf("first result = %s %s, want %s %s", results[0].Kind, results[0].Name, tt.wantKind, tt.wantFirst)
			}
			if results[0].Rank != 1 {
				t.Errorf("first rank = %d, want 1", results[0].Rank)
			}
		})
	}
}

func TestSearchNoMatches(t *testing.T) {
	results, err := Search("zzzzqqq", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want none", results)
	}

	results, err = Search("", 5)
	if err != nil || len(results) != 0 {
		t.Errorf("empty query = %v, %v", results, err)
	}
}

func TestSearchLimit(t *testing.T) {
	results, err := Search("returns", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}
