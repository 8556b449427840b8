package source

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamsmac/data-parse-desk-sub000/config"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// A single connection keeps the in-memory database alive between calls
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE sales (id INTEGER PRIMARY KEY, product TEXT, price REAL, qty INTEGER, note TEXT);
		INSERT INTO sales (product, price, qty, note) VALUES ('apple', 1.5, 4, NULL);
		INSERT INTO sales (product, price, qty, note) VALUES ('pear', 2.25, 2, 'ripe');
	`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return db
}

func TestSQLSource(t *testing.T) {
	db := setupTestDB(t)
	src := NewSQLSource(db, "SELECT product, price, qty, note FROM sales ORDER BY id")

	rows, err := src.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if v, _ := first.Get("product"); v.Inspect() != "apple" {
		t.Errorf("product = %s, want apple", v.Inspect())
	}
	if v, _ := first.Get("price"); v.Type() != evaluator.NUMBER_VAL || v.Inspect() != "1.5" {
		t.Errorf("price = %s (%s), want number 1.5", v.Inspect(), v.Type())
	}
	if v, _ := first.Get("qty"); v.Type() != evaluator.NUMBER_VAL || v.Inspect() != "4" {
		t.Errorf("qty = %s (%s), want number 4", v.Inspect(), v.Type())
	}
	if v, _ := first.Get("note"); v.Type() != evaluator.NULL_VAL {
		t.Errorf("note = %s, want null", v.Inspect())
	}

	total, err := evaluator.EvaluateFormula("{price} * {qty}", rows[1])
	if err != nil {
		t.Fatalf("EvaluateFormula failed: %v", err)
	}
	if total.Inspect() != "4.5" {
		t.Errorf("price * qty = %s, want 4.5", total.Inspect())
	}

	// NewSQLSource does not own the database
	if err := src.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Errorf("database should stay open: %v", err)
	}
}

func TestSQLSourceQueryError(t *testing.T) {
	db := setupTestDB(t)
	src := NewSQLSource(db, "SELECT * FROM missing_table")

	if _, err := src.Rows(context.Background()); err == nil || !strings.Contains(err.Error(), "query failed") {
		t.Errorf("expected query error, got %v", err)
	}
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`CREATE TABLE t (a INTEGER, b TEXT); INSERT INTO t VALUES (1, 'x'), (2, 'y');`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	src, err := Open(config.RowsConfig{Driver: "sqlite", DSN: path, Query: "SELECT a, b FROM t ORDER BY a"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	rows, err := src.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if v, _ := rows[1].Get("b"); v.Inspect() != "y" {
		t.Errorf("b = %s, want y", v.Inspect())
	}
}

func TestJSONSource(t *testing.T) {
	src, err := NewJSONSource(strings.NewReader(`[
		{"name": "a", "amount": 10, "tags": ["x", "y"], "meta": {"ok": true}, "gone": null},
		{"name": "b", "amount": 2.5}
	]`))
	if err != nil {
		t.Fatal(err)
	}

	rows, err := src.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	tests := []struct {
		formula  string
		expected string
	}{
		{"{amount} * 2", "20"},
		{"{tags}[1]", "y"},
		{"{meta}[\"ok\"]", "true"},
		{"isNull({gone})", "true"},
	}
	for _, tt := range tests {
		v, err := evaluator.EvaluateFormula(tt.formula, rows[0])
		if err != nil {
			t.Errorf("%s: %v", tt.formula, err)
			continue
		}
		if v.Inspect() != tt.expected {
			t.Errorf("%s = %s, want %s", tt.formula, v.Inspect(), tt.expected)
		}
	}
}

func TestJSONFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	if err := os.WriteFile(path, []byte(`[{"n": 1}]`), 0644); err != nil {
		t.Fatal(err)
	}

	src, err := Open(config.RowsConfig{Driver: "json", File: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	rows, err := src.Rows(context.Background())
	if err != nil || len(rows) != 1 {
		t.Fatalf("Rows = %v, %v", rows, err)
	}

	// The file is re-read on every call
	if err := os.WriteFile(path, []byte(`[{"n": 1}, {"n": 2}]`), 0644); err != nil {
		t.Fatal(err)
	}
	rows, err = src.Rows(context.Background())
	if err != nil || len(rows) != 2 {
		t.Fatalf("Rows after edit = %v, %v", rows, err)
	}
}

func TestJSONSourceErrors(t *testing.T) {
	src, _ := NewJSONSource(strings.NewReader(`{"not": "an array"}`))
	if _, err := src.Rows(context.Background()); err == nil || !strings.Contains(err.Error(), "JSON array of objects") {
		t.Errorf("expected shape error, got %v", err)
	}

	missing := OpenJSONFile(filepath.Join(t.TempDir(), "nope.json"))
	if _, err := missing.Rows(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(config.RowsConfig{}); err == nil {
		t.Error("expected error for empty driver")
	}
	if _, err := Open(config.RowsConfig{Driver: "oracle"}); err == nil || !strings.Contains(err.Error(), "unknown row source driver") {
		t.Errorf("expected unknown driver error, got %v", err)
	}
}
