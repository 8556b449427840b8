package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
)

// SQLSource runs one query and turns each result row into a record keyed
// by column name.
type SQLSource struct {
	db    *sql.DB
	query string
	owned bool
}

// OpenSQL opens a database with one of the registered drivers (sqlite,
// postgres or mysql).
func OpenSQL(driver, dsn, query string) (*SQLSource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return &SQLSource{db: db, query: query, owned: true}, nil
}

// NewSQLSource reads from an already open database. Close leaves db open.
func NewSQLSource(db *sql.DB, query string) *SQLSource {
	return &SQLSource{db: db, query: query}
}

// Rows runs the query. Text and blobs become text, numeric columns become
// numbers, timestamps become dates and NULL becomes null.
func (s *SQLSource) Rows(ctx context.Context) ([]evaluator.Context, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var records []evaluator.Context
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(records), err)
		}

		record := make(evaluator.Context, len(columns))
		for i, col := range columns {
			record[col] = evaluator.FromGo(values[i])
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	return records, nil
}

// Close closes the database if the source opened it.
func (s *SQLSource) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
