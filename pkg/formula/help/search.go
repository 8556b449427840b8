package help

import (
	"database/sql"
	"fmt"
	"strings"

	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
	_ "modernc.org/sqlite"
)

// Weights defines the ranking weights for the indexed fields
type Weights struct {
	Name        float64
	Category    float64
	Description float64
	Examples    float64
}

// DefaultWeights returns the default ranking weights
func DefaultWeights() Weights {
	return Weights{
		Name:        10.0,
		Category:    3.0,
		Description: 1.0,
		Examples:    2.0,
	}
}

// SearchResult is one topic matching a search
type SearchResult struct {
	Kind    string `json:"kind"` // function, operator, type or error
	Name    string `json:"name"`
	Summary string `json:"summary"`
	Snippet string `json:"snippet"` // Description with matches wrapped in [ ]
	Rank    int    `json:"rank"`
}

// Index is an in-memory SQLite FTS5 index over every help topic.
type Index struct {
	db      *sql.DB
	weights Weights
}

// NewIndex builds an index over the functions, operators, types and error
// codes.
func NewIndex(weights Weights) (*Index, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	// Each connection to :memory: is its own database
	db.SetMaxOpenConns(1)

	idx := &Index{db: db, weights: weights}
	if err := idx.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create FTS5 tables: %w", err)
	}
	if err := idx.indexTopics(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) createTables() error {
	_, err := idx.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS topics_fts USING fts5(
			name,
			category,
			description,
			examples,
			kind UNINDEXED,
			summary UNINDEXED,
			tokenize='porter unicode61'
		)
	`)
	return err
}

type topicDoc struct {
	kind, name, category, description, examples, summary string
}

func (idx *Index) indexTopics() error {
	var docs []topicDoc

	for _, def := range evaluator.Functions() {
		docs = append(docs, topicDoc{
			kind:        "function",
			name:        def.Name + " " + splitCamel(def.Name),
			category:    def.Category,
			description: def.Description,
			examples:    strings.Join(def.Examples, "\n"),
			summary:     def.Signature() + " -> " + def.Returns,
		})
	}
	for _, op := range Operators {
		docs = append(docs, topicDoc{
			kind:        "operator",
			name:        op.Symbol,
			category:    op.Category,
			description: op.Description,
			summary:     op.Symbol,
		})
	}
	for _, t := range Types {
		docs = append(docs, topicDoc{
			kind:        "type",
			name:        t.Name,
			category:    "types",
			description: t.Description,
			summary:     t.Name,
		})
	}
	for _, code := range errorCodes() {
		def := ferrors.ErrorCatalog[code]
		docs = append(docs, topicDoc{
			kind:        "error",
			name:        code,
			category:    string(def.Class),
			description: def.Template + "\n" + strings.Join(def.Hints, "\n"),
			summary:     code,
		})
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to index topics: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO topics_fts (name, category, description, examples, kind, summary) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to index topics: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if _, err := stmt.Exec(d.name, d.category, d.description, d.examples, d.kind, d.summary); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to index %s %s: %w", d.kind, d.name, err)
		}
	}
	return tx.Commit()
}

// Search returns up to limit topics matching query, best first. Terms are
// prefix matched and all must appear; "-term" excludes a term and quoted
// text matches as a phrase.
func (idx *Index) Search(query string, limit int) ([]SearchResult, error) {
	ftsQuery := SanitizeQuery(query)
	if ftsQuery == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	w := idx.weights
	sqlQuery := fmt.Sprintf(`
		SELECT kind, name, summary,
			snippet(topics_fts, 2, '[', ']', '...', 12)
		FROM topics_fts
		WHERE topics_fts MATCH ?
		ORDER BY bm25(topics_fts, %.1f, %.1f, %.1f, %.1f)
		LIMIT ?
	`, w.Name, w.Category, w.Description, w.Examples)

	rows, err := idx.db.Query(sqlQuery, ftsQuery, limit)
	if err != nil {
		// A query FTS5 cannot parse matches nothing
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []SearchResult{}, nil
		}
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Kind, &r.Name, &r.Summary, &r.Snippet); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		// Function names are indexed with their split form
		if r.Kind == "function" {
			r.Name, _, _ = strings.Cut(r.Name, " ")
		}
		r.Rank = len(results) + 1
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

// Close releases the index.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Search builds a throwaway index and searches it.
func Search(query string, limit int) ([]SearchResult, error) {
	idx, err := NewIndex(DefaultWeights())
	if err != nil {
		return nil, err
	}
	defer idx.Close()
	return idx.Search(query, limit)
}

// SanitizeQuery converts user input into an FTS5 query. Every term is
// quoted so operator characters match literally.
func SanitizeQuery(query string) string {
	tokens := parseQueryTokens(strings.TrimSpace(query))
	if len(tokens) == 0 {
		return ""
	}

	var parts []string
	positive := false
	for _, token := range tokens {
		switch {
		case token.isPhrase:
			parts = append(parts, quoteTerm(token.value))
			positive = true
		case token.isNegation:
			parts = append(parts, "NOT "+quoteTerm(token.value)+"*")
		default:
			parts = append(parts, quoteTerm(token.value)+"*")
			positive = true
		}
	}
	// FTS5 rejects a query made only of exclusions
	if !positive {
		return ""
	}

	// A leading NOT is not valid FTS5
	if strings.HasPrefix(parts[0], "NOT ") {
		for i, p := range parts {
			if !strings.HasPrefix(p, "NOT ") {
				parts[0], parts[i] = parts[i], parts[0]
				break
			}
		}
	}

	var sb strings.Builder
	for i, p := range parts {
		if i > 0 {
			if strings.HasPrefix(p, "NOT ") {
				sb.WriteString(" ")
			} else {
				sb.WriteString(" AND ")
			}
		}
		sb.WriteString(p)
	}
	return sb.String()
}

func quoteTerm(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

type queryToken struct {
	value      string
	isPhrase   bool
	isNegation bool
}

// parseQueryTokens splits a query into words, "quoted phrases" and
// -negated words.
func parseQueryTokens(query string) []queryToken {
	var tokens []queryToken
	inQuotes := false
	isNegation := false
	var current strings.Builder

	flush := func(phrase bool) {
		value := strings.TrimSpace(current.String())
		if value != "" {
			tokens = append(tokens, queryToken{value: value, isPhrase: phrase, isNegation: isNegation && !phrase})
		}
		current.Reset()
		isNegation = false
	}

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '"':
			flush(inQuotes)
			inQuotes = !inQuotes
		case inQuotes:
			current.WriteByte(ch)
		case ch == ' ' || ch == '\t':
			flush(false)
		case ch == '-' && current.Len() == 0:
			isNegation = true
		default:
			current.WriteByte(ch)
		}
	}
	// An unclosed quote still counts as a phrase
	flush(inQuotes)

	return tokens
}

// splitCamel turns dateDiff into "date diff" so either word finds it.
func splitCamel(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	return strings.ToLower(sb.String())
}
