package analysis

import (
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/ast"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
)

// ExtractColumnReferences returns the column names source reads, in order
// of first appearance without duplicates. Function names and literals are
// never included.
func ExtractColumnReferences(source string) []string {
	refs := []string{}
	seen := make(map[string]bool)
	for _, tok := range lexer.Tokenize(source) {
		if tok.Type != lexer.IDENT || seen[tok.Literal] {
			continue
		}
		seen[tok.Literal] = true
		refs = append(refs, tok.Literal)
	}
	return refs
}

// ReferencesOf returns the column names referenced by a parsed formula in
// the same order as ExtractColumnReferences.
func ReferencesOf(expr ast.Expression) []string {
	refs := []string{}
	seen := make(map[string]bool)
	ast.Walk(expr, func(node ast.Expression) bool {
		if ref, ok := node.(*ast.ColumnRef); ok && !seen[ref.Name] {
			seen[ref.Name] = true
			refs = append(refs, ref.Name)
		}
		return true
	})
	return refs
}
