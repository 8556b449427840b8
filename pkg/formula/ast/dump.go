package ast

import (
	"fmt"
	"strings"
)

// Dump renders the tree one node per line, children indented two spaces
// under their parent.
func Dump(node Expression) string {
	var sb strings.Builder
	dump(&sb, node, 0)
	return sb.String()
}

func dump(sb *strings.Builder, node Expression, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))

	switch n := node.(type) {
	case *NumberLiteral:
		fmt.Fprintf(sb, "Number %s\n", n.Token.Literal)
	case *StringLiteral:
		fmt.Fprintf(sb, "String %s\n", QuoteString(n.Value))
	case *BooleanLiteral:
		fmt.Fprintf(sb, "Boolean %s\n", n.Token.Literal)
	case *ColumnRef:
		fmt.Fprintf(sb, "Column %s\n", n.Name)
	case *IndexExpression:
		sb.WriteString("Index\n")
		dump(sb, n.Left, depth+1)
		dump(sb, n.Index, depth+1)
	case *PrefixExpression:
		fmt.Fprintf(sb, "Prefix %s\n", n.Operator)
		dump(sb, n.Right, depth+1)
	case *InfixExpression:
		fmt.Fprintf(sb, "Infix %s\n", n.Operator)
		dump(sb, n.Left, depth+1)
		dump(sb, n.Right, depth+1)
	case *CallExpression:
		fmt.Fprintf(sb, "Call %s\n", n.Name)
		for _, arg := range n.Arguments {
			dump(sb, arg, depth+1)
		}
	default:
		fmt.Fprintf(sb, "%T\n", node)
	}
}
