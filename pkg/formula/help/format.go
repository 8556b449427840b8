package help

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// FormatText formats a TopicResult for terminal output with the given width
func FormatText(result *TopicResult, width int) string {
	if width <= 0 {
		width = 80
	}

	var sb strings.Builder

	switch result.Kind {
	case "function":
		formatFunctionText(&sb, result, width)
	case "function-list", "category":
		formatFunctionListText(&sb, result)
	case "operator-list":
		formatOperatorListText(&sb, result)
	case "type-list":
		sb.WriteString("Value Types\n")
		sb.WriteString("===========\n\n")
		writeAligned(&sb, len(result.Types), func(i int) (string, string) {
			return result.Types[i].Name, result.Types[i].Description
		})
	case "error-list", "error":
		if result.Kind == "error-list" {
			sb.WriteString("Error Codes\n")
			sb.WriteString("===========\n\n")
		}
		writeAligned(&sb, len(result.Errors), func(i int) (string, string) {
			e := result.Errors[i]
			return e.Code, fmt.Sprintf("[%s] %s", e.Class, e.Template)
		})
	default:
		fmt.Fprintf(&sb, "Unknown result kind: %s\n", result.Kind)
	}

	return sb.String()
}

// FormatJSON formats a TopicResult as JSON
func FormatJSON(result *TopicResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// formatFunctionText formats a single function's help output
func formatFunctionText(sb *strings.Builder, result *TopicResult, width int) {
	fmt.Fprintf(sb, "%s -> %s\n\n", result.Signature, result.Returns)
	sb.WriteString(wrap(result.Description, width))
	sb.WriteString("\n")

	if len(result.Params) > 0 {
		sb.WriteString("\nParameters:\n")
		writeAligned(sb, len(result.Params), func(i int) (string, string) {
			p := result.Params[i]
			switch {
			case p.Variadic:
				return p.Name, p.Type + ", repeatable"
			case p.Optional:
				return p.Name, p.Type + ", optional"
			}
			return p.Name, p.Type
		})
	}

	if len(result.Examples) > 0 {
		sb.WriteString("\nExamples:\n")
		for _, ex := range result.Examples {
			fmt.Fprintf(sb, "  %s\n", ex)
		}
	}

	fmt.Fprintf(sb, "\nArity: %s\n", result.Arity)
	fmt.Fprintf(sb, "Category: %s\n", result.Category)
}

// formatFunctionListText groups functions by category
func formatFunctionListText(sb *strings.Builder, result *TopicResult) {
	if result.Kind == "category" {
		title := strings.ToUpper(result.Name[:1]) + result.Name[1:] + " Functions"
		fmt.Fprintf(sb, "%s\n%s\n\n%s\n\n", title, strings.Repeat("=", len(title)), result.Description)
		writeAligned(sb, len(result.Functions), func(i int) (string, string) {
			return result.Functions[i].Signature, result.Functions[i].Description
		})
		return
	}

	sb.WriteString("Functions\n")
	sb.WriteString("=========\n\n")

	for _, group := range groupByCategory(result.Functions) {
		fmt.Fprintf(sb, "%s:\n", strings.ToUpper(group.category[:1])+group.category[1:])
		writeAligned(sb, len(group.functions), func(i int) (string, string) {
			return group.functions[i].Signature, group.functions[i].Description
		})
		sb.WriteString("\n")
	}

	sb.WriteString("Names are case-insensitive. Use 'formula describe <name>' for details.\n")
}

// formatOperatorListText formats the operators list output
func formatOperatorListText(sb *strings.Builder, result *TopicResult) {
	sb.WriteString("Operators (lowest precedence first)\n")
	sb.WriteString("===================================\n\n")
	writeAligned(sb, len(result.Operators), func(i int) (string, string) {
		return result.Operators[i].Symbol, result.Operators[i].Description
	})
}

type categoryGroup struct {
	category  string
	functions []FunctionEntry
}

// groupByCategory keeps the incoming order of categories and functions.
func groupByCategory(functions []FunctionEntry) []categoryGroup {
	var groups []categoryGroup
	for _, f := range functions {
		if len(groups) == 0 || groups[len(groups)-1].category != f.Category {
			groups = append(groups, categoryGroup{category: f.Category})
		}
		last := &groups[len(groups)-1]
		last.functions = append(last.functions, f)
	}
	return groups
}

// writeAligned writes n two-column rows with the second column aligned.
func writeAligned(sb *strings.Builder, n int, row func(i int) (string, string)) {
	maxLen := 0
	for i := 0; i < n; i++ {
		left, _ := row(i)
		if len(left) > maxLen {
			maxLen = len(left)
		}
	}
	for i := 0; i < n; i++ {
		left, right := row(i)
		padding := strings.Repeat(" ", maxLen-len(left)+2)
		fmt.Fprintf(sb, "  %s%s%s\n", left, padding, right)
	}
}

// FormatSearchText lists search results, one per line with the matching
// part of the description beneath.
func FormatSearchText(query string, results []SearchResult) string {
	var sb strings.Builder
	if len(results) == 0 {
		fmt.Fprintf(&sb, "No topics match %q\n", query)
		return sb.String()
	}

	fmt.Fprintf(&sb, "Topics matching %q\n\n", query)
	for _, r := range results {
		fmt.Fprintf(&sb, "%2d. %-9s %s\n", r.Rank, r.Kind, r.Summary)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "    %s\n", strings.Join(strings.Fields(r.Snippet), " "))
		}
	}
	return sb.String()
}

// wrap breaks text into lines no longer than width where possible.
func wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var sb strings.Builder
	lineLen := 0
	for i, w := range words {
		if i > 0 {
			if lineLen+1+len(w) > width {
				sb.WriteString("\n")
				lineLen = 0
			} else {
				sb.WriteString(" ")
				lineLen++
			}
		}
		sb.WriteString(w)
		lineLen += len(w)
	}
	return sb.String()
}

// FormatMarkdown formats a TopicResult as GitHub-flavored Markdown
func FormatMarkdown(result *TopicResult) string {
	var sb strings.Builder

	switch result.Kind {
	case "function":
		fmt.Fprintf(&sb, "## %s\n\n", result.Name)
		fmt.Fprintf(&sb, "`%s` returns **%s**\n\n", result.Signature, result.Returns)
		fmt.Fprintf(&sb, "%s\n\n", result.Description)
		if len(result.Params) > 0 {
			sb.WriteString("| Parameter | Type | |\n|---|---|---|\n")
			for _, p := range result.Params {
				note := ""
				if p.Optional {
					note = "optional"
				} else if p.Variadic {
					note = "repeatable"
				}
				fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", p.Name, p.Type, note)
			}
			sb.WriteString("\n")
		}
		if len(result.Examples) > 0 {
			sb.WriteString("```\n")
			for _, ex := range result.Examples {
				sb.WriteString(ex + "\n")
			}
			sb.WriteString("```\n")
		}

	case "function-list", "category":
		title := "Functions"
		if result.Kind == "category" {
			title = strings.ToUpper(result.Name[:1]) + result.Name[1:] + " functions"
		}
		fmt.Fprintf(&sb, "# %s\n\n", title)
		for _, group := range groupByCategory(result.Functions) {
			if result.Kind == "function-list" {
				fmt.Fprintf(&sb, "## %s\n\n", group.category)
			}
			sb.WriteString("| Function | Returns | Description |\n|---|---|---|\n")
			for _, f := range group.functions {
				fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", f.Signature, f.Returns, escapeCell(f.Description))
			}
			sb.WriteString("\n")
		}

	case "operator-list":
		sb.WriteString("# Operators\n\n| Operator | Kind | Description |\n|---|---|---|\n")
		for _, op := range result.Operators {
			fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", escapeCell(op.Symbol), op.Category, escapeCell(op.Description))
		}

	case "type-list":
		sb.WriteString("# Value types\n\n")
		for _, t := range result.Types {
			fmt.Fprintf(&sb, "- **%s**: %s\n", t.Name, t.Description)
		}

	case "error-list", "error":
		sb.WriteString("# Errors\n\n| Code | Class | Message |\n|---|---|---|\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&sb, "| `%s` | %s | `%s` |\n", e.Code, e.Class, escapeCell(e.Template))
		}
	}

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// FormatHTML renders the Markdown form of a TopicResult to HTML
func FormatHTML(result *TopicResult) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(FormatMarkdown(result)), &buf); err != nil {
		return "", fmt.Errorf("failed to render help: %w", err)
	}
	return buf.String(), nil
}
