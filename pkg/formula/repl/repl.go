// Package repl implements the interactive formula prompt: formulas are
// evaluated against a record built up with :set, and named formulas can be
// defined and run as a batch.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/analysis"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/formula"
	"github.com/peterh/liner"
)

const PROMPT = ">> "
const CONTINUATION_PROMPT = ".. "

const FORMULA_LOGO = `
┌─┐┌─┐┬─┐┌┬┐┬ ┬┬  ┌─┐
├┤ │ │├┬┘││││ ││  ├─┤
└  └─┘┴└─┴ ┴└─┘┴─┘┴ ┴`

// Start starts the REPL with line editing, history, and tab completion.
// sample seeds the record formulas are evaluated against.
func Start(out io.Writer, version string, engine *formula.Engine, sample evaluator.Context) {
	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)

	session := NewSession(engine, sample, out)

	// Complete function names, and column names inside braces
	line.SetWordCompleter(session.Complete)

	// Load command history from file
	historyFile := filepath.Join(os.TempDir(), ".formula_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	// Save history on exit
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(out, "%s\n", FORMULA_LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	var inputBuffer strings.Builder

	for {
		currentPrompt := PROMPT
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C - clear any buffered input and return to main prompt
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		// Skip empty lines when no input buffered
		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		fullInput := inputBuffer.String()
		if needsMoreInput(fullInput) {
			continue
		}

		line.AppendHistory(fullInput)
		session.Handle(fullInput)
		inputBuffer.Reset()
	}
}

// needsMoreInput checks if the input has unclosed braces, brackets or
// parentheses outside string literals.
func needsMoreInput(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	depth := 0
	var quote byte
	escapeNext := false

	for i := 0; i < len(input); i++ {
		ch := input[i]

		if quote != 0 {
			switch {
			case escapeNext:
				escapeNext = false
			case ch == '\\':
				escapeNext = true
			case ch == quote:
				quote = 0
			}
			continue
		}

		switch ch {
		case '"', '\'':
			quote = ch
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		}
	}

	return depth > 0
}

// Complete is a liner word completer. Inside braces it offers columns of
// the current record; elsewhere it offers function names.
func (s *Session) Complete(line string, pos int) (head string, completions []string, tail string) {
	if pos > len(line) {
		pos = len(line)
	}

	start := pos
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	for start < pos && '0' <= line[start] && line[start] <= '9' {
		start++
	}

	return line[:start], analysis.Suggest(line, pos, s.columns()), line[pos:]
}

func isWordByte(ch byte) bool {
	return ch == '_' || 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9'
}
