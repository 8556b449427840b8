package repl

import (
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/analysis"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/ast"
	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/formula"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/help"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
)

// Session holds the state of one REPL: the record formulas read and the
// engine whose registry :define adds to. It writes everything to out.
type Session struct {
	engine *formula.Engine
	ctx    evaluator.Context
	out    io.Writer
}

// NewSession creates a session. sample is copied.
func NewSession(engine *formula.Engine, sample evaluator.Context, out io.Writer) *Session {
	if engine == nil {
		engine = formula.New()
	}
	return &Session{engine: engine, ctx: sample.Clone(), out: out}
}

// Context returns the record formulas are evaluated against.
func (s *Session) Context() evaluator.Context {
	return s.ctx
}

func (s *Session) columns() []string {
	return s.ctx.Columns()
}

// Handle runs one complete input: a :command or a formula.
func (s *Session) Handle(input string) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return
	}
	if strings.HasPrefix(trimmed, ":") {
		s.handleCommand(trimmed)
		return
	}

	v, err := s.engine.Eval(trimmed, s.ctx)
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintln(s.out, repr(v))
}

// handleCommand handles REPL meta-commands that start with ':'
func (s *Session) handleCommand(cmd string) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":help", ":h", ":?":
		s.printHelp()

	case ":ctx":
		s.printContext()

	case ":set":
		col, source, ok := splitAssignment(arg)
		if !ok {
			fmt.Fprintln(s.out, "Usage: :set name = formula")
			return
		}
		v, err := s.engine.Eval(source, s.ctx)
		if err != nil {
			s.printError(err)
			return
		}
		s.ctx[col] = v
		fmt.Fprintf(s.out, "%s = %s\n", col, repr(v))

	case ":unset":
		if _, ok := s.ctx[arg]; !ok {
			fmt.Fprintf(s.out, "No column named %q\n", arg)
			return
		}
		delete(s.ctx, arg)
		fmt.Fprintf(s.out, "Removed %s\n", arg)

	case ":clear":
		s.ctx = evaluator.Context{}
		for _, n := range s.engine.Registry().Names() {
			s.engine.Registry().Remove(n)
		}
		fmt.Fprintln(s.out, "Context and formulas cleared")

	case ":refs":
		refs := analysis.ExtractColumnReferences(arg)
		if len(refs) == 0 {
			fmt.Fprintln(s.out, "(no column references)")
			return
		}
		fmt.Fprintln(s.out, strings.Join(refs, ", "))

	case ":type":
		fmt.Fprintln(s.out, s.engine.InferType(arg, s.ctx))

	case ":ast":
		expr, err := evaluator.Parse(lexer.Tokenize(arg))
		if err != nil {
			s.printError(err)
			return
		}
		io.WriteString(s.out, ast.Dump(expr))

	case ":check":
		res := s.engine.Validate(arg)
		if res.Valid {
			fmt.Fprintln(s.out, "OK")
			return
		}
		s.printError(res.Err)

	case ":describe", ":d":
		topic, err := help.DescribeTopic(arg)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return
		}
		io.WriteString(s.out, help.FormatText(topic, 80))

	case ":search":
		results, err := help.Search(arg, 10)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return
		}
		io.WriteString(s.out, help.FormatSearchText(arg, results))

	case ":define":
		s.define(arg)

	case ":all":
		s.evaluateAll()

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", name)
	}
}

// define adds a named formula. Dependencies follow the formula after a
// semicolon; without them the formula's column references are used.
func (s *Session) define(arg string) {
	name, rest, ok := splitAssignment(arg)
	if !ok {
		fmt.Fprintln(s.out, "Usage: :define name = formula [; dep, dep]")
		return
	}

	source, depList, hasDeps := strings.Cut(rest, ";")
	source = strings.TrimSpace(source)
	if res := s.engine.Validate(source); !res.Valid {
		s.printError(res.Err)
		return
	}

	var deps []string
	if hasDeps {
		deps = strings.Split(depList, ",")
	} else {
		deps = analysis.ExtractColumnReferences(source)
	}

	s.engine.Registry().Define(name, source, deps...)
	deps = s.engine.Registry().DependenciesOf(name)
	if len(deps) == 0 {
		fmt.Fprintf(s.out, "Defined %s\n", name)
	} else {
		fmt.Fprintf(s.out, "Defined %s (depends on %s)\n", name, strings.Join(deps, ", "))
	}
}

// evaluateAll runs every defined formula against the current record
func (s *Session) evaluateAll() {
	r := s.engine.Registry()
	if r.Len() == 0 {
		fmt.Fprintln(s.out, "(no formulas defined)")
		return
	}

	results, err := r.EvaluateAll(s.ctx)
	if err != nil {
		s.printError(err)
		return
	}
	for _, name := range r.Names() {
		fmt.Fprintf(s.out, "  %s = %s\n", name, repr(results[name]))
	}
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.out, "REPL Commands:")
	fmt.Fprintln(s.out, "  :help, :h, :?              Show this help")
	fmt.Fprintln(s.out, "  :ctx                       Show the current record")
	fmt.Fprintln(s.out, "  :set name = formula        Evaluate formula and store it as column name")
	fmt.Fprintln(s.out, "  :unset name                Remove a column")
	fmt.Fprintln(s.out, "  :clear                     Remove every column and formula")
	fmt.Fprintln(s.out, "  :refs formula              List the columns a formula reads")
	fmt.Fprintln(s.out, "  :type formula              Infer the result type")
	fmt.Fprintln(s.out, "  :ast formula               Show the parsed tree")
	fmt.Fprintln(s.out, "  :check formula             Validate without evaluating")
	fmt.Fprintln(s.out, "  :describe topic            Show help (functions, operators, sum, ...)")
	fmt.Fprintln(s.out, "  :search words              Search the help topics")
	fmt.Fprintln(s.out, "  :define name = formula     Add a named formula; '; a, b' sets its dependencies")
	fmt.Fprintln(s.out, "  :all                       Evaluate every named formula")
	fmt.Fprintln(s.out, "  exit, quit                 Exit the REPL")
}

// printContext displays every column of the current record
func (s *Session) printContext() {
	names := s.ctx.Columns()
	if len(names) == 0 {
		fmt.Fprintln(s.out, "(no columns)")
		return
	}

	for _, name := range names {
		v, _ := s.ctx.Get(name)
		value := repr(v)
		if len(value) > 60 {
			value = value[:57] + "..."
		}
		fmt.Fprintf(s.out, "  %s: %s = %s\n", name, evaluator.TypeName(v), value)
	}
}

// printError prints a formula error with structured formatting
func (s *Session) printError(err error) {
	var ferr *ferrors.FormulaError
	if stderrors.As(err, &ferr) {
		io.WriteString(s.out, ferr.PrettyString())
		io.WriteString(s.out, "\n")
		return
	}
	fmt.Fprintf(s.out, "Error: %v\n", err)
}

// splitAssignment splits "name = formula". The name may be written with
// braces.
func splitAssignment(arg string) (name, source string, ok bool) {
	name, source, ok = strings.Cut(arg, "=")
	if !ok {
		return "", "", false
	}
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(strings.TrimPrefix(name, "{"), "}")
	source = strings.TrimSpace(source)
	if name == "" || source == "" {
		return "", "", false
	}
	return name, source, true
}

// repr renders a value the way it would be written in a formula: text is
// quoted, everything else uses its display form.
func repr(v evaluator.Value) string {
	if t, ok := v.(*evaluator.Text); ok {
		return strconv.Quote(t.Value)
	}
	return v.Inspect()
}
