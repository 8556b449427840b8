package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jamsmac/data-parse-desk-sub000/config"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/analysis"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/ast"
	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/formula"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/help"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/lexer"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/repl"
	"github.com/jamsmac/data-parse-desk-sub000/source"
)

// Version is set at compile time via -ldflags
var Version = "0.1.0"

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1 // evaluation or validation failed
	exitUsage   = 2 // bad flags or arguments
)

// usageError marks errors caused by how the command was invoked.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// errReported means the failure has already been written out.
var errReported = errors.New("failed")

func main() {
	ctx := context.Background()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// run is the main entry point, designed for testability
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	err := dispatch(ctx, args, stdout, stderr, getenv)

	var uerr *usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &uerr):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintln(stderr, "Run 'formula --help' for usage.")
		return exitUsage
	case errors.Is(err, errReported):
		return exitFailure
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
}

func dispatch(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	// Check for subcommands first (before flag parsing)
	if len(args) > 0 {
		switch args[0] {
		case "describe":
			return describeCommand(args[1:], stdout)
		case "batch":
			return batchCommand(ctx, args[1:], stdout, stderr, getenv)
		case "watch":
			return watchCommand(ctx, args[1:], stdout, stderr, getenv)
		}
	}

	flags := flag.NewFlagSet("formula", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var (
		evalCode    = flags.String("e", "", "Evaluate a formula")
		contextJSON = flags.String("c", "", "Record to evaluate against, as a JSON object")
		returnType  = flags.String("return-type", "", "Cast the result to number, text, boolean or date")
		jsonOutput  = flags.Bool("json", false, "Print results as JSON")
		checkMode   = flags.Bool("check", false, "Validate the formulas given as arguments")
		refsCode    = flags.String("refs", "", "Print the columns a formula reads")
		typeCode    = flags.String("type", "", "Infer the result type of a formula")
		astCode     = flags.String("ast", "", "Print the parsed tree of a formula")
		highlight   = flags.String("highlight", "", "Print a formula as highlighted HTML")
		configPath  = flags.String("config", "", "Path to config file")
		strict      = flags.Bool("strict", false, "Enable strict columns, arity and division")
		trace       = flags.Bool("trace", false, "Log every evaluation")
		showVersion = flags.Bool("V", false, "Show version information")
		showHelp    = flags.Bool("h", false, "Show help message")
	)
	flags.StringVar(evalCode, "eval", "", "Evaluate a formula")
	flags.StringVar(contextJSON, "context", "", "Record to evaluate against, as a JSON object")
	flags.BoolVar(showVersion, "version", false, "Show version information")
	flags.BoolVar(showHelp, "help", false, "Show help message")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printHelp(stdout)
			return nil
		}
		return usagef("%v", err)
	}

	if *showHelp {
		printHelp(stdout)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "formula version %s\n", Version)
		return nil
	}

	cfg, err := loadConfig(*configPath, getenv)
	if err != nil {
		return err
	}
	if *strict {
		cfg.Engine.StrictColumns = true
		cfg.Engine.StrictArity = true
		cfg.Engine.StrictDivision = true
	}
	if *trace {
		cfg.Logging.Trace = true
	}

	logger, closer, err := formula.LoggerFromConfig(cfg.Logging, stdout, stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	engine, err := formula.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	record := cfg.SampleContext()
	if *contextJSON != "" {
		record, err = parseContext(*contextJSON)
		if err != nil {
			return usagef("invalid -c: %v", err)
		}
	}

	// Mode dispatch
	switch {
	case *evalCode != "":
		return evalCommand(engine, *evalCode, record, *returnType, *jsonOutput, stdout, stderr)
	case *checkMode:
		if flags.NArg() == 0 {
			return usagef("--check requires at least one formula")
		}
		return checkCommand(flags.Args(), *jsonOutput, stdout, stderr)
	case *refsCode != "":
		refs := analysis.ExtractColumnReferences(*refsCode)
		if *jsonOutput {
			return writeJSON(stdout, refs)
		}
		for _, ref := range refs {
			fmt.Fprintln(stdout, ref)
		}
		return nil
	case *typeCode != "":
		fmt.Fprintln(stdout, engine.InferType(*typeCode, record))
		return nil
	case *astCode != "":
		expr, err := evaluator.Parse(lexer.Tokenize(*astCode))
		if err != nil {
			printFormulaError(stderr, err)
			return errReported
		}
		io.WriteString(stdout, ast.Dump(expr))
		return nil
	case *highlight != "":
		if *jsonOutput {
			return writeJSON(stdout, analysis.Highlight(*highlight))
		}
		fmt.Fprintln(stdout, analysis.HighlightHTML(*highlight))
		return nil
	case flags.NArg() > 0:
		return usagef("unexpected argument %q", flags.Arg(0))
	default:
		repl.Start(stdout, Version, engine, record)
		return nil
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `formula - computed-column formula engine version %s

Usage:
  formula                                 Start the interactive REPL
  formula -e "<formula>" [-c JSON]        Evaluate a formula
  formula --check "<formula>"...          Validate formulas
  formula --refs "<formula>"              Print column references
  formula --type "<formula>" [-c JSON]    Infer the result type
  formula --ast "<formula>"               Print the parsed tree
  formula --highlight "<formula>"         Print highlighted HTML
  formula describe [--json|--md|--html] <topic>
  formula describe --search <words>       Search every help topic
  formula batch [--config path] [--json]  Evaluate configured formulas for every row
  formula watch [--config path]           Re-run batch when the config or rows change

Options:
  -e, --eval <formula>      Evaluate a formula
  -c, --context <json>      Record to evaluate against (default: config sample)
  --return-type <type>      Cast the result to number, text, boolean or date
  --json                    Print results as JSON
  --config <path>           Config file (default: $FORMULA_CONFIG, ./formula.yaml,
                            ~/.config/formula/formula.yaml)
  --strict                  Missing columns, wrong arity and division by zero are errors
  --trace                   Log every evaluation
  -h, --help                Show this help message
  -V, --version             Show version information

Exit codes:
  0  success
  1  evaluation or validation failed
  2  usage error

Examples:
  formula -e "1 + 2"                                  3
  formula -e "{price} * {qty}" -c '{"price":2,"qty":3}'   6
  formula -e "UPPER(\"abc\")"                         "ABC"
  formula --check "sum({a}, {b})" "sum({a}"
  formula describe functions
  formula describe --md dateDiff
`, Version)
}

// loadConfig loads the config file, falling back to defaults when none
// was asked for and none exists.
func loadConfig(path string, getenv func(string) string) (*config.Config, error) {
	cfg, err := config.Load(path, getenv)
	if errors.Is(err, config.ErrNoConfig) {
		return config.Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// parseContext decodes a JSON object into an evaluation record
func parseContext(data string) (evaluator.Context, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	return evaluator.NewContext(values), nil
}

// evalCommand evaluates one formula against record
func evalCommand(engine *formula.Engine, code string, record evaluator.Context, returnType string, jsonOutput bool, stdout, stderr io.Writer) error {
	v, err := engine.EvalAs(code, record, returnType)

	if jsonOutput {
		out := map[string]any{"valid": err == nil}
		if err != nil {
			out["error"] = err.Error()
			if ferr, ok := asFormulaError(err); ok {
				out["details"] = ferr
			}
		} else {
			out["value"] = evaluator.ToJSONValue(v)
			out["type"] = evaluator.TypeName(v)
		}
		if werr := writeJSON(stdout, out); werr != nil {
			return werr
		}
		if err != nil {
			return errReported
		}
		return nil
	}

	if err != nil {
		printFormulaError(stderr, err)
		return errReported
	}
	if t, ok := v.(*evaluator.Text); ok {
		fmt.Fprintln(stdout, ast.QuoteString(t.Value))
	} else {
		fmt.Fprintln(stdout, v.Inspect())
	}
	return nil
}

// checkCommand validates each formula without evaluating it
func checkCommand(formulas []string, jsonOutput bool, stdout, stderr io.Writer) error {
	hasErrors := false
	results := make([]analysis.Result, len(formulas))

	for i, f := range formulas {
		results[i] = analysis.Validate(f)
		if !results[i].Valid {
			hasErrors = true
			if !jsonOutput {
				fmt.Fprintf(stderr, "%s\n", results[i].Err.WithFormula(f).PrettyString())
			}
		} else if !jsonOutput {
			fmt.Fprintf(stdout, "ok: %s\n", f)
		}
	}

	if jsonOutput {
		if err := writeJSON(stdout, results); err != nil {
			return err
		}
	}
	if hasErrors {
		return errReported
	}
	return nil
}

// describeCommand implements the 'formula describe <topic>' subcommand
func describeCommand(args []string, stdout io.Writer) error {
	format := "text"
	search := false
	var words []string

	for _, arg := range args {
		switch arg {
		case "--json":
			format = "json"
		case "--md", "--markdown":
			format = "md"
		case "--html":
			format = "html"
		case "--search", "-s":
			search = true
		default:
			if strings.HasPrefix(arg, "-") && !search {
				return usagef("describe: unknown flag %s", arg)
			}
			words = append(words, arg)
		}
	}

	if search {
		query := strings.Join(words, " ")
		if strings.TrimSpace(query) == "" {
			return usagef("describe --search needs search words")
		}
		results, err := help.Search(query, 10)
		if err != nil {
			return err
		}
		if format == "json" {
			return writeJSON(stdout, results)
		}
		io.WriteString(stdout, help.FormatSearchText(query, results))
		return nil
	}

	if len(words) == 0 {
		return usagef(`describe needs a topic

Topics:
  functions          List every function by category
  math, string, date, logical
                     List the functions of one category
  operators          List the operators
  types              List the value types
  errors             List the error codes
  <function>         Help for one function (sum, dateDiff, ...)
  <code>             Help for one error code (PARSE-0001, ...)

Or search every topic with: formula describe --search <words>`)
	}
	if len(words) > 1 {
		return usagef("describe takes one topic, got %d", len(words))
	}

	result, err := help.DescribeTopic(words[0])
	if err != nil {
		return err
	}

	switch format {
	case "json":
		data, err := help.FormatJSON(result)
		if err != nil {
			return fmt.Errorf("formatting JSON: %w", err)
		}
		fmt.Fprintln(stdout, string(data))
	case "md":
		io.WriteString(stdout, help.FormatMarkdown(result))
	case "html":
		html, err := help.FormatHTML(result)
		if err != nil {
			return err
		}
		io.WriteString(stdout, html)
	default:
		io.WriteString(stdout, help.FormatText(result, 80))
	}
	return nil
}

// batchFlags parses the flags shared by batch and watch
func batchFlags(name string, args []string) (configPath string, jsonOutput bool, err error) {
	flags := flag.NewFlagSet("formula "+name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	path := flags.String("config", "", "Path to config file")
	asJSON := flags.Bool("json", false, "Print results as JSON")

	if err := flags.Parse(args); err != nil {
		return "", false, usagef("%s: %v", name, err)
	}
	if flags.NArg() > 0 {
		return "", false, usagef("%s: unexpected argument %q", name, flags.Arg(0))
	}
	return *path, *asJSON, nil
}

// batchCommand evaluates every configured formula for every row
func batchCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	configPath, jsonOutput, err := batchFlags("batch", args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	for _, warning := range config.Warnings(cfg) {
		fmt.Fprintf(stderr, "warning: %s\n", warning)
	}

	return runBatch(ctx, cfg, jsonOutput, stdout, stderr)
}

// runBatch validates the configured formulas, reads the rows and prints
// the computed columns of each.
func runBatch(ctx context.Context, cfg *config.Config, jsonOutput bool, stdout, stderr io.Writer) error {
	logger, closer, err := formula.LoggerFromConfig(cfg.Logging, stdout, stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	engine, err := formula.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	if problems := analysis.ValidateRegistry(engine.Registry()); len(problems) > 0 {
		fatal := false
		for _, p := range problems {
			// Undeclared or unused dependencies and a missing return type
			// are reported without stopping the batch.
			switch p.Code {
			case ferrors.CodeUnusedDependency, ferrors.CodeMissingDependency, ferrors.CodeMissingReturnType:
				fmt.Fprintf(stderr, "warning: %s: %s\n", p.Formula, p.Message)
			default:
				fatal = true
				fmt.Fprintln(stderr, p.PrettyString())
			}
		}
		if fatal {
			return errReported
		}
	}

	rows, err := loadRows(ctx, cfg)
	if err != nil {
		return err
	}

	results, failed := engine.EvaluateRows(rows)

	if jsonOutput {
		if err := writeJSON(stdout, results); err != nil {
			return err
		}
	} else {
		names := engine.Registry().Names()
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(stdout, "row %d: error: %v\n", r.Index, r.Err)
				continue
			}
			parts := make([]string, len(names))
			for i, name := range names {
				parts[i] = fmt.Sprintf("%s=%s", name, r.Values[name].Inspect())
			}
			fmt.Fprintf(stdout, "row %d: %s\n", r.Index, strings.Join(parts, " "))
		}
	}

	if failed > 0 {
		fmt.Fprintf(stderr, "%d of %d rows failed\n", failed, len(results))
		return errReported
	}
	return nil
}

// loadRows reads the configured rows, or the sample record when no row
// source is configured.
func loadRows(ctx context.Context, cfg *config.Config) ([]evaluator.Context, error) {
	if cfg.Rows.Driver == "" {
		return []evaluator.Context{cfg.SampleContext()}, nil
	}

	src, err := source.Open(cfg.Rows)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return rows, nil
}

// watchCommand runs the batch, then again each time the config or the
// rows file changes, until interrupted.
func watchCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	configPath, jsonOutput, err := batchFlags("watch", args)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, resolved, err := config.LoadWithPath(configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	rerun := func(c *config.Config) {
		if err := runBatch(ctx, c, jsonOutput, stdout, stderr); err != nil && !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	}

	w, err := config.NewWatcher(cfg, resolved, getenv, rerun, stdout, stderr)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	rerun(cfg)
	if err := w.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func asFormulaError(err error) (*ferrors.FormulaError, bool) {
	var ferr *ferrors.FormulaError
	ok := errors.As(err, &ferr)
	return ferr, ok
}

// printFormulaError prints an error with structured formatting
func printFormulaError(w io.Writer, err error) {
	if ferr, ok := asFormulaError(err); ok {
		fmt.Fprintln(w, ferr.PrettyString())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// writeJSON writes v as indented JSON without escaping HTML characters
func writeJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("formatting JSON: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
