package registry

import (
	stderrors "errors"
	"strings"
	"testing"

	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Log(values ...interface{}) {}
func (l *recordingLogger) LogLine(values ...interface{}) {
	for _, v := range values {
		l.lines = append(l.lines, v.(string))
	}
}

func number(t *testing.T, v evaluator.Value) float64 {
	t.Helper()
	n, ok := v.(*evaluator.Number)
	if !ok {
		t.Fatalf("expected NUMBER, got %s (%s)", v.Type(), v.Inspect())
	}
	return n.Value
}

func TestEvaluateAllInDependencyOrder(t *testing.T) {
	r := New()
	r.Define("total2", "{total1} * 1.05", "{total1}")
	r.Define("total1", "{price} * {quantity}", "{price}", "{quantity}")

	ctx := evaluator.NewContext(map[string]any{"price": 100, "quantity": 2})
	results, err := r.EvaluateAll(ctx)
	if err != nil {
		t.Fatalf("EvaluateAll error: %v", err)
	}

	if got := number(t, results["total1"]); got != 200 {
		t.Errorf("total1 = %v, want 200", got)
	}
	if got := number(t, results["total2"]); got != 210 {
		t.Errorf("total2 = %v, want 210", got)
	}
	if len(results) != 2 {
		t.Errorf("results has %d entries, want 2", len(results))
	}
	if _, ok := ctx["total1"]; ok {
		t.Error("EvaluateAll modified the caller's context")
	}
}

func TestCircularDependency(t *testing.T) {
	r := New()
	r.Define("A", "{B} + 1", "{B}")
	r.Define("B", "{A} + 1", "{A}")

	results, err := r.EvaluateAll(evaluator.NewContext(nil))
	if err == nil {
		t.Fatal("expected a circular dependency error")
	}
	if results != nil {
		t.Errorf("results = %v, want nil", results)
	}
	if !ferrors.Is(err, ferrors.CodeCircularDependency) {
		t.Fatalf("code = %q, want %q", ferrors.CodeOf(err), ferrors.CodeCircularDependency)
	}
	if !strings.Contains(strings.ToLower(err.Error()), "circular dependency detected") {
		t.Errorf("message = %q", err.Error())
	}
	if !strings.Contains(err.Error(), "A -> B -> A") {
		t.Errorf("message %q does not name the cycle", err.Error())
	}

	if _, err := r.Order(); !ferrors.Is(err, ferrors.CodeCircularDependency) {
		t.Errorf("Order() error = %v, want a cycle", err)
	}
}

func TestSelfDependency(t *testing.T) {
	r := New()
	r.Define("x", "x + 1", "x")

	_, err := r.EvaluateAll(nil)
	if !ferrors.Is(err, ferrors.CodeCircularDependency) {
		t.Fatalf("error = %v, want a cycle", err)
	}
	if !strings.Contains(err.Error(), "x -> x") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestLongerCycleNamesOnlyTheLoop(t *testing.T) {
	r := New()
	r.Define("entry", "1", "a")
	r.Define("a", "1", "b")
	r.Define("b", "1", "c")
	r.Define("c", "1", "a")

	_, err := r.EvaluateAll(nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "a -> b -> c -> a") {
		t.Errorf("message = %q", err.Error())
	}
	if strings.Contains(err.Error(), "entry ->") {
		t.Errorf("message %q includes the path into the cycle", err.Error())
	}
}

func TestFailureReturnsNoPartialResults(t *testing.T) {
	r := New()
	r.Define("ok", "1 + 1")
	r.Define("broken", "sum(1, ")

	results, err := r.EvaluateAll(nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if results != nil {
		t.Errorf("results = %v, want nil", results)
	}

	var ferr *ferrors.FormulaError
	if !stderrors.As(err, &ferr) || ferr.Formula != "broken" {
		t.Errorf("error %v is not attributed to broken", err)
	}
	if !ferrors.Is(err, ferrors.CodeUnexpectedEndOfInput) {
		t.Errorf("code = %q, want %q", ferrors.CodeOf(err), ferrors.CodeUnexpectedEndOfInput)
	}
}

func TestUndeclaredDependencyStillReadsContext(t *testing.T) {
	r := New()
	r.Define("double", "base * 2", "base")

	results, err := r.EvaluateAll(evaluator.NewContext(map[string]any{"base": 21}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := number(t, results["double"]); got != 42 {
		t.Errorf("double = %v, want 42", got)
	}
}

func TestUnorderedReferenceReadsMissingValue(t *testing.T) {
	// later reads earlier without declaring it, so ordering is by definition only
	r := New()
	r.Define("later", "isNull(earlier)")
	r.Define("earlier", "1")

	results, err := r.EvaluateAll(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, ok := results["later"].(*evaluator.Boolean); !ok || !b.Value {
		t.Errorf("later = %s, want true", results["later"].Inspect())
	}
}

func TestEvaluateSingleFormula(t *testing.T) {
	r := New()
	r.Define("subtotal", "price * qty", "price", "qty")
	r.Define("total", "subtotal + shipping", "subtotal")
	r.Define("unrelated", "sum(")

	ctx := evaluator.NewContext(map[string]any{"price": 5, "qty": 3, "shipping": 4})
	v, err := r.Evaluate("total", ctx)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if got := number(t, v); got != 19 {
		t.Errorf("total = %v, want 19", got)
	}

	_, err = r.Evaluate("nope", ctx)
	if !ferrors.Is(err, ferrors.CodeUndefinedFormula) {
		t.Errorf("Evaluate(nope) error = %v, want %s", err, ferrors.CodeUndefinedFormula)
	}
}

func TestReturnTypeCast(t *testing.T) {
	r := New()
	r.DefineWithType("label", "price * 2", "TEXT", "price")
	r.DefineWithType("flag", "price", "boolean", "price")
	r.DefineWithType("due", `"2024-03-15"`, "date")

	results, err := r.EvaluateAll(evaluator.NewContext(map[string]any{"price": 2.5}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := results["label"].(*evaluator.Text); !ok || v.Value != "5" {
		t.Errorf("label = %s, want text 5", results["label"].Inspect())
	}
	if v, ok := results["flag"].(*evaluator.Boolean); !ok || !v.Value {
		t.Errorf("flag = %s, want true", results["flag"].Inspect())
	}
	if results["due"].Type() != evaluator.DATE_VAL {
		t.Errorf("due = %s, want a date", results["due"].Inspect())
	}

	r.DefineWithType("bad", "1", "currency")
	if _, err := r.EvaluateAll(nil); !ferrors.Is(err, ferrors.CodeUnsupportedCast) {
		t.Errorf("error = %v, want %s", err, ferrors.CodeUnsupportedCast)
	}
}

func TestDefineReplaceAndRemove(t *testing.T) {
	r := New()
	r.Define("a", "1")
	r.Define("b", "2", "{a}", " a ", "")
	r.Define("c", "3")

	if deps := r.DependenciesOf("b"); len(deps) != 1 || deps[0] != "a" {
		t.Errorf("DependenciesOf(b) = %v, want [a]", deps)
	}
	if deps := r.DependenciesOf("zzz"); deps == nil || len(deps) != 0 {
		t.Errorf("DependenciesOf(zzz) = %#v, want empty", deps)
	}

	r.Define("a", "10", "c")
	if names := r.Names(); strings.Join(names, ",") != "a,b,c" {
		t.Errorf("Names() = %v, want [a b c]", names)
	}
	def, ok := r.Get("a")
	if !ok || def.Expression != "10" || len(def.Dependencies) != 1 {
		t.Errorf("Get(a) = %+v, %v", def, ok)
	}

	order, err := r.Order()
	if err != nil {
		t.Fatalf("Order error: %v", err)
	}
	if strings.Join(order, ",") != "c,a,b" {
		t.Errorf("Order() = %v, want [c a b]", order)
	}

	results, err := r.EvaluateAll(nil)
	if err != nil {
		t.Fatalf("EvaluateAll error: %v", err)
	}
	if got := number(t, results["a"]); got != 10 {
		t.Errorf("a = %v, want 10 after redefinition", got)
	}

	r.Remove("a")
	r.Remove("not-there")
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	if _, ok := r.Get("a"); ok {
		t.Error("a still defined after Remove")
	}
	if _, err := r.EvaluateAll(nil); err != nil {
		t.Errorf("dangling dependency should read as a column: %v", err)
	}
}

func TestRegistryTracing(t *testing.T) {
	logger := &recordingLogger{}
	r := New(evaluator.WithLogger(logger))
	r.Define("a", "1 + 1")
	r.Define("b", "a * 3", "a")

	if _, err := r.EvaluateAll(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(logger.lines, "\n")
	for _, want := range []string{"[formula] a = 2", "[formula] b = 6", "[formula] evaluation order: a, b"} {
		if !strings.Contains(joined, want) {
			t.Errorf("trace missing %q:\n%s", want, joined)
		}
	}
}

func TestRegistryStrictOptions(t *testing.T) {
	r := New(evaluator.WithStrictColumns(true))
	r.Define("a", "pirce * 2")

	_, err := r.EvaluateAll(evaluator.NewContext(map[string]any{"price": 1}))
	if !ferrors.Is(err, ferrors.CodeUnknownColumn) {
		t.Fatalf("error = %v, want %s", err, ferrors.CodeUnknownColumn)
	}
}
