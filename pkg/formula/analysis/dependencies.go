package analysis

import (
	"strings"

	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/registry"
)

// CheckDependencies compares the declared dependencies of a formula with
// the columns it actually reads. unused lists declared names the formula
// never reads; missing lists columns it reads without declaring them.
func CheckDependencies(source string, declared []string) (unused, missing []string) {
	used := ExtractColumnReferences(source)
	declared = registry.NormalizeDependencies(declared)

	usedSet := make(map[string]bool, len(used))
	for _, name := range used {
		usedSet[name] = true
	}
	declaredSet := make(map[string]bool, len(declared))
	for _, name := range declared {
		declaredSet[name] = true
	}

	unused, missing = []string{}, []string{}
	for _, name := range declared {
		if !usedSet[name] {
			unused = append(unused, name)
		}
	}
	for _, name := range used {
		if !declaredSet[name] && !isBatchVar(name) {
			missing = append(missing, name)
		}
	}
	return unused, missing
}

// isBatchVar reports whether name is one of the row batch variables every
// formula may read without declaring it.
func isBatchVar(name string) bool {
	return name == evaluator.IndexVar || name == evaluator.CountVar || name == evaluator.RowsVar
}

// ValidateDefinition checks a whole formula definition: the expression, the
// declared return type and the declared dependencies. An empty dependency
// list is not checked. Every problem is reported.
func ValidateDefinition(def registry.Definition) []*ferrors.FormulaError {
	var problems []*ferrors.FormulaError
	add := func(err *ferrors.FormulaError) {
		problems = append(problems, err.WithFormula(def.Name))
	}

	if err := Check(def.Expression); err != nil {
		add(err)
	}

	returnType := strings.ToLower(strings.TrimSpace(def.ReturnType))
	switch returnType {
	case "":
		add(ferrors.New(ferrors.CodeMissingReturnType, nil))
	case evaluator.ResultNumber, evaluator.ResultText, evaluator.ResultBoolean, evaluator.ResultDate:
	default:
		add(ferrors.New(ferrors.CodeUnsupportedCast, map[string]any{"Target": def.ReturnType}))
	}

	if len(registry.NormalizeDependencies(def.Dependencies)) > 0 {
		unused, missing := CheckDependencies(def.Expression, def.Dependencies)
		if len(unused) > 0 {
			add(ferrors.New(ferrors.CodeUnusedDependency, map[string]any{"Names": strings.Join(unused, ", ")}))
		}
		if len(missing) > 0 {
			add(ferrors.New(ferrors.CodeMissingDependency, map[string]any{"Names": strings.Join(missing, ", ")}))
		}
	}

	return problems
}

// ValidateRegistry runs ValidateDefinition over every formula in r and
// checks that the declared dependencies form no cycle.
func ValidateRegistry(r *registry.Registry) []*ferrors.FormulaError {
	var problems []*ferrors.FormulaError
	for _, def := range r.Definitions() {
		problems = append(problems, ValidateDefinition(def)...)
	}
	if _, err := r.Order(); err != nil {
		problems = append(problems, toFormulaError(err))
	}
	return problems
}
