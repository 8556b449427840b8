package evaluator

import (
	"strings"
	"time"

	ferrors "github.com/jamsmac/data-parse-desk-sub000/pkg/formula/errors"
)

// Result types a formula column can declare.
const (
	ResultNumber  = "number"
	ResultText    = "text"
	ResultBoolean = "boolean"
	ResultDate    = "date"
)

// ResultTypes lists the accepted cast targets.
var ResultTypes = []string{ResultNumber, ResultText, ResultBoolean, ResultDate}

// CastResult coerces an evaluation result to a declared column type.
// Null stays null for every target; a date that cannot be read becomes
// null. An unknown target is an error.
func CastResult(v Value, target string) (Value, error) {
	target = strings.ToLower(strings.TrimSpace(target))

	if v == nil {
		v = NULL
	}

	switch target {
	case ResultNumber, ResultText, ResultBoolean, ResultDate:
	default:
		return nil, ferrors.New(ferrors.CodeUnsupportedCast, map[string]any{"Target": target})
	}

	if v.Type() == NULL_VAL {
		return NULL, nil
	}

	switch target {
	case ResultNumber:
		return &Number{Value: ToNumber(v)}, nil
	case ResultText:
		return &Text{Value: ToText(v)}, nil
	case ResultBoolean:
		return nativeBoolToBooleanValue(IsTruthy(v)), nil
	default:
		t, ok := toTime(castEnvironment, v)
		if !ok {
			return NULL, nil
		}
		return &Date{Value: t}, nil
	}
}

// castEnvironment reads text dates as UTC.
var castEnvironment = &Environment{Location: time.UTC}
