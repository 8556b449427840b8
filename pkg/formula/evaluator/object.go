package evaluator

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ValueType represents the type tag of a runtime value
type ValueType string

const (
	NUMBER_VAL  = "NUMBER"
	TEXT_VAL    = "TEXT"
	BOOLEAN_VAL = "BOOLEAN"
	DATE_VAL    = "DATE"
	NULL_VAL    = "NULL"
	ARRAY_VAL   = "ARRAY"
	RECORD_VAL  = "RECORD"
	ERROR_VAL   = "ERROR"
)

// Value represents every value a formula can produce or read from a record
type Value interface {
	Type() ValueType
	Inspect() string
}

// Number represents all numeric values (IEEE-754 double)
type Number struct {
	Value float64
}

func (n *Number) Type() ValueType { return NUMBER_VAL }
func (n *Number) Inspect() string { return formatNumber(n.Value) }

// Text represents string values
type Text struct {
	Value string
}

func (t *Text) Type() ValueType { return TEXT_VAL }
func (t *Text) Inspect() string { return t.Value }

// Boolean represents boolean values
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ValueType { return BOOLEAN_VAL }
func (b *Boolean) Inspect() string { return strconv.FormatBool(b.Value) }

// Date represents an instant in time
type Date struct {
	Value time.Time
}

func (d *Date) Type() ValueType { return DATE_VAL }
func (d *Date) Inspect() string { return d.Value.UTC().Format(isoLayout) }

// Null represents an absent value
type Null struct{}

func (n *Null) Type() ValueType { return NULL_VAL }
func (n *Null) Inspect() string { return "null" }

// Array represents list-valued columns (for example pre-resolved rollups)
type Array struct {
	Elements []Value
}

func (a *Array) Type() ValueType { return ARRAY_VAL }
func (a *Array) Inspect() string {
	parts := make([]string, len(a.Elements))
	for i, el := range a.Elements {
		parts[i] = ToText(el)
	}
	return strings.Join(parts, ",")
}

// Record represents object-valued columns (for example a resolved relation)
type Record struct {
	Fields map[string]Value
}

func (r *Record) Type() ValueType { return RECORD_VAL }
func (r *Record) Inspect() string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(r.Fields[k].Inspect())
	}
	sb.WriteString("}")
	return sb.String()
}

// isoLayout matches the ISO-8601 form used for dates rendered as text.
const isoLayout = "2006-01-02T15:04:05.000Z"

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

func nativeBoolToBooleanValue(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

// formatNumber renders a float the way numbers print in spreadsheet cells:
// integers without a fraction, NaN and the infinities by name.
func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	case math.Abs(v) >= 1e21:
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ToNumber coerces a value to a float64. Text that is not numeric and
// values with no numeric meaning yield NaN.
func ToNumber(v Value) float64 {
	switch v := v.(type) {
	case *Number:
		return v.Value
	case *Boolean:
		if v.Value {
			return 1
		}
		return 0
	case *Null:
		return 0
	case *Text:
		return parseNumericText(v.Value)
	case *Date:
		return float64(v.Value.UnixMilli())
	case *Array:
		switch len(v.Elements) {
		case 0:
			return 0
		case 1:
			return ToNumber(v.Elements[0])
		}
	}
	return math.NaN()
}

func parseNumericText(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		if n, err := strconv.ParseInt(s, 0, 64); err == nil {
			return float64(n)
		}
		return math.NaN()
	}
	if strings.ContainsAny(lower, "_in") { // reject Go-only spellings: 1_000, inf, nan
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToText renders a value as text. Null renders as the empty string.
func ToText(v Value) string {
	switch v := v.(type) {
	case nil:
		return ""
	case *Null:
		return ""
	case *Text:
		return v.Value
	default:
		return v.Inspect()
	}
}

// IsTruthy reports the truthiness of a value: zero, NaN, empty text,
// false and null are falsy; everything else is truthy.
func IsTruthy(v Value) bool {
	switch v := v.(type) {
	case *Boolean:
		return v.Value
	case *Number:
		return v.Value != 0 && !math.IsNaN(v.Value)
	case *Text:
		return v.Value != ""
	case *Null, nil:
		return false
	default:
		return true
	}
}

// ValuesEqual compares two values without coercion: same type and equal
// payload. NaN is never equal to anything.
func ValuesEqual(a, b Value) bool {
	if a.Type() != b.Type() {
		return false
	}

	switch a := a.(type) {
	case *Number:
		return a.Value == b.(*Number).Value
	case *Text:
		return a.Value == b.(*Text).Value
	case *Boolean:
		return a.Value == b.(*Boolean).Value
	case *Date:
		return a.Value.Equal(b.(*Date).Value)
	case *Null:
		return true
	case *Array:
		other := b.(*Array)
		if len(a.Elements) != len(other.Elements) {
			return false
		}
		for i := range a.Elements {
			if !ValuesEqual(a.Elements[i], other.Elements[i]) {
				return false
			}
		}
		return true
	case *Record:
		other := b.(*Record)
		if len(a.Fields) != len(other.Fields) {
			return false
		}
		for k, v := range a.Fields {
			ov, ok := other.Fields[k]
			if !ok || !ValuesEqual(v, ov) {
				return false
			}
		}
		return true
	}
	return false
}

// FromGo converts a native Go value into a formula value.
func FromGo(v any) Value {
	switch v := v.(type) {
	case nil:
		return NULL
	case Value:
		return v
	case bool:
		return nativeBoolToBooleanValue(v)
	case string:
		return &Text{Value: v}
	case []byte:
		return &Text{Value: string(v)}
	case float64:
		return &Number{Value: v}
	case float32:
		return &Number{Value: float64(v)}
	case int:
		return &Number{Value: float64(v)}
	case int8:
		return &Number{Value: float64(v)}
	case int16:
		return &Number{Value: float64(v)}
	case int32:
		return &Number{Value: float64(v)}
	case int64:
		return &Number{Value: float64(v)}
	case uint:
		return &Number{Value: float64(v)}
	case uint8:
		return &Number{Value: float64(v)}
	case uint16:
		return &Number{Value: float64(v)}
	case uint32:
		return &Number{Value: float64(v)}
	case uint64:
		return &Number{Value: float64(v)}
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return &Text{Value: v.String()}
		}
		return &Number{Value: f}
	case time.Time:
		return &Date{Value: v}
	case *time.Time:
		if v == nil {
			return NULL
		}
		return &Date{Value: *v}
	case []any:
		elements := make([]Value, len(v))
		for i, el := range v {
			elements[i] = FromGo(el)
		}
		return &Array{Elements: elements}
	case []string:
		elements := make([]Value, len(v))
		for i, el := range v {
			elements[i] = &Text{Value: el}
		}
		return &Array{Elements: elements}
	case []float64:
		elements := make([]Value, len(v))
		for i, el := range v {
			elements[i] = &Number{Value: el}
		}
		return &Array{Elements: elements}
	case []int:
		elements := make([]Value, len(v))
		for i, el := range v {
			elements[i] = &Number{Value: float64(el)}
		}
		return &Array{Elements: elements}
	case []map[string]any:
		elements := make([]Value, len(v))
		for i, el := range v {
			elements[i] = FromGo(el)
		}
		return &Array{Elements: elements}
	case map[string]any:
		fields := make(map[string]Value, len(v))
		for k, el := range v {
			fields[k] = FromGo(el)
		}
		return &Record{Fields: fields}
	default:
		return &Text{Value: fmt.Sprint(v)}
	}
}

// ToGo converts a formula value into a native Go value: float64, string,
// bool, time.Time, nil, []any or map[string]any.
func ToGo(v Value) any {
	switch v := v.(type) {
	case *Number:
		return v.Value
	case *Text:
		return v.Value
	case *Boolean:
		return v.Value
	case *Date:
		return v.Value
	case *Array:
		out := make([]any, len(v.Elements))
		for i, el := range v.Elements {
			out[i] = ToGo(el)
		}
		return out
	case *Record:
		out := make(map[string]any, len(v.Fields))
		for k, el := range v.Fields {
			out[k] = ToGo(el)
		}
		return out
	default:
		return nil
	}
}

// ToJSONValue is ToGo with non-finite numbers rendered as text, so the
// result always survives json.Marshal.
func ToJSONValue(v Value) any {
	switch v := v.(type) {
	case *Number:
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			return formatNumber(v.Value)
		}
		return v.Value
	case *Date:
		return v.Inspect()
	case *Array:
		out := make([]any, len(v.Elements))
		for i, el := range v.Elements {
			out[i] = ToJSONValue(el)
		}
		return out
	case *Record:
		out := make(map[string]any, len(v.Fields))
		for k, el := range v.Fields {
			out[k] = ToJSONValue(el)
		}
		return out
	default:
		return ToGo(v)
	}
}

// TypeName returns the result-type name used by type inference and casts:
// number, text, boolean or date. Everything else is text.
func TypeName(v Value) string {
	switch v.(type) {
	case *Number:
		return "number"
	case *Boolean:
		return "boolean"
	case *Date:
		return "date"
	default:
		return "text"
	}
}
