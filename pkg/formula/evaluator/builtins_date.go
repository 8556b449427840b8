package evaluator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goodsign/monday"
)

var dateParam = []Param{{Name: "date", Type: "date"}}

var dateFunctions = []*FunctionDefinition{
	{
		Name: "now", Category: CategoryDate, Returns: "date", Arity: "0",
		Description: "Returns the current date and time",
		Examples:    []string{"now() => 2024-01-01T12:00:00.000Z"},
		Fn: func(env *Environment, args []Value) Value {
			return &Date{Value: env.now()}
		},
	},
	{
		Name: "today", Category: CategoryDate, Returns: "date", Arity: "0",
		Description: "Returns today's date at midnight",
		Examples:    []string{"today() => 2024-01-01T00:00:00.000Z"},
		Fn: func(env *Environment, args []Value) Value {
			now := env.now()
			return &Date{Value: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())}
		},
	},
	{
		Name: "year", Category: CategoryDate, Returns: "number", Arity: "1", Params: dateParam,
		Description: "Returns the year of a date",
		Examples:    []string{"year({created_date}) => 2024"},
		Fn:          dateExtractor(func(t time.Time) int { return t.Year() }),
	},
	{
		Name: "month", Category: CategoryDate, Returns: "number", Arity: "1", Params: dateParam,
		Description: "Returns the month of a date, 1 to 12",
		Examples:    []string{"month({created_date}) => 1"},
		Fn:          dateExtractor(func(t time.Time) int { return int(t.Month()) }),
	},
	{
		Name: "day", Category: CategoryDate, Returns: "number", Arity: "1", Params: dateParam,
		Description: "Returns the day of the month of a date",
		Examples:    []string{"day({created_date}) => 15"},
		Fn:          dateExtractor(func(t time.Time) int { return t.Day() }),
	},
	{
		Name: "hour", Category: CategoryDate, Returns: "number", Arity: "1", Params: dateParam,
		Description: "Returns the hour of a date, 0 to 23",
		Examples:    []string{"hour({created_at}) => 14"},
		Fn:          dateExtractor(func(t time.Time) int { return t.Hour() }),
	},
	{
		Name: "minute", Category: CategoryDate, Returns: "number", Arity: "1", Params: dateParam,
		Description: "Returns the minute of a date, 0 to 59",
		Examples:    []string{"minute({created_at}) => 30"},
		Fn:          dateExtractor(func(t time.Time) int { return t.Minute() }),
	},
	{
		Name: "dateAdd", Category: CategoryDate, Returns: "date", Arity: "2",
		Params:      []Param{{Name: "date", Type: "date"}, {Name: "days", Type: "number"}},
		Description: "Adds a number of calendar days to a date",
		Examples:    []string{"dateAdd({due_date}, 7) => one week later"},
		Fn: func(env *Environment, args []Value) Value {
			t, ok := toTime(env, args[0])
			days := ToNumber(args[1])
			if !ok || math.IsNaN(days) || math.IsInf(days, 0) {
				return NULL
			}
			return &Date{Value: t.AddDate(0, 0, int(math.Trunc(days)))}
		},
	},
	{
		Name: "dateDiff", Category: CategoryDate, Returns: "number", Arity: "2-3",
		Params: []Param{
			{Name: "date1", Type: "date"},
			{Name: "date2", Type: "date"},
			{Name: "unit", Type: "string", Optional: true},
		},
		Description: "Returns date1 minus date2 in whole days, hours, minutes or seconds, rounded down",
		Examples:    []string{`dateDiff({end_date}, {start_date}) => 30`, `dateDiff({end}, {start}, "hours") => 5`},
		Fn:          builtinDateDiff,
	},
	{
		Name: "formatDate", Category: CategoryDate, Returns: "text", Arity: "1-3",
		Params: []Param{
			{Name: "date", Type: "date"},
			{Name: "format", Type: "string", Optional: true},
			{Name: "locale", Type: "string", Optional: true},
		},
		Description: "Formats a date using YYYY, MM, DD, HH, mm, ss and the month or weekday names MMMM, MMM, dddd, ddd",
		Examples:    []string{`formatDate({created_date}, "DD.MM.YYYY") => "15.01.2024"`, `formatDate({created_date}, "dddd DD MMMM", "fr") => "lundi 15 janvier"`},
		Fn:          builtinFormatDate,
	},
}

// unitMillis maps dateDiff units to their length in milliseconds.
var unitMillis = map[string]float64{
	"days":    24 * 60 * 60 * 1000,
	"hours":   60 * 60 * 1000,
	"minutes": 60 * 1000,
	"seconds": 1000,
}

// toTime coerces a value to an instant: dates as-is, numbers as epoch
// milliseconds, text through dateparse in the environment's location.
func toTime(env *Environment, v Value) (time.Time, bool) {
	switch v := v.(type) {
	case *Date:
		return v.Value.In(env.Location), true
	case *Number:
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v.Value)).In(env.Location), true
	case *Text:
		s := strings.TrimSpace(v.Value)
		if s == "" {
			return time.Time{}, false
		}
		t, err := dateparse.ParseIn(s, env.Location, dateparse.PreferMonthFirst(true))
		if err != nil {
			return time.Time{}, false
		}
		return t.In(env.Location), true
	}
	return time.Time{}, false
}

func dateExtractor(part func(time.Time) int) BuiltinFunction {
	return func(env *Environment, args []Value) Value {
		t, ok := toTime(env, args[0])
		if !ok {
			return &Number{Value: math.NaN()}
		}
		return &Number{Value: float64(part(t))}
	}
}

func builtinDateDiff(env *Environment, args []Value) Value {
	t1, ok1 := toTime(env, args[0])
	t2, ok2 := toTime(env, args[1])
	if !ok1 || !ok2 {
		return &Number{Value: math.NaN()}
	}

	unit := "days"
	if args[2].Type() != NULL_VAL {
		unit = strings.ToLower(strings.TrimSpace(ToText(args[2])))
	}
	size, ok := unitMillis[unit]
	if !ok {
		return &Number{Value: math.NaN()}
	}

	diff := float64(t1.UnixMilli() - t2.UnixMilli())
	return &Number{Value: math.Floor(diff / size)}
}

func builtinFormatDate(env *Environment, args []Value) Value {
	t, ok := toTime(env, args[0])
	if !ok {
		return NULL
	}

	format := "YYYY-MM-DD"
	if args[1].Type() != NULL_VAL {
		format = ToText(args[1])
	}

	locale := env.Locale
	if args[2].Type() != NULL_VAL {
		locale = ToText(args[2])
	}

	return &Text{Value: formatDate(t, format, getMondayLocale(locale))}
}

// dateTokens lists format tokens longest first so MMMM wins over MM.
var dateTokens = []string{"YYYY", "MMMM", "dddd", "MMM", "ddd", "MM", "DD", "HH", "mm", "ss"}

// formatDate replaces every format token in layout with the matching part
// of t. Month and weekday names are localized.
func formatDate(t time.Time, layout string, locale monday.Locale) string {
	var sb strings.Builder

	for i := 0; i < len(layout); {
		token := ""
		for _, candidate := range dateTokens {
			if strings.HasPrefix(layout[i:], candidate) {
				token = candidate
				break
			}
		}

		if token == "" {
			sb.WriteByte(layout[i])
			i++
			continue
		}

		sb.WriteString(renderDateToken(t, token, locale))
		i += len(token)
	}

	return sb.String()
}

func renderDateToken(t time.Time, token string, locale monday.Locale) string {
	switch token {
	case "YYYY":
		return fmt.Sprintf("%04d", t.Year())
	case "MM":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "DD":
		return fmt.Sprintf("%02d", t.Day())
	case "HH":
		return fmt.Sprintf("%02d", t.Hour())
	case "mm":
		return fmt.Sprintf("%02d", t.Minute())
	case "ss":
		return fmt.Sprintf("%02d", t.Second())
	case "MMMM":
		return monday.Format(t, "January", locale)
	case "MMM":
		return monday.Format(t, "Jan", locale)
	case "dddd":
		return monday.Format(t, "Monday", locale)
	case "ddd":
		return monday.Format(t, "Mon", locale)
	}
	return token
}
