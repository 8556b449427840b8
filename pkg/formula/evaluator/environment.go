package evaluator

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Clock interface provides time functionality for testing
type Clock interface {
	Now() time.Time
}

// WallClock is the default implementation using system time
type WallClock struct{}

func (w *WallClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant.
type FixedClock struct {
	Time time.Time
}

func (f *FixedClock) Now() time.Time {
	return f.Time
}

// Logger interface for evaluation tracing
type Logger interface {
	Log(values ...interface{})
	LogLine(values ...interface{})
}

type nullLogger struct{}

func (nullLogger) Log(values ...interface{})     {}
func (nullLogger) LogLine(values ...interface{}) {}

// Environment holds the settings one evaluation runs with. It carries no
// variable bindings: formulas read only from the Context.
type Environment struct {
	Clock          Clock
	Location       *time.Location
	Locale         string
	StrictColumns  bool
	StrictArity    bool
	StrictDivision bool
	Logger         Logger

	tag language.Tag
}

// Option configures an Environment.
type Option func(*Environment)

// WithClock sets the clock read by now() and today().
func WithClock(c Clock) Option {
	return func(env *Environment) { env.Clock = c }
}

// WithLocation sets the time zone used to read and render dates.
func WithLocation(loc *time.Location) Option {
	return func(env *Environment) {
		if loc != nil {
			env.Location = loc
		}
	}
}

// WithLocale sets the locale used by upper(), lower() and formatDate().
func WithLocale(locale string) Option {
	return func(env *Environment) { env.Locale = locale }
}

// WithStrictColumns makes a reference to a missing column an error
// instead of null.
func WithStrictColumns(strict bool) Option {
	return func(env *Environment) { env.StrictColumns = strict }
}

// WithStrictArity makes calling a function with the wrong number of
// arguments an error.
func WithStrictArity(strict bool) Option {
	return func(env *Environment) { env.StrictArity = strict }
}

// WithStrictDivision makes division and remainder by zero an error
// instead of Infinity or NaN.
func WithStrictDivision(strict bool) Option {
	return func(env *Environment) { env.StrictDivision = strict }
}

// WithLogger sets the logger that receives evaluation traces.
func WithLogger(l Logger) Option {
	return func(env *Environment) {
		if l != nil {
			env.Logger = l
		}
	}
}

// NewEnvironment builds an Environment with lenient defaults: wall clock,
// UTC, en-US.
func NewEnvironment(opts ...Option) *Environment {
	env := &Environment{
		Clock:    &WallClock{},
		Location: time.UTC,
		Locale:   "en-US",
		Logger:   nullLogger{},
	}
	for _, opt := range opts {
		opt(env)
	}

	tag, err := language.Parse(env.Locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	env.tag = tag

	return env
}

// LanguageTag returns the parsed locale.
func (env *Environment) LanguageTag() language.Tag {
	return env.tag
}

// now returns the current instant in the environment's location.
func (env *Environment) now() time.Time {
	return env.Clock.Now().In(env.Location)
}

func (env *Environment) trace(format string, a ...any) {
	env.Logger.LogLine(fmt.Sprintf(format, a...))
}
