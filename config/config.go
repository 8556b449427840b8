// Package config loads the YAML configuration read by the formula CLI:
// engine settings, logging, formula definitions, a sample record and the
// row source used for batch evaluation.
package config

import (
	"fmt"
	"time"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/registry"
	"golang.org/x/text/language"
)

// Config represents the complete formula configuration
type Config struct {
	BaseDir  string                `yaml:"-"` // Directory containing config file, for resolving relative paths
	Engine   EngineConfig          `yaml:"engine"`
	Logging  LoggingConfig         `yaml:"logging"`
	Formulas []registry.Definition `yaml:"formulas"`
	Sample   map[string]any        `yaml:"sample"` // Record used for type inference and as the REPL context
	Rows     RowsConfig            `yaml:"rows"`
}

// EngineConfig holds evaluation settings
type EngineConfig struct {
	Locale         string `yaml:"locale"`          // BCP 47 tag for upper/lower and month names (default: "en-US")
	Timezone       string `yaml:"timezone"`        // IANA zone dates are read and rendered in (default: "UTC")
	StrictColumns  bool   `yaml:"strict_columns"`  // Missing columns are errors instead of null
	StrictArity    bool   `yaml:"strict_arity"`    // Wrong argument counts are errors
	StrictDivision bool   `yaml:"strict_division"` // Division by zero is an error instead of Infinity/NaN
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Format string `yaml:"format"` // "text" or "json"
	Output string `yaml:"output"` // "stderr", "stdout", or file path
	Quiet  bool   `yaml:"quiet"`  // Suppress informational output
	Trace  bool   `yaml:"trace"`  // Log every evaluation and batch order
}

// RowsConfig selects where batch rows come from
type RowsConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres", "mysql" or "json"
	DSN    string `yaml:"dsn"`    // Connection string for SQL drivers
	Query  string `yaml:"query"`  // SELECT producing one record per row
	File   string `yaml:"file"`   // JSON file holding an array of objects
}

// Defaults returns a Config with sensible default values
func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Locale:   "en-US",
			Timezone: "UTC",
		},
		Logging: LoggingConfig{
			Format: "text",
			Output: "stderr",
		},
	}
}

// Location loads the configured time zone.
func (e EngineConfig) Location() (*time.Location, error) {
	if e.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", e.Timezone, err)
	}
	return loc, nil
}

// Options converts the engine settings into evaluator options.
func (e EngineConfig) Options() ([]evaluator.Option, error) {
	loc, err := e.Location()
	if err != nil {
		return nil, err
	}
	if e.Locale != "" {
		if _, err := language.Parse(e.Locale); err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", e.Locale, err)
		}
	}

	opts := []evaluator.Option{
		evaluator.WithLocation(loc),
		evaluator.WithStrictColumns(e.StrictColumns),
		evaluator.WithStrictArity(e.StrictArity),
		evaluator.WithStrictDivision(e.StrictDivision),
	}
	if e.Locale != "" {
		opts = append(opts, evaluator.WithLocale(e.Locale))
	}
	return opts, nil
}

// Registry builds a formula registry holding every configured formula.
// Extra options are applied after the engine settings.
func (c *Config) Registry(extra ...evaluator.Option) (*registry.Registry, error) {
	opts, err := c.Engine.Options()
	if err != nil {
		return nil, err
	}
	r := registry.New(append(opts, extra...)...)
	for _, def := range c.Formulas {
		r.Add(def)
	}
	return r, nil
}

// SampleContext returns the sample record as an evaluation context.
func (c *Config) SampleContext() evaluator.Context {
	return evaluator.NewContext(c.Sample)
}
