package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/registry"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// The watcher needs the resolved path to know which file to follow.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data, getenv)
	if err != nil {
		return nil, "", err
	}
	cfg.BaseDir = filepath.Dir(absPath)

	// Resolve relative paths against the config file's directory
	if cfg.Rows.File != "" && !filepath.IsAbs(cfg.Rows.File) {
		cfg.Rows.File = filepath.Join(cfg.BaseDir, cfg.Rows.File)
	}
	if cfg.Rows.Driver == "sqlite" && isRelativeFilePath(cfg.Rows.DSN) {
		cfg.Rows.DSN = filepath.Join(cfg.BaseDir, cfg.Rows.DSN)
	}
	if isRelativeFilePath(cfg.Logging.Output) && cfg.Logging.Output != "stderr" && cfg.Logging.Output != "stdout" {
		cfg.Logging.Output = filepath.Join(cfg.BaseDir, cfg.Logging.Output)
	}

	return cfg, absPath, nil
}

// Parse decodes and validates configuration from YAML bytes. Relative
// paths are left as written.
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateBasic(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isRelativeFilePath reports whether s names a relative file, as opposed to
// an empty value, an absolute path, a URI or SQLite's in-memory database.
func isRelativeFilePath(s string) bool {
	if s == "" || filepath.IsAbs(s) || strings.HasPrefix(s, ":memory:") || strings.Contains(s, "://") || strings.HasPrefix(s, "file:") {
		return false
	}
	return true
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > FORMULA_CONFIG env > ./formula.yaml > ~/.config/formula/formula.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("FORMULA_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("FORMULA_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if _, err := os.Stat("formula.yaml"); err == nil {
		return "formula.yaml", nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "formula", "formula.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", ErrNoConfig
}

// ErrNoConfig is returned when no path is given and no config file exists
// in any default location.
var ErrNoConfig = errors.New("no config file found (tried FORMULA_CONFIG, formula.yaml, ~/.config/formula/formula.yaml)")

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		value := getenv(string(parts[1]))
		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

// validateBasic checks the configuration and reports every problem at once.
func validateBasic(cfg *Config) error {
	var errs []string

	// Engine validation
	if _, err := cfg.Engine.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("engine: %v", err))
	}
	if cfg.Engine.Locale != "" {
		if _, err := language.Parse(cfg.Engine.Locale); err != nil {
			errs = append(errs, fmt.Sprintf("engine: invalid locale %q", cfg.Engine.Locale))
		}
	}

	// Logging validation
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}

	// Formula validation
	seen := make(map[string]bool, len(cfg.Formulas))
	for i, f := range cfg.Formulas {
		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("formulas[%d]: name is required", i))
		} else if seen[f.Name] {
			errs = append(errs, fmt.Sprintf("formulas[%d]: duplicate name %q", i, f.Name))
		}
		seen[f.Name] = true

		if strings.TrimSpace(f.Expression) == "" {
			errs = append(errs, fmt.Sprintf("formulas[%d]: expression is required", i))
		}
		if f.ReturnType != "" && !isResultType(f.ReturnType) {
			errs = append(errs, fmt.Sprintf("formulas[%d]: return_type must be one of %s", i, strings.Join(evaluator.ResultTypes, ", ")))
		}
	}

	// Rows validation
	switch cfg.Rows.Driver {
	case "":
		if cfg.Rows.DSN != "" || cfg.Rows.Query != "" || cfg.Rows.File != "" {
			errs = append(errs, "rows: driver is required")
		}
	case "sqlite", "postgres", "mysql":
		if cfg.Rows.DSN == "" {
			errs = append(errs, fmt.Sprintf("rows: %s requires dsn", cfg.Rows.Driver))
		}
		if cfg.Rows.Query == "" {
			errs = append(errs, fmt.Sprintf("rows: %s requires query", cfg.Rows.Driver))
		}
	case "json":
		if cfg.Rows.File == "" {
			errs = append(errs, "rows: json requires file")
		}
	default:
		errs = append(errs, fmt.Sprintf("rows: unknown driver %q (supported: sqlite, postgres, mysql, json)", cfg.Rows.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func isResultType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	for _, rt := range evaluator.ResultTypes {
		if t == rt {
			return true
		}
	}
	return false
}

// Warnings returns non-fatal configuration issues that should be reported to the user.
func Warnings(cfg *Config) []string {
	var warnings []string

	if len(cfg.Formulas) == 0 {
		warnings = append(warnings, "no formulas configured - batch evaluation will produce empty results")
	}

	names := make(map[string]bool, len(cfg.Formulas))
	for _, f := range cfg.Formulas {
		names[f.Name] = true
	}
	for _, f := range cfg.Formulas {
		for _, dep := range registry.NormalizeDependencies(f.Dependencies) {
			if !names[dep] && cfg.Sample != nil {
				if _, ok := cfg.Sample[dep]; !ok {
					warnings = append(warnings, fmt.Sprintf("formula %q depends on %q, which is neither a formula nor a sample column", f.Name, dep))
				}
			}
		}
	}

	if cfg.Rows.Driver == "" && len(cfg.Formulas) > 0 && cfg.Sample == nil {
		warnings = append(warnings, "no rows or sample configured - batch evaluation will run against an empty record")
	}

	return warnings
}
