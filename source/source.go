// Package source reads the records a formula batch runs over, from a SQL
// query or a JSON file. Sources only read.
package source

import (
	"context"
	"fmt"

	"github.com/jamsmac/data-parse-desk-sub000/config"
	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
)

// Source yields the records of a batch in order.
type Source interface {
	Rows(ctx context.Context) ([]evaluator.Context, error)
	Close() error
}

// Open returns the source described by cfg.
func Open(cfg config.RowsConfig) (Source, error) {
	switch cfg.Driver {
	case "sqlite", "postgres", "mysql":
		return OpenSQL(cfg.Driver, cfg.DSN, cfg.Query)
	case "json":
		return OpenJSONFile(cfg.File), nil
	case "":
		return nil, fmt.Errorf("no row source configured")
	default:
		return nil, fmt.Errorf("unknown row source driver %q", cfg.Driver)
	}
}
