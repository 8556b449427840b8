package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jamsmac/data-parse-desk-sub000/pkg/formula/evaluator"
)

// JSONSource reads a JSON array of objects, one record per object.
type JSONSource struct {
	path string
	data []byte
}

// OpenJSONFile reads records from the file at path. The file is read on
// every call to Rows so edits are picked up.
func OpenJSONFile(path string) *JSONSource {
	return &JSONSource{path: path}
}

// NewJSONSource reads records from r once.
func NewJSONSource(r io.Reader) (*JSONSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return &JSONSource{data: data}, nil
}

// Rows decodes the records. Numbers keep full precision until they are
// converted to formula numbers.
func (s *JSONSource) Rows(ctx context.Context) ([]evaluator.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := s.data
	if s.path != "" {
		var err error
		data, err = os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rows: %w", err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var objects []map[string]any
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("rows must be a JSON array of objects: %w", err)
	}

	records := make([]evaluator.Context, len(objects))
	for i, obj := range objects {
		records[i] = evaluator.NewContext(obj)
	}
	return records, nil
}

// Close does nothing; the file is not held open.
func (s *JSONSource) Close() error {
	return nil
}
