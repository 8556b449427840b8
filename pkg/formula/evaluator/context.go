package evaluator

import "sort"

// Row batch variables available to every formula evaluated by a batch.
const (
	IndexVar = "_index"
	CountVar = "_count"
	RowsVar  = "_rows"
)

// Context maps column names to the values of the record being evaluated.
// The engine only reads it.
type Context map[string]Value

// NewContext builds a Context from native Go values.
func NewContext(values map[string]any) Context {
	ctx := make(Context, len(values))
	for k, v := range values {
		ctx[k] = FromGo(v)
	}
	return ctx
}

// Get returns the value of a column and whether it is present.
func (c Context) Get(name string) (Value, bool) {
	v, ok := c[name]
	if ok && v == nil {
		return NULL, true
	}
	return v, ok
}

// Columns returns the column names in sorted order.
func (c Context) Columns() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy that can be extended without touching c.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// With returns a copy of c with name bound to v.
func (c Context) With(name string, v Value) Context {
	out := c.Clone()
	out[name] = v
	return out
}

// WithRowBatch returns a copy of c carrying the row's position in its batch
// and the batch itself as a list of records.
func (c Context) WithRowBatch(index, count int, rows []Context) Context {
	out := c.Clone()
	out[IndexVar] = &Number{Value: float64(index)}
	out[CountVar] = &Number{Value: float64(count)}

	records := make([]Value, len(rows))
	for i, row := range rows {
		fields := make(map[string]Value, len(row))
		for k, v := range row {
			fields[k] = v
		}
		records[i] = &Record{Fields: fields}
	}
	out[RowsVar] = &Array{Elements: records}

	return out
}
