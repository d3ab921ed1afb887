package models

// Record is a single tabular row with a stable column order.
type Record struct {
	cols []string
	vals map[string]any
}

// Schema is the ordered column set a trained pipeline expects.
// A nil Schema means the column list is not available.
type Schema []string

// NewRecord creates an empty record with room for n columns.
func NewRecord(n int) *Record {
	return &Record{
		cols: make([]string, 0, n),
		vals: make(map[string]any, n),
	}
}

// Set assigns a value, appending the column on first use.
func (r *Record) Set(col string, v any) {
	if _, ok := r.vals[col]; !ok {
		r.cols = append(r.cols, col)
	}
	r.vals[col] = v
}

// Get returns the raw value of a column.
func (r *Record) Get(col string) (any, bool) {
	v, ok := r.vals[col]
	return v, ok
}

// Has reports whether the column exists.
func (r *Record) Has(col string) bool {
	_, ok := r.vals[col]
	return ok
}

// Len returns the number of columns.
func (r *Record) Len() int { return len(r.cols) }

// Columns returns a copy of the column names in order.
func (r *Record) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// Values returns the values in column order.
func (r *Record) Values() []any {
	out := make([]any, len(r.cols))
	for i, c := range r.cols {
		out[i] = r.vals[c]
	}
	return out
}

// Int returns an integer column, or 0 when absent or non-numeric.
func (r *Record) Int(col string) int {
	switch v := r.vals[col].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Float returns a numeric column as float64, or 0 when absent.
func (r *Record) Float(col string) float64 {
	switch v := r.vals[col].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// String returns a string column, or "" when absent.
func (r *Record) String(col string) string {
	s, _ := r.vals[col].(string)
	return s
}
