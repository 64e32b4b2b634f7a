package table

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrSchemaMismatch is returned when a requested column does not exist in a table.
var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaMismatchError names every column a projection asked for that the source lacks.
type SchemaMismatchError struct {
	Dataset string
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: columns not in source: %s", e.Dataset, strings.Join(e.Missing, ", "))
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// Row holds one record. A nil cell is a null value.
type Row []*string

// Table is an in-memory set of string-valued rows sharing one header.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given header.
func New(name string, columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}
}

// Str returns a pointer to s, for building rows by hand.
func Str(s string) *string {
	return &s
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the table has every named column.
func (t *Table) Has(names ...string) bool {
	for _, n := range names {
		if t.Index(n) < 0 {
			return false
		}
	}
	return true
}

// Require fails with a *SchemaMismatchError if any named column is absent.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if t.Index(n) < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &SchemaMismatchError{Dataset: t.Name, Missing: missing}
	}
	return nil
}

// Append adds a row. The row length must match the header.
func (t *Table) Append(row Row) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("%s: row has %d fields, header has %d", t.Name, len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// AddColumn appends a column whose value for row i is fn(i).
func (t *Table) AddColumn(name string, fn func(i int) *string) error {
	if t.Index(name) >= 0 {
		return fmt.Errorf("%s: column %q already exists", t.Name, name)
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], fn(i))
	}
	return nil
}

// Transform replaces every value of column name with fn(value) in place.
// The first error from fn stops the transform and is returned with the row number.
func (t *Table) Transform(name string, fn func(v *string) (*string, error)) error {
	idx := t.Index(name)
	if idx < 0 {
		return &SchemaMismatchError{Dataset: t.Name, Missing: []string{name}}
	}
	for i, row := range t.Rows {
		v, err := fn(row[idx])
		if err != nil {
			return fmt.Errorf("%s: column %s row %d: %w", t.Name, name, i+1, err)
		}
		row[idx] = v
	}
	return nil
}

// Projection maps an output column to the source column it is read from.
type Projection struct {
	Name   string
	Source string
}

// Select returns a new table named name holding exactly the requested columns, in order.
// Every missing source column is reported at once.
func (t *Table) Select(name string, cols []Projection) (*Table, error) {
	idx := make([]int, len(cols))
	var missing []string
	for i, c := range cols {
		src := c.Source
		if src == "" {
			src = c.Name
		}
		idx[i] = t.Index(src)
		if idx[i] < 0 {
			missing = append(missing, src)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Dataset: name, Missing: missing}
	}

	out := &Table{Name: name, Columns: make([]string, len(cols)), Rows: make([]Row, 0, len(t.Rows))}
	for i, c := range cols {
		out.Columns[i] = c.Name
	}
	for _, row := range t.Rows {
		r := make(Row, len(idx))
		for i, j := range idx {
			r[i] = row[j]
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// SelectNames is Select with output names equal to source names.
func (t *Table) SelectNames(name string, cols ...string) (*Table, error) {
	p := make([]Projection, len(cols))
	for i, c := range cols {
		p[i] = Projection{Name: c}
	}
	return t.Select(name, p)
}

// Filter returns a copy of t holding only the rows whose value in column name satisfies keep.
// Header and rows are copied, so changing the result leaves t untouched.
func (t *Table) Filter(name string, keep func(v *string) bool) (*Table, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, &SchemaMismatchError{Dataset: t.Name, Missing: []string{name}}
	}
	out := &Table{Name: t.Name, Columns: slices.Clone(t.Columns)}
	for _, row := range t.Rows {
		if keep(row[idx]) {
			out.Rows = append(out.Rows, slices.Clone(row))
		}
	}
	return out, nil
}

// Equals returns a Filter predicate matching non-null values equal to want.
func Equals(want string) func(v *string) bool {
	return func(v *string) bool {
		return v != nil && *v == want
	}
}
