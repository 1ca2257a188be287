// Package dataset provides the in-memory table model consumed by the
// preprocessing pipeline: ordered named columns, each numeric or categorical,
// with rows aligned positionally across columns.
package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
)

// ColumnType classifies a column as numeric (real-valued) or categorical.
type ColumnType int

const (
	// Numeric marks a real-valued column backed by []float64.
	Numeric ColumnType = iota
	// Categorical marks a string-valued column.
	Categorical
)

// Column is a single named column. Exactly one of Floats/Strings is populated,
// according to Type.
type Column struct {
	Name    string
	Type    ColumnType
	Floats  []float64
	Strings []string
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Type == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Type: c.Type}
	if c.Type == Numeric {
		out.Floats = make([]float64, len(c.Floats))
		copy(out.Floats, c.Floats)
	} else {
		out.Strings = make([]string, len(c.Strings))
		copy(out.Strings, c.Strings)
	}
	return out
}

// Table is an ordered collection of named columns with positionally aligned
// rows. Tables are value data for the pipeline: transforms clone before
// writing, so a table handed to Apply is never mutated in place.
type Table struct {
	columns []*Column
	index   map[string]int
	nRows   int
}

// NewTable creates an empty table. The first column added fixes the row count.
func NewTable() *Table {
	return &Table{
		index: make(map[string]int),
	}
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return t.nRows
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// ColumnNames returns the column names in their table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column, or false if it does not exist.
// The returned column shares storage with the table.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

func (t *Table) add(col *Column) error {
	if _, exists := t.index[col.Name]; exists {
		return errors.NewValueError("Table.add", "duplicate column name: "+col.Name)
	}
	if len(t.columns) == 0 {
		t.nRows = col.Len()
	} else if col.Len() != t.nRows {
		return errors.NewDimensionError("Table.add", t.nRows, col.Len(), 0)
	}
	t.index[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	return nil
}

// AddNumeric appends a numeric column. The row count must match existing columns.
func (t *Table) AddNumeric(name string, values []float64) error {
	return t.add(&Column{Name: name, Type: Numeric, Floats: values})
}

// AddCategorical appends a categorical column. The row count must match existing columns.
func (t *Table) AddCategorical(name string, values []string) error {
	return t.add(&Column{Name: name, Type: Categorical, Strings: values})
}

// SetNumeric replaces the values of an existing numeric column in place,
// or appends a new numeric column if the name is unknown.
func (t *Table) SetNumeric(name string, values []float64) error {
	i, ok := t.index[name]
	if !ok {
		return t.AddNumeric(name, values)
	}
	if len(values) != t.nRows {
		return errors.NewDimensionError("Table.SetNumeric", t.nRows, len(values), 0)
	}
	t.columns[i] = &Column{Name: name, Type: Numeric, Floats: values}
	return nil
}

// Drop removes the named column. Dropping an unknown column is a no-op.
func (t *Table) Drop(name string) {
	i, ok := t.index[name]
	if !ok {
		return
	}
	t.columns = append(t.columns[:i], t.columns[i+1:]...)
	delete(t.index, name)
	for j := i; j < len(t.columns); j++ {
		t.index[t.columns[j].Name] = j
	}
	if len(t.columns) == 0 {
		t.nRows = 0
	}
}

// Clone returns a deep copy of the table. Mutating the copy never affects
// the original.
func (t *Table) Clone() *Table {
	out := NewTable()
	for _, c := range t.columns {
		// add cannot fail here: names are unique and lengths aligned already.
		_ = out.add(c.clone())
	}
	return out
}

// Floats returns a copy of the values of a numeric column.
func (t *Table) Floats(name string) ([]float64, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, errors.NewColumnMissingError("Table.Floats", name)
	}
	if col.Type != Numeric {
		return nil, errors.NewValueError("Table.Floats", "column "+name+" is not numeric")
	}
	out := make([]float64, len(col.Floats))
	copy(out, col.Floats)
	return out, nil
}

// NumericColumnNames returns the names of all numeric columns in table order.
func (t *Table) NumericColumnNames() []string {
	var names []string
	for _, c := range t.columns {
		if c.Type == Numeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// Matrix assembles the given numeric columns, in the given order, into a
// dense row-major matrix of shape (NumRows, len(cols)).
func (t *Table) Matrix(cols []string) (*mat.Dense, error) {
	if len(cols) == 0 {
		return nil, errors.NewValueError("Table.Matrix", "no columns requested")
	}
	if t.nRows == 0 {
		return nil, errors.NewModelError("Table.Matrix", "empty table", errors.ErrEmptyData)
	}
	m := mat.NewDense(t.nRows, len(cols), nil)
	for j, name := range cols {
		col, ok := t.Column(name)
		if !ok {
			return nil, errors.NewColumnMissingError("Table.Matrix", name)
		}
		if col.Type != Numeric {
			return nil, errors.NewValueError("Table.Matrix", "column "+name+" is not numeric")
		}
		for i, v := range col.Floats {
			m.Set(i, j, v)
		}
	}
	return m, nil
}

// Vector returns a numeric column as a gonum column vector.
func (t *Table) Vector(name string) (*mat.VecDense, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, errors.NewColumnMissingError("Table.Vector", name)
	}
	if col.Type != Numeric {
		return nil, errors.NewValueError("Table.Vector", "column "+name+" is not numeric")
	}
	if t.nRows == 0 {
		return nil, errors.NewModelError("Table.Vector", "empty table", errors.ErrEmptyData)
	}
	v := mat.NewVecDense(t.nRows, nil)
	for i, x := range col.Floats {
		v.SetVec(i, x)
	}
	return v, nil
}
