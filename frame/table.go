package frame

import (
	"fmt"
)

var (
	ErrDuplicateColumn = func(name string) error { return fmt.Errorf("duplicate column name: %q", name) }
	ErrColumnLength    = func(name string, got, want int) error {
		return fmt.Errorf("column %q has %d rows, table has %d", name, got, want)
	}
	ErrUnknownColumn = func(name string) error { return fmt.Errorf("unknown column: %q", name) }
	ErrColumnType    = func(name string, got Column) error {
		return fmt.Errorf("column %q has unexpected type %s (%T)", name, got.Type(), got)
	}
)

// Table is an ordered set of uniquely named columns of equal length.
type Table struct {
	names   []string
	columns []Column
	index   map[string]int
	rows    int
}

func NewTable() *Table {
	return &Table{
		index: make(map[string]int),
	}
}

// AddColumn appends a column. The first column decides the row count.
func (t *Table) AddColumn(name string, c Column) error {
	if _, ok := t.index[name]; ok {
		return ErrDuplicateColumn(name)
	}
	if len(t.columns) > 0 && c.Len() != t.rows {
		return ErrColumnLength(name, c.Len(), t.rows)
	}

	t.rows = c.Len()
	t.index[name] = len(t.columns)
	t.names = append(t.names, name)
	t.columns = append(t.columns, c)
	return nil
}

func (t *Table) Names() []string {
	return t.names
}

func (t *Table) Columns() []Column {
	return t.columns
}

func (t *Table) Types() []DataType {
	types := make([]DataType, len(t.columns))
	for i, c := range t.columns {
		types[i] = c.Type()
	}
	return types
}

func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

func (t *Table) ColumnAt(i int) Column {
	return t.columns[i]
}

func (t *Table) NumRows() int {
	return t.rows
}

func (t *Table) NumCols() int {
	return len(t.columns)
}

// Row returns the native values of row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Value(i)
	}
	return row
}

// Get returns the named scalar column as a typed vector.
func Get[T any](t *Table, name string) (*Vector[T], error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, ErrUnknownColumn(name)
	}
	v, ok := c.(*Vector[T])
	if !ok {
		return nil, ErrColumnType(name, c)
	}
	return v, nil
}

// GetList returns the named array column as a typed list.
func GetList[T any](t *Table, name string) (*List[T], error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, ErrUnknownColumn(name)
	}
	l, ok := c.(*List[T])
	if !ok {
		return nil, ErrColumnType(name, c)
	}
	return l, nil
}
