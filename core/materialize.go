package core

import (
	"fmt"

	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kndndrj/spanalytics/frame"
)

type MaterializerOption func(*Materializer)

// WithParallelism decodes up to n fields at once. The output is the same as
// with sequential decoding.
func WithParallelism(n int) MaterializerOption {
	return func(m *Materializer) {
		if n < 1 {
			n = 1
		}
		m.parallelism = n
	}
}

// Materializer converts row oriented wire data into a typed table.
type Materializer struct {
	parallelism int
}

func NewMaterializer(opts ...MaterializerOption) *Materializer {
	m := &Materializer{
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Build materializes rows with a sequential materializer.
func Build(schema Schema, rows []Row) (*frame.Table, error) {
	return NewMaterializer().Build(schema, rows)
}

// Build decodes every field of schema into a typed column. It either returns
// a complete table or an error, never a partially decoded table.
func (m *Materializer) Build(schema Schema, rows []Row) (*frame.Table, error) {
	if err := ValidateSchema(schema); err != nil {
		return nil, err
	}

	table := frame.NewTable()
	if len(schema) == 0 {
		return table, nil
	}

	for i, row := range rows {
		if len(row) != len(schema) {
			return nil, ErrRowWidthMismatch(i, len(row), len(schema))
		}
	}

	columns := make([]frame.Column, len(schema))
	decodeField := func(pos int) error {
		col, err := decodeColumn(schema[pos], pos, rows)
		if err != nil {
			return err
		}
		columns[pos] = col
		return nil
	}

	if m.parallelism > 1 {
		var g errgroup.Group
		g.SetLimit(m.parallelism)
		for pos := range schema {
			g.Go(func() error { return decodeField(pos) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for pos := range schema {
			if err := decodeField(pos); err != nil {
				return nil, err
			}
		}
	}

	for pos, field := range schema {
		if err := table.AddColumn(field.Name, columns[pos]); err != nil {
			return nil, fmt.Errorf("table.AddColumn: %w", err)
		}
	}

	return table, nil
}

// ValidateSchema checks that every field can be materialized and that field
// names are unique.
func ValidateSchema(schema Schema) error {
	seen := make(map[string]struct{}, len(schema))
	for _, f := range schema {
		if _, ok := seen[f.Name]; ok {
			return ErrDuplicateField(f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Type == TypeCodeArray {
			if !isScalarCode(f.ElementType) {
				return &UnsupportedTypeError{Field: f.Name, Code: f.ElementType, Element: true}
			}
			continue
		}
		if !isScalarCode(f.Type) {
			return &UnsupportedTypeError{Field: f.Name, Code: f.Type}
		}
	}
	return nil
}

func isScalarCode(c TypeCode) bool {
	switch c {
	case TypeCodeBool, TypeCodeInt64, TypeCodeFloat64, TypeCodeTimestamp, TypeCodeDate,
		TypeCodeString, TypeCodeBytes, TypeCodeNumeric, TypeCodeJSON:
		return true
	default:
		return false
	}
}

func decodeColumn(f *Field, pos int, rows []Row) (frame.Column, error) {
	switch f.Type {
	case TypeCodeBool:
		return decodeScalars(f, pos, rows, frame.KindBool, decodeBool)
	case TypeCodeInt64:
		return decodeScalars(f, pos, rows, frame.KindInt64, decodeInt64)
	case TypeCodeFloat64:
		return decodeScalars(f, pos, rows, frame.KindFloat64, decodeFloat64)
	case TypeCodeTimestamp:
		return decodeScalars(f, pos, rows, frame.KindTimestamp, decodeTimestamp)
	case TypeCodeDate:
		return decodeScalars(f, pos, rows, frame.KindDate, decodeDate)
	case TypeCodeString:
		return decodeScalars(f, pos, rows, frame.KindString, decodeString)
	case TypeCodeBytes:
		return decodeScalars(f, pos, rows, frame.KindBytes, decodeBytes)
	case TypeCodeNumeric:
		return decodeScalars(f, pos, rows, frame.KindNumeric, decodeNumeric)
	case TypeCodeJSON:
		return decodeScalars(f, pos, rows, frame.KindJSON, decodeJSON)
	case TypeCodeArray:
		return decodeArrayColumn(f, pos, rows)
	default:
		return nil, &UnsupportedTypeError{Field: f.Name, Code: f.Type}
	}
}

func decodeArrayColumn(f *Field, pos int, rows []Row) (frame.Column, error) {
	switch f.ElementType {
	case TypeCodeBool:
		return decodeLists(f, pos, rows, frame.KindBool, decodeBool)
	case TypeCodeInt64:
		return decodeLists(f, pos, rows, frame.KindInt64, decodeInt64)
	case TypeCodeFloat64:
		return decodeLists(f, pos, rows, frame.KindFloat64, decodeFloat64)
	case TypeCodeTimestamp:
		return decodeLists(f, pos, rows, frame.KindTimestamp, decodeTimestamp)
	case TypeCodeDate:
		return decodeLists(f, pos, rows, frame.KindDate, decodeDate)
	case TypeCodeString:
		return decodeLists(f, pos, rows, frame.KindString, decodeString)
	case TypeCodeBytes:
		return decodeLists(f, pos, rows, frame.KindBytes, decodeBytes)
	case TypeCodeNumeric:
		return decodeLists(f, pos, rows, frame.KindNumeric, decodeNumeric)
	case TypeCodeJSON:
		return decodeLists(f, pos, rows, frame.KindJSON, decodeJSON)
	default:
		return nil, &UnsupportedTypeError{Field: f.Name, Code: f.ElementType, Element: true}
	}
}

func decodeScalars[T any](f *Field, pos int, rows []Row, kind frame.Kind, decode func(*structpb.Value) (T, error)) (frame.Column, error) {
	col := frame.NewVector[T](kind, len(rows))
	for i, row := range rows {
		cell := row[pos]
		if isNull(cell) {
			col.AppendNull()
			continue
		}

		v, err := decode(cell)
		if err != nil {
			return nil, &DecodeError{Field: f.Name, Row: i, Err: err}
		}
		col.Append(v)
	}
	return col, nil
}

func decodeLists[T any](f *Field, pos int, rows []Row, kind frame.Kind, decode func(*structpb.Value) (T, error)) (frame.Column, error) {
	col := frame.NewList[T](kind, len(rows))
	for i, row := range rows {
		cell := row[pos]
		if isNull(cell) {
			col.AppendNull()
			continue
		}

		list := cell.GetListValue()
		if list == nil {
			return nil, &DecodeError{Field: f.Name, Row: i, Err: errUnexpectedKind("list", cell)}
		}

		elems := frame.NewVector[T](kind, len(list.GetValues()))
		for j, e := range list.GetValues() {
			if isNull(e) {
				elems.AppendNull()
				continue
			}

			v, err := decode(e)
			if err != nil {
				return nil, &DecodeError{Field: f.Name, Row: i, Err: fmt.Errorf("element %d: %w", j, err)}
			}
			elems.Append(v)
		}
		col.Append(elems)
	}
	return col, nil
}
