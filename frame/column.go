package frame

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Column is a single, homogeneously typed column of a Table.
type Column interface {
	Type() DataType
	Len() int
	IsNull(i int) bool
	// Value returns the native value at i, or nil if it is null.
	// List columns return a []any of the row's elements.
	Value(i int) any
	String(i int) string
}

var (
	_ Column = (*Vector[bool])(nil)
	_ Column = (*List[bool])(nil)
)

// Vector is a scalar column. The Go type of T depends on the kind:
//
//	bool      KindBool
//	int64     KindInt64
//	float64   KindFloat64
//	decimal.Decimal  KindNumeric
//	time.Time KindTimestamp (UTC, microsecond resolution)
//	civil.Date       KindDate
//	string    KindString
//	[]byte    KindBytes
//	any       KindJSON
type Vector[T any] struct {
	kind   Kind
	values []T
	// nulls stays nil until the first null is appended
	nulls []bool
}

func NewVector[T any](kind Kind, capacity int) *Vector[T] {
	return &Vector[T]{
		kind:   kind,
		values: make([]T, 0, capacity),
	}
}

// VectorOf creates a vector without nulls from the provided values.
func VectorOf[T any](kind Kind, values ...T) *Vector[T] {
	v := NewVector[T](kind, len(values))
	v.values = append(v.values, values...)
	return v
}

func (v *Vector[T]) Append(val T) {
	v.values = append(v.values, val)
	if v.nulls != nil {
		v.nulls = append(v.nulls, false)
	}
}

func (v *Vector[T]) AppendNull() {
	if v.nulls == nil {
		v.nulls = make([]bool, len(v.values), cap(v.values))
	}
	var zero T
	v.values = append(v.values, zero)
	v.nulls = append(v.nulls, true)
}

func (v *Vector[T]) Type() DataType {
	return Scalar(v.kind)
}

func (v *Vector[T]) Len() int {
	return len(v.values)
}

func (v *Vector[T]) IsNull(i int) bool {
	return v.nulls != nil && v.nulls[i]
}

// Item returns the value at i. Null entries hold the zero value.
func (v *Vector[T]) Item(i int) T {
	return v.values[i]
}

// Values exposes the underlying slice. Null entries hold the zero value.
func (v *Vector[T]) Values() []T {
	return v.values
}

func (v *Vector[T]) Value(i int) any {
	if v.IsNull(i) {
		return nil
	}
	return v.values[i]
}

func (v *Vector[T]) String(i int) string {
	return formatValue(v.kind, v.Value(i))
}

// List is a column of one-level arrays. Row lengths may differ.
type List[T any] struct {
	elem  Kind
	rows  []*Vector[T]
	nulls []bool
}

func NewList[T any](elem Kind, capacity int) *List[T] {
	return &List[T]{
		elem: elem,
		rows: make([]*Vector[T], 0, capacity),
	}
}

func (l *List[T]) Append(row *Vector[T]) {
	l.rows = append(l.rows, row)
	if l.nulls != nil {
		l.nulls = append(l.nulls, false)
	}
}

func (l *List[T]) AppendNull() {
	if l.nulls == nil {
		l.nulls = make([]bool, len(l.rows), cap(l.rows))
	}
	l.rows = append(l.rows, NewVector[T](l.elem, 0))
	l.nulls = append(l.nulls, true)
}

func (l *List[T]) Type() DataType {
	return ListOf(l.elem)
}

func (l *List[T]) Len() int {
	return len(l.rows)
}

func (l *List[T]) IsNull(i int) bool {
	return l.nulls != nil && l.nulls[i]
}

// Item returns the array stored in row i. A null row is an empty vector.
func (l *List[T]) Item(i int) *Vector[T] {
	return l.rows[i]
}

func (l *List[T]) Value(i int) any {
	if l.IsNull(i) {
		return nil
	}

	row := l.rows[i]
	out := make([]any, row.Len())
	for j := range out {
		out[j] = row.Value(j)
	}
	return out
}

func (l *List[T]) String(i int) string {
	if l.IsNull(i) {
		return "NULL"
	}

	row := l.rows[i]
	elems := make([]string, row.Len())
	for j := range elems {
		elems[j] = row.String(j)
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

func formatValue(kind Kind, v any) string {
	if v == nil {
		return "NULL"
	}

	switch kind {
	case KindTimestamp:
		return v.(time.Time).Format(time.RFC3339Nano)
	case KindDate:
		return v.(civil.Date).String()
	case KindNumeric:
		return v.(decimal.Decimal).String()
	case KindBytes:
		return base64.StdEncoding.EncodeToString(v.([]byte))
	case KindJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
