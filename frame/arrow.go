package frame

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

const (
	// NumericPrecision and NumericScale match Spanner's NUMERIC type.
	NumericPrecision = 38
	NumericScale     = 9

	extensionNameKey = "ARROW:extension:name"
	jsonExtension    = "arrow.json"
)

// ArrowType maps a column type to its arrow counterpart.
// JSON columns are stored as utf8 text.
func ArrowType(t DataType) arrow.DataType {
	if t.Kind == KindList {
		return arrow.ListOf(ArrowType(Scalar(t.Elem)))
	}

	switch t.Kind {
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	case KindInt64:
		return arrow.PrimitiveTypes.Int64
	case KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case KindNumeric:
		return &arrow.Decimal128Type{Precision: NumericPrecision, Scale: NumericScale}
	case KindTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	case KindDate:
		return arrow.FixedWidthTypes.Date32
	case KindBytes:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

func ArrowSchema(t *Table) *arrow.Schema {
	fields := make([]arrow.Field, t.NumCols())
	for i, c := range t.Columns() {
		typ := c.Type()
		fields[i] = arrow.Field{
			Name:     t.Names()[i],
			Type:     ArrowType(typ),
			Nullable: true,
		}
		if typ.Kind == KindJSON || typ.Elem == KindJSON {
			fields[i].Metadata = arrow.NewMetadata([]string{extensionNameKey}, []string{jsonExtension})
		}
	}

	return arrow.NewSchema(fields, nil)
}

// ToRecord copies the table into an arrow record.
// The caller is responsible for releasing the record.
func (t *Table) ToRecord(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	schema := ArrowSchema(t)

	arrays := make([]arrow.Array, 0, t.NumCols())
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()

	for i, c := range t.Columns() {
		arr, err := buildArray(mem, schema.Field(i).Type, c)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", t.Names()[i], err)
		}
		arrays = append(arrays, arr)
	}

	return array.NewRecord(schema, arrays, int64(t.NumRows())), nil
}

func buildArray(mem memory.Allocator, dt arrow.DataType, c Column) (arrow.Array, error) {
	b := array.NewBuilder(mem, dt)
	defer b.Release()

	typ := c.Type()
	b.Reserve(c.Len())
	for i := 0; i < c.Len(); i++ {
		var err error
		if typ.Kind == KindList {
			err = appendList(b, typ.Elem, c.Value(i))
		} else {
			err = appendValue(b, typ.Kind, c.Value(i))
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}

	return b.NewArray(), nil
}

func appendList(b array.Builder, elem Kind, v any) error {
	lb, ok := b.(*array.ListBuilder)
	if !ok {
		return fmt.Errorf("unexpected builder for list: %T", b)
	}
	if v == nil {
		lb.AppendNull()
		return nil
	}

	lb.Append(true)
	vb := lb.ValueBuilder()
	for _, e := range v.([]any) {
		if err := appendValue(vb, elem, e); err != nil {
			return err
		}
	}
	return nil
}

func appendValue(b array.Builder, kind Kind, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch b := b.(type) {
	case *array.BooleanBuilder:
		b.Append(v.(bool))
	case *array.Int64Builder:
		b.Append(v.(int64))
	case *array.Float64Builder:
		b.Append(v.(float64))
	case *array.Decimal128Builder:
		b.Append(decimal128.FromBigInt(v.(decimal.Decimal).Shift(NumericScale).BigInt()))
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(v.(time.Time).UnixMicro()))
	case *array.Date32Builder:
		b.Append(arrow.Date32FromTime(v.(civil.Date).In(time.UTC)))
	case *array.BinaryBuilder:
		b.Append(v.([]byte))
	case *array.StringBuilder:
		if kind != KindJSON {
			b.Append(v.(string))
			return nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("json.Marshal: %w", err)
		}
		b.Append(string(raw))
	default:
		return fmt.Errorf("unsupported arrow builder: %T", b)
	}

	return nil
}
