package frame_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kndndrj/spanalytics/frame"
)

func TestArrowType(t *testing.T) {
	tests := []struct {
		typ  frame.DataType
		want arrow.DataType
	}{
		{typ: frame.Scalar(frame.KindBool), want: arrow.FixedWidthTypes.Boolean},
		{typ: frame.Scalar(frame.KindInt64), want: arrow.PrimitiveTypes.Int64},
		{typ: frame.Scalar(frame.KindFloat64), want: arrow.PrimitiveTypes.Float64},
		{typ: frame.Scalar(frame.KindNumeric), want: &arrow.Decimal128Type{Precision: 38, Scale: 9}},
		{typ: frame.Scalar(frame.KindTimestamp), want: arrow.FixedWidthTypes.Timestamp_us},
		{typ: frame.Scalar(frame.KindDate), want: arrow.FixedWidthTypes.Date32},
		{typ: frame.Scalar(frame.KindString), want: arrow.BinaryTypes.String},
		{typ: frame.Scalar(frame.KindBytes), want: arrow.BinaryTypes.Binary},
		{typ: frame.Scalar(frame.KindJSON), want: arrow.BinaryTypes.String},
		{typ: frame.ListOf(frame.KindInt64), want: arrow.ListOf(arrow.PrimitiveTypes.Int64)},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			require.True(t, arrow.TypeEqual(tt.want, frame.ArrowType(tt.typ)))
		})
	}
}

func TestTable_ToRecord(t *testing.T) {
	r := require.New(t)

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	ts := time.Date(2000, 1, 1, 1, 1, 1, 1000, time.UTC)

	nums := frame.NewVector[decimal.Decimal](frame.KindNumeric, 2)
	nums.Append(decimal.RequireFromString("1.000000001"))
	nums.AppendNull()

	arrays := frame.NewList[int64](frame.KindInt64, 2)
	arrays.Append(frame.VectorOf(frame.KindInt64, int64(1), 4))
	arrays.AppendNull()

	tbl := frame.NewTable()
	r.NoError(tbl.AddColumn("bool", frame.VectorOf(frame.KindBool, true, false)))
	r.NoError(tbl.AddColumn("timestamp", frame.VectorOf(frame.KindTimestamp, ts, ts)))
	r.NoError(tbl.AddColumn("date", frame.VectorOf(frame.KindDate, civil.DateOf(ts), civil.DateOf(ts))))
	r.NoError(tbl.AddColumn("numeric", nums))
	r.NoError(tbl.AddColumn("json", frame.VectorOf[any](frame.KindJSON, map[string]any{"a": float64(1)}, nil)))
	r.NoError(tbl.AddColumn("array_int64", arrays))

	rec, err := tbl.ToRecord(mem)
	r.NoError(err)
	defer rec.Release()

	r.Equal(int64(2), rec.NumRows())
	r.Equal(int64(6), rec.NumCols())

	r.Equal([]bool{true, false}, []bool{
		rec.Column(0).(*array.Boolean).Value(0),
		rec.Column(0).(*array.Boolean).Value(1),
	})
	r.Equal(arrow.Timestamp(ts.UnixMicro()), rec.Column(1).(*array.Timestamp).Value(0))
	r.Equal(arrow.Date32FromTime(ts), rec.Column(2).(*array.Date32).Value(0))

	dec := rec.Column(3).(*array.Decimal128)
	r.Equal("1.000000001", dec.Value(0).ToString(9))
	r.True(dec.IsNull(1))

	js := rec.Column(4).(*array.String)
	r.Equal(`{"a":1}`, js.Value(0))
	r.True(js.IsNull(1))

	md := rec.Schema().Field(4).Metadata
	idx := md.FindKey("ARROW:extension:name")
	r.GreaterOrEqual(idx, 0)
	r.Equal("arrow.json", md.Values()[idx])

	list := rec.Column(5).(*array.List)
	r.True(list.IsNull(1))
	start, end := list.ValueOffsets(0)
	r.Equal(int64(0), start)
	r.Equal(int64(2), end)
	values := list.ListValues().(*array.Int64)
	r.Equal([]int64{1, 4}, values.Int64Values())
}

func TestTable_ToRecord_NumericPrecision(t *testing.T) {
	r := require.New(t)

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	values := []string{
		"99999999999999999999999999999.999999999",
		"-99999999999999999999999999999.999999999",
		"-0.000000001",
		"12345678901234567890.123456789",
	}

	nums := frame.NewVector[decimal.Decimal](frame.KindNumeric, len(values))
	for _, v := range values {
		nums.Append(decimal.RequireFromString(v))
	}

	tbl := frame.NewTable()
	r.NoError(tbl.AddColumn("numeric", nums))
	r.NoError(tbl.AddColumn("json", frame.VectorOf[any](frame.KindJSON,
		map[string]any{"id": int64(9007199254740993)}, nil, nil, nil,
	)))

	rec, err := tbl.ToRecord(mem)
	r.NoError(err)
	defer rec.Release()

	dec := rec.Column(0).(*array.Decimal128)
	for i, v := range values {
		r.Equal(v, decimal.NewFromBigInt(dec.Value(i).BigInt(), -frame.NumericScale).String())
	}

	r.Equal(`{"id":9007199254740993}`, rec.Column(1).(*array.String).Value(0))
}

func TestTable_ToRecord_Empty(t *testing.T) {
	r := require.New(t)

	tbl := frame.NewTable()
	r.NoError(tbl.AddColumn("bool", frame.NewVector[bool](frame.KindBool, 0)))

	rec, err := tbl.ToRecord(nil)
	r.NoError(err)
	defer rec.Release()

	r.Equal(int64(0), rec.NumRows())
	r.True(arrow.TypeEqual(arrow.FixedWidthTypes.Boolean, rec.Schema().Field(0).Type))
}
