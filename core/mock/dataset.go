package mock

import (
	"encoding/base64"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kndndrj/spanalytics/core"
)

// SampleSchema returns one field for every supported type, followed by an
// array field for every supported element type.
func SampleSchema() core.Schema {
	scalars := []struct {
		name string
		code core.TypeCode
	}{
		{"bool", core.TypeCodeBool},
		{"int64", core.TypeCodeInt64},
		{"float64", core.TypeCodeFloat64},
		{"timestamp", core.TypeCodeTimestamp},
		{"date", core.TypeCodeDate},
		{"string", core.TypeCodeString},
		{"bytes", core.TypeCodeBytes},
		{"numeric", core.TypeCodeNumeric},
		{"json", core.TypeCodeJSON},
	}

	schema := make(core.Schema, 0, 2*len(scalars))
	for _, s := range scalars {
		schema = append(schema, &core.Field{Name: s.name, Type: s.code})
	}
	for _, s := range scalars {
		schema = append(schema, &core.Field{Name: "array_" + s.name, Type: core.TypeCodeArray, ElementType: s.code})
	}
	return schema
}

// SampleRows returns three rows matching SampleSchema in their wire
// representation.
func SampleRows() []core.Row {
	str := structpb.NewStringValue
	num := structpb.NewNumberValue
	b64 := func(s string) *structpb.Value {
		return str(base64.StdEncoding.EncodeToString([]byte(s)))
	}
	list := func(vals ...*structpb.Value) *structpb.Value {
		return structpb.NewListValue(&structpb.ListValue{Values: vals})
	}

	return []core.Row{
		{
			structpb.NewBoolValue(true), str("1"), num(1.1),
			str("2000-01-01T01:01:01.000001Z"), str("2000-01-01"), str("aaa"), b64("000"),
			str("1.000000001"), str(`{"a": 1}`),
			list(structpb.NewBoolValue(true)),
			list(str("1"), str("4")),
			list(num(1.1)),
			list(str("2000-01-01T01:01:01.000001Z")),
			list(str("2000-01-01")),
			list(str("aaa")),
			list(b64("000")),
			list(str("1.000000001")),
			list(str(`{"a": 1}`)),
		},
		{
			structpb.NewBoolValue(false), str("2"), num(2.2),
			str("2000-02-02T02:02:02.000002Z"), str("2000-02-02"), str("bbb"), b64("111"),
			str("2.000000002"), str(`{"b": 2}`),
			list(structpb.NewBoolValue(false)),
			list(str("2"), str("5")),
			list(num(2.2)),
			list(str("2000-02-02T02:02:02.000002Z")),
			list(str("2000-02-02")),
			list(str("bbb")),
			list(b64("111")),
			list(str("2.000000002")),
			list(str(`{"b": 2}`)),
		},
		{
			structpb.NewBoolValue(true), str("3"), num(3.3),
			str("2000-03-03T03:03:03.000003Z"), str("2000-03-03"), str("ccc"), b64("222"),
			str("3.000000003"), str(`{"c": 3}`),
			list(structpb.NewBoolValue(true), structpb.NewBoolValue(false)),
			list(str("3"), str("6"), str("9")),
			list(num(3.3), num(4.4)),
			list(str("2000-03-03T03:03:03.000003Z"), str("2000-04-04T04:04:04.000004Z")),
			list(str("2000-03-03"), str("2000-04-04")),
			list(str("ccc"), str("ddd")),
			list(b64("222"), b64("333")),
			list(str("3.000000003"), str("4.000000004")),
			list(str(`{"c": 3}`), str(`{"d": 4}`)),
		},
	}
}

// IntRows returns rows with a single INT64 cell each, holding values from
// the interval [from, to).
func IntRows(from, to int) []core.Row {
	var rows []core.Row
	for i := from; i < to; i++ {
		rows = append(rows, core.Row{structpb.NewStringValue(strconv.Itoa(i))})
	}
	return rows
}

// SplitChunks distributes rows over n chunks round robin. Every chunk carries
// the schema.
func SplitChunks(schema core.Schema, rows []core.Row, n int) []*core.Chunk {
	if n < 1 {
		n = 1
	}

	chunks := make([]*core.Chunk, n)
	for i := range chunks {
		chunks[i] = &core.Chunk{Schema: schema}
	}
	for i, row := range rows {
		c := chunks[i%n]
		c.Rows = append(c.Rows, row)
	}
	return chunks
}
