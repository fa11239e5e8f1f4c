package core

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// TypeCode is the wire level type of a column.
type TypeCode int

const (
	TypeCodeUnspecified TypeCode = iota
	TypeCodeBool
	TypeCodeInt64
	TypeCodeFloat64
	TypeCodeTimestamp
	TypeCodeDate
	TypeCodeString
	TypeCodeBytes
	TypeCodeArray
	TypeCodeStruct
	TypeCodeNumeric
	TypeCodeJSON
	// codes the database can report but which can't be materialized
	TypeCodeFloat32
	TypeCodeProto
	TypeCodeEnum
	TypeCodeInterval
)

func TypeCodeFromString(s string) TypeCode {
	for c := TypeCodeBool; c <= TypeCodeInterval; c++ {
		if c.String() == s {
			return c
		}
	}
	return TypeCodeUnspecified
}

func (c TypeCode) String() string {
	switch c {
	case TypeCodeBool:
		return "BOOL"
	case TypeCodeInt64:
		return "INT64"
	case TypeCodeFloat64:
		return "FLOAT64"
	case TypeCodeTimestamp:
		return "TIMESTAMP"
	case TypeCodeDate:
		return "DATE"
	case TypeCodeString:
		return "STRING"
	case TypeCodeBytes:
		return "BYTES"
	case TypeCodeArray:
		return "ARRAY"
	case TypeCodeStruct:
		return "STRUCT"
	case TypeCodeNumeric:
		return "NUMERIC"
	case TypeCodeJSON:
		return "JSON"
	case TypeCodeFloat32:
		return "FLOAT32"
	case TypeCodeProto:
		return "PROTO"
	case TypeCodeEnum:
		return "ENUM"
	case TypeCodeInterval:
		return "INTERVAL"
	default:
		return "TYPE_CODE_UNSPECIFIED"
	}
}

type (
	// Field describes a single column of a result set.
	// ElementType is only set when Type is TypeCodeArray.
	Field struct {
		Name        string
		Type        TypeCode
		ElementType TypeCode
	}

	// Schema lists fields in the same order as cells in every row.
	Schema []*Field

	// Row holds raw cells in their wire representation, one per schema field.
	Row []*structpb.Value

	// Chunk is the output of a single partition.
	// Schema is empty if the partition didn't report one.
	Chunk struct {
		Schema Schema
		Rows   []Row
	}

	// ResultSet is the merged output of all partitions of a query.
	ResultSet struct {
		Schema Schema
		Rows   []Row
	}

	// Statement is a SQL query with optional named parameters.
	Statement struct {
		SQL    string
		Params map[string]any
	}

	// Partition is an opaque descriptor of an independently executable
	// fragment of a query.
	Partition any
)

func NewStatement(sql string) *Statement {
	return &Statement{SQL: sql}
}

func (f *Field) String() string {
	if f.Type == TypeCodeArray {
		return fmt.Sprintf("%s ARRAY<%s>", f.Name, f.ElementType)
	}
	return fmt.Sprintf("%s %s", f.Name, f.Type)
}

func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

type (
	// BatchSession is a resource isolated, partitioned execution context on
	// the database. ExecutePartition must be safe for concurrent use.
	BatchSession interface {
		Partitions(ctx context.Context, stmt *Statement) ([]Partition, error)
		ExecutePartition(ctx context.Context, p Partition) (*Chunk, error)
		Close()
	}

	// BatchSessionProvider opens batch sessions.
	BatchSessionProvider interface {
		BatchSession(ctx context.Context) (BatchSession, error)
	}
)
