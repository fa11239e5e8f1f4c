package adapters

import (
	"errors"
	"testing"

	sppb "cloud.google.com/go/spanner/apiv1/spannerpb"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kndndrj/spanalytics/core"
)

func TestSchemaFromSpanner(t *testing.T) {
	scalar := func(name string, code sppb.TypeCode) *sppb.StructType_Field {
		return &sppb.StructType_Field{Name: name, Type: &sppb.Type{Code: code}}
	}
	array := func(name string, code sppb.TypeCode) *sppb.StructType_Field {
		return &sppb.StructType_Field{Name: name, Type: &sppb.Type{
			Code:             sppb.TypeCode_ARRAY,
			ArrayElementType: &sppb.Type{Code: code},
		}}
	}

	fields := []*sppb.StructType_Field{
		scalar("bool", sppb.TypeCode_BOOL),
		scalar("int64", sppb.TypeCode_INT64),
		scalar("float64", sppb.TypeCode_FLOAT64),
		scalar("timestamp", sppb.TypeCode_TIMESTAMP),
		scalar("date", sppb.TypeCode_DATE),
		scalar("string", sppb.TypeCode_STRING),
		scalar("bytes", sppb.TypeCode_BYTES),
		scalar("numeric", sppb.TypeCode_NUMERIC),
		scalar("json", sppb.TypeCode_JSON),
		scalar("struct", sppb.TypeCode_STRUCT),
		array("array_int64", sppb.TypeCode_INT64),
		array("array_struct", sppb.TypeCode_STRUCT),
		{Name: "untyped"},
	}

	expected := core.Schema{
		{Name: "bool", Type: core.TypeCodeBool},
		{Name: "int64", Type: core.TypeCodeInt64},
		{Name: "float64", Type: core.TypeCodeFloat64},
		{Name: "timestamp", Type: core.TypeCodeTimestamp},
		{Name: "date", Type: core.TypeCodeDate},
		{Name: "string", Type: core.TypeCodeString},
		{Name: "bytes", Type: core.TypeCodeBytes},
		{Name: "numeric", Type: core.TypeCodeNumeric},
		{Name: "json", Type: core.TypeCodeJSON},
		{Name: "struct", Type: core.TypeCodeStruct},
		{Name: "array_int64", Type: core.TypeCodeArray, ElementType: core.TypeCodeInt64},
		{Name: "array_struct", Type: core.TypeCodeArray, ElementType: core.TypeCodeStruct},
		{Name: "untyped", Type: core.TypeCodeUnspecified},
	}

	assert.Equal(t, expected, SchemaFromSpanner(fields))
	assert.Empty(t, SchemaFromSpanner(nil))
}

func Test_classifyPartitionError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantPartition bool
	}{
		{
			name:          "invalid argument is a partition error",
			err:           status.Error(codes.InvalidArgument, "Query is not root partitionable"),
			wantPartition: true,
		},
		{
			name:          "failed precondition is a partition error",
			err:           status.Error(codes.FailedPrecondition, "data boost not enabled"),
			wantPartition: true,
		},
		{
			name:          "missing table is a partition error",
			err:           status.Error(codes.NotFound, "Table not found: t"),
			wantPartition: true,
		},
		{
			name: "unavailable is a transport error",
			err:  status.Error(codes.Unavailable, "connection refused"),
		},
		{
			name: "permission denied is a transport error",
			err:  status.Error(codes.PermissionDenied, "denied"),
		},
		{
			name: "plain errors are transport errors",
			err:  errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyPartitionError("select 1", tt.err)

			var partErr *core.PartitionError
			var transportErr *core.TransportError
			if tt.wantPartition {
				assert.True(t, errors.As(err, &partErr))
				assert.Equal(t, "select 1", partErr.Query)
			} else {
				assert.True(t, errors.As(err, &transportErr))
				assert.Equal(t, -1, transportErr.Partition)
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
