package adapters

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/spanner"
	sppb "cloud.google.com/go/spanner/apiv1/spannerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kndndrj/spanalytics/core"
)

var (
	_ core.Driver             = (*spannerDriver)(nil)
	_ core.ConcurrencyLimiter = (*spannerDriver)(nil)
	_ core.BatchSession       = (*spannerBatchSession)(nil)
)

const cleanupTimeout = 30 * time.Second

type spannerDriver struct {
	c              *spanner.Client
	bound          spanner.TimestampBound
	partitionOpts  spanner.PartitionOptions
	queryOpts      spanner.QueryOptions
	maxConcurrency int
}

// BatchSession opens a batch read only transaction. All partitions of a
// query are read at the same timestamp.
func (d *spannerDriver) BatchSession(ctx context.Context) (core.BatchSession, error) {
	txn, err := d.c.BatchReadOnlyTransaction(ctx, d.bound)
	if err != nil {
		return nil, fmt.Errorf("client.BatchReadOnlyTransaction: %w", err)
	}

	return &spannerBatchSession{
		txn:           txn,
		partitionOpts: d.partitionOpts,
		queryOpts:     d.queryOpts,
	}, nil
}

func (d *spannerDriver) MaxConcurrency() int {
	return d.maxConcurrency
}

func (d *spannerDriver) Close() {
	d.c.Close()
}

type spannerBatchSession struct {
	txn           *spanner.BatchReadOnlyTransaction
	partitionOpts spanner.PartitionOptions
	queryOpts     spanner.QueryOptions
}

func (s *spannerBatchSession) Partitions(ctx context.Context, stmt *core.Statement) ([]core.Partition, error) {
	st := spanner.Statement{
		SQL:    stmt.SQL,
		Params: stmt.Params,
	}

	parts, err := s.txn.PartitionQueryWithOptions(ctx, st, s.partitionOpts, s.queryOpts)
	if err != nil {
		return nil, classifyPartitionError(stmt.SQL, err)
	}

	out := make([]core.Partition, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func (s *spannerBatchSession) ExecutePartition(ctx context.Context, p core.Partition) (*core.Chunk, error) {
	part, ok := p.(*spanner.Partition)
	if !ok {
		return nil, fmt.Errorf("unexpected partition type: %T", p)
	}

	iter := s.txn.Execute(ctx, part)
	defer iter.Stop()

	chunk := new(core.Chunk)
	err := iter.Do(func(row *spanner.Row) error {
		r, err := rowFromSpanner(row)
		if err != nil {
			return err
		}
		chunk.Rows = append(chunk.Rows, r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// metadata is only available once the stream has started
	if iter.Metadata != nil {
		chunk.Schema = SchemaFromSpanner(iter.Metadata.GetRowType().GetFields())
	}

	return chunk, nil
}

func (s *spannerBatchSession) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	s.txn.Cleanup(ctx)
	s.txn.Close()
}

func rowFromSpanner(row *spanner.Row) (core.Row, error) {
	out := make(core.Row, row.Size())
	for i := range out {
		var gcv spanner.GenericColumnValue
		if err := row.Column(i, &gcv); err != nil {
			return nil, fmt.Errorf("row.Column: %w", err)
		}
		out[i] = gcv.Value
	}
	return out, nil
}

// SchemaFromSpanner converts result set metadata fields to a core schema.
func SchemaFromSpanner(fields []*sppb.StructType_Field) core.Schema {
	schema := make(core.Schema, len(fields))
	for i, f := range fields {
		schema[i] = FieldFromSpanner(f)
	}
	return schema
}

// FieldFromSpanner converts a single metadata field. Type codes unknown to
// core end up as TypeCodeUnspecified and are rejected by the materializer.
func FieldFromSpanner(f *sppb.StructType_Field) *core.Field {
	field := &core.Field{
		Name: f.GetName(),
		Type: typeCodeFromSpanner(f.GetType().GetCode()),
	}
	if field.Type == core.TypeCodeArray {
		field.ElementType = typeCodeFromSpanner(f.GetType().GetArrayElementType().GetCode())
	}
	return field
}

// core type codes share names with the wire enum
func typeCodeFromSpanner(c sppb.TypeCode) core.TypeCode {
	return core.TypeCodeFromString(c.String())
}

// classifyPartitionError tells apart queries which can't be partitioned
// from failures to reach the database.
func classifyPartitionError(query string, err error) error {
	code := spanner.ErrCode(err)
	if code == codes.Unknown {
		code = status.Code(err)
	}

	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.Unimplemented, codes.NotFound:
		return &core.PartitionError{Query: query, Err: err}
	}

	return &core.TransportError{Query: query, Partition: -1, Err: err}
}
