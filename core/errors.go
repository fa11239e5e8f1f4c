package core

import (
	"errors"
	"fmt"
)

var (
	ErrCallNotFinished  = errors.New("call has not finished yet")
	ErrRowWidthMismatch = func(row, got, want int) error {
		return fmt.Errorf("row %d has %d cells, schema has %d fields", row, got, want)
	}
	ErrDuplicateField = func(name string) error { return fmt.Errorf("duplicate field name in schema: %q", name) }
)

// PartitionError is returned when a query can't be decomposed into
// partitions, e.g. because it is not root partitionable or malformed.
type PartitionError struct {
	Query string
	Err   error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partitioning query %q: %s", e.Query, e.Err)
}

func (e *PartitionError) Unwrap() error {
	return e.Err
}

// TransportError is returned when communication with the database fails.
// Partition is the index of the failed partition or -1.
type TransportError struct {
	Query     string
	Partition int
	Err       error
}

func (e *TransportError) Error() string {
	if e.Partition < 0 {
		return fmt.Sprintf("executing query %q: %s", e.Query, e.Err)
	}
	return fmt.Sprintf("executing partition %d of query %q: %s", e.Partition, e.Query, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnsupportedTypeError is returned for struct columns and any other type
// code outside of the supported set. Element is set when the offending code
// is the element type of an array.
type UnsupportedTypeError struct {
	Field   string
	Code    TypeCode
	Element bool
}

func (e *UnsupportedTypeError) Error() string {
	if e.Element {
		return fmt.Sprintf("field %q: unsupported array element type %s", e.Field, e.Code)
	}
	return fmt.Sprintf("field %q: unsupported type %s", e.Field, e.Code)
}

// DecodeError is returned when a single cell can't be decoded.
type DecodeError struct {
	Field string
	Row   int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding field %q at row %d: %s", e.Field, e.Row, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func asPartitionError(query string, err error) error {
	var pe *PartitionError
	var te *TransportError
	if errors.As(err, &pe) || errors.As(err, &te) {
		return err
	}
	return &PartitionError{Query: query, Err: err}
}

func asTransportError(query string, partition int, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		if te.Partition < 0 && partition >= 0 {
			return &TransportError{Query: query, Partition: partition, Err: te.Err}
		}
		return err
	}
	return &TransportError{Query: query, Partition: partition, Err: err}
}
