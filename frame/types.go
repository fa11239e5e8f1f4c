package frame

import "fmt"

// Kind identifies the native type of values held by a column.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt64
	KindFloat64
	KindNumeric
	KindTimestamp
	KindDate
	KindString
	KindBytes
	KindJSON
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindNumeric:
		return "numeric"
	case KindTimestamp:
		return "timestamp"
	case KindDate:
		return "date"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindJSON:
		return "json"
	case KindList:
		return "array"
	default:
		return "invalid"
	}
}

// DataType is the full type of a column. Elem is only set for lists.
type DataType struct {
	Kind Kind
	Elem Kind
}

func Scalar(k Kind) DataType {
	return DataType{Kind: k}
}

func ListOf(elem Kind) DataType {
	return DataType{Kind: KindList, Elem: elem}
}

func (t DataType) String() string {
	if t.Kind == KindList {
		return fmt.Sprintf("array<%s>", t.Elem)
	}
	return t.Kind.String()
}
