package core

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"
)

func isNull(v *structpb.Value) bool {
	if v == nil {
		return true
	}
	switch v.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return true
	}
	return false
}

func kindName(v *structpb.Value) string {
	switch v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return "bool"
	case *structpb.Value_NumberValue:
		return "number"
	case *structpb.Value_StringValue:
		return "string"
	case *structpb.Value_ListValue:
		return "list"
	case *structpb.Value_StructValue:
		return "struct"
	default:
		return "null"
	}
}

func errUnexpectedKind(want string, v *structpb.Value) error {
	return fmt.Errorf("expected %s value, got %s", want, kindName(v))
}

func stringCell(v *structpb.Value) (string, error) {
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", errUnexpectedKind("string", v)
	}
	return s.StringValue, nil
}

func decodeBool(v *structpb.Value) (bool, error) {
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, errUnexpectedKind("bool", v)
	}
	return b.BoolValue, nil
}

// decodeInt64 accepts the decimal string form used on the wire as well as
// integral numbers.
func decodeInt64(v *structpb.Value) (int64, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strconv.ParseInt(k.StringValue, 10, 64)
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, fmt.Errorf("number %v is not a valid int64", n)
		}
		return int64(n), nil
	default:
		return 0, errUnexpectedKind("int64", v)
	}
}

// decodeFloat64 also handles "NaN", "Infinity" and "-Infinity" strings.
func decodeFloat64(v *structpb.Value) (float64, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return k.NumberValue, nil
	case *structpb.Value_StringValue:
		return strconv.ParseFloat(k.StringValue, 64)
	default:
		return 0, errUnexpectedKind("float64", v)
	}
}

func decodeString(v *structpb.Value) (string, error) {
	return stringCell(v)
}

func decodeBytes(v *structpb.Value) ([]byte, error) {
	s, err := stringCell(v)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(s)
}

func decodeNumeric(v *structpb.Value) (decimal.Decimal, error) {
	s, err := stringCell(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(s)
}

// decodeTimestamp truncates to microseconds, the finest resolution kept.
func decodeTimestamp(v *structpb.Value) (time.Time, error) {
	s, err := stringCell(v)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(time.Microsecond), nil
}

func decodeDate(v *structpb.Value) (civil.Date, error) {
	s, err := stringCell(v)
	if err != nil {
		return civil.Date{}, err
	}
	return civil.ParseDate(s)
}

// decodeJSON parses JSON text. Integral numbers become int64, numbers out of
// the int64 range stay json.Number and the rest float64. Values which are
// already decoded (objects, lists, numbers, bools) are passed through with the
// same number rules.
func decodeJSON(v *structpb.Value) (any, error) {
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return normalizeJSON(v.AsInterface()), nil
	}

	dec := json.NewDecoder(strings.NewReader(s.StringValue))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil, errTrailingJSON
	}

	return normalizeJSON(out), nil
}

var errTrailingJSON = errors.New("unexpected data after top-level JSON value")

// maxExactFloat is the largest magnitude below which every integer is
// representable as float64.
const maxExactFloat = 1 << 53

func normalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if strings.ContainsAny(val.String(), ".eE") {
			if f, err := val.Float64(); err == nil {
				return f
			}
		}
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) <= maxExactFloat {
			return int64(val)
		}
		return val
	case map[string]any:
		for k, e := range val {
			val[k] = normalizeJSON(e)
		}
		return val
	case []any:
		for i, e := range val {
			val[i] = normalizeJSON(e)
		}
		return val
	default:
		return v
	}
}
