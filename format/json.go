package format

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/kndndrj/spanalytics/frame"
)

var _ Formatter = (*JSON)(nil)

// JSON writes the table as an array of records. Fields keep the column
// order of the table.
type JSON struct{}

func NewJSON() *JSON {
	return &JSON{}
}

func (*JSON) Name() string {
	return "json"
}

func (jf *JSON) Format(t *frame.Table, w io.Writer) error {
	names := t.Names()
	keys := make([][]byte, len(names))
	for i, n := range names {
		k, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("json.Marshal: %w", err)
		}
		keys[i] = k
	}

	var buf bytes.Buffer
	buf.WriteString("[")
	columns := t.Columns()
	for i := 0; i < t.NumRows(); i++ {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, c := range columns {
			if j > 0 {
				buf.WriteString(", ")
			}
			val, err := json.Marshal(jsonSafe(c.Value(i)))
			if err != nil {
				return fmt.Errorf("column %q, row %d: json.Marshal: %w", names[j], i, err)
			}
			buf.Write(keys[j])
			buf.WriteString(": ")
			buf.Write(val)
		}
		buf.WriteString("}")
	}
	if t.NumRows() > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// jsonSafe replaces floats json can't represent with their string form.
func jsonSafe(v any) any {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return strconv.FormatFloat(val, 'g', -1, 64)
		}
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = jsonSafe(e)
		}
		return out
	}
	return v
}
