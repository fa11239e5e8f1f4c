package format

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/kndndrj/spanalytics/frame"
)

var _ Formatter = (*CSV)(nil)

type CSV struct{}

func NewCSV() *CSV {
	return &CSV{}
}

func (*CSV) Name() string {
	return "csv"
}

// Format writes a header line followed by one line per row. Nulls are
// written as empty fields.
func (cf *CSV) Format(t *frame.Table, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("cw.Write: %w", err)
	}

	columns := t.Columns()
	record := make([]string, len(columns))
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range columns {
			if c.IsNull(i) {
				record[j] = ""
				continue
			}
			record[j] = c.String(i)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("cw.Write: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("cw.Flush: %w", err)
	}
	return nil
}
