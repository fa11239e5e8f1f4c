package format

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/kndndrj/spanalytics/frame"
)

var _ Formatter = (*Table)(nil)

// Table renders a human readable, indexed table.
type Table struct{}

func NewTable() *Table {
	return &Table{}
}

func (*Table) Name() string {
	return "table"
}

func (tf *Table) Format(t *frame.Table, w io.Writer) error {
	tableHeaders := table.Row{""}
	for _, k := range t.Names() {
		tableHeaders = append(tableHeaders, k)
	}

	columns := t.Columns()
	tableRows := make([]table.Row, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		indexedRow := table.Row{i + 1}
		for _, c := range columns {
			indexedRow = append(indexedRow, c.String(i))
		}
		tableRows = append(tableRows, indexedRow)
	}

	tw := table.NewWriter()
	tw.AppendHeader(tableHeaders)
	tw.AppendRows(tableRows)
	tw.AppendSeparator()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	tw.Style().Options.DrawBorder = false
	tw.SuppressTrailingSpaces()

	_, err := fmt.Fprintln(w, tw.Render())
	return err
}
