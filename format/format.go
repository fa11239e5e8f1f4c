package format

import (
	"fmt"
	"io"
	"sort"

	"github.com/kndndrj/spanalytics/frame"
)

// Formatter writes a materialized table to w in a specific format.
type Formatter interface {
	Name() string
	Format(t *frame.Table, w io.Writer) error
}

var formatters = map[string]func() Formatter{
	"table": func() Formatter { return NewTable() },
	"csv":   func() Formatter { return NewCSV() },
	"json":  func() Formatter { return NewJSON() },
	"arrow": func() Formatter { return NewArrow(nil) },
}

// New returns the formatter registered under name.
func New(name string) (Formatter, error) {
	f, ok := formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format: %q (available: %v)", name, Names())
	}
	return f(), nil
}

// Names lists the available formats.
func Names() []string {
	names := make([]string, 0, len(formatters))
	for n := range formatters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
