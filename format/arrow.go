package format

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/kndndrj/spanalytics/frame"
)

var _ Formatter = (*Arrow)(nil)

// Arrow writes the table as an Arrow IPC file with a single record batch.
type Arrow struct {
	mem memory.Allocator
}

func NewArrow(mem memory.Allocator) *Arrow {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Arrow{mem: mem}
}

func (*Arrow) Name() string {
	return "arrow"
}

func (af *Arrow) Format(t *frame.Table, w io.Writer) error {
	rec, err := t.ToRecord(af.mem)
	if err != nil {
		return fmt.Errorf("t.ToRecord: %w", err)
	}
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(af.mem))
	if err != nil {
		return fmt.Errorf("ipc.NewFileWriter: %w", err)
	}

	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("fw.Write: %w", err)
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("fw.Close: %w", err)
	}
	return nil
}
