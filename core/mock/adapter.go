package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kndndrj/spanalytics/core"
)

// Stats are counters collected by the mock driver.
type Stats struct {
	SessionsOpened     int
	SessionsClosed     int
	PartitionsExecuted int
	MaxInFlight        int
	DriverClosed       bool
}

var (
	_ core.Driver             = (*Driver)(nil)
	_ core.ConcurrencyLimiter = (*Driver)(nil)
)

// Driver serves a fixed list of chunks, one per partition, for every query.
type Driver struct {
	chunks []*core.Chunk
	config *adapterConfig

	mu    sync.Mutex
	stats Stats

	inFlight atomic.Int32
}

func NewDriver(chunks []*core.Chunk, opts ...AdapterOption) *Driver {
	config := &adapterConfig{
		querySideEffects:     make(map[string]func(context.Context) error),
		partitionSideEffects: make(map[int]func(context.Context) error),
	}
	for _, opt := range opts {
		opt(config)
	}

	return &Driver{
		chunks: chunks,
		config: config,
	}
}

func (d *Driver) BatchSession(_ context.Context) (core.BatchSession, error) {
	if d.config.sessionErr != nil {
		return nil, d.config.sessionErr
	}

	d.mu.Lock()
	d.stats.SessionsOpened++
	d.mu.Unlock()

	return &batchSession{driver: d}, nil
}

func (d *Driver) MaxConcurrency() int {
	return d.config.maxConcurrency
}

func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.DriverClosed = true
}

func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

type partition int

type batchSession struct {
	driver *Driver
	closed atomic.Bool
}

func (s *batchSession) Partitions(ctx context.Context, stmt *core.Statement) ([]core.Partition, error) {
	eff, ok := s.driver.config.querySideEffects[stmt.SQL]
	if ok {
		err := eff(ctx)
		if err != nil {
			return nil, fmt.Errorf("side effect error: %w", err)
		}
	}

	parts := make([]core.Partition, len(s.driver.chunks))
	for i := range s.driver.chunks {
		parts[i] = partition(i)
	}
	return parts, nil
}

func (s *batchSession) ExecutePartition(ctx context.Context, p core.Partition) (*core.Chunk, error) {
	idx, ok := p.(partition)
	if !ok {
		return nil, fmt.Errorf("unknown partition: %v", p)
	}

	d := s.driver
	n := int(d.inFlight.Add(1))
	defer d.inFlight.Add(-1)

	d.mu.Lock()
	d.stats.PartitionsExecuted++
	if n > d.stats.MaxInFlight {
		d.stats.MaxInFlight = n
	}
	d.mu.Unlock()

	if d.config.partitionSleep > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.config.partitionSleep):
		}
	}

	eff, ok := d.config.partitionSideEffects[int(idx)]
	if ok {
		err := eff(ctx)
		if err != nil {
			return nil, fmt.Errorf("side effect error: %w", err)
		}
	}

	return d.chunks[idx], nil
}

func (s *batchSession) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	s.driver.stats.SessionsClosed++
}

var _ core.Adapter = (*Adapter)(nil)

// Adapter hands out the same mock driver on every connect.
type Adapter struct {
	driver *Driver
}

func NewAdapter(chunks []*core.Chunk, opts ...AdapterOption) *Adapter {
	return &Adapter{
		driver: NewDriver(chunks, opts...),
	}
}

func (a *Adapter) Connect(_ string) (core.Driver, error) {
	if a.driver.config.connectErr != nil {
		return nil, a.driver.config.connectErr
	}
	return a.driver, nil
}

func (a *Adapter) Driver() *Driver {
	return a.driver
}
