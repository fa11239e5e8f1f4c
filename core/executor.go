package core

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency mirrors the usual thread pool default of
// min(32, cpus+4).
func DefaultMaxConcurrency() int {
	n := runtime.NumCPU() + 4
	if n > 32 {
		n = 32
	}
	return n
}

type ExecutorOption func(*Executor)

// WithMaxConcurrency bounds the number of partitions executed at once.
// Values < 1 select DefaultMaxConcurrency.
func WithMaxConcurrency(n int) ExecutorOption {
	return func(e *Executor) {
		if n < 1 {
			n = DefaultMaxConcurrency()
		}
		e.maxConcurrency = n
	}
}

func WithExecutorLogger(l Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// Executor fans a query out into partitions, runs them concurrently and
// merges their chunks into a single result set.
type Executor struct {
	provider       BatchSessionProvider
	maxConcurrency int
	log            Logger
}

func NewExecutor(provider BatchSessionProvider, opts ...ExecutorOption) *Executor {
	e := &Executor{
		provider:       provider,
		maxConcurrency: DefaultMaxConcurrency(),
		log:            nopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) MaxConcurrency() int {
	return e.maxConcurrency
}

// Run executes stmt and blocks until every partition has finished.
// A single failed partition fails the whole run; partial results are never
// returned.
func (e *Executor) Run(ctx context.Context, stmt *Statement) (*ResultSet, error) {
	runID := uuid.New().String()
	start := time.Now()

	session, err := e.provider.BatchSession(ctx)
	if err != nil {
		return nil, asTransportError(stmt.SQL, -1, err)
	}
	defer session.Close()

	partitions, err := session.Partitions(ctx, stmt)
	if err != nil {
		return nil, asPartitionError(stmt.SQL, err)
	}
	e.log.Debugf("run %s: query decomposed into %d partitions (max concurrency %d)", runID, len(partitions), e.maxConcurrency)

	m := new(merger)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrency)
	for i, p := range partitions {
		g.Go(func() error {
			// another partition already failed
			if err := gctx.Err(); err != nil {
				return asTransportError(stmt.SQL, i, err)
			}

			chunk, err := session.ExecutePartition(gctx, p)
			if err != nil {
				return asTransportError(stmt.SQL, i, err)
			}

			m.add(chunk)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.log.Warnf("run %s: failed after %s: %s", runID, time.Since(start), err)
		return nil, err
	}

	rs := m.result()
	e.log.Infof("run %s: %d rows from %d partitions in %s", runID, len(rs.Rows), len(partitions), time.Since(start))
	return rs, nil
}

// merger accumulates chunks from concurrently finishing partitions.
type merger struct {
	mu     sync.Mutex
	schema Schema
	rows   []Row
}

func (m *merger) add(c *Chunk) {
	if c == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schema == nil && len(c.Schema) > 0 {
		m.schema = c.Schema
	}
	m.rows = append(m.rows, c.Rows...)
}

func (m *merger) result() *ResultSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs := &ResultSet{
		Schema: m.schema,
		Rows:   m.rows,
	}
	if rs.Schema == nil {
		rs.Schema = Schema{}
	}
	if rs.Rows == nil {
		rs.Rows = []Row{}
	}
	return rs
}
