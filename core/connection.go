package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/kndndrj/spanalytics/frame"
)

var ErrNoDriver = errors.New("connection has no driver")

type (
	// Adapter is an object which allows to connect to a database via url.
	Adapter interface {
		Connect(url string) (Driver, error)
	}

	// Driver is a connected database client capable of partitioned reads.
	Driver interface {
		BatchSessionProvider
		Close()
	}

	// ConcurrencyLimiter is an optional interface for drivers which carry
	// their own partition concurrency setting (e.g. from the connection url).
	ConcurrencyLimiter interface {
		MaxConcurrency() int
	}
)

type ConnectionID string

type ConnectionOption func(*connectionConfig)

type connectionConfig struct {
	log              Logger
	executorOpts     []ExecutorOption
	materializerOpts []MaterializerOption
}

func ConnectionWithLogger(l Logger) ConnectionOption {
	return func(c *connectionConfig) {
		if l != nil {
			c.log = l
		}
	}
}

func ConnectionWithExecutorOpts(opts ...ExecutorOption) ConnectionOption {
	return func(c *connectionConfig) {
		c.executorOpts = append(c.executorOpts, opts...)
	}
}

func ConnectionWithMaterializerOpts(opts ...MaterializerOption) ConnectionOption {
	return func(c *connectionConfig) {
		c.materializerOpts = append(c.materializerOpts, opts...)
	}
}

type Connection struct {
	params           *ConnectionParams
	unexpandedParams *ConnectionParams

	driver       Driver
	executor     *Executor
	materializer *Materializer
	log          Logger
}

func (c *Connection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.params)
}

func NewConnection(params *ConnectionParams, adapter Adapter, opts ...ConnectionOption) (*Connection, error) {
	cfg := &connectionConfig{
		log: nopLogger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	expanded := params.Expand()

	if expanded.ID == "" {
		expanded.ID = ConnectionID(uuid.New().String())
	}

	driver, err := adapter.Connect(expanded.URL)
	if err != nil {
		return nil, fmt.Errorf("adapter.Connect: %w", err)
	}
	if driver == nil {
		return nil, ErrNoDriver
	}

	// driver level concurrency goes first so explicit options win
	execOpts := []ExecutorOption{WithExecutorLogger(cfg.log)}
	if limiter, ok := driver.(ConcurrencyLimiter); ok && limiter.MaxConcurrency() > 0 {
		execOpts = append(execOpts, WithMaxConcurrency(limiter.MaxConcurrency()))
	}
	execOpts = append(execOpts, cfg.executorOpts...)

	c := &Connection{
		params:           expanded,
		unexpandedParams: params,

		driver:       driver,
		executor:     NewExecutor(driver, execOpts...),
		materializer: NewMaterializer(cfg.materializerOpts...),
		log:          cfg.log,
	}

	return c, nil
}

func (c *Connection) GetID() ConnectionID {
	return c.params.ID
}

func (c *Connection) GetName() string {
	return c.params.Name
}

func (c *Connection) GetType() string {
	return c.params.Type
}

func (c *Connection) GetURL() string {
	return c.params.URL
}

// GetParams returns the original source for this connection
func (c *Connection) GetParams() *ConnectionParams {
	return c.unexpandedParams
}

func (c *Connection) MaxConcurrency() int {
	return c.executor.MaxConcurrency()
}

// Query runs the statement on all partitions and returns the merged raw
// result set.
func (c *Connection) Query(ctx context.Context, stmt *Statement) (*ResultSet, error) {
	return c.executor.Run(ctx, stmt)
}

// ExecuteSQL runs the statement with Data Boost partitioning and returns the
// fully materialized result.
func (c *Connection) ExecuteSQL(ctx context.Context, stmt *Statement) (*frame.Table, error) {
	rs, err := c.executor.Run(ctx, stmt)
	if err != nil {
		return nil, err
	}

	table, err := c.materializer.Build(rs.Schema, rs.Rows)
	if err != nil {
		return nil, err
	}

	return table, nil
}

// Execute runs the statement asynchronously. onEvent is called on every
// state change of the returned call.
func (c *Connection) Execute(stmt *Statement, onEvent func(CallState, *Call)) *Call {
	exec := func(ctx context.Context) (*ResultSet, error) {
		return c.executor.Run(ctx, stmt)
	}

	return newCallFromExecutor(exec, c.materializer, stmt.SQL, onEvent)
}

func (c *Connection) Close() {
	c.driver.Close()
}
