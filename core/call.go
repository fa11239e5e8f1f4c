package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/kndndrj/spanalytics/frame"
)

type (
	CallID string

	Call struct {
		mu sync.RWMutex

		id        CallID
		query     string
		state     CallState
		timeTaken time.Duration
		timestamp time.Time

		result     *frame.Table
		cancelFunc func()

		// any error that might occur during execution
		err  error
		done chan struct{}
	}
)

// callPersistent is used for marshaling and unmarshaling the call
type callPersistent struct {
	ID        string `json:"id"`
	Query     string `json:"query"`
	State     string `json:"state"`
	TimeTaken int64  `json:"time_taken_us"`
	Timestamp int64  `json:"timestamp_us"`
	Rows      int    `json:"rows"`
	Error     string `json:"error,omitempty"`
}

func (c *Call) toPersistent() *callPersistent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	errMsg := ""
	if c.err != nil {
		errMsg = c.err.Error()
	}

	rows := 0
	if c.result != nil {
		rows = c.result.NumRows()
	}

	return &callPersistent{
		ID:        string(c.id),
		Query:     c.query,
		State:     c.state.String(),
		TimeTaken: c.timeTaken.Microseconds(),
		Timestamp: c.timestamp.UnixMicro(),
		Rows:      rows,
		Error:     errMsg,
	}
}

func (c *Call) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toPersistent())
}

// UnmarshalJSON restores call metadata. Results are not persisted, so a
// restored call never has a result.
func (c *Call) UnmarshalJSON(data []byte) error {
	var alias callPersistent

	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	done := make(chan struct{})
	close(done)

	state := CallStateFromString(alias.State)
	if !state.IsFinal() {
		state = CallStateUnknown
	}

	var callErr error
	if alias.Error != "" {
		callErr = errors.New(alias.Error)
	}

	*c = Call{
		id:        CallID(alias.ID),
		query:     alias.Query,
		state:     state,
		timeTaken: time.Duration(alias.TimeTaken) * time.Microsecond,
		timestamp: time.UnixMicro(alias.Timestamp),
		err:       callErr,

		done: done,
	}

	return nil
}

func newCallFromExecutor(executor func(context.Context) (*ResultSet, error), materializer *Materializer, query string, onEvent func(CallState, *Call)) *Call {
	c := &Call{
		id:    CallID(uuid.New().String()),
		query: query,
		state: CallStateUnknown,

		done: make(chan struct{}),
	}

	eventsCh := make(chan CallState, 10)

	ctx, cancel := context.WithCancel(context.Background())
	c.timestamp = time.Now()
	c.cancelFunc = cancel

	// event function handler, done is closed only after the final event was
	// delivered
	go func() {
		defer close(c.done)
		for state := range eventsCh {
			c.mu.Lock()
			if c.state.IsFinal() {
				c.mu.Unlock()
				continue
			}
			c.state = state
			c.mu.Unlock()

			// trigger event callback
			if onEvent != nil {
				onEvent(state, c)
			}
		}
	}()

	finish := func(state CallState, result *frame.Table, err error) {
		c.mu.Lock()
		c.timeTaken = time.Since(c.timestamp)
		c.result = result
		c.err = err
		c.mu.Unlock()
		eventsCh <- state
	}

	go func() {
		defer close(eventsCh)
		defer cancel()

		// execute the function
		eventsCh <- CallStateExecuting
		rs, err := executor(ctx)
		if err != nil {
			if ctx.Err() != nil {
				finish(CallStateCanceled, nil, err)
				return
			}
			finish(CallStateExecutingFailed, nil, err)
			return
		}

		eventsCh <- CallStateMaterializing
		table, err := materializer.Build(rs.Schema, rs.Rows)
		if err != nil {
			finish(CallStateMaterializingFailed, nil, err)
			return
		}

		finish(CallStateDone, table, nil)
	}()

	return c
}

func (c *Call) GetID() CallID {
	return c.id
}

func (c *Call) GetQuery() string {
	return c.query
}

func (c *Call) GetState() CallState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Call) GetTimeTaken() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeTaken
}

func (c *Call) GetTimestamp() time.Time {
	return c.timestamp
}

func (c *Call) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Done returns a non-buffered channel that is closed when
// call finishes.
func (c *Call) Done() chan struct{} {
	return c.done
}

// Cancel stops a call that is still executing. Materialization is not
// interrupted.
func (c *Call) Cancel() {
	if c.GetState() > CallStateExecuting {
		return
	}
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// GetResult returns the materialized table of a finished call.
func (c *Call) GetResult() (*frame.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.result != nil {
		return c.result, nil
	}
	if c.err != nil {
		return nil, c.err
	}
	return nil, ErrCallNotFinished
}
