package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/kndndrj/spanalytics/core"
	"github.com/kndndrj/spanalytics/core/mock"
)

// eventRecorder collects call states from the event callback.
type eventRecorder struct {
	mu     sync.Mutex
	states []core.CallState
}

func (e *eventRecorder) record(state core.CallState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states = append(e.states, state)
}

func (e *eventRecorder) get() []core.CallState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.CallState(nil), e.states...)
}

func waitForCall(t *testing.T, call *core.Call) {
	t.Helper()

	select {
	case <-call.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("call did not finish in expected time")
	}
}

func TestCall_Success(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(
		mock.SplitChunks(mock.SampleSchema(), mock.SampleRows(), 2),
		mock.AdapterWithPartitionSleep(50*time.Millisecond),
	)

	connection, err := core.NewConnection(&core.ConnectionParams{}, adapter)
	r.NoError(err)

	events := new(eventRecorder)
	var resultRows int
	call := connection.Execute(core.NewStatement("_"), func(state core.CallState, c *core.Call) {
		events.record(state)

		if state == core.CallStateDone {
			result, err := c.GetResult()
			if err == nil {
				resultRows = result.NumRows()
			}
		}
	})

	waitForCall(t, call)

	r.Equal([]core.CallState{
		core.CallStateExecuting,
		core.CallStateMaterializing,
		core.CallStateDone,
	}, events.get())
	r.Equal(3, resultRows)

	r.Equal(core.CallStateDone, call.GetState())
	r.NoError(call.Err())
	r.NotZero(call.GetTimeTaken())
	r.Equal("_", call.GetQuery())

	result, err := call.GetResult()
	r.NoError(err)
	r.Equal(18, result.NumCols())
}

func TestCall_Cancel(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(nil,
		mock.AdapterWithQuerySideEffect("wait", func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Second):
			}
			return nil
		}),
	)

	connection, err := core.NewConnection(&core.ConnectionParams{}, adapter)
	r.NoError(err)

	events := new(eventRecorder)
	call := connection.Execute(core.NewStatement("wait"), func(state core.CallState, c *core.Call) {
		// cancel as soon as the first event arrives
		c.Cancel()
		events.record(state)
	})

	waitForCall(t, call)

	r.Equal([]core.CallState{
		core.CallStateExecuting,
		core.CallStateCanceled,
	}, events.get())
	r.ErrorIs(call.Err(), context.Canceled)

	_, err = call.GetResult()
	r.ErrorIs(err, context.Canceled)
}

func TestCall_FailedQuery(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(nil,
		mock.AdapterWithQuerySideEffect("fail", func(ctx context.Context) error {
			return errors.New("query failed")
		}),
	)

	connection, err := core.NewConnection(&core.ConnectionParams{}, adapter)
	r.NoError(err)

	events := new(eventRecorder)
	call := connection.Execute(core.NewStatement("fail"), func(state core.CallState, c *core.Call) {
		events.record(state)
	})

	waitForCall(t, call)

	r.Equal([]core.CallState{
		core.CallStateExecuting,
		core.CallStateExecutingFailed,
	}, events.get())

	var partErr *core.PartitionError
	r.True(errors.As(call.Err(), &partErr))
}

func TestCall_FailedMaterialization(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter([]*core.Chunk{
		{Schema: core.Schema{{Name: "s", Type: core.TypeCodeStruct}}},
	})

	connection, err := core.NewConnection(&core.ConnectionParams{}, adapter)
	r.NoError(err)

	events := new(eventRecorder)
	call := connection.Execute(core.NewStatement("select struct"), func(state core.CallState, c *core.Call) {
		events.record(state)
	})

	waitForCall(t, call)

	r.Equal([]core.CallState{
		core.CallStateExecuting,
		core.CallStateMaterializing,
		core.CallStateMaterializingFailed,
	}, events.get())

	var unsupported *core.UnsupportedTypeError
	r.True(errors.As(call.Err(), &unsupported))
}

func TestCall_GetResultBeforeFinish(t *testing.T) {
	r := require.New(t)

	adapter := mock.NewAdapter(
		mock.SplitChunks(intSchema, mock.IntRows(0, 2), 1),
		mock.AdapterWithPartitionSleep(200*time.Millisecond),
	)

	connection, err := core.NewConnection(&core.ConnectionParams{}, adapter)
	r.NoError(err)

	call := connection.Execute(core.NewStatement("_"), nil)

	_, err = call.GetResult()
	r.ErrorIs(err, core.ErrCallNotFinished)

	waitForCall(t, call)

	result, err := call.GetResult()
	r.NoError(err)
	r.Equal(2, result.NumRows())
}

func TestCall_MarshalJSON(t *testing.T) {
	r := require.New(t)

	connection, err := core.NewConnection(&core.ConnectionParams{},
		mock.NewAdapter(mock.SplitChunks(intSchema, mock.IntRows(0, 5), 2)))
	r.NoError(err)

	call := connection.Execute(core.NewStatement("select n from t"), nil)
	waitForCall(t, call)

	out, err := json.Marshal(call)
	r.NoError(err)

	var raw map[string]any
	r.NoError(json.Unmarshal(out, &raw))
	r.Equal("select n from t", raw["query"])
	r.Equal("done", raw["state"])
	r.Equal(float64(5), raw["rows"])

	var restored core.Call
	r.NoError(json.Unmarshal(out, &restored))
	r.Equal(call.GetID(), restored.GetID())
	r.Equal(core.CallStateDone, restored.GetState())
	r.Equal(call.GetTimeTaken().Microseconds(), restored.GetTimeTaken().Microseconds())

	// restored calls are finished, but carry no data
	select {
	case <-restored.Done():
	default:
		t.Error("restored call should be done")
	}
	_, err = restored.GetResult()
	r.ErrorIs(err, core.ErrCallNotFinished)
}

func TestCallState_String(t *testing.T) {
	r := require.New(t)

	states := []core.CallState{
		core.CallStateUnknown,
		core.CallStateExecuting,
		core.CallStateExecutingFailed,
		core.CallStateMaterializing,
		core.CallStateMaterializingFailed,
		core.CallStateDone,
		core.CallStateCanceled,
	}

	for _, s := range states {
		r.Equal(s, core.CallStateFromString(s.String()))
	}
	r.Equal(core.CallStateUnknown, core.CallStateFromString("bogus"))

	r.True(core.CallStateDone.IsFinal())
	r.False(core.CallStateExecuting.IsFinal())
}
