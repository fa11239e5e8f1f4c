package mock

import (
	"context"
	"time"
)

type adapterConfig struct {
	querySideEffects     map[string]func(context.Context) error
	partitionSideEffects map[int]func(context.Context) error
	partitionSleep       time.Duration
	connectErr           error
	sessionErr           error
	maxConcurrency       int
}

type AdapterOption func(*adapterConfig)

// AdapterWithQuerySideEffect registers a function that runs when the query is
// partitioned. A non nil error fails partitioning.
func AdapterWithQuerySideEffect(query string, sideEffect func(context.Context) error) AdapterOption {
	return func(c *adapterConfig) {
		_, ok := c.querySideEffects[query]
		if ok {
			panic("side effect already registered for query: " + query)
		}

		c.querySideEffects[query] = sideEffect
	}
}

// AdapterWithPartitionSideEffect registers a function that runs before the
// partition with the given index is executed.
func AdapterWithPartitionSideEffect(index int, sideEffect func(context.Context) error) AdapterOption {
	return func(c *adapterConfig) {
		_, ok := c.partitionSideEffects[index]
		if ok {
			panic("side effect already registered for partition")
		}

		c.partitionSideEffects[index] = sideEffect
	}
}

// AdapterWithPartitionSleep delays every partition execution.
func AdapterWithPartitionSleep(d time.Duration) AdapterOption {
	return func(c *adapterConfig) {
		c.partitionSleep = d
	}
}

func AdapterWithConnectError(err error) AdapterOption {
	return func(c *adapterConfig) {
		c.connectErr = err
	}
}

// AdapterWithSessionError makes opening a batch session fail.
func AdapterWithSessionError(err error) AdapterOption {
	return func(c *adapterConfig) {
		c.sessionErr = err
	}
}

// AdapterWithMaxConcurrency sets the concurrency reported by the driver.
func AdapterWithMaxConcurrency(n int) AdapterOption {
	return func(c *adapterConfig) {
		c.maxConcurrency = n
	}
}
