// Package testhelpers provides helpers for integration tests.
package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/kndndrj/spanalytics/core"
	"github.com/kndndrj/spanalytics/frame"
)

// eventTimeout is the maximum time to wait for a call to finish
const eventTimeout = 30 * time.Second

// errTimeOut is an error for when a call did not finish within the expected time.
var errTimeOut = fmt.Errorf("call did not finish within %v", eventTimeout)

// GetContainerProvider returns the container provider type to use for the tests.
// If we detect podman is available, we use it, otherwise we use docker.
func GetContainerProvider() testcontainers.ProviderType {
	if _, err := exec.LookPath("podman"); err == nil {
		fmt.Println("Podman detected. Remember to set TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED=true;")
		return testcontainers.ProviderPodman
	}
	return testcontainers.ProviderDocker
}

// GetResult executes the query as an async call and waits for it to finish.
// It returns the result table together with all states the call went through.
func GetResult(t *testing.T, c *core.Connection, query string) (*frame.Table, []core.CallState, error) {
	t.Helper()

	var mu sync.Mutex
	states := make([]core.CallState, 0)

	call := c.Execute(core.NewStatement(query), func(state core.CallState, _ *core.Call) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
	})

	select {
	case <-call.Done():
		mu.Lock()
		defer mu.Unlock()

		if call.GetState() != core.CallStateDone {
			return nil, states, call.Err()
		}
		table, err := call.GetResult()
		require.NoError(t, err)
		return table, states, nil

	case <-time.After(eventTimeout):
		call.Cancel()
		return nil, nil, errTimeOut
	}
}

// GetTestDataPath returns the path to the testdata directory.
func GetTestDataPath() (string, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to get current file path")
	}

	return filepath.Join(filepath.Dir(currentFile), "../testdata"), nil
}

// GetTestDataStatements reads a file from the testdata directory and splits
// it into ';' terminated statements.
func GetTestDataStatements(filename string) ([]string, error) {
	testDataPath, err := GetTestDataPath()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(filepath.Join(testDataPath, filename))
	if err != nil {
		return nil, err
	}

	var out []string
	for _, stmt := range strings.Split(string(b), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out, nil
}
