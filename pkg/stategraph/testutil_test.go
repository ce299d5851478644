package stategraph

import (
	"context"
	"sync"
)

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int `json:"value"`
}

// State is a more complex state for testing various scenarios.
type State struct {
	Step     int      `json:"step"`
	Progress []string `json:"progress"`
	Initial  string   `json:"initial"`
	Output   string   `json:"output"`
	Done     bool     `json:"done"`
	GoLeft   bool     `json:"go_left"`
	Count    int      `json:"count"`
}

// Ticket is a state with a routing field, used by path map tests.
type Ticket struct {
	Priority string `json:"priority"`
	Queue    string `json:"queue"`
	Approved bool   `json:"approved"`
	Notes    string `json:"notes"`
}

// Log accumulates entries through its reducer.
type Log struct {
	Entries []string `json:"entries"`
	Count   int      `json:"count"`
}

// appendLog appends update's entries and adds its count.
func appendLog(current, update Log) Log {
	return Log{
		Entries: append(append([]string(nil), current.Entries...), update.Entries...),
		Count:   current.Count + update.Count,
	}
}

func logEntry(entry string) NodeFunc[Log] {
	return func(ctx Context, _ Log) (Log, error) {
		return Log{Entries: []string{entry}, Count: 1}, nil
	}
}

// increment is a node that increments the counter.
func increment(ctx Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

// passthrough returns the state unchanged.
func passthrough[S any](ctx Context, s S) (S, error) {
	return s, nil
}

// tracker records node executions from concurrent branches.
type tracker struct {
	mu    sync.Mutex
	calls []string
}

func (t *tracker) add(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, name)
}

func (t *tracker) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

// makeTrackingNode creates a node that records its execution.
func makeTrackingNode(name string, tr *tracker) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		tr.add(name)
		s.Progress = append(s.Progress, name)
		return s, nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode(err error) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		return s, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		panic(value)
	}
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}

// mustCompile compiles g or fails the test.
func mustCompile[S any](t interface {
	Helper()
	Fatalf(string, ...any)
}, g *Graph[S]) *CompiledGraph[S] {
	t.Helper()
	compiled, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	return compiled
}
