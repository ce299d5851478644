package stategraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// ParallelState lets a state type control how it is copied into parallel
// branches and folded back together at the join.
//
// States without it are copied through JSON. Branch results are then folded
// through the graph reducer when there is one. Otherwise each top-level
// field a branch changed is taken from that branch, and two branches writing
// different values to one field fail with ErrConflictingUpdate.
//
//	func (s Research) Clone(string) Research {
//	    s.Notes = slices.Clone(s.Notes)
//	    return s
//	}
//
//	func (s Research) Merge(branches map[string]Research) Research {
//	    for _, b := range branches {
//	        s.Notes = append(s.Notes, b.Notes...)
//	    }
//	    return s
//	}
type ParallelState[S any] interface {
	Clone(branchID string) S
	// Merge is called on the state at the fork with each branch's final
	// state, keyed by branch ID.
	Merge(branches map[string]S) S
}

// BranchHook observes a fan-out. OnFork runs once per branch before it
// starts and may replace the branch's initial state. After the branches
// finish, either OnJoin runs with every branch state or OnBranchError runs
// for each branch that failed. An error from OnFork or OnJoin fails the
// whole fan-out.
type BranchHook[S any] interface {
	OnFork(ctx Context, branchID string, state S) (S, error)
	OnJoin(ctx Context, branchStates map[string]S) error
	OnBranchError(ctx Context, branchID string, state S, err error)
}

// ForkJoinConfig tunes parallel branches. The zero value runs every branch
// at once, waits for all of them and never times out.
type ForkJoinConfig struct {
	MaxConcurrency int           // 0 is unlimited
	FailFast       bool          // cancel the other branches on the first failure
	MergeTimeout   time.Duration // 0 waits forever
}

// DefaultForkJoinConfig runs every branch at once, waits for all of them
// and never times out the merge.
func DefaultForkJoinConfig() ForkJoinConfig { return ForkJoinConfig{} }

// SetBranchHook installs h around every parallel branch.
func (g *Graph[S]) SetBranchHook(h BranchHook[S]) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.branchHook = h
	return g
}

// SetForkJoinConfig controls concurrency, failure handling and the merge
// timeout of parallel branches.
func (g *Graph[S]) SetForkJoinConfig(c ForkJoinConfig) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forkJoinConfig = c
	return g
}

// ForkNode is a node, or START, whose fixed edges fan out. Each branch is
// named after its first node. JoinNodeID is empty when the branches only
// meet at END.
type ForkNode struct {
	NodeID     string
	Branches   []string
	JoinNodeID string
}

// JoinNode is where a fork's branches meet again.
type JoinNode struct {
	NodeID           string
	ForkNodeID       string
	ExpectedBranches []string
}

// BranchResult is one branch's outcome. Updates are the raw node outputs in
// the order they ran; State is what the branch ended with.
type BranchResult[S any] struct {
	BranchID string
	State    S
	Updates  []S
	Error    error
	Duration time.Duration
}

func cloneState[S any](state S, branchID string) (S, error) {
	if ps, ok := any(state).(ParallelState[S]); ok {
		return ps.Clone(branchID), nil
	}
	var clone S
	data, err := json.Marshal(state)
	if err == nil {
		err = json.Unmarshal(data, &clone)
	}
	if err != nil {
		var zero S
		return zero, fmt.Errorf("clone state for branch %s: %w", branchID, err)
	}
	return clone, nil
}

// mergeBranches combines branch results, in branch order, into one state.
func mergeBranches[S any](original S, results []BranchResult[S], reducer Reducer[S]) (S, error) {
	if ps, ok := any(original).(ParallelState[S]); ok {
		states := make(map[string]S, len(results))
		for _, r := range results {
			states[r.BranchID] = r.State
		}
		return ps.Merge(states), nil
	}

	if reducer != nil {
		merged := original
		for _, r := range results {
			for _, update := range r.Updates {
				merged = reducer(merged, update)
			}
		}
		return merged, nil
	}

	return diffMerge(original, results)
}

// diffMerge applies each branch's changed top-level JSON fields to the
// original state.
func diffMerge[S any](original S, results []BranchResult[S]) (S, error) {
	base, isObject, err := jsonFields(original)
	if err != nil {
		return original, err
	}
	if !isObject {
		return scalarMerge(original, results)
	}

	merged := maps.Clone(base)
	writers := make(map[string]string)

	for _, r := range results {
		fields, _, err := jsonFields(r.State)
		if err != nil {
			return original, err
		}

		changed := make(map[string]json.RawMessage)
		for k, v := range fields {
			if !bytes.Equal(base[k], v) {
				changed[k] = v
			}
		}
		for k := range base {
			if _, ok := fields[k]; !ok {
				changed[k] = nil
			}
		}

		for k, v := range changed {
			if w, seen := writers[k]; seen && !bytes.Equal(merged[k], v) {
				return original, &ConflictError{Field: k, Branches: []string{w, r.BranchID}}
			}
			writers[k] = r.BranchID
			merged[k] = v
		}
	}

	for k, v := range merged {
		if v == nil {
			delete(merged, k)
		}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return original, fmt.Errorf("merge branches: %w", err)
	}
	var out S
	if err := json.Unmarshal(data, &out); err != nil {
		return original, fmt.Errorf("merge branches: %w", err)
	}
	return out, nil
}

// scalarMerge handles states that are not JSON objects: at most one
// distinct changed value is allowed.
func scalarMerge[S any](original S, results []BranchResult[S]) (S, error) {
	base, err := json.Marshal(original)
	if err != nil {
		return original, fmt.Errorf("merge branches: %w", err)
	}

	merged := original
	var (
		mergedBytes []byte
		writer      string
	)
	for _, r := range results {
		data, err := json.Marshal(r.State)
		if err != nil {
			return original, fmt.Errorf("merge branches: %w", err)
		}
		if bytes.Equal(data, base) {
			continue
		}
		if writer != "" && !bytes.Equal(data, mergedBytes) {
			return original, &ConflictError{Branches: []string{writer, r.BranchID}}
		}
		merged, mergedBytes, writer = r.State, data, r.BranchID
	}
	return merged, nil
}

// jsonFields splits a value's JSON object encoding into top-level fields.
// isObject is false for values that do not encode as an object.
func jsonFields(v any) (fields map[string]json.RawMessage, isObject bool, err error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false, fmt.Errorf("merge branches: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false, nil
	}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false, fmt.Errorf("merge branches: %w", err)
	}
	return fields, true, nil
}
