package stategraph

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// forkJoin runs the branches of fork concurrently on cloned state and
// merges them. It returns the merged state, the node to continue from
// (END when the branches never converge) and every branch's node updates
// in branch order.
func (ex *execution[S]) forkJoin(ec *executionContext, fork *ForkNode, state S) (S, string, []S, error) {
	startTime := time.Now()
	hook := ex.cg.branchHook
	fjConfig := ex.cg.forkJoinConfig

	var branchCtx context.Context = ec
	if fjConfig.MergeTimeout > 0 {
		var cancel context.CancelFunc
		branchCtx, cancel = context.WithTimeout(branchCtx, fjConfig.MergeTimeout)
		defer cancel()
	}

	// Clone state for each branch
	initial := make([]S, len(fork.Branches))
	for i, branchID := range fork.Branches {
		cloned, err := cloneState(state, branchID)
		if err != nil {
			return state, "", nil, fmt.Errorf("fork node %s: %w", fork.NodeID, err)
		}

		if hook != nil {
			cloned, err = hook.OnFork(ec, branchID, cloned)
			if err != nil {
				return state, "", nil, fmt.Errorf("fork node %s: OnFork hook for branch %s: %w",
					fork.NodeID, branchID, err)
			}
		}

		initial[i] = cloned
	}

	// With FailFast the group context cancels the other branches on the
	// first failure; otherwise every branch runs to completion.
	var g *errgroup.Group
	groupCtx := branchCtx
	if fjConfig.FailFast {
		g, groupCtx = errgroup.WithContext(branchCtx)
	} else {
		g = new(errgroup.Group)
	}
	if fjConfig.MaxConcurrency > 0 {
		g.SetLimit(fjConfig.MaxConcurrency)
	}

	results := make([]BranchResult[S], len(fork.Branches))
	for i, branchID := range fork.Branches {
		g.Go(func() error {
			bec := ec.withContext(groupCtx)
			result := ex.runBranch(bec, branchID, initial[i], fork.JoinNodeID)
			results[i] = result

			if result.Error != nil {
				if hook != nil {
					hook.OnBranchError(bec, branchID, result.State, result.Error)
				}
				if fjConfig.FailFast {
					return result.Error
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	// Report the first failed branch in declaration order
	for _, r := range results {
		if r.Error != nil {
			return state, "", nil, &ForkJoinError{
				ForkNodeID: fork.NodeID,
				BranchID:   r.BranchID,
				Err:        r.Error,
			}
		}
	}

	if hook != nil {
		branchStates := make(map[string]S, len(results))
		for _, r := range results {
			branchStates[r.BranchID] = r.State
		}
		if err := hook.OnJoin(ec, branchStates); err != nil {
			return state, "", nil, fmt.Errorf("fork node %s: OnJoin hook: %w", fork.NodeID, err)
		}
	}

	merged, err := mergeBranches(state, results, ex.cg.reducer)
	if err != nil {
		return state, "", nil, &ForkJoinError{ForkNodeID: fork.NodeID, Err: err}
	}

	var updates []S
	for _, r := range results {
		updates = append(updates, r.Updates...)
	}

	join := fork.JoinNodeID
	if join == "" {
		join = END
	}

	ex.log.ForkJoined(fork.NodeID, join, len(fork.Branches), time.Since(startTime))

	return merged, join, updates, nil
}

// runBranch executes a single branch from its start node until it reaches
// the join node or END. Nested forks inside the branch run recursively.
func (ex *execution[S]) runBranch(ec *executionContext, branchID string, state S, joinNodeID string) BranchResult[S] {
	startTime := time.Now()
	result := func(s S, updates []S, err error) BranchResult[S] {
		return BranchResult[S]{
			BranchID: branchID,
			State:    s,
			Updates:  updates,
			Error:    err,
			Duration: time.Since(startTime),
		}
	}

	var updates []S
	current := branchID
	iterations := 0

	for current != joinNodeID && current != END {
		iterations++
		if iterations > ex.cfg.maxIterations {
			return result(state, updates, &MaxIterationsError{
				Max:        ex.cfg.maxIterations,
				LastNodeID: current,
				State:      state,
			})
		}

		if err := ec.Err(); err != nil {
			return result(state, updates, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  err,
			})
		}

		scope := newInterruptScope(current, nil)
		scope.inBranch = true

		next, update, goTo, _, err := ex.runNode(ec, current, state, scope)
		if err != nil {
			return result(next, updates, err)
		}
		state = next
		updates = append(updates, update)

		if fork := ex.cg.forkNodes[current]; fork != nil && goTo == "" {
			merged, join, nested, err := ex.forkJoin(ec, fork, state)
			if err != nil {
				return result(state, updates, err)
			}
			state = merged
			updates = append(updates, nested...)
			current = join
			continue
		}

		current, err = ex.nextNode(ec, state, current, goTo)
		if err != nil {
			return result(state, updates, err)
		}
	}

	return result(state, updates, nil)
}
