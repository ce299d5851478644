package stategraph_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

func TestResume_FinishedThreadRunsNothing(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	l := &runLog{}
	compiled := abcGraph(t, l, nil)

	_, err := compiled.Run(context.Background(), CheckpointState{}, withThread(store, "done")...)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, l.take())

	result, err := compiled.Resume(context.Background(), store, "done")
	require.NoError(t, err)
	assert.Empty(t, l.take())
	assert.Equal(t, 3, result.Value)
}

func TestResume_AfterCrash(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	l := &runLog{}
	crash := true
	compiled := abcGraph(t, l, func() bool { return crash })

	_, err := compiled.Run(context.Background(), CheckpointState{}, withThread(store, "crash")...)
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, l.take())

	snap, err := compiled.GetState(context.Background(), store, "crash")
	require.NoError(t, err)
	assert.Equal(t, "a", snap.NodeID)
	assert.Equal(t, "b", snap.Next)

	crash = false
	result, err := compiled.Resume(context.Background(), store, "crash")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, l.take())
	assert.Equal(t, 3, result.Value)
	assert.Equal(t, []string{"a", "b", "c"}, result.Messages)
}

func TestResumeFrom_SpecificNode(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	l := &runLog{}
	compiled := abcGraph(t, l, nil)

	_, err := compiled.Run(context.Background(), CheckpointState{}, withThread(store, "from")...)
	require.NoError(t, err)
	l.take()

	result, err := compiled.ResumeFrom(context.Background(), store, "from", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, l.take())
	assert.Equal(t, 3, result.Value)

	_, err = compiled.ResumeFrom(context.Background(), store, "from", "missing")
	assert.ErrorIs(t, err, stategraph.ErrNoCheckpoints)
}

func TestResume_Options(t *testing.T) {
	ctx := context.Background()

	t.Run("replay node", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		l := &runLog{}
		compiled := abcGraph(t, l, nil)
		_, err := compiled.Run(ctx, CheckpointState{}, withThread(store, "replay")...)
		require.NoError(t, err)
		l.take()

		result, err := compiled.Resume(ctx, store, "replay", stategraph.WithReplayNode())
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, l.take())
		assert.Equal(t, 4, result.Value)
	})

	t.Run("state override", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		l := &runLog{}
		compiled := abcGraph(t, l, nil)
		_, err := compiled.ResumeFrom(ctx, store, "override", "a")
		require.ErrorIs(t, err, stategraph.ErrNoCheckpoints)

		_, err = compiled.Run(ctx, CheckpointState{}, withThread(store, "override")...)
		require.NoError(t, err)

		result, err := compiled.ResumeFrom(ctx, store, "override", "a",
			stategraph.WithStateOverride(func(s any) any {
				state := s.(CheckpointState)
				state.Value = 100
				return state
			}))
		require.NoError(t, err)
		assert.Equal(t, 102, result.Value)
	})

	t.Run("state validation", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		compiled := abcGraph(t, &runLog{}, nil)
		_, err := compiled.Run(ctx, CheckpointState{}, withThread(store, "validate")...)
		require.NoError(t, err)

		_, err = compiled.Resume(ctx, store, "validate",
			stategraph.WithStateValidation(func(s any) error {
				if s.(CheckpointState).Value < 100 {
					return errors.New("value too small")
				}
				return nil
			}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "value too small")
	})

	t.Run("goto", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		l := &runLog{}
		compiled := abcGraph(t, l, nil)
		_, err := compiled.Run(ctx, CheckpointState{}, withThread(store, "goto")...)
		require.NoError(t, err)
		l.take()

		result, err := compiled.Resume(ctx, store, "goto", stategraph.WithResumeGoto("b"))
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, l.take())
		assert.Equal(t, 5, result.Value)
	})

	t.Run("invalid goto", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		compiled := abcGraph(t, &runLog{}, nil)
		_, err := compiled.Run(ctx, CheckpointState{}, withThread(store, "bad-goto")...)
		require.NoError(t, err)

		_, err = compiled.Resume(ctx, store, "bad-goto", stategraph.WithResumeGoto("nope"))
		assert.ErrorIs(t, err, stategraph.ErrInvalidResumeNode)
	})
}

func TestResume_Errors(t *testing.T) {
	ctx := context.Background()
	compiled := abcGraph(t, &runLog{}, nil)

	save := func(t *testing.T, store checkpoint.Store, data []byte) {
		t.Helper()
		require.NoError(t, store.Save(ctx, "broken", "a", data))
	}

	t.Run("no checkpoints", func(t *testing.T) {
		_, err := compiled.Resume(ctx, checkpoint.NewMemoryStore(), "nonexistent")
		assert.ErrorIs(t, err, stategraph.ErrNoCheckpoints)
	})

	t.Run("nil context", func(t *testing.T) {
		//nolint:staticcheck // nil context is the case under test
		_, err := compiled.Resume(nil, checkpoint.NewMemoryStore(), "x")
		assert.ErrorIs(t, err, stategraph.ErrNilContext)

		//nolint:staticcheck // nil context is the case under test
		_, err = compiled.ResumeFrom(nil, checkpoint.NewMemoryStore(), "x", "a")
		assert.ErrorIs(t, err, stategraph.ErrNilContext)
	})

	t.Run("corrupted data", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		save(t, store, []byte("not a checkpoint"))

		_, err := compiled.Resume(ctx, store, "broken")
		assert.ErrorIs(t, err, stategraph.ErrDeserializeState)
	})

	t.Run("version mismatch", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		cp := checkpoint.New("broken", "a", 1, []byte(`{"value":1}`), "b")
		cp.Version = 1
		data, err := cp.Marshal()
		require.NoError(t, err)
		save(t, store, data)

		_, err = compiled.Resume(ctx, store, "broken")
		assert.ErrorIs(t, err, stategraph.ErrCheckpointVersionMismatch)
	})

	t.Run("undecodable state", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		data, err := checkpoint.New("broken", "a", 1, json.RawMessage(`{"value":"many"}`), "b").Marshal()
		require.NoError(t, err)
		save(t, store, data)

		_, err = compiled.Resume(ctx, store, "broken")
		assert.ErrorIs(t, err, stategraph.ErrDeserializeState)
	})

	t.Run("unknown next node", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		data, err := checkpoint.New("broken", "a", 1, []byte(`{"value":1}`), "removed").Marshal()
		require.NoError(t, err)
		save(t, store, data)

		_, err = compiled.Resume(ctx, store, "broken")
		assert.ErrorIs(t, err, stategraph.ErrInvalidResumeNode)
	})
}
