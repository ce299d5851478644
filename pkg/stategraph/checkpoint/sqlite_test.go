package checkpoint_test

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

func openSQLite(t *testing.T, path string, opts ...checkpoint.SQLiteOption) *checkpoint.SQLiteStore {
	t.Helper()
	store, err := checkpoint.NewSQLiteStore(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "claims.db")

	first := openSQLite(t, path)
	require.NoError(t, first.Save(ctx, "claim-7", "fetch_patient_data", []byte(`{"name":"Jane"}`)))
	require.NoError(t, first.Save(ctx, "claim-7", "decide", []byte(`{}`)))
	require.NoError(t, first.Close())

	second := openSQLite(t, path)
	data, err := second.Load(ctx, "claim-7", "fetch_patient_data")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Jane"}`, string(data))

	threads, err := second.Threads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"claim-7"}, threads)

	// Sequence numbers continue where the first handle stopped.
	require.NoError(t, second.Save(ctx, "claim-7", "human_review", []byte(`{}`)))
	infos, err := second.List(ctx, "claim-7")
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "human_review", infos[2].NodeID)
	assert.Equal(t, 3, infos[2].Sequence)
}

func TestSQLiteStore_SchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	require.NoError(t, openSQLite(t, path).Close())
	// Opening a migrated file again must not replay the schema.
	require.NoError(t, openSQLite(t, path).Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 2, version)
}

func TestSQLiteStore_Timestamps(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t, ":memory:", checkpoint.WithBusyTimeout(time.Second))

	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, store.Save(ctx, "t", "n", []byte("x")))

	infos, err := store.List(ctx, "t")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, time.UTC, infos[0].Timestamp.Location())
	assert.True(t, infos[0].Timestamp.After(before))
	assert.False(t, infos[0].Timestamp.After(time.Now().Add(time.Second)))
}

func TestSQLiteStore_OpenErrors(t *testing.T) {
	_, err := checkpoint.NewSQLiteStore(filepath.Join(t.TempDir(), "missing", "dir", "db.sqlite"))
	assert.Error(t, err)
}

func TestSQLiteStore_Close(t *testing.T) {
	ctx := context.Background()
	store, err := checkpoint.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "second close is a no-op")

	assert.ErrorIs(t, store.Save(ctx, "t", "n", nil), checkpoint.ErrStoreClosed)
	_, err = store.Threads(ctx)
	assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)
}

func TestSQLiteStore_ConcurrentThreads(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t, ":memory:")

	const threads, saves = 8, 25
	var g errgroup.Group
	for i := range threads {
		threadID := fmt.Sprintf("thread-%d", i)
		g.Go(func() error {
			for j := range saves {
				if err := store.Save(ctx, threadID, fmt.Sprintf("node-%d", j), []byte("state")); err != nil {
					return err
				}
				if _, err := store.List(ctx, threadID); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := range threads {
		infos, err := store.List(ctx, fmt.Sprintf("thread-%d", i))
		require.NoError(t, err)
		require.Len(t, infos, saves)
		assert.Equal(t, saves, infos[saves-1].Sequence)
	}
}

func TestSQLiteStore_LargeCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t, ":memory:")

	big := bytes.Repeat([]byte("0123456789abcdef"), 64*1024)
	require.NoError(t, store.Save(ctx, "t", "documents", big))

	loaded, err := store.Load(ctx, "t", "documents")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(big, loaded))

	infos, err := store.List(ctx, "t")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, int64(len(big)), infos[0].Size)
}

func TestSQLiteStore_WritesToDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "disk.db")
	store := openSQLite(t, path)

	for i := range 10 {
		require.NoError(t, store.Save(ctx, "t", fmt.Sprintf("node-%d", i), make([]byte, 10_000)))
	}
	require.NoError(t, store.Close())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(50_000))
}
