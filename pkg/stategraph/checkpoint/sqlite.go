package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// sqliteSchema is applied in order; user_version records how many steps a
// database file has seen.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS checkpoints (
		thread_id  TEXT    NOT NULL,
		node_id    TEXT    NOT NULL,
		sequence   INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		data       BLOB    NOT NULL,
		PRIMARY KEY (thread_id, node_id)
	)`,
	`CREATE INDEX IF NOT EXISTS checkpoints_thread_seq ON checkpoints (thread_id, sequence)`,
}

// SQLiteStore persists checkpoints to a SQLite file through the pure Go
// modernc.org/sqlite driver. One process at a time; use PostgresStore or
// RedisStore to share threads between processes.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*sqliteOptions)

type sqliteOptions struct {
	busyTimeout time.Duration
}

// WithBusyTimeout sets how long a write waits on a locked database before
// failing. The default is five seconds.
func WithBusyTimeout(d time.Duration) SQLiteOption {
	return func(o *sqliteOptions) { o.busyTimeout = d }
}

// NewSQLiteStore opens or creates the database at path and brings its
// schema up to date. Use ":memory:" for a throwaway store.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	o := sqliteOptions{busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Each connection to ":memory:" is its own database, and SQLite
	// allows one writer anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", o.busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrateSQLite(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for i := version; i < len(sqliteSchema); i++ {
		if _, err := db.Exec(sqliteSchema[i]); err != nil {
			return fmt.Errorf("migrate schema step %d: %w", i+1, err)
		}
	}
	if version < len(sqliteSchema) {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", len(sqliteSchema))); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
	}
	return nil
}

// guard runs fn under the store lock, failing once the store is closed.
func (s *SQLiteStore) guard(write bool, fn func() error) error {
	if write {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	if s.closed {
		return ErrStoreClosed
	}
	return fn()
}

// Save implements Store. The row gets the thread's next sequence number,
// also when it replaces an earlier checkpoint of the same node.
func (s *SQLiteStore) Save(ctx context.Context, threadID, nodeID string, data []byte) error {
	return s.guard(true, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO checkpoints (thread_id, node_id, sequence, created_at, data)
			SELECT ?1, ?2, COALESCE(MAX(sequence), 0) + 1, ?3, ?4
			FROM checkpoints WHERE thread_id = ?1
			ON CONFLICT (thread_id, node_id) DO UPDATE SET
				sequence = excluded.sequence,
				created_at = excluded.created_at,
				data = excluded.data`,
			threadID, nodeID, time.Now().UTC().UnixMicro(), data)
		if err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
		return nil
	})
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, threadID, nodeID string) ([]byte, error) {
	var data []byte
	err := s.guard(false, func() error {
		err := s.db.QueryRowContext(ctx,
			`SELECT data FROM checkpoints WHERE thread_id = ? AND node_id = ?`,
			threadID, nodeID).Scan(&data)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrNotFound
		case err != nil:
			return fmt.Errorf("load checkpoint: %w", err)
		}
		return nil
	})
	return data, err
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, threadID string) ([]Info, error) {
	var infos []Info
	err := s.guard(false, func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT node_id, sequence, created_at, LENGTH(data)
			FROM checkpoints WHERE thread_id = ?
			ORDER BY sequence`, threadID)
		if err != nil {
			return fmt.Errorf("list checkpoints: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			info := Info{ThreadID: threadID}
			var micros int64
			if err := rows.Scan(&info.NodeID, &info.Sequence, &micros, &info.Size); err != nil {
				return fmt.Errorf("scan checkpoint info: %w", err)
			}
			info.Timestamp = time.UnixMicro(micros).UTC()
			infos = append(infos, info)
		}
		return rows.Err()
	})
	return infos, err
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, threadID, nodeID string) error {
	return s.exec(ctx, "delete checkpoint",
		`DELETE FROM checkpoints WHERE thread_id = ? AND node_id = ?`, threadID, nodeID)
}

// DeleteThread implements Store.
func (s *SQLiteStore) DeleteThread(ctx context.Context, threadID string) error {
	return s.exec(ctx, "delete thread", `DELETE FROM checkpoints WHERE thread_id = ?`, threadID)
}

func (s *SQLiteStore) exec(ctx context.Context, op, query string, args ...any) error {
	return s.guard(true, func() error {
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})
}

// Threads implements Store.
func (s *SQLiteStore) Threads(ctx context.Context) ([]string, error) {
	var threads []string
	err := s.guard(false, func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT thread_id FROM checkpoints ORDER BY thread_id`)
		if err != nil {
			return fmt.Errorf("list threads: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scan thread id: %w", err)
			}
			threads = append(threads, id)
		}
		return rows.Err()
	})
	return threads, err
}

// Close implements Store. Closing twice is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
