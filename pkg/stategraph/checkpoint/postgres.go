package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists checkpoints to PostgreSQL.
// Safe for multiple processes sharing one database.
type PostgresStore struct {
	pool      *pgxpool.Pool
	ownsPool  bool
	tableName string
	mu        sync.RWMutex
	closed    bool
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTableName overrides the checkpoint table name (default "stategraph_checkpoints").
func WithTableName(name string) PostgresOption {
	return func(s *PostgresStore) {
		s.tableName = name
	}
}

// NewPostgresStore connects to PostgreSQL and ensures the checkpoint table exists.
// The store owns the pool and closes it on Close.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store, err := NewPostgresStoreFromPool(ctx, pool, opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	store.ownsPool = true
	return store, nil
}

// NewPostgresStoreFromPool creates a store on an existing pool.
// The caller keeps ownership of the pool.
func NewPostgresStoreFromPool(ctx context.Context, pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{
		pool:      pool,
		tableName: "stategraph_checkpoints",
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	queries := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				thread_id TEXT NOT NULL,
				node_id TEXT NOT NULL,
				sequence INTEGER NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				data BYTEA NOT NULL,
				PRIMARY KEY (thread_id, node_id)
			)`, s.tableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_thread_seq_idx ON %s (thread_id, sequence)`,
			s.tableName, s.tableName),
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) checkOpen() error {
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, threadID, nodeID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (thread_id, node_id, sequence, created_at, data)
		VALUES (
			$1, $2,
			COALESCE((SELECT MAX(sequence) FROM %[1]s WHERE thread_id = $1), 0) + 1,
			$3, $4
		)
		ON CONFLICT (thread_id, node_id) DO UPDATE SET
			sequence = (SELECT MAX(sequence) FROM %[1]s WHERE thread_id = EXCLUDED.thread_id) + 1,
			created_at = EXCLUDED.created_at,
			data = EXCLUDED.data
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query, threadID, nodeID, time.Now().UTC(), data); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, threadID, nodeID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE thread_id = $1 AND node_id = $2`, s.tableName)

	var data []byte
	err := s.pool.QueryRow(ctx, query, threadID, nodeID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return data, nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, threadID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT node_id, sequence, created_at, OCTET_LENGTH(data)
		FROM %s
		WHERE thread_id = $1
		ORDER BY sequence
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var size int32
		if err := rows.Scan(&info.NodeID, &info.Sequence, &info.Timestamp, &size); err != nil {
			return nil, fmt.Errorf("scan checkpoint info: %w", err)
		}
		info.ThreadID = threadID
		info.Size = int64(size)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return infos, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, threadID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE thread_id = $1 AND node_id = $2`, s.tableName)
	if _, err := s.pool.Exec(ctx, query, threadID, nodeID); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// DeleteThread implements Store.
func (s *PostgresStore) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE thread_id = $1`, s.tableName)
	if _, err := s.pool.Exec(ctx, query, threadID); err != nil {
		return fmt.Errorf("delete thread checkpoints: %w", err)
	}
	return nil
}

// Threads implements Store.
func (s *PostgresStore) Threads(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT DISTINCT thread_id FROM %s ORDER BY thread_id`, s.tableName)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	threads, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect threads: %w", err)
	}
	return threads, nil
}

// Close implements Store. The pool is closed only if the store created it.
func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}
