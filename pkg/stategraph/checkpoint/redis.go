package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists checkpoints in Redis.
//
// Each thread uses four keys under the configured prefix:
//
//	<prefix>thread:<id>:data     hash   nodeID -> checkpoint bytes
//	<prefix>thread:<id>:seq      zset   nodeID scored by sequence
//	<prefix>thread:<id>:ts       hash   nodeID -> unix nanoseconds
//	<prefix>thread:<id>:counter  string sequence counter
//
// plus a set of known thread IDs at <prefix>threads.
type RedisStore struct {
	client     redis.UniversalClient
	ownsClient bool
	prefix     string
	ttl        time.Duration
	mu         sync.RWMutex
	closed     bool
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the key prefix (default "stategraph:").
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithKeyTTL expires a thread's keys after ttl without writes.
// Zero (the default) keeps checkpoints forever.
func WithKeyTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore connects to Redis at addr. The store owns the client.
func NewRedisStore(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	s := NewRedisStoreFromClient(client, opts...)
	s.ownsClient = true
	return s, nil
}

// NewRedisStoreFromURL parses a redis:// URL and connects.
func NewRedisStoreFromURL(ctx context.Context, url string, opts ...RedisOption) (*RedisStore, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return NewRedisStore(ctx, ropts.Addr, ropts.Password, ropts.DB, opts...)
}

// NewRedisStoreFromClient wraps an existing client. The caller keeps ownership.
func NewRedisStoreFromClient(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "stategraph:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) threadKey(threadID, suffix string) string {
	return s.prefix + "thread:" + threadID + ":" + suffix
}

func (s *RedisStore) threadsKey() string {
	return s.prefix + "threads"
}

func (s *RedisStore) threadKeys(threadID string) []string {
	return []string{
		s.threadKey(threadID, "data"),
		s.threadKey(threadID, "seq"),
		s.threadKey(threadID, "ts"),
		s.threadKey(threadID, "counter"),
	}
}

func (s *RedisStore) checkOpen() error {
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, threadID, nodeID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	seq, err := s.client.Incr(ctx, s.threadKey(threadID, "counter")).Result()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	now := time.Now().UTC().UnixNano()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.threadKey(threadID, "data"), nodeID, data)
		pipe.ZAdd(ctx, s.threadKey(threadID, "seq"), redis.Z{Score: float64(seq), Member: nodeID})
		pipe.HSet(ctx, s.threadKey(threadID, "ts"), nodeID, now)
		pipe.SAdd(ctx, s.threadsKey(), threadID)
		if s.ttl > 0 {
			for _, key := range s.threadKeys(threadID) {
				pipe.Expire(ctx, key, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, threadID, nodeID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	data, err := s.client.HGet(ctx, s.threadKey(threadID, "data"), nodeID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return data, nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context, threadID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	members, err := s.client.ZRangeWithScores(ctx, s.threadKey(threadID, "seq"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	data, err := s.client.HGetAll(ctx, s.threadKey(threadID, "data")).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoint data: %w", err)
	}
	stamps, err := s.client.HGetAll(ctx, s.threadKey(threadID, "ts")).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoint timestamps: %w", err)
	}

	infos := make([]Info, 0, len(members))
	for _, m := range members {
		nodeID, ok := m.Member.(string)
		if !ok {
			continue
		}
		info := Info{
			ThreadID: threadID,
			NodeID:   nodeID,
			Sequence: int(m.Score),
			Size:     int64(len(data[nodeID])),
		}
		if ns, err := strconv.ParseInt(stamps[nodeID], 10, 64); err == nil {
			info.Timestamp = time.Unix(0, ns).UTC()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, threadID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	var remaining *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.threadKey(threadID, "data"), nodeID)
		pipe.ZRem(ctx, s.threadKey(threadID, "seq"), nodeID)
		pipe.HDel(ctx, s.threadKey(threadID, "ts"), nodeID)
		remaining = pipe.ZCard(ctx, s.threadKey(threadID, "seq"))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	if remaining.Val() == 0 {
		return s.deleteThread(ctx, threadID)
	}
	return nil
}

// DeleteThread implements Store.
func (s *RedisStore) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.deleteThread(ctx, threadID)
}

func (s *RedisStore) deleteThread(ctx context.Context, threadID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.threadKeys(threadID)...)
		pipe.SRem(ctx, s.threadsKey(), threadID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete thread checkpoints: %w", err)
	}
	return nil
}

// Threads implements Store.
func (s *RedisStore) Threads(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	threads, err := s.client.SMembers(ctx, s.threadsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	sort.Strings(threads)
	return threads, nil
}

// Close implements Store. The client is closed only if the store created it.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}
