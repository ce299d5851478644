package checkpoint

import (
	"bytes"
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps checkpoints in process memory, like langgraph's
// MemorySaver. Everything is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*memThread
	closed  bool
}

// memThread is one thread's checkpoints. seq only grows, so a re-saved
// node always sorts last.
type memThread struct {
	seq   int
	nodes map[string]memEntry
}

type memEntry struct {
	data []byte
	seq  int
	at   time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]*memThread)}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, threadID, nodeID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	t := m.threads[threadID]
	if t == nil {
		t = &memThread{nodes: make(map[string]memEntry)}
		m.threads[threadID] = t
	}
	t.seq++
	t.nodes[nodeID] = memEntry{data: bytes.Clone(data), seq: t.seq, at: time.Now().UTC()}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, threadID, nodeID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	t := m.threads[threadID]
	if t == nil {
		return nil, ErrNotFound
	}
	e, ok := t.nodes[nodeID]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(e.data), nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, threadID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	t := m.threads[threadID]
	if t == nil {
		return nil, nil
	}
	infos := make([]Info, 0, len(t.nodes))
	for nodeID, e := range t.nodes {
		infos = append(infos, Info{
			ThreadID:  threadID,
			NodeID:    nodeID,
			Sequence:  e.seq,
			Timestamp: e.at,
			Size:      int64(len(e.data)),
		})
	}
	slices.SortFunc(infos, func(a, b Info) int { return cmp.Compare(a.Sequence, b.Sequence) })
	return infos, nil
}

// Delete implements Store. Removing a thread's last checkpoint removes the
// thread.
func (m *MemoryStore) Delete(_ context.Context, threadID, nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	if t := m.threads[threadID]; t != nil {
		delete(t.nodes, nodeID)
		if len(t.nodes) == 0 {
			delete(m.threads, threadID)
		}
	}
	return nil
}

// DeleteThread implements Store.
func (m *MemoryStore) DeleteThread(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.threads, threadID)
	return nil
}

// Threads implements Store.
func (m *MemoryStore) Threads(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	return slices.Sorted(maps.Keys(m.threads)), nil
}

// Close implements Store. Every later call fails with ErrStoreClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.threads = nil
	return nil
}

// Len returns the number of checkpoints across all threads.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.threads {
		n += len(t.nodes)
	}
	return n
}
