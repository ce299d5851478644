// Package checkpoint persists graph state between steps and between
// invocations, keyed by thread ID.
//
// Stores only move bytes. Checkpoint describes what those bytes hold and
// Serializer decides their encoding.
package checkpoint

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"
)

var (
	ErrNotFound    = errors.New("checkpoint not found")
	ErrStoreClosed = errors.New("checkpoint store closed")
)

// Store holds at most one checkpoint per (thread, node). Every Save takes
// the thread's next sequence number, so re-saving a node moves it to the
// end of List. Implementations are safe for concurrent use and return
// ErrStoreClosed after Close.
type Store interface {
	Save(ctx context.Context, threadID, nodeID string, data []byte) error

	// Load returns ErrNotFound for an unknown thread or node.
	Load(ctx context.Context, threadID, nodeID string) ([]byte, error)

	// List orders by sequence. An unknown thread lists nothing, without
	// error.
	List(ctx context.Context, threadID string) ([]Info, error)

	// Delete and DeleteThread succeed when there is nothing to remove.
	Delete(ctx context.Context, threadID, nodeID string) error
	DeleteThread(ctx context.Context, threadID string) error

	// Threads lists thread IDs with at least one checkpoint, sorted.
	Threads(ctx context.Context) ([]string, error)

	Close() error
}

// Info describes a stored checkpoint without its payload.
type Info struct {
	ThreadID  string
	NodeID    string
	Sequence  int
	Timestamp time.Time
	Size      int64 // stored bytes, after serialization
}

// Latest picks the highest sequence.
func Latest(infos []Info) (Info, bool) {
	if len(infos) == 0 {
		return Info{}, false
	}
	return slices.MaxFunc(infos, func(a, b Info) int { return cmp.Compare(a.Sequence, b.Sequence) }), true
}
