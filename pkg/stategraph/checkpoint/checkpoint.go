package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is written into every checkpoint. Resume refuses other versions.
const Version = 2

// Checkpoint is a thread's state after one node, plus what runs next. A
// thread can be continued from any of its checkpoints.
type Checkpoint struct {
	Version    int       `json:"version"`
	ThreadID   string    `json:"thread_id"`
	RunID      string    `json:"run_id,omitempty"`
	NodeID     string    `json:"node_id"`
	PrevNodeID string    `json:"prev_node_id,omitempty"`
	Sequence   int       `json:"sequence"`
	Attempt    int       `json:"attempt"`
	Timestamp  time.Time `json:"timestamp"`

	State    json.RawMessage `json:"state"`
	NextNode string          `json:"next_node"` // END once the run finished

	// Interrupts is non-empty while NextNode waits for a human. Resume holds
	// the answers NextNode has already been given, consumed in call order
	// when it re-executes.
	Interrupts []Interrupt       `json:"interrupts,omitempty"`
	Resume     []json.RawMessage `json:"resume,omitempty"`
}

// Interrupt is one question a node asked. Index is its position among the
// node's Interrupt calls.
type Interrupt struct {
	ID     string          `json:"id"`
	NodeID string          `json:"node_id"`
	Index  int             `json:"index"`
	Value  json.RawMessage `json:"value"`
}

// New starts a checkpoint for the first attempt of nodeID. state must be
// JSON.
func New(threadID, nodeID string, sequence int, state []byte, nextNode string) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		ThreadID:  threadID,
		NodeID:    nodeID,
		Sequence:  sequence,
		Attempt:   1,
		Timestamp: time.Now().UTC(),
		State:     state,
		NextNode:  nextNode,
	}
}

func (c *Checkpoint) WithAttempt(attempt int) *Checkpoint {
	c.Attempt = attempt
	return c
}

func (c *Checkpoint) WithPrevNode(nodeID string) *Checkpoint {
	c.PrevNodeID = nodeID
	return c
}

func (c *Checkpoint) WithRunID(runID string) *Checkpoint {
	c.RunID = runID
	return c
}

// WithInterrupts suspends the checkpoint on interrupts, keeping the resume
// values answered so far.
func (c *Checkpoint) WithInterrupts(interrupts []Interrupt, resume []json.RawMessage) *Checkpoint {
	c.Interrupts, c.Resume = interrupts, resume
	return c
}

// Interrupted reports whether the thread is waiting for a resume value.
func (c *Checkpoint) Interrupted() bool { return len(c.Interrupts) > 0 }

// Marshal encodes c as JSON. Stores receive the result through a
// Serializer.
func (c *Checkpoint) Marshal() ([]byte, error) { return json.Marshal(c) }

// Unmarshal decodes a checkpoint written by Marshal.
func Unmarshal(data []byte) (*Checkpoint, error) {
	c := new(Checkpoint)
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
