package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// ErrCheckpointNotFound is returned by Checkpointer.Latest for unknown runs.
var ErrCheckpointNotFound = errors.New("graph: checkpoint not found")

// Checkpoint is the merged state of a run after one superstep. The state is
// stored as JSON, so S must be JSON-serializable when a Checkpointer is
// configured.
type Checkpoint struct {
	RunID string `json:"run_id"`

	// Step is the 1-based superstep that produced this checkpoint.
	Step int `json:"step"`

	// Nodes lists the nodes executed in the superstep, in merge order.
	Nodes []string `json:"nodes"`

	// Next is the active set of the following superstep. Empty when the
	// run reached End.
	Next []string `json:"next"`

	State json.RawMessage `json:"state"`

	CreatedAt time.Time `json:"created_at"`
}

// Checkpointer persists checkpoints. Implementations must be safe for
// concurrent use; one Graph may run many invocations at once.
type Checkpointer interface {
	// Put stores a checkpoint. Later steps of the same run supersede
	// earlier ones for Latest.
	Put(ctx context.Context, checkpoint Checkpoint) error

	// Latest returns the most recent checkpoint of a run, or
	// ErrCheckpointNotFound.
	Latest(ctx context.Context, runID string) (*Checkpoint, error)
}

// DecodeState unmarshals the state carried by a checkpoint.
func DecodeState[S any](checkpoint *Checkpoint) (S, error) {
	var state S
	if checkpoint == nil {
		return state, ErrCheckpointNotFound
	}
	if err := json.Unmarshal(checkpoint.State, &state); err != nil {
		return state, fmt.Errorf("failed to decode checkpoint state for run %q: %w", checkpoint.RunID, err)
	}
	return state, nil
}

// InMemoryCheckpointer keeps every checkpoint in memory. State is lost when
// the process exits.
type InMemoryCheckpointer struct {
	mu   sync.RWMutex
	runs map[string][]Checkpoint
}

// Compile-time check that InMemoryCheckpointer implements Checkpointer.
var _ Checkpointer = (*InMemoryCheckpointer)(nil)

// NewInMemoryCheckpointer creates an empty in-memory checkpointer.
func NewInMemoryCheckpointer() *InMemoryCheckpointer {
	return &InMemoryCheckpointer{runs: make(map[string][]Checkpoint)}
}

// Put appends the checkpoint to the run's history.
func (checkpointer *InMemoryCheckpointer) Put(_ context.Context, checkpoint Checkpoint) error {
	checkpointer.mu.Lock()
	defer checkpointer.mu.Unlock()

	checkpoint.Nodes = slices.Clone(checkpoint.Nodes)
	checkpoint.Next = slices.Clone(checkpoint.Next)
	checkpoint.State = slices.Clone(checkpoint.State)
	checkpointer.runs[checkpoint.RunID] = append(checkpointer.runs[checkpoint.RunID], checkpoint)
	return nil
}

// Latest returns a copy of the run's last checkpoint.
func (checkpointer *InMemoryCheckpointer) Latest(_ context.Context, runID string) (*Checkpoint, error) {
	checkpointer.mu.RLock()
	defer checkpointer.mu.RUnlock()

	history := checkpointer.runs[runID]
	if len(history) == 0 {
		return nil, ErrCheckpointNotFound
	}

	latest := history[len(history)-1]
	return &latest, nil
}

// History returns all checkpoints of a run in step order.
func (checkpointer *InMemoryCheckpointer) History(runID string) []Checkpoint {
	checkpointer.mu.RLock()
	defer checkpointer.mu.RUnlock()

	return slices.Clone(checkpointer.runs[runID])
}
